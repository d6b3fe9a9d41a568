package handlers

import (
	"context"
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/socialdeck/internal/models"
	"github.com/maheshrc27/socialdeck/internal/queue"
	"github.com/maheshrc27/socialdeck/internal/service"
	"github.com/maheshrc27/socialdeck/internal/transfer"
)

type PostHandler struct {
	s           service.PostService
	AsynqClient queue.Enqueuer
}

func NewPostHandler(service service.PostService, asynqClient queue.Enqueuer) *PostHandler {
	return &PostHandler{s: service, AsynqClient: asynqClient}
}

// CreatePost accepts either a JSON body or a multipart form carrying media
// files under "files".
func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var pc transfer.PostCreation
	if err := c.BodyParser(&pc); err != nil {
		return badRequest(c, "Unable to parse request body")
	}

	var files []*multipart.FileHeader
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		form, err := c.MultipartForm()
		if err != nil {
			return badRequest(c, "Unable to parse form")
		}
		files = form.File["files"]
	}
	pc.Platforms = splitList(pc.Platforms)

	post, err := h.s.CreatePost(c.Context(), userID, &pc, files)
	if err != nil {
		return fail(c, err, "Unable to create post")
	}

	return c.Status(fiber.StatusCreated).JSON(post)
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID := c.QueryInt("id", 0)

	if postID != 0 {
		post, err := h.s.PostInfo(c.Context(), int64(postID), userID)
		if err != nil {
			return fail(c, err, "Unable to get post")
		}
		return c.Status(fiber.StatusOK).JSON(post)
	}

	posts, err := h.s.List(c.Context(), userID)
	if err != nil {
		return fail(c, err, "Unable to list posts")
	}

	return c.Status(fiber.StatusOK).JSON(posts)
}

func (h *PostHandler) RemovePost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID := c.QueryInt("id", 0)

	if err := h.s.Remove(c.Context(), userID, int64(postID)); err != nil {
		return fail(c, err, "Unable to remove post")
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *PostHandler) SchedulePost(c *fiber.Ctx) error {
	return h.reschedule(c, h.s.Schedule)
}

func (h *PostHandler) ResubmitPost(c *fiber.Ctx) error {
	return h.reschedule(c, h.s.Resubmit)
}

type rescheduleFunc func(ctx context.Context, postID, userID int64, rs *transfer.PostReschedule) (*models.Post, error)

func (h *PostHandler) reschedule(c *fiber.Ctx, fn rescheduleFunc) error {
	postID, err := c.ParamsInt("id")
	if err != nil || postID <= 0 {
		return badRequest(c, "Invalid post id")
	}

	var rs transfer.PostReschedule
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&rs); err != nil {
			return badRequest(c, "Unable to parse request body")
		}
	}

	post, err := fn(c.Context(), int64(postID), GetUserID(c), &rs)
	if err != nil {
		return fail(c, err, "Unable to schedule post")
	}
	return c.Status(fiber.StatusOK).JSON(post)
}

func (h *PostHandler) UnschedulePost(c *fiber.Ctx) error {
	postID, err := c.ParamsInt("id")
	if err != nil || postID <= 0 {
		return badRequest(c, "Invalid post id")
	}

	post, err := h.s.Unschedule(c.Context(), int64(postID), GetUserID(c))
	if err != nil {
		return fail(c, err, "Unable to unschedule post")
	}
	return c.Status(fiber.StatusOK).JSON(post)
}

// PublishPost queues the post for immediate publishing; the worker does the rest.
func (h *PostHandler) PublishPost(c *fiber.Ctx) error {
	postID, err := c.ParamsInt("id")
	if err != nil || postID <= 0 {
		return badRequest(c, "Invalid post id")
	}
	userID := GetUserID(c)

	post, err := h.s.CheckPublishable(c.Context(), int64(postID), userID)
	if err != nil {
		return fail(c, err, "Unable to publish post")
	}

	taskID, err := queue.EnqueuePublishNow(c.Context(), h.AsynqClient, queue.PublishNowPayload{PostID: post.ID, UserID: userID})
	if err != nil {
		return fail(c, err, "Error queueing post")
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message": "Post queued for publishing",
		"task_id": taskID,
	})
}

func (h *PostHandler) PostHistory(c *fiber.Ctx) error {
	postID, err := c.ParamsInt("id")
	if err != nil || postID <= 0 {
		return badRequest(c, "Invalid post id")
	}

	history, err := h.s.History(c.Context(), int64(postID), GetUserID(c))
	if err != nil {
		return fail(c, err, "Unable to get posting history")
	}
	return c.Status(fiber.StatusOK).JSON(history)
}

func (h *PostHandler) UserHistory(c *fiber.Ctx) error {
	history, err := h.s.UserHistory(c.Context(), GetUserID(c))
	if err != nil {
		return fail(c, err, "Unable to get posting history")
	}
	if history == nil {
		history = []*models.PostingHistory{}
	}
	return c.Status(fiber.StatusOK).JSON(history)
}

// splitList accepts both repeated form fields and comma separated values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
