package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/maheshrc27/socialdeck/internal/scheduler"
	"github.com/maheshrc27/socialdeck/internal/service"
)

const UserIDKey = "user_id"

func GetUserID(c *fiber.Ctx) int64 {
	userID, _ := c.Locals(UserIDKey).(int64)
	return userID
}

// fail writes err as a JSON error body with a status derived from its kind.
// Unexpected errors are logged and replaced by fallback.
func fail(c *fiber.Ctx, err error, fallback string) error {
	status := errorStatus(err)
	message := err.Error()
	if status == fiber.StatusInternalServerError {
		slog.Error(message)
		message = fallback
	}
	return c.Status(status).JSON(fiber.Map{
		"error": message,
	})
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrPostNotFound),
		errors.Is(err, service.ErrAccountNotFound),
		errors.Is(err, scheduler.ErrPostNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, scheduler.ErrNotPublishable),
		errors.Is(err, scheduler.ErrAlreadyPublishing),
		errors.Is(err, asynq.ErrTaskIDConflict):
		return fiber.StatusConflict
	case errors.Is(err, service.ErrNoPlatforms),
		errors.Is(err, service.ErrInvalidPlatform),
		errors.Is(err, service.ErrEmptyContent),
		errors.Is(err, service.ErrInvalidRepeat),
		errors.Is(err, service.ErrInvalidTime):
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": message,
	})
}
