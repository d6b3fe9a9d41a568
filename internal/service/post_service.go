package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"strings"
	"time"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	"github.com/maheshrc27/socialdeck/internal/models"
	"github.com/maheshrc27/socialdeck/internal/repository"
	"github.com/maheshrc27/socialdeck/internal/storage"
	"github.com/maheshrc27/socialdeck/internal/transfer"
	"github.com/maheshrc27/socialdeck/pkg/utils"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

var (
	ErrPostNotFound      = errors.New("post doesn't exist")
	ErrInvalidTransition = errors.New("post cannot move to that status")
	ErrNoPlatforms       = errors.New("no platforms selected")
	ErrInvalidPlatform   = errors.New("unsupported platform")
	ErrEmptyContent      = errors.New("content cannot be empty")
	ErrInvalidRepeat     = errors.New("invalid repeat value")
	ErrInvalidTime       = errors.New("invalid scheduled time")
)

type PostService interface {
	CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation, files []*multipart.FileHeader) (*models.Post, error)
	List(ctx context.Context, userID int64) ([]*models.Post, error)
	PostInfo(ctx context.Context, postID, userID int64) (*models.Post, error)
	History(ctx context.Context, postID, userID int64) ([]*models.PostingHistory, error)
	UserHistory(ctx context.Context, userID int64) ([]*models.PostingHistory, error)
	Schedule(ctx context.Context, postID, userID int64, rs *transfer.PostReschedule) (*models.Post, error)
	Unschedule(ctx context.Context, postID, userID int64) (*models.Post, error)
	Resubmit(ctx context.Context, postID, userID int64, rs *transfer.PostReschedule) (*models.Post, error)
	CheckPublishable(ctx context.Context, postID, userID int64) (*models.Post, error)
	Remove(ctx context.Context, userID, postID int64) error
}

type postService struct {
	db    *sql.DB
	pr    repository.PostRepository
	ma    repository.MediaAssetRepository
	pm    repository.PostMediaRepository
	ph    repository.PostingHistoryRepository
	store storage.ObjectStore
	now   func() time.Time
}

func NewPostService(
	db *sql.DB,
	pr repository.PostRepository,
	ma repository.MediaAssetRepository,
	pm repository.PostMediaRepository,
	ph repository.PostingHistoryRepository,
	store storage.ObjectStore) PostService {
	return &postService{
		db:    db,
		pr:    pr,
		ma:    ma,
		pm:    pm,
		ph:    ph,
		store: store,
		now:   utils.NowInstant,
	}
}

func (s *postService) CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation, files []*multipart.FileHeader) (*models.Post, error) {
	if pc == nil {
		err := errors.New("post creation data is nil")
		slog.Error(err.Error())
		return nil, err
	}
	if userID == 0 {
		err := errors.New("user is not valid")
		slog.Info(err.Error())
		return nil, err
	}
	if strings.TrimSpace(pc.Content) == "" && len(files) == 0 {
		slog.Info(ErrEmptyContent.Error())
		return nil, ErrEmptyContent
	}

	platforms, err := normalizePlatforms(pc.Platforms)
	if err != nil {
		return nil, err
	}

	status := models.PostStatusScheduled
	if pc.Draft {
		status = models.PostStatusDraft
	}
	if status == models.PostStatusScheduled && len(platforms) == 0 {
		slog.Info(ErrNoPlatforms.Error())
		return nil, ErrNoPlatforms
	}

	repeat := models.Repeat(pc.Repeat)
	if repeat == "" {
		repeat = models.RepeatNone
	}
	if !models.ValidRepeat(repeat) {
		return nil, ErrInvalidRepeat
	}

	zone := pc.TimeZone
	if zone == "" {
		zone = "UTC"
	}

	scheduledFor := s.now()
	if pc.ScheduledTime != "" {
		scheduledFor, err = s.resolveTime(pc.ScheduledTime, zone)
		if err != nil {
			return nil, err
		}
	} else if status == models.PostStatusScheduled {
		err := fmt.Errorf("%w: scheduled time is required", ErrInvalidTime)
		slog.Info(err.Error())
		return nil, err
	}

	post := &models.Post{
		UserID:       userID,
		Title:        pc.Title,
		Content:      pc.Content,
		Platforms:    platforms,
		ScheduledFor: scheduledFor,
		Status:       status,
		TimeZone:     zone,
		Repeat:       repeat,
	}

	if len(files) == 0 {
		id, err := s.pr.Create(ctx, nil, post)
		if err != nil {
			return nil, fmt.Errorf("error creating post: %w", err)
		}
		post.ID = id
		return post, nil
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		}
	}()

	post.ID, err = s.pr.Create(ctx, tx, post)
	if err != nil {
		return nil, fmt.Errorf("error creating post: %w", err)
	}

	post.MediaRefs, err = s.processFiles(ctx, tx, userID, post.ID, files)
	if err != nil {
		return nil, fmt.Errorf("error processing files: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return post, nil
}

// resolveTime turns the dashboard's wall clock into an instant. A zone that
// cannot be applied is logged and the wall clock is taken as UTC.
func (s *postService) resolveTime(local, zone string) (time.Time, error) {
	instant, exact, err := utils.LocalToInstant(local, zone)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrInvalidTime, err)
		slog.Info(err.Error())
		return time.Time{}, err
	}
	if !exact {
		slog.Warn("scheduled time could not be converted from its zone, using it as UTC", "time", local, "zone", zone)
	}
	return instant, nil
}

func normalizePlatforms(in []string) ([]string, error) {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, p := range in {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if !models.ValidPlatform(p) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidPlatform, p)
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out, nil
}

func (s *postService) processFiles(ctx context.Context, tx *sql.Tx, userID, postID int64, files []*multipart.FileHeader) ([]models.MediaRef, error) {
	allowedTypes := map[string]struct{}{
		"mp4": {}, "mov": {}, "jpg": {}, "png": {}, "webp": {}, "gif": {},
	}

	refs := make([]models.MediaRef, 0, len(files))
	assetIDs := make([]int64, 0, len(files))
	for _, file := range files {
		fileBytes, err := readFile(file)
		if err != nil {
			return nil, err
		}

		fileType, err := filetype.Match(fileBytes)
		if err != nil || fileType == types.Unknown {
			return nil, fmt.Errorf("unsupported file type: %s", file.Filename)
		}
		if _, ok := allowedTypes[fileType.Extension]; !ok {
			return nil, fmt.Errorf("file type %s is not allowed", fileType.Extension)
		}

		ref, err := s.saveFile(ctx, tx, userID, fileType.MIME.Value, fileType.Extension, fileBytes)
		if err != nil {
			return nil, fmt.Errorf("error uploading file: %w", err)
		}

		refs = append(refs, ref)
		assetIDs = append(assetIDs, ref.AssetID)
	}

	if err := s.pm.Attach(ctx, tx, postID, assetIDs); err != nil {
		return nil, fmt.Errorf("error saving media file: %w", err)
	}
	return refs, nil
}

func readFile(file *multipart.FileHeader) ([]byte, error) {
	fileContent, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}
	defer fileContent.Close()

	fileBytes, err := io.ReadAll(fileContent)
	if err != nil {
		return nil, fmt.Errorf("error reading file content: %w", err)
	}
	return fileBytes, nil
}

func (s *postService) saveFile(ctx context.Context, tx *sql.Tx, userID int64, mimeType, ext string, file []byte) (models.MediaRef, error) {
	id, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return models.MediaRef{}, err
	}
	key := id + "." + ext

	fileURL, err := s.store.Put(ctx, key, file, mimeType)
	if err != nil {
		return models.MediaRef{}, err
	}

	ma := models.MediaAsset{
		UserID:   userID,
		FileName: key,
		FileType: mimeType,
		FileSize: int64(len(file)),
		FileURL:  fileURL,
	}

	assetID, err := s.ma.Create(ctx, tx, &ma)
	if err != nil {
		return models.MediaRef{}, err
	}

	return models.MediaRef{AssetID: assetID, URL: fileURL, MimeType: mimeType}, nil
}

func (s *postService) owned(ctx context.Context, postID, userID int64) (*models.Post, error) {
	var err error

	if userID == 0 {
		err = errors.New("user is not valid")
		slog.Info(err.Error())
		return nil, err
	}

	if postID == 0 {
		err = errors.New("post id is not valid")
		slog.Info(err.Error())
		return nil, err
	}

	isValid, err := s.pr.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if !isValid {
		slog.Info(ErrPostNotFound.Error(), "post_id", postID)
		return nil, ErrPostNotFound
	}

	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("error getting post info: %w", err)
	}
	if post == nil {
		return nil, ErrPostNotFound
	}
	return post, nil
}

func (s *postService) PostInfo(ctx context.Context, postID, userID int64) (*models.Post, error) {
	return s.owned(ctx, postID, userID)
}

func (s *postService) List(ctx context.Context, userID int64) ([]*models.Post, error) {
	posts, err := s.pr.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting posts: %w", err)
	}
	return posts, nil
}

func (s *postService) History(ctx context.Context, postID, userID int64) ([]*models.PostingHistory, error) {
	if _, err := s.owned(ctx, postID, userID); err != nil {
		return nil, err
	}
	history, err := s.ph.ListByPostID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("error getting posting history: %w", err)
	}
	return history, nil
}

// UserHistory lists every platform result recorded for the user's posts, newest first.
func (s *postService) UserHistory(ctx context.Context, userID int64) ([]*models.PostingHistory, error) {
	history, err := s.ph.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting posting history: %w", err)
	}
	return history, nil
}

// Schedule moves a draft onto the calendar, optionally at a new time.
func (s *postService) Schedule(ctx context.Context, postID, userID int64, rs *transfer.PostReschedule) (*models.Post, error) {
	return s.toScheduled(ctx, postID, userID, models.PostStatusDraft, rs)
}

// Resubmit puts a failed post back on the calendar, optionally at a new time.
func (s *postService) Resubmit(ctx context.Context, postID, userID int64, rs *transfer.PostReschedule) (*models.Post, error) {
	return s.toScheduled(ctx, postID, userID, models.PostStatusFailed, rs)
}

func (s *postService) toScheduled(ctx context.Context, postID, userID int64, from models.PostStatus, rs *transfer.PostReschedule) (*models.Post, error) {
	post, err := s.owned(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if post.Status != from || !models.CanTransition(post.Status, models.PostStatusScheduled) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, post.Status, models.PostStatusScheduled)
	}
	if len(post.Platforms) == 0 {
		return nil, ErrNoPlatforms
	}

	var fields models.StatusFields
	if rs != nil && rs.ScheduledTime != "" {
		zone := rs.TimeZone
		if zone == "" {
			zone = post.TimeZone
		}
		instant, err := s.resolveTime(rs.ScheduledTime, zone)
		if err != nil {
			return nil, err
		}
		fields.ScheduledFor = &instant
		post.ScheduledFor = instant
	}

	if err := s.pr.UpdateStatus(ctx, postID, models.PostStatusScheduled, fields); err != nil {
		return nil, fmt.Errorf("failed to update status: %w", err)
	}
	post.Status = models.PostStatusScheduled
	post.LastError = ""
	return post, nil
}

func (s *postService) Unschedule(ctx context.Context, postID, userID int64) (*models.Post, error) {
	post, err := s.owned(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if post.Status != models.PostStatusScheduled {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, post.Status, models.PostStatusDraft)
	}

	if err := s.pr.UpdateStatus(ctx, postID, models.PostStatusDraft, models.StatusFields{}); err != nil {
		return nil, fmt.Errorf("failed to update status: %w", err)
	}
	post.Status = models.PostStatusDraft
	return post, nil
}

// CheckPublishable verifies a publish-now request before it is queued.
func (s *postService) CheckPublishable(ctx context.Context, postID, userID int64) (*models.Post, error) {
	post, err := s.owned(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(post.Status, models.PostStatusPublishing) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, post.Status, models.PostStatusPublishing)
	}
	if len(post.Platforms) == 0 {
		return nil, ErrNoPlatforms
	}
	return post, nil
}

func (s *postService) Remove(ctx context.Context, userID, postID int64) error {
	post, err := s.owned(ctx, postID, userID)
	if err != nil {
		return err
	}
	if post.Status == models.PostStatusPublishing {
		return fmt.Errorf("%w: post is being published", ErrInvalidTransition)
	}

	if err := s.pr.Remove(ctx, postID); err != nil {
		return fmt.Errorf("error removing post: %w", err)
	}

	s.removeOrphanedMedia(ctx, userID)
	return nil
}

// removeOrphanedMedia is best effort; leftovers are retried on the next removal.
func (s *postService) removeOrphanedMedia(ctx context.Context, userID int64) {
	if s.ma == nil || s.store == nil {
		return
	}
	assets, err := s.ma.ListUnreferenced(ctx, userID)
	if err != nil {
		return
	}
	for _, asset := range assets {
		if err := s.store.Remove(ctx, asset.FileName); err != nil {
			slog.Warn("could not remove media object", "key", asset.FileName, "error", err)
			continue
		}
		if err := s.ma.Remove(ctx, asset.ID); err != nil {
			slog.Warn("could not remove media asset", "asset_id", asset.ID, "error", err)
		}
	}
}
