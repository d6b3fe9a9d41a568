package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/maheshrc27/socialdeck/internal/models"
)

type PostRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error)
	GetByUserID(ctx context.Context, userID int64) ([]*models.Post, error)
	ListByStatus(ctx context.Context, userID int64, status models.PostStatus) ([]*models.Post, error)
	ListUserIDsByStatus(ctx context.Context, status models.PostStatus) ([]int64, error)
	UpdateStatus(ctx context.Context, postID int64, status models.PostStatus, fields models.StatusFields) error
	ClaimForPublishing(ctx context.Context, postID int64, from models.PostStatus) (bool, error)
	FailStalePublishing(ctx context.Context, before time.Time, reason string) (int64, error)
	CheckByUserID(ctx context.Context, postID, userID int64) (bool, error)
	Remove(ctx context.Context, id int64) error
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, user_id, title, content, platforms, scheduled_for, status, time_zone, repeat,
	COALESCE(last_error, ''), published_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*models.Post, error) {
	var post models.Post
	var platforms pq.StringArray
	var publishedAt sql.NullTime
	err := row.Scan(&post.ID, &post.UserID, &post.Title, &post.Content, &platforms, &post.ScheduledFor,
		&post.Status, &post.TimeZone, &post.Repeat, &post.LastError, &publishedAt, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, err
	}
	post.Platforms = []string(platforms)
	post.ScheduledFor = post.ScheduledFor.UTC()
	if publishedAt.Valid {
		t := publishedAt.Time.UTC()
		post.PublishedAt = &t
	}
	return &post, nil
}

func (r *postRepository) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	query := `
		INSERT INTO posts (user_id, title, content, platforms, scheduled_for, status, time_zone, repeat)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	args := []any{post.UserID, post.Title, post.Content, pq.Array(post.Platforms), post.ScheduledFor.UTC(),
		post.Status, post.TimeZone, post.Repeat}

	var id int64
	var err error

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, args...).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, args...).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`

	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	if err := r.attachMedia(ctx, []*models.Post{post}); err != nil {
		return nil, err
	}
	return post, nil
}

func (r *postRepository) GetByUserID(ctx context.Context, userID int64) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE user_id = $1 ORDER BY scheduled_for DESC`
	return r.list(ctx, query, userID)
}

// ListByStatus returns the user's posts in the given status, soonest first.
func (r *postRepository) ListByStatus(ctx context.Context, userID int64, status models.PostStatus) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE user_id = $1 AND status = $2 ORDER BY scheduled_for ASC, id ASC`
	return r.list(ctx, query, userID, status)
}

func (r *postRepository) ListUserIDsByStatus(ctx context.Context, status models.PostStatus) ([]int64, error) {
	query := `SELECT DISTINCT user_id FROM posts WHERE status = $1 ORDER BY user_id`
	rows, err := r.db.QueryContext(ctx, query, status)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return ids, nil
}

func (r *postRepository) list(ctx context.Context, query string, args ...any) ([]*models.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	if err := r.attachMedia(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) attachMedia(ctx context.Context, posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(posts))
	byID := make(map[int64]*models.Post, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
		byID[p.ID] = p
	}

	query := `
		SELECT pm.post_id, ma.id, ma.file_url, ma.file_type
		FROM post_media pm
		JOIN media_assets ma ON ma.id = pm.asset_id
		WHERE pm.post_id = ANY($1)
		ORDER BY pm.post_id, pm.display_order
	`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var postID int64
		var m models.MediaRef
		if err := rows.Scan(&postID, &m.AssetID, &m.URL, &m.MimeType); err != nil {
			slog.Info(err.Error())
			return err
		}
		if p, ok := byID[postID]; ok {
			p.MediaRefs = append(p.MediaRefs, m)
		}
	}
	return rows.Err()
}

func (r *postRepository) CheckByUserID(ctx context.Context, postID, userID int64) (bool, error) {
	query := "SELECT 1 FROM posts WHERE id = $1 AND user_id = $2"

	var result int
	err := r.db.QueryRowContext(ctx, query, postID, userID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

// UpdateStatus writes the status together with whichever optional fields are set.
func (r *postRepository) UpdateStatus(ctx context.Context, postID int64, status models.PostStatus, fields models.StatusFields) error {
	query := `
		UPDATE posts
		SET status = $1,
			last_error = NULLIF($2, ''),
			published_at = COALESCE($3, published_at),
			scheduled_for = COALESCE($4, scheduled_for),
			updated_at = $5
		WHERE id = $6
	`
	_, err := r.db.ExecContext(ctx, query, status, fields.LastError, nullTime(fields.PublishedAt),
		nullTime(fields.ScheduledFor), time.Now().UTC(), postID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// ClaimForPublishing moves the post to publishing only if it is still in from.
// A false result means another writer got there first.
func (r *postRepository) ClaimForPublishing(ctx context.Context, postID int64, from models.PostStatus) (bool, error) {
	query := `
		UPDATE posts
		SET status = $1,
			updated_at = $2
		WHERE id = $3 AND status = $4
	`
	result, err := r.db.ExecContext(ctx, query, models.PostStatusPublishing, time.Now().UTC(), postID, from)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected == 1, nil
}

// FailStalePublishing moves posts that were claimed before the given instant and
// never got a final status to failed, so that they can be resubmitted.
func (r *postRepository) FailStalePublishing(ctx context.Context, before time.Time, reason string) (int64, error) {
	query := `
		UPDATE posts
		SET status = $1,
			last_error = $2,
			updated_at = $3
		WHERE status = $4 AND updated_at < $5
	`
	result, err := r.db.ExecContext(ctx, query, models.PostStatusFailed, reason, time.Now().UTC(),
		models.PostStatusPublishing, before.UTC())
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return result.RowsAffected()
}

func (r *postRepository) Remove(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx, `DELETE FROM post_media WHERE post_id = $1`, id); err != nil {
		slog.Info(err.Error())
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id); err != nil {
		slog.Info(err.Error())
		return err
	}

	if err = tx.Commit(); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
