package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/maheshrc27/socialdeck/internal/models"
)

type PostingHistoryRepository interface {
	Create(ctx context.Context, ph *models.PostingHistory) (int64, error)
	ListByPostID(ctx context.Context, postID int64) ([]*models.PostingHistory, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.PostingHistory, error)
}

type postingHistoryRepository struct {
	db *sql.DB
}

func NewPostingHistoryRepository(db *sql.DB) PostingHistoryRepository {
	return &postingHistoryRepository{db: db}
}

const postingHistoryColumns = `id, user_id, post_id, COALESCE(account_id, 0), platform, success,
	COALESCE(external_id, ''), COALESCE(error_message, ''), created_at`

func (r *postingHistoryRepository) Create(ctx context.Context, ph *models.PostingHistory) (int64, error) {
	query := `
		INSERT INTO posting_history (user_id, post_id, account_id, platform, success, external_id, error_message)
		VALUES ($1, $2, NULLIF($3, 0), $4, $5, NULLIF($6, ''), NULLIF($7, ''))
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, ph.UserID, ph.PostID, ph.AccountID, ph.Platform, ph.Success,
		ph.ExternalID, ph.ErrorMessage).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *postingHistoryRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.PostingHistory, error) {
	query := `SELECT ` + postingHistoryColumns + ` FROM posting_history WHERE post_id = $1 ORDER BY created_at DESC, id DESC`
	return r.list(ctx, query, postID)
}

func (r *postingHistoryRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.PostingHistory, error) {
	query := `SELECT ` + postingHistoryColumns + ` FROM posting_history WHERE user_id = $1 ORDER BY created_at DESC, id DESC`
	return r.list(ctx, query, userID)
}

func (r *postingHistoryRepository) list(ctx context.Context, query string, arg int64) ([]*models.PostingHistory, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var phs []*models.PostingHistory
	for rows.Next() {
		var ph models.PostingHistory
		err := rows.Scan(&ph.ID, &ph.UserID, &ph.PostID, &ph.AccountID, &ph.Platform, &ph.Success,
			&ph.ExternalID, &ph.ErrorMessage, &ph.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		phs = append(phs, &ph)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return phs, nil
}
