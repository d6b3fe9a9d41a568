package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/lib/pq"
)

type PostMediaRepository interface {
	Attach(ctx context.Context, tx *sql.Tx, postID int64, assetIDs []int64) error
}

type postMediaRepository struct {
	db *sql.DB
}

func NewPostMediaRepository(db *sql.DB) PostMediaRepository {
	return &postMediaRepository{db: db}
}

// Attach links assets to a post in the given order; the first asset becomes the cover.
func (r *postMediaRepository) Attach(ctx context.Context, tx *sql.Tx, postID int64, assetIDs []int64) error {
	if len(assetIDs) == 0 {
		return nil
	}

	query := `
		INSERT INTO post_media (post_id, asset_id, display_order)
		SELECT $1, a.asset_id, a.ord - 1
		FROM unnest($2::bigint[]) WITH ORDINALITY AS a(asset_id, ord)
	`
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, postID, pq.Array(assetIDs))
	} else {
		_, err = r.db.ExecContext(ctx, query, postID, pq.Array(assetIDs))
	}
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
