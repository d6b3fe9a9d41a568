package storage

import (
	"context"
	"fmt"
	"strings"

	config "github.com/maheshrc27/socialdeck/configs"
)

// ObjectStore keeps uploaded media and hands back the public URL platforms fetch it from.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Remove(ctx context.Context, key string) error
	PublicURL(key string) string
}

// New builds the store selected by STORAGE_BACKEND.
func New(ctx context.Context, cfg *config.Config) (ObjectStore, error) {
	switch strings.ToLower(cfg.StorageBackend) {
	case "", "r2":
		return NewR2Store(ctx, cfg.R2)
	case "minio":
		return NewMinioStore(ctx, cfg.Minio)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.StorageBackend)
	}
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
