package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	config "github.com/maheshrc27/socialdeck/configs"
	"github.com/minio/minio-go/v7"
	miniocreds "github.com/minio/minio-go/v7/pkg/credentials"
)

type minioStore struct {
	cfg    config.Minio
	client *minio.Client
}

// NewMinioStore connects to a self-hosted S3 server and creates the bucket when missing.
func NewMinioStore(ctx context.Context, cfg config.Minio) (ObjectStore, error) {
	endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "http://"), "https://")
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  miniocreds.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	s := &minioStore{cfg: cfg, client: client}
	if err := s.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *minioStore) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.BucketName)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if exists {
		return nil
	}
	return s.client.MakeBucket(ctx, s.cfg.BucketName, minio.MakeBucketOptions{})
}

func (s *minioStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.cfg.BucketName, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}
	return s.PublicURL(key), nil
}

func (s *minioStore) Remove(ctx context.Context, key string) error {
	err := s.client.RemoveObject(ctx, s.cfg.BucketName, key, minio.RemoveObjectOptions{})
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (s *minioStore) PublicURL(key string) string {
	if s.cfg.PublicURL != "" {
		return joinURL(s.cfg.PublicURL, key)
	}
	scheme := "http"
	if s.cfg.UseSSL {
		scheme = "https"
	}
	return joinURL(fmt.Sprintf("%s://%s/%s", scheme, s.client.EndpointURL().Host, s.cfg.BucketName), key)
}
