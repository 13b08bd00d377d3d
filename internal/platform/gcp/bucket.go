package gcp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"

	"github.com/yungbote/companion-backend/internal/platform/logger"
)

const storageScope = storage.ScopeReadWrite

// ImageBucket stores images users attach to chat messages.
type ImageBucket interface {
	Upload(ctx context.Context, key, contentType string, data []byte) error
	Download(ctx context.Context, key string) ([]byte, error)
	PublicURL(key string) string
	Close() error
}

type imageBucket struct {
	log    *logger.Logger
	client *storage.Client
	cfg    BucketConfig
}

func NewImageBucket(ctx context.Context, log *logger.Logger, cfg BucketConfig) (ImageBucket, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("missing env var CHAT_IMAGE_BUCKET")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Mode == StorageModeEmulator {
		_ = os.Setenv("STORAGE_EMULATOR_HOST", cfg.EmulatorHost)
	}
	client, err := storage.NewClient(ctx, cfg.clientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	l := log.With("service", "ImageBucket")
	l.Info("Chat image storage initialized", "mode", string(cfg.Mode), "bucket", cfg.Bucket)
	return &imageBucket{log: l, client: client, cfg: cfg}, nil
}

func (b *imageBucket) Upload(ctx context.Context, key, contentType string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	w := b.client.Bucket(b.cfg.Bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if w.ContentType == "" {
		w.ContentType = ContentTypeForKey(key)
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return nil
}

func (b *imageBucket) Download(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	r, err := b.client.Bucket(b.cfg.Bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open GCS object %q: %w", key, err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (b *imageBucket) PublicURL(key string) string {
	return publicURL(b.cfg, key)
}

func (b *imageBucket) Close() error {
	return b.client.Close()
}

func publicURL(cfg BucketConfig, key string) string {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	switch {
	case cfg.CDNDomain != "":
		return fmt.Sprintf("https://%s/%s", cfg.CDNDomain, key)
	case cfg.Mode == StorageModeEmulator:
		base := cfg.PublicBaseURL
		if base == "" {
			base = cfg.EmulatorHost
		}
		return fmt.Sprintf("%s/storage/v1/b/%s/o/%s?alt=media", base, url.PathEscape(cfg.Bucket), url.PathEscape(key))
	case cfg.PublicBaseURL != "":
		return fmt.Sprintf("%s/%s/%s", cfg.PublicBaseURL, cfg.Bucket, key)
	default:
		return fmt.Sprintf("https://storage.googleapis.com/%s/%s", cfg.Bucket, key)
	}
}

// ChatImageKey is the object key for an image attached to a turn.
func ChatImageKey(userID, turnID fmt.Stringer, contentType string) string {
	return fmt.Sprintf("chat/%s/%s%s", userID, turnID, extForContentType(contentType))
}

func ContentTypeForKey(key string) string {
	s := strings.ToLower(strings.TrimSpace(key))
	switch {
	case strings.HasSuffix(s, ".png"):
		return "image/png"
	case strings.HasSuffix(s, ".jpg"), strings.HasSuffix(s, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(s, ".webp"):
		return "image/webp"
	case strings.HasSuffix(s, ".gif"):
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}

func extForContentType(ct string) string {
	switch strings.ToLower(strings.TrimSpace(ct)) {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".jpg"
	}
}
