package gcp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/cozi7266/aieng/internal/pkg/logger"
)

type BucketCategory string

const (
	BucketCategoryImage BucketCategory = "images"
	BucketCategoryAudio BucketCategory = "audio"
	BucketCategorySong  BucketCategory = "songs"
)

type BucketConfig struct {
	Name        string
	CDNDomain   string
	EmulatorURL string
	Credentials Credentials
}

// BucketService stores generated artifacts in one bucket, one top-level folder per category.
type BucketService interface {
	// Upload writes data under category/key and returns its public URL.
	Upload(ctx context.Context, category BucketCategory, key string, data []byte) (string, error)
	ListKeys(ctx context.Context, prefix string, limit int) ([]string, error)
	PublicURL(category BucketCategory, key string) string
	Close() error
}

type bucketService struct {
	log           *logger.Logger
	storageClient *storage.Client
	cfg           BucketConfig
}

func NewBucketService(ctx context.Context, log *logger.Logger, cfg BucketConfig) (BucketService, error) {
	if strings.TrimSpace(cfg.Name) == "" {
		return nil, fmt.Errorf("missing env var GCS_BUCKET_NAME")
	}
	opts := cfg.Credentials.ClientOptions()
	if strings.TrimSpace(cfg.EmulatorURL) != "" {
		// the storage client reads STORAGE_EMULATOR_HOST itself; it only needs auth turned off
		opts = []option.ClientOption{option.WithoutAuthentication()}
	} else {
		opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
	}
	stClient, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return newBucketService(log, stClient, cfg), nil
}

func newBucketService(log *logger.Logger, c *storage.Client, cfg BucketConfig) *bucketService {
	return &bucketService{
		log:           log.With("service", "BucketService"),
		storageClient: c,
		cfg:           cfg,
	}
}

func (bs *bucketService) Close() error {
	if bs.storageClient == nil {
		return nil
	}
	return bs.storageClient.Close()
}

func objectName(category BucketCategory, key string) string {
	return string(category) + "/" + strings.TrimLeft(key, "/")
}

func (bs *bucketService) Upload(ctx context.Context, category BucketCategory, key string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("upload %s: empty payload", key)
	}
	name := objectName(category, key)
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := bs.storageClient.Bucket(bs.cfg.Name).Object(name).NewWriter(ctx)
	if ct := contentTypeForKey(key); ct != "" {
		w.ContentType = ct
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer: %w", err)
	}
	bs.log.Debug("uploaded object", "object", name, "bytes", len(data))
	return bs.PublicURL(category, key), nil
}

func contentTypeForKey(key string) string {
	s := strings.ToLower(strings.TrimSpace(key))
	switch {
	case strings.HasSuffix(s, ".png"):
		return "image/png"
	case strings.HasSuffix(s, ".jpg"), strings.HasSuffix(s, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(s, ".wav"):
		return "audio/wav"
	case strings.HasSuffix(s, ".mp3"):
		return "audio/mpeg"
	case strings.HasSuffix(s, ".ogg"):
		return "audio/ogg"
	case strings.HasSuffix(s, ".json"):
		return "application/json"
	default:
		return ""
	}
}

func (bs *bucketService) ListKeys(ctx context.Context, prefix string, limit int) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	it := bs.storageClient.Bucket(bs.cfg.Name).Objects(ctx, &storage.Query{Prefix: prefix})
	out := []string{}
	for limit <= 0 || len(out) < limit {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, attrs.Name)
	}
	return out, nil
}

func (bs *bucketService) PublicURL(category BucketCategory, key string) string {
	name := objectName(category, key)
	if bs.cfg.CDNDomain != "" {
		return fmt.Sprintf("https://%s/%s", strings.TrimSuffix(bs.cfg.CDNDomain, "/"), name)
	}
	if bs.cfg.EmulatorURL != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(bs.cfg.EmulatorURL, "/"), bs.cfg.Name, name)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bs.cfg.Name, name)
}
