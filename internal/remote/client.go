// Package remote reads book files from S3-compatible object storage.
package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	coreconfig "github.com/m3rciful/bookbot/core/config"
	"github.com/m3rciful/bookbot/core/logger"
	"github.com/m3rciful/bookbot/core/telegram/netutil"
)

// ErrNotFound is returned when the object does not exist.
var ErrNotFound = errors.New("remote object not found")

// Client talks to one bucket.
type Client struct {
	api        *minio.Client
	bucket     string
	publicBase string
	expiry     time.Duration
}

// New builds a client from configuration. It does not contact the server.
func New(cfg coreconfig.StorageConfig) (*Client, error) {
	api, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
		Transport: netutil.NewTransport(netutil.TransportOptions{
			ResponseHeaderTimeout: 15 * time.Second,
			MaxRetries:            2,
			Backoff:               300 * time.Millisecond,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("init storage client: %w", err)
	}
	return &Client{
		api:        api,
		bucket:     cfg.Bucket,
		publicBase: cfg.PublicBaseURL,
		expiry:     cfg.PresignExpiry,
	}, nil
}

// ObjectKey maps a catalog file path onto a bucket key. Leading slashes and
// the "disk:" scheme of older catalogs are dropped.
func ObjectKey(filePath string) string {
	key := strings.TrimPrefix(filePath, "disk:")
	return strings.TrimLeft(path.Clean("/"+key), "/")
}

// CacheName is the local file name used for the object behind filePath.
func CacheName(filePath string) string {
	return path.Base(ObjectKey(filePath))
}

// Ping checks that the bucket is reachable.
func (c *Client) Ping(ctx context.Context) error {
	ok, err := c.api.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if !ok {
		return fmt.Errorf("bucket %q does not exist", c.bucket)
	}
	return nil
}

// Stat returns the object size in bytes.
func (c *Client) Stat(ctx context.Context, filePath string) (int64, error) {
	info, err := c.api.StatObject(ctx, c.bucket, ObjectKey(filePath), minio.StatObjectOptions{})
	if err != nil {
		return 0, wrap("stat", err)
	}
	return info.Size, nil
}

// Download stores the object in dir under its base name and returns the local path.
func (c *Client) Download(ctx context.Context, filePath, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create cache dir: %w", err)
	}
	key := ObjectKey(filePath)
	local := filepath.Join(dir, CacheName(filePath))
	start := time.Now()
	if err := c.api.FGetObject(ctx, c.bucket, key, local, minio.GetObjectOptions{}); err != nil {
		return "", wrap("download", err)
	}
	logger.Debug(ctx, "remote", "object.download",
		slog.String("path", key),
		slog.Duration("duration", logger.Took(start)),
	)
	return local, nil
}

// EnsureExists fails with ErrNotFound when the object is missing. Nothing is
// made public here: links come from PublicURL, either under the public base
// URL or presigned, and presigning takes the place of publishing.
func (c *Client) EnsureExists(ctx context.Context, filePath string) error {
	_, err := c.Stat(ctx, filePath)
	return err
}

// PublicURL returns a download link for the object.
func (c *Client) PublicURL(ctx context.Context, filePath string) (string, error) {
	key := ObjectKey(filePath)
	if c.publicBase != "" {
		return c.publicBase + "/" + escapeKey(key), nil
	}
	params := url.Values{}
	params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", path.Base(key)))
	u, err := c.api.PresignedGetObject(ctx, c.bucket, key, c.expiry, params)
	if err != nil {
		return "", wrap("presign", err)
	}
	return u.String(), nil
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

func wrap(op string, err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == 404 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}
