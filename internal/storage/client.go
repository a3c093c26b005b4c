package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Client wraps MinIO for reading dataset snapshots from an S3-compatible bucket.
type Client struct {
	mc      *minio.Client
	enabled bool
}

// Config holds MinIO connection settings.
type Config struct {
	Endpoint        string `mapstructure:"endpoint"` // e.g. "minio:9000" or "localhost:9000"
	AccessKeyID     string `mapstructure:"accesskeyid"`
	SecretAccessKey string `mapstructure:"secretaccesskey"`
	UseSSL          bool   `mapstructure:"usessl"`
}

// NewClient creates a storage client. If config has empty Endpoint, the client is disabled (all ops return ErrDisabled).
func NewClient(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return &Client{enabled: false}, nil
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return &Client{mc: mc, enabled: true}, nil
}

// ErrDisabled is returned when storage is not configured.
var ErrDisabled = errors.New("storage service not configured")

// ObjectInfo is the metadata needed to detect snapshot changes.
type ObjectInfo struct {
	Key          string    `json:"key"`
	ETag         string    `json:"etag"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// StatObject returns metadata for bucket/key.
func (c *Client) StatObject(ctx context.Context, bucket, key string) (*ObjectInfo, error) {
	if !c.enabled {
		return nil, ErrDisabled
	}
	info, err := c.mc.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return nil, err
	}
	return &ObjectInfo{
		Key:          info.Key,
		ETag:         info.ETag,
		Size:         info.Size,
		LastModified: info.LastModified,
	}, nil
}

// GetObjectResult holds the reader and metadata for a downloaded object.
type GetObjectResult struct {
	Reader io.ReadCloser
	Info   ObjectInfo
}

// GetObject opens bucket/key for reading. The caller closes Reader.
func (c *Client) GetObject(ctx context.Context, bucket, key string) (*GetObjectResult, error) {
	if !c.enabled {
		return nil, ErrDisabled
	}
	obj, err := c.mc.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, err
	}
	return &GetObjectResult{
		Reader: obj,
		Info: ObjectInfo{
			Key:          info.Key,
			ETag:         info.ETag,
			Size:         info.Size,
			LastModified: info.LastModified,
		},
	}, nil
}

// IsNotFound reports whether err means the object or bucket does not exist.
func IsNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket"
}
