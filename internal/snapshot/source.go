package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/kartikbazzad/bunbase/lookup/internal/records"
	"github.com/kartikbazzad/bunbase/lookup/internal/storage"
)

// Source loads the full record collection.
type Source interface {
	Load(ctx context.Context) ([]records.Record, error)
	Name() string
}

// FileSource reads a JSON array from disk. A missing file is an empty dataset.
type FileSource struct {
	Path string
}

// Name returns the file path.
func (s FileSource) Name() string { return s.Path }

// Load reads and decodes the file.
func (s FileSource) Load(ctx context.Context) ([]records.Record, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []records.Record{}, nil
		}
		return nil, fmt.Errorf("open %s: %w", s.Path, err)
	}
	defer f.Close()

	recs, err := records.DecodeRecords(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Path, err)
	}
	return recs, nil
}

// ObjectStore is the subset of the storage client used by ObjectSource.
type ObjectStore interface {
	GetObject(ctx context.Context, bucket, key string) (*storage.GetObjectResult, error)
	StatObject(ctx context.Context, bucket, key string) (*storage.ObjectInfo, error)
}

// ObjectSource reads a JSON array from an S3-compatible bucket. A missing
// object is an empty dataset.
type ObjectSource struct {
	Store  ObjectStore
	Bucket string
	Key    string
}

// Name returns the s3:// URL of the object.
func (s ObjectSource) Name() string { return "s3://" + s.Bucket + "/" + s.Key }

// Load downloads and decodes the object.
func (s ObjectSource) Load(ctx context.Context) ([]records.Record, error) {
	obj, err := s.Store.GetObject(ctx, s.Bucket, s.Key)
	if err != nil {
		if storage.IsNotFound(err) {
			return []records.Record{}, nil
		}
		return nil, fmt.Errorf("get %s: %w", s.Name(), err)
	}
	defer obj.Reader.Close()

	recs, err := records.DecodeRecords(obj.Reader)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Name(), err)
	}
	return recs, nil
}

// Version returns the object's ETag, used by the poller to detect changes.
func (s ObjectSource) Version(ctx context.Context) (string, error) {
	info, err := s.Store.StatObject(ctx, s.Bucket, s.Key)
	if err != nil {
		if storage.IsNotFound(err) {
			return "", nil
		}
		return "", err
	}
	return info.ETag, nil
}
