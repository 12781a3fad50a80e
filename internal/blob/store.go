// Package blob stores uploaded solutions and their export-ready variants.
package blob

import (
	"context"
	"errors"
	"io"
	"time"
)

// Driver identifies a storage backend.
type Driver string

const (
	// DriverS3 is an S3 / MinIO compatible bucket.
	DriverS3 Driver = "s3"
	// DriverMemory keeps objects in process memory (tests, local runs).
	DriverMemory Driver = "memory"
)

// ErrNotFound indicates the key does not exist.
var ErrNotFound = errors.New("blob: not found")

// PutOptions carries optional object attributes.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// Info describes a stored object.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size_bytes"`
	ContentType  string            `json:"content_type,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
}

// Store is the minimal object storage surface. Put overwrites existing keys.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Delete(ctx context.Context, key string) (bool, error)
	Driver() Driver
}
