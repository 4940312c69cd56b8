// Package core defines the storage abstraction export destinations implement.
package core

import (
	"context"
	"errors"
	"io"
	"time"
)

// Driver identifies a concrete destination backend.
type Driver string

const (
	// DriverFilesystem writes into a local directory, normally the user's documents folder.
	DriverFilesystem Driver = "fs"
	// DriverS3 writes to an S3 / MinIO compatible bucket.
	DriverS3 Driver = "s3"
	// DriverMemory keeps objects in process memory (tests).
	DriverMemory Driver = "memory"
)

// PutOptions specifies optional parameters for Put.
type PutOptions struct {
	ContentType string            // MIME type, optional
	Metadata    map[string]string // small flat key-value metadata; the fs driver drops it
	// Overwrite replaces an existing object. Without it Put fails with ErrExists.
	Overwrite bool
}

// Info describes a stored object.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size_bytes"`
	ContentType  string            `json:"content_type,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
	// Location is where a person would find the object (a file path or s3:// URL).
	Location string `json:"location,omitempty"`
	// Replaced reports that Put overwrote an existing object.
	Replaced bool `json:"replaced,omitempty"`
}

// Store is a minimal S3-like destination.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Head(ctx context.Context, key string) (Info, error)
	// Delete returns (false, nil) when nothing was stored under key.
	Delete(ctx context.Context, key string) (bool, error)
	// List returns objects whose key has prefix, ordered by key.
	List(ctx context.Context, prefix string) ([]Info, error)
	Driver() Driver
}

var (
	// ErrExists is returned by Put without Overwrite when key is taken.
	ErrExists = errors.New("blobstore: object already exists")
	// ErrNotFound is returned by Get and Head for missing keys.
	ErrNotFound = errors.New("blobstore: object not found")
)

// CloneMetadata copies a metadata map; nil stays nil.
func CloneMetadata(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
