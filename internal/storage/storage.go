package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// Package storage is the document root: the place stored PDFs live.
// Keys are bare file names; implementations reject anything containing a path separator.

var (
	// ErrObjectNotFound is returned by Open and Stat when the key does not exist.
	ErrObjectNotFound = errors.New("object not found")
	// ErrInvalidKey is returned for empty keys or keys that would escape the root.
	ErrInvalidKey = errors.New("invalid object key")
)

// PutObjectOptions define optional parameters for uploading objects.
// Size should be the exact number of bytes if known; if unknown, set to -1 and the implementation
// will buffer/chunk as supported by the backend.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about an object in storage.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// Object is a seekable stream over a stored file. Seeking is what makes range requests cheap.
type Object interface {
	io.ReadSeekCloser
}

// Storage is the document root abstraction shared by the local-disk and S3-compatible backends.
type Storage interface {
	// Put stores the content of r under key, replacing any existing object.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Open returns a seekable reader over the object alongside its info.
	Open(ctx context.Context, key string) (Object, ObjectInfo, error)
	// Stat returns object info without opening the content.
	Stat(ctx context.Context, key string) (ObjectInfo, error)
	// Delete removes an object by key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
