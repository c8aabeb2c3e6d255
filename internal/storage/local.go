package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Local stores documents as plain files in a single directory.
type Local struct {
	root string
}

// NewLocal creates the root directory if needed and returns a Local storage over it.
func NewLocal(root string) (*Local, error) {
	if root == "" {
		return nil, fmt.Errorf("document root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create document root: %w", err)
	}
	return &Local{root: root}, nil
}

var _ Storage = (*Local)(nil)

// Root returns the directory backing this storage.
func (l *Local) Root() string {
	return l.root
}

func (l *Local) path(key string) (string, error) {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) || filepath.Base(key) != key {
		return "", ErrInvalidKey
	}
	return filepath.Join(l.root, key), nil
}

// Put writes to a temp file in the root and renames it into place,
// so readers never observe a partially written document.
func (l *Local) Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error) {
	dst, err := l.path(key)
	if err != nil {
		return ObjectInfo{}, err
	}
	tmp, err := os.CreateTemp(l.root, ".put-*")
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	if _, err := io.Copy(tmp, contextReader{ctx: ctx, r: r}); err != nil {
		cleanup()
		return ObjectInfo{}, fmt.Errorf("write object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return ObjectInfo{}, fmt.Errorf("close object: %w", err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		_ = os.Remove(tmpName)
		return ObjectInfo{}, fmt.Errorf("rename object: %w", err)
	}

	info, err := l.Stat(ctx, key)
	if err != nil {
		return ObjectInfo{}, err
	}
	info.ContentType = opt.ContentType
	return info, nil
}

// Open opens the file for reading.
func (l *Local) Open(_ context.Context, key string) (Object, ObjectInfo, error) {
	p, err := l.path(key)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ObjectInfo{}, ErrObjectNotFound
		}
		return nil, ObjectInfo{}, err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, ObjectInfo{}, err
	}
	if !st.Mode().IsRegular() {
		_ = f.Close()
		return nil, ObjectInfo{}, ErrObjectNotFound
	}
	return f, fileInfo(key, st), nil
}

// Stat returns size and modification time of the file.
func (l *Local) Stat(_ context.Context, key string) (ObjectInfo, error) {
	p, err := l.path(key)
	if err != nil {
		return ObjectInfo{}, err
	}
	st, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ObjectInfo{}, ErrObjectNotFound
		}
		return ObjectInfo{}, err
	}
	if !st.Mode().IsRegular() {
		return ObjectInfo{}, ErrObjectNotFound
	}
	return fileInfo(key, st), nil
}

// Delete removes the file, ignoring files that are already gone.
func (l *Local) Delete(_ context.Context, key string) error {
	p, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func fileInfo(key string, st fs.FileInfo) ObjectInfo {
	return ObjectInfo{
		Key:          key,
		Size:         st.Size(),
		ContentType:  "application/pdf",
		LastModified: st.ModTime(),
	}
}

// contextReader stops a copy once ctx is cancelled.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
