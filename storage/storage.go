// Package storage is the write-once byte store behind run artifacts: clone
// output and raw uploads. Backends are the local filesystem and any
// S3-compatible object store.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/maastricht-university/speakidol/config"
)

// ErrExists is returned by Put when the name is already taken.
var ErrExists = errors.New("storage: object already exists")

// FileStore is the write side of a file-oriented store: enough for Put.
//
// Paths are forward-slash separated and relative to the store root.
// Implementations must be safe for concurrent use.
type FileStore interface {
	// Write opens the named file for writing, truncating it if present.
	// Parent directories are created automatically.
	// The caller must close the returned WriteCloser to flush data.
	Write(ctx context.Context, path string) (io.WriteCloser, error)

	// Exists reports whether the named file exists.
	Exists(ctx context.Context, path string) (bool, error)

	// Locate returns the retrieval locator for path: a filesystem path or
	// an s3:// URL.
	Locate(path string) string
}

// Put stores data under name and returns its locator. Objects are written
// once; an existing name fails with ErrExists.
func Put(ctx context.Context, fs FileStore, name string, data []byte) (string, error) {
	ok, err := fs.Exists(ctx, name)
	if err != nil {
		return "", fmt.Errorf("storage: put %s: %w", name, err)
	}
	if ok {
		return "", fmt.Errorf("storage: put %s: %w", name, ErrExists)
	}
	w, err := fs.Write(ctx, name)
	if err != nil {
		return "", fmt.Errorf("storage: put %s: %w", name, err)
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("storage: put %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("storage: put %s: %w", name, err)
	}
	return fs.Locate(name), nil
}

// Open builds the backend named by cfg.Backend.
func Open(ctx context.Context, cfg config.Storage) (FileStore, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "local":
		return NewLocal(cfg.Root)
	case "s3":
		if cfg.Bucket == "" {
			return nil, errors.New("storage: storage.bucket is required for s3")
		}
		return NewS3(newS3Client(ctx, cfg), cfg.Bucket, cfg.Prefix), nil
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", cfg.Backend)
	}
}
