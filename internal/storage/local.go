package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"docregistry/internal/config"
)

// localBackend implements Backend on the local filesystem under a fixed root.
// Writes go through a temp file + atomic rename so a failed upload never
// leaves a partial object at the destination key.
type localBackend struct {
	root    string
	baseURL string
}

// NewLocal creates a local filesystem backend rooted at cfg.Root,
// creating the directory if needed.
func NewLocal(cfg config.LocalStorageConfig) (Backend, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("local storage root is required")
	}
	if err := os.MkdirAll(cfg.Root, 0o750); err != nil {
		return nil, fmt.Errorf("create storage root %q: %w", cfg.Root, err)
	}
	// Resolve to an absolute path so all subsequent filepath.Rel checks are stable.
	absRoot, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	return &localBackend{root: absRoot, baseURL: strings.TrimRight(cfg.BaseURL, "/")}, nil
}

// abs resolves a logical key to a concrete filesystem path and verifies it
// still lives under the root.
func (l *localBackend) abs(key string) (string, error) {
	joined := filepath.Join(l.root, filepath.Clean(filepath.FromSlash(key)))
	rel, err := filepath.Rel(l.root, joined)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("key %q escapes storage root", key)
	}
	return joined, nil
}

// Put streams r to key using a temp-file + atomic rename.
func (l *localBackend) Put(ctx context.Context, key string, r io.Reader, opt PutOptions) (ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, err
	}
	dest, err := l.abs(key)
	if err != nil {
		return ObjectInfo{}, err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return ObjectInfo{}, fmt.Errorf("mkdir %q: %w", filepath.Dir(dest), err)
	}

	tmp := dest + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("open tmp %q: %w", tmp, err)
	}

	n, werr := io.Copy(f, r)
	cerr := f.Close()

	if werr != nil {
		os.Remove(tmp) //nolint:errcheck
		return ObjectInfo{}, fmt.Errorf("stream write: %w", werr)
	}
	if cerr != nil {
		os.Remove(tmp) //nolint:errcheck
		return ObjectInfo{}, fmt.Errorf("flush: %w", cerr)
	}

	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp) //nolint:errcheck
		return ObjectInfo{}, fmt.Errorf("rename to %q: %w", dest, err)
	}
	return ObjectInfo{
		Key:          key,
		Size:         n,
		ContentType:  opt.ContentType,
		LastModified: time.Now(),
	}, nil
}

// Exists reports whether key exists under the root.
func (l *localBackend) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	abs, err := l.abs(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(abs)
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

// Delete removes key. Silently succeeds on ENOENT.
func (l *localBackend) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	abs, err := l.abs(key)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// URL joins the configured public base URL with the key. Local files are
// served by a fronting web server, so no expiry applies.
func (l *localBackend) URL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if _, err := l.abs(key); err != nil {
		return "", err
	}
	escaped := (&url.URL{Path: "/" + strings.TrimLeft(key, "/")}).EscapedPath()
	return l.baseURL + escaped, nil
}
