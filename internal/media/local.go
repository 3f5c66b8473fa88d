package media

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

// Local writes objects below Root and serves them at URLPrefix.
type Local struct {
	Root      string
	URLPrefix string
}

// NewLocal returns a Local storage rooted at root.
func NewLocal(root, urlPrefix string) *Local {
	return &Local{Root: root, URLPrefix: strings.TrimSuffix(urlPrefix, "/")}
}

func (l *Local) path(key string) (string, error) {
	key = strings.TrimPrefix(key, "/")
	p := filepath.Join(l.Root, filepath.FromSlash(key))
	rel, err := filepath.Rel(l.Root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("media: key %q escapes root", key)
	}
	return p, nil
}

// Put writes r to the key's file.  The file is written under a
// temporary name and renamed so readers never see a partial image.
func (l *Local) Put(_ context.Context, key string, r io.Reader, _ string, _ int64) (string, error) {
	p, err := l.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("media: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("media: create: %w", err)
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("media: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("media: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("media: rename: %w", err)
	}
	return l.URL(key), nil
}

// Delete removes the key's file.  A missing file is not an error.
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

// URL returns URLPrefix/key.
func (l *Local) URL(key string) string {
	return l.URLPrefix + "/" + strings.TrimPrefix(key, "/")
}
