// Package imagestore stores product images.
package imagestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/sannu-sannu/sannu-server/internal/apperrors"
)

// DefaultMaxBytes is the upload limit used when none is configured.
const DefaultMaxBytes = 2 << 20

// ErrInvalidPath is returned for paths that escape the store root.
var ErrInvalidPath = errors.New("invalid image path")

// allowedTypes maps sniffed MIME types to file extensions.
var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Store persists image bytes and hands back a relative path.
type Store interface {
	Put(ctx context.Context, dir string, data []byte) (string, error)
	Exists(ctx context.Context, p string) (bool, error)
	Delete(ctx context.Context, p string) error
	URL(p string) string
	List(ctx context.Context) ([]string, error)
}

// Validate checks size and content type and returns the sniffed MIME type.
func Validate(data []byte, maxBytes int64) (string, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if len(data) == 0 {
		return "", apperrors.Validation("image", "The image field is required.")
	}
	if int64(len(data)) > maxBytes {
		return "", apperrors.Validation("image",
			fmt.Sprintf("The image may not be greater than %d kilobytes.", maxBytes/1024))
	}

	mime := http.DetectContentType(data)
	if _, ok := allowedTypes[mime]; !ok {
		return "", apperrors.Validation("image", "The image must be a file of type: jpeg, png, gif, webp.")
	}
	return mime, nil
}

// LocalStore keeps images on the local filesystem.
type LocalStore struct {
	root    string
	baseURL string
}

// NewLocalStore creates the root directory if needed.
func NewLocalStore(root, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}
	return &LocalStore{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *LocalStore) resolve(p string) (string, error) {
	clean := path.Clean("/" + p)
	if clean == "/" || strings.Contains(p, "..") {
		return "", ErrInvalidPath
	}
	return filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

// Put writes data under dir with a random name and the extension of its type.
func (s *LocalStore) Put(ctx context.Context, dir string, data []byte) (string, error) {
	ext, ok := allowedTypes[http.DetectContentType(data)]
	if !ok {
		ext = ".bin"
	}

	rel := path.Join(dir, uuid.NewString()+ext)
	full, err := s.resolve(rel)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create image dir: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return rel, nil
}

// Exists reports whether p is stored
func (s *LocalStore) Exists(ctx context.Context, p string) (bool, error) {
	full, err := s.resolve(p)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(full)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

// Delete removes p. Deleting a missing file is not an error.
func (s *LocalStore) Delete(ctx context.Context, p string) error {
	full, err := s.resolve(p)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete image: %w", err)
	}
	return nil
}

// URL returns the public URL of p
func (s *LocalStore) URL(p string) string {
	if p == "" {
		return ""
	}
	return s.baseURL + "/" + strings.TrimPrefix(p, "/")
}

// List returns every stored path relative to the root, sorted.
func (s *LocalStore) List(ctx context.Context) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(s.root, func(full string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, full)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}
