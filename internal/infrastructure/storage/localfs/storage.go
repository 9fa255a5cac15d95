package localfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Storage keeps meal images on local disk. Keys are slash-separated relative
// paths (user scoped, e.g. "user-1/meal-1.jpg"); Save resolves them to the
// URL clients fetch them under.
type Storage struct {
	basePath string
	baseURL  string
}

func New(basePath, baseURL string) (*Storage, error) {
	if basePath == "" {
		basePath = "./data/media"
	}
	if baseURL == "" {
		baseURL = "/media/meals"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Storage{basePath: basePath, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *Storage) Save(_ context.Context, key string, data io.Reader) (string, error) {
	fsPath, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(fsPath), 0o755); err != nil {
		return "", fmt.Errorf("create key dir: %w", err)
	}

	f, err := os.Create(fsPath)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, data); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return s.baseURL + "/" + path.Clean(key), nil
}

func (s *Storage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	fsPath, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(fsPath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	return f, nil
}

// resolve rejects keys that would escape the base directory.
func (s *Storage) resolve(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" {
		return "", fmt.Errorf("empty storage key")
	}
	return filepath.Join(s.basePath, filepath.FromSlash(clean)), nil
}
