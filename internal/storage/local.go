package storage

import (
	"context"
	"fmt"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

// LocalImageStore writes uploads into a directory served statically under URLPrefix.
type LocalImageStore struct {
	dir       string
	urlPrefix string
	now       func() time.Time
}

func NewLocalImageStore(dir, urlPrefix string) (*LocalImageStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir %s: %w", dir, err)
	}
	return &LocalImageStore{dir: dir, urlPrefix: strings.TrimRight(urlPrefix, "/"), now: time.Now}, nil
}

func (s *LocalImageStore) Save(_ context.Context, fh *multipart.FileHeader) (string, error) {
	img, err := OpenImage(fh, s.now())
	if err != nil {
		return "", err
	}
	img.File.Close()

	if err := fasthttp.SaveMultipartFile(fh, filepath.Join(s.dir, img.Filename)); err != nil {
		return "", fmt.Errorf("failed to save upload: %w", err)
	}
	return path.Join(s.urlPrefix, img.Filename), nil
}

// Delete removes a file previously returned by Save. Unknown paths are ignored.
func (s *LocalImageStore) Delete(_ context.Context, p string) error {
	if p == "" || !strings.HasPrefix(p, s.urlPrefix+"/") {
		return nil
	}
	name := filepath.Base(p)
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove upload %s: %w", name, err)
	}
	return nil
}
