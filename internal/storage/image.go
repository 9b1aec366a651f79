package storage

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"mime/multipart"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"tradehub/internal/errs"
)

// MaxImageSize is the largest accepted upload, in bytes.
const MaxImageSize = 5 << 20

// ImageStore persists uploaded catalog images and returns the path clients use to fetch them.
type ImageStore interface {
	Save(ctx context.Context, file *multipart.FileHeader) (string, error)
	Delete(ctx context.Context, path string) error
}

// allowedImageTypes are the raster formats served back to browsers as-is.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// Image is an opened upload that passed validation.
type Image struct {
	File        multipart.File
	Filename    string
	ContentType string
	Size        int64
}

// OpenImage validates fh and opens it for reading. The caller closes Image.File.
func OpenImage(fh *multipart.FileHeader, now time.Time) (*Image, error) {
	if fh.Size > MaxImageSize {
		return nil, errs.Validation("Validation failed", map[string]string{
			"image": fmt.Sprintf("image must not exceed %d MB", MaxImageSize>>20),
		})
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	mtype, err := mimetype.DetectReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to sniff upload: %w", err)
	}
	if !allowedImageTypes[mtype.String()] {
		f.Close()
		return nil, errs.Validation("Validation failed", map[string]string{
			"image": "only jpeg, png, webp or gif images are allowed",
		})
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to rewind upload: %w", err)
	}

	// The stored name takes its extension from the sniffed type, never the client.
	return &Image{
		File:        f,
		Filename:    GenerateFilename(now, mtype.Extension()),
		ContentType: mtype.String(),
		Size:        fh.Size,
	}, nil
}

// GenerateFilename returns "<epoch-ms>-<random-int><ext>".
func GenerateFilename(now time.Time, ext string) string {
	return fmt.Sprintf("%d-%d%s", now.UnixMilli(), rand.Int64N(1_000_000_000), ext)
}
