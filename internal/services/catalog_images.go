package services

import (
	"context"
	"mime/multipart"

	"go.uber.org/zap"

	"tradehub/internal/errs"
	"tradehub/internal/storage"
)

func saveImage(ctx context.Context, images storage.ImageStore, fh *multipart.FileHeader) (string, error) {
	if fh == nil {
		return "", nil
	}
	if images == nil {
		return "", errs.New(errs.ErrValidation, "image uploads are not enabled")
	}
	return images.Save(ctx, fh)
}

// removeImage deletes a stored image, logging failures.
func removeImage(ctx context.Context, images storage.ImageStore, path string) {
	if images == nil || path == "" {
		return
	}
	if err := images.Delete(ctx, path); err != nil {
		zap.L().Warn("failed to remove image", zap.String("path", path), zap.Error(err))
	}
}
