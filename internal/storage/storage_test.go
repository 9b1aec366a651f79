package storage

import (
	"bytes"
	"context"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradehub/internal/errs"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

// fileHeader builds the *multipart.FileHeader a server would see for an upload.
func fileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })
	return form.File["image"][0]
}

func TestGenerateFilename(t *testing.T) {
	now := time.UnixMilli(1714550400123)
	name := GenerateFilename(now, ".png")
	assert.Regexp(t, `^1714550400123-\d{1,9}\.png$`, name)
}

func TestOpenImageRejectsNonImages(t *testing.T) {
	fh := fileHeader(t, "notes.png", []byte("just some text, not a picture"))
	_, err := OpenImage(fh, time.Now())
	require.ErrorIs(t, err, errs.ErrValidation)
	assert.Contains(t, errs.Fields(err), "image")
}

func TestOpenImageRejectsLargeFiles(t *testing.T) {
	content := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, MaxImageSize)...)
	fh := fileHeader(t, "big.png", content)
	_, err := OpenImage(fh, time.Now())
	require.ErrorIs(t, err, errs.ErrValidation)
	assert.Contains(t, errs.Fields(err)["image"], "5 MB")
}

func TestOpenImageUsesSniffedExtensionWhenMissing(t *testing.T) {
	fh := fileHeader(t, "upload", pngHeader)
	img, err := OpenImage(fh, time.Now())
	require.NoError(t, err)
	defer img.File.Close()
	assert.Equal(t, "image/png", img.ContentType)
	assert.True(t, strings.HasSuffix(img.Filename, ".png"))
}

func TestLocalImageStoreSaveAndDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalImageStore(dir, "/uploads")
	require.NoError(t, err)

	p, err := store.Save(context.Background(), fileHeader(t, "bag.PNG", pngHeader))
	require.NoError(t, err)
	assert.Regexp(t, `^/uploads/\d+-\d+\.png$`, p)

	onDisk := filepath.Join(dir, filepath.Base(p))
	data, err := os.ReadFile(onDisk)
	require.NoError(t, err)
	assert.Equal(t, pngHeader, data)

	require.NoError(t, store.Delete(context.Background(), p))
	_, err = os.Stat(onDisk)
	assert.True(t, os.IsNotExist(err))

	// Paths outside the upload prefix are ignored.
	assert.NoError(t, store.Delete(context.Background(), "/etc/passwd"))
}

func TestLocalImageStoreGeneratesUniqueNames(t *testing.T) {
	store, err := NewLocalImageStore(t.TempDir(), "/uploads")
	require.NoError(t, err)

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		p, err := store.Save(context.Background(), fileHeader(t, "bag.png", pngHeader))
		require.NoError(t, err)
		assert.False(t, seen[p], "duplicate name %s", p)
		seen[p] = true
	}
}

func TestOpenImageRejectsSVG(t *testing.T) {
	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg"><script>alert(1)</script></svg>`)
	_, err := OpenImage(fileHeader(t, "logo.svg", svg), time.Now())
	require.ErrorIs(t, err, errs.ErrValidation)
	assert.Contains(t, errs.Fields(err), "image")
}

func TestLocalImageStoreIgnoresClientExtension(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalImageStore(dir, "/uploads")
	require.NoError(t, err)

	content := append(append([]byte{}, pngHeader...), []byte("<script>alert(1)</script>")...)
	p, err := store.Save(context.Background(), fileHeader(t, "evil.html", content))
	require.NoError(t, err)
	assert.Regexp(t, `^/uploads/\d+-\d+\.png$`, p)
	assert.False(t, strings.HasSuffix(p, ".html"))

	_, err = os.Stat(filepath.Join(dir, filepath.Base(p)))
	assert.NoError(t, err)
}
