package utils

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/nfnt/resize"
)

const (
	// MaxProductImages caps how many files a single product request may carry.
	MaxProductImages = 5
	// MaxImageBytes is the per-file size limit.
	MaxImageBytes = 5 << 20

	maxImageWidth = 1600
	jpegQuality   = 80
)

// ErrInvalidImage marks upload failures caused by the request rather than
// the server, so handlers can answer 400 instead of 500.
var ErrInvalidImage = errors.New("invalid image upload")

// EnsureDir creates the directory if it does not exist yet.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

// SaveProductImages validates and stores the uploaded files under dir and
// returns their public /uploads paths in upload order. JPEG and PNG files
// are downscaled to at most maxImageWidth and re-encoded as JPEG; other
// image types are stored as sent. All files are validated before anything
// is written.
func SaveProductImages(files []*multipart.FileHeader, dir string) ([]string, error) {
	if len(files) == 0 {
		return []string{}, nil
	}
	if len(files) > MaxProductImages {
		return nil, fmt.Errorf("%w: at most %d images per product", ErrInvalidImage, MaxProductImages)
	}
	for _, fh := range files {
		if fh.Size > MaxImageBytes {
			return nil, fmt.Errorf("%w: %s exceeds the %dMB limit", ErrInvalidImage, fh.Filename, MaxImageBytes>>20)
		}
		if !strings.HasPrefix(fh.Header.Get("Content-Type"), "image/") {
			return nil, fmt.Errorf("%w: %s is not an image", ErrInvalidImage, fh.Filename)
		}
	}

	paths := make([]string, 0, len(files))
	for _, fh := range files {
		name, err := saveImage(fh, dir)
		if err != nil {
			return nil, err
		}
		paths = append(paths, "/uploads/"+name)
	}
	return paths, nil
}

func saveImage(fh *multipart.FileHeader, dir string) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return "", fmt.Errorf("read upload %s: %w", fh.Filename, err)
	}

	switch fh.Header.Get("Content-Type") {
	case "image/jpeg", "image/png":
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return "", fmt.Errorf("%w: %s could not be decoded", ErrInvalidImage, fh.Filename)
		}
		if img.Bounds().Dx() > maxImageWidth {
			img = resize.Resize(maxImageWidth, 0, img, resize.Lanczos3)
		}
		name := uuid.New().String() + ".jpg"
		out, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			return "", fmt.Errorf("create image file: %w", err)
		}
		defer out.Close()
		if err := jpeg.Encode(out, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return "", fmt.Errorf("encode image %s: %w", fh.Filename, err)
		}
		return name, nil
	default:
		// gif, webp and friends survive as uploaded.
		ext := strings.ToLower(filepath.Ext(fh.Filename))
		if ext == "" {
			ext = ".img"
		}
		name := uuid.New().String() + ext
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return "", fmt.Errorf("write image file: %w", err)
		}
		return name, nil
	}
}
