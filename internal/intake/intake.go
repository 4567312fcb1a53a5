// Package intake validates user-supplied images and converts them into the
// encoded form used for preview and transmission.
package intake

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fpang/proshot/internal/dataurl"
)

// MaxBytes is the upload size ceiling (5 MiB).
const MaxBytes int64 = 5 * 1024 * 1024

// Reason identifies why an upload was rejected.
type Reason int

const (
	// NotAnImage means the declared MIME type does not start with image/.
	NotAnImage Reason = iota
	// TooLarge means the upload exceeds MaxBytes.
	TooLarge
)

func (r Reason) String() string {
	switch r {
	case NotAnImage:
		return "not_an_image"
	case TooLarge:
		return "too_large"
	default:
		return "unknown"
	}
}

// Sentinel errors matched by RejectionError.Is.
var (
	ErrNotAnImage = errors.New("not an image")
	ErrTooLarge   = errors.New("image too large")
)

// RejectionError is returned by Validate when an upload fails a guard.
type RejectionError struct {
	Reason   Reason
	MIMEType string
	Size     int64
}

func (e *RejectionError) Error() string {
	switch e.Reason {
	case NotAnImage:
		return fmt.Sprintf("upload rejected: %q is not an image type", e.MIMEType)
	case TooLarge:
		return fmt.Sprintf("upload rejected: %d bytes exceeds %d byte limit", e.Size, MaxBytes)
	default:
		return "upload rejected"
	}
}

// Is lets errors.Is match the Reason sentinels.
func (e *RejectionError) Is(target error) bool {
	switch target {
	case ErrNotAnImage:
		return e.Reason == NotAnImage
	case ErrTooLarge:
		return e.Reason == TooLarge
	}
	return false
}

// UserMessage is the text shown next to the upload control.
func (e *RejectionError) UserMessage() string {
	if e.Reason == TooLarge {
		return "File size is too large. Please upload an image under 5MB."
	}
	return "Please upload a valid image file (JPEG, PNG, WebP)."
}

// File is a user-supplied upload.
type File struct {
	Name     string
	MIMEType string
	Size     int64
	Data     io.Reader
}

// Validate checks the declared type and size of f, reads its bytes, and
// returns them as an encoded image.
func Validate(f File) (dataurl.Image, error) {
	mimeType := strings.ToLower(strings.TrimSpace(f.MIMEType))
	if !strings.HasPrefix(mimeType, "image/") {
		return "", &RejectionError{Reason: NotAnImage, MIMEType: f.MIMEType, Size: f.Size}
	}
	if f.Size > MaxBytes {
		return "", &RejectionError{Reason: TooLarge, MIMEType: f.MIMEType, Size: f.Size}
	}
	if f.Data == nil {
		return "", fmt.Errorf("upload %q has no data", f.Name)
	}

	// Read one byte past the ceiling so a wrong Size cannot sneak through.
	data, err := io.ReadAll(io.LimitReader(f.Data, MaxBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > MaxBytes {
		return "", &RejectionError{Reason: TooLarge, MIMEType: f.MIMEType, Size: int64(len(data))}
	}

	meta := Inspect(data)
	log.Debug().
		Str("name", f.Name).
		Str("mime_type", mimeType).
		Int("bytes", len(data)).
		Int("width", meta.Width).
		Int("height", meta.Height).
		Str("camera", meta.Camera()).
		Msg("Upload accepted")

	return dataurl.Encode(mimeType, data), nil
}

// FromPath opens a local file as an upload. The caller must close the
// returned io.Closer once the File has been validated.
func FromPath(path string) (File, io.Closer, error) {
	fh, err := os.Open(path)
	if err != nil {
		return File{}, nil, fmt.Errorf("failed to open file: %w", err)
	}
	info, err := fh.Stat()
	if err != nil {
		fh.Close()
		return File{}, nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		fh.Close()
		return File{}, nil, fmt.Errorf("%s is a directory", path)
	}

	return File{
		Name:     filepath.Base(path),
		MIMEType: mimeTypeForPath(path),
		Size:     info.Size(),
		Data:     fh,
	}, fh, nil
}

// mimeTypeForPath resolves a MIME type from the file extension.
func mimeTypeForPath(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".jpg", ".jpeg":
		return dataurl.MediaTypeJPEG
	case ".png":
		return dataurl.MediaTypePNG
	case ".webp":
		return dataurl.MediaTypeWebP
	}
	if t := mime.TypeByExtension(ext); t != "" {
		mediaType, _, _ := strings.Cut(t, ";")
		return mediaType
	}
	return "application/octet-stream"
}
