package intake

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fpang/proshot/internal/dataurl"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func TestValidateNotAnImage(t *testing.T) {
	for _, mimeType := range []string{"application/pdf", "text/plain", "", "video/mp4", "imagex/png"} {
		t.Run(mimeType, func(t *testing.T) {
			_, err := Validate(File{
				Name:     "doc",
				MIMEType: mimeType,
				Size:     10,
				Data:     strings.NewReader("0123456789"),
			})
			var rej *RejectionError
			if !errors.As(err, &rej) {
				t.Fatalf("Validate() error = %v, want *RejectionError", err)
			}
			if rej.Reason != NotAnImage {
				t.Errorf("Reason = %v, want NotAnImage", rej.Reason)
			}
			if !errors.Is(err, ErrNotAnImage) {
				t.Error("errors.Is(err, ErrNotAnImage) = false")
			}
			if errors.Is(err, ErrTooLarge) {
				t.Error("errors.Is(err, ErrTooLarge) = true for NotAnImage")
			}
		})
	}
}

func TestValidateTooLargeDeclared(t *testing.T) {
	_, err := Validate(File{
		Name:     "huge.jpg",
		MIMEType: "image/jpeg",
		Size:     MaxBytes + 1,
		Data:     strings.NewReader("x"),
	})
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("Validate() error = %v, want ErrTooLarge", err)
	}
}

func TestValidateTooLargeActual(t *testing.T) {
	// Declared size lies; the bounded read still catches it.
	data := bytes.Repeat([]byte{0xff}, int(MaxBytes)+10)
	_, err := Validate(File{
		Name:     "liar.jpg",
		MIMEType: "image/jpeg",
		Size:     100,
		Data:     bytes.NewReader(data),
	})
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("Validate() error = %v, want ErrTooLarge", err)
	}
}

func TestValidateExactlyMaxBytes(t *testing.T) {
	data := bytes.Repeat([]byte{0x01}, int(MaxBytes))
	img, err := Validate(File{
		Name:     "edge.webp",
		MIMEType: "image/webp",
		Size:     MaxBytes,
		Data:     bytes.NewReader(data),
	})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if dataurl.MediaType(img) != dataurl.MediaTypeWebP {
		t.Errorf("media type = %q, want webp", dataurl.MediaType(img))
	}
}

func TestValidateEncodes(t *testing.T) {
	raw := pngBytes(t, 4, 3)
	img, err := Validate(File{
		Name:     "selfie.png",
		MIMEType: "image/png",
		Size:     int64(len(raw)),
		Data:     bytes.NewReader(raw),
	})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	mediaType, data, err := dataurl.Parse(img)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if mediaType != "image/png" {
		t.Errorf("media type = %q, want image/png", mediaType)
	}
	if !bytes.Equal(data, raw) {
		t.Error("encoded payload does not round-trip")
	}
}

func TestRejectionUserMessage(t *testing.T) {
	tooLarge := &RejectionError{Reason: TooLarge}
	if !strings.Contains(tooLarge.UserMessage(), "5MB") {
		t.Errorf("unexpected message %q", tooLarge.UserMessage())
	}
	notImage := &RejectionError{Reason: NotAnImage}
	if !strings.Contains(notImage.UserMessage(), "valid image") {
		t.Errorf("unexpected message %q", notImage.UserMessage())
	}
}

func TestInspectPNG(t *testing.T) {
	meta := Inspect(pngBytes(t, 7, 5))
	if meta.Format != "png" {
		t.Errorf("Format = %q, want png", meta.Format)
	}
	if meta.Width != 7 || meta.Height != 5 {
		t.Errorf("dimensions = %dx%d, want 7x5", meta.Width, meta.Height)
	}
	if meta.Camera() != "" {
		t.Errorf("Camera() = %q, want empty", meta.Camera())
	}
}

func TestFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Selfie.JPG")
	if err := os.WriteFile(path, []byte("jpeg-bytes"), 0o600); err != nil {
		t.Fatal(err)
	}

	f, closer, err := FromPath(path)
	if err != nil {
		t.Fatalf("FromPath() error = %v", err)
	}
	defer closer.Close()

	if f.MIMEType != "image/jpeg" {
		t.Errorf("MIMEType = %q, want image/jpeg", f.MIMEType)
	}
	if f.Size != int64(len("jpeg-bytes")) {
		t.Errorf("Size = %d", f.Size)
	}
	if f.Name != "Selfie.JPG" {
		t.Errorf("Name = %q", f.Name)
	}
}

func TestFromPathErrors(t *testing.T) {
	if _, _, err := FromPath(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, _, err := FromPath(t.TempDir()); err == nil {
		t.Error("expected error for directory")
	}
}

func TestMimeTypeForPath(t *testing.T) {
	tests := map[string]string{
		"a.jpeg": "image/jpeg",
		"a.png":  "image/png",
		"a.webp": "image/webp",
		"a.gif":  "image/gif",
		"a.zzz":  "application/octet-stream",
	}
	for path, want := range tests {
		if got := mimeTypeForPath(path); got != want {
			t.Errorf("mimeTypeForPath(%q) = %q, want %q", path, got, want)
		}
	}
}
