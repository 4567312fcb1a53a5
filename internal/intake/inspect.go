package intake

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"
	"time"

	"github.com/evanoberholster/imagemeta"
	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/webp"
)

// Metadata is best-effort information about an accepted upload. Zero values
// mean the field could not be determined.
type Metadata struct {
	Format      string
	Width       int
	Height      int
	CameraMake  string
	CameraModel string
	DateTaken   time.Time
}

// Camera returns "make model", or "" when neither is known.
func (m Metadata) Camera() string {
	return strings.TrimSpace(m.CameraMake + " " + m.CameraModel)
}

// Inspect decodes image dimensions and EXIF camera info from data. It never
// fails: anything it cannot read is left zero.
func Inspect(data []byte) (meta Metadata) {
	// Uploads are untrusted; a parser panic must not take down the session.
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Interface("panic", r).Msg("Image inspection panicked")
		}
	}()

	if cfg, format, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		meta.Format = format
		meta.Width = cfg.Width
		meta.Height = cfg.Height
	}

	// imagemeta auto-detects JPEG/HEIC/TIFF from the header and only reads
	// the metadata block.
	exifData, err := imagemeta.Decode(bytes.NewReader(data))
	if err != nil {
		return meta
	}
	meta.CameraMake = strings.TrimSpace(exifData.Make)
	meta.CameraModel = strings.TrimSpace(exifData.Model)
	if t := exifData.DateTimeOriginal(); !t.IsZero() {
		meta.DateTaken = t
	} else if t := exifData.CreateDate(); !t.IsZero() {
		meta.DateTaken = t
	}
	return meta
}
