// Package dataurl implements the encoded image representation shared by
// intake, generation, and the HTTP surface: a self-describing string of the
// form data:<media-type>;base64,<payload>.
package dataurl

import (
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Media types accepted by the generation model.
const (
	MediaTypeJPEG = "image/jpeg"
	MediaTypePNG  = "image/png"
	MediaTypeWebP = "image/webp"
)

// Image is an encoded image. The zero value means "no image".
type Image string

// ErrMalformed is returned by Parse for strings that are not base64 data URLs.
var ErrMalformed = errors.New("malformed data URL")

// prefixPattern matches the prefixes Payload knows how to strip.
var prefixPattern = regexp.MustCompile(`^data:image/(png|jpeg|jpg|webp);base64,`)

// Encode wraps raw bytes as a base64 data URL tagged with mediaType.
func Encode(mediaType string, data []byte) Image {
	return Image("data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data))
}

// IsZero reports whether the image is absent.
func (img Image) IsZero() bool {
	return img == ""
}

// String returns the encoded form.
func (img Image) String() string {
	return string(img)
}

// Parse splits a data URL into its declared media type and decoded bytes.
func Parse(img Image) (string, []byte, error) {
	s := string(img)
	if !strings.HasPrefix(s, "data:") {
		return "", nil, fmt.Errorf("%w: missing data: prefix", ErrMalformed)
	}
	header, payload, ok := strings.Cut(s[len("data:"):], ",")
	if !ok {
		return "", nil, fmt.Errorf("%w: missing payload separator", ErrMalformed)
	}
	mediaType, ok := strings.CutSuffix(header, ";base64")
	if !ok {
		return "", nil, fmt.Errorf("%w: payload is not base64", ErrMalformed)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return mediaType, data, nil
}

// MediaType returns the media type the generation model should be told about.
// Only PNG and WebP are recognised from the declared prefix; everything else,
// including untagged payloads, is treated as JPEG.
func MediaType(img Image) string {
	s := string(img)
	switch {
	case strings.HasPrefix(s, "data:"+MediaTypePNG):
		return MediaTypePNG
	case strings.HasPrefix(s, "data:"+MediaTypeWebP):
		return MediaTypeWebP
	default:
		return MediaTypeJPEG
	}
}

// Payload strips a recognised image prefix and returns the base64 payload.
// Strings without such a prefix are returned unchanged.
func Payload(img Image) string {
	return prefixPattern.ReplaceAllString(string(img), "")
}
