package dataurl

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodeParse(t *testing.T) {
	raw := []byte{0x89, 'P', 'N', 'G', 0x00, 0xff}
	img := Encode(MediaTypePNG, raw)

	if got := img.String()[:22]; got != "data:image/png;base64," {
		t.Fatalf("unexpected prefix %q", got)
	}

	mediaType, data, err := Parse(img)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if mediaType != MediaTypePNG {
		t.Errorf("media type = %q, want %q", mediaType, MediaTypePNG)
	}
	if !bytes.Equal(data, raw) {
		t.Errorf("data = %v, want %v", data, raw)
	}
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name string
		in   Image
	}{
		{"no prefix", "aGVsbG8="},
		{"no comma", "data:image/png;base64"},
		{"not base64 marker", "data:image/png,aGVsbG8="},
		{"bad payload", "data:image/png;base64,!!!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Parse(tt.in)
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("Parse(%q) error = %v, want ErrMalformed", tt.in, err)
			}
		})
	}
}

func TestMediaType(t *testing.T) {
	tests := []struct {
		in   Image
		want string
	}{
		{"data:image/jpeg;base64,AAAA", MediaTypeJPEG},
		{"data:image/jpg;base64,AAAA", MediaTypeJPEG},
		{"data:image/png;base64,AAAA", MediaTypePNG},
		{"data:image/webp;base64,AAAA", MediaTypeWebP},
		{"data:image/gif;base64,AAAA", MediaTypeJPEG},
		{"AAAA", MediaTypeJPEG},
		{"", MediaTypeJPEG},
	}
	for _, tt := range tests {
		if got := MediaType(tt.in); got != tt.want {
			t.Errorf("MediaType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPayload(t *testing.T) {
	tests := []struct {
		in   Image
		want string
	}{
		{"data:image/jpeg;base64,AAAA", "AAAA"},
		{"data:image/jpg;base64,AAAA", "AAAA"},
		{"data:image/png;base64,BBBB", "BBBB"},
		{"data:image/webp;base64,CCCC", "CCCC"},
		{"DDDD", "DDDD"},
	}
	for _, tt := range tests {
		if got := Payload(tt.in); got != tt.want {
			t.Errorf("Payload(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsZero(t *testing.T) {
	var img Image
	if !img.IsZero() {
		t.Error("zero Image should report IsZero")
	}
	if Encode(MediaTypeJPEG, []byte("x")).IsZero() {
		t.Error("encoded Image should not report IsZero")
	}
}
