package web

import (
	"context"
	"errors"

	"github.com/ncruces/zenity"
)

// ErrPickCanceled is returned when the user closes the file dialog.
var ErrPickCanceled = errors.New("file selection canceled")

// Picker asks the local user for an image file and returns its path.
type Picker interface {
	PickImage(ctx context.Context) (string, error)
}

// ZenityPicker opens the operating system's native file dialog. It only
// makes sense when the server runs on the user's own machine.
type ZenityPicker struct{}

// PickImage shows a single-file dialog filtered to supported image types.
func (ZenityPicker) PickImage(ctx context.Context) (string, error) {
	path, err := zenity.SelectFile(
		zenity.Context(ctx),
		zenity.Title("Choose a photo for your headshot"),
		zenity.FileFilters{
			{
				Name:     "Images",
				Patterns: []string{"*.jpg", "*.jpeg", "*.png", "*.webp"},
			},
		},
	)
	if errors.Is(err, zenity.ErrCanceled) {
		return "", ErrPickCanceled
	}
	return path, err
}
