package session

import (
	"context"

	"github.com/fpang/proshot/internal/dataurl"
	"github.com/fpang/proshot/internal/styles"
)

// GenerationError carries the user-facing message of a failed attempt.
type GenerationError struct {
	Message string
}

func (e *GenerationError) Error() string {
	return e.Message
}

// Drive walks a fresh machine from LANDING to RESULT without a browser: it
// accepts img, waits out the upload delay, selects style and generates.
// instruction is only sent when style is the custom preset.
//
// Validation failures are returned as the session errors. A failed generation
// returns *GenerationError with the session back in EDITING.
func Drive(ctx context.Context, m *Machine, img dataurl.Image, style styles.Style, instruction string) (Session, error) {
	s, err := m.Dispatch(ImageAccepted{Image: img})
	if err != nil {
		return s, err
	}
	if s, err = m.WaitFor(ctx, func(s Session) bool { return s.View == Editing }); err != nil {
		return s, err
	}

	if s, err = m.Dispatch(StyleChosen{Style: style}); err != nil {
		return s, err
	}
	if style.IsCustom() {
		if s, err = m.Dispatch(InstructionEdited{Text: instruction}); err != nil {
			return s, err
		}
	}

	if s, err = m.Dispatch(GenerateRequested{}); err != nil {
		return s, err
	}
	epoch := s.Epoch
	s, err = m.WaitFor(ctx, func(s Session) bool {
		return s.Epoch != epoch || s.View != Generating
	})
	if err != nil {
		return s, err
	}
	if s.View != Result {
		return s, &GenerationError{Message: s.LastError}
	}
	return s, nil
}
