package session

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidTransition means the event is not accepted in the current view.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrStale means a timer or generation callback arrived for an epoch the
	// session has already moved past. The event is dropped.
	ErrStale = errors.New("stale event")

	// ErrEmptyImage is returned for ImageAccepted without image data.
	ErrEmptyImage = errors.New("image is empty")

	// ErrNoStyleSelected blocks generation until a style is chosen.
	ErrNoStyleSelected = errors.New("no style selected")

	// ErrEmptyCustomInstruction blocks generation with the custom style and no text.
	ErrEmptyCustomInstruction = errors.New("custom instruction is empty")

	// ErrCustomNotSelected rejects instruction edits while a preset is selected.
	ErrCustomNotSelected = errors.New("custom style is not selected")
)

// User-facing texts stored in Session.LastError.
const (
	MsgNoStyleSelected        = "Please choose a style first."
	MsgEmptyCustomInstruction = "Please enter a description for your custom style."
)

// IsValidation reports whether err is a user input problem rather than an
// out-of-order event.
func IsValidation(err error) bool {
	return errors.Is(err, ErrNoStyleSelected) ||
		errors.Is(err, ErrEmptyCustomInstruction) ||
		errors.Is(err, ErrCustomNotSelected) ||
		errors.Is(err, ErrEmptyImage)
}

// Transition applies ev to s and returns the next session and any effect the
// caller must run. It never blocks and never mutates s.
//
// On ErrInvalidTransition and ErrStale the returned session equals s. On
// validation errors the returned session may carry a LastError and should be
// kept.
func Transition(s Session, ev Event) (Session, Effect, error) {
	switch ev := ev.(type) {
	case Reset:
		return Session{View: Landing, Epoch: s.Epoch + 1, Version: s.Version}, nil, nil

	case ImageAccepted:
		if s.View != Landing {
			return s, nil, invalid(s, ev)
		}
		if ev.Image.IsZero() {
			return s, nil, ErrEmptyImage
		}
		next := s
		next.View = Uploading
		next.Source = ev.Image
		next.LastError = ""
		next.Epoch++
		return next, SettleUpload{Epoch: next.Epoch}, nil

	case UploadSettled:
		if ev.Epoch != s.Epoch {
			return s, nil, stale(s, ev, ev.Epoch)
		}
		if s.View != Uploading {
			return s, nil, invalid(s, ev)
		}
		next := s
		next.View = Editing
		return next, nil, nil

	case StyleChosen:
		if s.View != Editing {
			return s, nil, invalid(s, ev)
		}
		style := ev.Style
		next := s
		next.Style = &style
		next.LastError = ""
		return next, nil, nil

	case InstructionEdited:
		if s.View != Editing {
			return s, nil, invalid(s, ev)
		}
		if s.Style == nil || !s.Style.IsCustom() {
			return s, nil, ErrCustomNotSelected
		}
		next := s
		next.CustomInstruction = ev.Text
		next.LastError = ""
		return next, nil, nil

	case GenerateRequested:
		if s.View != Editing {
			return s, nil, invalid(s, ev)
		}
		if s.Style == nil {
			next := s
			next.LastError = MsgNoStyleSelected
			return next, nil, ErrNoStyleSelected
		}
		instruction := ResolveInstruction(s)
		if strings.TrimSpace(instruction) == "" {
			next := s
			next.LastError = MsgEmptyCustomInstruction
			return next, nil, ErrEmptyCustomInstruction
		}
		next := s
		next.View = Generating
		next.LastError = ""
		next.Result = ""
		next.Epoch++
		return next, StartGeneration{
			Epoch:       next.Epoch,
			Source:      next.Source,
			Instruction: instruction,
		}, nil

	case GenerationSucceeded:
		if ev.Epoch != s.Epoch {
			return s, nil, stale(s, ev, ev.Epoch)
		}
		if s.View != Generating {
			return s, nil, invalid(s, ev)
		}
		next := s
		next.View = Result
		next.Result = ev.Image
		return next, nil, nil

	case GenerationFailed:
		if ev.Epoch != s.Epoch {
			return s, nil, stale(s, ev, ev.Epoch)
		}
		if s.View != Generating {
			return s, nil, invalid(s, ev)
		}
		next := s
		next.View = Editing
		next.LastError = ev.Message
		return next, nil, nil

	case TryAnother:
		if s.View != Result {
			return s, nil, invalid(s, ev)
		}
		next := s
		next.View = Editing
		next.Result = ""
		next.LastError = ""
		return next, nil, nil

	case nil:
		return s, nil, fmt.Errorf("%w: nil event", ErrInvalidTransition)

	default:
		return s, nil, invalid(s, ev)
	}
}

func invalid(s Session, ev Event) error {
	return fmt.Errorf("%w: %s in %s", ErrInvalidTransition, ev.eventName(), s.View)
}

func stale(s Session, ev Event, epoch uint64) error {
	return fmt.Errorf("%w: %s for epoch %d, current %d", ErrStale, ev.eventName(), epoch, s.Epoch)
}
