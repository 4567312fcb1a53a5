// Package session holds the headshot editor's state machine: a pure
// Transition function over Session values, a Machine that runs its effects,
// and a Store of live machines keyed by session id.
package session

import (
	"fmt"
	"strings"

	"github.com/fpang/proshot/internal/dataurl"
	"github.com/fpang/proshot/internal/styles"
)

// View is the screen the session is currently on.
type View int

const (
	Landing View = iota
	Uploading
	Editing
	Generating
	Result
)

var viewNames = [...]string{"LANDING", "UPLOADING", "EDITING", "GENERATING", "RESULT"}

func (v View) String() string {
	if v < 0 || int(v) >= len(viewNames) {
		return fmt.Sprintf("View(%d)", int(v))
	}
	return viewNames[v]
}

// MarshalText encodes the view by name so JSON clients see "EDITING" etc.
func (v View) MarshalText() ([]byte, error) {
	if v < 0 || int(v) >= len(viewNames) {
		return nil, fmt.Errorf("unknown view %d", int(v))
	}
	return []byte(viewNames[v]), nil
}

func (v *View) UnmarshalText(text []byte) error {
	name := strings.ToUpper(string(text))
	for i, n := range viewNames {
		if n == name {
			*v = View(i)
			return nil
		}
	}
	return fmt.Errorf("unknown view %q", text)
}

// Session is the full state of one editing session. Values are copied in and
// out of the Machine; nothing outside Transition mutates one in place.
type Session struct {
	View              View          `json:"view"`
	Source            dataurl.Image `json:"sourceImage,omitempty"`
	Style             *styles.Style `json:"selectedStyle,omitempty"`
	CustomInstruction string        `json:"customInstruction,omitempty"`
	Result            dataurl.Image `json:"resultImage,omitempty"`
	LastError         string        `json:"lastError,omitempty"`

	// Epoch identifies the current upload or generation attempt. Timer and
	// generation callbacks carry the epoch they started under and are
	// discarded when it no longer matches.
	Epoch uint64 `json:"epoch"`
	// Version increments on every applied change; clients long-poll on it.
	Version uint64 `json:"version"`
}

// HasResult reports whether a generated image is available for download.
func (s Session) HasResult() bool {
	return s.View == Result && !s.Result.IsZero()
}

// ResolveInstruction returns the text sent to the model: the preset's fixed
// instruction, or the user's text verbatim when the custom style is chosen.
func ResolveInstruction(s Session) string {
	if s.Style == nil {
		return ""
	}
	if s.Style.IsCustom() {
		return s.CustomInstruction
	}
	return s.Style.Instruction
}

// Event is an input to Transition.
type Event interface {
	eventName() string
}

// ImageAccepted carries an image that already passed intake validation.
type ImageAccepted struct{ Image dataurl.Image }

// UploadSettled fires when the cosmetic upload delay for Epoch elapses.
type UploadSettled struct{ Epoch uint64 }

// StyleChosen selects a preset.
type StyleChosen struct{ Style styles.Style }

// InstructionEdited replaces the custom instruction text.
type InstructionEdited struct{ Text string }

// GenerateRequested asks for a new headshot from the current image and style.
type GenerateRequested struct{}

// GenerationSucceeded delivers the model's image for the attempt Epoch.
type GenerationSucceeded struct {
	Epoch uint64
	Image dataurl.Image
}

// GenerationFailed delivers a user-facing failure message for the attempt Epoch.
type GenerationFailed struct {
	Epoch   uint64
	Message string
}

// TryAnother leaves the result screen to pick a different style.
type TryAnother struct{}

// Reset discards everything and returns to the landing screen.
type Reset struct{}

func (ImageAccepted) eventName() string       { return "image_accepted" }
func (UploadSettled) eventName() string       { return "upload_settled" }
func (StyleChosen) eventName() string         { return "style_chosen" }
func (InstructionEdited) eventName() string   { return "instruction_edited" }
func (GenerateRequested) eventName() string   { return "generate_requested" }
func (GenerationSucceeded) eventName() string { return "generation_succeeded" }
func (GenerationFailed) eventName() string    { return "generation_failed" }
func (TryAnother) eventName() string          { return "try_another" }
func (Reset) eventName() string               { return "reset" }

// EventName returns a short identifier for logging.
func EventName(ev Event) string {
	if ev == nil {
		return "none"
	}
	return ev.eventName()
}

// Effect is work the Machine must perform after a transition. A nil Effect
// means there is nothing to do.
type Effect interface {
	effectName() string
}

// SettleUpload schedules UploadSettled{Epoch} after the upload delay.
type SettleUpload struct{ Epoch uint64 }

// StartGeneration calls the generator and reports back with Epoch.
type StartGeneration struct {
	Epoch       uint64
	Source      dataurl.Image
	Instruction string
}

func (SettleUpload) effectName() string    { return "settle_upload" }
func (StartGeneration) effectName() string { return "start_generation" }
