package session

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/fpang/proshot/internal/dataurl"
	"github.com/fpang/proshot/internal/styles"
)

var testImage = dataurl.Encode(dataurl.MediaTypeJPEG, []byte("selfie"))

func mustStyle(t *testing.T, id string) styles.Style {
	t.Helper()
	s, ok := styles.Lookup(id)
	if !ok {
		t.Fatalf("style %q not in catalog", id)
	}
	return s
}

// apply runs a sequence of events that must all succeed.
func apply(t *testing.T, s Session, events ...Event) (Session, Effect) {
	t.Helper()
	var eff Effect
	for _, ev := range events {
		var err error
		s, eff, err = Transition(s, ev)
		if err != nil {
			t.Fatalf("Transition(%s) error = %v", EventName(ev), err)
		}
	}
	return s, eff
}

func editing(t *testing.T) Session {
	t.Helper()
	s, eff := apply(t, Session{}, ImageAccepted{Image: testImage})
	settle, ok := eff.(SettleUpload)
	if !ok {
		t.Fatalf("ImageAccepted effect = %T, want SettleUpload", eff)
	}
	s, _ = apply(t, s, UploadSettled{Epoch: settle.Epoch})
	return s
}

func TestUploadFlow(t *testing.T) {
	s, eff, err := Transition(Session{}, ImageAccepted{Image: testImage})
	if err != nil {
		t.Fatalf("ImageAccepted error = %v", err)
	}
	if s.View != Uploading {
		t.Errorf("View = %v, want UPLOADING", s.View)
	}
	if s.Source != testImage {
		t.Error("Source not stored")
	}
	settle, ok := eff.(SettleUpload)
	if !ok || settle.Epoch != s.Epoch {
		t.Fatalf("effect = %#v, want SettleUpload for epoch %d", eff, s.Epoch)
	}

	s, eff, err = Transition(s, UploadSettled{Epoch: settle.Epoch})
	if err != nil {
		t.Fatalf("UploadSettled error = %v", err)
	}
	if s.View != Editing || s.Source != testImage {
		t.Errorf("after settle: View = %v, Source set = %v", s.View, !s.Source.IsZero())
	}
	if eff != nil {
		t.Errorf("UploadSettled effect = %#v, want nil", eff)
	}
}

func TestImageAcceptedEmpty(t *testing.T) {
	s, _, err := Transition(Session{}, ImageAccepted{})
	if !errors.Is(err, ErrEmptyImage) {
		t.Fatalf("error = %v, want ErrEmptyImage", err)
	}
	if s.View != Landing {
		t.Errorf("View = %v, want LANDING", s.View)
	}
}

func TestPresetResolvesToTemplate(t *testing.T) {
	corporate := mustStyle(t, "corporate")
	s := editing(t)
	s.CustomInstruction = "ignore me"

	s, eff := apply(t, s, StyleChosen{Style: corporate}, GenerateRequested{})

	start, ok := eff.(StartGeneration)
	if !ok {
		t.Fatalf("effect = %T, want StartGeneration", eff)
	}
	if start.Instruction != corporate.Instruction {
		t.Errorf("Instruction = %q, want corporate template", start.Instruction)
	}
	if start.Source != testImage {
		t.Error("StartGeneration should carry the source image")
	}
	if start.Epoch != s.Epoch {
		t.Errorf("effect epoch = %d, session epoch = %d", start.Epoch, s.Epoch)
	}
	if s.View != Generating {
		t.Errorf("View = %v, want GENERATING", s.View)
	}
}

func TestCustomResolvesVerbatim(t *testing.T) {
	s := editing(t)
	text := "  Put me on a beach at sunset  "

	_, eff := apply(t, s,
		StyleChosen{Style: mustStyle(t, styles.CustomID)},
		InstructionEdited{Text: text},
		GenerateRequested{},
	)

	start := eff.(StartGeneration)
	if start.Instruction != text {
		t.Errorf("Instruction = %q, want %q", start.Instruction, text)
	}
}

func TestCustomEmptyBlocksGenerate(t *testing.T) {
	for _, text := range []string{"", "   \n\t"} {
		s := editing(t)
		s, _ = apply(t, s, StyleChosen{Style: mustStyle(t, styles.CustomID)}, InstructionEdited{Text: text})

		next, eff, err := Transition(s, GenerateRequested{})
		if !errors.Is(err, ErrEmptyCustomInstruction) {
			t.Fatalf("error = %v, want ErrEmptyCustomInstruction", err)
		}
		if !IsValidation(err) {
			t.Error("empty custom instruction should be a validation error")
		}
		if eff != nil {
			t.Errorf("effect = %#v, want none", eff)
		}
		if next.View != Editing {
			t.Errorf("View = %v, want EDITING", next.View)
		}
		if next.LastError != MsgEmptyCustomInstruction {
			t.Errorf("LastError = %q", next.LastError)
		}
		if next.Epoch != s.Epoch {
			t.Error("epoch should not change on rejected generate")
		}
	}
}

func TestGenerateWithoutStyle(t *testing.T) {
	s := editing(t)
	next, eff, err := Transition(s, GenerateRequested{})
	if !errors.Is(err, ErrNoStyleSelected) {
		t.Fatalf("error = %v, want ErrNoStyleSelected", err)
	}
	if eff != nil || next.View != Editing || next.LastError != MsgNoStyleSelected {
		t.Errorf("got view %v, lastError %q, effect %#v", next.View, next.LastError, eff)
	}
}

func TestInstructionRequiresCustom(t *testing.T) {
	s := editing(t)
	s, _ = apply(t, s, StyleChosen{Style: mustStyle(t, "tech")})

	next, _, err := Transition(s, InstructionEdited{Text: "hello"})
	if !errors.Is(err, ErrCustomNotSelected) {
		t.Fatalf("error = %v, want ErrCustomNotSelected", err)
	}
	if next.CustomInstruction != "" {
		t.Error("instruction should not be stored")
	}
}

func TestGenerationSucceeded(t *testing.T) {
	s := editing(t)
	s.LastError = "old problem"
	s, eff := apply(t, s, StyleChosen{Style: mustStyle(t, "outdoor")}, GenerateRequested{})
	if s.LastError != "" {
		t.Error("generate should clear LastError")
	}
	start := eff.(StartGeneration)

	out := dataurl.Encode(dataurl.MediaTypePNG, []byte("headshot"))
	s, _ = apply(t, s, GenerationSucceeded{Epoch: start.Epoch, Image: out})

	if s.View != Result {
		t.Errorf("View = %v, want RESULT", s.View)
	}
	if s.Result != out || !s.HasResult() {
		t.Error("Result not stored")
	}
}

func TestGenerationFailedKeepsInputs(t *testing.T) {
	s := editing(t)
	s, eff := apply(t, s, StyleChosen{Style: mustStyle(t, "studio-bw")}, GenerateRequested{})
	start := eff.(StartGeneration)

	s, _ = apply(t, s, GenerationFailed{Epoch: start.Epoch, Message: "Failed to generate image. Please try again."})

	if s.View != Editing {
		t.Errorf("View = %v, want EDITING", s.View)
	}
	if s.LastError == "" {
		t.Error("LastError not set")
	}
	if s.Source != testImage {
		t.Error("Source changed")
	}
	if s.Style == nil || s.Style.ID != "studio-bw" {
		t.Errorf("Style = %+v, want studio-bw", s.Style)
	}
	if !s.Result.IsZero() {
		t.Error("Result should stay empty")
	}
}

func TestTryAnother(t *testing.T) {
	s := editing(t)
	s, eff := apply(t, s, StyleChosen{Style: mustStyle(t, "creative")}, GenerateRequested{})
	s, _ = apply(t, s, GenerationSucceeded{Epoch: eff.(StartGeneration).Epoch, Image: testImage})

	s, _ = apply(t, s, TryAnother{})

	if s.View != Editing {
		t.Errorf("View = %v, want EDITING", s.View)
	}
	if !s.Result.IsZero() {
		t.Error("Result not cleared")
	}
	if s.Source != testImage {
		t.Error("Source should be preserved")
	}
}

func TestResetFromEveryView(t *testing.T) {
	full := Session{
		Source:            testImage,
		Style:             &styles.Style{ID: styles.CustomID},
		CustomInstruction: "text",
		Result:            testImage,
		LastError:         "boom",
		Epoch:             7,
		Version:           12,
	}
	for _, v := range []View{Landing, Uploading, Editing, Generating, Result} {
		t.Run(v.String(), func(t *testing.T) {
			s := full
			s.View = v

			next, eff, err := Transition(s, Reset{})
			if err != nil {
				t.Fatalf("Reset error = %v", err)
			}
			if eff != nil {
				t.Errorf("effect = %#v, want none", eff)
			}
			want := Session{View: Landing, Epoch: 8, Version: 12}
			if next.View != want.View || !next.Source.IsZero() || next.Style != nil ||
				next.CustomInstruction != "" || !next.Result.IsZero() || next.LastError != "" {
				t.Errorf("Reset left fields set: %+v", next)
			}
			if next.Epoch != want.Epoch {
				t.Errorf("Epoch = %d, want %d", next.Epoch, want.Epoch)
			}
		})
	}
}

func TestStaleEvents(t *testing.T) {
	s := editing(t)
	s, eff := apply(t, s, StyleChosen{Style: mustStyle(t, "corporate")}, GenerateRequested{})
	old := eff.(StartGeneration).Epoch

	s, _ = apply(t, s, Reset{})

	for _, ev := range []Event{
		GenerationSucceeded{Epoch: old, Image: testImage},
		GenerationFailed{Epoch: old, Message: "late"},
		UploadSettled{Epoch: old - 1},
	} {
		next, _, err := Transition(s, ev)
		if !errors.Is(err, ErrStale) {
			t.Errorf("%s: error = %v, want ErrStale", EventName(ev), err)
		}
		if next.View != Landing || !next.Result.IsZero() || next.LastError != "" {
			t.Errorf("%s changed the session: %+v", EventName(ev), next)
		}
	}
}

func TestInvalidTransitions(t *testing.T) {
	tests := []struct {
		view View
		ev   Event
	}{
		{Landing, UploadSettled{}},
		{Landing, StyleChosen{}},
		{Landing, GenerateRequested{}},
		{Landing, TryAnother{}},
		{Uploading, ImageAccepted{Image: testImage}},
		{Uploading, GenerateRequested{}},
		{Editing, ImageAccepted{Image: testImage}},
		{Editing, TryAnother{}},
		{Editing, GenerationSucceeded{}},
		{Generating, GenerateRequested{}},
		{Generating, StyleChosen{}},
		{Result, GenerateRequested{}},
		{Result, StyleChosen{}},
		{Result, nil},
	}
	for _, tt := range tests {
		t.Run(tt.view.String()+"/"+EventName(tt.ev), func(t *testing.T) {
			s := Session{View: tt.view, Source: testImage}
			next, eff, err := Transition(s, tt.ev)
			if !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("error = %v, want ErrInvalidTransition", err)
			}
			if IsValidation(err) {
				t.Error("invalid transition must not count as validation")
			}
			if eff != nil || next.View != tt.view {
				t.Errorf("session changed: view %v, effect %#v", next.View, eff)
			}
		})
	}
}

func TestViewJSON(t *testing.T) {
	b, err := json.Marshal(Session{View: Generating})
	if err != nil {
		t.Fatalf("Marshal error = %v", err)
	}
	var decoded struct {
		View string `json:"view"`
	}
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("Unmarshal error = %v", err)
	}
	if decoded.View != "GENERATING" {
		t.Errorf("view = %q, want GENERATING", decoded.View)
	}

	var v View
	if err := v.UnmarshalText([]byte("result")); err != nil || v != Result {
		t.Errorf("UnmarshalText = %v, %v", v, err)
	}
	if err := v.UnmarshalText([]byte("nope")); err == nil {
		t.Error("expected error for unknown view")
	}
}
