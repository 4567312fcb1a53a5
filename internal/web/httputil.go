package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fpang/proshot/internal/session"
)

// maxJSONBody bounds small JSON request bodies (style, instruction).
const maxJSONBody = 64 << 10

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func httpError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if dec.More() {
		return errors.New("invalid request body: trailing data")
	}
	return nil
}

// sessionView is the JSON shape of a session returned by the API.
type sessionView struct {
	ID string `json:"id"`
	session.Session
	HasResult   bool   `json:"hasResult"`
	DownloadURL string `json:"downloadUrl,omitempty"`
}

func newSessionView(id string, s session.Session) sessionView {
	v := sessionView{ID: id, Session: s, HasResult: s.HasResult()}
	if v.HasResult {
		v.DownloadURL = "/api/sessions/" + id + "/download"
	}
	return v
}

type transitionErrorBody struct {
	Error   string      `json:"error"`
	Session sessionView `json:"session"`
}

// respondTransition writes the session after a dispatch, or the mapped error
// with the session as it stands.
func respondTransition(w http.ResponseWriter, okStatus int, id string, s session.Session, err error) {
	if err == nil {
		respondJSON(w, okStatus, newSessionView(id, s))
		return
	}
	respondJSON(w, transitionStatus(err), transitionErrorBody{
		Error:   transitionMessage(err, s),
		Session: newSessionView(id, s),
	})
}

func transitionStatus(err error) int {
	switch {
	case session.IsValidation(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, session.ErrInvalidTransition), errors.Is(err, session.ErrStale):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func transitionMessage(err error, s session.Session) string {
	switch {
	case session.IsValidation(err) && s.LastError != "":
		return s.LastError
	case errors.Is(err, session.ErrCustomNotSelected):
		return "Choose the Custom Edit style to write your own description."
	case errors.Is(err, session.ErrEmptyImage):
		return "Please upload an image."
	case errors.Is(err, session.ErrInvalidTransition), errors.Is(err, session.ErrStale):
		return fmt.Sprintf("That action is not available while the session is %s.", s.View)
	default:
		return "internal error"
	}
}

// DownloadFilename names the saved headshot after the download time.
func DownloadFilename(t time.Time) string {
	return fmt.Sprintf("proshot-headshot-%d.png", t.UnixMilli())
}
