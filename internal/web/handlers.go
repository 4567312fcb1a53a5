package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/proshot/internal/dataurl"
	"github.com/fpang/proshot/internal/intake"
	"github.com/fpang/proshot/internal/session"
	"github.com/fpang/proshot/internal/styles"
)

// multipartOverhead leaves room for form boundaries and headers around a
// maximum-size file.
const multipartOverhead = 1 << 20

// GET /api/health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.store.Len(),
		"picker":   s.opts.Picker != nil,
	})
}

// GET /api/styles
func (s *Server) handleStyles(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"styles": styles.List()})
}

// POST /api/sessions
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	m := s.store.Create()
	respondJSON(w, http.StatusCreated, newSessionView(m.ID(), m.Snapshot()))
}

// GET /api/sessions/{id}?since=<version>&wait=<duration>
//
// With since, the request blocks until the session version exceeds it or the
// wait elapses, then returns the session either way.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	m := machineFrom(r)
	q := r.URL.Query()

	sinceParam := q.Get("since")
	if sinceParam == "" {
		respondJSON(w, http.StatusOK, newSessionView(m.ID(), m.Snapshot()))
		return
	}
	since, err := strconv.ParseUint(sinceParam, 10, 64)
	if err != nil {
		httpError(w, http.StatusBadRequest, "since must be a session version number")
		return
	}

	wait := s.opts.MaxWait
	if waitParam := q.Get("wait"); waitParam != "" {
		d, err := time.ParseDuration(waitParam)
		if err != nil || d < 0 {
			httpError(w, http.StatusBadRequest, "wait must be a duration such as 20s")
			return
		}
		wait = min(d, s.opts.MaxWait)
	}

	ctx, cancel := context.WithTimeout(r.Context(), wait)
	defer cancel()
	snap, _ := m.WaitFor(ctx, func(sess session.Session) bool { return sess.Version > since })
	respondJSON(w, http.StatusOK, newSessionView(m.ID(), snap))
}

// DELETE /api/sessions/{id}
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	s.store.Delete(machineFrom(r).ID())
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/sessions/{id}/image (multipart field "file")
func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	m := machineFrom(r)

	r.Body = http.MaxBytesReader(w, r.Body, intake.MaxBytes+multipartOverhead)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			respondRejection(w, &intake.RejectionError{Reason: intake.TooLarge, Size: tooBig.Limit})
			return
		}
		httpError(w, http.StatusBadRequest, "expected a multipart form with a \"file\" field")
		return
	}
	defer file.Close()
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	img, err := intake.Validate(intake.File{
		Name:     header.Filename,
		MIMEType: header.Header.Get("Content-Type"),
		Size:     header.Size,
		Data:     file,
	})
	if err != nil {
		respondIntakeError(w, err)
		return
	}

	snap, err := m.Dispatch(session.ImageAccepted{Image: img})
	respondTransition(w, http.StatusOK, m.ID(), snap, err)
}

// POST /api/sessions/{id}/pick
func (s *Server) handlePickImage(w http.ResponseWriter, r *http.Request) {
	if s.opts.Picker == nil {
		httpError(w, http.StatusNotFound, "native file picker is not enabled")
		return
	}
	m := machineFrom(r)
	if v := m.Snapshot().View; v != session.Landing {
		httpError(w, http.StatusConflict, "an image has already been chosen; reset first")
		return
	}

	path, err := s.opts.Picker.PickImage(r.Context())
	if err != nil {
		if errors.Is(err, ErrPickCanceled) {
			respondJSON(w, http.StatusOK, map[string]any{
				"canceled": true,
				"session":  newSessionView(m.ID(), m.Snapshot()),
			})
			return
		}
		log.Error().Err(err).Msg("File picker failed")
		httpError(w, http.StatusInternalServerError, "file picker failed")
		return
	}

	f, closer, err := intake.FromPath(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Cannot open picked file")
		httpError(w, http.StatusBadRequest, "cannot open the selected file")
		return
	}
	defer closer.Close()

	img, err := intake.Validate(f)
	if err != nil {
		respondIntakeError(w, err)
		return
	}

	snap, err := m.Dispatch(session.ImageAccepted{Image: img})
	respondTransition(w, http.StatusOK, m.ID(), snap, err)
}

// PUT /api/sessions/{id}/style {"styleId": "..."}
func (s *Server) handleChooseStyle(w http.ResponseWriter, r *http.Request) {
	m := machineFrom(r)

	var req struct {
		StyleID string `json:"styleId"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	style, ok := styles.Lookup(req.StyleID)
	if !ok {
		httpError(w, http.StatusBadRequest, "unknown style: "+req.StyleID)
		return
	}

	snap, err := m.Dispatch(session.StyleChosen{Style: style})
	respondTransition(w, http.StatusOK, m.ID(), snap, err)
}

// PUT /api/sessions/{id}/instruction {"text": "..."}
func (s *Server) handleEditInstruction(w http.ResponseWriter, r *http.Request) {
	m := machineFrom(r)

	var req struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap, err := m.Dispatch(session.InstructionEdited{Text: req.Text})
	respondTransition(w, http.StatusOK, m.ID(), snap, err)
}

// POST /api/sessions/{id}/generate
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	m := machineFrom(r)

	snap, err := m.Dispatch(session.GenerateRequested{})
	if err != nil || !s.opts.AwaitGeneration {
		respondTransition(w, http.StatusAccepted, m.ID(), snap, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.MaxWait)
	defer cancel()
	epoch := snap.Epoch
	done, _ := m.WaitFor(ctx, func(sess session.Session) bool {
		return sess.Epoch != epoch || sess.View != session.Generating
	})
	status := http.StatusOK
	if done.View == session.Generating {
		status = http.StatusAccepted
	}
	respondJSON(w, status, newSessionView(m.ID(), done))
}

// POST /api/sessions/{id}/another
func (s *Server) handleTryAnother(w http.ResponseWriter, r *http.Request) {
	m := machineFrom(r)
	snap, err := m.Dispatch(session.TryAnother{})
	respondTransition(w, http.StatusOK, m.ID(), snap, err)
}

// POST /api/sessions/{id}/reset
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	m := machineFrom(r)
	snap, err := m.Dispatch(session.Reset{})
	respondTransition(w, http.StatusOK, m.ID(), snap, err)
}

// GET /api/sessions/{id}/download
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	m := machineFrom(r)
	snap := m.Snapshot()
	if !snap.HasResult() {
		httpError(w, http.StatusConflict, "no generated headshot to download")
		return
	}

	mediaType, data, err := dataurl.Parse(snap.Result)
	if err != nil {
		log.Error().Err(err).Str("session", m.ID()).Msg("Stored result is not a valid data URL")
		httpError(w, http.StatusInternalServerError, "stored result is corrupt")
		return
	}

	w.Header().Set("Content-Type", mediaType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+DownloadFilename(s.now())+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func respondIntakeError(w http.ResponseWriter, err error) {
	var rej *intake.RejectionError
	if errors.As(err, &rej) {
		respondRejection(w, rej)
		return
	}
	log.Error().Err(err).Msg("Failed to read uploaded image")
	httpError(w, http.StatusBadRequest, "could not read the uploaded file")
}

func respondRejection(w http.ResponseWriter, rej *intake.RejectionError) {
	respondJSON(w, http.StatusUnprocessableEntity, map[string]string{
		"error":  rej.UserMessage(),
		"reason": rej.Reason.String(),
	})
}
