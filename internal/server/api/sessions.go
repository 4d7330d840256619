package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/sentence"
	"github.com/ayusman/mudra/internal/session"
)

// maxFanOut caps how many sessions a shared frame push ticks at once.
const maxFanOut = 8

// SessionHandler serves sessions, their text controls and detection.
type SessionHandler struct {
	app *app.App
}

// NewSessionHandler creates a new SessionHandler for a.
func NewSessionHandler(a *app.App) *SessionHandler {
	return &SessionHandler{app: a}
}

// Register adds the session routes to mux.
func (h *SessionHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/sessions", h.list)
	mux.HandleFunc("POST /api/sessions", h.create)
	mux.HandleFunc("GET /api/sessions/{id}", h.get)
	mux.HandleFunc("DELETE /api/sessions/{id}", h.delete)

	mux.HandleFunc("GET /api/sessions/{id}/state", h.state)
	mux.HandleFunc("GET /api/sessions/{id}/text", h.text)
	mux.HandleFunc("GET /api/sessions/{id}/transcript", h.transcript)
	mux.HandleFunc("POST /api/sessions/{id}/letter", h.letter)
	mux.HandleFunc("POST /api/sessions/{id}/space", h.control((*session.Session).AddSpace))
	mux.HandleFunc("POST /api/sessions/{id}/backspace", h.control((*session.Session).Backspace))
	mux.HandleFunc("POST /api/sessions/{id}/clear", h.control((*session.Session).Clear))
	mux.HandleFunc("POST /api/sessions/{id}/clear-word", h.control((*session.Session).ClearWord))
	mux.HandleFunc("PUT /api/sessions/{id}/sentence", h.setSentence)
	mux.HandleFunc("POST /api/sessions/{id}/speak", h.speak)

	mux.HandleFunc("POST /api/sessions/{id}/detection", h.startDetection)
	mux.HandleFunc("DELETE /api/sessions/{id}/detection", h.stopDetection)

	mux.HandleFunc("POST /api/sessions/{id}/frames", h.pushFrame)
	mux.HandleFunc("POST /api/frames", h.pushShared)
}

// Request and response types

type sessionResponse struct {
	session.Info
	Detecting bool `json:"detecting"`
}

type listSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

type letterRequest struct {
	Letter string `json:"letter"`
}

type sentenceRequest struct {
	Sentence string `json:"sentence"`
}

type textResponse struct {
	Text string `json:"text"`
}

type frameRequest struct {
	Hands []detector.HandFrame `json:"hands"`
}

type sharedFrameRequest struct {
	SessionIDs []string             `json:"session_ids"`
	Hands      []detector.HandFrame `json:"hands"`
}

type tickResponse struct {
	Tick session.Tick     `json:"tick"`
	Text *sentence.Result `json:"text,omitempty"`
}

type sharedFrameResponse struct {
	Ticks  map[string]tickResponse `json:"ticks"`
	Errors map[string]string       `json:"errors,omitempty"`
}

func (h *SessionHandler) toResponse(s *session.Session) sessionResponse {
	return sessionResponse{Info: s.Info(), Detecting: h.app.Detecting(s.ID())}
}

// lookup resolves the {id} path value, writing a 404 when it is unknown.
func (h *SessionHandler) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := h.app.Sessions().Get(r.PathValue("id"))
	if err != nil {
		writeLookupError(w, err, "Session")
		return nil, false
	}
	return s, true
}

// list handles GET /api/sessions
func (h *SessionHandler) list(w http.ResponseWriter, r *http.Request) {
	sessions := h.app.Sessions().List()
	response := listSessionsResponse{Sessions: make([]sessionResponse, 0, len(sessions))}
	for _, s := range sessions {
		response.Sessions = append(response.Sessions, h.toResponse(s))
	}
	writeJSON(w, http.StatusOK, response)
}

// create handles POST /api/sessions
func (h *SessionHandler) create(w http.ResponseWriter, r *http.Request) {
	s, err := h.app.CreateSession(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}
	writeJSON(w, http.StatusCreated, h.toResponse(s))
}

// get handles GET /api/sessions/{id}
func (h *SessionHandler) get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.toResponse(s))
}

// delete handles DELETE /api/sessions/{id}
func (h *SessionHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.app.DeleteSession(r.Context(), r.PathValue("id")); err != nil {
		writeLookupError(w, err, "Session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// state handles GET /api/sessions/{id}/state
func (h *SessionHandler) state(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.State())
}

// text handles GET /api/sessions/{id}/text
func (h *SessionHandler) text(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, textResponse{Text: s.CompleteText()})
}

// transcript handles GET /api/sessions/{id}/transcript?limit=N
func (h *SessionHandler) transcript(w http.ResponseWriter, r *http.Request) {
	st := h.app.Store()
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "Persistence is disabled")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	id := r.PathValue("id")
	if _, err := st.Sessions().GetByID(id); err != nil {
		writeLookupError(w, err, "Session")
		return
	}
	entries, err := st.Transcripts().ListBySession(id, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list transcript")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"transcript": entries})
}

// letter handles POST /api/sessions/{id}/letter
func (h *SessionHandler) letter(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req letterRequest
	if !decode(w, r, &req) {
		return
	}
	if len(req.Letter) != 1 {
		writeError(w, http.StatusBadRequest, "letter must be a single character")
		return
	}
	writeJSON(w, http.StatusOK, s.AddLetter(rune(req.Letter[0])))
}

// control adapts a no-argument text edit into a handler.
func (h *SessionHandler) control(fn func(*session.Session) sentence.Result) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := h.lookup(w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, fn(s))
	}
}

// setSentence handles PUT /api/sessions/{id}/sentence
func (h *SessionHandler) setSentence(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req sentenceRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.SetSentence(req.Sentence))
}

// speak handles POST /api/sessions/{id}/speak
func (h *SessionHandler) speak(w http.ResponseWriter, r *http.Request) {
	text, err := h.app.Speak(r.Context(), r.PathValue("id"))
	if errors.Is(err, session.ErrNotFound) {
		writeLookupError(w, err, "Session")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, textResponse{Text: text})
}

// startDetection handles POST /api/sessions/{id}/detection
func (h *SessionHandler) startDetection(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	// Detection outlives the request, so the loop is not tied to its context.
	err := h.app.StartDetection(context.WithoutCancel(r.Context()), id)
	switch {
	case errors.Is(err, session.ErrNotFound):
		writeLookupError(w, err, "Session")
	case errors.Is(err, app.ErrSourceBusy):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, app.ErrNoSource):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, map[string]bool{"detecting": true})
	}
}

// stopDetection handles DELETE /api/sessions/{id}/detection
func (h *SessionHandler) stopDetection(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.lookup(w, r); !ok {
		return
	}
	h.app.StopDetection(r.Context(), r.PathValue("id"))
	writeJSON(w, http.StatusOK, map[string]bool{"detecting": false})
}

// pushFrame handles POST /api/sessions/{id}/frames: one tick on landmarks
// estimated by the client.
func (h *SessionHandler) pushFrame(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req frameRequest
	if !decode(w, r, &req) {
		return
	}
	tick, text := s.Tick(req.Hands)
	writeJSON(w, http.StatusOK, tickResponse{Tick: tick, Text: text})
}

// pushShared handles POST /api/frames: the same hands tick every listed
// session, each with its own smoothing state.
func (h *SessionHandler) pushShared(w http.ResponseWriter, r *http.Request) {
	var req sharedFrameRequest
	if !decode(w, r, &req) {
		return
	}
	if len(req.SessionIDs) == 0 {
		writeError(w, http.StatusBadRequest, "session_ids is required")
		return
	}

	var (
		mu       sync.Mutex
		response = sharedFrameResponse{Ticks: make(map[string]tickResponse)}
	)
	g := new(errgroup.Group)
	g.SetLimit(maxFanOut)
	for _, id := range req.SessionIDs {
		g.Go(func() error {
			s, err := h.app.Sessions().Get(id)
			if err != nil {
				mu.Lock()
				if response.Errors == nil {
					response.Errors = make(map[string]string)
				}
				response.Errors[id] = err.Error()
				mu.Unlock()
				return nil
			}

			tick, text := s.Tick(req.Hands)
			mu.Lock()
			response.Ticks[id] = tickResponse{Tick: tick, Text: text}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	writeJSON(w, http.StatusOK, response)
}
