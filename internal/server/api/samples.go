package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
)

// SamplesHandler serves recorded letter samples and the templates trained
// from them.
type SamplesHandler struct {
	app *app.App
}

// NewSamplesHandler creates a new SamplesHandler for a.
func NewSamplesHandler(a *app.App) *SamplesHandler {
	return &SamplesHandler{app: a}
}

// Register adds the letter routes to mux.
func (h *SamplesHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/letters", h.letters)
	mux.HandleFunc("GET /api/letters/{letter}/samples", h.list)
	mux.HandleFunc("POST /api/letters/{letter}/samples", h.create)
	mux.HandleFunc("POST /api/letters/{letter}/train", h.train)
	mux.HandleFunc("DELETE /api/letters/{letter}", h.forget)
}

// Request types

type createSamplesRequest struct {
	Samples []json.RawMessage `json:"samples"`
}

// Response types

type sampleResponse struct {
	ID        int64           `json:"id"`
	Letter    string          `json:"letter"`
	Data      json.RawMessage `json:"data"`
	CreatedAt string          `json:"created_at"`
}

type listSamplesResponse struct {
	Samples []sampleResponse `json:"samples"`
}

type letterResponse struct {
	Letter  string `json:"letter"`
	Samples int    `json:"samples"`
	Trained bool   `json:"trained"`
}

type listLettersResponse struct {
	Letters []letterResponse `json:"letters"`
}

// parse resolves the {letter} path value, writing a 400 when it is not A-Z.
func (h *SamplesHandler) parse(w http.ResponseWriter, r *http.Request) (gesture.Symbol, *store.Store, bool) {
	st := h.app.Store()
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "Persistence is disabled")
		return gesture.None, nil, false
	}
	sym, err := gesture.ParseSymbol(r.PathValue("letter"))
	if err != nil || !sym.IsLetter() {
		writeError(w, http.StatusBadRequest, "letter must be A-Z")
		return gesture.None, nil, false
	}
	return sym, st, true
}

// letters handles GET /api/letters
func (h *SamplesHandler) letters(w http.ResponseWriter, r *http.Request) {
	st := h.app.Store()
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "Persistence is disabled")
		return
	}

	counts, err := st.Samples().Counts()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count samples")
		return
	}
	templates, err := st.Templates().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list templates")
		return
	}
	trained := make(map[string]bool, len(templates))
	for _, t := range templates {
		trained[t.Letter] = true
	}

	response := listLettersResponse{Letters: make([]letterResponse, 0, 26)}
	for c := byte('A'); c <= 'Z'; c++ {
		l := string(c)
		response.Letters = append(response.Letters, letterResponse{
			Letter:  l,
			Samples: counts[l],
			Trained: trained[l],
		})
	}

	writeJSON(w, http.StatusOK, response)
}

// list handles GET /api/letters/{letter}/samples
func (h *SamplesHandler) list(w http.ResponseWriter, r *http.Request) {
	sym, st, ok := h.parse(w, r)
	if !ok {
		return
	}

	samples, err := st.Samples().GetByLetter(sym.String())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list samples")
		return
	}

	response := listSamplesResponse{
		Samples: make([]sampleResponse, 0, len(samples)),
	}
	for _, s := range samples {
		response.Samples = append(response.Samples, sampleResponse{
			ID:        s.ID,
			Letter:    s.Letter,
			Data:      s.Data,
			CreatedAt: s.CreatedAt.Format(timeFormat),
		})
	}

	writeJSON(w, http.StatusOK, response)
}

// create handles POST /api/letters/{letter}/samples
func (h *SamplesHandler) create(w http.ResponseWriter, r *http.Request) {
	sym, st, ok := h.parse(w, r)
	if !ok {
		return
	}

	var req createSamplesRequest
	if !decode(w, r, &req) {
		return
	}
	if len(req.Samples) == 0 {
		writeError(w, http.StatusBadRequest, "At least one sample is required")
		return
	}

	if err := st.Samples().Create(sym.String(), req.Samples); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save samples")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"status": "ok"})
}

// train handles POST /api/letters/{letter}/train
func (h *SamplesHandler) train(w http.ResponseWriter, r *http.Request) {
	sym, _, ok := h.parse(w, r)
	if !ok {
		return
	}

	t, err := h.app.TrainLetter(sym)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "No samples recorded for "+sym.String())
	case err != nil:
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeJSON(w, http.StatusOK, t)
	}
}

// forget handles DELETE /api/letters/{letter}
func (h *SamplesHandler) forget(w http.ResponseWriter, r *http.Request) {
	sym, _, ok := h.parse(w, r)
	if !ok {
		return
	}
	if err := h.app.ForgetLetter(sym); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete letter")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
