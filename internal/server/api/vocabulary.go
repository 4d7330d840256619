package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/store"
)

// VocabularyHandler serves the user vocabulary and corrections that extend
// the autocorrect dictionary.
type VocabularyHandler struct {
	app *app.App
}

// NewVocabularyHandler creates a new VocabularyHandler for a.
func NewVocabularyHandler(a *app.App) *VocabularyHandler {
	return &VocabularyHandler{app: a}
}

// Register adds the vocabulary routes to mux.
func (h *VocabularyHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/vocabulary", h.list)
	mux.HandleFunc("POST /api/vocabulary", h.add)
	mux.HandleFunc("DELETE /api/vocabulary/{word}", h.remove)
	mux.HandleFunc("PUT /api/corrections/{word}", h.setCorrection)
	mux.HandleFunc("DELETE /api/corrections/{word}", h.deleteCorrection)
	mux.HandleFunc("POST /api/autocorrect", h.correct)
}

type vocabularyResponse struct {
	Words       []string          `json:"words"`
	Corrections map[string]string `json:"corrections"`
}

type wordRequest struct {
	Word string `json:"word"`
}

type correctionRequest struct {
	Replacement string `json:"replacement"`
}

type correctResponse struct {
	Word      string `json:"word"`
	Corrected string `json:"corrected"`
}

// store returns the backing store, writing a 503 when persistence is off.
func (h *VocabularyHandler) store(w http.ResponseWriter) (*store.Store, bool) {
	st := h.app.Store()
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "Persistence is disabled")
		return nil, false
	}
	return st, true
}

// reload makes a vocabulary change live, writing a 500 on failure.
func (h *VocabularyHandler) reload(w http.ResponseWriter) bool {
	if err := h.app.ReloadVocabulary(); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reload vocabulary")
		return false
	}
	return true
}

// list handles GET /api/vocabulary
func (h *VocabularyHandler) list(w http.ResponseWriter, r *http.Request) {
	st, ok := h.store(w)
	if !ok {
		return
	}
	words, err := st.Vocabulary().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list vocabulary")
		return
	}
	corrections, err := st.Corrections().All()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list corrections")
		return
	}
	if words == nil {
		words = []string{}
	}
	writeJSON(w, http.StatusOK, vocabularyResponse{Words: words, Corrections: corrections})
}

// add handles POST /api/vocabulary
func (h *VocabularyHandler) add(w http.ResponseWriter, r *http.Request) {
	st, ok := h.store(w)
	if !ok {
		return
	}
	var req wordRequest
	if !decode(w, r, &req) {
		return
	}
	if err := st.Vocabulary().Add(req.Word); err != nil {
		if errors.Is(err, store.ErrEmptyWord) {
			writeError(w, http.StatusBadRequest, "word is required")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to add word")
		return
	}
	if !h.reload(w) {
		return
	}
	writeJSON(w, http.StatusCreated, wordRequest{Word: strings.ToLower(strings.TrimSpace(req.Word))})
}

// remove handles DELETE /api/vocabulary/{word}
func (h *VocabularyHandler) remove(w http.ResponseWriter, r *http.Request) {
	st, ok := h.store(w)
	if !ok {
		return
	}
	if err := st.Vocabulary().Remove(r.PathValue("word")); err != nil {
		writeLookupError(w, err, "Word")
		return
	}
	if h.reload(w) {
		w.WriteHeader(http.StatusNoContent)
	}
}

// setCorrection handles PUT /api/corrections/{word}
func (h *VocabularyHandler) setCorrection(w http.ResponseWriter, r *http.Request) {
	st, ok := h.store(w)
	if !ok {
		return
	}
	var req correctionRequest
	if !decode(w, r, &req) {
		return
	}
	if err := st.Corrections().Set(r.PathValue("word"), req.Replacement); err != nil {
		if errors.Is(err, store.ErrEmptyWord) {
			writeError(w, http.StatusBadRequest, "word and replacement are required")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to save correction")
		return
	}
	if h.reload(w) {
		w.WriteHeader(http.StatusNoContent)
	}
}

// deleteCorrection handles DELETE /api/corrections/{word}
func (h *VocabularyHandler) deleteCorrection(w http.ResponseWriter, r *http.Request) {
	st, ok := h.store(w)
	if !ok {
		return
	}
	if err := st.Corrections().Delete(r.PathValue("word")); err != nil {
		writeLookupError(w, err, "Correction")
		return
	}
	if h.reload(w) {
		w.WriteHeader(http.StatusNoContent)
	}
}

// correct handles POST /api/autocorrect
func (h *VocabularyHandler) correct(w http.ResponseWriter, r *http.Request) {
	var req wordRequest
	if !decode(w, r, &req) {
		return
	}
	corrected := strings.ToLower(strings.TrimSpace(req.Word))
	if c := h.app.Corrector(); c != nil {
		corrected = c.Correct(req.Word)
	}
	writeJSON(w, http.StatusOK, correctResponse{Word: req.Word, Corrected: corrected})
}
