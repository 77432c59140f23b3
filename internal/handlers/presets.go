package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/lehigh-university-libraries/chsandbox/internal/compose"
	"github.com/lehigh-university-libraries/chsandbox/internal/presets"
)

type composeRequest struct {
	Query string `json:"query"`
	compose.Filters
}

type composeResponse struct {
	Query string `json:"query"`
}

func (h *Handler) HandlePresets(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/presets"), "/")
	if name == "" {
		h.writeJSON(w, h.presets.All())
		return
	}

	preset, err := h.presets.Get(name)
	if errors.Is(err, presets.ErrNotFound) {
		h.writeError(w, "Preset not found: "+name, http.StatusNotFound)
		return
	}
	if err != nil {
		h.writeError(w, "Failed to load preset: "+err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, preset)
}

// HandleCompose returns the query an execute would send for the given
// editor text and filters, without sending it
func (h *Handler) HandleCompose(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req composeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, composeResponse{Query: compose.Compose(req.Query, req.Filters)})
}
