package handlers

import (
	"embed"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/lehigh-university-libraries/chsandbox/internal/presets"
	"github.com/lehigh-university-libraries/chsandbox/internal/runner"
	"github.com/lehigh-university-libraries/chsandbox/internal/sandbox"
	"github.com/lehigh-university-libraries/chsandbox/internal/storage"
	"github.com/rs/xid"
)

//go:embed templates/index.html
var templates embed.FS

var indexTemplate = template.Must(template.ParseFS(templates, "templates/index.html"))

// RunnerFactory builds the runner owned by a new session
type RunnerFactory func() *runner.Runner

// PresetSource is the preset library the handlers read from
type PresetSource interface {
	Get(name string) (presets.Preset, error)
	All() []presets.Preset
}

type Handler struct {
	sessionStore *storage.SessionStore
	presets      PresetSource
	newRunner    RunnerFactory
}

func New(store *storage.SessionStore, lib PresetSource, newRunner RunnerFactory) *Handler {
	return &Handler{
		sessionStore: store,
		presets:      lib,
		newRunner:    newRunner,
	}
}

// Register mounts the sandbox page and API routes on mux
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/sessions", h.HandleSessions)
	mux.HandleFunc("/api/sessions/", h.HandleSessionDetail)
	mux.HandleFunc("/api/presets", h.HandlePresets)
	mux.HandleFunc("/api/presets/", h.HandlePresets)
	mux.HandleFunc("/api/compose", h.HandleCompose)
	mux.HandleFunc("/ui/", h.HandleUI)
	mux.HandleFunc("/", h.HandleIndex)
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	h.writeJSONStatus(w, http.StatusOK, data)
}

func (h *Handler) writeJSONStatus(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	http.Error(w, message, code)
}

// Session helpers
func (h *Handler) getSessionOrError(w http.ResponseWriter, sessionID string) (*sandbox.Session, bool) {
	session, exists := h.sessionStore.Get(sessionID)
	if !exists {
		h.writeError(w, "Session not found", http.StatusNotFound)
		return nil, false
	}
	return session, true
}

func (h *Handler) createSession() *sandbox.Session {
	session := sandbox.New(xid.New().String(), h.newRunner())
	h.sessionStore.Set(session.ID, session)
	slog.Info("Created sandbox session", "session_id", session.ID, "endpoint", session.Snapshot().Endpoint)
	return session
}
