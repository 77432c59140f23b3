package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/lehigh-university-libraries/chsandbox/internal/compose"
	"github.com/lehigh-university-libraries/chsandbox/internal/presets"
	"github.com/lehigh-university-libraries/chsandbox/internal/sandbox"
)

// sessionUpdate is the body accepted when creating or updating a session.
// Absent fields leave the session's value alone.
type sessionUpdate struct {
	Query   *string          `json:"query"`
	Filters *compose.Filters `json:"filters"`
}

// presetRequest selects a preset by name or supplies a literal query
type presetRequest struct {
	Name  string `json:"name"`
	Query string `json:"query"`
}

func (h *Handler) HandleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		sessions := h.sessionStore.GetAll()
		snapshots := make([]sandbox.Snapshot, 0, len(sessions))
		for _, session := range sessions {
			snapshots = append(snapshots, session.Snapshot())
		}
		h.writeJSON(w, snapshots)
	case "POST":
		var update sessionUpdate
		if err := decodeOptional(r.Body, &update); err != nil {
			h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
		session := h.createSession()
		applyUpdate(session, update)
		h.writeJSONStatus(w, http.StatusCreated, session.Snapshot())
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) HandleSessionDetail(w http.ResponseWriter, r *http.Request) {
	sessionID, action, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/api/sessions/"), "/")

	session, ok := h.getSessionOrError(w, sessionID)
	if !ok {
		return
	}

	if action != "" {
		if r.Method != "POST" {
			h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.handleSessionAction(w, r, session, action)
		return
	}

	switch r.Method {
	case "GET":
		h.writeJSON(w, session.Snapshot())
	case "PUT":
		var update sessionUpdate
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
		if !applyUpdate(session, update) {
			h.writeJSONStatus(w, http.StatusConflict, session.Snapshot())
			return
		}
		h.writeJSON(w, session.Snapshot())
	case "DELETE":
		h.sessionStore.Delete(sessionID)
		w.WriteHeader(http.StatusNoContent)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleSessionAction(w http.ResponseWriter, r *http.Request, session *sandbox.Session, action string) {
	switch action {
	case "execute":
		if !h.execute(r.Context(), session) {
			h.writeJSONStatus(w, http.StatusConflict, session.Snapshot())
			return
		}
	case "clear":
		if !session.Clear() {
			h.writeJSONStatus(w, http.StatusConflict, session.Snapshot())
			return
		}
	case "preset":
		var req presetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
		query, status := h.resolvePreset(req)
		if status != http.StatusOK {
			h.writeError(w, http.StatusText(status)+": preset "+req.Name, status)
			return
		}
		if !session.ApplyPreset(query) {
			h.writeJSONStatus(w, http.StatusConflict, session.Snapshot())
			return
		}
	default:
		h.writeError(w, "Unknown action: "+action, http.StatusNotFound)
		return
	}

	h.writeJSON(w, session.Snapshot())
}

// execute runs the session's query to completion. A client that goes away
// mid-request does not abort it; the result still lands in the session.
func (h *Handler) execute(ctx context.Context, session *sandbox.Session) bool {
	ok := session.Execute(context.WithoutCancel(ctx))
	if !ok {
		slog.Warn("Execute dropped, request already in flight", "session_id", session.ID)
	}
	return ok
}

// resolvePreset returns the query for req and an HTTP status describing
// whether it could be resolved
func (h *Handler) resolvePreset(req presetRequest) (string, int) {
	if req.Name == "" {
		if req.Query == "" {
			return "", http.StatusBadRequest
		}
		return req.Query, http.StatusOK
	}

	preset, err := h.presets.Get(req.Name)
	if errors.Is(err, presets.ErrNotFound) {
		return "", http.StatusNotFound
	}
	if err != nil {
		return "", http.StatusInternalServerError
	}
	return preset.Query, http.StatusOK
}

// applyUpdate stores the fields present in u; false when the session
// refused because a request is in flight
func applyUpdate(session *sandbox.Session, u sessionUpdate) bool {
	if u.Query != nil && !session.SetQuery(*u.Query) {
		return false
	}
	if u.Filters != nil && !session.SetFilters(*u.Filters) {
		return false
	}
	return true
}

// decodeOptional decodes a JSON body, treating an empty body as no fields
func decodeOptional(body io.Reader, v interface{}) error {
	err := json.NewDecoder(body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
