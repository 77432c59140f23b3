package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/lehigh-university-libraries/chsandbox/internal/compose"
	"github.com/lehigh-university-libraries/chsandbox/internal/presets"
	"github.com/lehigh-university-libraries/chsandbox/internal/sandbox"
)

type indexPage struct {
	Session sandbox.Snapshot
	Loading bool
	Presets []presets.Preset
}

// HandleIndex serves the sandbox page for ?session=. Requests without a
// known session get a fresh one. A ?preset= parameter is applied once and
// then dropped by redirecting, so reloading the page does not replay it.
func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	if r.Method != "GET" && r.Method != "HEAD" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session, exists := h.sessionStore.Get(r.URL.Query().Get("session"))

	presetName := r.URL.Query().Get("preset")
	if presetName != "" {
		preset, err := h.presets.Get(presetName)
		if err != nil {
			h.writeError(w, "Preset not found: "+presetName, http.StatusNotFound)
			return
		}
		if !exists {
			session = h.createSession()
		}
		if !session.ApplyPreset(preset.Query) {
			slog.Warn("Preset ignored, request in flight", "session_id", session.ID, "preset", presetName)
		}
		http.Redirect(w, r, "/?session="+session.ID, http.StatusFound)
		return
	}

	if !exists {
		session = h.createSession()
		http.Redirect(w, r, "/?session="+session.ID, http.StatusFound)
		return
	}

	snapshot := session.Snapshot()
	page := indexPage{
		Session: snapshot,
		Loading: snapshot.State.Loading,
		Presets: h.presets.All(),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, page); err != nil {
		slog.Error("Unable to render sandbox page", "session_id", session.ID, "err", err)
	}
}

// HandleUI receives the page's form posts: /ui/{id}/{action}
func (h *Handler) HandleUI(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID, action, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/ui/"), "/")
	session, ok := h.getSessionOrError(w, sessionID)
	if !ok {
		return
	}

	if err := r.ParseForm(); err != nil {
		h.writeError(w, "Invalid form: "+err.Error(), http.StatusBadRequest)
		return
	}

	switch action {
	case "execute":
		// the editor is read-only while loading, so a refused update means
		// the execute would be dropped too
		if session.SetQuery(r.PostForm.Get("query")) && session.SetFilters(compose.Filters{
			Maker:    r.PostForm.Get("maker"),
			YearFrom: r.PostForm.Get("from"),
			YearTo:   r.PostForm.Get("to"),
		}) {
			h.execute(r.Context(), session)
		}
	case "clear":
		session.Clear()
	case "preset":
		query, status := h.resolvePreset(presetRequest{Name: r.PostForm.Get("name")})
		if status != http.StatusOK {
			h.writeError(w, http.StatusText(status)+": preset "+r.PostForm.Get("name"), status)
			return
		}
		session.ApplyPreset(query)
	default:
		h.writeError(w, "Unknown action: "+action, http.StatusNotFound)
		return
	}

	http.Redirect(w, r, "/?session="+session.ID, http.StatusSeeOther)
}
