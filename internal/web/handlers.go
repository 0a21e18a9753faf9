package web

import (
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ygalaxyy/bookmarkbot/internal/errors"
	"github.com/ygalaxyy/bookmarkbot/internal/publish"
)

// Handlers contains HTTP route handlers.
type Handlers struct {
	db   *sql.DB
	name string
}

// HandleAlive handles GET / for uptime probes.
func (h *Handlers) HandleAlive(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "%s is alive!", h.name)
}

// HandleHealth handles GET /healthz.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{"status": "ok"}
	if h.db != nil {
		if err := h.db.PingContext(r.Context()); err != nil {
			renderError(w, errors.NewInternal(err))
			return
		}
		status["db"] = "ok"
	}
	renderJSON(w, http.StatusOK, status)
}

// HandlePublications handles GET /publications: the publication log, newest first.
func (h *Handlers) HandlePublications(w http.ResponseWriter, r *http.Request) {
	out, err := publish.History(r.Context(), h.db, publish.HistoryInput{
		Section: r.URL.Query().Get("section"),
		Limit:   parseIntParam(r, "limit", publish.DefaultHistoryLimit),
		Offset:  parseIntParam(r, "offset", 0),
	})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// renderError writes a BotError as JSON.
func renderError(w http.ResponseWriter, err error) {
	var bErr *errors.BotError
	if !stderrors.As(err, &bErr) {
		bErr = errors.NewInternal(err)
	}
	renderJSON(w, bErr.Status, map[string]any{
		"error": map[string]any{
			"code":    string(bErr.Code),
			"message": bErr.Message,
			"status":  bErr.Status,
		},
	})
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
