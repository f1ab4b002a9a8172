package web

import (
	"context"
	"maps"
	"net/http"
	"slices"
	"time"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/pastegrid/internal/core"
	"github.com/JonMunkholm/pastegrid/internal/logging"
	"github.com/JonMunkholm/pastegrid/internal/web/views"
)

// handleIndex lists the registered tables, grouped.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	byGroup := s.service.ListTablesByGroup()

	groups := make([]views.TableGroup, 0, len(byGroup))
	for _, name := range slices.Sorted(maps.Keys(byGroup)) {
		groups = append(groups, views.TableGroup{Name: name, Tables: byGroup[name]})
	}
	s.render(w, r, views.Page("Tables", views.TableList(groups)))
}

// handleOpenSessionForm opens a session from the index form and redirects to
// its page.
func (s *Server) handleOpenSessionForm(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	if err := r.ParseForm(); err != nil {
		s.respondError(w, r, errInvalidBody)
		return
	}
	mode, err := core.ParseMode(r.PostFormValue("mode"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	snap, err := s.service.OpenSession(r.Context(), r.PostFormValue("table"), mode)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	http.Redirect(w, r, "/sessions/"+snap.ID, http.StatusSeeOther)
}

func (s *Server) handleSessionPage(w http.ResponseWriter, r *http.Request) {
	snap, err := s.service.Snapshot(sessionID(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.render(w, r, views.Page(snap.Table.Label, views.Grid(snap)))
}

// handleSaveForm saves from the session page and redirects back to it.
func (s *Server) handleSaveForm(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	if _, err := s.service.Save(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	http.Redirect(w, r, "/sessions/"+id, http.StatusSeeOther)
}

type healthResponse struct {
	Status   string                 `json:"status"`
	Sessions int                    `json:"sessions"`
	Saves    core.SaveLimiterStatus `json:"saves"`
	Error    string                 `json:"error,omitempty"`
}

// handleHealth reports liveness and database reachability.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:   "ok",
		Sessions: s.service.SessionCount(),
		Saves:    s.service.SaveStatus(),
	}
	if s.opts.Ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.opts.Ping(ctx); err != nil {
			resp.Status = "unavailable"
			resp.Error = core.MapError(err).Message
			writeJSONStatus(w, http.StatusServiceUnavailable, resp)
			return
		}
	}
	writeJSON(w, r, resp)
}

// render streams c. Headers are sent by then, so failures are only logged.
func (s *Server) render(w http.ResponseWriter, r *http.Request, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := c.Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render failed", "path", r.URL.Path, "error", err)
	}
}
