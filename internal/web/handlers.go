package web

import (
	"mime"
	"net/http"

	"github.com/JonMunkholm/pastegrid/internal/core"
	"github.com/JonMunkholm/pastegrid/internal/grid"
)

type openSessionRequest struct {
	Table string `json:"table"`
	Mode  string `json:"mode"`
}

type updateCellRequest struct {
	Row    string `json:"row"`
	Column string `json:"column"`
	Value  string `json:"value"`
}

type focusRequest struct {
	Row    string `json:"row"`
	Column string `json:"column"`
}

type textRequest struct {
	Text string `json:"text"`
}

// pasteSummary reports what a paste did, alongside the new snapshot.
type pasteSummary struct {
	Kind            string   `json:"kind"`
	Touched         []string `json:"touched"`
	IdentityChanged []string `json:"identityChanged,omitempty"`
	Created         int      `json:"created"`
}

type pasteResponse struct {
	Snapshot core.SessionSnapshot `json:"snapshot"`
	Paste    pasteSummary         `json:"paste"`
}

// handleListTables returns the registered tables.
func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, s.service.ListTables())
}

// handleOpenSession starts a session and returns its first snapshot.
func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var req openSessionRequest
	if err := decodeJSON(w, r, s.opts.MaxBodyBytes, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	mode, err := core.ParseMode(req.Mode)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	snap, err := s.service.OpenSession(r.Context(), req.Table, mode)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/sessions/"+snap.ID)
	writeJSONStatus(w, http.StatusCreated, snap)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s.respondSnapshot(w, r)(s.service.Snapshot(sessionID(r)))
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if err := s.service.CloseSession(sessionID(r)); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpdateCell(w http.ResponseWriter, r *http.Request) {
	var req updateCellRequest
	if err := decodeJSON(w, r, s.opts.MaxBodyBytes, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondSnapshot(w, r)(s.service.UpdateCell(sessionID(r), req.Row, req.Column, req.Value))
}

func (s *Server) handleSetActiveCell(w http.ResponseWriter, r *http.Request) {
	var req focusRequest
	if err := decodeJSON(w, r, s.opts.MaxBodyBytes, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondSnapshot(w, r)(s.service.SetActiveCell(sessionID(r), req.Row, req.Column))
}

func (s *Server) handleClearActiveCell(w http.ResponseWriter, r *http.Request) {
	s.respondSnapshot(w, r)(s.service.ClearActiveCell(sessionID(r)))
}

// handlePaste applies clipboard text. The body is either raw text or
// {"text": "..."}.
func (s *Server) handlePaste(w http.ResponseWriter, r *http.Request) {
	text, err := s.readClipboard(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	snap, res, err := s.service.Paste(sessionID(r), text)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, pasteResponse{Snapshot: snap, Paste: summarize(res)})
}

// handleImport replaces the session's rows with delimited text.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	text, err := s.readClipboard(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondSnapshot(w, r)(s.service.Import(sessionID(r), text))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.respondSnapshot(w, r)(s.service.Reset(sessionID(r)))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.respondSnapshot(w, r)(s.service.Refresh(r.Context(), sessionID(r)))
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	res, err := s.service.Save(r.Context(), sessionID(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, res)
}

// respondSnapshot writes the snapshot, or the error, of a service call.
func (s *Server) respondSnapshot(w http.ResponseWriter, r *http.Request) func(core.SessionSnapshot, error) {
	return func(snap core.SessionSnapshot, err error) {
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		writeJSON(w, r, snap)
	}
}

func (s *Server) readClipboard(w http.ResponseWriter, r *http.Request) (string, error) {
	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "application/json" {
		var req textRequest
		if err := decodeJSON(w, r, s.opts.MaxBodyBytes, &req); err != nil {
			return "", err
		}
		return req.Text, nil
	}
	return readText(w, r, s.opts.MaxBodyBytes)
}

func summarize(res grid.PasteResult) pasteSummary {
	touched := res.Touched
	if touched == nil {
		touched = []string{}
	}
	return pasteSummary{
		Kind:            res.Kind.String(),
		Touched:         touched,
		IdentityChanged: res.IdentityChanged,
		Created:         res.Created,
	}
}
