package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/dunamismax/artifactkit/internal/domain"
)

const notePasswordHeader = "X-Note-Password"

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	hist, err := s.history.Get(r.PathValue("collection"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	records, err := hist.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if records == nil {
		records = []domain.HistoryRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"collection": hist.Key(), "records": records})
}

func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	hist, err := s.history.Get(r.PathValue("collection"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	recordID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: record id must be an integer", errBadRequest))
		return
	}
	if err := hist.Delete(r.Context(), recordID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	hist, err := s.history.Get(r.PathValue("collection"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := hist.Clear(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetNote(w http.ResponseWriter, r *http.Request) {
	note, err := s.tools.Notepad.Load(r.Context(), r.PathValue("site"), r.Header.Get(notePasswordHeader))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// putNoteRequest replaces the note. NewPassword, when present, re-seals the
// note after saving ("" removes protection).
type putNoteRequest struct {
	Windows     []string `json:"windows"`
	NewPassword *string  `json:"new_password,omitempty"`
}

func (s *Server) handlePutNote(w http.ResponseWriter, r *http.Request) {
	var req putNoteRequest
	if err := decodeJSONLimit(r, &req, 4<<20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	site := r.PathValue("site")
	current := r.Header.Get(notePasswordHeader)

	note, err := s.tools.Notepad.Save(r.Context(), site, req.Windows, current)
	if err == nil && req.NewPassword != nil && *req.NewPassword != current {
		note, err = s.tools.Notepad.SetPassword(r.Context(), site, current, *req.NewPassword)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := s.tools.Notepad.Delete(r.Context(), r.PathValue("site"), r.Header.Get(notePasswordHeader)); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListNotifications(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"notifications": s.notices.Active()})
}

func (s *Server) handleDismissNotification(w http.ResponseWriter, r *http.Request) {
	if !s.notices.Dismiss(r.PathValue("id")) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "notification not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
