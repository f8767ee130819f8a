package web

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/synox/telewall/internal/callstate"
	"github.com/synox/telewall/internal/database/models"
	"github.com/synox/telewall/internal/number"
)

// maxBodyBytes bounds request bodies; the API only ever receives small
// JSON documents.
const maxBodyBytes = 64 * 1024

// decodeJSON reads one JSON document from the request body. Returns an
// error message for the client, empty string when OK.
func decodeJSON(r *http.Request, dst any) string {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return "invalid request body"
	}
	return ""
}

// blockedCallerResponse is the JSON shape of one block list entry.
type blockedCallerResponse struct {
	TelephoneNumber string `json:"telephone_number"`
	Comment         string `json:"comment,omitempty"`
	Source          string `json:"source"`
	Created         string `json:"created"`
}

func toBlockedCallerResponse(e *models.BlockedCaller) blockedCallerResponse {
	return blockedCallerResponse{
		TelephoneNumber: e.TelephoneNumber,
		Comment:         e.Comment,
		Source:          e.Source,
		Created:         e.Created.Format(time.RFC3339),
	}
}

// handleListBlockedCallers returns block list entries with pagination and
// an optional search filter. Query params: search, limit, offset.
func (s *Server) handleListBlockedCallers(w http.ResponseWriter, r *http.Request) {
	pg, errMsg := parsePagination(r)
	if errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}
	search := r.URL.Query().Get("search")

	entries, err := s.blocklist.List(r.Context(), search, pg.Offset, pg.Limit)
	if err != nil {
		s.logger.Error("listing blocked callers failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	total, err := s.blocklist.Count(r.Context(), search)
	if err != nil {
		s.logger.Error("counting blocked callers failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	items := make([]blockedCallerResponse, len(entries))
	for i := range entries {
		items[i] = toBlockedCallerResponse(&entries[i])
	}
	writeJSON(w, http.StatusOK, listResponse{Items: items, Total: total, Limit: pg.Limit, Offset: pg.Offset})
}

// handleBlockCaller adds a number to the block list.
func (s *Server) handleBlockCaller(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TelephoneNumber string `json:"telephone_number"`
		Comment         string `json:"comment"`
	}
	if msg := decodeJSON(r, &req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	n := number.ParseValidated(req.TelephoneNumber)
	if !n.Valid || n.Anonymous() {
		writeError(w, http.StatusBadRequest, "telephone_number is not a valid phone number")
		return
	}

	entry := &models.BlockedCaller{
		TelephoneNumber: n.Full,
		Comment:         req.Comment,
		Source:          models.SourceUser,
	}
	if err := s.blocklist.Block(r.Context(), entry); err != nil {
		s.logger.Error("blocking caller failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	stored, err := s.blocklist.Find(r.Context(), n.Full)
	if err != nil || stored == nil {
		// Insert succeeded; answer with what was sent.
		stored = entry
	}
	writeJSON(w, http.StatusCreated, toBlockedCallerResponse(stored))
}

// handleGetBlockedCaller returns one block list entry.
func (s *Server) handleGetBlockedCaller(w http.ResponseWriter, r *http.Request) {
	n := number.Parse(chi.URLParam(r, "number"))

	entry, err := s.blocklist.Find(r.Context(), n.Full)
	if err != nil {
		s.logger.Error("reading blocked caller failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if entry == nil {
		writeError(w, http.StatusNotFound, "number is not blocked")
		return
	}
	writeJSON(w, http.StatusOK, toBlockedCallerResponse(entry))
}

// handleUnblockCaller removes a number from the block list.
func (s *Server) handleUnblockCaller(w http.ResponseWriter, r *http.Request) {
	n := number.Parse(chi.URLParam(r, "number"))

	if err := s.blocklist.Unblock(r.Context(), n.Full); err != nil {
		s.logger.Error("unblocking caller failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// callRecordResponse is the JSON shape of one call history entry.
type callRecordResponse struct {
	ID         int64   `json:"id"`
	Src        string  `json:"src"`
	CallerName string  `json:"caller_name,omitempty"`
	StartTime  string  `json:"start_time"`
	EndTime    *string `json:"end_time"`
	Duration   int     `json:"duration"`
	State      string  `json:"state"`
	Blocked    bool    `json:"blocked"`
	Missed     bool    `json:"missed"`
}

func toCallRecordResponse(rec *models.CallRecord) callRecordResponse {
	resp := callRecordResponse{
		ID:         rec.ID,
		Src:        rec.Src,
		CallerName: rec.CallerName,
		StartTime:  rec.StartTime.Format(time.RFC3339),
		Duration:   rec.Duration,
		State:      rec.State,
		Blocked:    rec.Blocked,
		Missed:     rec.Missed(),
	}
	if rec.EndTime != nil {
		s := rec.EndTime.Format(time.RFC3339)
		resp.EndTime = &s
	}
	return resp
}

// handleListCallHistory returns call records, newest first. Query params:
// number, limit, offset.
func (s *Server) handleListCallHistory(w http.ResponseWriter, r *http.Request) {
	pg, errMsg := parsePagination(r)
	if errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}
	filter := r.URL.Query().Get("number")

	records, err := s.history.List(r.Context(), filter, pg.Offset, pg.Limit)
	if err != nil {
		s.logger.Error("listing call history failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	total, err := s.history.Count(r.Context(), filter)
	if err != nil {
		s.logger.Error("counting call history failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	items := make([]callRecordResponse, len(records))
	for i := range records {
		items[i] = toCallRecordResponse(&records[i])
	}
	writeJSON(w, http.StatusOK, listResponse{Items: items, Total: total, Limit: pg.Limit, Offset: pg.Offset})
}

// lineStateResponse describes the active line.
type lineStateResponse struct {
	State        string `json:"state"`
	CallerNumber string `json:"caller_number,omitempty"`
	CallerName   string `json:"caller_name,omitempty"`
}

// handleLineState returns the current line state and caller.
func (s *Server) handleLineState(w http.ResponseWriter, r *http.Request) {
	snap := s.broadcaster.Current()
	writeJSON(w, http.StatusOK, lineStateResponse{
		State:        string(snap.State),
		CallerNumber: snap.Caller.Full,
		CallerName:   snap.Caller.Name,
	})
}

// handleLineRefuse blocks and disconnects the active caller, like the
// hardware button does.
func (s *Server) handleLineRefuse(w http.ResponseWriter, r *http.Request) {
	if s.broadcaster.Current().State != callstate.Connected {
		writeError(w, http.StatusConflict, "no active call")
		return
	}
	s.broadcaster.RefuseIfConnected()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "refusing"})
}
