package web

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/folio-press/folio/internal/editor"
	"github.com/folio-press/folio/internal/eventbus"
)

// handleEditorSettings serves GET and PUT /api/editor/settings.
func (s *Server) handleEditorSettings(w http.ResponseWriter, r *http.Request) {
	if !s.authorizeRequest(r) {
		writeAPIError(w, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, editor.LoadSettings(r.Context(), s.cfg.Store))

	case http.MethodPut:
		r.Body = http.MaxBytesReader(w, r.Body, 64*1024)
		settings := editor.DefaultSettings()
		if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
			writeAPIError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON")
			return
		}
		if err := editor.SaveSettings(r.Context(), s.cfg.Store, settings); err != nil {
			webLog.Error("editor_settings_save_failed", slog.String("error", err.Error()))
			writeAPIError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to save settings")
			return
		}
		s.eventBus.Emit(eventbus.Event{Type: eventbus.EventSettingsChanged, Data: settings})
		writeJSON(w, http.StatusOK, settings)

	default:
		writeAPIError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	}
}

type keystrokeRequest struct {
	Key         string `json:"key"`
	Text        string `json:"text"`
	Caret       int    `json:"caret"`
	InCodeBlock bool   `json:"inCodeBlock"`
}

type keystrokeResponse struct {
	Handled bool   `json:"handled"`
	Insert  string `json:"insert"`
	At      int    `json:"at"`
	Caret   int    `json:"caret"`
	Text    string `json:"text"`
}

// handleKeystroke serves POST /api/editor/keystroke. It runs one transition
// of the code-block state machine with the stored settings. Keys the state
// machine does not know pass through. Caret and at are UTF-16 code unit
// offsets.
func (s *Server) handleKeystroke(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeAPIError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	if !s.authorizeRequest(r) {
		writeAPIError(w, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req keystrokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON")
		return
	}

	// Offsets on the wire are UTF-16 code units, as browsers count them.
	st := editor.State{
		InCodeBlock: req.InCodeBlock,
		Text:        req.Text,
		Caret:       editor.ByteOffset(req.Text, req.Caret),
	}
	resp := keystrokeResponse{Caret: req.Caret, Text: req.Text}

	key, err := editor.ParseKey(req.Key)
	if err != nil {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	action := editor.Transition(key, st, editor.LoadSettings(r.Context(), s.cfg.Store))
	if action.IsHandled() {
		next := editor.Apply(st, action.Mutation)
		resp = keystrokeResponse{
			Handled: true,
			Insert:  action.Mutation.Insert,
			At:      editor.UTF16Offset(st.Text, action.Mutation.At),
			Caret:   editor.UTF16Offset(next.Text, next.Caret),
			Text:    next.Text,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
