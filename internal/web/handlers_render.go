package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/folio-press/folio/internal/content"
	"github.com/folio-press/folio/internal/highlight"
	"github.com/folio-press/folio/internal/render"
	"github.com/folio-press/folio/internal/sanitize"
)

const maxBodyBytes = 2 * 1024 * 1024

type renderRequest struct {
	Content *string        `json:"content"`
	Format  content.Format `json:"format"`
}

type htmlResponse struct {
	HTML string `json:"html"`
}

// handleRender serves POST /api/render. The response is mounted (code
// blocks highlighted) unless the request carries ?mount=false.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeAPIError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	if !s.authorizeRequest(r) {
		writeAPIError(w, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req renderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if errors.Is(err, content.ErrUnknownFormat) {
			writeAPIError(w, http.StatusBadRequest, "UNKNOWN_FORMAT", err.Error())
			return
		}
		writeAPIError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON")
		return
	}
	if req.Format == "" {
		writeAPIError(w, http.StatusBadRequest, "INVALID_REQUEST", "format is required")
		return
	}

	var out render.Markup
	if r.URL.Query().Get("mount") == "false" {
		out = s.renderer.Render(req.Content, req.Format)
	} else {
		out = s.renderer.RenderPage(req.Content, req.Format)
	}
	writeJSON(w, http.StatusOK, htmlResponse{HTML: string(out)})
}

// handleSanitize serves POST /api/sanitize.
func (s *Server) handleSanitize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeAPIError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	if !s.authorizeRequest(r) {
		writeAPIError(w, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req struct {
		HTML string `json:"html"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON")
		return
	}
	writeJSON(w, http.StatusOK, htmlResponse{HTML: sanitize.Sanitize(req.HTML)})
}

// handleHighlightCSS serves the minified stylesheet for highlighted code
// blocks and bracket depths. It is regenerated per request because the
// style can change on config reload.
func (s *Server) handleHighlightCSS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	css, err := highlight.MinifiedCSS()
	if err != nil {
		webLog.Warn("highlight_css_minify_failed", slog.String("error", err.Error()))
		css = highlight.Stylesheet()
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(css))
}
