package router

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/elnormous/contenttype"

	"github.com/hubro-apparatus/hubro/pkg/middleware"
	"github.com/hubro-apparatus/hubro/pkg/module"
	"github.com/hubro-apparatus/hubro/pkg/render"
	"github.com/hubro-apparatus/hubro/pkg/server"
)

// Reporter receives server errors, such as an error tracking service.
type Reporter interface {
	Report(ctx context.Context, r *http.Request, err error)
}

// errorHandler is the single place request errors turn into responses.
type errorHandler struct {
	log       *slog.Logger
	srv       *server.Server
	composer  *render.Composer
	document  module.DocumentHandler
	notFound  module.PageHandler
	errorPage module.PageHandler
	reporter  Reporter
}

func (h *errorHandler) handle(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	status := server.StatusOf(err)

	if status >= 500 {
		h.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
		if h.reporter != nil {
			h.reporter.Report(ctx, r, err)
		}
	} else {
		h.log.Debug("request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}

	if committed(w) {
		h.log.Error("response already committed, output truncated", "path", r.URL.Path, "error", err)
		return
	}

	switch negotiate(r) {
	case typeOf(mediaHTML):
		if err := h.renderPage(w, r, status); err != nil {
			h.log.Error("error page failed", "status", status, "error", err)
			if !committed(w) {
				writePlain(w, status)
			}
		}
	case typeOf(mediaJSON):
		w.Header().Set("Content-Type", server.TypeJSON)
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(struct {
			Error  bool `json:"error"`
			Status int  `json:"status"`
		}{true, status})
	default:
		writePlain(w, status)
	}
}

func (h *errorHandler) renderPage(w http.ResponseWriter, r *http.Request, status int) error {
	page := h.errorPage
	if status == http.StatusNotFound {
		page = h.notFound
	}

	header := render.NewHeader()
	ctx := render.WithHeader(r.Context(), header)

	req, err := server.NewRequest(r, nil, middleware.RequestIDFrom(ctx))
	if err != nil {
		return err
	}
	res := server.NewResponse()
	res.SetStatus(status)

	view, err := page(ctx, server.Args{Request: req, Response: res, Server: h.srv})
	if err != nil {
		return err
	}
	shell := h.document(view, header)

	w.Header().Set("Content-Type", server.TypeHTML)
	w.WriteHeader(status)
	return h.composer.Stream(ctx, w, shell)
}

func writePlain(w http.ResponseWriter, status int) {
	msg := "Internal server error"
	if status < 500 {
		msg = http.StatusText(status)
	}
	w.Header().Set("Content-Type", server.TypeText)
	w.WriteHeader(status)
	fmt.Fprint(w, msg)
}

var (
	mediaHTML = contenttype.NewMediaType("text/html")
	mediaJSON = contenttype.NewMediaType("application/json")
	mediaText = contenttype.NewMediaType("text/plain")
)

// negotiate picks the error representation for r from its Accept header,
// returning "type/subtype". Only GET requests can get an HTML page. A
// missing header picks the first candidate, an unsatisfiable or malformed
// one falls back to plain text.
func negotiate(r *http.Request) string {
	available := []contenttype.MediaType{mediaJSON, mediaText}
	if r.Method == http.MethodGet {
		available = []contenttype.MediaType{mediaHTML, mediaJSON, mediaText}
	}
	mt, _, err := contenttype.GetAcceptableMediaType(r, available)
	if err != nil {
		return typeOf(mediaText)
	}
	return typeOf(mt)
}

func typeOf(mt contenttype.MediaType) string {
	return mt.Type + "/" + mt.Subtype
}

// trackingWriter records whether anything reached the client.
type trackingWriter struct {
	http.ResponseWriter
	committed bool
}

func (w *trackingWriter) WriteHeader(code int) {
	w.committed = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *trackingWriter) Write(b []byte) (int, error) {
	w.committed = true
	return w.ResponseWriter.Write(b)
}

func (w *trackingWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		w.committed = true
		f.Flush()
	}
}

func (w *trackingWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func committed(w http.ResponseWriter) bool {
	tw, ok := w.(*trackingWriter)
	return ok && tw.committed
}
