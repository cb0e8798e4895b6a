package server

import "net/http"

// Default content types per route role.
const (
	TypeHTML = "text/html; charset=utf-8"
	TypeJSON = "application/json; charset=utf-8"
	TypeText = "text/plain; charset=utf-8"
)

// Response accumulates what handlers and middleware want sent. It is owned
// by a single request and is not safe for concurrent use.
type Response struct {
	status   int
	typ      string
	location string
	header   http.Header
	context  any
}

// NewResponse returns a 200 text/html response.
func NewResponse() *Response {
	return &Response{
		status: http.StatusOK,
		typ:    TypeHTML,
		header: make(http.Header),
	}
}

func (r *Response) Status() int { return r.status }
func (r *Response) SetStatus(status int) { r.status = status }

func (r *Response) Type() string { return r.typ }
func (r *Response) SetType(t string) { r.typ = t }

// Location is the redirect target of an action.
func (r *Response) Location() string { return r.location }
func (r *Response) SetLocation(location string) { r.location = location }

// Header returns the accumulated response headers. They are copied to the
// reply before the body is written.
func (r *Response) Header() http.Header { return r.header }

// Context is the value returned by the route middleware.
func (r *Response) Context() any { return r.context }
func (r *Response) SetContext(v any) { r.context = v }

// CopyHeaders copies the accumulated headers onto w.
func (r *Response) CopyHeaders(w http.ResponseWriter) {
	dst := w.Header()
	for k, v := range r.header {
		dst[k] = append([]string(nil), v...)
	}
}

// Args are passed to every middleware and handler.
type Args struct {
	Request  *Request
	Response *Response
	Server   *Server
}
