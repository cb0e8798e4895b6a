package server

import (
	"context"
	"net/http"
	"net/url"
)

// Request is a read only view of the inbound request.
type Request struct {
	url    *url.URL
	header http.Header
	method string
	params map[string]string
	form   url.Values
	id     string
	raw    *http.Request
}

// NewRequest builds a Request from r. For POST, PUT and DELETE the body is
// parsed as a form; a malformed body is a 400.
func NewRequest(r *http.Request, params map[string]string, id string) (*Request, error) {
	u := *r.URL
	u.Host = r.Host
	u.Scheme = "http"
	if r.TLS != nil {
		u.Scheme = "https"
	}

	if params == nil {
		params = map[string]string{}
	}

	req := &Request{
		url:    &u,
		header: r.Header.Clone(),
		method: r.Method,
		params: params,
		id:     id,
		raw:    r,
	}

	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodDelete:
		if err := r.ParseForm(); err != nil {
			return nil, BadRequest(err)
		}
		req.form = make(url.Values, len(r.PostForm))
		for k, v := range r.PostForm {
			req.form[k] = append([]string(nil), v...)
		}
	}
	return req, nil
}

// URL returns the absolute request URL.
func (r *Request) URL() *url.URL {
	u := *r.url
	return &u
}

// Header returns a copy of the request headers.
func (r *Request) Header() http.Header { return r.header.Clone() }

// Method returns the upper case request method.
func (r *Request) Method() string { return r.method }

// ID is the request id assigned by the request id middleware.
func (r *Request) ID() string { return r.id }

// Params returns a copy of the route parameters.
func (r *Request) Params() map[string]string {
	out := make(map[string]string, len(r.params))
	for k, v := range r.params {
		out[k] = v
	}
	return out
}

// Param returns one route parameter.
func (r *Request) Param(name string) string { return r.params[name] }

// Form returns the parsed body of a POST, PUT or DELETE, nil otherwise.
func (r *Request) Form() url.Values {
	if r.form == nil {
		return nil
	}
	out := make(url.Values, len(r.form))
	for k, v := range r.form {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Context returns the request context.
func (r *Request) Context() context.Context { return r.raw.Context() }

// HTTP returns the underlying request. Handlers that read the body
// directly use it.
func (r *Request) HTTP() *http.Request { return r.raw }
