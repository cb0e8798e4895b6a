package render

import (
	"context"
	"sync"
)

// Header accumulates what goes in the document head for one request.
// Route handlers add to it before the document renders. It is safe for
// concurrent use so fragment producers may set values too.
type Header struct {
	mu      sync.Mutex
	title   string
	lang    string
	scripts []string
	styles  []string
}

// NewHeader returns an empty header.
func NewHeader() *Header {
	return &Header{}
}

func (h *Header) SetTitle(title string) {
	h.mu.Lock()
	h.title = title
	h.mu.Unlock()
}

func (h *Header) Title() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.title
}

func (h *Header) SetLang(lang string) {
	h.mu.Lock()
	h.lang = lang
	h.mu.Unlock()
}

func (h *Header) Lang() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lang
}

// SetScript adds a module script. Adding the same src twice is a no-op.
func (h *Header) SetScript(src string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.scripts = appendUnique(h.scripts, src)
}

// Scripts returns the script sources in insertion order.
func (h *Header) Scripts() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.scripts...)
}

// SetStyle adds a stylesheet. Adding the same href twice is a no-op.
func (h *Header) SetStyle(href string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.styles = appendUnique(h.styles, href)
}

// Styles returns the stylesheet hrefs in insertion order.
func (h *Header) Styles() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.styles...)
}

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}

type headerKey struct{}

// WithHeader returns a context carrying h.
func WithHeader(ctx context.Context, h *Header) context.Context {
	return context.WithValue(ctx, headerKey{}, h)
}

// HeaderFrom returns the header attached to ctx.
func HeaderFrom(ctx context.Context) (*Header, bool) {
	h, ok := ctx.Value(headerKey{}).(*Header)
	return h, ok && h != nil
}
