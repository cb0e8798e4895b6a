package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/hubro-apparatus/hubro/pkg/hierarchy"
)

func metricCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("counter Write() error: %v", err)
	}
	if m.Counter == nil {
		t.Fatal("expected counter metric to have Counter field")
	}
	return m.GetCounter().GetValue()
}

func metricGaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("gauge Write() error: %v", err)
	}
	if m.Gauge == nil {
		t.Fatal("expected gauge metric to have Gauge field")
	}
	return m.GetGauge().GetValue()
}

func metricHistogramCount(t *testing.T, o prometheus.Observer) uint64 {
	t.Helper()
	metric, ok := o.(prometheus.Metric)
	if !ok {
		t.Fatalf("observer %T does not implement prometheus.Metric", o)
	}
	var m dto.Metric
	if err := metric.Write(&m); err != nil {
		t.Fatalf("histogram Write() error: %v", err)
	}
	if m.Histogram == nil {
		t.Fatal("expected histogram metric to have Histogram field")
	}
	return m.GetHistogram().GetSampleCount()
}

func TestMetricsMiddlewareUsesRoutePattern(t *testing.T) {
	m := NewMetrics(WithRegistry(prometheus.NewRegistry()))

	mux := chi.NewRouter()
	mux.Use(m.Middleware())
	mux.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	for _, id := range []string{"1", "2", "3"} {
		mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/"+id, nil))
	}
	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	if got := metricCounterValue(t, m.requestsTotal.WithLabelValues("/items/{id}", "GET", "201")); got != 3 {
		t.Fatalf("http_requests_total(/items/{id})=%v, want 3", got)
	}
	if got := metricCounterValue(t, m.requestsTotal.WithLabelValues("unmatched", "GET", "404")); got != 1 {
		t.Fatalf("http_requests_total(unmatched)=%v, want 1", got)
	}
	if got := metricHistogramCount(t, m.requestDuration.WithLabelValues("/items/{id}", "GET")); got != 3 {
		t.Fatalf("http_request_duration_seconds count=%v, want 3", got)
	}
	if got := metricGaugeValue(t, m.inFlight); got != 0 {
		t.Fatalf("http_requests_in_flight=%v, want 0", got)
	}
}

func TestMetricsDefaultStatus(t *testing.T) {
	m := NewMetrics(WithRegistry(prometheus.NewRegistry()))
	h := m.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got := metricCounterValue(t, m.requestsTotal.WithLabelValues("unmatched", "GET", "200")); got != 1 {
		t.Fatalf("http_requests_total(200)=%v, want 1", got)
	}
}

func TestMetricsRecordFunctions(t *testing.T) {
	m := NewMetrics(WithRegistry(prometheus.NewRegistry()), WithNamespace("test"))

	m.RecordHierarchy(map[hierarchy.Kind]int{hierarchy.KindPage: 4, hierarchy.KindAPI: 1})
	m.RecordRouteFailure(hierarchy.RolePage)
	m.RecordRouteFailure(hierarchy.RolePage)
	m.RecordRebuild(nil)
	m.RecordRebuild(errors.New("boom"))

	if got := metricGaugeValue(t, m.entries.WithLabelValues("page")); got != 4 {
		t.Fatalf("hierarchy_entries(page)=%v, want 4", got)
	}
	if got := metricGaugeValue(t, m.entries.WithLabelValues("client")); got != 0 {
		t.Fatalf("hierarchy_entries(client)=%v, want 0", got)
	}
	if got := metricCounterValue(t, m.routeFailures.WithLabelValues("page")); got != 2 {
		t.Fatalf("route_failures_total(page)=%v, want 2", got)
	}
	if got := metricCounterValue(t, m.rebuildsTotal.WithLabelValues("error")); got != 1 {
		t.Fatalf("hierarchy_rebuilds_total(error)=%v, want 1", got)
	}
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics(WithRegistry(prometheus.NewRegistry()))
	m.RecordRouteFailure(hierarchy.RoleAction)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/_/metrics", nil))

	if !strings.Contains(w.Body.String(), `hubro_route_failures_total{role="action"} 1`) {
		t.Errorf("metrics output missing counter:\n%s", w.Body.String())
	}
}
