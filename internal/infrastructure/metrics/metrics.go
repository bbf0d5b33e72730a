// Package metrics exposes Prometheus collectors for the OAuth flow, chat relay and HTTP layer.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"shopify-support-chat/internal/domain"
	"shopify-support-chat/internal/ports"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shopify_support_chat"

// Metrics groups all collectors registered by the service.
type Metrics struct {
	registry *prometheus.Registry

	flowTransitions  *prometheus.CounterVec
	oauthOutcomes    *prometheus.CounterVec
	exchangeDuration *prometheus.HistogramVec
	chatOutcomes     *prometheus.CounterVec

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpInflight        prometheus.Gauge
}

var _ ports.FlowMetrics = (*Metrics)(nil)

// New creates the collectors on a private registry, including Go and process collectors.
func New() (*Metrics, error) {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		flowTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oauth_flow_transitions_total",
			Help:      "OAuth flow state transitions.",
		}, []string{"state"}),
		oauthOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oauth_outcomes_total",
			Help:      "Completed OAuth callbacks by outcome.",
		}, []string{"outcome"}),
		exchangeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "oauth_token_exchange_duration_seconds",
			Help:      "Latency of the authorization-code token exchange.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15, 30},
		}, []string{"result"}),
		chatOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_requests_total",
			Help:      "Chat relay requests by outcome.",
		}, []string{"outcome"}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests processed.",
		}, []string{"method", "route", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		httpInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_inflight_requests",
			Help:      "HTTP requests currently being served.",
		}),
	}

	for _, c := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.flowTransitions,
		m.oauthOutcomes,
		m.exchangeDuration,
		m.chatOutcomes,
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.httpInflight,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// TrackPendingStates registers a gauge reading the number of pending
// authorization attempts from pending on every scrape.
func (m *Metrics) TrackPendingStates(pending func() int) error {
	return m.registry.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "oauth_pending_states",
		Help:      "Authorization attempts waiting for their callback.",
	}, func() float64 { return float64(pending()) }))
}

func (m *Metrics) FlowTransition(state domain.FlowState) {
	m.flowTransitions.WithLabelValues(string(state)).Inc()
}

func (m *Metrics) OAuthOutcome(outcome string) {
	m.oauthOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveExchange(elapsed time.Duration, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	m.exchangeDuration.WithLabelValues(result).Observe(elapsed.Seconds())
}

func (m *Metrics) ChatOutcome(outcome string) {
	m.chatOutcomes.WithLabelValues(outcome).Inc()
}

// Middleware instruments requests, labelling them by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.httpInflight.Inc()
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			m.httpInflight.Dec()
			method := strings.ToUpper(r.Method)
			route := routePattern(r)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.httpRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
		}()

		next.ServeHTTP(ww, r)
	})
}

// routePattern keeps label cardinality bounded for unmatched paths.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
