package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ranpulse"

// Metrics exposes application metrics that are safe to scrape via Prometheus.
type Metrics struct {
	registry            *prometheus.Registry
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	sourcePolls         *prometheus.CounterVec
	sourceFallbacks     *prometheus.CounterVec
	pollDuration        *prometheus.HistogramVec
	livefeedClients     prometheus.Gauge
	chatRequests        *prometheus.CounterVec
	probes              *prometheus.CounterVec
}

// New creates a fresh Metrics registry with HTTP, polling, live feed and chat
// metrics registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Count of HTTP requests processed by core-go",
	}, []string{"method", "path", "status"})

	httpRequestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests served by core-go",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	sourcePolls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "source_polls_total",
		Help:      "Data source fetches by stream, source kind and result",
	}, []string{"stream", "source", "result"})

	sourceFallbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "source_fallbacks_total",
		Help:      "Fetches served by a fallback source after the primary failed",
	}, []string{"stream"})

	pollDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "poll_duration_seconds",
		Help:      "Duration of one poll cycle per stream",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"stream"})

	livefeedClients := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "livefeed_clients",
		Help:      "Connected live feed websocket clients",
	})

	chatRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "chat_requests_total",
		Help:      "Chat requests forwarded to the assistant service by result",
	}, []string{"result"})

	probes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "oam_probes_total",
		Help:      "Tower reachability probes by result",
	}, []string{"result"})

	registry.MustRegister(
		httpRequests,
		httpRequestDuration,
		sourcePolls,
		sourceFallbacks,
		pollDuration,
		livefeedClients,
		chatRequests,
		probes,
	)

	return &Metrics{
		registry:            registry,
		httpRequests:        httpRequests,
		httpRequestDuration: httpRequestDuration,
		sourcePolls:         sourcePolls,
		sourceFallbacks:     sourceFallbacks,
		pollDuration:        pollDuration,
		livefeedClients:     livefeedClients,
		chatRequests:        chatRequests,
		probes:              probes,
	}
}

// ObserveHTTPRequest records a single HTTP request/response cycle.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(status),
	}
	m.httpRequests.With(labels).Inc()
	m.httpRequestDuration.With(labels).Observe(duration.Seconds())
}

// ObserveSourcePoll counts one fetch against a data source. result is "ok" or
// "error".
func (m *Metrics) ObserveSourcePoll(stream, source, result string) {
	if m == nil {
		return
	}
	m.sourcePolls.WithLabelValues(stream, source, result).Inc()
}

// IncSourceFallback counts a fetch answered by the fallback source.
func (m *Metrics) IncSourceFallback(stream string) {
	if m == nil {
		return
	}
	m.sourceFallbacks.WithLabelValues(stream).Inc()
}

// ObservePollDuration observes one poll cycle for stream.
func (m *Metrics) ObservePollDuration(stream string, duration time.Duration) {
	if m == nil {
		return
	}
	m.pollDuration.WithLabelValues(stream).Observe(duration.Seconds())
}

// SetLivefeedClients sets the connected websocket client gauge.
func (m *Metrics) SetLivefeedClients(n int) {
	if m == nil {
		return
	}
	m.livefeedClients.Set(float64(n))
}

func (m *Metrics) IncChatRequest(result string) {
	if m == nil {
		return
	}
	m.chatRequests.WithLabelValues(result).Inc()
}

func (m *Metrics) IncProbe(result string) {
	if m == nil {
		return
	}
	m.probes.WithLabelValues(result).Inc()
}

// Handler exposes the Prometheus registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("metrics unavailable"))
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
