package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHandler_nilMetrics(t *testing.T) {
	var m *Metrics
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	m.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	if got := rr.Body.String(); !strings.Contains(got, "metrics unavailable") {
		t.Fatalf("expected body to mention metrics unavailable, got %q", got)
	}
}

func TestNilMetrics_helpersAreNoops(t *testing.T) {
	var m *Metrics
	m.ObserveHTTPRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
	m.ObserveSourcePoll("towers", "json", "ok")
	m.IncSourceFallback("towers")
	m.ObservePollDuration("towers", time.Second)
	m.SetLivefeedClients(3)
	m.IncChatRequest("ok")
	m.IncProbe("reachable")
}

func TestHandler_exposesRegisteredMetrics(t *testing.T) {
	m := New()
	m.ObserveHTTPRequest(http.MethodGet, "/readyz", http.StatusOK, 12*time.Millisecond)
	m.ObserveSourcePoll("anomalies", "json", "error")
	m.IncSourceFallback("anomalies")
	m.ObservePollDuration("towers", 40*time.Millisecond)
	m.SetLivefeedClients(2)
	m.IncChatRequest("fallback")

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	m.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	body := rr.Body.String()
	if !strings.Contains(body, "ranpulse_http_requests_total{method=\"GET\",path=\"/readyz\",status=\"200\"} 1") {
		t.Fatalf("expected labeled request counter to be incremented; body=%s", body)
	}
	if !strings.Contains(body, "ranpulse_source_polls_total{result=\"error\",source=\"json\",stream=\"anomalies\"} 1") {
		t.Fatalf("expected source poll counter; body=%s", body)
	}
	if !strings.Contains(body, "ranpulse_source_fallbacks_total{stream=\"anomalies\"} 1") {
		t.Fatalf("expected fallback counter; body=%s", body)
	}
	if !strings.Contains(body, "ranpulse_poll_duration_seconds_count{stream=\"towers\"} 1") {
		t.Fatalf("expected poll duration histogram to have one observation; body=%s", body)
	}
	if !strings.Contains(body, "ranpulse_livefeed_clients 2") {
		t.Fatalf("expected livefeed gauge; body=%s", body)
	}
	if !strings.Contains(body, "ranpulse_chat_requests_total{result=\"fallback\"} 1") {
		t.Fatalf("expected chat counter; body=%s", body)
	}
}
