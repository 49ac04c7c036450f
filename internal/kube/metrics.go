package kube

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/client-go/rest"
)

// APIRequestStats accumulates round-trip latency of API requests. The zero
// value is not usable; a nil *APIRequestStats records nothing.
type APIRequestStats struct {
	mu     sync.Mutex
	count  int
	failed int
	total  time.Duration
	max    time.Duration
}

// APIRequestMetrics is a point-in-time copy of APIRequestStats.
type APIRequestMetrics struct {
	Count  int
	Failed int
	Total  time.Duration
	Max    time.Duration
}

func NewAPIRequestStats() *APIRequestStats {
	return &APIRequestStats{}
}

func (s *APIRequestStats) observe(d time.Duration, failed bool) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.count++
	if failed {
		s.failed++
	}
	s.total += d
	if d > s.max {
		s.max = d
	}
	s.mu.Unlock()
}

func (s *APIRequestStats) Snapshot() APIRequestMetrics {
	if s == nil {
		return APIRequestMetrics{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return APIRequestMetrics{Count: s.count, Failed: s.failed, Total: s.total, Max: s.max}
}

func (m APIRequestMetrics) Avg() time.Duration {
	if m.Count == 0 {
		return 0
	}
	return time.Duration(int64(m.Total) / int64(m.Count))
}

// Log writes the summary at V(1). Follow-mode log requests count once, with
// the time to first response.
func (m APIRequestMetrics) Log(log logr.Logger) {
	log.V(1).Info("kubernetes api requests",
		"count", m.Count,
		"failed", m.Failed,
		"avg", m.Avg().String(),
		"max", m.Max.String())
}

type apiMetricsRoundTripper struct {
	base  http.RoundTripper
	stats *APIRequestStats
}

func (rt *apiMetricsRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	base := rt.base
	if base == nil {
		base = http.DefaultTransport
	}
	start := time.Now()
	resp, err := base.RoundTrip(req)
	failed := err != nil || (resp != nil && resp.StatusCode >= http.StatusBadRequest)
	rt.stats.observe(time.Since(start), failed)
	return resp, err
}

// AttachAPITelemetry wraps the REST config transport to capture API latency.
func AttachAPITelemetry(cfg *rest.Config, stats *APIRequestStats) {
	if cfg == nil || stats == nil {
		return
	}
	wrap := cfg.WrapTransport
	cfg.WrapTransport = func(rt http.RoundTripper) http.RoundTripper {
		if wrap != nil {
			rt = wrap(rt)
		}
		return &apiMetricsRoundTripper{base: rt, stats: stats}
	}
}
