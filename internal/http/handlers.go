package http

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

const (
	statusOK            = "ok"
	statusFailed        = "failed"
	statusNotConfigured = "not_configured"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    statusOK,
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"uptime":    s.now().Sub(s.startedAt).Round(time.Second).String(),
	})
}

// handleReady checks the store; optional integrations are reported but never
// make the service unready.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, httpStatus := "ready", http.StatusOK
	checks := map[string]string{}

	if _, err := s.ledger.Profiles(ctx); err != nil {
		checks["store"] = fmt.Sprintf("%s: %v", statusFailed, err)
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["store"] = statusOK
	}

	checks["statement_parser"] = statusNotConfigured
	if s.parser != nil {
		checks["statement_parser"] = statusOK
	}
	checks["reports"] = statusNotConfigured
	if s.reports != nil {
		checks["reports"] = statusOK
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	traceMetrics := s.traceMiddleware.GetMetrics()
	limitMetrics := s.rateLimiter.GetMetrics()
	securityMetrics := s.securityDetector.GetMetrics()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	w.WriteHeader(http.StatusOK)

	writeMetric(w, "http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	writeMetric(w, "http_request_duration_avg_microseconds", "gauge", "Average request duration", traceMetrics.AverageResponseTime)
	writeMetric(w, "http_client_errors_total", "counter", "Responses with a 4xx status", traceMetrics.ClientErrors)
	writeMetric(w, "http_server_errors_total", "counter", "Responses with a 5xx status", traceMetrics.ServerErrors)
	writeMetric(w, "rate_limit_hits_total", "counter", "Total rate limit hits", limitMetrics.TotalHits)
	writeMetric(w, "active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", limitMetrics.ClientCount)
	writeMetric(w, "suspicious_requests_total", "counter", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	writeMetric(w, "invalid_forwarded_ip_total", "counter", "Forwarded client IPs that failed to parse", securityMetrics.InvalidIPAttempts)

	if s.parseCache != nil {
		stats := s.parseCache.Stats()
		writeMetric(w, "statement_cache_hits_total", "counter", "Statement parse cache hits", stats.Hits)
		writeMetric(w, "statement_cache_misses_total", "counter", "Statement parse cache misses", stats.Misses)
		writeMetric(w, "statement_cache_entries", "gauge", "Cached parsed statements", int64(stats.Size))
	}

	writeMetric(w, "uptime_seconds", "gauge", "Application uptime in seconds", int64(s.now().Sub(s.startedAt).Seconds()))
}

func writeMetric(w http.ResponseWriter, name, kind, help string, value int64) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
	fmt.Fprintf(w, "%s %d\n\n", name, value)
}
