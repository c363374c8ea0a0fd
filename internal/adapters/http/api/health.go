// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/promptarena/verdict/pkg/metrics"
)

// handleHealth handles GET /healthz requests by serving the custom metrics
// registry, doubling as liveness probe and Prometheus scrape target.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}).ServeHTTP(w, r)
}
