// ABOUTME: Package server runs the simplevista console process
// ABOUTME: It owns the listener, health and metrics endpoints, and resource shutdown

// Package server assembles the simplevista process: the SQLite store, the
// n8n webhook client, and the web console behind a single HTTP listener.
//
// The listener is either a plain TCP address or, when Tailscale is enabled,
// a tsnet node serving HTTP, HTTPS with tailnet certificates, or Funnel.
//
// Endpoints outside the console base path:
//
//	GET /health        liveness
//	GET /health/ready  store reachability
//	GET /metrics       Prometheus metrics (when enabled)
//	GET /              redirect to the console base path
package server
