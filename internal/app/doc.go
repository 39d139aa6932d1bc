// Package app wires the dashboard server together and runs it.
//
// NewApplication loads configuration, builds the logger and OpenTelemetry
// providers, opens the preference store, creates the websocket hub, the
// services and the optional refresher, and assembles the chi router:
//
//	RequestID → RealIP → Recovery → StripSlashes → UserIdentity
//	    /ws        websocket upgrade, no response wrapping
//	    /metrics   Prometheus exposition
//	    group:     OTel → Logger → SecureHeaders → CORS → RateLimit → Compress → Audit
//	        /api/...   JSON API
//	        /          dashboard page and /static assets
//
// Run blocks until SIGINT or SIGTERM and then shuts down in reverse order:
// HTTP server, refresher, hub, preference store, telemetry. Errors are
// returned to the caller; the package never calls os.Exit.
package app
