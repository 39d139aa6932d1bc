package config

import "time"

// Application constants
const (
	AppName    = "petrodash"
	AppVersion = "1.4.0"

	// UserIDHeader carries the authenticated user id set by the fronting proxy
	UserIDHeader = "X-User-ID"

	DefaultHTTPTimeout  = 30 * time.Second
	WebSocketPingPeriod = 30 * time.Second
	WebSocketPongWait   = 60 * time.Second

	// Default number of axis positions a windowed chart shows
	DefaultChartWindow = 30
	MaxChartWindow     = 366

	MaxPageSize = 500
)
