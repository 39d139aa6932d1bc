// Package services implements the dashboard's business logic between the
// HTTP handlers and the upstream, preference and push layers.
//
// DashboardService fetches a view's series, applies the user's tariff and
// synthesized averages, aligns everything onto one date axis and shapes the
// result as a chart, a paginated table or an export. Requests go through a
// fetch.Registry so only the newest response per user and view updates the
// shared state.
//
// PreferenceService edits holidays and the tariff constant and announces
// each change to the user's WebSocket clients. IngestService forwards PDF
// uploads to the upstream converter. HealthService backs the health routes.
//
// Services depend on small interfaces (SeriesSource, DocumentIngester,
// EventPublisher) so tests can substitute testify mocks.
package services
