// Package preferences persists per-user dashboard settings: the holiday
// calendar used by the nomination schedule and the tariff constant applied
// to adjusted views.
//
// Storage is reached through the Store interface. Three backends exist:
// an identity provider's user metadata (the production deployment), a local
// sqlite file, and an in-memory map for tests and single-user runs.
package preferences
