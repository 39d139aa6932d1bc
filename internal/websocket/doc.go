// Package websocket pushes dashboard events to connected browsers.
//
// The Hub owns every Client and fans out Messages: view:refreshed after a
// scheduled refresh, view:failed when one errors, and preferences:updated to
// the user whose settings changed. Each Client runs a read pump (heartbeats
// and control frames) and a write pump (queued messages and pings).
package websocket
