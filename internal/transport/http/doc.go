// Package http implements the HTTP handlers of the dashboard API. Handlers
// are thin: they parse the request, call a service and render the result.
//
// # Routes
//
//	GET    /api/views                         list views
//	GET    /api/views/{view}/chart            chart payload (?window, ?anchor, filters)
//	GET    /api/views/{view}/table            paginated rows (?page, ?page_size, filters)
//	GET    /api/views/{view}/export.{format}  csv or xlsx download
//	GET    /api/views/{view}/state            last load state for the user
//	GET    /api/overview                      several charts at once (?views=a,b)
//	POST   /api/ingest/{kind}                 PDF upload, converted by the upstream
//	GET    /api/preferences                   the user's preferences
//	PUT    /api/preferences                   replace them
//	POST   /api/preferences/holidays          add a holiday
//	DELETE /api/preferences/holidays/{date}   remove a holiday
//	PUT    /api/preferences/tariff            set the tariff constant
//	GET    /ws                                live updates
//
// Any query parameter that is not reserved (window, anchor, page, page_size,
// format, views) is treated as a view filter.
//
// # Errors
//
// Every failure goes through errors.ErrorHandler and is written as an
// RFC 7807 problem document with a trace_id extension.
//
// # Formats
//
// Charts and tables are JSON by default. ?format=msgpack or an Accept of
// application/x-msgpack switches to MessagePack.
package http
