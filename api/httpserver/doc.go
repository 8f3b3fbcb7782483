// Package httpserver provides the HTTP server shell shared by the
// holder, coordinator and registry binaries.
//
// The server wires a chi router with request-ID, real-IP and recoverer
// middleware, structured request logging, the standard health endpoints
// (/livez, /readyz, /drain, /undrain), an optional pprof mount, and a
// metrics sidecar. Application routes are contributed through the
// RouteRegistrar interface so each service owns only its own wire
// surface.
package httpserver
