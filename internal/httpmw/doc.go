// Package httpmw provides HTTP middleware for the public-facing server.
//
// httpserver.NewHandler wraps the router, outermost first, in: security
// headers, recover, request ID, client IP, rate limiting, OTel tracing,
// trace response headers, metrics and the request logger. Inside the chi
// router it adds compression, route annotation, the access log and a body
// limit.
//
// User-supplied headers and query strings are kept out of access logs to
// avoid PII leaks and log injection.
package httpmw
