// Package ratelimit provides per-IP rate limiting with background eviction
// of stale entries.
//
// This is a single-instance, in-memory rate limiter intended for basic abuse
// prevention on one server. It does not protect against distributed
// attacks or against traffic that stays under the limit. The public site
// gets a generous limiter; the revalidation webhook gets a much tighter one.
package ratelimit
