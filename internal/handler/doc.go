// Package handler implements the local operator API for waypoint.
//
// The API lets an operator inspect the resolved endpoint and steer the
// resolver without restarting the client:
//
//	GET    /api/endpoint   resolve and return the current endpoint
//	PUT    /api/override   pin the endpoint, body {"host": "10.1.1.50"}
//	DELETE /api/override   drop the override and cached endpoint
//	POST   /api/reset      drop override, cache and probe history
//	POST   /api/test       probe a URL once, body {"url": "..."}
//
// Errors are returned as JSON with an {error, details} structure. A malformed
// override is a 400, storage failures are a 500. Mutating routes require
// Content-Type: application/json and answer 415 otherwise.
//
// Middleware provides panic recovery, request logging and read-only CORS:
// other origins may GET the endpoint and the event stream but never change
// resolver state.
package handler
