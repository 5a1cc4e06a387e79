// Package httputil provides HTTP handler utilities for consistent error handling,
// JSON encoding/decoding, request parsing and the generic middleware chain
// (request IDs, access logging, panic recovery, CORS, body limits).
//
// Every error body has the shape {"detail": "<message>"}.
package httputil
