// Package middleware contains HTTP middleware for the Fiber application.
//
// # Components
//
//   - auth: API key validation protecting the API.
//   - rayid: a per-request id (RayID) stored in the context and echoed in the
//     response headers for tracing.
//
// RayID must be registered first so every later log line can carry it.
package middleware
