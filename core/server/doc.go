// Package server holds the HTTP server configuration.
//
// The start command owns the Fiber application; this package defines the
// settings it reads (listen port, API key, shutdown timeout) and validates them.
//
// # Usage
//
// This package is primarily used by the core/config package to embed server
// settings and by the start command to bind and shut down the server.
package server
