// Package application provides application initialization and dependency wiring.
// It builds the signing loader and release planner shared by every CLI command,
// and for the serve command the storage, handlers, router, and HTTP server.
package application
