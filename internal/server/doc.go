// Package server wires the tracker façade into a Fiber application. It is a
// deliberately thin layer: request-id tagging, key validation, JSON encoding
// and the /-/ diagnostics routes. All caching and refresh decisions live in
// the tracker/refresh packages.
package server
