// Package server wires HTTP handlers into a ServeMux for the Parley
// application via routing helpers.
package server

import "net/http"

// SetupRoutes configures and returns an HTTP ServeMux with all application
// routes: the protocol endpoint, the health check, and the static client.
func SetupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", WebSocketHandler)
	mux.HandleFunc("/healthz", HealthHandler)
	mux.HandleFunc("/", StaticHandler)
	return mux
}
