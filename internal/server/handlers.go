// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks, and the static asset responder the chat client is served from.
package server

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

// WebSocketHandler handles WebSocket upgrade requests against the package's
// global hub. It validates that the request uses the GET method, upgrades the
// connection, creates a Session with a fresh connection ID, and registers it;
// the hub launches the pump goroutines.
func WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	ServeSession(hub, w, r)
}

// ServeSession is WebSocketHandler bound to an explicit hub, for callers that
// run their own hub instance.
func ServeSession(h *Hub, w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	session := NewSession(conn, h, r.RemoteAddr)
	select {
	case session.hub.register <- session:
	case <-session.hub.ctx.Done():
		// The run loop is gone; refuse the late arrival.
		session.closeConn()
	}
}

// HealthHandler provides a simple health check endpoint that returns server status.
// It responds with a plain text message indicating the server is running.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Parley server is running!")
}

// contentTypeFor maps the file extensions the client is built from to their
// content types. Anything else is served without a Content-Type header.
func contentTypeFor(name string) string {
	switch filepath.Ext(name) {
	case ".html":
		return "text/html"
	case ".css":
		return "text/css"
	case ".js":
		return "application/javascript"
	default:
		return ""
	}
}

// StaticHandler serves files from the configured static directory. Only GET
// is supported; paths containing ".." are rejected outright and "/" maps to
// index.html. Unknown files produce a 404, read failures a 500.
func StaticHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	pathname := path.Clean(r.URL.Path)
	if strings.Contains(r.URL.Path, "..") {
		log.Printf("Rejecting static request with traversal segment: %q", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if pathname == "/" || pathname == "." {
		pathname = "/index.html"
	}

	filePath := filepath.Join(currentConfig().StaticDir, filepath.FromSlash(pathname))

	info, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		log.Printf("Error stating static file %s: %v", filePath, err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if info.IsDir() {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		log.Printf("Error reading static file %s: %v", filePath, err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if ct := contentTypeFor(filePath); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Printf("Error writing static response for %s: %v", filePath, err)
	}
}
