// Package integration contains integration tests for the Parley server.
//
// These tests verify that multiple components work together correctly by
// testing the complete system behavior with real HTTP servers, WebSocket
// connections, and end-to-end protocol flows.
package integration

import (
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/spindleworks/parley/internal/server"
	"github.com/spindleworks/parley/test/testhelpers"
)

var hubOnce sync.Once

// startChatServer boots the shared hub (once per process), stands up a test
// HTTP server with the production routes, and allows its origin. It returns
// the base URL and the ws:// URL of the protocol endpoint.
func startChatServer(t *testing.T, customize func(cfg *server.Config)) (string, string) {
	t.Helper()

	hubOnce.Do(server.StartHub)

	mux := server.SetupRoutes()
	testServer := httptest.NewServer(mux)
	t.Cleanup(testServer.Close)

	cfg := server.NewConfig()
	cfg.AllowedOrigins = append([]string{testServer.URL}, cfg.AllowedOrigins...)
	if customize != nil {
		customize(cfg)
	}
	server.SetConfig(cfg)
	t.Cleanup(func() { server.SetConfig(nil) })

	u, err := url.Parse(testServer.URL)
	if err != nil {
		t.Fatalf("Failed to parse test server URL: %v", err)
	}
	u.Scheme = "ws"
	u.Path = "/ws"

	return testServer.URL, u.String()
}

// dial connects to the protocol endpoint with an allowed origin and registers
// cleanup for the connection.
func dial(t *testing.T, wsURL, origin string) *websocket.Conn {
	t.Helper()

	conn, err := testhelpers.ConnectWebSocketWithOrigin(wsURL, origin)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// handshake completes a fresh Hello and returns the issued identity token.
func handshake(t *testing.T, conn *websocket.Conn) string {
	t.Helper()

	if err := testhelpers.SendFrame(conn, "Hello"); err != nil {
		t.Fatalf("Failed to send Hello: %v", err)
	}
	args := testhelpers.ExpectFrame(t, conn, "ServerHello")
	if len(args) != 2 {
		t.Fatalf("ServerHello carries %d arguments, want 2", len(args))
	}
	token, ok := args[1].(string)
	if !ok || token == "" {
		t.Fatalf("ServerHello token is %v", args[1])
	}
	return token
}
