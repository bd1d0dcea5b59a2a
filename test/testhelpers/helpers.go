// Package testhelpers provides common utilities and helper functions for testing the Parley server.
//
// This package contains reusable test utilities that are shared across integration tests.
// It provides functions for creating test servers, dialing the protocol endpoint, and
// exchanging protocol frames to reduce code duplication in test files.
package testhelpers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// CreateTestServer creates a test HTTP server with the given handler.
// It returns a running httptest.Server that should be closed after use.
func CreateTestServer(handler http.Handler) *httptest.Server {
	return httptest.NewServer(handler)
}

// AssertStatusCode checks if the HTTP response has the expected status code.
// It fails the test with a descriptive error message if the status codes don't match.
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status code %d, got %d", expected, resp.StatusCode)
	}
}

// MakeRequest creates and executes an HTTP request, returning the response.
// It includes a 5-second timeout and fails the test if the request cannot be
// created or executed successfully.
func MakeRequest(t *testing.T, method, url string) *http.Response {
	t.Helper()

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequest(method, url, http.NoBody)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}

	return resp
}

// ConnectWebSocket creates a WebSocket connection to the specified URL.
// It returns the connection or an error if connection fails.
func ConnectWebSocket(url string) (*websocket.Conn, error) {
	return ConnectWebSocketWithOrigin(url, "http://localhost:8080")
}

// ConnectWebSocketWithOrigin dials the protocol endpoint presenting the given
// Origin header.
func ConnectWebSocketWithOrigin(url, origin string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	headers := http.Header{}
	headers.Set("Origin", origin)

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

// SendFrame encodes a protocol frame (opcode plus positional arguments) as a
// JSON array and writes it as one text message.
func SendFrame(conn *websocket.Conn, op string, args ...any) error {
	elems := make([]any, 0, len(args)+1)
	elems = append(elems, op)
	elems = append(elems, args...)
	return conn.WriteJSON(elems)
}

// ReceiveFrame reads one frame and returns its opcode and decoded positional
// arguments. It fails the test if no frame arrives before the deadline.
func ReceiveFrame(t *testing.T, conn *websocket.Conn) (string, []any) {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}

	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read frame: %v", err)
	}

	var elems []any
	if err := json.Unmarshal(data, &elems); err != nil {
		t.Fatalf("Frame is not a JSON array: %v (raw %q)", err, data)
	}
	if len(elems) == 0 {
		t.Fatal("Received an empty frame")
	}

	op, ok := elems[0].(string)
	if !ok {
		t.Fatalf("Frame opcode is not a string: %v", elems[0])
	}
	return op, elems[1:]
}

// ExpectFrame reads frames until one with the wanted opcode arrives and
// returns its arguments. Frames with other opcodes are skipped: the room is
// shared, so unrelated Join/Left traffic may interleave with the reply under
// test. It fails when no matching frame arrives before the deadline.
func ExpectFrame(t *testing.T, conn *websocket.Conn, op string) []any {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		got, args := ReceiveFrame(t, conn)
		if got == op {
			return args
		}
		t.Logf("Skipping interleaved %s frame while waiting for %s", got, op)
	}
	t.Fatalf("No %s frame arrived before the deadline", op)
	return nil
}

// ExpectNoFrameOp asserts that no frame with the given opcode arrives on conn
// within the window; other frames are ignored.
func ExpectNoFrameOp(t *testing.T, conn *websocket.Conn, op string, window time.Duration) {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(window)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var elems []any
		if jsonErr := json.Unmarshal(data, &elems); jsonErr != nil || len(elems) == 0 {
			continue
		}
		if got, ok := elems[0].(string); ok && got == op {
			t.Fatalf("Expected no %s frame, got %q", op, data)
		}
	}
}

// SendRawMessage sends a raw byte message over the WebSocket connection.
func SendRawMessage(conn *websocket.Conn, messageType int, data []byte) error {
	return conn.WriteMessage(messageType, data)
}

// CloseWebSocket gracefully closes a WebSocket connection.
func CloseWebSocket(conn *websocket.Conn) error {
	err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		return err
	}
	return conn.Close()
}
