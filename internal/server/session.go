// Package server manages individual sessions, handling read/write pumps,
// rate limiting, and lifecycle control for each connection.
package server

import (
	"errors"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Session is the server-side state bound to one live connection. The
// connection ID is assigned at connect time and never reused; the identity
// token is unset until the handshake and immutable afterwards.
type Session struct {
	id             string
	conn           *websocket.Conn
	send           chan []byte
	hub            *Hub
	addr           string
	closed         bool
	evicted        bool
	identified     bool
	token          string
	closeOnce      sync.Once
	maxMessageSize int64
	rateLimiter    *rateLimiter
	rateLimit      RateLimitConfig
}

// NewSession creates a Session for the given connection with a fresh
// connection ID and no identity. The send channel is buffered to absorb
// broadcast bursts without blocking the hub.
func NewSession(conn *websocket.Conn, hub *Hub, addr string) *Session {
	cfg := currentConfig()
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}
	limiter := newRateLimiter(cfg.RateLimit.Burst, cfg.RateLimit.RefillInterval)

	return &Session{
		id:             uuid.NewString(),
		conn:           conn,
		send:           make(chan []byte, 256),
		hub:            hub,
		addr:           addr,
		closed:         false,
		maxMessageSize: cfg.MaxMessageSize,
		rateLimiter:    limiter,
		rateLimit:      cfg.RateLimit,
	}
}

// ID returns the session's connection ID. It is used for logging and appears
// in the ServerHello frame; it is never required to be secret.
func (s *Session) ID() string {
	return s.id
}

// GetSendChan returns the session's send channel for reading outgoing frames.
// This channel is read-only from the caller's perspective.
func (s *Session) GetSendChan() <-chan []byte {
	return s.send
}

// closeConn closes the underlying connection exactly once. Both the hub and
// the pumps may race to close; later calls are no-ops.
func (s *Session) closeConn() {
	if s.conn == nil {
		return
	}
	s.closeOnce.Do(func() {
		if err := s.conn.Close(); err != nil {
			if !isExpectedCloseError(err) {
				log.Printf("Error closing connection for session %s: %v", s.id, err)
			}
		}
	})
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}

// setupReadConnection configures read deadlines and pong handler for the connection.
func (s *Session) setupReadConnection() {
	if err := s.conn.SetReadDeadline(time.Now().Add(60 * time.Second)); err != nil {
		log.Printf("Error setting initial read deadline for session %s: %v", s.id, err)
	}
	s.conn.SetPongHandler(func(string) error {
		if err := s.conn.SetReadDeadline(time.Now().Add(60 * time.Second)); err != nil {
			log.Printf("Error setting read deadline in pong handler for session %s: %v", s.id, err)
		}
		return nil
	})
}

// handleReadError logs appropriate error messages based on the error type
// and returns true if the read loop should break.
func (s *Session) handleReadError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, websocket.ErrReadLimit) {
		log.Printf("Frame from session %s exceeded maximum size of %d bytes", s.id, s.maxMessageSize)
		return true
	}

	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure) {
		log.Printf("Session %s disconnected: %v", s.id, err)
		return true
	}

	if errors.Is(err, io.EOF) || isExpectedCloseError(err) {
		log.Printf("Session %s connection closed: %v", s.id, err)
		return true
	}

	if websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseMessageTooBig) {
		log.Printf("Unexpected WebSocket error from session %s: %v", s.id, err)
		return true
	}

	log.Printf("WebSocket read error from session %s: %v", s.id, err)
	return true
}

// checkRateLimit verifies if the session has exceeded rate limits
// and returns true if the frame should be processed.
func (s *Session) checkRateLimit() bool {
	if s.rateLimiter != nil && !s.rateLimiter.allow() {
		log.Printf("Rate limit exceeded for session %s (%d frames per %s); discarding frame", s.id, s.rateLimit.Burst, s.rateLimit.RefillInterval)
		return false
	}
	return true
}

// processFrame decodes a raw frame and hands it to the dispatcher. Malformed
// frames are dropped without surfacing anything to the sender; a panic inside
// a handler is contained to this session, which is terminated while the rest
// of the room continues.
func (s *Session) processFrame(raw []byte) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Handler panic for session %s: %v; terminating session", s.id, r)
			ok = false
		}
	}()

	frame, err := DecodeFrame(raw)
	if err != nil {
		log.Printf("Invalid frame from session %s: %v", s.id, err)
		return true
	}

	s.hub.Dispatch(s, frame)
	return true
}

func (s *Session) readPump() {
	defer func() {
		// During shutdown the run loop has stopped receiving; hand off to
		// whichever side is still listening.
		select {
		case s.hub.unregister <- s:
		case <-s.hub.ctx.Done():
		}
		s.closeConn()
	}()

	s.setupReadConnection()

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if s.handleReadError(err) {
				break
			}
			continue
		}

		if !s.checkRateLimit() {
			continue
		}

		if !s.processFrame(raw) {
			break
		}
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		s.closeConn()
	}()

	for s.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when the
// pump should stop processing.
func (s *Session) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case payload, ok := <-s.send:
		return s.handleOutgoing(payload, ok)
	case <-ticker.C:
		return s.handlePing()
	}
}

// handleOutgoing writes one frame per WebSocket text message; frames are
// never coalesced, so one message on the wire is always one frame. It returns
// false if the connection should be closed.
func (s *Session) handleOutgoing(payload []byte, ok bool) bool {
	if err := s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
		log.Printf("Error setting write deadline for session %s: %v", s.id, err)
		return false
	}

	if !ok {
		return s.writeCloseMessage()
	}

	if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		if !isExpectedCloseError(err) {
			log.Printf("Error writing frame to session %s: %v", s.id, err)
		}
		return false
	}
	return true
}

// writeCloseMessage sends a close message to the client.
func (s *Session) writeCloseMessage() bool {
	if err := s.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
		if !isExpectedCloseError(err) {
			log.Printf("Error writing close message to session %s: %v", s.id, err)
		}
	}
	return false
}

// handlePing sends a ping message to keep the connection alive.
func (s *Session) handlePing() bool {
	if err := s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
		log.Printf("Error setting write deadline for ping to session %s: %v", s.id, err)
		return false
	}
	if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		if !isExpectedCloseError(err) {
			log.Printf("Error writing ping message to session %s: %v", s.id, err)
		}
		return false
	}
	return true
}
