// Package server coordinates session registration, protocol dispatch, room
// broadcast, and connection cleanup via the Hub type.
package server

import (
	"context"
	"log"
	"sync"
	"time"
)

// Hub owns every live Session, the identity directory, and the room history.
// Registration and teardown flow through its run loop; frame handling is
// serialized by a single critical section so registry, directory, and history
// mutations are never observed half-applied.
type Hub struct {
	sessions   map[string]*Session
	directory  *Directory
	history    *HistoryLog
	register   chan *Session
	unregister chan *Session
	mutex      sync.RWMutex
	dispatchMu sync.Mutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewHub creates a Hub with an empty registry, directory, and history. The
// returned Hub is ready to accept sessions once Run is started.
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		sessions:   make(map[string]*Session),
		directory:  NewDirectory(),
		history:    NewHistoryLog(),
		register:   make(chan *Session),
		unregister: make(chan *Session),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// GetRegisterChan returns the channel used for registering new sessions.
// This channel is write-only from the caller's perspective.
func (h *Hub) GetRegisterChan() chan<- *Session {
	return h.register
}

// GetUnregisterChan returns the channel used for unregistering sessions.
// This channel is write-only from the caller's perspective.
func (h *Hub) GetUnregisterChan() chan<- *Session {
	return h.unregister
}

// Run starts the hub's main event loop, handling session registration and
// teardown. This method should be called in a separate goroutine as it runs
// until Shutdown.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownSessions()
			return

		case session := <-h.register:
			if session == nil {
				log.Printf("Received nil session registration; skipping")
				continue
			}

			h.mutex.Lock()
			session.closed = false
			h.sessions[session.id] = session
			sessionCount := len(h.sessions)
			h.mutex.Unlock()
			log.Printf("Session %s connected from %s. Total sessions: %d", session.id, session.addr, sessionCount)

			h.wg.Add(2)
			go func() {
				defer h.wg.Done()
				session.writePump()
			}()
			go func() {
				defer h.wg.Done()
				session.readPump()
			}()

		case session := <-h.unregister:
			h.removeSession(session)
		}
	}
}

var hub = NewHub()

// removeSession tears down a session: it is dropped from the registry, its
// send channel is closed, and if it had completed the handshake (and was not
// evicted by a token resume) every remaining identified session is told it
// left. A removal for an unknown session is a tolerated no-op.
func (h *Hub) removeSession(session *Session) {
	h.dispatchMu.Lock()
	defer h.dispatchMu.Unlock()

	h.mutex.Lock()
	if _, ok := h.sessions[session.id]; !ok {
		h.mutex.Unlock()
		log.Printf("Session %s already removed; ignoring", session.id)
		return
	}
	delete(h.sessions, session.id)
	session.closed = true
	announce := session.identified && !session.evicted
	token := session.token
	remaining := h.identifiedSnapshotLocked(nil)
	sessionCount := len(h.sessions)
	h.mutex.Unlock()

	// Close the channel after releasing the lock.
	close(session.send)
	session.closeConn()
	log.Printf("Session %s disconnected from %s. Total sessions: %d", session.id, session.addr, sessionCount)

	if announce {
		h.deliver([]outbound{{to: remaining, payload: EncodeFrame(OpLeft, token)}})
	}
}

// evictSession force-removes a session whose identity token was resumed by a
// newer connection. No Left frame is emitted; the identity did not leave the
// room. Caller holds dispatchMu.
func (h *Hub) evictSession(session *Session) {
	h.mutex.Lock()
	if _, ok := h.sessions[session.id]; !ok {
		h.mutex.Unlock()
		return
	}
	delete(h.sessions, session.id)
	session.closed = true
	session.evicted = true
	h.mutex.Unlock()

	close(session.send)
	session.closeConn()
	log.Printf("Session %s evicted: token resumed by a newer connection", session.id)
}

// Dispatch runs the matching opcode handler under the hub's critical section
// and delivers the resulting frames. Delivery happens inside the same
// critical section so per-connection frame order follows handling order.
func (h *Hub) Dispatch(session *Session, frame *Frame) {
	h.dispatchMu.Lock()
	defer h.dispatchMu.Unlock()

	h.deliver(h.handle(session, frame))
}

// outbound is one delivery effect produced by a handler: a payload and the
// recipients resolved at mutation time.
type outbound struct {
	to      []*Session
	payload []byte
}

// deliver fans each payload out to its recipients. A failed send is isolated
// to that recipient: it is removed from the registry and the rest of the
// delivery proceeds.
func (h *Hub) deliver(outs []outbound) {
	var failed []*Session
	for _, out := range outs {
		for _, target := range out.to {
			if !h.safeSend(target, out.payload) {
				failed = append(failed, target)
			}
		}
	}
	h.removeFailedSessions(failed)
}

func (h *Hub) safeSend(session *Session, payload []byte) bool {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic in safeSend: %v", r)
		}
	}()

	// Hold the lock during the entire send operation to prevent races with
	// channel close.
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	_, exists := h.sessions[session.id]
	if !exists || session.closed {
		return false
	}

	select {
	case session.send <- payload:
		return true
	default:
		return false
	}
}

// removeFailedSessions drops sessions whose send buffers were full or closed
// and announces their departure to the survivors. Departure frames here are
// best-effort; a second failure is not chased further.
func (h *Hub) removeFailedSessions(failed []*Session) {
	if len(failed) == 0 {
		return
	}

	var departures []outbound

	h.mutex.Lock()
	var channelsToClose []chan []byte
	for _, session := range failed {
		if _, exists := h.sessions[session.id]; !exists {
			continue
		}
		delete(h.sessions, session.id)
		session.closed = true
		channelsToClose = append(channelsToClose, session.send)
		log.Printf("Session %s removed due to full send buffer", session.id)

		if session.identified && !session.evicted {
			departures = append(departures, outbound{
				to:      h.identifiedSnapshotLocked(nil),
				payload: EncodeFrame(OpLeft, session.token),
			})
		}
	}
	h.mutex.Unlock()

	// Close channels after releasing the lock.
	for _, ch := range channelsToClose {
		close(ch)
	}

	for _, out := range departures {
		for _, target := range out.to {
			h.safeSend(target, out.payload)
		}
	}
}

// identifiedSnapshotLocked returns the sessions that have completed the
// handshake, excluding exclude when non-nil. Caller holds mutex.
func (h *Hub) identifiedSnapshotLocked(exclude *Session) []*Session {
	snapshot := make([]*Session, 0, len(h.sessions))
	for _, session := range h.sessions {
		if !session.identified || session == exclude {
			continue
		}
		snapshot = append(snapshot, session)
	}
	return snapshot
}

// identifiedSnapshot is identifiedSnapshotLocked with its own lock
// acquisition, for handlers resolving broadcast recipients.
func (h *Hub) identifiedSnapshot(exclude *Session) []*Session {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.identifiedSnapshotLocked(exclude)
}

// liveTokens returns the identity tokens bound to identified sessions.
func (h *Hub) liveTokens() []string {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	tokens := make([]string, 0, len(h.sessions))
	for _, session := range h.sessions {
		if session.identified {
			tokens = append(tokens, session.token)
		}
	}
	return tokens
}

// sessionByToken finds the live session currently bound to token, if any.
func (h *Hub) sessionByToken(token string) *Session {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for _, session := range h.sessions {
		if session.identified && session.token == token {
			return session
		}
	}
	return nil
}

// shutdownSessions drains the registry during hub shutdown. Each session's
// send channel is closed so its write pump emits a close frame and exits, and
// the connection is closed so its read pump unblocks. Taking dispatchMu first
// waits out any in-flight dispatch, so no handler can deliver to a channel
// closed here.
func (h *Hub) shutdownSessions() {
	log.Println("Shutting down all session connections...")

	h.dispatchMu.Lock()
	h.mutex.Lock()
	sessions := make([]*Session, 0, len(h.sessions))
	for id, session := range h.sessions {
		delete(h.sessions, id)
		session.closed = true
		sessions = append(sessions, session)
	}
	h.mutex.Unlock()
	h.dispatchMu.Unlock()

	for _, session := range sessions {
		close(session.send)
		session.closeConn()
	}

	log.Printf("Closed %d session connections", len(sessions))
}

// Shutdown initiates graceful shutdown of the hub and waits for all session
// goroutines to complete, or until the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	log.Println("Initiating hub shutdown...")

	h.cancel()

	// Wait for Run() to complete.
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("Hub shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		log.Println("Hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
