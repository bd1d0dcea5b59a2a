// Package server routes decoded frames to opcode handlers. Each handler maps
// (session state, frame) to directory/history mutations plus a list of
// outbound effects; all I/O happens afterwards in the hub's delivery step, so
// handlers are testable without a live transport.
package server

import (
	"log"
	"strings"
)

// Notice texts sent in reply to rejected or confirmed requests.
const (
	noticeHandshakeRequired = "You must complete a handshake first."
	noticeAlreadyIdentified = "You have already completed a handshake."
	noticeNickTaken         = "That nickname has been taken."
	noticeNickChanged       = "Your nickname has been changed."
	noticeNickEmpty         = "A nickname cannot be empty."
	noticeColorChanged      = "Your color has been changed."
	noticeColorInvalid      = "The color you provided is not valid."
)

// handle is the single dispatch point for inbound frames. Caller holds
// dispatchMu, so every mutation and every recipient snapshot below happens
// under one serialized critical section.
func (h *Hub) handle(s *Session, f *Frame) []outbound {
	switch f.Op {
	case OpHello:
		return h.handleHello(s, f)
	case OpRequestHistory:
		return h.handleRequestHistory(s)
	case OpSendMessage:
		return h.handleSendMessage(s, f)
	case OpSetNickname:
		return h.handleSetNickname(s, f)
	case OpSetColor:
		return h.handleSetColor(s, f)
	case OpRequestRoster:
		return h.handleRequestRoster(s)
	default:
		log.Printf("Session %s sent unknown opcode %q; ignoring", s.id, f.Op)
		return nil
	}
}

// reject builds a Notice addressed only to the offending session.
func reject(s *Session, text string) []outbound {
	return []outbound{{to: []*Session{s}, payload: EncodeFrame(OpNotice, text)}}
}

// requireIdentity gates opcodes that only make sense after the handshake.
func (h *Hub) requireIdentity(s *Session) ([]outbound, bool) {
	if s.identified {
		return nil, true
	}
	log.Printf("Session %s sent an identity-requiring opcode before Hello", s.id)
	return reject(s, noticeHandshakeRequired), false
}

// handleHello establishes or resumes an identity for the session. A resume
// token bound to another live session evicts that session first, so a token
// is held by at most one connection at a time.
func (h *Hub) handleHello(s *Session, f *Frame) []outbound {
	if s.identified {
		return reject(s, noticeAlreadyIdentified)
	}

	req, err := f.DecodeHello()
	if err != nil {
		log.Printf("Session %s sent a malformed Hello: %v", s.id, err)
		return nil
	}

	var token string
	var profile Profile
	if req.Kind == HelloResume {
		if p, known := h.directory.Resume(req.Token); known {
			token, profile = req.Token, p
			if prior := h.sessionByToken(token); prior != nil && prior != s {
				h.evictSession(prior)
			}
		}
		// An unknown token mints a fresh identity below, which is what a
		// client replaying a stale cookie after a server restart needs.
	}
	if token == "" {
		token, profile = h.directory.Mint()
	}

	s.identified = true
	s.token = token

	return []outbound{
		{to: []*Session{s}, payload: EncodeFrame(OpServerHello, s.id, token)},
		{to: h.identifiedSnapshot(s), payload: EncodeFrame(OpJoin, token, profile)},
	}
}

// handleRequestHistory replays the full history log as one frame. History is
// readable before the handshake so a client can render the room while its
// Hello is in flight.
func (h *Hub) handleRequestHistory(s *Session) []outbound {
	return []outbound{
		{to: []*Session{s}, payload: EncodeFrame(OpHistory, h.history.Snapshot())},
	}
}

// handleSendMessage appends the message to history and echoes it to every
// identified session, the sender included, so the sender's own echo confirms
// delivery and ordering. Empty content is ignored.
func (h *Hub) handleSendMessage(s *Session, f *Frame) []outbound {
	if out, ok := h.requireIdentity(s); !ok {
		return out
	}

	content, err := f.StringArg(0)
	if err != nil {
		log.Printf("Session %s sent a malformed SendMessage: %v", s.id, err)
		return nil
	}
	if content == "" {
		return nil
	}

	entry := h.history.Append(s.token, content, currentConfig().HistoryLimit)
	return []outbound{
		{to: h.identifiedSnapshot(nil), payload: EncodeFrame(OpMessage, entry.Token, entry.Time, entry.Content)},
	}
}

// handleSetNickname changes the session's display name if no other identity
// currently holds it. The collision check and the write are one atomic step
// in the directory.
func (h *Hub) handleSetNickname(s *Session, f *Frame) []outbound {
	if out, ok := h.requireIdentity(s); !ok {
		return out
	}

	name, err := f.StringArg(0)
	if err != nil {
		log.Printf("Session %s sent a malformed SetNickname: %v", s.id, err)
		return nil
	}
	if strings.TrimSpace(name) == "" {
		return reject(s, noticeNickEmpty)
	}

	if err := h.directory.Rename(s.token, name); err != nil {
		return reject(s, noticeNickTaken)
	}

	return []outbound{
		{to: h.identifiedSnapshot(s), payload: EncodeFrame(OpNameChanged, s.token, name)},
		{to: []*Session{s}, payload: EncodeFrame(OpNotice, noticeNickChanged)},
	}
}

// handleSetColor updates the identity's color after validating the 6-hex-digit
// format. The stored and broadcast value is uppercased.
func (h *Hub) handleSetColor(s *Session, f *Frame) []outbound {
	if out, ok := h.requireIdentity(s); !ok {
		return out
	}

	hex, err := f.StringArg(0)
	if err != nil {
		log.Printf("Session %s sent a malformed SetColor: %v", s.id, err)
		return nil
	}
	if !ValidColor(hex) {
		return reject(s, noticeColorInvalid)
	}

	normalized := strings.ToUpper(hex)
	if err := h.directory.SetColor(s.token, normalized); err != nil {
		log.Printf("Session %s color update failed: %v", s.id, err)
		return nil
	}

	return []outbound{
		{to: h.identifiedSnapshot(s), payload: EncodeFrame(OpColorChanged, s.token, normalized)},
		{to: []*Session{s}, payload: EncodeFrame(OpNotice, noticeColorChanged)},
	}
}

// handleRequestRoster replies with a token-to-profile snapshot for every
// identity currently bound to a live session.
func (h *Hub) handleRequestRoster(s *Session) []outbound {
	if out, ok := h.requireIdentity(s); !ok {
		return out
	}

	roster := h.directory.Roster(h.liveTokens())
	return []outbound{
		{to: []*Session{s}, payload: EncodeFrame(OpRoster, roster)},
	}
}
