// Package server implements the frame codec for the Parley room protocol.
// A frame is one JSON array per WebSocket text message: the first element is
// the opcode string, the remaining elements are positional arguments.
package server

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// Opcode identifies the kind of a protocol frame.
type Opcode string

// Client-to-server opcodes.
const (
	OpHello          Opcode = "Hello"
	OpRequestHistory Opcode = "RequestHistory"
	OpSendMessage    Opcode = "SendMessage"
	OpSetNickname    Opcode = "SetNickname"
	OpSetColor       Opcode = "SetColor"
	OpRequestRoster  Opcode = "RequestRoster"
)

// Server-to-client opcodes.
const (
	OpServerHello  Opcode = "ServerHello"
	OpJoin         Opcode = "Join"
	OpLeft         Opcode = "Left"
	OpNameChanged  Opcode = "NameChanged"
	OpColorChanged Opcode = "ColorChanged"
	OpMessage      Opcode = "Message"
	OpHistory      Opcode = "History"
	OpNotice       Opcode = "Notice"
	OpRoster       Opcode = "Roster"
)

// Profile is the public portion of an identity, as it appears on the wire in
// Join frames and roster snapshots.
type Profile struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// HistoryEntry is one recorded chat message. The JSON keys match the replay
// format consumed by the client.
type HistoryEntry struct {
	Token   string `json:"uid"`
	Time    int64  `json:"time"`
	Content string `json:"content"`
}

// Frame is a decoded inbound frame: an opcode plus its still-raw positional
// arguments. Argument accessors decode lazily so a handler only pays for the
// fields it reads.
type Frame struct {
	Op   Opcode
	args []json.RawMessage
}

// DecodeFrame parses a raw text message into a Frame. It returns an error for
// anything that is not a JSON array whose first element is a string; callers
// drop such frames without terminating the session.
func DecodeFrame(data []byte) (*Frame, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil, fmt.Errorf("frame is not a JSON array: %w", err)
	}
	if len(elems) == 0 {
		return nil, fmt.Errorf("frame is empty")
	}

	var op string
	if err := json.Unmarshal(elems[0], &op); err != nil {
		return nil, fmt.Errorf("frame opcode is not a string: %w", err)
	}

	return &Frame{Op: Opcode(op), args: elems[1:]}, nil
}

// ArgCount returns the number of positional arguments following the opcode.
func (f *Frame) ArgCount() int {
	return len(f.args)
}

// StringArg decodes argument i as a string.
func (f *Frame) StringArg(i int) (string, error) {
	if i >= len(f.args) {
		return "", fmt.Errorf("frame %s: missing argument %d", f.Op, i)
	}
	var s string
	if err := json.Unmarshal(f.args[i], &s); err != nil {
		return "", fmt.Errorf("frame %s: argument %d is not a string: %w", f.Op, i, err)
	}
	return s, nil
}

// HelloKind distinguishes the two forms of the handshake request.
type HelloKind int

const (
	// HelloFresh requests a newly minted identity.
	HelloFresh HelloKind = iota
	// HelloResume asks to rebind a previously issued identity token.
	HelloResume
)

// HelloRequest is the decoded handshake frame. Token is set only for
// HelloResume.
type HelloRequest struct {
	Kind  HelloKind
	Token string
}

// DecodeHello interprets a Hello frame's optional token argument. An absent
// or empty token means a fresh identity is wanted.
func (f *Frame) DecodeHello() (HelloRequest, error) {
	if f.ArgCount() == 0 {
		return HelloRequest{Kind: HelloFresh}, nil
	}
	token, err := f.StringArg(0)
	if err != nil {
		return HelloRequest{}, err
	}
	if token == "" {
		return HelloRequest{Kind: HelloFresh}, nil
	}
	return HelloRequest{Kind: HelloResume, Token: token}, nil
}

// EncodeFrame builds the wire form of an outbound frame. Marshalling only
// fails for values outside the protocol's vocabulary, which is a programming
// error, so failures surface as a panic during development rather than a
// silently dropped frame.
func EncodeFrame(op Opcode, args ...any) []byte {
	elems := make([]any, 0, len(args)+1)
	elems = append(elems, string(op))
	elems = append(elems, args...)

	data, err := json.Marshal(elems)
	if err != nil {
		panic(fmt.Sprintf("unencodable %s frame: %v", op, err))
	}
	return data
}

var colorPattern = regexp.MustCompile(`^[0-9a-fA-F]{6}$`)

// ValidColor reports whether s is a 6-hex-digit RGB value.
func ValidColor(s string) bool {
	return colorPattern.MatchString(s)
}
