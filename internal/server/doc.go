// Package server implements the Parley chat room core: the WebSocket session
// registry, the room protocol dispatcher, the durable identity directory, and
// the replayable history log.
//
// The implementation is organized into specialized files for configuration,
// hub management, sessions, protocol, routing, and HTTP handlers to keep the
// codebase maintainable and testable as the project grows.
package server
