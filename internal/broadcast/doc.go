// Package broadcast implements the real-time room fan-out engine: a
// registry actor that tracks which live WebSocket connections belong to
// which broadcast key, per-connection writer goroutines, and the
// notification dispatcher used by the request layer to push events into
// rooms.
//
// All registry state is owned by a single goroutine and mutated through a
// command channel, so subscribe, unsubscribe, and broadcast are
// linearizable and broadcasts always iterate a consistent snapshot of a
// room's membership.
package broadcast
