package broadcast

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/F0laf0lu/Chat-API/internal/metrics"
)

const (
	writeDeadline     = 5 * time.Second
	pingInterval      = 30 * time.Second
	pongDeadline      = 60 * time.Second
	messageBufferSize = 16
)

var errSendBufferFull = errors.New("send buffer full")

// Handle wraps one live WebSocket connection. The gateway owns the Handle
// for its whole lifetime; the registry only keeps a membership reference to
// it. Outbound frames go through a buffered channel drained by a dedicated
// writer goroutine, so broadcasts never block on a slow socket.
type Handle struct {
	connection  *websocket.Conn
	user        string
	clock       clockwork.Clock
	sendChannel chan []byte
	doneChannel chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

// NewHandle wraps an upgraded connection for the given authenticated user
// and starts its writer goroutine.
func NewHandle(connection *websocket.Conn, user string, clock clockwork.Clock) *Handle {
	h := &Handle{
		connection:  connection,
		user:        user,
		clock:       clock,
		sendChannel: make(chan []byte, messageBufferSize),
		doneChannel: make(chan struct{}),
	}
	h.configurePongHandler()
	h.wg.Add(1)
	go h.run()
	return h
}

// User returns the authenticated principal's username.
func (h *Handle) User() string { return h.user }

// send enqueues a frame without blocking. A full buffer means the client is
// not keeping up; the caller decides what to do about it.
func (h *Handle) send(frame []byte) error {
	select {
	case h.sendChannel <- frame:
		return nil
	default:
		return errSendBufferFull
	}
}

func (h *Handle) run() {
	ticker := h.clock.NewTicker(pingInterval)
	defer ticker.Stop()
	defer h.wg.Done()

	for {
		select {
		case frame, ok := <-h.sendChannel:
			if !ok {
				return
			}
			start := h.clock.Now()
			h.updateWriteDeadline()
			if err := h.connection.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
			metrics.WebSocketMessageSendDuration.Observe(h.clock.Since(start).Seconds())
		case <-ticker.Chan():
			h.updateWriteDeadline()
			if err := h.connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				metrics.WebSocketPingFailures.Inc()
				return
			}
		case <-h.doneChannel:
			return
		}
	}
}

// Close shuts down the writer goroutine and the underlying connection.
// Safe to call more than once and from any goroutine; closing also unblocks
// the owner's read loop.
func (h *Handle) Close() {
	h.stopOnce.Do(func() {
		close(h.doneChannel)
		_ = h.connection.Close()
	})
	h.wg.Wait()
}

func (h *Handle) configurePongHandler() {
	h.ExtendReadDeadline()
	h.connection.SetPongHandler(func(string) error {
		h.ExtendReadDeadline()
		return nil
	})
}

// ExtendReadDeadline pushes the read deadline out by the pong window.
// Called from the pong handler and from client heartbeat frames, so idle
// but live connections are not reaped while dead ones fail reads within
// bounded time.
func (h *Handle) ExtendReadDeadline() {
	deadline := h.clock.Now().Add(pongDeadline)
	_ = h.connection.SetReadDeadline(deadline)
}

func (h *Handle) updateWriteDeadline() {
	deadline := h.clock.Now().Add(writeDeadline)
	_ = h.connection.SetWriteDeadline(deadline)
}
