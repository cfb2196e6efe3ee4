package broadcast

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/F0laf0lu/Chat-API/internal/domain"
	"github.com/F0laf0lu/Chat-API/internal/metrics"
)

const (
	commandTimeout = 5 * time.Second
	stopTimeout    = 10 * time.Second
)

type roomMembers map[*Handle]struct{}

// registryCmd is the command interface for the Registry actor.
type registryCmd interface{ isRegistryCmd() }

type baseRegistryCmd struct{}

func (baseRegistryCmd) isRegistryCmd() {}

type subscribeCmd struct {
	baseRegistryCmd
	key          string
	handle       *Handle
	errorChannel chan error
}

type unsubscribeCmd struct {
	baseRegistryCmd
	key    string
	handle *Handle
}

type broadcastCmd struct {
	baseRegistryCmd
	key   string
	event domain.Event
}

type memberCountCmd struct {
	baseRegistryCmd
	key          string
	replyChannel chan int
}

type stopCmd struct {
	baseRegistryCmd
}

// Registry maps broadcast keys to the set of subscribed connection handles
// and fans events out to them. A single goroutine owns the membership map;
// commands are processed strictly in arrival order, which also gives
// per-key FIFO delivery for broadcasts issued by serialized callers.
type Registry struct {
	cmdCh             chan registryCmd
	clock             clockwork.Clock
	members           map[string]roomMembers
	maxClientsPerRoom int
	done              chan struct{}
}

// NewRegistry creates a registry and starts its actor goroutine.
// maxClientsPerRoom limits subscribers per broadcast key (prevents resource
// exhaustion through a single room).
func NewRegistry(clock clockwork.Clock, maxClientsPerRoom int) *Registry {
	r := &Registry{
		cmdCh:             make(chan registryCmd, 256),
		clock:             clock,
		members:           make(map[string]roomMembers),
		maxClientsPerRoom: maxClientsPerRoom,
		done:              make(chan struct{}),
	}
	go r.run()
	return r
}

// Subscribe adds a handle to the room's membership set. Idempotent: adding
// a handle that is already subscribed is a no-op. Returns an error only if
// the room is at capacity or the registry is unresponsive.
func (r *Registry) Subscribe(key string, handle *Handle) error {
	errCh := make(chan error, 1)
	r.cmdCh <- subscribeCmd{key: key, handle: handle, errorChannel: errCh}

	timer := r.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case err := <-errCh:
		return err
	case <-timer.Chan():
		return fmt.Errorf("subscribe command timed out after %v", commandTimeout)
	}
}

// Unsubscribe removes a handle from the room's membership set. A handle
// that is not subscribed, or a key that no longer exists, is a no-op: a
// disconnect racing an eviction or a room teardown is not an error.
func (r *Registry) Unsubscribe(key string, handle *Handle) {
	r.cmdCh <- unsubscribeCmd{key: key, handle: handle}
}

// Broadcast delivers the event to every handle subscribed at the time the
// command is processed. Fire and forget: delivery to each handle is best
// effort and a dead or slow subscriber never affects the others.
func (r *Registry) Broadcast(key string, event domain.Event) {
	r.cmdCh <- broadcastCmd{key: key, event: event}
}

// MemberCount returns the number of subscribed handles for a key.
// Returns -1 if the command times out.
func (r *Registry) MemberCount(key string) int {
	replyCh := make(chan int, 1)
	r.cmdCh <- memberCountCmd{key: key, replyChannel: replyCh}

	timer := r.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case count := <-replyCh:
		return count
	case <-timer.Chan():
		slog.Warn("MemberCount timed out", "timeout", commandTimeout)
		return -1
	}
}

// Stop shuts down the registry, closing all subscribed handles.
// Blocks until the actor goroutine has exited or the timeout is reached.
func (r *Registry) Stop() {
	r.cmdCh <- stopCmd{}

	timeout := r.clock.NewTimer(stopTimeout)
	defer timeout.Stop()

	select {
	case <-r.done:
		slog.Info("Registry stopped gracefully")
	case <-timeout.Chan():
		slog.Warn("Registry stop timeout exceeded, forcing exit", "timeout", stopTimeout)
		metrics.RegistryStopTimeoutsTotal.Inc()
		close(r.done)
	}
}

func (r *Registry) run() {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Registry panic recovered", "panic", rec)
			metrics.RegistryPanicsTotal.Inc()
			r.closeAllMembers()
		}
	}()
	defer close(r.done)

	depthTicker := r.clock.NewTicker(1 * time.Second)
	defer depthTicker.Stop()

	for {
		select {
		case <-depthTicker.Chan():
			depth := len(r.cmdCh)
			metrics.RegistryCommandChannelDepth.Set(float64(depth))
			if depth > 200 { // 80% of 256
				slog.Warn("Registry command channel near capacity", "depth", depth, "capacity", cap(r.cmdCh))
			}
		case cmd := <-r.cmdCh:
			switch c := cmd.(type) {
			case subscribeCmd:
				r.handleSubscribe(c)
			case unsubscribeCmd:
				r.handleUnsubscribe(c)
			case broadcastCmd:
				r.handleBroadcast(c)
			case memberCountCmd:
				c.replyChannel <- len(r.members[c.key])
			case stopCmd:
				r.handleStop()
				return
			default:
				slog.Warn("Registry received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
			}
		}
	}
}

func (r *Registry) handleSubscribe(c subscribeCmd) {
	members, exists := r.members[c.key]
	if exists {
		if _, subscribed := members[c.handle]; subscribed {
			c.errorChannel <- nil
			return
		}
		if len(members) >= r.maxClientsPerRoom {
			slog.Warn("Rejecting subscriber: room at capacity", "room_key", c.key, "max_clients", r.maxClientsPerRoom)
			c.errorChannel <- fmt.Errorf("max clients per room (%d) reached", r.maxClientsPerRoom)
			return
		}
	} else {
		// Membership sets are created lazily on first subscribe; a
		// rejected subscribe never creates one.
		members = make(roomMembers)
		r.members[c.key] = members
	}

	members[c.handle] = struct{}{}

	metrics.RegistryActiveRooms.Set(float64(len(r.members)))
	metrics.RegistryConnectedClients.Inc()

	slog.Debug("Subscriber registered", "room_key", c.key, "user", c.handle.User(), "total_clients", len(members))
	c.errorChannel <- nil
}

func (r *Registry) handleUnsubscribe(c unsubscribeCmd) {
	members, exists := r.members[c.key]
	if !exists {
		return
	}

	if _, subscribed := members[c.handle]; !subscribed {
		return
	}

	delete(members, c.handle)
	metrics.RegistryConnectedClients.Dec()

	if len(members) == 0 {
		delete(r.members, c.key)
		metrics.RegistryActiveRooms.Set(float64(len(r.members)))
		slog.Info("Last subscriber left room", "room_key", c.key)
	} else {
		slog.Debug("Subscriber unregistered", "room_key", c.key, "remaining_clients", len(members))
	}
}

func (r *Registry) handleBroadcast(c broadcastCmd) {
	metrics.RegistryBroadcastsTotal.WithLabelValues(string(c.event.Kind())).Inc()

	members, exists := r.members[c.key]
	if !exists {
		// No subscribers is not an error: delivery is a courtesy to
		// currently-connected clients, not a durability guarantee.
		return
	}

	frame := c.event.Frame()
	var slow []*Handle
	for handle := range members {
		if err := handle.send(frame); err != nil {
			metrics.RegistryDroppedDeliveriesTotal.Inc()
			slog.Warn("Dropped delivery to slow subscriber", "room_key", c.key, "user", handle.User())
			slow = append(slow, handle)
		}
	}

	// A full send buffer means the client stopped reading. Evict it:
	// closing the handle also unblocks the gateway's read loop, whose own
	// unsubscribe then becomes a harmless no-op.
	for _, handle := range slow {
		metrics.RegistrySlowClientsEvicted.Inc()
		r.handleUnsubscribe(unsubscribeCmd{key: c.key, handle: handle})
		handle.Close()
	}
}

func (r *Registry) handleStop() {
	totalClients := 0
	for _, members := range r.members {
		totalClients += len(members)
	}

	slog.Info("Registry shutting down", "rooms", len(r.members), "total_clients", totalClients)
	r.closeAllMembers()
	slog.Info("Registry shutdown complete", "disconnected_clients", totalClients)
}

func (r *Registry) closeAllMembers() {
	for key, members := range r.members {
		for handle := range members {
			handle.Close()
		}
		delete(r.members, key)
	}
	metrics.RegistryActiveRooms.Set(0)
	metrics.RegistryConnectedClients.Set(0)
}
