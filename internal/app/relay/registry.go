package relay

import (
	"errors"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"chatrelay/internal/app/user"
	"chatrelay/internal/pkg/logx"
)

var (
	// ErrConnClosed is returned by Conn.Send after the connection has shut down.
	ErrConnClosed = errors.New("connection closed")

	// ErrSendQueueFull is returned by Conn.Send when the outbound queue is full.
	ErrSendQueueFull = errors.New("send queue full")
)

// Conn is a transport connection as seen by the relay. The transport owns its
// lifetime; the relay only keeps references. Send must not block.
type Conn interface {
	ID() string
	Send(event string, data any) error
	Close()
}

// Change describes one registry mutation: id came online (or moved to a new
// connection) or went offline.
type Change struct {
	UserID user.ID
	Online bool
}

// Registry maps each online user to the connection that announced it last.
// It is the single source of truth for presence and is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	conns map[user.ID]Conn

	hookMu   sync.RWMutex
	onChange []func(Change)

	logger zerolog.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		conns:  make(map[user.ID]Conn),
		logger: logx.Component("Registry"),
	}
}

// OnChange adds fn to the functions run after every mutation. Hooks run outside
// the registry lock, on the goroutine that mutated the registry.
func (r *Registry) OnChange(fn func(Change)) {
	r.hookMu.Lock()
	defer r.hookMu.Unlock()
	r.onChange = append(r.onChange, fn)
}

func (r *Registry) changed(c Change) {
	r.hookMu.RLock()
	hooks := slices.Clone(r.onChange)
	r.hookMu.RUnlock()

	for _, fn := range hooks {
		fn(c)
	}
}

// Register maps id to conn, replacing any previous connection for id.
func (r *Registry) Register(id user.ID, conn Conn) {
	r.mu.Lock()
	previous, replaced := r.conns[id]
	r.conns[id] = conn
	total := len(r.conns)
	r.mu.Unlock()

	event := r.logger.Info().Str("user_id", id.String()).Str("conn_id", conn.ID()).Int("online", total)
	if replaced && previous != conn {
		event = event.Str("replaced_conn_id", previous.ID())
	}
	event.Msg("User registered.")

	r.changed(Change{UserID: id, Online: true})
}

// Unregister removes id. It reports whether an entry was removed; removing an
// absent id is a no-op.
func (r *Registry) Unregister(id user.ID) bool {
	r.mu.Lock()
	_, ok := r.conns[id]
	delete(r.conns, id)
	total := len(r.conns)
	r.mu.Unlock()

	if !ok {
		return false
	}

	r.logger.Info().Str("user_id", id.String()).Int("online", total).Msg("User unregistered.")
	r.changed(Change{UserID: id})
	return true
}

// UnregisterConn removes id only while it still maps to conn. A stale
// connection closing after its user reconnected leaves the newer entry alone.
func (r *Registry) UnregisterConn(id user.ID, conn Conn) bool {
	r.mu.Lock()
	current, ok := r.conns[id]
	if !ok || current != conn {
		r.mu.Unlock()
		if ok {
			r.logger.Debug().
				Str("user_id", id.String()).
				Str("stale_conn_id", conn.ID()).
				Msg("Ignoring unregister for stale connection.")
		}
		return false
	}
	delete(r.conns, id)
	total := len(r.conns)
	r.mu.Unlock()

	r.logger.Info().Str("user_id", id.String()).Str("conn_id", conn.ID()).Int("online", total).Msg("User disconnected.")
	r.changed(Change{UserID: id})
	return true
}

// Lookup returns the connection registered for id.
func (r *Registry) Lookup(id user.ID) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[id]
	return conn, ok
}

// Snapshot returns the online user ids in ascending order.
func (r *Registry) Snapshot() []user.ID {
	r.mu.RLock()
	ids := make([]user.ID, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	slices.Sort(ids)
	return ids
}

// Conns returns the registered connections.
func (r *Registry) Conns() []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]Conn, 0, len(r.conns))
	for _, c := range r.conns {
		conns = append(conns, c)
	}
	return conns
}

// Len returns the number of online users.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Clear drops every entry without running hooks. Used at shutdown.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.conns)
}
