package relay

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"chatrelay/internal/app/user"
	"chatrelay/internal/pkg/errs"
	"chatrelay/internal/pkg/logx"
)

const inboundChannelBuffer = 1024

// Identified is implemented by connections that carry a verified identity,
// such as a socket opened with a valid token.
type Identified interface {
	Identity() (user.ID, bool)
}

// HubOptions configures the optional call behaviours and persistence.
type HubOptions struct {
	// RingTimeout ends unanswered calls after this long. Zero disables it.
	RingTimeout time.Duration

	// EndCallOnDisconnect sends call-ended to the peer of a user whose
	// connection drops mid-call.
	EndCallOnDisconnect bool

	// Store enables message archiving when set.
	Store MessageStore
}

// inboundMsg is a frame from conn, or its disconnect. Both travel on one channel
// so a connection's disconnect is handled after every frame it submitted.
type inboundMsg struct {
	conn       Conn
	in         Inbound
	disconnect bool
}

// ringTimer is a pending ring timeout. gen tells a fired expiry of an older
// offer apart from the current one for the same room.
type ringTimer struct {
	timer *time.Timer
	gen   uint64
}

type expiry struct {
	roomID string
	gen    uint64
}

// Hub is the relay's single event loop. Inbound frames, disconnects and ring
// timeouts are handled one at a time, in arrival order, on the Run goroutine.
type Hub struct {
	registry  *Registry
	router    *Router
	publisher *Publisher
	calls     *Negotiator
	archiver  *Archiver
	opts      HubOptions

	inbound  chan inboundMsg
	expire   chan expiry
	stopChan chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	doneOnce sync.Once
	running  atomic.Bool

	// owned by the Run goroutine.
	bindings map[Conn]user.ID
	timers   map[string]ringTimer
	timerGen uint64

	logger zerolog.Logger
}

// NewHub wires the router, presence publisher, negotiator and archiver around registry.
func NewHub(registry *Registry, opts HubOptions) *Hub {
	h := &Hub{
		registry:  registry,
		router:    NewRouter(registry),
		publisher: NewPublisher(registry),
		calls:     NewNegotiator(),
		opts:      opts,
		inbound:   make(chan inboundMsg, inboundChannelBuffer),
		expire:    make(chan expiry, inboundChannelBuffer),
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
		bindings:  make(map[Conn]user.ID),
		timers:    make(map[string]ringTimer),
		logger:    logx.Component("Hub"),
	}

	if opts.Store != nil {
		h.archiver = NewArchiver(opts.Store)
	}

	registry.OnChange(func(c Change) {
		h.publisher.Publish()
		h.publisher.PublishStatus(c)
	})

	return h
}

// Registry returns the hub's connection registry.
func (h *Hub) Registry() *Registry { return h.registry }

// Calls returns the hub's call negotiator.
func (h *Hub) Calls() *Negotiator { return h.calls }

// Run processes events until Stop is called.
func (h *Hub) Run() {
	h.running.Store(true)
	defer close(h.done)
	defer h.shutdown()

	h.logger.Info().
		Dur("ring_timeout", h.opts.RingTimeout).
		Bool("end_call_on_disconnect", h.opts.EndCallOnDisconnect).
		Bool("archive", h.archiver != nil).
		Msg("Hub started.")

	for {
		select {
		case msg := <-h.inbound:
			if msg.disconnect {
				h.handleDisconnect(msg.conn)
				continue
			}
			h.handle(msg.conn, msg.in)

		case e := <-h.expire:
			h.handleExpire(e)

		case <-h.stopChan:
			return
		}
	}
}

// Stop ends the Run loop, closes every connection and drains the archiver.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		h.logger.Info().Msg("Received stop signal. Stopping hub.")
		close(h.stopChan)
	})

	if h.running.Load() {
		<-h.done
		return
	}
	h.shutdown()
}

func (h *Hub) shutdown() {
	h.doneOnce.Do(h.closeAll)
}

func (h *Hub) closeAll() {
	for roomID, t := range h.timers {
		t.timer.Stop()
		delete(h.timers, roomID)
	}

	for conn := range h.bindings {
		conn.Close()
	}
	clear(h.bindings)
	for _, conn := range h.registry.Conns() {
		conn.Close()
	}
	h.registry.Clear()

	if h.archiver != nil {
		h.archiver.Stop()
	}

	h.logger.Info().Msg("Hub stopped.")
}

// Submit queues a decoded frame from conn. It reports false once the hub is stopping.
func (h *Hub) Submit(conn Conn, in Inbound) bool {
	select {
	case <-h.stopChan:
		return false
	default:
	}

	select {
	case h.inbound <- inboundMsg{conn: conn, in: in}:
		return true
	case <-h.stopChan:
		return false
	}
}

// Disconnect queues the removal of conn behind the frames it already submitted.
// Safe to call more than once.
func (h *Hub) Disconnect(conn Conn) {
	select {
	case h.inbound <- inboundMsg{conn: conn, disconnect: true}:
	case <-h.stopChan:
	}
}

func (h *Hub) handle(conn Conn, in Inbound) {
	switch in.Event {
	case EventAddUser:
		h.handleAddUser(conn, in.UserID)
	case EventSignout:
		h.handleSignout(conn, in.UserID)
	default:
		h.handleSignal(conn, in.Envelope)
	}
}

func (h *Hub) handleAddUser(conn Conn, id user.ID) {
	if verified, ok := identityOf(conn); ok && verified != id {
		h.sendError(conn, errs.NewError(errs.ErrIdentityMismatch))
		return
	}

	if previous, ok := h.bindings[conn]; ok && previous != id {
		if h.registry.UnregisterConn(previous, conn) {
			h.endCalls(previous)
		}
	}

	h.bindings[conn] = id
	h.registry.Register(id, conn)
}

func (h *Hub) handleSignout(conn Conn, id user.ID) {
	bound, ok := h.announced(conn)
	if !ok {
		h.sendError(conn, errs.NewError(errs.ErrNotAnnounced))
		return
	}
	if id != "" && id != bound {
		h.sendError(conn, errs.NewError(errs.ErrIdentityMismatch))
		return
	}

	delete(h.bindings, conn)
	if h.registry.UnregisterConn(bound, conn) {
		h.endCalls(bound)
	}
}

// announced returns the user conn speaks for. A connection whose user has since
// announced itself on another connection speaks for no one until it announces again.
func (h *Hub) announced(conn Conn) (user.ID, bool) {
	id, ok := h.bindings[conn]
	if !ok {
		return "", false
	}
	if current, ok := h.registry.Lookup(id); !ok || current != conn {
		return "", false
	}
	return id, true
}

func (h *Hub) handleDisconnect(conn Conn) {
	id, ok := h.bindings[conn]
	if !ok {
		return
	}
	delete(h.bindings, conn)

	if h.registry.UnregisterConn(id, conn) {
		h.endCalls(id)
	}
}

func (h *Hub) handleSignal(conn Conn, env Envelope) {
	sender, ok := h.announced(conn)
	if !ok {
		h.sendError(conn, errs.NewError(errs.ErrNotAnnounced))
		return
	}

	if env.From.ID == "" {
		env.From = user.User{ID: sender}
	} else if env.From.ID != sender {
		h.sendError(conn, errs.NewError(errs.ErrIdentityMismatch))
		return
	}

	switch {
	case env.Kind.IsCallOffer():
		if env.To == sender {
			h.sendError(conn, errs.NewError(errs.ErrCallTypeInvalid))
			return
		}
		h.handleOffer(env)

	case env.Kind.IsCallRejection():
		if s, err := h.calls.Reject(env.To, sender); err == nil {
			h.stopRinging(s.RoomID)
		}
		h.router.Route(env)

	case env.Kind == KindAcceptCall:
		s, err := h.calls.Accept(env.To, sender)
		if err != nil {
			h.logger.Debug().Err(err).
				Str("caller", env.To.String()).
				Str("callee", sender.String()).
				Msg("Ignoring accept without a ringing call.")
			return
		}
		h.stopRinging(s.RoomID)
		h.router.Route(env)

	case env.Kind == KindEndCall:
		if s, err := h.calls.Hangup(sender, env.To); err == nil {
			h.stopRinging(s.RoomID)
		}
		h.router.Route(env)

	case env.Kind == KindReadReceipt:
		h.router.Route(env)
		if h.archiver != nil {
			h.archiver.ArchiveRead(env.To.String(), sender.String())
		}

	case env.Kind == KindChatMessage:
		delivered := h.router.Route(env)
		if h.archiver != nil {
			h.archiver.ArchiveMessage(env, delivered)
		}

	default:
		h.router.Route(env)
	}
}

func (h *Hub) handleOffer(env Envelope) {
	if !h.router.Route(env) {
		return
	}

	s, replaced, err := h.calls.Offer(env.RoomID, env.CallType, env.From, env.To)
	if err != nil {
		h.logger.Warn().Err(err).Str("room_id", env.RoomID).Msg("Call offer delivered but not tracked.")
		return
	}
	if replaced != nil {
		h.stopRinging(replaced.RoomID)
		h.logger.Info().Str("room_id", replaced.RoomID).Str("new_room_id", s.RoomID).Msg("Call superseded.")
	}

	h.startRinging(s.RoomID)
	h.logger.Info().Str("call", s.String()).Msg("Call ringing.")
}

func (h *Hub) handleExpire(e expiry) {
	roomID := e.roomID
	if t, ok := h.timers[roomID]; !ok || t.gen != e.gen {
		h.logger.Debug().Str("room_id", roomID).Msg("Ignoring stale ring timeout.")
		return
	}
	delete(h.timers, roomID)

	s, err := h.calls.Expire(roomID)
	if err != nil {
		if !errors.Is(err, ErrCallNotFound) {
			h.logger.Debug().Err(err).Str("room_id", roomID).Msg("Ring timer fired for answered call.")
		}
		return
	}

	payload := CallEndedPayload{RoomID: s.RoomID, From: s.Caller.ID.String(), Reason: string(ReasonTimeout)}
	h.router.Deliver(s.Caller.ID, EventCallEnded, payload)
	h.router.Deliver(s.Callee, EventCallEnded, payload)

	h.logger.Info().Str("room_id", roomID).Msg("Call not answered in time.")
}

// endCalls ends the live calls of a user who went offline.
func (h *Hub) endCalls(id user.ID) {
	for _, s := range h.calls.Disconnect(id) {
		h.stopRinging(s.RoomID)

		if h.opts.EndCallOnDisconnect {
			h.router.Deliver(s.Peer(id), EventCallEnded, CallEndedPayload{
				RoomID: s.RoomID,
				From:   id.String(),
				Reason: string(ReasonDisconnect),
			})
		}
		h.logger.Info().Str("room_id", s.RoomID).Str("user_id", id.String()).Msg("Call ended by disconnect.")
	}
}

func (h *Hub) startRinging(roomID string) {
	if h.opts.RingTimeout <= 0 {
		return
	}
	h.stopRinging(roomID)

	h.timerGen++
	e := expiry{roomID: roomID, gen: h.timerGen}
	t := time.AfterFunc(h.opts.RingTimeout, func() {
		select {
		case h.expire <- e:
		case <-h.stopChan:
		}
	})
	h.timers[roomID] = ringTimer{timer: t, gen: e.gen}
}

func (h *Hub) stopRinging(roomID string) {
	if t, ok := h.timers[roomID]; ok {
		t.timer.Stop()
		delete(h.timers, roomID)
	}
}

func (h *Hub) sendError(conn Conn, cerr *errs.CustomError) {
	if err := conn.Send(EventError, cerr); err != nil {
		h.logger.Debug().Err(err).Str("conn_id", conn.ID()).Msg("Failed to send error frame.")
	}
}

func identityOf(conn Conn) (user.ID, bool) {
	if c, ok := conn.(Identified); ok {
		return c.Identity()
	}
	return "", false
}
