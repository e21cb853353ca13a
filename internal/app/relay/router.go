package relay

import (
	"github.com/rs/zerolog"

	"chatrelay/internal/app/user"
	"chatrelay/internal/pkg/logx"
)

// Router forwards envelopes to the recipient's current connection.
//
// Delivery is best-effort and at most once: an offline recipient or a failed
// transport write drops the event, and the sender is not told.
type Router struct {
	registry *Registry
	logger   zerolog.Logger
}

// NewRouter returns a router resolving recipients through registry.
func NewRouter(registry *Registry) *Router {
	return &Router{
		registry: registry,
		logger:   logx.Component("Router"),
	}
}

// Route delivers env.Data to env.To under the kind's inbound event name and
// reports whether exactly one write succeeded.
func (r *Router) Route(env Envelope) bool {
	event := InboundEvent(env.Kind)
	if event == "" {
		r.logger.Error().Str("kind", string(env.Kind)).Msg("Envelope kind has no inbound event.")
		return false
	}

	var data any
	if env.Data != nil {
		data = env.Data
	}

	delivered := r.Deliver(env.To, event, data)
	if delivered {
		r.logger.Debug().
			Str("kind", string(env.Kind)).
			Str("from", env.From.ID.String()).
			Str("to", env.To.String()).
			Msg("Envelope delivered.")
	}
	return delivered
}

// Deliver sends one event to id if it is online.
func (r *Router) Deliver(id user.ID, event string, data any) bool {
	conn, ok := r.registry.Lookup(id)
	if !ok {
		r.logger.Debug().Str("to", id.String()).Str("event", event).Msg("Recipient offline, dropping event.")
		return false
	}

	if err := conn.Send(event, data); err != nil {
		r.logger.Warn().Err(err).
			Str("to", id.String()).
			Str("conn_id", conn.ID()).
			Str("event", event).
			Msg("Transport write failed, dropping event.")
		return false
	}

	return true
}
