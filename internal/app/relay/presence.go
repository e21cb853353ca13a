package relay

import (
	"encoding/json"

	"github.com/rs/zerolog"

	"chatrelay/internal/pkg/logx"
)

// Publisher broadcasts presence to every registered connection: the full
// online-user set, and the single user whose status changed.
type Publisher struct {
	registry *Registry
	logger   zerolog.Logger
}

// NewPublisher returns a publisher reading from registry.
func NewPublisher(registry *Registry) *Publisher {
	return &Publisher{
		registry: registry,
		logger:   logx.Component("Presence"),
	}
}

// Publish sends online-users to every registered connection and returns how many
// sends succeeded. A failing connection does not stop the broadcast.
func (p *Publisher) Publish() int {
	ids := p.registry.Snapshot()

	online := make([]string, len(ids))
	for i, id := range ids {
		online[i] = id.String()
	}

	payload, err := json.Marshal(OnlineUsersPayload{OnlineUsers: online})
	if err != nil {
		p.logger.Error().Err(err).Msg("Failed to marshal online-users payload.")
		return 0
	}

	sent := 0
	for _, conn := range p.registry.Conns() {
		if err := conn.Send(EventOnlineUsers, json.RawMessage(payload)); err != nil {
			p.logger.Warn().Err(err).Str("conn_id", conn.ID()).Msg("Presence update not delivered.")
			continue
		}
		sent++
	}

	p.logger.Debug().Int("online", len(online)).Int("delivered", sent).Msg("Presence published.")
	return sent
}

// PublishStatus sends user_status for c to every registered connection except the
// changed user's own, and returns how many sends succeeded.
func (p *Publisher) PublishStatus(c Change) int {
	status := StatusOffline
	if c.Online {
		status = StatusOnline
	}

	payload, err := json.Marshal(UserStatusPayload{UserID: c.UserID.String(), Status: status})
	if err != nil {
		p.logger.Error().Err(err).Msg("Failed to marshal user_status payload.")
		return 0
	}

	var self Conn
	if c.Online {
		self, _ = p.registry.Lookup(c.UserID)
	}

	sent := 0
	for _, conn := range p.registry.Conns() {
		if conn == self {
			continue
		}
		if err := conn.Send(EventUserStatus, json.RawMessage(payload)); err != nil {
			p.logger.Warn().Err(err).Str("conn_id", conn.ID()).Msg("User status not delivered.")
			continue
		}
		sent++
	}
	return sent
}
