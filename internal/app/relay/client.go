package relay

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"chatrelay/internal/app/user"
	"chatrelay/internal/pkg/errs"
	"chatrelay/internal/pkg/logx"
	"chatrelay/internal/pkg/randx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxFrameSize = 2*MaxMessageBytes + 4096

	sendQueueSize = 256
)

// ClientOptions configures a socket client.
type ClientOptions struct {
	// Identity is the user id proven by the handshake token, if any.
	Identity user.ID

	// EventRate and EventBurst bound inbound frames per connection. Zero disables the limit.
	EventRate  float64
	EventBurst int
}

// Client is one WebSocket connection. It implements Conn.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	id   string

	identity user.ID
	limiter  *rate.Limiter

	// a buffered channel used to queue frames waiting to be written.
	send chan []byte

	// closed by Close; send is never closed so Send cannot panic.
	done      chan struct{}
	closeOnce sync.Once

	logger zerolog.Logger
}

// NewClient constructs a client for an upgraded socket.
func NewClient(hub *Hub, wsConn *websocket.Conn, opts ClientOptions) *Client {
	id := randx.ConnID()

	logCtx := logx.Logger().With().Str("conn_id", id)
	if opts.Identity != "" {
		logCtx = logCtx.Str("user_id", opts.Identity.String())
	}

	c := &Client{
		hub:      hub,
		conn:     wsConn,
		id:       id,
		identity: opts.Identity,
		send:     make(chan []byte, sendQueueSize),
		done:     make(chan struct{}),
		logger:   logCtx.Logger(),
	}

	if opts.EventRate > 0 {
		burst := opts.EventBurst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.EventRate), burst)
	}

	return c
}

// ID returns the connection id.
func (c *Client) ID() string { return c.id }

// Identity returns the verified user id of the connection, if the handshake carried one.
func (c *Client) Identity() (user.ID, bool) {
	return c.identity, c.identity != ""
}

// Send queues one frame. It never blocks.
func (c *Client) Send(event string, data any) error {
	frame, err := encodeFrame(event, data)
	if err != nil {
		c.logger.Error().Err(err).Str("event", event).Msg("Error marshaling frame for client")
		return err
	}

	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}

	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return ErrConnClosed
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Str("event", event).Msg("Client send channel full, dropping frame")
		return ErrSendQueueFull
	}
}

// Close stops the write pump, which sends a close frame and closes the socket.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// ReadPump reads frames until the socket fails, then removes the client from the hub.
func (c *Client) ReadPump() {
	defer func() {
		c.logger.Info().Msg("Client connection cleanup starting.")
		c.hub.Disconnect(c)
		c.Close()
		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error")
		}
	}()

	c.conn.SetReadLimit(maxFrameSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading message (Client close/going away)")
			}
			return
		}

		if c.limiter != nil && !c.limiter.Allow() {
			c.sendError(errs.NewError(errs.ErrRateLimitExceeded))
			continue
		}

		in, cerr := DecodeFrame(raw)
		if cerr != nil {
			c.logger.Warn().Int("code", cerr.Code).Msg("Client sent invalid frame")
			c.sendError(cerr)
			continue
		}

		if !c.hub.Submit(c, in) {
			return
		}
	}
}

// WritePump writes queued frames and keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		// ensure the connection is closed on exit
		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case frame := <-c.send:
			if !c.write(websocket.TextMessage, frame) {
				return
			}

		case <-ticker.C:
			if !c.write(websocket.PingMessage, nil) {
				return
			}

		case <-c.done:
			c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *Client) write(messageType int, payload []byte) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if err := c.conn.WriteMessage(messageType, payload); err != nil {
		c.logger.Debug().Err(err).Int("message_type", messageType).Msg("Error writing message")
		return false
	}

	return true
}

func (c *Client) sendError(cerr *errs.CustomError) {
	if err := c.Send(EventError, cerr); err != nil {
		c.logger.Debug().Err(err).Msg("Failed to queue error frame")
	}
}

// encodeFrame builds {"event", "data"}. A nil data omits the data field.
func encodeFrame(event string, data any) ([]byte, error) {
	frame := Frame{Event: event}

	switch d := data.(type) {
	case nil:
	case json.RawMessage:
		frame.Data = d
	default:
		raw, err := json.Marshal(d)
		if err != nil {
			return nil, err
		}
		frame.Data = raw
	}

	return json.Marshal(frame)
}
