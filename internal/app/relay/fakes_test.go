package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"chatrelay/internal/app/store"
	"chatrelay/internal/app/user"
	"chatrelay/internal/pkg/logx"
)

func TestMain(m *testing.M) {
	logx.SetOutput(io.Discard)
	os.Exit(m.Run())
}

type sentFrame struct {
	Event string
	Data  any
}

// raw returns the frame data as JSON.
func (f sentFrame) raw() []byte {
	if f.Data == nil {
		return nil
	}
	if r, ok := f.Data.(json.RawMessage); ok {
		return r
	}
	b, _ := json.Marshal(f.Data)
	return b
}

type fakeConn struct {
	id string

	mu     sync.Mutex
	frames []sentFrame
	err    error
	closed bool
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(event string, data any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.err != nil {
		return c.err
	}
	c.frames = append(c.frames, sentFrame{Event: event, Data: data})
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeConn) failWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

func (c *fakeConn) Frames() []sentFrame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sentFrame(nil), c.frames...)
}

// Events returns the frames with the given event name.
func (c *fakeConn) Events(event string) []sentFrame {
	var out []sentFrame
	for _, f := range c.Frames() {
		if f.Event == event {
			out = append(out, f)
		}
	}
	return out
}

// Signals returns every frame except presence broadcasts.
func (c *fakeConn) Signals() []sentFrame {
	var out []sentFrame
	for _, f := range c.Frames() {
		if f.Event != EventOnlineUsers && f.Event != EventUserStatus {
			out = append(out, f)
		}
	}
	return out
}

func (c *fakeConn) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = nil
}

func (c *fakeConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type identifiedConn struct {
	*fakeConn
	identity user.ID
}

func (c identifiedConn) Identity() (user.ID, bool) {
	return c.identity, c.identity != ""
}

var errBrokenPipe = errors.New("broken pipe")

// fakeStore keeps messages in memory and enforces unique ids like the messages
// table. The first lostReplies inserts are stored but report a timeout.
type fakeStore struct {
	mu          sync.Mutex
	messages    []store.NewMessage
	reads       [][2]string
	err         error
	lostReplies int
}

func (s *fakeStore) CreateMessage(_ context.Context, arg store.NewMessage) (store.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return store.Message{}, s.err
	}
	for _, m := range s.messages {
		if m.ID == arg.ID {
			return store.Message{}, fmt.Errorf("create message: %w", &pgconn.PgError{Code: "23505"})
		}
	}
	s.messages = append(s.messages, arg)
	if s.lostReplies > 0 {
		s.lostReplies--
		return store.Message{}, context.DeadlineExceeded
	}
	return store.Message{ID: arg.ID, SenderID: arg.SenderID, ReceiverID: arg.ReceiverID, Body: arg.Body, Status: arg.Status}, nil
}

func (s *fakeStore) MarkRead(_ context.Context, sender, reader string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return 0, s.err
	}
	s.reads = append(s.reads, [2]string{sender, reader})
	return 1, nil
}

func (s *fakeStore) Messages() []store.NewMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]store.NewMessage(nil), s.messages...)
}

func (s *fakeStore) Reads() [][2]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][2]string(nil), s.reads...)
}

// onlineUsers decodes an online-users frame.
func onlineUsers(f sentFrame) []string {
	var p OnlineUsersPayload
	_ = json.Unmarshal(f.raw(), &p)
	return p.OnlineUsers
}

// userStatus decodes a user_status frame.
func userStatus(f sentFrame) UserStatusPayload {
	var p UserStatusPayload
	_ = json.Unmarshal(f.raw(), &p)
	return p
}

// decode is DecodeFrame for tests that only build valid frames.
func decode(t *testing.T, raw string) Inbound {
	t.Helper()
	in, cerr := DecodeFrame([]byte(raw))
	if cerr != nil {
		t.Fatalf("DecodeFrame(%s) = %v", raw, cerr)
	}
	return in
}
