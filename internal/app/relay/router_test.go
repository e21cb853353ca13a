package relay

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatrelay/internal/app/user"
)

func TestRouter_DeliversExactlyOnce(t *testing.T) {
	reg := NewRegistry()
	bob := newFakeConn("bob")
	reg.Register("bob", bob)

	payload := json.RawMessage(`{"to":"bob","from":"alice","message":"hi"}`)
	ok := NewRouter(reg).Route(Envelope{
		Kind: KindChatMessage,
		To:   "bob",
		From: user.User{ID: "alice"},
		Data: payload,
	})

	require.True(t, ok)
	frames := bob.Frames()
	require.Len(t, frames, 1)
	assert.Equal(t, EventMsgReceive, frames[0].Event)
	assert.JSONEq(t, string(payload), string(frames[0].raw()))
}

func TestRouter_OfflineRecipientGetsNothing(t *testing.T) {
	reg := NewRegistry()
	alice := newFakeConn("alice")
	reg.Register("alice", alice)

	ok := NewRouter(reg).Route(Envelope{Kind: KindTyping, To: "carol", From: user.User{ID: "alice"}})

	assert.False(t, ok)
	assert.Empty(t, alice.Frames())
}

func TestRouter_WriteFailureCountsAsUndelivered(t *testing.T) {
	reg := NewRegistry()
	bob := newFakeConn("bob")
	bob.failWith(errBrokenPipe)
	reg.Register("bob", bob)

	ok := NewRouter(reg).Route(Envelope{Kind: KindTyping, To: "bob", Data: json.RawMessage(`{}`)})

	assert.False(t, ok)
}

func TestRouter_RejectionHasNoPayload(t *testing.T) {
	reg := NewRegistry()
	alice := newFakeConn("alice")
	reg.Register("alice", alice)

	ok := NewRouter(reg).Route(Envelope{Kind: KindRejectVideoCall, To: "alice"})

	require.True(t, ok)
	frames := alice.Frames()
	require.Len(t, frames, 1)
	assert.Equal(t, EventVideoCallRejected, frames[0].Event)
	assert.Nil(t, frames[0].Data)
}

func TestInboundEventNames(t *testing.T) {
	cases := map[EventKind]string{
		KindChatMessage:       "msg-recieve",
		KindOutgoingVoiceCall: "incoming-voice-call",
		KindOutgoingVideoCall: "incoming-video-call",
		KindRejectVoiceCall:   "voice-call-rejected",
		KindRejectVideoCall:   "video-call-rejected",
		KindAcceptCall:        "accept-call",
		KindEndCall:           "call-ended",
		KindTyping:            "typing",
		KindReadReceipt:       "messages_read",
	}
	for kind, want := range cases {
		assert.Equal(t, want, InboundEvent(kind), kind)
	}
	assert.Empty(t, InboundEvent("nope"))
}

func TestPublisher_IsolatesFailingConnections(t *testing.T) {
	reg := NewRegistry()
	a, b := newFakeConn("a"), newFakeConn("b")
	b.failWith(errBrokenPipe)
	reg.Register("a", a)
	reg.Register("b", b)
	a.Reset()

	sent := NewPublisher(reg).Publish()

	assert.Equal(t, 1, sent)
	frames := a.Events(EventOnlineUsers)
	require.Len(t, frames, 1)
	assert.Equal(t, []string{"a", "b"}, onlineUsers(frames[0]))
}

func TestPublisher_StatusSkipsChangedUser(t *testing.T) {
	reg := NewRegistry()
	a, b := newFakeConn("a"), newFakeConn("b")
	reg.Register("a", a)
	reg.Register("b", b)
	p := NewPublisher(reg)

	assert.Equal(t, 1, p.PublishStatus(Change{UserID: "b", Online: true}))
	assert.Empty(t, b.Events(EventUserStatus))
	frames := a.Events(EventUserStatus)
	require.Len(t, frames, 1)
	assert.Equal(t, UserStatusPayload{UserID: "b", Status: StatusOnline}, userStatus(frames[0]))

	reg.UnregisterConn("b", b)
	assert.Equal(t, 1, p.PublishStatus(Change{UserID: "b"}))
	frames = a.Events(EventUserStatus)
	require.Len(t, frames, 2)
	assert.Equal(t, UserStatusPayload{UserID: "b", Status: StatusOffline}, userStatus(frames[1]))
}
