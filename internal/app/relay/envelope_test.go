package relay

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatrelay/internal/app/user"
	"chatrelay/internal/pkg/errs"
)

func TestDecodeFrame_Presence(t *testing.T) {
	cases := []struct {
		name  string
		raw   string
		event string
		id    user.ID
	}{
		{"bare string", `{"event":"add-user","data":"alice"}`, EventAddUser, "alice"},
		{"bare number", `{"event":"add-user","data":42}`, EventAddUser, "42"},
		{"object", `{"event":"add-user","data":{"userId":7}}`, EventAddUser, "7"},
		{"signout", `{"event":"signout","data":{"userId":"alice"}}`, EventSignout, "alice"},
		{"signout without id", `{"event":"signout"}`, EventSignout, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := decode(t, tc.raw)
			assert.Equal(t, tc.event, in.Event)
			assert.Equal(t, tc.id, in.UserID)
			assert.False(t, in.IsSignal())
		})
	}
}

func TestDecodeFrame_OutgoingCall(t *testing.T) {
	in := decode(t, `{"event":"outgoing-video-call","data":{"to":"B","from":{"id":"A","name":"Ann","profilePicture":"a.png"},"callType":"video","roomId":42}}`)

	require.True(t, in.IsSignal())
	env := in.Envelope
	assert.Equal(t, KindOutgoingVideoCall, env.Kind)
	assert.Equal(t, user.ID("B"), env.To)
	assert.Equal(t, user.User{ID: "A", Name: "Ann", ProfilePicture: "a.png"}, env.From)
	assert.Equal(t, CallVideo, env.CallType)
	assert.Equal(t, "42", env.RoomID)
	assert.Contains(t, string(env.Data), `"roomId":42`)
}

func TestDecodeFrame_Reject(t *testing.T) {
	in := decode(t, `{"event":"reject-voice-call","data":{"from":"A"}}`)

	assert.Equal(t, KindRejectVoiceCall, in.Envelope.Kind)
	assert.Equal(t, user.ID("A"), in.Envelope.To)
	assert.Nil(t, in.Envelope.Data)
	assert.Equal(t, CallVoice, in.Envelope.CallType)
}

func TestDecodeFrame_ChatMessage(t *testing.T) {
	in := decode(t, `{"event":"send-msg","data":{"to":2,"from":1,"message":"hello"}}`)

	env := in.Envelope
	assert.Equal(t, KindChatMessage, env.Kind)
	assert.Equal(t, user.ID("2"), env.To)
	assert.Equal(t, user.ID("1"), env.From.ID)
	assert.Equal(t, "text", env.MessageType)
	assert.Equal(t, `"hello"`, string(env.Body))
}

func TestDecodeFrame_TypingLegacyFields(t *testing.T) {
	in := decode(t, `{"event":"typing","data":{"receiver":"B","sender":"A"}}`)

	assert.Equal(t, user.ID("B"), in.Envelope.To)
	assert.Equal(t, user.ID("A"), in.Envelope.From.ID)
}

func TestDecodeFrame_ReadReceipt(t *testing.T) {
	in := decode(t, `{"event":"read_messages","data":{"from":"A","to":"B"}}`)

	env := in.Envelope
	assert.Equal(t, KindReadReceipt, env.Kind)
	assert.Equal(t, user.ID("A"), env.To)
	assert.Equal(t, user.ID("B"), env.From.ID)
	assert.JSONEq(t, `{"by":"B"}`, string(env.Data))
}

func TestDecodeFrame_Rejects(t *testing.T) {
	long := `"` + strings.Repeat("x", MaxMessageBytes) + `"`

	cases := []struct {
		name string
		raw  string
		code int
	}{
		{"not json", `{"event":`, errs.ErrInvalidJSONFormat},
		{"unknown event", `{"event":"launch-rocket","data":{}}`, errs.ErrUnknownEvent},
		{"add-user without id", `{"event":"add-user"}`, errs.ErrInvalidParams},
		{"add-user bad id", `{"event":"add-user","data":true}`, errs.ErrInvalidParams},
		{"missing to", `{"event":"send-msg","data":{"from":"A","message":"x"}}`, errs.ErrEnvelopeMissingRecipient},
		{"missing from", `{"event":"typing","data":{"to":"B"}}`, errs.ErrEnvelopeMissingSender},
		{"no data", `{"event":"typing"}`, errs.ErrInvalidParams},
		{"call type mismatch", `{"event":"outgoing-voice-call","data":{"to":"B","from":"A","callType":"video","roomId":"r"}}`, errs.ErrCallTypeInvalid},
		{"call without room", `{"event":"outgoing-voice-call","data":{"to":"B","from":"A","callType":"voice"}}`, errs.ErrCallTypeInvalid},
		{"message too long", `{"event":"send-msg","data":{"to":"B","from":"A","message":` + long + `}}`, errs.ErrMessageContentTooLong},
		{"read without reader", `{"event":"read_messages","data":{"from":"A"}}`, errs.ErrEnvelopeMissingSender},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, cerr := DecodeFrame([]byte(tc.raw))
			require.NotNil(t, cerr)
			assert.Equal(t, tc.code, cerr.Code)
		})
	}
}
