package relay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatrelay/internal/app/user"
)

func fixedNegotiator() *Negotiator {
	n := NewNegotiator()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return now }
	return n
}

func TestNegotiator_OfferAcceptHangup(t *testing.T) {
	n := fixedNegotiator()
	caller := user.User{ID: "A", Name: "Ann"}

	s, replaced, err := n.Offer("42", CallVideo, caller, "B")
	require.NoError(t, err)
	assert.Nil(t, replaced)
	assert.Equal(t, CallRinging, s.Status)
	assert.Equal(t, DirectionOutgoing, s.DirectionFor("A"))
	assert.Equal(t, DirectionIncoming, s.DirectionFor("B"))
	assert.Equal(t, user.ID("B"), s.Peer("A"))
	assert.Equal(t, user.ID("A"), s.Peer("B"))

	s, err = n.Accept("A", "B")
	require.NoError(t, err)
	assert.Equal(t, CallAccepted, s.Status)

	_, err = n.Accept("A", "B")
	assert.ErrorIs(t, err, ErrCallNotRinging)

	s, err = n.Hangup("B", "A")
	require.NoError(t, err)
	assert.Equal(t, CallEnded, s.Status)
	assert.Equal(t, ReasonHangup, s.EndReason)
	assert.True(t, s.Terminal())
	assert.Zero(t, n.Len())
}

func TestNegotiator_RejectIsFinal(t *testing.T) {
	n := fixedNegotiator()
	_, _, err := n.Offer("42", CallVoice, user.User{ID: "A"}, "B")
	require.NoError(t, err)

	s, err := n.Reject("A", "B")
	require.NoError(t, err)
	assert.Equal(t, CallRejected, s.Status)
	assert.Equal(t, ReasonRejected, s.EndReason)

	_, err = n.Accept("A", "B")
	assert.ErrorIs(t, err, ErrCallNotFound)
	_, ok := n.Get("42")
	assert.False(t, ok)
}

func TestNegotiator_OnlyCalleeSideMatches(t *testing.T) {
	n := fixedNegotiator()
	_, _, err := n.Offer("42", CallVoice, user.User{ID: "A"}, "B")
	require.NoError(t, err)

	_, err = n.Accept("B", "A")
	assert.ErrorIs(t, err, ErrCallNotFound, "the caller cannot accept its own call")
	_, err = n.Reject("B", "A")
	assert.ErrorIs(t, err, ErrCallNotFound)
}

func TestNegotiator_NewerOfferSupersedes(t *testing.T) {
	n := fixedNegotiator()
	_, _, err := n.Offer("r1", CallVoice, user.User{ID: "A"}, "B")
	require.NoError(t, err)

	s, replaced, err := n.Offer("r2", CallVideo, user.User{ID: "B"}, "A")
	require.NoError(t, err)
	require.NotNil(t, replaced)
	assert.Equal(t, "r1", replaced.RoomID)
	assert.Equal(t, ReasonSuperseded, replaced.EndReason)
	assert.Equal(t, "r2", s.RoomID)
	assert.Equal(t, 1, n.Len())
}

func TestNegotiator_InvalidOffers(t *testing.T) {
	n := fixedNegotiator()

	_, _, err := n.Offer("", CallVoice, user.User{ID: "A"}, "B")
	assert.ErrorIs(t, err, ErrCallInvalid)
	_, _, err = n.Offer("r", "screen", user.User{ID: "A"}, "B")
	assert.ErrorIs(t, err, ErrCallInvalid)
	_, _, err = n.Offer("r", CallVoice, user.User{ID: "A"}, "A")
	assert.ErrorIs(t, err, ErrCallInvalid)
}

func TestNegotiator_DisconnectAndExpire(t *testing.T) {
	n := fixedNegotiator()
	_, _, _ = n.Offer("r1", CallVoice, user.User{ID: "A"}, "B")
	_, _, _ = n.Offer("r2", CallVoice, user.User{ID: "C"}, "A")
	_, _, _ = n.Offer("r3", CallVoice, user.User{ID: "D"}, "E")

	assert.Len(t, n.Active("A"), 2)

	ended := n.Disconnect("A")
	assert.Len(t, ended, 2)
	for _, s := range ended {
		assert.Equal(t, ReasonDisconnect, s.EndReason)
	}

	_, err := n.Accept("D", "E")
	require.NoError(t, err)
	_, err = n.Expire("r3")
	assert.ErrorIs(t, err, ErrCallNotRinging)

	_, _, _ = n.Offer("r4", CallVideo, user.User{ID: "F"}, "G")
	s, err := n.Expire("r4")
	require.NoError(t, err)
	assert.Equal(t, ReasonTimeout, s.EndReason)

	_, err = n.Expire("r4")
	assert.ErrorIs(t, err, ErrCallNotFound)
}
