package relay

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"chatrelay/internal/app/user"
)

// CallType is the media of a call.
type CallType string

const (
	CallVoice CallType = "voice"
	CallVideo CallType = "video"
)

// Valid reports whether t is a known call type.
func (t CallType) Valid() bool {
	return t == CallVoice || t == CallVideo
}

// CallStatus is the state of a call session.
type CallStatus string

const (
	CallRinging  CallStatus = "ringing"
	CallAccepted CallStatus = "accepted"
	CallRejected CallStatus = "rejected"
	CallEnded    CallStatus = "ended"
)

// Direction is a call's direction from one party's point of view.
type Direction string

const (
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
)

// EndReason records why a session left the live states.
type EndReason string

const (
	ReasonRejected   EndReason = "rejected"
	ReasonHangup     EndReason = "hangup"
	ReasonDisconnect EndReason = "disconnect"
	ReasonTimeout    EndReason = "timeout"
	ReasonSuperseded EndReason = "superseded"
)

var (
	ErrCallNotFound   = errors.New("call session not found")
	ErrCallNotRinging = errors.New("call session is not ringing")
	ErrCallInvalid    = errors.New("invalid call offer")
)

// CallSession is one negotiated call between a caller and a callee.
type CallSession struct {
	RoomID    string
	CallType  CallType
	Caller    user.User
	Callee    user.ID
	Status    CallStatus
	EndReason EndReason
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Terminal reports whether the session can no longer change state.
func (s CallSession) Terminal() bool {
	return s.Status == CallRejected || s.Status == CallEnded
}

// DirectionFor returns the call direction as seen by id.
func (s CallSession) DirectionFor(id user.ID) Direction {
	if s.Caller.ID == id {
		return DirectionOutgoing
	}
	return DirectionIncoming
}

// Peer returns the other party of the call.
func (s CallSession) Peer(id user.ID) user.ID {
	if s.Caller.ID == id {
		return s.Callee
	}
	return s.Caller.ID
}

// Involves reports whether id is a party of the call.
func (s CallSession) Involves(id user.ID) bool {
	return s.Caller.ID == id || s.Callee == id
}

type pairKey struct{ lo, hi user.ID }

func keyFor(a, b user.ID) pairKey {
	if b < a {
		a, b = b, a
	}
	return pairKey{lo: a, hi: b}
}

// Negotiator holds the live call sessions. A pair of users has at most one live
// session; rejected and ended sessions are dropped immediately, so anything
// arriving for them afterwards finds no session.
type Negotiator struct {
	mu    sync.Mutex
	calls map[string]*CallSession
	pairs map[pairKey]string
	now   func() time.Time
}

// NewNegotiator returns an empty negotiator.
func NewNegotiator() *Negotiator {
	return &Negotiator{
		calls: make(map[string]*CallSession),
		pairs: make(map[pairKey]string),
		now:   time.Now,
	}
}

// Offer starts a ringing session. A live session between the same two users is
// ended with ReasonSuperseded and returned as replaced.
func (n *Negotiator) Offer(roomID string, callType CallType, caller user.User, callee user.ID) (session CallSession, replaced *CallSession, err error) {
	if roomID == "" || !callType.Valid() || caller.ID == "" || callee == "" || caller.ID == callee {
		return CallSession{}, nil, ErrCallInvalid
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	now := n.now()

	key := keyFor(caller.ID, callee)
	if oldRoom, ok := n.pairs[key]; ok {
		if old := n.finishLocked(oldRoom, CallEnded, ReasonSuperseded, now); old != nil {
			replaced = old
		}
	}
	// A reused room id belongs to the new offer.
	if old, ok := n.calls[roomID]; ok {
		n.finishLocked(old.RoomID, CallEnded, ReasonSuperseded, now)
	}

	s := &CallSession{
		RoomID:    roomID,
		CallType:  callType,
		Caller:    caller,
		Callee:    callee,
		Status:    CallRinging,
		CreatedAt: now,
		UpdatedAt: now,
	}
	n.calls[roomID] = s
	n.pairs[key] = roomID

	return *s, replaced, nil
}

// Accept moves the ringing session where callee is called by caller to accepted.
func (n *Negotiator) Accept(caller, callee user.ID) (CallSession, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	s, ok := n.lookupLocked(caller, callee)
	if !ok || s.Caller.ID != caller {
		return CallSession{}, ErrCallNotFound
	}
	if s.Status != CallRinging {
		return *s, ErrCallNotRinging
	}

	s.Status = CallAccepted
	s.UpdatedAt = n.now()
	return *s, nil
}

// Reject ends the session where callee is called by caller with ReasonRejected.
func (n *Negotiator) Reject(caller, callee user.ID) (CallSession, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	s, ok := n.lookupLocked(caller, callee)
	if !ok || s.Caller.ID != caller {
		return CallSession{}, ErrCallNotFound
	}

	return *n.finishLocked(s.RoomID, CallRejected, ReasonRejected, n.now()), nil
}

// Hangup ends the live session between a and b, whichever side called.
func (n *Negotiator) Hangup(a, b user.ID) (CallSession, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	s, ok := n.lookupLocked(a, b)
	if !ok {
		return CallSession{}, ErrCallNotFound
	}

	return *n.finishLocked(s.RoomID, CallEnded, ReasonHangup, n.now()), nil
}

// Disconnect ends every live session involving id and returns them.
func (n *Negotiator) Disconnect(id user.ID) []CallSession {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := n.now()

	var ended []CallSession
	for roomID, s := range n.calls {
		if !s.Involves(id) {
			continue
		}
		ended = append(ended, *n.finishLocked(roomID, CallEnded, ReasonDisconnect, now))
	}
	return ended
}

// Expire ends roomID with ReasonTimeout if it is still ringing.
func (n *Negotiator) Expire(roomID string) (CallSession, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	s, ok := n.calls[roomID]
	if !ok {
		return CallSession{}, ErrCallNotFound
	}
	if s.Status != CallRinging {
		return *s, ErrCallNotRinging
	}

	return *n.finishLocked(roomID, CallEnded, ReasonTimeout, n.now()), nil
}

// Get returns the live session for roomID.
func (n *Negotiator) Get(roomID string) (CallSession, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	s, ok := n.calls[roomID]
	if !ok {
		return CallSession{}, false
	}
	return *s, true
}

// Active returns the live sessions involving id.
func (n *Negotiator) Active(id user.ID) []CallSession {
	n.mu.Lock()
	defer n.mu.Unlock()

	var out []CallSession
	for _, s := range n.calls {
		if s.Involves(id) {
			out = append(out, *s)
		}
	}
	return out
}

// Len returns the number of live sessions.
func (n *Negotiator) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

func (n *Negotiator) lookupLocked(a, b user.ID) (*CallSession, bool) {
	roomID, ok := n.pairs[keyFor(a, b)]
	if !ok {
		return nil, false
	}
	s, ok := n.calls[roomID]
	return s, ok
}

// finishLocked moves roomID to a terminal status and drops it from the maps.
func (n *Negotiator) finishLocked(roomID string, status CallStatus, reason EndReason, now time.Time) *CallSession {
	s, ok := n.calls[roomID]
	if !ok {
		return nil
	}

	s.Status = status
	s.EndReason = reason
	s.UpdatedAt = now

	delete(n.calls, roomID)
	key := keyFor(s.Caller.ID, s.Callee)
	if n.pairs[key] == roomID {
		delete(n.pairs, key)
	}
	return s
}

func (s CallSession) String() string {
	return fmt.Sprintf("%s call %s %s->%s [%s]", s.CallType, s.RoomID, s.Caller.ID, s.Callee, s.Status)
}
