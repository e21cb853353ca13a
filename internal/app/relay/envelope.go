package relay

import (
	"bytes"
	"encoding/json"
	"strings"

	"chatrelay/internal/app/user"
	"chatrelay/internal/pkg/errs"
)

// MaxMessageBytes bounds the "message" field of a send-msg event.
const MaxMessageBytes = 16 * 1024

// Frame is the JSON object carried by every socket text message, in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Envelope is a decoded signaling event. It exists only while it is routed.
type Envelope struct {
	Kind EventKind

	// To is the user that receives the routed event.
	To user.ID

	// From identifies the sender. For kinds whose payload names no sender
	// (rejections, accept, end-call) the hub fills it from the connection.
	From user.User

	// Data is the payload delivered to the recipient. It is the client's
	// payload byte for byte, except for rejections (no payload) and read
	// receipts ({by}).
	Data json.RawMessage

	// Call fields, set for call kinds.
	CallType CallType
	RoomID   string

	// Chat fields, set for chat-message.
	MessageType string
	Body        json.RawMessage
}

// Inbound is a decoded client frame: either a presence command (add-user,
// signout) carrying UserID, or a signaling Envelope.
type Inbound struct {
	Event    string
	UserID   user.ID
	Envelope Envelope
}

// IsSignal reports whether the frame carries a signaling envelope.
func (in Inbound) IsSignal() bool {
	return in.Event != EventAddUser && in.Event != EventSignout
}

// DecodeFrame parses a raw socket message and validates it. Malformed input is
// rejected here so that the router only ever sees well-formed envelopes.
func DecodeFrame(raw []byte) (Inbound, *errs.CustomError) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return Inbound{}, errs.NewError(errs.ErrInvalidJSONFormat)
	}

	in := Inbound{Event: frame.Event}

	switch frame.Event {
	case EventAddUser, EventSignout:
		id, cerr := decodePresence(frame.Data)
		if cerr != nil {
			return Inbound{}, cerr
		}
		if id == "" && frame.Event == EventAddUser {
			return Inbound{}, errs.NewError(errs.ErrInvalidParams)
		}
		in.UserID = id
		return in, nil
	}

	kind, ok := kindByEvent[frame.Event]
	if !ok {
		return Inbound{}, errs.NewError(errs.ErrUnknownEvent, frame.Event)
	}

	env, cerr := decodeEnvelope(kind, frame.Event, frame.Data)
	if cerr != nil {
		return Inbound{}, cerr
	}
	in.Envelope = env

	return in, nil
}

// decodePresence accepts a bare id or {"userId": id}.
func decodePresence(data json.RawMessage) (user.ID, *errs.CustomError) {
	data = bytes.TrimSpace(data)

	if len(data) > 0 && data[0] == '{' {
		var p struct {
			UserID user.ID `json:"userId"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return "", errs.NewError(errs.ErrInvalidParams)
		}
		return p.UserID, nil
	}

	var id user.ID
	if err := id.UnmarshalJSON(data); err != nil {
		return "", errs.NewError(errs.ErrInvalidParams)
	}
	return id, nil
}

func decodeEnvelope(kind EventKind, event string, data json.RawMessage) (Envelope, *errs.CustomError) {
	env := Envelope{Kind: kind, Data: data}

	switch kind {
	case KindChatMessage:
		var p struct {
			To      user.ID         `json:"to"`
			From    user.User       `json:"from"`
			Message json.RawMessage `json:"message"`
			Type    string          `json:"type"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return Envelope{}, errs.NewError(errs.ErrInvalidParams)
		}
		if len(p.Message) > MaxMessageBytes {
			return Envelope{}, errs.NewError(errs.ErrMessageContentTooLong)
		}
		env.To, env.From, env.Body = p.To, p.From, p.Message
		env.MessageType = p.Type
		if env.MessageType == "" {
			env.MessageType = "text"
		}

	case KindOutgoingVoiceCall, KindOutgoingVideoCall:
		var p struct {
			To       user.ID   `json:"to"`
			From     user.User `json:"from"`
			CallType string    `json:"callType"`
			RoomID   user.ID   `json:"roomId"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return Envelope{}, errs.NewError(errs.ErrInvalidParams)
		}
		callType := callTypeOf(kind)
		if p.CallType != "" && !strings.EqualFold(p.CallType, string(callType)) {
			return Envelope{}, errs.NewError(errs.ErrCallTypeInvalid)
		}
		if p.RoomID == "" {
			return Envelope{}, errs.NewError(errs.ErrCallTypeInvalid)
		}
		env.To, env.From = p.To, p.From
		env.CallType, env.RoomID = callType, string(p.RoomID)

	case KindRejectVoiceCall, KindRejectVideoCall:
		var p struct {
			From user.ID `json:"from"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return Envelope{}, errs.NewError(errs.ErrInvalidParams)
		}
		env.To = p.From
		env.CallType = callTypeOf(kind)
		env.Data = nil

	case KindAcceptCall:
		var p struct {
			ID user.ID `json:"id"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return Envelope{}, errs.NewError(errs.ErrInvalidParams)
		}
		env.To = p.ID

	case KindEndCall:
		var p struct {
			To     user.ID `json:"to"`
			RoomID user.ID `json:"roomId"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return Envelope{}, errs.NewError(errs.ErrInvalidParams)
		}
		env.To, env.RoomID = p.To, string(p.RoomID)

	case KindTyping:
		var p struct {
			To       user.ID   `json:"to"`
			Receiver user.ID   `json:"receiver"`
			From     user.User `json:"from"`
			Sender   user.User `json:"sender"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return Envelope{}, errs.NewError(errs.ErrInvalidParams)
		}
		env.To, env.From = p.To, p.From
		if env.To == "" {
			env.To = p.Receiver
		}
		if env.From.ID == "" {
			env.From = p.Sender
		}

	case KindReadReceipt:
		// {from, to}: "to" has read the messages "from" sent, so "from" is notified.
		var p struct {
			From user.ID `json:"from"`
			To   user.ID `json:"to"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return Envelope{}, errs.NewError(errs.ErrInvalidParams)
		}
		if p.To == "" {
			return Envelope{}, errs.NewError(errs.ErrEnvelopeMissingSender, event)
		}
		env.To, env.From = p.From, user.User{ID: p.To}
		receipt, err := json.Marshal(MessagesReadPayload{By: string(p.To)})
		if err != nil {
			return Envelope{}, errs.NewError(errs.ErrUnknown, err)
		}
		env.Data = receipt
	}

	if env.To == "" {
		return Envelope{}, errs.NewError(errs.ErrEnvelopeMissingRecipient, event)
	}
	if senderInPayload(kind) && env.From.ID == "" {
		return Envelope{}, errs.NewError(errs.ErrEnvelopeMissingSender, event)
	}

	return env, nil
}

// senderInPayload reports whether the client must name the sender in the payload.
// For the other kinds the sender is the announcing connection.
func senderInPayload(kind EventKind) bool {
	switch kind {
	case KindRejectVoiceCall, KindRejectVideoCall, KindAcceptCall, KindEndCall:
		return false
	}
	return true
}

func callTypeOf(kind EventKind) CallType {
	switch kind {
	case KindOutgoingVideoCall, KindRejectVideoCall:
		return CallVideo
	}
	return CallVoice
}
