/*
Package relay implements the real-time core of the chat server: the online-user
registry, presence broadcasts, point-to-point signaling routing and the call
session state machine, driven by a single hub event loop.

This file names the socket events of the client protocol.
*/
package relay

// Events sent by clients.
const (
	EventAddUser            = "add-user"
	EventSignout            = "signout"
	EventSendMsg            = "send-msg"
	EventOutgoingVoiceCall  = "outgoing-voice-call"
	EventOutgoingVideoCall  = "outgoing-video-call"
	EventRejectVoiceCall    = "reject-voice-call"
	EventRejectVideoCall    = "reject-video-call"
	EventAcceptIncomingCall = "accept-incoming-call"
	EventEndCall            = "end-call"
	EventTyping             = "typing"
	EventReadMessages       = "read_messages"
)

// Events sent by the relay. The misspelling of msg-recieve is part of the
// protocol the web client listens for.
const (
	EventOnlineUsers       = "online-users"
	EventUserStatus        = "user_status"
	EventMsgReceive        = "msg-recieve"
	EventIncomingVoiceCall = "incoming-voice-call"
	EventIncomingVideoCall = "incoming-video-call"
	EventVoiceCallRejected = "voice-call-rejected"
	EventVideoCallRejected = "video-call-rejected"
	EventAcceptCall        = "accept-call"
	EventCallEnded         = "call-ended"
	EventMessagesRead      = "messages_read"
	EventError             = "error"
)

// EventKind classifies a signaling envelope independently of its wire name.
type EventKind string

const (
	KindChatMessage       EventKind = "chat-message"
	KindOutgoingVoiceCall EventKind = "outgoing-voice-call"
	KindOutgoingVideoCall EventKind = "outgoing-video-call"
	KindRejectVoiceCall   EventKind = "reject-voice-call"
	KindRejectVideoCall   EventKind = "reject-video-call"
	KindAcceptCall        EventKind = "accept-call"
	KindEndCall           EventKind = "end-call"
	KindTyping            EventKind = "typing"
	KindReadReceipt       EventKind = "read-receipt"
)

// kindByEvent maps client event names to envelope kinds.
var kindByEvent = map[string]EventKind{
	EventSendMsg:            KindChatMessage,
	EventOutgoingVoiceCall:  KindOutgoingVoiceCall,
	EventOutgoingVideoCall:  KindOutgoingVideoCall,
	EventRejectVoiceCall:    KindRejectVoiceCall,
	EventRejectVideoCall:    KindRejectVideoCall,
	EventAcceptIncomingCall: KindAcceptCall,
	EventEndCall:            KindEndCall,
	EventTyping:             KindTyping,
	EventReadMessages:       KindReadReceipt,
}

// inboundEventByKind maps envelope kinds to the event name the recipient receives.
var inboundEventByKind = map[EventKind]string{
	KindChatMessage:       EventMsgReceive,
	KindOutgoingVoiceCall: EventIncomingVoiceCall,
	KindOutgoingVideoCall: EventIncomingVideoCall,
	KindRejectVoiceCall:   EventVoiceCallRejected,
	KindRejectVideoCall:   EventVideoCallRejected,
	KindAcceptCall:        EventAcceptCall,
	KindEndCall:           EventCallEnded,
	KindTyping:            EventTyping,
	KindReadReceipt:       EventMessagesRead,
}

// InboundEvent returns the event name delivered to the recipient of kind.
func InboundEvent(kind EventKind) string {
	return inboundEventByKind[kind]
}

// IsCallOffer reports whether kind starts a call.
func (k EventKind) IsCallOffer() bool {
	return k == KindOutgoingVoiceCall || k == KindOutgoingVideoCall
}

// IsCallRejection reports whether kind rejects a call.
func (k EventKind) IsCallRejection() bool {
	return k == KindRejectVoiceCall || k == KindRejectVideoCall
}

// OnlineUsersPayload is the data of the online-users event.
type OnlineUsersPayload struct {
	OnlineUsers []string `json:"onlineUsers"`
}

// User status values carried by user_status.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// UserStatusPayload is the data of the user_status event: one user's presence change.
type UserStatusPayload struct {
	UserID string `json:"userId"`
	Status string `json:"status"`
}

// CallEndedPayload is the data of call-ended events generated by the relay itself
// (timeouts and peer disconnects). Client-originated end-call payloads are
// forwarded as sent.
type CallEndedPayload struct {
	RoomID string `json:"roomId"`
	From   string `json:"from"`
	Reason string `json:"reason"`
}

// MessagesReadPayload is the data of messages_read events.
type MessagesReadPayload struct {
	By string `json:"by"`
}
