package core

import (
	"encoding/json"

	"github.com/parley-im/parley/internal/domain"
)

// EventType is the closed set of server→client notifications.
type EventType string

const (
	EvPreviousMessages  EventType = "previous-messages"
	EvNewMessage        EventType = "new-message"
	EvUserJoined        EventType = "user-joined"
	EvUserLeft          EventType = "user-left"
	EvUserTyping        EventType = "user-typing"
	EvUserStoppedTyping EventType = "user-stopped-typing"
	EvOnlineCount       EventType = "online-users-count"
	EvOnlineUsers       EventType = "online-users"
	EvChannelUsers      EventType = "channel-users"
	EvCallIncoming      EventType = "call-incoming"
	EvCallInitiated     EventType = "call-initiated"
	EvCallAccepted      EventType = "call-accepted"
	EvCallRejected      EventType = "call-rejected"
	EvCallEnded         EventType = "call-ended"
	EvCallError         EventType = "call-error"
	EvCallOffer         EventType = "call-offer"
	EvCallAnswer        EventType = "call-answer"
	EvCallCandidate     EventType = "call-ice-candidate"
	EvRoomParticipants  EventType = "room-participants"
	EvPeerJoinedRoom    EventType = "peer-joined-room"
	EvPeerLeftRoom      EventType = "peer-left-room"
	EvRoomError         EventType = "room-error"
	EvError             EventType = "error"
)

// Event is one outbound frame. Payload is always one of the typed structs
// below; constructors keep adapters out of the struct-literal business.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload,omitempty"`
}

type MessagesPayload struct {
	Channel  domain.ChannelID `json:"channel"`
	Messages []domain.Message `json:"messages"`
}

type PresencePayload struct {
	Channel     domain.ChannelID `json:"channel"`
	UserID      domain.UserID    `json:"user_id"`
	DisplayName string           `json:"display_name"`
}

type RosterPayload struct {
	Channel domain.ChannelID `json:"channel"`
	Users   []ChannelUser    `json:"users"`
}

// ChannelUser is a read-only presence view (no transport fields).
type ChannelUser struct {
	UserID      domain.UserID `json:"user_id"`
	DisplayName string        `json:"display_name"`
}

type CountPayload struct {
	Count int `json:"count"`
}

type OnlineUsersPayload struct {
	Count int           `json:"count"`
	Users []ChannelUser `json:"users"`
}

type CallPayload struct {
	Call domain.CallSession `json:"call"`
}

type SignalPayload struct {
	Call   domain.CallID   `json:"call"`
	From   domain.UserID   `json:"from"`
	Signal json.RawMessage `json:"signal"`
}

type RoomRosterPayload struct {
	Room  domain.RoomID     `json:"room"`
	Peers []domain.RoomPeer `json:"peers"`
}

type RoomPeerPayload struct {
	Room domain.RoomID   `json:"room"`
	Peer domain.RoomPeer `json:"peer"`
}

type ErrorPayload struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

func PreviousMessages(ch domain.ChannelID, msgs []domain.Message) Event {
	return Event{Type: EvPreviousMessages, Payload: MessagesPayload{Channel: ch, Messages: msgs}}
}

func NewMessage(m domain.Message) Event {
	return Event{Type: EvNewMessage, Payload: m}
}

func UserJoined(ch domain.ChannelID, u domain.UserID, name string) Event {
	return Event{Type: EvUserJoined, Payload: PresencePayload{Channel: ch, UserID: u, DisplayName: name}}
}

func UserLeft(ch domain.ChannelID, u domain.UserID, name string) Event {
	return Event{Type: EvUserLeft, Payload: PresencePayload{Channel: ch, UserID: u, DisplayName: name}}
}

func Typing(ch domain.ChannelID, u domain.UserID, name string, started bool) Event {
	t := EvUserTyping
	if !started {
		t = EvUserStoppedTyping
	}
	return Event{Type: t, Payload: PresencePayload{Channel: ch, UserID: u, DisplayName: name}}
}

func OnlineCount(n int) Event {
	return Event{Type: EvOnlineCount, Payload: CountPayload{Count: n}}
}

func OnlineUsers(users []ChannelUser) Event {
	return Event{Type: EvOnlineUsers, Payload: OnlineUsersPayload{Count: len(users), Users: users}}
}

func ChannelUsers(ch domain.ChannelID, users []ChannelUser) Event {
	return Event{Type: EvChannelUsers, Payload: RosterPayload{Channel: ch, Users: users}}
}

func CallEvent(t EventType, s domain.CallSession) Event {
	return Event{Type: t, Payload: CallPayload{Call: s}}
}

func CallError(reason string) Event {
	return Event{Type: EvCallError, Payload: ErrorPayload{Code: CodePrecondition, Reason: reason}}
}

func Signal(t EventType, call domain.CallID, from domain.UserID, sig json.RawMessage) Event {
	return Event{Type: t, Payload: SignalPayload{Call: call, From: from, Signal: sig}}
}

func RoomParticipants(room domain.RoomID, peers []domain.RoomPeer) Event {
	return Event{Type: EvRoomParticipants, Payload: RoomRosterPayload{Room: room, Peers: peers}}
}

func PeerJoined(room domain.RoomID, p domain.RoomPeer) Event {
	return Event{Type: EvPeerJoinedRoom, Payload: RoomPeerPayload{Room: room, Peer: p}}
}

func PeerLeft(room domain.RoomID, p domain.RoomPeer) Event {
	return Event{Type: EvPeerLeftRoom, Payload: RoomPeerPayload{Room: room, Peer: p}}
}

func RoomError(reason string) Event {
	return Event{Type: EvRoomError, Payload: ErrorPayload{Code: CodeNotFound, Reason: reason}}
}

// ErrorEvent wraps a taxonomy error for the generic error channel.
func ErrorEvent(err error) Event {
	return Event{Type: EvError, Payload: ErrorPayload{Code: CodeOf(err), Reason: err.Error()}}
}
