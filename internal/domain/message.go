package domain

import "time"

type MessageID string

// MessageKind mirrors the payload shapes clients may submit.
type MessageKind string

const (
	MessageKindText  MessageKind = "text"
	MessageKindImage MessageKind = "image"
	MessageKindFile  MessageKind = "file"
)

// MessagePayload is the client-supplied part of a chat message.
type MessagePayload struct {
	Text     string      `json:"text,omitempty"`
	MediaRef string      `json:"media_ref,omitempty"`
	Kind     MessageKind `json:"kind"`
}

// Message is the persisted record. ID and SentAt are assigned server side by
// the message store.
type Message struct {
	ID         MessageID `json:"id"`
	ChannelID  ChannelID `json:"channel_id"`
	SenderID   UserID    `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	MessagePayload
	SentAt time.Time `json:"sent_at"`
}
