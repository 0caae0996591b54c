package domain

import (
	"time"

	"github.com/google/uuid"
)

type CallID string

type CallStatus string

const (
	CallInitiated CallStatus = "initiated"
	CallAccepted  CallStatus = "accepted"
	CallRejected  CallStatus = "rejected"
	CallEnded     CallStatus = "ended"
	CallFailed    CallStatus = "failed"
)

// CallSession is the negotiated state of a one-to-one call. Terminal sessions
// are never mutated again.
type CallSession struct {
	ID           CallID     `json:"id"`
	CallerID     UserID     `json:"caller_id"`
	CallerName   string     `json:"caller_name"`
	ReceiverID   UserID     `json:"receiver_id"`
	ReceiverName string     `json:"receiver_name"`
	ChannelID    ChannelID  `json:"channel_id"`
	Status       CallStatus `json:"status"`
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
}

func NewCallSession(caller, receiver *Client, channel ChannelID) *CallSession {
	return &CallSession{
		ID:           CallID(uuid.NewString()),
		CallerID:     caller.UserID,
		CallerName:   caller.DisplayName,
		ReceiverID:   receiver.UserID,
		ReceiverName: receiver.DisplayName,
		ChannelID:    channel,
		Status:       CallInitiated,
		StartedAt:    time.Now().UTC(),
	}
}

// Terminal reports whether the session reached a final status.
func (s *CallSession) Terminal() bool {
	switch s.Status {
	case CallRejected, CallEnded, CallFailed:
		return true
	}
	return false
}

// Party reports whether userID is the caller or the receiver.
func (s *CallSession) Party(userID UserID) bool {
	return s.CallerID == userID || s.ReceiverID == userID
}

// Counterpart returns the other party of the session.
func (s *CallSession) Counterpart(userID UserID) UserID {
	if s.CallerID == userID {
		return s.ReceiverID
	}
	return s.CallerID
}
