package core

import (
	"context"

	"github.com/parley-im/parley/internal/domain"
)

// Sender abstracts one client's outbound event stream.
// Owned by the adapter; the adapter must Close() it.
type Sender interface {
	TrySend(Event) error
	Close()
}

// Directory is the external source of truth for groups, channels and
// membership. Calls may block; never hold a registry lock across them.
type Directory interface {
	GroupOf(ctx context.Context, channel domain.ChannelID) (domain.GroupID, error)
	IsMember(ctx context.Context, group domain.GroupID, user domain.UserID) (bool, error)
	MembersOf(ctx context.Context, group domain.GroupID) ([]domain.UserID, error)
}

// MessageStore persists chat messages durably.
type MessageStore interface {
	Persist(ctx context.Context, channel domain.ChannelID, sender domain.UserID, senderName string, payload domain.MessagePayload) (domain.Message, error)
	Recent(ctx context.Context, channel domain.ChannelID, limit int) ([]domain.Message, error)
}

// Verifier turns a bearer token into an authenticated identity.
type Verifier interface {
	Verify(token string) (domain.Identity, error)
}

// Broadcaster is the narrow surface through which anything outside the
// realtime layer reaches live connections. The connection registry implements
// it; the REST message entry point holds it by injection.
type Broadcaster interface {
	// Broadcast fans an event out to every connected client, best effort.
	Broadcast(Event)
	// Send delivers an event to one user's live connection.
	Send(user domain.UserID, ev Event) error
}
