// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const MaxDisplayNameLen = 64

var (
	ErrNameEmpty   = errors.New("display name empty")
	ErrNameTooLong = errors.New("display name too long")
)

type (
	UserID   string
	ClientID string
)

// Identity is what the credential verifier hands back for a valid token.
type Identity struct {
	UserID      UserID   `json:"user_id"`
	DisplayName string   `json:"display_name"`
	Roles       []string `json:"roles"`
}

func NewIdentity(userID UserID, name string, roles []string) (Identity, error) {
	if name == "" {
		return Identity{}, ErrNameEmpty
	}
	if len(name) > MaxDisplayNameLen {
		return Identity{}, ErrNameTooLong
	}
	return Identity{UserID: userID, DisplayName: name, Roles: roles}, nil
}

// Client is one live authenticated connection. The connection registry owns
// every instance; nothing else mutates it.
type Client struct {
	ID          ClientID  `json:"id"`
	UserID      UserID    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Roles       []string  `json:"roles"`
	ChannelID   ChannelID `json:"channel_id,omitempty"`
	ConnectedAt time.Time `json:"connected_at"`
}

// NewClient is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewClient(id Identity) *Client {
	return &Client{
		ID:          ClientID(uuid.NewString()),
		UserID:      id.UserID,
		DisplayName: id.DisplayName,
		Roles:       id.Roles,
		ConnectedAt: time.Now().UTC(),
	}
}
