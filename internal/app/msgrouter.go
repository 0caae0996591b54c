package app

import (
	"context"
	"fmt"

	"github.com/parley-im/parley/internal/core"
	"github.com/parley-im/parley/internal/domain"
	"github.com/rs/zerolog/log"
)

// MessageRouter accepts a chat message, persists it and fans it out. Fan-out
// is deliberately global — every connected client receives every persisted
// message, matching the observable protocol — so recipients cannot tell a
// socket-submitted message from a REST-submitted one.
type MessageRouter struct {
	store    core.MessageStore
	presence *Presence
	reg      *Registry
}

func NewMessageRouter(store core.MessageStore, presence *Presence, reg *Registry) *MessageRouter {
	return &MessageRouter{store: store, presence: presence, reg: reg}
}

// Submit is the realtime entry point. The sender must be present in the
// channel; on persistence failure the error goes to the sender alone and
// nothing is broadcast.
func (r *MessageRouter) Submit(ctx context.Context, cid domain.ClientID, ch domain.ChannelID, payload domain.MessagePayload) (domain.Message, error) {
	c, ok := r.reg.Get(cid)
	if !ok {
		return domain.Message{}, core.ErrClientGone
	}
	if !r.presence.IsPresent(ch, c.UserID) {
		return domain.Message{}, core.ErrNotInChannel
	}
	return r.Publish(ctx, ch, c.UserID, c.DisplayName, payload)
}

// Publish persists and broadcasts without a presence check. The REST entry
// point calls it after its own membership validation so both paths share the
// identical persist-then-broadcast sequence.
func (r *MessageRouter) Publish(ctx context.Context, ch domain.ChannelID, sender domain.UserID, senderName string, payload domain.MessagePayload) (domain.Message, error) {
	if payload.Kind == "" {
		payload.Kind = domain.MessageKindText
	}
	rec, err := r.store.Persist(ctx, ch, sender, senderName, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "app.msgrouter").Str("channel", string(ch)).Str("sender", string(sender)).Msg("persist failed")
		return domain.Message{}, fmt.Errorf("%w: %v", core.ErrPersistence, err)
	}
	r.reg.Broadcast(core.NewMessage(rec))
	log.Debug().Str("module", "app.msgrouter").Str("message", string(rec.ID)).Str("channel", string(ch)).Msg("message broadcast")
	return rec, nil
}
