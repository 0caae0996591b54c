// Package app holds the realtime core: connection registry, channel
// presence, message routing, call sessions, signal relay and video rooms.
// Each map is owned by exactly one component and guarded by its own mutex;
// the Hub sequences the cross-component flows.
package app

import (
	"github.com/parley-im/parley/internal/core"
	"github.com/parley-im/parley/internal/domain"
	"github.com/rs/zerolog/log"
)

type Hub struct {
	Registry *Registry
	Presence *Presence
	Router   *MessageRouter
	Calls    *Calls
	Relay    *Relay
	Rooms    *Rooms
}

func NewHub(dir core.Directory, store core.MessageStore, window int) *Hub {
	reg := NewRegistry()
	presence := NewPresence(dir, store, reg, window)
	calls := NewCalls(reg)
	return &Hub{
		Registry: reg,
		Presence: presence,
		Router:   NewMessageRouter(store, presence, reg),
		Calls:    calls,
		Relay:    NewRelay(calls, reg),
		Rooms:    NewRooms(reg),
	}
}

// Connect admits an authenticated connection. A prior connection for the
// same user is fully torn down first — presence, calls, rooms, then the
// registry entry — so the new session never observes leftovers of the old.
func (h *Hub) Connect(sender core.Sender, id domain.Identity) domain.Client {
	if old, ok := h.Registry.Lookup(id.UserID); ok {
		log.Info().Str("module", "app.hub").Str("user", string(id.UserID)).Str("client", string(old.ID)).Msg("evicting prior connection")
		if err := h.Registry.Send(id.UserID, core.Event{Type: core.EvError, Payload: core.ErrorPayload{
			Code:   core.CodeUnauthenticated,
			Reason: "session evicted: account connected from another client",
		}}); err != nil {
			log.Debug().Err(err).Str("module", "app.hub").Msg("eviction notice drop")
		}
		h.Disconnect(old.ID)
	}
	c := h.Registry.Admit(sender, id)
	h.Registry.Broadcast(core.OnlineCount(h.Registry.Count()))
	return c
}

// Disconnect runs the full cleanup cascade for one connection. Idempotent:
// an unknown client id is ignored. The order matters — presence and calls go
// before the registry entry so no concurrent reader sees a removed client
// still counted as present.
func (h *Hub) Disconnect(cid domain.ClientID) {
	c, ok := h.Registry.Get(cid)
	if !ok {
		return
	}
	h.Presence.LeaveCurrent(cid)
	h.Calls.EndAllFor(c.UserID)
	h.Rooms.LeaveAllFor(c.UserID)
	h.Registry.Remove(cid)
	h.Registry.Broadcast(core.OnlineCount(h.Registry.Count()))
	log.Info().Str("module", "app.hub").Str("client", string(cid)).Str("user", string(c.UserID)).Msg("disconnected")
}
