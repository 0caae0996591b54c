package app

import (
	"sort"
	"sync"

	"github.com/parley-im/parley/internal/core"
	"github.com/parley-im/parley/internal/domain"
	"github.com/rs/zerolog/log"
)

type clientEntry struct {
	client *domain.Client
	sender core.Sender
}

// Registry is the authoritative map from user to live connection. At most one
// entry exists per user; admitting a second connection evicts the first.
// It implements core.Broadcaster.
type Registry struct {
	mu       sync.RWMutex
	byUser   map[domain.UserID]*clientEntry
	byClient map[domain.ClientID]domain.UserID
}

func NewRegistry() *Registry {
	return &Registry{
		byUser:   make(map[domain.UserID]*clientEntry),
		byClient: make(map[domain.ClientID]domain.UserID),
	}
}

// Admit registers an authenticated connection. The caller (hub) is
// responsible for cascading cleanup of any prior connection first.
func (r *Registry) Admit(sender core.Sender, id domain.Identity) domain.Client {
	c := domain.NewClient(id)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byUser[c.UserID] = &clientEntry{client: c, sender: sender}
	r.byClient[c.ID] = c.UserID
	log.Info().Str("module", "app.registry").Str("client", string(c.ID)).Str("user", string(c.UserID)).Msg("client admitted")
	return *c
}

// Remove deregisters a connection and closes its sender. Safe to call twice.
func (r *Registry) Remove(cid domain.ClientID) {
	r.mu.Lock()
	uid, ok := r.byClient[cid]
	var sender core.Sender
	if ok {
		delete(r.byClient, cid)
		// The user entry may already belong to a newer connection.
		if e, live := r.byUser[uid]; live && e.client.ID == cid {
			sender = e.sender
			delete(r.byUser, uid)
		}
	}
	r.mu.Unlock()
	if !ok {
		return
	}
	if sender != nil {
		sender.Close()
	}
	log.Info().Str("module", "app.registry").Str("client", string(cid)).Str("user", string(uid)).Msg("client removed")
}

// Get returns a snapshot of the client owning cid.
func (r *Registry) Get(cid domain.ClientID) (domain.Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	uid, ok := r.byClient[cid]
	if !ok {
		return domain.Client{}, false
	}
	e, ok := r.byUser[uid]
	if !ok || e.client.ID != cid {
		return domain.Client{}, false
	}
	return *e.client, true
}

// Lookup returns a snapshot of the user's live connection, if any.
func (r *Registry) Lookup(uid domain.UserID) (domain.Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byUser[uid]
	if !ok {
		return domain.Client{}, false
	}
	return *e.client, true
}

func (r *Registry) IsOnline(uid domain.UserID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byUser[uid]
	return ok
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}

// SetChannel records the client's current channel. Only the presence tracker
// calls this; the channel field is presence state mirrored onto the client.
func (r *Registry) SetChannel(cid domain.ClientID, ch domain.ChannelID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	uid, ok := r.byClient[cid]
	if !ok {
		return
	}
	if e, ok := r.byUser[uid]; ok && e.client.ID == cid {
		e.client.ChannelID = ch
	}
}

// OnlineUsers returns the current roster, sorted for stable output.
func (r *Registry) OnlineUsers() []core.ChannelUser {
	r.mu.RLock()
	out := make([]core.ChannelUser, 0, len(r.byUser))
	for _, e := range r.byUser {
		out = append(out, core.ChannelUser{UserID: e.client.UserID, DisplayName: e.client.DisplayName})
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// Broadcast fans ev out to every connected client. Delivery is best effort:
// a slow or closed connection is logged and skipped.
func (r *Registry) Broadcast(ev core.Event) {
	r.mu.RLock()
	senders := make([]core.Sender, 0, len(r.byUser))
	for _, e := range r.byUser {
		senders = append(senders, e.sender)
	}
	r.mu.RUnlock()
	for _, s := range senders {
		if err := s.TrySend(ev); err != nil {
			log.Debug().Err(err).Str("module", "app.registry").Str("event", string(ev.Type)).Msg("broadcast drop")
		}
	}
}

// Send delivers ev to one user's live connection.
func (r *Registry) Send(uid domain.UserID, ev core.Event) error {
	r.mu.RLock()
	e, ok := r.byUser[uid]
	r.mu.RUnlock()
	if !ok {
		return core.ErrClientGone
	}
	return e.sender.TrySend(ev)
}
