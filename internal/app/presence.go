package app

import (
	"context"
	"sync"

	"github.com/parley-im/parley/internal/core"
	"github.com/parley-im/parley/internal/domain"
	"github.com/rs/zerolog/log"
)

// Presence tracks which users currently occupy which channel. A user is
// present in at most one channel; joining another channel leaves the first.
type Presence struct {
	mu      sync.Mutex
	members map[domain.ChannelID]map[domain.UserID]string // userID → display name

	dir    core.Directory
	store  core.MessageStore
	reg    *Registry
	window int
}

func NewPresence(dir core.Directory, store core.MessageStore, reg *Registry, window int) *Presence {
	return &Presence{
		members: make(map[domain.ChannelID]map[domain.UserID]string),
		dir:     dir,
		store:   store,
		reg:     reg,
		window:  window,
	}
}

// Join validates channel access via the directory, moves the client into the
// channel's presence set and returns the recent message window. Other members
// are notified and everyone present receives the refreshed roster.
//
// Directory and store calls run with no lock held; the client is re-checked
// before commit in case it disconnected while we were out.
func (p *Presence) Join(ctx context.Context, cid domain.ClientID, ch domain.ChannelID) ([]domain.Message, error) {
	c, ok := p.reg.Get(cid)
	if !ok {
		return nil, core.ErrClientGone
	}

	group, err := p.dir.GroupOf(ctx, ch)
	if err != nil {
		return nil, core.ErrNotFound
	}
	member, err := p.dir.IsMember(ctx, group, c.UserID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, core.ErrAccessDenied
	}

	history, err := p.store.Recent(ctx, ch, p.window)
	if err != nil {
		// History is a convenience; presence must not fail on it.
		log.Warn().Err(err).Str("module", "app.presence").Str("channel", string(ch)).Msg("recent messages unavailable")
		history = nil
	}

	c, ok = p.reg.Get(cid)
	if !ok {
		return nil, core.ErrClientGone
	}

	p.mu.Lock()
	var prevRoster []core.ChannelUser
	prev := c.ChannelID
	if prev != "" && prev != ch {
		if p.removeLocked(prev, c) {
			prevRoster = p.rosterLocked(prev)
		}
	}
	set, ok := p.members[ch]
	if !ok {
		set = make(map[domain.UserID]string)
		p.members[ch] = set
	}
	set[c.UserID] = c.DisplayName
	roster := p.rosterLocked(ch)
	p.mu.Unlock()

	if prevRoster != nil {
		p.broadcastRoster(prev, prevRoster)
	}

	p.reg.SetChannel(cid, ch)
	log.Info().Str("module", "app.presence").Str("user", string(c.UserID)).Str("channel", string(ch)).Msg("joined channel")

	for _, u := range roster {
		if u.UserID == c.UserID {
			continue
		}
		p.notify(u.UserID, core.UserJoined(ch, c.UserID, c.DisplayName))
	}
	p.broadcastRoster(ch, roster)
	return history, nil
}

// Leave removes the user from the channel's presence set. A second call for
// the same channel is a no-op, not an error.
func (p *Presence) Leave(cid domain.ClientID, ch domain.ChannelID) {
	c, ok := p.reg.Get(cid)
	if !ok {
		return
	}

	p.mu.Lock()
	removed := p.removeLocked(ch, c)
	roster := p.rosterLocked(ch)
	p.mu.Unlock()

	if !removed {
		return
	}
	if c.ChannelID == ch {
		p.reg.SetChannel(cid, "")
	}
	log.Info().Str("module", "app.presence").Str("user", string(c.UserID)).Str("channel", string(ch)).Msg("left channel")
	p.broadcastRoster(ch, roster)
}

// LeaveCurrent is the disconnect-cascade hook: it drops the client from
// whatever channel it occupies.
func (p *Presence) LeaveCurrent(cid domain.ClientID) {
	c, ok := p.reg.Get(cid)
	if !ok || c.ChannelID == "" {
		return
	}
	p.Leave(cid, c.ChannelID)
}

// MembersOf returns the channel's presence roster.
func (p *Presence) MembersOf(ch domain.ChannelID) []core.ChannelUser {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rosterLocked(ch)
}

// IsPresent reports whether the user currently occupies the channel.
func (p *Presence) IsPresent(ch domain.ChannelID, uid domain.UserID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.members[ch][uid]
	return ok
}

// Typing relays a typing notice to the other members of the sender's current
// channel. Best effort: no ack, no retry. Rejected when the sender occupies
// no channel.
func (p *Presence) Typing(cid domain.ClientID, started bool) error {
	c, ok := p.reg.Get(cid)
	if !ok {
		return core.ErrClientGone
	}
	if c.ChannelID == "" {
		return core.ErrNoChannel
	}
	p.mu.Lock()
	roster := p.rosterLocked(c.ChannelID)
	p.mu.Unlock()
	for _, u := range roster {
		if u.UserID == c.UserID {
			continue
		}
		p.notify(u.UserID, core.Typing(c.ChannelID, c.UserID, c.DisplayName, started))
	}
	return nil
}

// removeLocked drops the user and notifies the remaining members that it
// left. Roster broadcast is up to the caller.
func (p *Presence) removeLocked(ch domain.ChannelID, c domain.Client) bool {
	set, ok := p.members[ch]
	if !ok {
		return false
	}
	if _, ok := set[c.UserID]; !ok {
		return false
	}
	delete(set, c.UserID)
	if len(set) == 0 {
		delete(p.members, ch)
	}
	for uid := range set {
		p.notify(uid, core.UserLeft(ch, c.UserID, c.DisplayName))
	}
	return true
}

func (p *Presence) rosterLocked(ch domain.ChannelID) []core.ChannelUser {
	set := p.members[ch]
	out := make([]core.ChannelUser, 0, len(set))
	for uid, name := range set {
		out = append(out, core.ChannelUser{UserID: uid, DisplayName: name})
	}
	return out
}

func (p *Presence) broadcastRoster(ch domain.ChannelID, roster []core.ChannelUser) {
	ev := core.ChannelUsers(ch, roster)
	for _, u := range roster {
		p.notify(u.UserID, ev)
	}
}

func (p *Presence) notify(uid domain.UserID, ev core.Event) {
	if err := p.reg.Send(uid, ev); err != nil {
		log.Debug().Err(err).Str("module", "app.presence").Str("user", string(uid)).Str("event", string(ev.Type)).Msg("notify drop")
	}
}
