package app

import (
	"sort"
	"sync"

	"github.com/parley-im/parley/internal/core"
	"github.com/parley-im/parley/internal/domain"
	"github.com/rs/zerolog/log"
)

// Rooms tracks ad hoc multi-party video rooms, independent of the one-to-one
// call lifecycle. A room appears on first join and disappears with its last
// peer; no empty room persists.
//
// Admission is not checked here beyond the connection being authenticated.
// Room admission policy belongs to the caller — a trust boundary flagged for
// product review, preserved as-is.
type Rooms struct {
	mu    sync.Mutex
	rooms map[domain.RoomID]map[domain.PeerID]domain.RoomPeer
	reg   *Registry
}

func NewRooms(reg *Registry) *Rooms {
	return &Rooms{rooms: make(map[domain.RoomID]map[domain.PeerID]domain.RoomPeer), reg: reg}
}

// Join adds the peer and returns the prior roster (excluding the joiner).
// Existing occupants are told a new peer arrived, with user attribution for
// their UI.
func (r *Rooms) Join(room domain.RoomID, peer domain.PeerID, cid domain.ClientID) ([]domain.RoomPeer, error) {
	c, ok := r.reg.Get(cid)
	if !ok {
		return nil, core.ErrClientGone
	}
	p := domain.RoomPeer{PeerID: peer, UserID: c.UserID, DisplayName: c.DisplayName}

	r.mu.Lock()
	set, ok := r.rooms[room]
	if !ok {
		set = make(map[domain.PeerID]domain.RoomPeer)
		r.rooms[room] = set
	}
	others := make([]domain.RoomPeer, 0, len(set))
	for _, existing := range set {
		others = append(others, existing)
	}
	set[peer] = p
	r.mu.Unlock()

	sort.Slice(others, func(i, j int) bool { return others[i].PeerID < others[j].PeerID })
	log.Info().Str("module", "app.rooms").Str("room", string(room)).Str("peer", string(peer)).Str("user", string(c.UserID)).Msg("peer joined room")

	for _, o := range others {
		r.notify(o.UserID, core.PeerJoined(room, p))
	}
	return others, nil
}

// Leave removes the peer, tells the remaining occupants and deletes the room
// once empty. A repeated leave is a no-op.
func (r *Rooms) Leave(room domain.RoomID, peer domain.PeerID) {
	r.mu.Lock()
	set, ok := r.rooms[room]
	if !ok {
		r.mu.Unlock()
		return
	}
	p, ok := set[peer]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(set, peer)
	remaining := make([]domain.RoomPeer, 0, len(set))
	for _, o := range set {
		remaining = append(remaining, o)
	}
	if len(set) == 0 {
		delete(r.rooms, room)
	}
	r.mu.Unlock()

	log.Info().Str("module", "app.rooms").Str("room", string(room)).Str("peer", string(peer)).Msg("peer left room")
	for _, o := range remaining {
		r.notify(o.UserID, core.PeerLeft(room, p))
	}
}

// LeaveAllFor drops every peer the user contributed, used on disconnect.
func (r *Rooms) LeaveAllFor(uid domain.UserID) {
	r.mu.Lock()
	type drop struct {
		room domain.RoomID
		peer domain.PeerID
	}
	var drops []drop
	for room, set := range r.rooms {
		for peer, p := range set {
			if p.UserID == uid {
				drops = append(drops, drop{room, peer})
			}
		}
	}
	r.mu.Unlock()
	for _, d := range drops {
		r.Leave(d.room, d.peer)
	}
}

// Peers returns the room's roster, empty when the room does not exist.
func (r *Rooms) Peers(room domain.RoomID) []domain.RoomPeer {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.rooms[room]
	out := make([]domain.RoomPeer, 0, len(set))
	for _, p := range set {
		out = append(out, p)
	}
	return out
}

// Snapshot lists all live rooms with their occupancy.
func (r *Rooms) Snapshot() map[domain.RoomID]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[domain.RoomID]int, len(r.rooms))
	for room, set := range r.rooms {
		out[room] = len(set)
	}
	return out
}

func (r *Rooms) notify(uid domain.UserID, ev core.Event) {
	if err := r.reg.Send(uid, ev); err != nil {
		log.Debug().Err(err).Str("module", "app.rooms").Str("user", string(uid)).Str("event", string(ev.Type)).Msg("notify drop")
	}
}
