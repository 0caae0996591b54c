package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/parley-im/parley/internal/core"
	"github.com/parley-im/parley/internal/domain"
)

// fakeSender records every event pushed to one connection.
type fakeSender struct {
	mu     sync.Mutex
	events []core.Event
	closed bool
}

func (s *fakeSender) TrySend(ev core.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("connection closed")
	}
	s.events = append(s.events, ev)
	return nil
}

func (s *fakeSender) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *fakeSender) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *fakeSender) count(t core.EventType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, ev := range s.events {
		if ev.Type == t {
			n++
		}
	}
	return n
}

func (s *fakeSender) last(t core.EventType) (core.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].Type == t {
			return s.events[i], true
		}
	}
	return core.Event{}, false
}

// fakeDirectory is an in-memory membership truth.
type fakeDirectory struct {
	groups  map[domain.ChannelID]domain.GroupID
	members map[domain.GroupID]map[domain.UserID]bool
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		groups:  make(map[domain.ChannelID]domain.GroupID),
		members: make(map[domain.GroupID]map[domain.UserID]bool),
	}
}

func (d *fakeDirectory) addChannel(ch domain.ChannelID, g domain.GroupID, users ...domain.UserID) {
	d.groups[ch] = g
	if d.members[g] == nil {
		d.members[g] = make(map[domain.UserID]bool)
	}
	for _, u := range users {
		d.members[g][u] = true
	}
}

func (d *fakeDirectory) GroupOf(_ context.Context, ch domain.ChannelID) (domain.GroupID, error) {
	g, ok := d.groups[ch]
	if !ok {
		return "", errors.New("unknown channel")
	}
	return g, nil
}

func (d *fakeDirectory) IsMember(_ context.Context, g domain.GroupID, u domain.UserID) (bool, error) {
	return d.members[g][u], nil
}

func (d *fakeDirectory) MembersOf(_ context.Context, g domain.GroupID) ([]domain.UserID, error) {
	var out []domain.UserID
	for u := range d.members[g] {
		out = append(out, u)
	}
	return out, nil
}

// fakeStore keeps messages in memory and can be forced to fail.
type fakeStore struct {
	mu       sync.Mutex
	messages map[domain.ChannelID][]domain.Message
	failWith error
}

func newFakeStore() *fakeStore {
	return &fakeStore{messages: make(map[domain.ChannelID][]domain.Message)}
}

func (s *fakeStore) Persist(_ context.Context, ch domain.ChannelID, sender domain.UserID, senderName string, payload domain.MessagePayload) (domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return domain.Message{}, s.failWith
	}
	rec := domain.Message{
		ID:             domain.MessageID(uuid.NewString()),
		ChannelID:      ch,
		SenderID:       sender,
		SenderName:     senderName,
		MessagePayload: payload,
		SentAt:         time.Now().UTC(),
	}
	s.messages[ch] = append(s.messages[ch], rec)
	return rec, nil
}

func (s *fakeStore) Recent(_ context.Context, ch domain.ChannelID, limit int) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	msgs := s.messages[ch]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]domain.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

type fixture struct {
	hub   *Hub
	dir   *fakeDirectory
	store *fakeStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := newFakeDirectory()
	store := newFakeStore()
	return &fixture{hub: NewHub(dir, store, 50), dir: dir, store: store}
}

func (f *fixture) connect(uid domain.UserID, name string) (domain.Client, *fakeSender) {
	sender := &fakeSender{}
	c := f.hub.Connect(sender, domain.Identity{UserID: uid, DisplayName: name})
	return c, sender
}
