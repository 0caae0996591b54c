package app

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/parley-im/parley/internal/core"
)

func TestRegistry_Admit_SingleSessionPerUser(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	first, firstSender := f.connect("u1", "Alice")
	req.True(f.hub.Registry.IsOnline("u1"))
	req.Equal(1, f.hub.Registry.Count())

	// A second connection for the same user evicts the first.
	second, _ := f.connect("u1", "Alice")
	req.NotEqual(first.ID, second.ID)
	req.Equal(1, f.hub.Registry.Count())
	req.True(firstSender.isClosed())

	got, ok := f.hub.Registry.Lookup("u1")
	req.True(ok)
	req.Equal(second.ID, got.ID)

	// The old client id no longer resolves.
	_, ok = f.hub.Registry.Get(first.ID)
	req.False(ok)
}

func TestRegistry_Remove_Idempotent(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	c, sender := f.connect("u1", "Alice")
	f.hub.Disconnect(c.ID)
	req.False(f.hub.Registry.IsOnline("u1"))
	req.True(sender.isClosed())

	// Second disconnect of the same client is a no-op.
	f.hub.Disconnect(c.ID)
	req.Equal(0, f.hub.Registry.Count())
}

func TestRegistry_OnlineCountBroadcast(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	_, s1 := f.connect("u1", "Alice")
	c2, _ := f.connect("u2", "Bob")

	ev, ok := s1.last(core.EvOnlineCount)
	req.True(ok)
	req.Equal(2, ev.Payload.(core.CountPayload).Count)

	f.hub.Disconnect(c2.ID)
	ev, ok = s1.last(core.EvOnlineCount)
	req.True(ok)
	req.Equal(1, ev.Payload.(core.CountPayload).Count)
}

func TestRegistry_SendToOfflineUser(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	err := f.hub.Registry.Send("ghost", core.OnlineCount(0))
	req.ErrorIs(err, core.ErrClientGone)
}

func TestRegistry_OnlineUsersSorted(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	f.connect("u2", "Bob")
	f.connect("u1", "Alice")

	users := f.hub.Registry.OnlineUsers()
	req.Len(users, 2)
	req.Equal("Alice", users[0].DisplayName)
	req.Equal("Bob", users[1].DisplayName)
}
