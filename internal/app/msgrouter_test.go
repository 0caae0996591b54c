package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/parley-im/parley/internal/core"
	"github.com/parley-im/parley/internal/domain"
)

func msgPayload(text string) domain.MessagePayload {
	return domain.MessagePayload{Text: text, Kind: domain.MessageKindText}
}

func TestRouter_SubmitRoundTrip(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.dir.addChannel("general", "g1", "u1")

	c, _ := f.connect("u1", "Alice")
	_, err := f.hub.Presence.Join(context.Background(), c.ID, "general")
	req.NoError(err)

	before := time.Now().UTC()
	rec, err := f.hub.Router.Submit(context.Background(), c.ID, "general", msgPayload("hi all"))
	req.NoError(err)
	req.NotEmpty(rec.ID)
	req.False(rec.SentAt.Before(before))

	stored, err := f.store.Recent(context.Background(), "general", 10)
	req.NoError(err)
	req.Len(stored, 1)
	req.Equal(rec.SenderID, stored[0].SenderID)
	req.Equal("hi all", stored[0].Text)
}

func TestRouter_SubmitRequiresPresence(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.dir.addChannel("general", "g1", "u1")

	c, _ := f.connect("u1", "Alice")
	_, err := f.hub.Router.Submit(context.Background(), c.ID, "general", msgPayload("hi"))
	req.ErrorIs(err, core.ErrNotInChannel)
}

func TestRouter_GlobalFanOut(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.dir.addChannel("general", "g1", "u1")

	c1, s1 := f.connect("u1", "Alice")
	_, outsider := f.connect("u2", "Bob") // never joins the channel
	_, err := f.hub.Presence.Join(context.Background(), c1.ID, "general")
	req.NoError(err)

	_, err = f.hub.Router.Submit(context.Background(), c1.ID, "general", msgPayload("hi"))
	req.NoError(err)

	// Every connected client receives the message, channel member or not.
	req.Equal(1, s1.count(core.EvNewMessage))
	req.Equal(1, outsider.count(core.EvNewMessage))
}

func TestRouter_PersistFailureNoBroadcast(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.dir.addChannel("general", "g1", "u1")

	c, s1 := f.connect("u1", "Alice")
	_, s2 := f.connect("u2", "Bob")
	_, err := f.hub.Presence.Join(context.Background(), c.ID, "general")
	req.NoError(err)

	f.store.failWith = errors.New("disk full")
	_, err = f.hub.Router.Submit(context.Background(), c.ID, "general", msgPayload("lost"))
	req.ErrorIs(err, core.ErrPersistence)

	req.Equal(0, s1.count(core.EvNewMessage))
	req.Equal(0, s2.count(core.EvNewMessage))
}

func TestRouter_PublishMatchesSubmitBehavior(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	_, s1 := f.connect("u1", "Alice")
	rec, err := f.hub.Router.Publish(context.Background(), "general", "rest-user", "Carol", msgPayload("from rest"))
	req.NoError(err)
	req.Equal("Carol", rec.SenderName)
	req.Equal(domain.MessageKindText, rec.Kind)

	ev, ok := s1.last(core.EvNewMessage)
	req.True(ok)
	req.Equal(rec.ID, ev.Payload.(domain.Message).ID)
}
