package ws

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/parley-im/parley/internal/app"
	"github.com/parley-im/parley/internal/core"
	"github.com/parley-im/parley/internal/domain"
)

type stubDirectory struct{}

func (stubDirectory) GroupOf(_ context.Context, ch domain.ChannelID) (domain.GroupID, error) {
	if ch != "general" {
		return "", errors.New("unknown channel")
	}
	return "g1", nil
}

func (stubDirectory) IsMember(_ context.Context, _ domain.GroupID, u domain.UserID) (bool, error) {
	return u == "u1" || u == "u2", nil
}

func (stubDirectory) MembersOf(_ context.Context, _ domain.GroupID) ([]domain.UserID, error) {
	return []domain.UserID{"u1", "u2"}, nil
}

type stubStore struct{}

func (stubStore) Persist(_ context.Context, ch domain.ChannelID, sender domain.UserID, senderName string, payload domain.MessagePayload) (domain.Message, error) {
	return domain.Message{ID: "m1", ChannelID: ch, SenderID: sender, SenderName: senderName, MessagePayload: payload}, nil
}

func (stubStore) Recent(_ context.Context, _ domain.ChannelID, _ int) ([]domain.Message, error) {
	return nil, nil
}

// testConn builds a wsConn with no socket behind it; frames pile up in the
// send buffer where the test can read them.
func testConn() *wsConn {
	return &wsConn{send: make(chan []byte, 32)}
}

func drain(t *testing.T, c *wsConn) []core.Event {
	t.Helper()
	var out []core.Event
	for {
		select {
		case b := <-c.send:
			var ev core.Event
			require.NoError(t, json.Unmarshal(b, &ev))
			out = append(out, ev)
		default:
			return out
		}
	}
}

func hasType(evs []core.Event, t core.EventType) bool {
	for _, ev := range evs {
		if ev.Type == t {
			return true
		}
	}
	return false
}

func frame(t *testing.T, typ string, payload any) []byte {
	t.Helper()
	b, err := json.Marshal(payload)
	require.NoError(t, err)
	env, err := json.Marshal(map[string]json.RawMessage{"type": json.RawMessage(`"` + typ + `"`), "payload": b})
	require.NoError(t, err)
	return env
}

func newTestController() *Controller {
	return &Controller{Hub: app.NewHub(stubDirectory{}, stubStore{}, 50)}
}

func TestDispatch_JoinChannelSendsHistory(t *testing.T) {
	req := require.New(t)
	ctl := newTestController()
	conn := testConn()
	client := ctl.Hub.Connect(conn, domain.Identity{UserID: "u1", DisplayName: "Alice"})

	ctl.dispatch(context.Background(), client.ID, conn, frame(t, "join-channel", map[string]string{"channel": "general"}))

	evs := drain(t, conn)
	req.True(hasType(evs, core.EvPreviousMessages))
	req.True(ctl.Hub.Presence.IsPresent("general", "u1"))
}

func TestDispatch_JoinDeniedProducesError(t *testing.T) {
	req := require.New(t)
	ctl := newTestController()
	conn := testConn()
	client := ctl.Hub.Connect(conn, domain.Identity{UserID: "outsider", DisplayName: "Mallory"})

	ctl.dispatch(context.Background(), client.ID, conn, frame(t, "join-channel", map[string]string{"channel": "general"}))

	evs := drain(t, conn)
	req.True(hasType(evs, core.EvError))
	req.False(ctl.Hub.Presence.IsPresent("general", "outsider"))
}

func TestDispatch_SendMessageFansOut(t *testing.T) {
	req := require.New(t)
	ctl := newTestController()
	conn := testConn()
	client := ctl.Hub.Connect(conn, domain.Identity{UserID: "u1", DisplayName: "Alice"})

	ctl.dispatch(context.Background(), client.ID, conn, frame(t, "join-channel", map[string]string{"channel": "general"}))
	drain(t, conn)

	ctl.dispatch(context.Background(), client.ID, conn, frame(t, "send-message", map[string]string{"channel": "general", "text": "hi"}))
	evs := drain(t, conn)
	req.True(hasType(evs, core.EvNewMessage))
}

func TestDispatch_QueryOnlineUsers(t *testing.T) {
	req := require.New(t)
	ctl := newTestController()
	conn := testConn()
	client := ctl.Hub.Connect(conn, domain.Identity{UserID: "u1", DisplayName: "Alice"})
	drain(t, conn)

	ctl.dispatch(context.Background(), client.ID, conn, frame(t, "query-online-users", nil))
	evs := drain(t, conn)
	req.True(hasType(evs, core.EvOnlineUsers))
}

func TestDispatch_UnknownTypeAndBadJSON(t *testing.T) {
	req := require.New(t)
	ctl := newTestController()
	conn := testConn()
	client := ctl.Hub.Connect(conn, domain.Identity{UserID: "u1", DisplayName: "Alice"})
	drain(t, conn)

	ctl.dispatch(context.Background(), client.ID, conn, frame(t, "no-such-event", nil))
	req.True(hasType(drain(t, conn), core.EvError))

	ctl.dispatch(context.Background(), client.ID, conn, []byte("{not json"))
	req.True(hasType(drain(t, conn), core.EvError))
}

func TestDispatch_CallFlowOverWire(t *testing.T) {
	req := require.New(t)
	ctl := newTestController()

	alice := testConn()
	ca := ctl.Hub.Connect(alice, domain.Identity{UserID: "u1", DisplayName: "Alice"})
	bob := testConn()
	cb := ctl.Hub.Connect(bob, domain.Identity{UserID: "u2", DisplayName: "Bob"})

	ctl.dispatch(context.Background(), ca.ID, alice, frame(t, "join-channel", map[string]string{"channel": "general"}))
	ctl.dispatch(context.Background(), cb.ID, bob, frame(t, "join-channel", map[string]string{"channel": "general"}))
	drain(t, alice)
	drain(t, bob)

	ctl.dispatch(context.Background(), ca.ID, alice, frame(t, "call-initiate", map[string]string{"recipient": "u2", "channel": "general"}))

	aliceEvs := drain(t, alice)
	req.True(hasType(aliceEvs, core.EvCallInitiated))
	bobEvs := drain(t, bob)
	req.True(hasType(bobEvs, core.EvCallIncoming))
}

func TestTrySend_Backpressure(t *testing.T) {
	req := require.New(t)
	conn := &wsConn{send: make(chan []byte, 1)}

	req.NoError(conn.TrySend(core.OnlineCount(1)))
	req.ErrorIs(conn.TrySend(core.OnlineCount(2)), ErrBackpressure)
}
