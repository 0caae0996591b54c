// Package ws exposes the realtime core over one websocket per client.
// Frames are JSON envelopes {type, payload}; each inbound type decodes into
// its own payload struct and is dispatched by a single exhaustive switch.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/parley-im/parley/internal/app"
	"github.com/parley-im/parley/internal/core"
	"github.com/parley-im/parley/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

type Controller struct {
	Hub      *app.Hub
	Verifier core.Verifier

	ReadLimit  int64
	PingPeriod time.Duration
}

func NewController(hub *app.Hub, verifier core.Verifier, readLimit int64, pingPeriod time.Duration) *Controller {
	return &Controller{Hub: hub, Verifier: verifier, ReadLimit: readLimit, PingPeriod: pingPeriod}
}

// wsConn implements core.Sender over a gorilla connection. TrySend never
// blocks; a full send buffer is a backpressure error the caller may drop.
type wsConn struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) TrySend(ev core.Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- b:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// bearerToken pulls the credential from the Authorization header or, for
// browser websocket clients that cannot set headers, the token query param.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// Handle authenticates and upgrades one connection. A bad token is refused
// before the upgrade; the client never enters the registry.
func (ctl *Controller) Handle(ctx context.Context, c *gin.Context) {
	identity, err := ctl.Verifier.Verify(bearerToken(c.Request))
	if err != nil {
		log.Warn().Err(err).Str("module", "ws").Msg("handshake rejected")
		c.JSON(http.StatusUnauthorized, gin.H{"error": core.ErrUnauthenticated.Error()})
		return
	}

	sock, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("ws upgrade")
		return
	}

	conn := &wsConn{conn: sock, send: make(chan []byte, 64)}
	client := ctl.Hub.Connect(conn, identity)
	log.Info().Str("module", "ws").Str("client", string(client.ID)).Str("user", string(identity.UserID)).Msg("new WS connection")

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go func() {
		defer cancel()
		ctl.readPump(ctx, client.ID, conn)
		ctl.Hub.Disconnect(client.ID)
	}()
}

func (ctl *Controller) writePump(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(ctl.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "ws").Msg("writePump ctx done")
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				log.Debug().Err(err).Str("module", "ws").Msg("writePump ping")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "ws").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "ws").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ctx context.Context, cid domain.ClientID, c *wsConn) {
	defer func() {
		log.Info().Str("module", "ws").Str("client", string(cid)).Msg("readPump closing")
		c.Close()
	}()

	c.conn.SetReadLimit(ctl.ReadLimit)
	readWait := 2 * ctl.PingPeriod
	_ = c.conn.SetReadDeadline(time.Now().Add(readWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(readWait))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Debug().Err(err).Str("module", "ws").Str("client", string(cid)).Msg("readPump read error")
				return
			}
			ctl.dispatch(ctx, cid, c, data)
		}
	}
}

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func (ctl *Controller) dispatch(ctx context.Context, cid domain.ClientID, c *wsConn, data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "ws").Msg("bad json frame")
		ctl.sendErr(c, errors.New("internal failure: malformed frame"))
		return
	}

	switch env.Type {
	case "join-channel":
		ctl.handleJoinChannel(ctx, cid, c, env.Payload)
	case "leave-channel":
		ctl.handleLeaveChannel(cid, c, env.Payload)
	case "send-message":
		ctl.handleSendMessage(ctx, cid, c, env.Payload)
	case "typing-start":
		ctl.handleTyping(cid, c, true)
	case "typing-stop":
		ctl.handleTyping(cid, c, false)
	case "call-initiate":
		ctl.handleCallInitiate(cid, c, env.Payload)
	case "call-accept":
		ctl.handleCallTransition(c, env.Payload, ctl.Hub.Calls.Accept)
	case "call-reject":
		ctl.handleCallTransition(c, env.Payload, ctl.Hub.Calls.Reject)
	case "call-end":
		ctl.handleCallTransition(c, env.Payload, ctl.Hub.Calls.End)
	case "call-offer":
		ctl.handleSignal(cid, c, env.Payload, ctl.Hub.Relay.Offer)
	case "call-answer":
		ctl.handleSignal(cid, c, env.Payload, ctl.Hub.Relay.Answer)
	case "call-ice-candidate":
		ctl.handleCandidate(cid, env.Payload)
	case "join-video-room":
		ctl.handleJoinRoom(cid, c, env.Payload)
	case "leave-video-room":
		ctl.handleLeaveRoom(c, env.Payload)
	case "query-online-users":
		ctl.sendEvent(c, core.OnlineUsers(ctl.Hub.Registry.OnlineUsers()))
	case "query-channel-users":
		ctl.handleQueryChannelUsers(c, env.Payload)
	default:
		log.Warn().Str("module", "ws").Str("type", env.Type).Msg("unknown event")
		ctl.sendErr(c, errors.New("not found: unknown event type"))
	}
}

func (ctl *Controller) sendEvent(c *wsConn, ev core.Event) {
	if err := c.TrySend(ev); err != nil {
		log.Debug().Err(err).Str("module", "ws").Str("event", string(ev.Type)).Msg("send drop")
	}
}

func (ctl *Controller) sendErr(c *wsConn, err error) {
	ctl.sendEvent(c, core.ErrorEvent(err))
}
