package ws

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/parley-im/parley/internal/core"
	"github.com/parley-im/parley/internal/domain"
)

func (ctl *Controller) handleJoinRoom(cid domain.ClientID, c *wsConn, data []byte) {
	var p struct {
		Room domain.RoomID `json:"room"`
		Peer domain.PeerID `json:"peer"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.Room == "" || p.Peer == "" {
		ctl.sendEvent(c, core.RoomError("room and peer are required"))
		return
	}

	others, err := ctl.Hub.Rooms.Join(p.Room, p.Peer, cid)
	if err != nil {
		log.Warn().Err(err).Str("module", "ws").Str("room", string(p.Room)).Msg("room join refused")
		ctl.sendEvent(c, core.RoomError(err.Error()))
		return
	}
	ctl.sendEvent(c, core.RoomParticipants(p.Room, others))
}

func (ctl *Controller) handleLeaveRoom(c *wsConn, data []byte) {
	var p struct {
		Room domain.RoomID `json:"room"`
		Peer domain.PeerID `json:"peer"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.Room == "" || p.Peer == "" {
		ctl.sendEvent(c, core.RoomError("room and peer are required"))
		return
	}
	ctl.Hub.Rooms.Leave(p.Room, p.Peer)
}
