package ws

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/parley-im/parley/internal/core"
	"github.com/parley-im/parley/internal/domain"
)

func (ctl *Controller) handleJoinChannel(ctx context.Context, cid domain.ClientID, c *wsConn, data []byte) {
	var p struct {
		Channel domain.ChannelID `json:"channel"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.Channel == "" {
		ctl.sendErr(c, errors.New("precondition failed: channel is required"))
		return
	}

	history, err := ctl.Hub.Presence.Join(ctx, cid, p.Channel)
	if err != nil {
		log.Warn().Err(err).Str("module", "ws").Str("channel", string(p.Channel)).Msg("join denied")
		ctl.sendErr(c, err)
		return
	}
	ctl.sendEvent(c, core.PreviousMessages(p.Channel, history))
}

func (ctl *Controller) handleLeaveChannel(cid domain.ClientID, c *wsConn, data []byte) {
	var p struct {
		Channel domain.ChannelID `json:"channel"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.Channel == "" {
		ctl.sendErr(c, errors.New("precondition failed: channel is required"))
		return
	}
	ctl.Hub.Presence.Leave(cid, p.Channel)
}

func (ctl *Controller) handleSendMessage(ctx context.Context, cid domain.ClientID, c *wsConn, data []byte) {
	var p struct {
		Channel  domain.ChannelID   `json:"channel"`
		Text     string             `json:"text"`
		MediaRef string             `json:"media_ref"`
		Kind     domain.MessageKind `json:"kind"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.Channel == "" {
		ctl.sendErr(c, errors.New("precondition failed: channel is required"))
		return
	}

	payload := domain.MessagePayload{Text: p.Text, MediaRef: p.MediaRef, Kind: p.Kind}
	if _, err := ctl.Hub.Router.Submit(ctx, cid, p.Channel, payload); err != nil {
		ctl.sendErr(c, err)
	}
	// The sender hears its own message through the broadcast, like everyone.
}

func (ctl *Controller) handleTyping(cid domain.ClientID, c *wsConn, started bool) {
	if err := ctl.Hub.Presence.Typing(cid, started); err != nil {
		ctl.sendErr(c, err)
	}
}

func (ctl *Controller) handleQueryChannelUsers(c *wsConn, data []byte) {
	var p struct {
		Channel domain.ChannelID `json:"channel"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.Channel == "" {
		ctl.sendErr(c, errors.New("precondition failed: channel is required"))
		return
	}
	ctl.sendEvent(c, core.ChannelUsers(p.Channel, ctl.Hub.Presence.MembersOf(p.Channel)))
}
