package ws

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/parley-im/parley/internal/core"
	"github.com/parley-im/parley/internal/domain"
)

func (ctl *Controller) handleCallInitiate(cid domain.ClientID, c *wsConn, data []byte) {
	var p struct {
		Recipient domain.UserID    `json:"recipient"`
		Channel   domain.ChannelID `json:"channel"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.Recipient == "" || p.Channel == "" {
		ctl.sendEvent(c, core.CallError("recipient and channel are required"))
		return
	}

	s, err := ctl.Hub.Calls.Initiate(cid, p.Recipient, p.Channel)
	if err != nil {
		log.Warn().Err(err).Str("module", "ws").Str("recipient", string(p.Recipient)).Msg("call initiate refused")
		ctl.sendEvent(c, core.CallError(err.Error()))
		return
	}
	ctl.sendEvent(c, core.CallEvent(core.EvCallInitiated, s))
}

// handleCallTransition serves accept/reject/end, which only differ in the
// state-machine method they invoke. Both parties are notified by the call
// manager; nothing extra goes to the requester on success.
func (ctl *Controller) handleCallTransition(c *wsConn, data []byte, op func(domain.CallID) (domain.CallSession, error)) {
	var p struct {
		Call domain.CallID `json:"call"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.Call == "" {
		ctl.sendEvent(c, core.CallError("call id is required"))
		return
	}
	if _, err := op(p.Call); err != nil {
		ctl.sendEvent(c, core.CallError(err.Error()))
	}
}

func (ctl *Controller) handleSignal(cid domain.ClientID, c *wsConn, data []byte, relay func(domain.ClientID, domain.CallID, json.RawMessage) error) {
	var p struct {
		Call   domain.CallID   `json:"call"`
		Signal json.RawMessage `json:"signal"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.Call == "" {
		ctl.sendErr(c, errors.New("precondition failed: call id is required"))
		return
	}
	if err := relay(cid, p.Call, p.Signal); err != nil {
		ctl.sendErr(c, err)
	}
}

// handleCandidate is fire and forget end to end: malformed or late frames
// are dropped without a reply.
func (ctl *Controller) handleCandidate(cid domain.ClientID, data []byte) {
	var p struct {
		Call   domain.CallID   `json:"call"`
		Signal json.RawMessage `json:"signal"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.Call == "" {
		return
	}
	ctl.Hub.Relay.Candidate(cid, p.Call, p.Signal)
}
