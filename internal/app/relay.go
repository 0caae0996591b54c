package app

import (
	"encoding/json"

	"github.com/parley-im/parley/internal/core"
	"github.com/parley-im/parley/internal/domain"
	"github.com/rs/zerolog/log"
)

// Relay forwards opaque offer/answer/candidate payloads between the two
// parties of a live call session. It never inspects the payload.
type Relay struct {
	calls *Calls
	reg   *Registry
}

func NewRelay(calls *Calls, reg *Registry) *Relay {
	return &Relay{calls: calls, reg: reg}
}

// Offer forwards an SDP offer to the session's counterpart.
func (r *Relay) Offer(cid domain.ClientID, call domain.CallID, sig json.RawMessage) error {
	return r.forward(core.EvCallOffer, cid, call, sig)
}

// Answer forwards an SDP answer to the session's counterpart.
func (r *Relay) Answer(cid domain.ClientID, call domain.CallID, sig json.RawMessage) error {
	return r.forward(core.EvCallAnswer, cid, call, sig)
}

// Candidate forwards an ICE candidate, fire and forget. Candidates routinely
// trickle in after teardown, so an unknown session or offline counterpart is
// dropped silently rather than surfaced.
func (r *Relay) Candidate(cid domain.ClientID, call domain.CallID, sig json.RawMessage) {
	if err := r.forward(core.EvCallCandidate, cid, call, sig); err != nil {
		log.Debug().Err(err).Str("module", "app.relay").Str("call", string(call)).Msg("candidate dropped")
	}
}

func (r *Relay) forward(t core.EventType, cid domain.ClientID, call domain.CallID, sig json.RawMessage) error {
	c, ok := r.reg.Get(cid)
	if !ok {
		return core.ErrClientGone
	}
	s, ok := r.calls.Get(call)
	if !ok || s.Terminal() || !s.Party(c.UserID) {
		return core.ErrCallNotFound
	}
	to := s.Counterpart(c.UserID)
	if err := r.reg.Send(to, core.Signal(t, call, c.UserID, sig)); err != nil {
		return core.ErrCallNotFound
	}
	return nil
}
