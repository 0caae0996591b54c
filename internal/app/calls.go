package app

import (
	"sync"
	"time"

	"github.com/parley-im/parley/internal/core"
	"github.com/parley-im/parley/internal/domain"
	"github.com/rs/zerolog/log"
)

// Calls is the one-to-one call state machine. Valid transitions:
// initiated→accepted, initiated→rejected, initiated→ended, accepted→ended.
// Terminal sessions stay in the map for relay lookups but are never mutated.
type Calls struct {
	mu       sync.Mutex
	sessions map[domain.CallID]*domain.CallSession
	reg      *Registry
}

func NewCalls(reg *Registry) *Calls {
	return &Calls{sessions: make(map[domain.CallID]*domain.CallSession), reg: reg}
}

// Initiate creates a session after checking the recipient is online and both
// parties share the channel. Each failed precondition has its own reason.
func (m *Calls) Initiate(callerCID domain.ClientID, recipient domain.UserID, ch domain.ChannelID) (domain.CallSession, error) {
	caller, ok := m.reg.Get(callerCID)
	if !ok {
		return domain.CallSession{}, core.ErrClientGone
	}
	callee, ok := m.reg.Lookup(recipient)
	if !ok {
		return domain.CallSession{}, core.ErrRecipientOffline
	}
	if caller.ChannelID != ch || callee.ChannelID != ch {
		return domain.CallSession{}, core.ErrNotSameChannel
	}

	s := domain.NewCallSession(&caller, &callee, ch)
	m.mu.Lock()
	m.sessions[s.ID] = s
	snap := *s
	m.mu.Unlock()
	log.Info().Str("module", "app.calls").Str("call", string(s.ID)).Str("caller", string(caller.UserID)).Str("receiver", string(recipient)).Msg("call initiated")

	m.notify(recipient, core.CallEvent(core.EvCallIncoming, snap))
	return snap, nil
}

// Accept moves initiated→accepted and notifies both parties.
func (m *Calls) Accept(id domain.CallID) (domain.CallSession, error) {
	snap, err := m.transition(id, domain.CallInitiated, domain.CallAccepted)
	if err != nil {
		return domain.CallSession{}, err
	}
	m.notify(snap.CallerID, core.CallEvent(core.EvCallAccepted, snap))
	m.notify(snap.ReceiverID, core.CallEvent(core.EvCallAccepted, snap))
	return snap, nil
}

// Reject moves initiated→rejected and notifies the caller only.
func (m *Calls) Reject(id domain.CallID) (domain.CallSession, error) {
	snap, err := m.transition(id, domain.CallInitiated, domain.CallRejected)
	if err != nil {
		return domain.CallSession{}, err
	}
	m.notify(snap.CallerID, core.CallEvent(core.EvCallRejected, snap))
	return snap, nil
}

// End terminates an initiated or accepted session and notifies both parties.
func (m *Calls) End(id domain.CallID) (domain.CallSession, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok || s.Terminal() {
		m.mu.Unlock()
		return domain.CallSession{}, core.ErrCallNotFound
	}
	m.endLocked(s)
	snap := *s
	m.mu.Unlock()

	m.notify(snap.CallerID, core.CallEvent(core.EvCallEnded, snap))
	m.notify(snap.ReceiverID, core.CallEvent(core.EvCallEnded, snap))
	return snap, nil
}

// EndAllFor is the disconnect cascade: every non-terminal session the user is
// party to is force-ended and the surviving party notified. Notification
// failures are swallowed; there is no requester left to report to.
func (m *Calls) EndAllFor(uid domain.UserID) {
	m.mu.Lock()
	var ended []domain.CallSession
	for _, s := range m.sessions {
		if s.Terminal() || !s.Party(uid) {
			continue
		}
		m.endLocked(s)
		ended = append(ended, *s)
	}
	m.mu.Unlock()

	for _, snap := range ended {
		log.Info().Str("module", "app.calls").Str("call", string(snap.ID)).Str("user", string(uid)).Msg("call ended by disconnect")
		m.notify(snap.Counterpart(uid), core.CallEvent(core.EvCallEnded, snap))
	}
}

// Get returns a snapshot of the session.
func (m *Calls) Get(id domain.CallID) (domain.CallSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return domain.CallSession{}, false
	}
	return *s, true
}

func (m *Calls) transition(id domain.CallID, from, to domain.CallStatus) (domain.CallSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.Status != from {
		return domain.CallSession{}, core.ErrCallNotFound
	}
	s.Status = to
	log.Info().Str("module", "app.calls").Str("call", string(id)).Str("status", string(to)).Msg("call transition")
	return *s, nil
}

func (m *Calls) endLocked(s *domain.CallSession) {
	now := time.Now().UTC()
	s.Status = domain.CallEnded
	s.EndedAt = &now
}

func (m *Calls) notify(uid domain.UserID, ev core.Event) {
	if err := m.reg.Send(uid, ev); err != nil {
		log.Debug().Err(err).Str("module", "app.calls").Str("user", string(uid)).Str("event", string(ev.Type)).Msg("notify drop")
	}
}
