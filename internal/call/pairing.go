// Package call tracks the single two-party call a room may negotiate at a
// time and decides who may relay signalling payloads to whom.
package call

import (
	"errors"
	"slices"
)

// State is the phase of a room's call pairing.
type State string

const (
	// Idle means no call is being negotiated.
	Idle State = "idle"
	// Requested means a request awaits the callee's answer.
	Requested State = "requested"
	// Active means the callee accepted and both sides may signal.
	Active State = "active"
)

var (
	// ErrAlreadyInCall is returned when the sender already takes part in the pairing.
	ErrAlreadyInCall = errors.New("already in a call")
	// ErrPeerUnavailable is returned when the requested peer cannot be called.
	ErrPeerUnavailable = errors.New("peer unavailable")
	// ErrNoAvailablePeer is returned when no other member is free to call.
	ErrNoAvailablePeer = errors.New("no available peer")
	// ErrPairingMismatch is returned when a response names a pairing that no longer exists.
	ErrPairingMismatch = errors.New("call request expired or participant left")
	// ErrNotCallee is returned when someone other than the callee answers a request.
	ErrNotCallee = errors.New("only the callee may answer a call request")
	// ErrNotInCall is returned when a non-participant tries to signal or end a call.
	ErrNotInCall = errors.New("not in a call")
	// ErrTargetMismatch is returned when a relay names someone other than the paired peer.
	ErrTargetMismatch = errors.New("target is not the paired peer")
)

// Pairing is the per-room call state machine. It never terminates: every
// path eventually returns to Idle. The zero value is an idle pairing.
type Pairing struct {
	state     State
	requester string
	callee    string
}

// State returns the current phase.
func (p *Pairing) State() State {
	if p.state == "" {
		return Idle
	}
	return p.state
}

// Participants returns the requester and the callee, or two empty strings
// when idle.
func (p *Pairing) Participants() (requester, callee string) {
	return p.requester, p.callee
}

// Involves reports whether handle is a declared participant.
func (p *Pairing) Involves(handle string) bool {
	if p.State() == Idle || handle == "" {
		return false
	}
	return handle == p.requester || handle == p.callee
}

// Peer returns the other participant of handle.
func (p *Pairing) Peer(handle string) (string, bool) {
	switch {
	case !p.Involves(handle):
		return "", false
	case handle == p.requester:
		return p.callee, true
	default:
		return p.requester, true
	}
}

// Request opens a pairing from requester. When target is empty the callee is
// the first of members (in join order) who is neither the requester nor
// already paired. An existing pairing is never replaced.
func (p *Pairing) Request(requester, target string, members []string) (string, error) {
	if p.State() != Idle {
		if p.Involves(requester) {
			return "", ErrAlreadyInCall
		}
		return "", ErrPeerUnavailable
	}

	var callee string
	if target != "" {
		if target == requester || !slices.Contains(members, target) {
			return "", ErrPeerUnavailable
		}
		callee = target
	} else {
		for _, m := range members {
			if m != requester && !p.Involves(m) {
				callee = m
				break
			}
		}
		if callee == "" {
			return "", ErrNoAvailablePeer
		}
	}

	p.state = Requested
	p.requester = requester
	p.callee = callee
	return callee, nil
}

// Respond applies the callee's decision to a pending request. The
// (requester, respondent) pair must match the pending pairing in either
// order; otherwise any stale pairing is cleared and ErrPairingMismatch is
// returned. Only the callee may answer: the requester gets ErrNotCallee and
// the request stays pending. A repeated response to an already active pairing
// is refused with ErrAlreadyInCall and leaves the call untouched.
func (p *Pairing) Respond(requester, respondent string, accept bool) error {
	if p.State() == Active && p.matches(requester, respondent) {
		return ErrAlreadyInCall
	}
	if p.State() != Requested || !p.matches(requester, respondent) {
		p.Reset()
		return ErrPairingMismatch
	}
	if respondent != p.callee {
		return ErrNotCallee
	}
	if !accept {
		p.Reset()
		return nil
	}
	p.state = Active
	return nil
}

// Relay returns the handle a signalling payload from sender must be forwarded
// to. target, when set, must name that same peer.
func (p *Pairing) Relay(sender, target string) (string, error) {
	peer, ok := p.Peer(sender)
	if !ok {
		return "", ErrNotInCall
	}
	if target != "" && target != peer {
		return "", ErrTargetMismatch
	}
	return peer, nil
}

// End returns the pairing to Idle if handle takes part in it, reporting the
// other participant.
func (p *Pairing) End(handle string) (string, bool) {
	peer, ok := p.Peer(handle)
	if !ok {
		return "", false
	}
	p.Reset()
	return peer, true
}

// Reset discards the pairing.
func (p *Pairing) Reset() {
	p.state = Idle
	p.requester = ""
	p.callee = ""
}

func (p *Pairing) matches(a, b string) bool {
	return (a == p.requester && b == p.callee) || (a == p.callee && b == p.requester)
}
