package router

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Tyrowin/roomhub/internal/call"
)

func (rt *Router) handleCallRequest(req *request) error {
	var in callRequestIn
	if err := rt.decode(req, &in); err != nil {
		rt.send(req.handle, EventError, TextOut{Message: "Invalid call request."})
		return err
	}

	r := req.room
	callee, err := r.Call.Request(req.handle, in.TargetID, r.Handles())
	if err != nil {
		reason := "Peer unavailable."
		switch {
		case errors.Is(err, call.ErrAlreadyInCall):
			reason = "You are already in a call."
		case errors.Is(err, call.ErrNoAvailablePeer):
			reason = "No available peer for a video call."
		}
		rt.send(req.handle, EventCallRejected, CallRejectedOut{From: SystemName, Reason: reason})
		return err
	}

	calleeName := r.NameOf(callee, "another user")
	rt.send(callee, EventCallRequest, CallRequestOut{From: req.member.Name, RequesterID: req.handle})
	rt.send(req.handle, EventCallStatus, TextOut{Message: fmt.Sprintf("Calling %s...", calleeName)})

	rt.log.WithFields(logrus.Fields{"room": r.Code, "conn": req.handle, "peer": callee}).Info("Call requested")
	return nil
}

func (rt *Router) handleCallResponse(req *request) error {
	var in callResponseIn
	if err := rt.decode(req, &in); err != nil {
		rt.send(req.handle, EventError, TextOut{Message: "Invalid call response."})
		return err
	}
	if in.RequesterID == "" || (in.Action != "accept" && in.Action != "reject") {
		rt.send(req.handle, EventError, TextOut{Message: "Invalid call response."})
		return fmt.Errorf("call response %q: %w", in.Action, ErrValidation)
	}

	r := req.room
	requesterName := r.NameOf(in.RequesterID, "Caller")
	prevA, prevB := r.Call.Participants()

	err := r.Call.Respond(in.RequesterID, req.handle, in.Action == "accept")
	switch {
	case errors.Is(err, call.ErrAlreadyInCall):
		rt.send(req.handle, EventCallStatus, TextOut{Message: "You are already in this call."})
		return err
	case errors.Is(err, call.ErrNotCallee):
		rt.send(req.handle, EventCallStatus, TextOut{Message: "Only the person you are calling can answer."})
		return err
	case errors.Is(err, call.ErrPairingMismatch):
		rt.send(req.handle, EventCallRejected, CallRejectedOut{
			From:   SystemName,
			Reason: "Call request expired or participant left.",
		})
		if _, ok := r.Member(in.RequesterID); ok && in.RequesterID != req.handle {
			rt.send(in.RequesterID, EventCallRejected, CallRejectedOut{
				From:   SystemName,
				Reason: fmt.Sprintf("%s could not join. Try again.", req.member.Name),
			})
		}
		// A pairing between other members was discarded too; tell them.
		for _, h := range []string{prevA, prevB} {
			if h != "" && h != req.handle && h != in.RequesterID {
				rt.send(h, EventCallRejected, CallRejectedOut{
					From:   SystemName,
					Reason: "Call request expired or participant left.",
				})
			}
		}
		return err
	case err != nil:
		return err
	}

	if in.Action == "accept" {
		rt.send(in.RequesterID, EventCallAccepted, CallAcceptedOut{From: req.member.Name, AcceptedID: req.handle})
		rt.send(req.handle, EventCallStatus, TextOut{Message: fmt.Sprintf("You accepted the call from %s.", requesterName)})
	} else {
		rt.send(in.RequesterID, EventCallRejected, CallRejectedOut{From: req.member.Name, Reason: "rejected your call."})
		rt.send(req.handle, EventCallStatus, TextOut{Message: fmt.Sprintf("You rejected the call from %s.", requesterName)})
	}

	rt.log.WithFields(logrus.Fields{
		"room":      r.Code,
		"conn":      req.handle,
		"requester": in.RequesterID,
		"action":    in.Action,
	}).Info("Call response")
	return nil
}

// relay forwards an opaque negotiation payload to the sender's call peer.
func (rt *Router) relay(event string) handlerFunc {
	return func(req *request) error {
		var in relayIn
		if err := rt.decode(req, &in); err != nil {
			rt.send(req.handle, EventError, TextOut{Message: "Invalid signalling payload."})
			return err
		}
		if len(in.Payload) == 0 || string(in.Payload) == "null" {
			rt.send(req.handle, EventError, TextOut{Message: "Invalid signalling payload."})
			return fmt.Errorf("%s without payload: %w", event, ErrValidation)
		}

		to, err := req.room.Call.Relay(req.handle, in.TargetID)
		if err != nil {
			rt.send(req.handle, EventError, TextOut{Message: "You are not in an active call with that peer."})
			return err
		}

		rt.send(to, event, RelayOut{Payload: in.Payload, FromID: req.handle})
		rt.log.WithFields(logrus.Fields{"room": req.room.Code, "conn": req.handle, "peer": to}).Debugf("Relayed %s", event)
		return nil
	}
}

func (rt *Router) handleCallEnd(req *request) error {
	other, ok := req.room.Call.End(req.handle)
	if !ok {
		rt.send(req.handle, EventError, TextOut{Message: "You are not in a call."})
		return call.ErrNotInCall
	}
	if _, stillHere := req.room.Member(other); stillHere {
		rt.send(other, EventCallEnd, NameOut{Name: req.member.Name})
	}
	rt.log.WithFields(logrus.Fields{"room": req.room.Code, "conn": req.handle, "peer": other}).Info("Call ended")
	return nil
}
