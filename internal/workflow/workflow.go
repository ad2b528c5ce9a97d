// Package workflow defines the order state machine.
package workflow

import (
	"fmt"
	"slices"

	"github.com/xenking/kart-orders/internal/domain/order"
)

// Transition names a move between order states.
type Transition string

const (
	// TransitionCreate turns a completed cart into a placed order.
	TransitionCreate Transition = "create"
	// TransitionCancel cancels a placed order.
	TransitionCancel Transition = "cancel"
	// TransitionFulfill marks a placed order as fulfilled.
	TransitionFulfill Transition = "fulfill"
)

type edge struct {
	from []order.State
	to   order.State
}

var graph = map[Transition]edge{
	TransitionCreate:  {from: []order.State{order.StateCart}, to: order.StateNew},
	TransitionCancel:  {from: []order.State{order.StateNew}, to: order.StateCancelled},
	TransitionFulfill: {from: []order.State{order.StateNew}, to: order.StateFulfilled},
}

// TransitionError reports a transition that is unknown or not allowed from
// the order's current state.
type TransitionError struct {
	Transition Transition
	From       order.State
}

func (e *TransitionError) Error() string {
	if _, ok := graph[e.Transition]; !ok {
		return fmt.Sprintf("unknown transition %q", e.Transition)
	}
	return fmt.Sprintf("transition %q not allowed from state %q", e.Transition, e.From)
}

// Can reports whether t may be applied to o.
func Can(o *order.Order, t Transition) bool {
	e, ok := graph[t]
	return ok && slices.Contains(e.from, o.State())
}

// Apply moves o along t.
func Apply(o *order.Order, t Transition) error {
	if !Can(o, t) {
		return &TransitionError{Transition: t, From: o.State()}
	}
	o.SetState(graph[t].to)
	return nil
}

// Available returns the transitions that may currently be applied to o.
func Available(o *order.Order) []Transition {
	var out []Transition
	for _, t := range []Transition{TransitionCreate, TransitionCancel, TransitionFulfill} {
		if Can(o, t) {
			out = append(out, t)
		}
	}
	return out
}
