// Package flow holds the screen-to-screen navigation of the onboarding,
// caregiver and circle flows. A Machine is a static transition table: given a
// state and an action it returns the next state and the screen to render.
// Machines hold no per-user data and are safe for concurrent use.
package flow

import (
	"errors"
	"fmt"
	"slices"

	"github.com/cella-health/cella/pkg/types"
)

// State is a position in a flow.
type State string

// Action is a user event that may move a flow.
type Action string

// Screen names the view rendered for a state.
type Screen string

// ErrUnknownFlow is returned by Lookup for names not in Machines.
var ErrUnknownFlow = errors.New("unknown flow")

// Machine is one navigation flow.
type Machine struct {
	name    string
	initial State
	screens map[State]Screen
	edges   map[State]map[Action]State
}

type edge struct {
	from   State
	action Action
	to     State
}

func newMachine(name string, initial State, screens map[State]Screen, edges []edge) *Machine {
	m := &Machine{
		name:    name,
		initial: initial,
		screens: screens,
		edges:   make(map[State]map[Action]State),
	}
	for _, e := range edges {
		if m.edges[e.from] == nil {
			m.edges[e.from] = make(map[Action]State)
		}
		m.edges[e.from][e.action] = e.to
	}
	return m
}

// Name returns the flow name.
func (m *Machine) Name() string { return m.name }

// Initial returns the state a new flow starts in and its screen.
func (m *Machine) Initial() (State, Screen) {
	return m.initial, m.screens[m.initial]
}

// Next returns the state reached from state by action and the screen to
// render there. Returns ErrInvalidState for states outside the flow and
// ErrInvalidTransition when action does not apply to state.
func (m *Machine) Next(state State, action Action) (State, Screen, error) {
	if _, ok := m.screens[state]; !ok {
		return "", "", fmt.Errorf("%w: %s has no state %q", types.ErrInvalidState, m.name, state)
	}
	to, ok := m.edges[state][action]
	if !ok {
		return "", "", fmt.Errorf("%w: %s cannot %q from %q", types.ErrInvalidTransition, m.name, action, state)
	}
	return to, m.screens[to], nil
}

// Actions returns the actions valid in state, sorted.
func (m *Machine) Actions(state State) []Action {
	out := make([]Action, 0, len(m.edges[state]))
	for a := range m.edges[state] {
		out = append(out, a)
	}
	slices.Sort(out)
	return out
}

// States returns every state of the flow, sorted.
func (m *Machine) States() []State {
	out := make([]State, 0, len(m.screens))
	for s := range m.screens {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

// Lookup returns the machine registered under name.
func Lookup(name string) (*Machine, error) {
	m, ok := Machines[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFlow, name)
	}
	return m, nil
}

// Names returns the registered flow names, sorted.
func Names() []string {
	out := make([]string, 0, len(Machines))
	for n := range Machines {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}
