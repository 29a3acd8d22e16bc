package queue

import (
	"sync"
)

// Machine owns the live queue state. Dispatch is safe for concurrent use.
type Machine struct {
	mu      sync.Mutex
	state   State
	subs    map[int]func(State, Action)
	nextSub int
}

// NewMachine returns a Machine starting at initial.
func NewMachine(initial State) *Machine {
	return &Machine{
		state: initial.clone(),
		subs:  make(map[int]func(State, Action)),
	}
}

// Dispatch applies a and returns the new state. Subscribers run before
// Dispatch returns, in the dispatching goroutine.
func (m *Machine) Dispatch(a Action) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = Reduce(m.state, a)
	for _, fn := range m.subs {
		fn(m.state.clone(), a)
	}
	return m.state.clone()
}

// State returns a copy of the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

// Subscribe registers fn to observe every transition. Subscribers must not
// dispatch. The returned func unsubscribes.
func (m *Machine) Subscribe(fn func(State, Action)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}
