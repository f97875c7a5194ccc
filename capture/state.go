package capture

import "sync/atomic"

// streamState is the per-backend-instance streaming state machine from
// spec §3: Idle -> Running -> Paused -> Running -> Stopped -> Idle.
type streamState int32

const (
	stateIdle streamState = iota
	stateRunning
	statePaused
	stateStopped
)

// stateMachine is embedded by every backend implementation. It does not
// itself know about native resources; backends layer acquisition/release
// of those around the transitions it permits.
type stateMachine struct {
	state atomic.Int32
	// paused is a separate atomic flag (not derived from state) because
	// spec §4.3/§5 requires pause/resume to be checked with
	// acquire/release semantics independent of the coarser state value,
	// and because is_paused() must remain valid even while Running.
	paused atomic.Bool
}

func (m *stateMachine) get() streamState {
	return streamState(m.state.Load())
}

func (m *stateMachine) set(s streamState) {
	m.state.Store(int32(s))
}

// canStart reports whether a transition Idle->Running is legal right now.
func (m *stateMachine) canStart() bool {
	return m.get() == stateIdle || m.get() == stateStopped
}

func (m *stateMachine) markRunning() {
	m.set(stateRunning)
	m.paused.Store(false)
}

func (m *stateMachine) markStopped() {
	m.set(stateStopped)
	m.paused.Store(false)
}

// reuse makes a Stopped instance startable again, per spec §3 ("then
// becomes Idle again for reuse or destruction").
func (m *stateMachine) reuse() {
	if m.get() == stateStopped {
		m.set(stateIdle)
	}
}

func (m *stateMachine) isRunning() bool {
	return m.get() == stateRunning || m.get() == statePaused
}

func (m *stateMachine) pause() {
	if m.isRunning() {
		m.set(statePaused)
		m.paused.Store(true)
	}
}

func (m *stateMachine) resume() {
	if m.isRunning() {
		m.set(stateRunning)
		m.paused.Store(false)
	}
}

func (m *stateMachine) isPaused() bool {
	return m.paused.Load()
}
