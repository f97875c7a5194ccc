package capture

import "testing"

func TestStateMachineCanStartFromIdle(t *testing.T) {
	var m stateMachine
	if !m.canStart() {
		t.Fatal("canStart() = false for a fresh stateMachine, want true")
	}
}

func TestStateMachineCanStartFromStopped(t *testing.T) {
	var m stateMachine
	m.markRunning()
	m.markStopped()
	if !m.canStart() {
		t.Fatal("canStart() = false after Stopped, want true")
	}
}

func TestStateMachineCannotStartWhileRunning(t *testing.T) {
	var m stateMachine
	m.markRunning()
	if m.canStart() {
		t.Fatal("canStart() = true while Running, want false")
	}
}

func TestStateMachinePauseResumeCycle(t *testing.T) {
	var m stateMachine
	m.markRunning()

	if m.isPaused() {
		t.Fatal("isPaused() = true immediately after markRunning, want false")
	}

	m.pause()
	if !m.isPaused() || !m.isRunning() {
		t.Fatalf("after pause(): isPaused=%v isRunning=%v, want true/true", m.isPaused(), m.isRunning())
	}

	m.resume()
	if m.isPaused() {
		t.Fatal("isPaused() = true after resume(), want false")
	}
	if !m.isRunning() {
		t.Fatal("isRunning() = false after resume(), want true")
	}
}

func TestStateMachinePauseNoopWhenNotRunning(t *testing.T) {
	var m stateMachine
	m.pause()
	if m.isPaused() {
		t.Fatal("pause() on an Idle stateMachine set the paused flag, want no-op")
	}
}

func TestStateMachineMarkStoppedClearsPause(t *testing.T) {
	var m stateMachine
	m.markRunning()
	m.pause()
	m.markStopped()
	if m.isPaused() {
		t.Fatal("isPaused() = true after markStopped(), want false")
	}
	if m.isRunning() {
		t.Fatal("isRunning() = true after markStopped(), want false")
	}
}

func TestStateMachineReuseOnlyFromStopped(t *testing.T) {
	var m stateMachine
	m.markRunning()
	m.reuse()
	if m.get() != stateRunning {
		t.Fatalf("reuse() while Running changed state to %v, want unchanged", m.get())
	}

	m.markStopped()
	m.reuse()
	if m.get() != stateIdle {
		t.Fatalf("reuse() after Stopped left state at %v, want Idle", m.get())
	}
}
