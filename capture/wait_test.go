package capture

import (
	"testing"
	"time"
)

func TestWaitForStartReturnsNilWhenReadyFiresFirst(t *testing.T) {
	ready := make(chan struct{})
	close(ready)

	called := false
	err := WaitForStart("start", ready, time.Second, func() { called = true })
	if err != nil {
		t.Fatalf("WaitForStart: %v", err)
	}
	if called {
		t.Fatal("onTimeout was invoked despite ready firing first")
	}
}

func TestWaitForStartTimesOutAndCallsOnTimeout(t *testing.T) {
	ready := make(chan struct{})
	called := false

	err := WaitForStart("start", ready, 10*time.Millisecond, func() { called = true })
	if err == nil {
		t.Fatal("WaitForStart returned nil error, want a timeout error")
	}
	captureErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("WaitForStart error type = %T, want *Error", err)
	}
	if captureErr.Kind != KindTimeout {
		t.Fatalf("WaitForStart error Kind = %v, want KindTimeout", captureErr.Kind)
	}
	if !called {
		t.Fatal("onTimeout was not invoked on timeout")
	}
}

func TestWaitForStartToleratesNilOnTimeout(t *testing.T) {
	ready := make(chan struct{})
	err := WaitForStart("start", ready, 10*time.Millisecond, nil)
	if err == nil {
		t.Fatal("WaitForStart returned nil error, want a timeout error")
	}
}
