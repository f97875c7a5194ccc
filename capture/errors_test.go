package capture

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorMessageIncludesOpAndMsg(t *testing.T) {
	err := newError(KindResource, "screenshot", "something broke", nil)
	want := "screenshot: something broke"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestErrorMessageIncludesWrappedCause(t *testing.T) {
	cause := errors.New("underlying failure")
	err := newError(KindResource, "screenshot", "something broke", cause)
	if err.Error() != "screenshot: something broke: underlying failure" {
		t.Fatalf("Error() = %q, did not include wrapped cause", err.Error())
	}
}

func TestErrorUnwrapReturnsCause(t *testing.T) {
	cause := errors.New("boom")
	err := newError(KindTimeout, "start", "timed out", cause)
	if !errors.Is(err, cause) {
		t.Fatal("errors.Is(err, cause) = false, want true via Unwrap")
	}
}

func TestErrorIsMatchesSameKindOpMsg(t *testing.T) {
	a := newError(KindConfiguration, "start", "no frame callback set", nil)
	b := newError(KindConfiguration, "start", "no frame callback set", fmt.Errorf("different cause"))
	if !errors.Is(a, b) {
		t.Fatal("errors.Is(a, b) = false for errors with matching Kind/Op/Msg, want true")
	}
}

func TestErrorIsRejectsDifferentKind(t *testing.T) {
	a := newError(KindConfiguration, "start", "no frame callback set", nil)
	b := newError(KindTimeout, "start", "no frame callback set", nil)
	if errors.Is(a, b) {
		t.Fatal("errors.Is(a, b) = true for errors with different Kind, want false")
	}
}

func TestErrNoCallbackIsConfiguration(t *testing.T) {
	if ErrNoCallback.Kind != KindConfiguration {
		t.Fatalf("ErrNoCallback.Kind = %v, want KindConfiguration", ErrNoCallback.Kind)
	}
}

func TestErrorKindStringsAreDistinct(t *testing.T) {
	kinds := []ErrorKind{KindConfiguration, KindPermission, KindResource, KindNotFound, KindProtocol, KindTimeout}
	seen := map[string]bool{}
	for _, k := range kinds {
		s := k.String()
		if s == "" || s == "unknown" {
			t.Fatalf("ErrorKind(%d).String() = %q, want a specific non-empty name", k, s)
		}
		if seen[s] {
			t.Fatalf("ErrorKind %q rendered by more than one constant", s)
		}
		seen[s] = true
	}
}
