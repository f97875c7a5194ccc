package capture

import "testing"

func TestFrameClockFirstCallReturnsZero(t *testing.T) {
	var c frameClock
	if got := c.next(); got != 0 {
		t.Fatalf("frameClock.next() on first call = %v, want 0", got)
	}
}

func TestFrameClockSecondCallReturnsNonNegativeDuration(t *testing.T) {
	var c frameClock
	c.next()
	got := c.next()
	if got < 0 {
		t.Fatalf("frameClock.next() = %v, want >= 0", got)
	}
}

func TestFrameClockResetClearsLast(t *testing.T) {
	var c frameClock
	c.next()
	c.next()
	c.reset()
	if got := c.next(); got != 0 {
		t.Fatalf("frameClock.next() after reset = %v, want 0", got)
	}
}

func TestRectIsUnset(t *testing.T) {
	cases := []struct {
		r    Rect
		want bool
	}{
		{Rect{}, true},
		{Rect{Width: 0, Height: 10}, true},
		{Rect{Width: 10, Height: 0}, true},
		{Rect{Width: -1, Height: 10}, true},
		{Rect{Width: 10, Height: 10}, false},
	}
	for _, tc := range cases {
		if got := tc.r.IsUnset(); got != tc.want {
			t.Fatalf("Rect%+v.IsUnset() = %v, want %v", tc.r, got, tc.want)
		}
	}
}

func TestPermissionStatusString(t *testing.T) {
	cases := map[PermissionStatus]string{
		PermissionOK:      "ok",
		PermissionWarning: "warning",
		PermissionError:   "error",
	}
	for status, want := range cases {
		if got := status.String(); got != want {
			t.Fatalf("PermissionStatus(%d).String() = %q, want %q", status, got, want)
		}
	}
}
