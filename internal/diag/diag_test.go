package diag

import (
	"testing"
	"time"
)

func TestRunProbeSucceedsOnExitZero(t *testing.T) {
	result := runProbe("true", nil, time.Second)
	if !result.OK {
		t.Fatalf("runProbe(true) OK = false, err = %v", result.Err)
	}
}

func TestRunProbeFailsOnMissingBinary(t *testing.T) {
	result := runProbe("screencap-engine-nonexistent-probe-binary", nil, time.Second)
	if result.OK {
		t.Fatal("runProbe on a nonexistent binary reported OK = true")
	}
	if result.Err == nil {
		t.Fatal("runProbe on a nonexistent binary returned a nil error")
	}
}

func TestRunProbeRespectsTimeout(t *testing.T) {
	start := time.Now()
	result := runProbe("sleep", []string{"5"}, 50*time.Millisecond)
	if result.OK {
		t.Fatal("runProbe(sleep 5, 50ms timeout) reported OK = true")
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("runProbe did not honor its timeout")
	}
}

func TestMissingCompositorPackagesNonEmpty(t *testing.T) {
	pkgs := MissingCompositorPackages()
	if len(pkgs) == 0 {
		t.Fatal("MissingCompositorPackages() returned no candidates")
	}
}
