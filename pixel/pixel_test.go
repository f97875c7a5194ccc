package pixel

import (
	"bytes"
	"errors"
	"math"
	"testing"
)

func TestSwapSinglePixel(t *testing.T) {
	buf := []byte{100, 150, 200, 255}
	Swap(buf)
	want := []byte{200, 150, 100, 255}
	if !bytes.Equal(buf, want) {
		t.Fatalf("Swap() = %v, want %v", buf, want)
	}
}

func TestSwapZeroPixelsIsNoop(t *testing.T) {
	var buf []byte
	Swap(buf) // must not panic
}

func TestSwapTwiceIsIdentity(t *testing.T) {
	orig := []byte{10, 20, 30, 40, 50, 60, 70, 80}
	buf := append([]byte(nil), orig...)
	Swap(buf)
	Swap(buf)
	if !bytes.Equal(buf, orig) {
		t.Fatalf("double swap = %v, want original %v", buf, orig)
	}
}

func TestConvertKnownBGRASource(t *testing.T) {
	// B=10 G=20 R=30 A=255 in BGRA order
	src := []byte{10, 20, 30, 255}
	dst := make([]byte, 4)
	Convert(dst, src)
	want := []byte{30, 20, 10, 255}
	if !bytes.Equal(dst, want) {
		t.Fatalf("Convert() = %v, want %v", dst, want)
	}
}

func TestConvertMultiPixelMatchesSequenceOfSingle(t *testing.T) {
	src := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	dst := make([]byte, 8)
	Convert(dst, src)

	want := make([]byte, 8)
	Convert(want[0:4], src[0:4])
	Convert(want[4:8], src[4:8])
	if !bytes.Equal(dst, want) {
		t.Fatalf("Convert() multi-pixel = %v, want %v", dst, want)
	}
}

func TestRGBASizeZeroDimension(t *testing.T) {
	for _, tc := range []struct{ w, h int }{{0, 10}, {10, 0}, {0, 0}, {-1, 10}} {
		got, err := RGBASize(tc.w, tc.h)
		if err != nil || got != 0 {
			t.Fatalf("RGBASize(%d,%d) = (%d,%v), want (0,nil)", tc.w, tc.h, got, err)
		}
	}
}

func TestRGBASizeNormal(t *testing.T) {
	got, err := RGBASize(100, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 40000 {
		t.Fatalf("RGBASize(100,100) = %d, want 40000", got)
	}
}

func TestRGBASizeOverflow(t *testing.T) {
	width := int(math.MaxUint64/4) + 1
	_, err := RGBASize(width, 1)
	if err == nil {
		t.Fatal("expected overflow error, got nil")
	}
	var overflow *ErrAllocationOverflow
	if !errors.As(err, &overflow) {
		t.Fatalf("expected *ErrAllocationOverflow, got %T", err)
	}
	if !bytes.Contains([]byte(err.Error()), []byte("pixel buffer allocation")) {
		t.Fatalf("error message %q does not mention 'pixel buffer allocation'", err.Error())
	}
}
