package capture

import (
	"bytes"
	"testing"
)

func TestClampRegionUnsetReturnsFullSource(t *testing.T) {
	x, y, w, h, empty := ClampRegion(Rect{}, 800, 600)
	if empty || x != 0 || y != 0 || w != 800 || h != 600 {
		t.Fatalf("ClampRegion(unset) = (%d,%d,%d,%d,%v), want (0,0,800,600,false)", x, y, w, h, empty)
	}
}

func TestClampRegionUnsetWithZeroSourceIsEmpty(t *testing.T) {
	_, _, _, _, empty := ClampRegion(Rect{}, 0, 0)
	if !empty {
		t.Fatal("ClampRegion(unset, 0x0 source) empty = false, want true")
	}
}

func TestClampRegionWithinBoundsIsUnchanged(t *testing.T) {
	r := Rect{X: 10, Y: 20, Width: 100, Height: 50}
	x, y, w, h, empty := ClampRegion(r, 800, 600)
	if empty || x != 10 || y != 20 || w != 100 || h != 50 {
		t.Fatalf("ClampRegion(in-bounds) = (%d,%d,%d,%d,%v), want (10,20,100,50,false)", x, y, w, h, empty)
	}
}

func TestClampRegionNegativeOffsetSubtractsExcess(t *testing.T) {
	r := Rect{X: -10, Y: -5, Width: 100, Height: 50}
	x, y, w, h, empty := ClampRegion(r, 800, 600)
	if empty || x != 0 || y != 0 || w != 90 || h != 45 {
		t.Fatalf("ClampRegion(negative offset) = (%d,%d,%d,%d,%v), want (0,0,90,45,false)", x, y, w, h, empty)
	}
}

func TestClampRegionNegativeOffsetLargerThanSizeIsEmpty(t *testing.T) {
	r := Rect{X: -200, Y: 0, Width: 100, Height: 50}
	_, _, _, _, empty := ClampRegion(r, 800, 600)
	if !empty {
		t.Fatal("ClampRegion(offset excess >= width) empty = false, want true")
	}
}

func TestClampRegionUpperBoundClamp(t *testing.T) {
	r := Rect{X: 750, Y: 580, Width: 100, Height: 100}
	x, y, w, h, empty := ClampRegion(r, 800, 600)
	if empty || x != 750 || y != 580 || w != 50 || h != 20 {
		t.Fatalf("ClampRegion(upper clamp) = (%d,%d,%d,%d,%v), want (750,580,50,20,false)", x, y, w, h, empty)
	}
}

func TestClampRegionFullyOffscreenIsEmpty(t *testing.T) {
	r := Rect{X: 900, Y: 0, Width: 50, Height: 50}
	_, _, _, _, empty := ClampRegion(r, 800, 600)
	if !empty {
		t.Fatal("ClampRegion(fully off-screen) empty = false, want true")
	}
}

func TestCropImageFullSourceReturnsSameBuffer(t *testing.T) {
	pix := make([]byte, 4*4*4)
	for i := range pix {
		pix[i] = byte(i)
	}
	img, err := cropImage(pix, 4, 4, Rect{})
	if err != nil {
		t.Fatalf("cropImage: %v", err)
	}
	if img.Width != 4 || img.Height != 4 {
		t.Fatalf("cropImage(full) dims = %dx%d, want 4x4", img.Width, img.Height)
	}
	if !bytes.Equal(img.Pix, pix) {
		t.Fatal("cropImage(full) returned a different buffer than the source")
	}
}

func TestCropImageSubregionExtractsCorrectPixels(t *testing.T) {
	const w, h = 4, 4
	pix := make([]byte, w*h*4)
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			off := (row*w + col) * 4
			pix[off] = byte(row)
			pix[off+1] = byte(col)
			pix[off+2] = 0
			pix[off+3] = 255
		}
	}

	img, err := cropImage(pix, w, h, Rect{X: 1, Y: 1, Width: 2, Height: 2})
	if err != nil {
		t.Fatalf("cropImage: %v", err)
	}
	if img.Width != 2 || img.Height != 2 {
		t.Fatalf("cropImage(sub) dims = %dx%d, want 2x2", img.Width, img.Height)
	}
	// top-left pixel of the crop should be source (row=1, col=1)
	if img.Pix[0] != 1 || img.Pix[1] != 1 {
		t.Fatalf("cropImage(sub) top-left pixel = (%d,%d), want (1,1)", img.Pix[0], img.Pix[1])
	}
}

func TestCropImageEmptyRegionReturnsZeroImage(t *testing.T) {
	pix := make([]byte, 4*4*4)
	img, err := cropImage(pix, 4, 4, Rect{X: 100, Y: 100, Width: 10, Height: 10})
	if err != nil {
		t.Fatalf("cropImage: %v", err)
	}
	if img.Width != 0 || img.Height != 0 {
		t.Fatalf("cropImage(off-screen) dims = %dx%d, want 0x0", img.Width, img.Height)
	}
}
