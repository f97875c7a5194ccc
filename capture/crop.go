package capture

// ClampRegion applies the crop policy shared by every backend (spec
// §4.4/§4.5/§4.6/§4.7.2): negative offsets are clamped by subtracting the
// excess from width/height and resetting the origin to zero, then the
// result is clamped against the source's upper bound. If region is unset
// (non-positive width or height), the full source area is returned.
//
// empty is true when the clamped rectangle has zero area (fully
// off-screen region).
func ClampRegion(region Rect, srcWidth, srcHeight int) (x, y, w, h int, empty bool) {
	if region.IsUnset() {
		if srcWidth <= 0 || srcHeight <= 0 {
			return 0, 0, 0, 0, true
		}
		return 0, 0, srcWidth, srcHeight, false
	}

	rx, ry := int(region.X), int(region.Y)
	rw, rh := int(region.Width), int(region.Height)

	if rx < 0 {
		rw += rx // subtract the excess
		rx = 0
	}
	if ry < 0 {
		rh += ry
		ry = 0
	}
	if rw <= 0 || rh <= 0 {
		return 0, 0, 0, 0, true
	}

	if rx >= srcWidth || ry >= srcHeight {
		return 0, 0, 0, 0, true
	}
	if rx+rw > srcWidth {
		rw = srcWidth - rx
	}
	if ry+rh > srcHeight {
		rh = srcHeight - ry
	}
	if rw <= 0 || rh <= 0 {
		return 0, 0, 0, 0, true
	}

	return rx, ry, rw, rh, false
}

// cropImage applies ClampRegion's crop policy to a tightly packed RGBA
// buffer. Every platform backend shares this helper so the clamp/copy
// behavior is identical regardless of how the pixels were obtained.
func cropImage(pix []byte, srcW, srcH int, region Rect) (Image, error) {
	x, y, w, h, empty := ClampRegion(region, srcW, srcH)
	if empty {
		return Image{Width: 0, Height: 0}, nil
	}
	if x == 0 && y == 0 && w == srcW && h == srcH {
		return Image{Pix: pix, Width: w, Height: h}, nil
	}
	out := make([]byte, w*h*4)
	stride := srcW * 4
	for row := 0; row < h; row++ {
		srcOff := (y+row)*stride + x*4
		copy(out[row*w*4:(row+1)*w*4], pix[srcOff:srcOff+w*4])
	}
	return Image{Pix: out, Width: w, Height: h}, nil
}
