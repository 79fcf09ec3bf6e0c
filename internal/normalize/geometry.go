package normalize

// TargetSize returns the output dimensions for a w×h image whose longer side
// must not exceed maxDim. Images are never upscaled. The short side is
// scaled by the same ratio and truncated, so the result never exceeds maxDim.
// A square image takes the width branch.
func TargetSize(w, h, maxDim int) (int, int) {
	if w >= h {
		if w <= maxDim {
			return w, h
		}
		return maxDim, scaleShort(h, maxDim, w)
	}

	if h <= maxDim {
		return w, h
	}
	return scaleShort(w, maxDim, h), maxDim
}

// scaleShort computes floor(short*maxDim/long) without float rounding, with
// a floor of one pixel for extreme aspect ratios.
func scaleShort(short, maxDim, long int) int {
	s := int(int64(short) * int64(maxDim) / int64(long))
	if s < 1 {
		return 1
	}
	return s
}
