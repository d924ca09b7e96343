package engine

// capacityBreakpoints maps minimum viewport widths (cells) to a base number
// of concurrently displayed charts. Ordered widest first.
var capacityBreakpoints = []struct {
	minWidth int
	base     int
}{
	{200, 6},
	{160, 4},
	{110, 3},
	{70, 2},
	{0, 1},
}

// Aspect-ratio refinement thresholds. Terminal cells are roughly twice as
// tall as wide, so a "normal" 16:9 window lands near ratio 3.
const (
	wideAspect = 5.0 // ultrawide or very short: room for an extra column
	tallAspect = 1.6 // portrait-ish: halve the grid
)

// Capacity returns how many charts fit on one slide for the given viewport.
// Pure, monotonically non-decreasing in width for a fixed aspect ratio, and
// always at least 1. Recomputed on every resize; debouncing is the caller's
// concern, not a correctness requirement.
func Capacity(width, height int) int {
	if width <= 0 || height <= 0 {
		return 1
	}

	base := 1
	for _, bp := range capacityBreakpoints {
		if width >= bp.minWidth {
			base = bp.base
			break
		}
	}

	ratio := float64(width) / float64(height)
	switch {
	case ratio >= wideAspect:
		base += base / 2
	case ratio < tallAspect:
		base = (base + 1) / 2
	}

	if base < 1 {
		base = 1
	}
	return base
}
