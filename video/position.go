package video

import (
	"math"

	"skitbot/types"
)

// OverlayOffset resolves a percentage position against the video frame and
// shifts it by the anchor using the scaled overlay size.
func OverlayOffset(pos types.Position, videoW, videoH, overlayW, overlayH int) (int, int) {
	x := pos.X / 100 * float64(videoW)
	y := pos.Y / 100 * float64(videoH)
	w := float64(overlayW)
	h := float64(overlayH)

	switch pos.Anchor {
	case types.AnchorTopRight:
		x -= w
	case types.AnchorBottomLeft:
		y -= h
	case types.AnchorBottomRight:
		x -= w
		y -= h
	case types.AnchorCenter:
		x -= w / 2
		y -= h / 2
	}
	return int(math.Round(x)), int(math.Round(y))
}

// ScaledSize applies an overlay scale to a source edge length. Non-positive
// scales are treated as 1.
func ScaledSize(scale float64, edge int) int {
	if scale <= 0 {
		scale = 1
	}
	return max(1, int(math.Round(scale*float64(edge))))
}
