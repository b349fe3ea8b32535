package csgaux

import (
	"image/color"

	math "github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/glgl/math/ms1"
)

// invalidColor marks NaN and infinite distances in slice images.
var invalidColor = color.RGBA{R: 255, A: 255}

var (
	bandOutside = ms3.Vec{X: 0.9, Y: 0.6, Z: 0.3}
	bandInside  = ms3.Vec{X: 0.65, Y: 0.85, Z: 1.0}
)

// NewSliceColoring returns the distance to color conversion for a cross section of bb.
// A positive gradient selects a black to white ramp of that width centered on the surface,
// otherwise distance bands scaled to the bounds are used.
func NewSliceColoring(bb ms3.Box, gradient float32) func(float32) color.Color {
	if gradient > 0 {
		return Gradient(gradient, color.Black, color.White)
	}
	sz := bb.Size()
	return DistanceBands(math.Hypot(sz.X, sz.Y) / 3)
}

// DistanceBands colors the interior blue and the exterior orange with
// contour bands that fade near the surface, which is drawn white.
// Distances are normalized by scale, a third of the slice diagonal works well.
// See https://iquilezles.org/articles/distfunctions2d/.
func DistanceBands(scale float32) func(float32) color.Color {
	inv := 1 / scale
	return func(d float32) color.Color {
		if !isFinite(d) {
			return invalidColor
		}
		d *= inv
		ad := math.Abs(d)
		base := bandInside
		if d > 0 {
			base = bandOutside
		}
		shade := (1 - math.Exp(-6*ad)) * (0.8 + 0.2*math.Cos(150*d))
		surface := 1 - ms1.SmoothStep(0, 0.01, ad)
		return color.RGBA{
			R: unitToByte(ms1.Interp(base.X*shade, 1, surface)),
			G: unitToByte(ms1.Interp(base.Y*shade, 1, surface)),
			B: unitToByte(ms1.Interp(base.Z*shade, 1, surface)),
			A: 255,
		}
	}
}

// Gradient blends linearly from inside to outside over width centered on d=0.
// Distances further than width/2 from the surface get the end colors.
func Gradient(width float32, inside, outside color.Color) func(float32) color.Color {
	r0, g0, b0, a0 := inside.RGBA()
	r1, g1, b1, a1 := outside.RGBA()
	blend := func(c0, c1 uint32, t float32) uint16 {
		return uint16(ms1.Interp(float32(c0), float32(c1), t) + 0.5)
	}
	return func(d float32) color.Color {
		if math.IsNaN(d) {
			return invalidColor
		}
		t := d/width + 0.5
		switch {
		case t <= 0:
			return inside
		case t >= 1:
			return outside
		}
		return color.RGBA64{
			R: blend(r0, r1, t),
			G: blend(g0, g1, t),
			B: blend(b0, b1, t),
			A: blend(a0, a1, t),
		}
	}
}

func unitToByte(v float32) uint8 {
	return uint8(ms1.Clamp(v, 0, 1)*255 + 0.5)
}

func isFinite(f float32) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
