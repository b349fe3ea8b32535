package csgsdf

import (
	"github.com/chewxy/math32"
	"github.com/soypat/csgsdf/glbuild"
	"github.com/soypat/csgsdf/glbuild/glsllib"
	"github.com/soypat/geometry/ms3"
)

type leaf struct{}

func (leaf) ForEachChild(func(glbuild.Shader3D) error) error { return nil }

type sphere struct {
	leaf
	r float32
}

// NewSphere creates a sphere centered at the origin of radius r.
func NewSphere(r float32) (Shape, error) {
	if !(r > 0) || !isFinite(r) {
		return nil, paramErrorf("sphere", "radius must be positive and finite (was %g)", r)
	}
	return &sphere{r: r}, nil
}

func (s *sphere) AppendShaderExpr(b []byte, p string, _ *glbuild.SharedCode) []byte {
	b = append(b, "(length("...)
	b = append(b, p...)
	b = append(b, ") - "...)
	b = glbuild.AppendFloat(b, s.r)
	return append(b, ')')
}

func (s *sphere) Eval(p ms3.Vec) float32 {
	return length3(p) - s.r
}

type plane struct {
	leaf
	n ms3.Vec
	d float32
}

// NewPlane creates the half space dot(p, n) + d < 0. The normal n is normalized
// and so d is the signed offset of the plane from the origin against n.
func NewPlane(n ms3.Vec, d float32) (Shape, error) {
	norm := length3(n)
	if norm < epstol || !isFiniteVec(n) {
		return nil, paramErrorf("plane", "normal must have non-zero length (was %v)", n)
	} else if !isFinite(d) {
		return nil, paramErrorf("plane", "offset must be finite")
	}
	return &plane{n: scale3(n, 1/norm), d: d}, nil
}

func (s *plane) AppendShaderExpr(b []byte, p string, _ *glbuild.SharedCode) []byte {
	b = append(b, "(dot("...)
	b = append(b, p...)
	b = append(b, ", "...)
	b = glbuild.AppendVec3(b, s.n)
	if math32.Signbit(s.d) {
		b = append(b, ") - "...)
		b = glbuild.AppendFloat(b, -s.d)
	} else {
		b = append(b, ") + "...)
		b = glbuild.AppendFloat(b, s.d)
	}
	return append(b, ')')
}

func (s *plane) Eval(p ms3.Vec) float32 {
	return dot3(p, s.n) + s.d
}

type box struct {
	leaf
	half ms3.Vec
}

// NewBox creates an axis aligned box centered at the origin with the given dimensions.
func NewBox(size ms3.Vec) (Shape, error) {
	if !(size.X > 0 && size.Y > 0 && size.Z > 0) || !isFiniteVec(size) {
		return nil, paramErrorf("box", "all dimensions must be greater than zero (was %v)", size)
	}
	return &box{half: scale3(size, 0.5)}, nil
}

func (s *box) AppendShaderExpr(b []byte, p string, code *glbuild.SharedCode) []byte {
	fn := code.AddStatic(glsllib.Box())
	b = append(b, fn...)
	b = append(b, '(')
	b = append(b, p...)
	b = append(b, ", "...)
	b = glbuild.AppendVec3(b, s.half)
	return append(b, ')')
}

func (s *box) Eval(p ms3.Vec) float32 {
	return boxDist(p, s.half)
}

func boxDist(p, half ms3.Vec) float32 {
	q := sub3(abs3(p), half)
	return length3(maxElem0(q)) + minf(maxf(q.X, maxf(q.Y, q.Z)), 0)
}

type roundBox struct {
	leaf
	inner ms3.Vec // Half size minus rounding radius.
	r     float32
}

// NewRoundBox creates a box centered at the origin whose edges are rounded with radius r.
// r must not exceed half of the smallest dimension.
func NewRoundBox(size ms3.Vec, r float32) (Shape, error) {
	if !(size.X > 0 && size.Y > 0 && size.Z > 0) || !isFiniteVec(size) {
		return nil, paramErrorf("roundbox", "all dimensions must be greater than zero (was %v)", size)
	}
	minDim := minf(size.X, minf(size.Y, size.Z))
	if !(r >= 0) || r > minDim/2 {
		return nil, paramErrorf("roundbox", "radius must be in [0, %g] (was %g)", minDim/2, r)
	}
	half := scale3(size, 0.5)
	return &roundBox{inner: ms3.Vec{X: half.X - r, Y: half.Y - r, Z: half.Z - r}, r: r}, nil
}

func (s *roundBox) AppendShaderExpr(b []byte, p string, code *glbuild.SharedCode) []byte {
	fn := code.AddStatic(glsllib.RoundBox())
	b = append(b, fn...)
	b = append(b, '(')
	b = append(b, p...)
	b = append(b, ", "...)
	b = glbuild.AppendVec3(b, s.inner)
	b = append(b, ", "...)
	b = glbuild.AppendFloat(b, s.r)
	return append(b, ')')
}

func (s *roundBox) Eval(p ms3.Vec) float32 {
	return boxDist(p, s.inner) - s.r
}

type cylinder struct {
	leaf
	r float32
}

// NewCylinder creates an infinite cylinder of radius r around the z axis.
func NewCylinder(r float32) (Shape, error) {
	if !(r > 0) || !isFinite(r) {
		return nil, paramErrorf("cylinder", "radius must be positive (was %g)", r)
	}
	return &cylinder{r: r}, nil
}

func (s *cylinder) AppendShaderExpr(b []byte, p string, _ *glbuild.SharedCode) []byte {
	b = append(b, "(length(("...)
	b = append(b, p...)
	b = append(b, ").xy) - "...)
	b = glbuild.AppendFloat(b, s.r)
	return append(b, ')')
}

func (s *cylinder) Eval(p ms3.Vec) float32 {
	return length2(p.X, p.Y) - s.r
}

type cappedCylinder struct {
	leaf
	r    float32
	a, b ms3.Vec
}

// NewCappedCylinder creates a cylinder of radius r whose axis runs from a to b.
func NewCappedCylinder(r float32, a, b ms3.Vec) (Shape, error) {
	if !(r > 0) || !isFinite(r) {
		return nil, paramErrorf("cylinder", "radius must be positive (was %g)", r)
	} else if !isFiniteVec(a) || !isFiniteVec(b) {
		return nil, paramErrorf("cylinder", "end points must be finite")
	} else if length3(sub3(b, a)) == 0 {
		return nil, paramErrorf("cylinder", "height must be greater than zero")
	}
	return &cappedCylinder{r: r, a: a, b: b}, nil
}

func (s *cappedCylinder) AppendShaderExpr(b []byte, p string, code *glbuild.SharedCode) []byte {
	fn := code.AddStatic(glsllib.CappedCylinder())
	b = append(b, fn...)
	b = append(b, '(')
	b = append(b, p...)
	b = append(b, ", "...)
	b = glbuild.AppendVec3(b, s.a)
	b = append(b, ", "...)
	b = glbuild.AppendVec3(b, s.b)
	b = append(b, ", "...)
	b = glbuild.AppendFloat(b, s.r)
	return append(b, ')')
}

func (s *cappedCylinder) Eval(p ms3.Vec) float32 {
	ba := sub3(s.b, s.a)
	pa := sub3(p, s.a)
	baba := dot3(ba, ba)
	paba := dot3(pa, ba)
	x := length3(sub3(scale3(pa, baba), scale3(ba, paba))) - s.r*baba
	y := absf(paba-baba*0.5) - baba*0.5
	x2 := x * x
	y2 := y * y * baba
	var d float32
	if maxf(x, y) < 0 {
		d = -minf(x2, y2)
	} else {
		if x > 0 {
			d = x2
		}
		if y > 0 {
			d += y2
		}
	}
	return signf(d) * math32.Sqrt(absf(d)) / baba
}

type roundedCylinder struct {
	leaf
	ra, rb, h float32
}

// NewRoundedCylinder creates a z aligned cylinder with rounded rims. ra is the
// main radius, rb the rounding radius and h the half height.
func NewRoundedCylinder(ra, rb, h float32) (Shape, error) {
	switch {
	case !(ra > 0) || !isFinite(ra):
		return nil, paramErrorf("rounded cylinder", "main radius must be positive (was %g)", ra)
	case !(rb >= 0) || !isFinite(rb):
		return nil, paramErrorf("rounded cylinder", "rounding radius must not be negative (was %g)", rb)
	case !(h >= 0) || !isFinite(h):
		return nil, paramErrorf("rounded cylinder", "height must not be negative (was %g)", h)
	}
	return &roundedCylinder{ra: ra, rb: rb, h: h}, nil
}

func (s *roundedCylinder) AppendShaderExpr(b []byte, p string, code *glbuild.SharedCode) []byte {
	fn := code.AddStatic(glsllib.RoundedCylinder())
	b = append(b, fn...)
	b = append(b, '(')
	b = append(b, p...)
	b = append(b, ", "...)
	b = glbuild.AppendFloats(b, ", ", s.ra, s.rb, s.h)
	return append(b, ')')
}

func (s *roundedCylinder) Eval(p ms3.Vec) float32 {
	dx := length2(p.X, p.Y) - 2.0*s.ra + s.rb
	dy := absf(p.Z) - s.h
	return minf(maxf(dx, dy), 0) + length2(maxf(dx, 0), maxf(dy, 0)) - s.rb
}

type capsule struct {
	leaf
	r    float32
	a, b ms3.Vec
}

// NewCapsule creates a capsule of radius r around the segment from a to b.
func NewCapsule(r float32, a, b ms3.Vec) (Shape, error) {
	if !(r > 0) || !isFinite(r) {
		return nil, paramErrorf("capsule", "radius must be positive (was %g)", r)
	} else if !isFiniteVec(a) || !isFiniteVec(b) {
		return nil, paramErrorf("capsule", "end points must be finite")
	} else if a == b {
		return nil, paramErrorf("capsule", "end points must differ")
	}
	return &capsule{r: r, a: a, b: b}, nil
}

func (s *capsule) AppendShaderExpr(b []byte, p string, code *glbuild.SharedCode) []byte {
	fn := code.AddStatic(glsllib.Capsule())
	b = append(b, fn...)
	b = append(b, '(')
	b = append(b, p...)
	b = append(b, ", "...)
	b = glbuild.AppendVec3(b, s.a)
	b = append(b, ", "...)
	b = glbuild.AppendVec3(b, s.b)
	b = append(b, ", "...)
	b = glbuild.AppendFloat(b, s.r)
	return append(b, ')')
}

func (s *capsule) Eval(p ms3.Vec) float32 {
	pa := sub3(p, s.a)
	ba := sub3(s.b, s.a)
	h := clampf(dot3(pa, ba)/dot3(ba, ba), 0, 1)
	return length3(sub3(pa, scale3(ba, h))) - s.r
}

type torus struct {
	leaf
	major, minor float32 // Distance from center to tube center and tube radius.
}

// NewTorus creates a torus around the z axis with the given inner and outer radii.
func NewTorus(inner, outer float32) (Shape, error) {
	major, minor, err := torusRadii("torus", inner, outer)
	if err != nil {
		return nil, err
	}
	return &torus{major: major, minor: minor}, nil
}

func torusRadii(op string, inner, outer float32) (major, minor float32, err error) {
	if !isFinite(inner) || !isFinite(outer) {
		return 0, 0, paramErrorf(op, "radii must be finite")
	} else if inner >= outer {
		return 0, 0, paramErrorf(op, "inner radius must be smaller than outer radius (%g >= %g)", inner, outer)
	} else if outer <= 0 {
		return 0, 0, paramErrorf(op, "outer radius must be greater than zero (was %g)", outer)
	}
	return (inner + outer) / 2, (outer - inner) / 2, nil
}

func (s *torus) AppendShaderExpr(b []byte, p string, code *glbuild.SharedCode) []byte {
	fn := code.AddStatic(glsllib.Torus())
	b = append(b, fn...)
	b = append(b, '(')
	b = append(b, p...)
	b = append(b, ", vec2("...)
	b = glbuild.AppendFloats(b, ", ", s.major, s.minor)
	return append(b, "))"...)
}

func (s *torus) Eval(p ms3.Vec) float32 {
	return length2(length2(p.X, p.Y)-s.major, p.Z) - s.minor
}

type cappedTorus struct {
	leaf
	major, minor float32
	sin, cos     float32
}

// NewCappedTorus creates a torus section symmetric about the y axis that spans
// angle radians to each side. angle must be in [0, π].
func NewCappedTorus(inner, outer, angle float32) (Shape, error) {
	major, minor, err := torusRadii("capped torus", inner, outer)
	if err != nil {
		return nil, err
	} else if !(angle >= 0) || angle > math32.Pi {
		return nil, paramErrorf("capped torus", "cap angle must be in [0, π] (was %g)", angle)
	}
	return &cappedTorus{major: major, minor: minor, sin: math32.Sin(angle), cos: math32.Cos(angle)}, nil
}

func (s *cappedTorus) AppendShaderExpr(b []byte, p string, code *glbuild.SharedCode) []byte {
	fn := code.AddStatic(glsllib.CappedTorus())
	b = append(b, fn...)
	b = append(b, '(')
	b = append(b, p...)
	b = append(b, ", "...)
	b = glbuild.AppendFloats(b, ", ", s.major, s.minor)
	b = append(b, ", vec2("...)
	b = glbuild.AppendFloats(b, ", ", s.sin, s.cos)
	return append(b, "))"...)
}

func (s *cappedTorus) Eval(p ms3.Vec) float32 {
	px := absf(p.X)
	var k float32
	if s.cos*px > s.sin*p.Y {
		k = px*s.sin + p.Y*s.cos
	} else {
		k = length2(px, p.Y)
	}
	ra := s.major
	return math32.Sqrt(px*px+p.Y*p.Y+p.Z*p.Z+ra*ra-2.0*ra*k) - s.minor
}
