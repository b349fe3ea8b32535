package csgsdf

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
	"github.com/soypat/csgsdf/glbuild"
	"github.com/soypat/geometry/ms3"
)

const (
	// epstol is used to check for badly conditioned denominators
	// such as lengths used for normalization.
	epstol = 6e-7
)

// Shape is a node of an SDF tree. It can be compiled to a GLSL expression
// and evaluated numerically with the same formulas.
// Shapes are immutable once built; operations wrap them in new nodes.
type Shape interface {
	glbuild.Shader3D
	// Eval returns the signed distance from p to the shape's surface.
	// Negative values are inside the shape.
	Eval(p ms3.Vec) float32
}

var (
	// ErrInvalidParam is returned when a primitive or operation receives a parameter outside of its valid range.
	ErrInvalidParam = errors.New("invalid parameter")
	// ErrArity is returned when a boolean operation or smoothing kernel receives an unsupported amount of children.
	ErrArity = errors.New("invalid number of children")
)

// ShapeError is returned by shape constructors. Err is one of
// [ErrInvalidParam] or [ErrArity] and may be tested with [errors.Is].
type ShapeError struct {
	Op  string
	Err error
	Msg string
}

func (e *ShapeError) Error() string {
	return e.Op + ": " + e.Msg
}

func (e *ShapeError) Unwrap() error { return e.Err }

func paramErrorf(op, format string, args ...any) error {
	return &ShapeError{Op: op, Err: ErrInvalidParam, Msg: fmt.Sprintf(format, args...)}
}

func arityErrorf(op, format string, args ...any) error {
	return &ShapeError{Op: op, Err: ErrArity, Msg: fmt.Sprintf(format, args...)}
}

func isFinite(f float32) bool {
	return !math32.IsInf(f, 0) && !math32.IsNaN(f)
}

func isFiniteVec(v ms3.Vec) bool {
	return isFinite(v.X) && isFinite(v.Y) && isFinite(v.Z)
}

// The scalar helpers below follow the GLSL definitions of the builtins
// so that Eval matches the compiled expression operation for operation.

func minf(a, b float32) float32 {
	if b < a {
		return b
	}
	return a
}

func maxf(a, b float32) float32 {
	if a < b {
		return b
	}
	return a
}

func absf(a float32) float32 {
	return math32.Abs(a)
}

func signf(a float32) float32 {
	if a == 0 {
		return 0
	} else if a < 0 {
		return -1
	}
	return 1
}

func clampf(v, Min, Max float32) float32 {
	return minf(maxf(v, Min), Max)
}

// modf is GLSL's mod: x - y*floor(x/y).
func modf(x, y float32) float32 {
	return x - y*math32.Floor(x/y)
}

func length2(x, y float32) float32 {
	return math32.Sqrt(x*x + y*y)
}

func length3(v ms3.Vec) float32 {
	return math32.Sqrt(dot3(v, v))
}

func dot3(a, b ms3.Vec) float32 {
	return a.X*b.X + a.Y*b.Y + a.Z*b.Z
}

func sub3(a, b ms3.Vec) ms3.Vec {
	return ms3.Vec{X: a.X - b.X, Y: a.Y - b.Y, Z: a.Z - b.Z}
}

func scale3(v ms3.Vec, f float32) ms3.Vec {
	return ms3.Vec{X: v.X * f, Y: v.Y * f, Z: v.Z * f}
}

func maxElem0(v ms3.Vec) ms3.Vec {
	return ms3.Vec{X: maxf(v.X, 0), Y: maxf(v.Y, 0), Z: maxf(v.Z, 0)}
}

func abs3(v ms3.Vec) ms3.Vec {
	return ms3.Vec{X: absf(v.X), Y: absf(v.Y), Z: absf(v.Z)}
}
