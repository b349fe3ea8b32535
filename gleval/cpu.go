package gleval

import (
	"errors"

	"github.com/soypat/geometry/ms3"
)

// NewCPUSDF3 wraps a point evaluator, such as any shape of the csgsdf
// package, as an [SDF3] bounded by bb.
func NewCPUSDF3(s PointEvaluator, bb ms3.Box) (*CPUSDF3, error) {
	if s == nil {
		return nil, errors.New("nil point evaluator")
	}
	sz := bb.Size()
	if !(sz.X > 0 && sz.Y > 0 && sz.Z > 0) {
		return nil, errors.New("bounding box must have positive volume")
	}
	return &CPUSDF3{s: s, bb: bb}, nil
}

// CPUSDF3 evaluates a distance field on the CPU, one point at a time.
type CPUSDF3 struct {
	s  PointEvaluator
	bb ms3.Box
}

// Evaluate implements [SDF3].
func (c *CPUSDF3) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	if len(pos) != len(dist) {
		return errMismatchBufferLength
	} else if len(pos) == 0 {
		return errEmptyBuffers
	}
	for i, p := range pos {
		dist[i] = c.s.Eval(p)
	}
	return nil
}

// Bounds implements [SDF3].
func (c *CPUSDF3) Bounds() ms3.Box { return c.bb }

// Eval evaluates the distance at a single point.
func (c *CPUSDF3) Eval(p ms3.Vec) float32 { return c.s.Eval(p) }
