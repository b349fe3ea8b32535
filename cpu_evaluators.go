package csgsdf

import (
	"errors"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
)

// EvaluateSlice evaluates s at every position and stores the results in dist.
func EvaluateSlice(s Shape, pos []ms3.Vec, dist []float32) error {
	if len(pos) != len(dist) {
		return errors.New("position and distance buffer length mismatch")
	} else if s == nil {
		return errors.New("nil shape")
	}
	for i, p := range pos {
		dist[i] = s.Eval(p)
	}
	return nil
}

func (t *translate) Eval(p ms3.Vec) float32 {
	return t.s.Eval(sub3(p, t.v))
}

func (r *rotate) Eval(p ms3.Vec) float32 {
	m := &r.inv
	return r.s.Eval(ms3.Vec{
		X: m[0]*p.X + m[1]*p.Y + m[2]*p.Z,
		Y: m[3]*p.X + m[4]*p.Y + m[5]*p.Z,
		Z: m[6]*p.X + m[7]*p.Y + m[8]*p.Z,
	})
}

func (s *scale) Eval(p ms3.Vec) float32 {
	return s.s.Eval(ms3.Vec{X: p.X * s.inv.X, Y: p.Y * s.inv.Y, Z: p.Z * s.inv.Z}) * s.factor
}

func (n *negation) Eval(p ms3.Vec) float32 {
	return -n.s.Eval(p)
}

func (r *repeat) Eval(p ms3.Vec) float32 {
	return r.s.Eval(ms3.Vec{
		X: repeatAxis(p.X, r.cell.X, r.lo.X, r.hi.X),
		Y: repeatAxis(p.Y, r.cell.Y, r.lo.Y, r.hi.Y),
		Z: repeatAxis(p.Z, r.cell.Z, r.lo.Z, r.hi.Z),
	})
}

func repeatAxis(x, cell, lo, hi float32) float32 {
	return x - cell*clampf(math32.Round(x/cell), lo, hi)
}

func (t *twist) Eval(p ms3.Vec) float32 {
	a := p.Z * t.k
	c := math32.Cos(a)
	s := math32.Sin(a)
	return t.s.Eval(ms3.Vec{
		X: c*p.X + s*p.Y,
		Y: -s*p.X + c*p.Y,
		Z: p.Z,
	})
}

func (bd *bend) Eval(p ms3.Vec) float32 {
	return bd.s.Eval(ms3.Vec{
		X: math32.Atan2(p.X, p.Y) * bd.k,
		Y: length2(p.X, p.Y),
		Z: p.Z,
	})
}

func (b *Boolean) Eval(p ms3.Vec) float32 {
	d := b.combine(p)
	if b.negate {
		return -d
	}
	return d
}

func (b *Boolean) combine(p ms3.Vec) float32 {
	eff := b.mf.effective()
	switch eff.kind {
	case MinKindDefault:
		m := b.children[0].Eval(p)
		for _, c := range b.children[1:] {
			m = minf(m, c.Eval(p))
		}
		return m

	case MinKindExponential:
		var res float32
		m := b.children[0].Eval(p)
		res = math32.Exp2(-eff.k * m)
		for _, c := range b.children[1:] {
			d := c.Eval(p)
			res += math32.Exp2(-eff.k * d)
			m = minf(m, d)
		}
		if res == 0 || math32.IsInf(res, 0) {
			return m
		}
		return -math32.Log2(res) / eff.k
	}
	return eff.combine2(b.children[0].Eval(p), b.children[1].Eval(p))
}

// combine2 evaluates a two argument kernel with the same operations as its GLSL definition.
func (mf MinFunction) combine2(d0, d1 float32) float32 {
	k := mf.k
	switch mf.kind {
	case MinKindPolynomial:
		h := maxf(k-absf(d0-d1), 0)
		return minf(d0, d1) - h*h*0.25/k
	case MinKindCubicPolynomial:
		h := maxf(k-absf(d0-d1), 0) / k
		return minf(d0, d1) - h*h*h*k/6.0
	case MinKindRoot:
		h := d0 - d1
		return 0.5 * ((d0 + d1) - math32.Sqrt(h*h+k))
	case MinKindChamfer:
		return minf(minf(d0, d1), (d0-k+d1)*math32.Sqrt(0.5))
	case MinKindStairs:
		s := k / float32(mf.n)
		u := d1 - k
		return minf(minf(d0, d1), 0.5*(u+d0+absf(modf(u-d0+s, 2.0*s)-s)))
	}
	return minf(d0, d1)
}
