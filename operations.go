package csgsdf

import (
	"github.com/chewxy/math32"
	"github.com/soypat/csgsdf/glbuild"
	"github.com/soypat/geometry/ms3"
)

type translate struct {
	s Shape
	v ms3.Vec
}

// Translate moves s by v.
func Translate(s Shape, v ms3.Vec) Shape {
	return &translate{s: s, v: v}
}

func (t *translate) ForEachChild(fn func(glbuild.Shader3D) error) error { return fn(t.s) }

func (t *translate) AppendShaderExpr(b []byte, p string, code *glbuild.SharedCode) []byte {
	pt := make([]byte, 0, len(p)+48)
	pt = append(pt, '(')
	pt = append(pt, p...)
	pt = append(pt, ") - "...)
	pt = glbuild.AppendVec3(pt, t.v)
	return t.s.AppendShaderExpr(b, string(pt), code)
}

type rotate struct {
	s Shape
	// Row major transpose of the rotation matrix, maps world points into the child's frame.
	inv [9]float32
}

// Rotate rotates s by Euler angles in radians. The rotation matrix is
// M = Rx(pitch)·Ry(yaw)·Rz(roll), so roll about the z axis is applied to the
// shape first, then yaw about y and finally pitch about x.
func Rotate(s Shape, roll, pitch, yaw float32) Shape {
	m := mulMat3(mulMat3(rotX(pitch), rotY(yaw)), rotZ(roll))
	return &rotate{s: s, inv: transposeMat3(m)}
}

func (r *rotate) ForEachChild(fn func(glbuild.Shader3D) error) error { return fn(r.s) }

func (r *rotate) AppendShaderExpr(b []byte, p string, code *glbuild.SharedCode) []byte {
	pr := make([]byte, 0, len(p)+128)
	pr = glbuild.AppendMat3Array(pr, r.inv)
	pr = append(pr, " * ("...)
	pr = append(pr, p...)
	pr = append(pr, ')')
	return r.s.AppendShaderExpr(b, string(pr), code)
}

func rotX(a float32) [9]float32 {
	s, c := math32.Sin(a), math32.Cos(a)
	return [9]float32{
		1, 0, 0,
		0, c, -s,
		0, s, c,
	}
}

func rotY(a float32) [9]float32 {
	s, c := math32.Sin(a), math32.Cos(a)
	return [9]float32{
		c, 0, s,
		0, 1, 0,
		-s, 0, c,
	}
}

func rotZ(a float32) [9]float32 {
	s, c := math32.Sin(a), math32.Cos(a)
	return [9]float32{
		c, -s, 0,
		s, c, 0,
		0, 0, 1,
	}
}

func mulMat3(a, b [9]float32) (m [9]float32) {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m[i*3+j] = a[i*3]*b[j] + a[i*3+1]*b[3+j] + a[i*3+2]*b[6+j]
		}
	}
	return m
}

func transposeMat3(a [9]float32) [9]float32 {
	return [9]float32{
		a[0], a[3], a[6],
		a[1], a[4], a[7],
		a[2], a[5], a[8],
	}
}

type scale struct {
	s      Shape
	inv    ms3.Vec
	factor float32 // Smallest absolute scale component.
}

// Scale scales s by v component-wise. Under non-uniform scaling the result
// is a bound of the distance that never overestimates it.
func Scale(s Shape, v ms3.Vec) (Shape, error) {
	if v.X == 0 || v.Y == 0 || v.Z == 0 || !isFiniteVec(v) {
		return nil, paramErrorf("scale", "scale factors must be finite and non-zero (was %v)", v)
	}
	factor := minf(absf(v.X), minf(absf(v.Y), absf(v.Z)))
	return &scale{s: s, inv: ms3.Vec{X: 1 / v.X, Y: 1 / v.Y, Z: 1 / v.Z}, factor: factor}, nil
}

func (s *scale) ForEachChild(fn func(glbuild.Shader3D) error) error { return fn(s.s) }

func (s *scale) AppendShaderExpr(b []byte, p string, code *glbuild.SharedCode) []byte {
	ps := make([]byte, 0, len(p)+48)
	ps = append(ps, '(')
	ps = append(ps, p...)
	ps = append(ps, ") * "...)
	ps = glbuild.AppendVec3(ps, s.inv)
	b = append(b, '(')
	b = s.s.AppendShaderExpr(b, string(ps), code)
	b = append(b, " * "...)
	b = glbuild.AppendFloat(b, s.factor)
	return append(b, ')')
}

type negation struct {
	s Shape
}

// negate returns the negation of s. Negating a negation unwraps it.
func negate(s Shape) Shape {
	if n, ok := s.(*negation); ok {
		return n.s
	}
	return &negation{s: s}
}

func (n *negation) ForEachChild(fn func(glbuild.Shader3D) error) error { return fn(n.s) }

func (n *negation) AppendShaderExpr(b []byte, p string, code *glbuild.SharedCode) []byte {
	b = append(b, "-("...)
	b = n.s.AppendShaderExpr(b, p, code)
	return append(b, ')')
}

// appendWrapperCall compiles child in terms of the local p of a generated
// wrapper function whose body starts with preamble. The call to the wrapper is appended to b.
func appendWrapperCall(b []byte, p string, code *glbuild.SharedCode, prefix string, child Shape, preamble []byte) []byte {
	childExpr := child.AppendShaderExpr(nil, "p", code)
	name := code.AddFunction(prefix, func(dst []byte, name string) []byte {
		dst = append(dst, "float "...)
		dst = append(dst, name...)
		dst = append(dst, "(vec3 p) {\n"...)
		dst = append(dst, preamble...)
		dst = append(dst, "    return "...)
		dst = append(dst, childExpr...)
		dst = append(dst, ";\n}"...)
		return dst
	})
	b = append(b, name...)
	b = append(b, '(')
	b = append(b, p...)
	return append(b, ')')
}

type repeat struct {
	s      Shape
	cell   ms3.Vec
	lo, hi ms3.Vec
}

// Repeat tiles s on a grid with the given cell size. The tile indices along
// each axis are bounded by lo and hi inclusive; index 0 holds the original shape.
func Repeat(s Shape, cell ms3.Vec, lo, hi [3]int) (Shape, error) {
	if !(cell.X > 0 && cell.Y > 0 && cell.Z > 0) || !isFiniteVec(cell) {
		return nil, paramErrorf("repeat", "cell size must be positive (was %v)", cell)
	}
	for i := range lo {
		if hi[i] < lo[i] {
			return nil, paramErrorf("repeat", "max index must not be smaller than min index along axis %d (%d < %d)", i, hi[i], lo[i])
		}
	}
	return &repeat{
		s:    s,
		cell: cell,
		lo:   ms3.Vec{X: float32(lo[0]), Y: float32(lo[1]), Z: float32(lo[2])},
		hi:   ms3.Vec{X: float32(hi[0]), Y: float32(hi[1]), Z: float32(hi[2])},
	}, nil
}

func (r *repeat) ForEachChild(fn func(glbuild.Shader3D) error) error { return fn(r.s) }

func (r *repeat) AppendShaderExpr(b []byte, p string, code *glbuild.SharedCode) []byte {
	pre := make([]byte, 0, 160)
	cell := glbuild.AppendVec3(nil, r.cell)
	pre = append(pre, "    p = p - "...)
	pre = append(pre, cell...)
	pre = append(pre, " * clamp(round(p / "...)
	pre = append(pre, cell...)
	pre = append(pre, "), "...)
	pre = glbuild.AppendVec3(pre, r.lo)
	pre = append(pre, ", "...)
	pre = glbuild.AppendVec3(pre, r.hi)
	pre = append(pre, ");\n"...)
	return appendWrapperCall(b, p, code, "Repeat", r.s, pre)
}

type twist struct {
	s Shape
	k float32 // Radians per unit height.
}

// Twist rotates the xy plane of s about the z axis proportionally to z.
// heightPerRotation is the height over which a full turn is completed; its
// sign sets the direction of the twist.
func Twist(s Shape, heightPerRotation float32) (Shape, error) {
	if heightPerRotation == 0 || !isFinite(heightPerRotation) {
		return nil, paramErrorf("twist", "height per rotation must be finite and non-zero (was %g)", heightPerRotation)
	}
	return &twist{s: s, k: 2 * math32.Pi / heightPerRotation}, nil
}

func (t *twist) ForEachChild(fn func(glbuild.Shader3D) error) error { return fn(t.s) }

func (t *twist) AppendShaderExpr(b []byte, p string, code *glbuild.SharedCode) []byte {
	pre := make([]byte, 0, 160)
	pre = append(pre, "    float a = p.z * "...)
	pre = glbuild.AppendFloat(pre, t.k)
	pre = append(pre, `;
    float c = cos(a);
    float s = sin(a);
    p = vec3(mat2(c, -s, s, c) * p.xy, p.z);
`...)
	return appendWrapperCall(b, p, code, "Twist", t.s, pre)
}

type bend struct {
	s Shape
	k float32 // Length per radian.
}

// Bend wraps the x axis of s around the z axis so that a length of
// fullCircleDistance along x completes a full circle.
func Bend(s Shape, fullCircleDistance float32) (Shape, error) {
	if !(fullCircleDistance > 0) || !isFinite(fullCircleDistance) {
		return nil, paramErrorf("bend", "full circle distance must be positive (was %g)", fullCircleDistance)
	}
	return &bend{s: s, k: fullCircleDistance / (2 * math32.Pi)}, nil
}

func (bd *bend) ForEachChild(fn func(glbuild.Shader3D) error) error { return fn(bd.s) }

func (bd *bend) AppendShaderExpr(b []byte, p string, code *glbuild.SharedCode) []byte {
	pre := make([]byte, 0, 96)
	pre = append(pre, "    p = vec3(atan(p.x, p.y) * "...)
	pre = glbuild.AppendFloat(pre, bd.k)
	pre = append(pre, ", length(p.xy), p.z);\n"...)
	return appendWrapperCall(b, p, code, "Bend", bd.s, pre)
}

