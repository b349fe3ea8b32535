package gleval

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
)

// kind is the type of an interpreted GLSL value. Integers are not
// represented; integer literals are read as floats.
type kind uint8

const (
	kindVoid kind = iota
	kindBool
	kindFloat
	kindVec2
	kindVec3
	kindVec4
	kindMat2
	kindMat3
	kindMat4
)

var kindNames = [...]string{
	kindVoid:  "void",
	kindBool:  "bool",
	kindFloat: "float",
	kindVec2:  "vec2",
	kindVec3:  "vec3",
	kindVec4:  "vec4",
	kindMat2:  "mat2",
	kindMat3:  "mat3",
	kindMat4:  "mat4",
}

func (k kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

func kindFromName(name string) (kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return kind(k), true
		}
	}
	return kindVoid, false
}

// size returns the number of scalar components of k.
func (k kind) size() int {
	switch k {
	case kindBool, kindFloat:
		return 1
	case kindVec2:
		return 2
	case kindVec3:
		return 3
	case kindVec4:
		return 4
	case kindMat2:
		return 4
	case kindMat3:
		return 9
	case kindMat4:
		return 16
	}
	return 0
}

func (k kind) isVec() bool { return k >= kindVec2 && k <= kindVec4 }
func (k kind) isMat() bool { return k >= kindMat2 && k <= kindMat4 }

// isNumeric reports whether arithmetic is defined on k.
func (k kind) isNumeric() bool { return k >= kindFloat && k <= kindMat4 }

// dim returns the vector length of a vector or the column count of a matrix.
func (k kind) dim() int {
	switch k {
	case kindFloat:
		return 1
	case kindVec2, kindMat2:
		return 2
	case kindVec3, kindMat3:
		return 3
	case kindVec4, kindMat4:
		return 4
	}
	return 0
}

func vecKind(n int) kind {
	switch n {
	case 1:
		return kindFloat
	case 2:
		return kindVec2
	case 3:
		return kindVec3
	case 4:
		return kindVec4
	}
	return kindVoid
}

// value is an interpreted GLSL value. Matrices are stored column-major.
type value struct {
	k kind
	v [16]float32
}

func floatValue(f float32) value { return value{k: kindFloat, v: [16]float32{f}} }

func boolValue(b bool) value {
	if b {
		return value{k: kindBool, v: [16]float32{1}}
	}
	return value{k: kindBool}
}

func (v value) truth() bool { return v.v[0] != 0 }

// comps returns the scalar components of v.
func (v *value) comps() []float32 { return v.v[:v.k.size()] }

var errType = errors.New("type mismatch")

func typeErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{errType}, args...)...)
}

// componentwise applies fn to every component pair of a and b, broadcasting
// scalars over vectors and matrices.
func componentwise(a, b value, fn func(x, y float32) float32) (value, error) {
	switch {
	case a.k == b.k:
		for i := range a.comps() {
			a.v[i] = fn(a.v[i], b.v[i])
		}
		return a, nil
	case b.k == kindFloat && a.k.isNumeric():
		for i := range a.comps() {
			a.v[i] = fn(a.v[i], b.v[0])
		}
		return a, nil
	case a.k == kindFloat && b.k.isNumeric():
		for i := range b.comps() {
			b.v[i] = fn(a.v[0], b.v[i])
		}
		return b, nil
	}
	return value{}, typeErrorf("%s and %s", a.k, b.k)
}

func mapComps(a value, fn func(x float32) float32) value {
	for i := range a.comps() {
		a.v[i] = fn(a.v[i])
	}
	return a
}

func add(x, y float32) float32 { return x + y }
func sub(x, y float32) float32 { return x - y }
func mul(x, y float32) float32 { return x * y }
func div(x, y float32) float32 { return x / y }

// multiply implements the GLSL * operator, which is a linear algebraic
// product when a matrix is involved and componentwise otherwise.
func multiply(a, b value) (value, error) {
	switch {
	case a.k.isMat() && b.k.isVec():
		n := a.k.dim()
		if b.k.dim() != n {
			break
		}
		var r value
		r.k = b.k
		for row := 0; row < n; row++ {
			var sum float32
			for col := 0; col < n; col++ {
				sum += a.v[col*n+row] * b.v[col]
			}
			r.v[row] = sum
		}
		return r, nil

	case a.k.isVec() && b.k.isMat():
		n := b.k.dim()
		if a.k.dim() != n {
			break
		}
		var r value
		r.k = a.k
		for col := 0; col < n; col++ {
			var sum float32
			for row := 0; row < n; row++ {
				sum += a.v[row] * b.v[col*n+row]
			}
			r.v[col] = sum
		}
		return r, nil

	case a.k.isMat() && b.k == a.k:
		n := a.k.dim()
		var r value
		r.k = a.k
		for col := 0; col < n; col++ {
			for row := 0; row < n; row++ {
				var sum float32
				for i := 0; i < n; i++ {
					sum += a.v[i*n+row] * b.v[col*n+i]
				}
				r.v[col*n+row] = sum
			}
		}
		return r, nil
	}
	if (a.k.isMat() || b.k.isMat()) && a.k != kindFloat && b.k != kindFloat {
		return value{}, typeErrorf("cannot multiply %s by %s", a.k, b.k)
	}
	return componentwise(a, b, mul)
}

// construct implements the constructor call of type k.
func construct(k kind, args []value) (value, error) {
	if len(args) == 0 {
		return value{}, fmt.Errorf("%s constructor requires arguments", k)
	}
	for _, a := range args {
		if a.k == kindVoid {
			return value{}, typeErrorf("void argument to %s constructor", k)
		}
	}
	r := value{k: k}
	n := k.size()
	if len(args) == 1 {
		a := args[0]
		switch {
		case a.k == kindFloat || a.k == kindBool:
			if k.isMat() {
				d := k.dim()
				for i := 0; i < d; i++ {
					r.v[i*d+i] = a.v[0]
				}
			} else {
				for i := 0; i < n; i++ {
					r.v[i] = a.v[0]
				}
			}
			if k == kindBool {
				r.v[0] = b2f(a.v[0] != 0)
			}
			return r, nil

		case a.k.isMat() && k.isMat():
			// Resizing keeps the overlapping upper left corner and fills
			// the rest with the identity.
			src, dst := a.k.dim(), k.dim()
			for col := 0; col < dst; col++ {
				for row := 0; row < dst; row++ {
					switch {
					case col < src && row < src:
						r.v[col*dst+row] = a.v[col*src+row]
					case col == row:
						r.v[col*dst+row] = 1
					}
				}
			}
			return r, nil
		}
	}
	i := 0
	for ai, a := range args {
		for _, c := range a.comps() {
			if i == n {
				if ai != len(args)-1 {
					return value{}, fmt.Errorf("too many arguments to %s constructor", k)
				}
				break
			}
			r.v[i] = c
			i++
		}
	}
	if i < n {
		return value{}, fmt.Errorf("not enough data for %s constructor", k)
	}
	return r, nil
}

func b2f(b bool) float32 {
	if b {
		return 1
	}
	return 0
}

// swizzle returns the components of v selected by sel, such as "xy" or "zyx".
func swizzle(v value, sel string) (value, error) {
	idx, err := swizzleIndices(v.k, sel)
	if err != nil {
		return value{}, err
	}
	var r value
	r.k = vecKind(len(idx))
	for i, j := range idx {
		r.v[i] = v.v[j]
	}
	return r, nil
}

func swizzleIndices(k kind, sel string) ([]int, error) {
	if !k.isVec() && k != kindFloat {
		return nil, typeErrorf("cannot select %q of %s", sel, k)
	}
	if len(sel) == 0 || len(sel) > 4 {
		return nil, fmt.Errorf("invalid selector %q", sel)
	}
	idx := make([]int, len(sel))
	for i, c := range sel {
		switch c {
		case 'x', 'r', 's':
			idx[i] = 0
		case 'y', 'g', 't':
			idx[i] = 1
		case 'z', 'b', 'p':
			idx[i] = 2
		case 'w', 'a', 'q':
			idx[i] = 3
		default:
			return nil, fmt.Errorf("invalid selector %q", sel)
		}
		if idx[i] >= k.dim() {
			return nil, typeErrorf("selector %q out of range for %s", sel, k)
		}
	}
	return idx, nil
}

// Scalar helpers follow the GLSL definitions exactly so results match
// the CPU evaluators bit for bit where the operation order matches.

func glslMin(x, y float32) float32 {
	if y < x {
		return y
	}
	return x
}

func glslMax(x, y float32) float32 {
	if x < y {
		return y
	}
	return x
}

func glslClamp(x, lo, hi float32) float32 { return glslMin(glslMax(x, lo), hi) }

func glslSign(x float32) float32 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}

func glslMod(x, y float32) float32 { return x - y*math32.Floor(x/y) }

func glslFract(x float32) float32 { return x - math32.Floor(x) }

func glslStep(edge, x float32) float32 {
	if x < edge {
		return 0
	}
	return 1
}

func glslSmoothstep(e0, e1, x float32) float32 {
	t := glslClamp((x-e0)/(e1-e0), 0, 1)
	return t * t * (3 - 2*t)
}

func glslMix(x, y, a float32) float32 { return x*(1-a) + y*a }

func dotValues(a, b value) float32 {
	var sum float32
	for i := range a.comps() {
		sum += a.v[i] * b.v[i]
	}
	return sum
}
