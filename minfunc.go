package csgsdf

import (
	"strconv"

	"github.com/soypat/csgsdf/glbuild"
	"github.com/soypat/csgsdf/glbuild/glsllib"
)

// MinKind enumerates the smoothing kernels a [Boolean] can combine its children with.
type MinKind uint8

const (
	MinKindDefault MinKind = iota
	MinKindPolynomial
	MinKindCubicPolynomial
	MinKindRoot
	MinKindChamfer
	MinKindStairs
	MinKindExponential
)

func (k MinKind) String() string {
	switch k {
	case MinKindDefault:
		return "default"
	case MinKindPolynomial:
		return "polynomial"
	case MinKindCubicPolynomial:
		return "cubic"
	case MinKindRoot:
		return "root"
	case MinKindChamfer:
		return "chamfer"
	case MinKindStairs:
		return "stairs"
	case MinKindExponential:
		return "exponential"
	}
	return "MinKind(" + strconv.Itoa(int(k)) + ")"
}

// MinFunction selects how a [Boolean] blends the distances of its children.
// The zero value is [MinDefault], the plain minimum.
//
// A smoothing radius k of zero degrades the polynomial, cubic, stairs and
// exponential kernels to the plain minimum.
type MinFunction struct {
	kind MinKind
	k    float32
	n    int
}

// MinDefault is the plain n-ary minimum.
var MinDefault MinFunction

func validK(op string, k float32) error {
	if !(k >= 0) || !isFinite(k) {
		return paramErrorf(op, "smoothing k must be finite and not negative (was %g)", k)
	}
	return nil
}

// NewMinPolynomial returns the quadratic polynomial smooth minimum of radius k.
//
//	h = max(k-|d0-d1|, 0)
//	min(d0, d1) - h*h/(4k)
func NewMinPolynomial(k float32) (MinFunction, error) {
	if err := validK("polynomial min", k); err != nil {
		return MinFunction{}, err
	}
	return MinFunction{kind: MinKindPolynomial, k: k}, nil
}

// NewMinCubicPolynomial returns the cubic polynomial smooth minimum of radius k.
func NewMinCubicPolynomial(k float32) (MinFunction, error) {
	if err := validK("cubic min", k); err != nil {
		return MinFunction{}, err
	}
	return MinFunction{kind: MinKindCubicPolynomial, k: k}, nil
}

// NewMinRoot returns the square root smooth minimum. k is added to the
// squared difference of the distances before taking the root.
func NewMinRoot(k float32) (MinFunction, error) {
	if err := validK("root min", k); err != nil {
		return MinFunction{}, err
	}
	return MinFunction{kind: MinKindRoot, k: k}, nil
}

// NewMinChamfer returns a minimum that bevels the joint at 45 degrees with size k.
func NewMinChamfer(k float32) (MinFunction, error) {
	if err := validK("chamfer min", k); err != nil {
		return MinFunction{}, err
	}
	return MinFunction{kind: MinKindChamfer, k: k}, nil
}

// NewMinStairs returns a minimum that fills the joint of radius k with n steps.
func NewMinStairs(k float32, n int) (MinFunction, error) {
	if err := validK("stairs min", k); err != nil {
		return MinFunction{}, err
	} else if n < 1 {
		return MinFunction{}, paramErrorf("stairs min", "step count must be at least 1 (was %d)", n)
	}
	return MinFunction{kind: MinKindStairs, k: k, n: n}, nil
}

// NewMinExponential returns the exponential smooth minimum of sharpness k.
// It is the only smoothing kernel that accepts more than two distances.
//
//	-log2(sum(2^(-k*di))) / k
func NewMinExponential(k float32) (MinFunction, error) {
	if err := validK("exponential min", k); err != nil {
		return MinFunction{}, err
	}
	return MinFunction{kind: MinKindExponential, k: k}, nil
}

// Kind returns the kernel selected by mf.
func (mf MinFunction) Kind() MinKind { return mf.kind }

// K returns the smoothing parameter.
func (mf MinFunction) K() float32 { return mf.k }

// Steps returns the number of steps of a stairs kernel.
func (mf MinFunction) Steps() int { return mf.n }

// effective returns the kernel that is actually computed.
func (mf MinFunction) effective() MinFunction {
	if mf.k != 0 {
		return mf
	}
	switch mf.kind {
	case MinKindPolynomial, MinKindCubicPolynomial, MinKindStairs, MinKindExponential:
		return MinDefault
	}
	return mf
}

// checkArity reports whether mf can combine n distances.
func (mf MinFunction) checkArity(n int) error {
	switch mf.kind {
	case MinKindDefault, MinKindExponential:
		if n < 2 {
			return arityErrorf(mf.kind.String()+" min", "requires at least 2 children (got %d)", n)
		}
	default:
		if n != 2 {
			return arityErrorf(mf.kind.String()+" min", "requires exactly 2 children (got %d)", n)
		}
	}
	return nil
}

func (mf MinFunction) kernel() (glbuild.ShaderFunction, bool) {
	switch mf.effective().kind {
	case MinKindPolynomial:
		return glsllib.SminPolynomial(), true
	case MinKindCubicPolynomial:
		return glsllib.SminCubic(), true
	case MinKindRoot:
		return glsllib.SminRoot(), true
	case MinKindChamfer:
		return glsllib.SminChamfer(), true
	case MinKindStairs:
		return glsllib.SminStairs(), true
	}
	return glbuild.ShaderFunction{}, false
}

func (mf MinFunction) functionPrefix() string {
	switch mf.effective().kind {
	case MinKindPolynomial:
		return "MinPolynomial"
	case MinKindCubicPolynomial:
		return "MinCubicPolynomial"
	case MinKindRoot:
		return "MinRoot"
	case MinKindChamfer:
		return "MinChamfer"
	case MinKindStairs:
		return "MinStairs"
	case MinKindExponential:
		return "MinExponential"
	}
	return "MinDefault"
}

// appendFunction appends a GLSL function called name combining the child
// expressions, which are written in terms of p. It fails if mf does not
// support the amount of expressions.
func (mf MinFunction) appendFunction(b []byte, name string, exprs [][]byte) ([]byte, error) {
	err := mf.checkArity(len(exprs))
	if err != nil {
		return b, err
	}
	eff := mf.effective()
	b = append(b, "float "...)
	b = append(b, name...)
	b = append(b, "(vec3 p) {\n"...)
	switch eff.kind {
	case MinKindDefault:
		b = append(b, "    float m = "...)
		b = append(b, exprs[0]...)
		b = append(b, ";\n"...)
		for _, expr := range exprs[1:] {
			b = append(b, "    m = min(m, "...)
			b = append(b, expr...)
			b = append(b, ");\n"...)
		}
		b = append(b, "    return m;\n"...)

	case MinKindExponential:
		for i, expr := range exprs {
			b = append(b, "    float d"...)
			b = strconv.AppendInt(b, int64(i), 10)
			b = append(b, " = "...)
			b = append(b, expr...)
			b = append(b, ";\n"...)
		}
		b = append(b, "    float res = "...)
		for i := range exprs {
			if i > 0 {
				b = append(b, " + "...)
			}
			b = append(b, "exp2("...)
			b = glbuild.AppendFloat(b, -eff.k)
			b = append(b, " * d"...)
			b = strconv.AppendInt(b, int64(i), 10)
			b = append(b, ')')
		}
		b = append(b, ";\n    if (res == 0.0 || isinf(res)) {\n        float m = d0;\n"...)
		for i := 1; i < len(exprs); i++ {
			b = append(b, "        m = min(m, d"...)
			b = strconv.AppendInt(b, int64(i), 10)
			b = append(b, ");\n"...)
		}
		b = append(b, "        return m;\n    }\n    return -log2(res) / "...)
		b = glbuild.AppendFloat(b, eff.k)
		b = append(b, ";\n"...)

	default:
		fn, _ := eff.kernel()
		b = append(b, "    return "...)
		b = append(b, fn.Name()...)
		b = append(b, '(')
		b = append(b, exprs[0]...)
		b = append(b, ", "...)
		b = append(b, exprs[1]...)
		b = append(b, ", "...)
		b = glbuild.AppendFloat(b, eff.k)
		if eff.kind == MinKindStairs {
			b = append(b, ", "...)
			b = glbuild.AppendFloat(b, float32(eff.n))
		}
		b = append(b, ");\n"...)
	}
	b = append(b, '}')
	return b, nil
}

