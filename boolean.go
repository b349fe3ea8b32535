package csgsdf

import (
	"github.com/soypat/csgsdf/glbuild"
)

// Boolean combines the distances of two or more children with a [MinFunction].
// Intersections and differences are unions of negated children whose result is negated.
// Booleans are created with [Union], [Intersection] or [Difference]; the zero value
// has no children and must not be evaluated or compiled.
type Boolean struct {
	children []Shape
	negate   bool
	mf       MinFunction
}

var _ Shape = (*Boolean)(nil)

// Union joins shapes. At least two shapes are required.
func Union(shapes ...Shape) (*Boolean, error) {
	if len(shapes) < 2 {
		return nil, arityErrorf("union", "requires at least 2 children (got %d)", len(shapes))
	}
	for _, s := range shapes {
		if s == nil {
			return nil, paramErrorf("union", "nil child")
		}
	}
	return &Boolean{children: append([]Shape(nil), shapes...)}, nil
}

// Intersection keeps the volume common to all shapes. At least two shapes are required.
func Intersection(shapes ...Shape) (*Boolean, error) {
	if len(shapes) < 2 {
		return nil, arityErrorf("intersection", "requires at least 2 children (got %d)", len(shapes))
	}
	children := make([]Shape, len(shapes))
	for i, s := range shapes {
		if s == nil {
			return nil, paramErrorf("intersection", "nil child")
		}
		children[i] = negate(s)
	}
	return &Boolean{children: children, negate: true}, nil
}

// Difference subtracts every shape after the first from the first.
// It is built as the intersection of the first shape with the negated rest.
func Difference(shapes ...Shape) (*Boolean, error) {
	if len(shapes) == 0 {
		return nil, arityErrorf("difference", "requires at least one child")
	}
	args := make([]Shape, len(shapes))
	args[0] = shapes[0]
	for i, s := range shapes[1:] {
		if s == nil {
			return nil, paramErrorf("difference", "nil child")
		}
		args[i+1] = negate(s)
	}
	return Intersection(args...)
}

// SetMinFunction returns a copy of b that combines its children with mf.
// b is never modified. An error is returned if mf does not support the
// number of children of b.
func SetMinFunction(b *Boolean, mf MinFunction) (*Boolean, error) {
	if b == nil {
		return nil, paramErrorf("set min function", "nil boolean")
	} else if len(b.children) < 2 {
		return nil, arityErrorf("set min function", "boolean has %d children, create it with Union, Intersection or Difference", len(b.children))
	}
	// Generating the function body checks mf against the children.
	_, err := mf.appendFunction(nil, "", make([][]byte, len(b.children)))
	if err != nil {
		return nil, err
	}
	return &Boolean{
		children: append([]Shape(nil), b.children...),
		negate:   b.negate,
		mf:       mf,
	}, nil
}

// MinFunction returns the kernel b combines its children with.
func (b *Boolean) MinFunction() MinFunction { return b.mf }

// IsIntersection reports whether b negates its result, as intersections and differences do.
func (b *Boolean) IsIntersection() bool { return b.negate }

// NumChildren returns the number of combined shapes.
func (b *Boolean) NumChildren() int { return len(b.children) }

func (b *Boolean) ForEachChild(fn func(glbuild.Shader3D) error) error {
	for _, c := range b.children {
		if err := fn(c); err != nil {
			return err
		}
	}
	return nil
}

func (b *Boolean) AppendShaderExpr(dst []byte, p string, code *glbuild.SharedCode) []byte {
	exprs := make([][]byte, len(b.children))
	for i, c := range b.children {
		exprs[i] = c.AppendShaderExpr(nil, "p", code)
	}
	if kernel, ok := b.mf.kernel(); ok {
		code.AddStatic(kernel)
	}
	name := code.AddFunction(b.mf.functionPrefix(), func(fn []byte, name string) []byte {
		fn, err := b.mf.appendFunction(fn, name, exprs)
		if err != nil {
			panic(err) // Arity is checked on construction.
		}
		return fn
	})
	if b.negate {
		dst = append(dst, "-("...)
	}
	dst = append(dst, name...)
	dst = append(dst, '(')
	dst = append(dst, p...)
	dst = append(dst, ')')
	if b.negate {
		dst = append(dst, ')')
	}
	return dst
}

