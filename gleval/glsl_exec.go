package gleval

import (
	"errors"
	"fmt"
	"text/scanner"

	"github.com/chewxy/math32"
)

// Nested call limit. GLSL forbids recursion so this is only reached by
// malformed programs.
const maxCallDepth = 1024

type variable struct {
	name string
	v    value
}

type global struct {
	v       value
	uniform bool
}

// interpreter executes a parsed program. It is not safe for concurrent use.
type interpreter struct {
	prog    *program
	globals map[string]*global
	// Local variables of all active calls. Locals of the innermost call
	// start at base.
	vars  []variable
	base  int
	depth int
}

type evalError struct {
	pos scanner.Position
	err error
}

func (e *evalError) Error() string {
	return fmt.Sprintf("%d:%d: %v", e.pos.Line, e.pos.Column, e.err)
}

func (e *evalError) Unwrap() error { return e.err }

func errAt(pos scanner.Position, err error) error {
	var ee *evalError
	if errors.As(err, &ee) {
		return err
	}
	return &evalError{pos: pos, err: err}
}

func errAtf(pos scanner.Position, format string, args ...any) error {
	return &evalError{pos: pos, err: fmt.Errorf(format, args...)}
}

func newInterpreter(prog *program) (*interpreter, error) {
	in := &interpreter{prog: prog, globals: make(map[string]*global)}
	for _, g := range prog.globals {
		if _, dup := in.globals[g.name]; dup {
			return nil, errAtf(g.pos, "%s redeclared", g.name)
		}
		v := value{k: g.k}
		if g.init != nil {
			var err error
			v, err = in.eval(g.init)
			if err != nil {
				return nil, err
			} else if v.k != g.k {
				return nil, errAt(g.pos, typeErrorf("cannot initialize %s %s with %s", g.k, g.name, v.k))
			}
		}
		in.globals[g.name] = &global{v: v, uniform: g.uniform}
	}
	return in, nil
}

func (in *interpreter) setUniform(name string, v value) error {
	g, ok := in.globals[name]
	if !ok || !g.uniform {
		return fmt.Errorf("uniform %s not declared", name)
	} else if g.v.k != v.k {
		return typeErrorf("uniform %s is %s, not %s", name, g.v.k, v.k)
	}
	g.v = v
	return nil
}

// lookup returns a pointer to the named variable. The pointer is
// invalidated when a new local variable is declared.
func (in *interpreter) lookup(name string) (v *value, isUniform bool, ok bool) {
	for i := len(in.vars) - 1; i >= in.base; i-- {
		if in.vars[i].name == name {
			return &in.vars[i].v, false, true
		}
	}
	if g, ok := in.globals[name]; ok {
		return &g.v, g.uniform, true
	}
	return nil, false, false
}

func (in *interpreter) call(fn *funcDecl, args []value, pos scanner.Position) (value, error) {
	if len(args) != len(fn.params) {
		return value{}, errAtf(pos, "%s takes %d arguments, got %d", fn.name, len(fn.params), len(args))
	}
	for i, prm := range fn.params {
		if args[i].k != prm.k {
			return value{}, errAt(pos, typeErrorf("argument %d of %s must be %s, got %s", i, fn.name, prm.k, args[i].k))
		}
	}
	if in.depth >= maxCallDepth {
		return value{}, errAtf(pos, "call depth exceeded calling %s", fn.name)
	}
	in.depth++
	oldBase := in.base
	in.base = len(in.vars)
	for i, prm := range fn.params {
		in.vars = append(in.vars, variable{name: prm.name, v: args[i]})
	}
	ret, returned, err := in.exec(fn.body)
	in.vars = in.vars[:in.base]
	in.base = oldBase
	in.depth--
	switch {
	case err != nil:
		return value{}, err
	case !returned && fn.ret != kindVoid:
		return value{}, errAtf(fn.pos, "%s: missing return", fn.name)
	case returned && ret.k != fn.ret:
		return value{}, errAt(fn.pos, typeErrorf("%s returns %s, got %s", fn.name, fn.ret, ret.k))
	}
	return ret, nil
}

func (in *interpreter) exec(s stmt) (ret value, returned bool, err error) {
	switch s := s.(type) {
	case *blockStmt:
		mark := len(in.vars)
		for _, sub := range s.body {
			ret, returned, err = in.exec(sub)
			if err != nil || returned {
				break
			}
		}
		in.vars = in.vars[:mark]
		return ret, returned, err

	case *declStmt:
		for i, name := range s.names {
			v := value{k: s.k}
			if s.inits[i] != nil {
				v, err = in.eval(s.inits[i])
				if err != nil {
					return value{}, false, err
				} else if v.k != s.k {
					return value{}, false, errAt(s.pos, typeErrorf("cannot initialize %s %s with %s", s.k, name, v.k))
				}
			}
			in.vars = append(in.vars, variable{name: name, v: v})
		}
		return value{}, false, nil

	case *exprStmt:
		_, err = in.eval(s.x)
		return value{}, false, err

	case *ifStmt:
		cond, err := in.eval(s.cond)
		if err != nil {
			return value{}, false, err
		} else if cond.k != kindBool {
			return value{}, false, errAt(s.cond.position(), typeErrorf("if condition is %s", cond.k))
		}
		branch := s.then
		if !cond.truth() {
			branch = s.els
		}
		if branch == nil {
			return value{}, false, nil
		}
		mark := len(in.vars)
		ret, returned, err = in.exec(branch)
		in.vars = in.vars[:mark]
		return ret, returned, err

	case *returnStmt:
		if s.x == nil {
			return value{k: kindVoid}, true, nil
		}
		ret, err = in.eval(s.x)
		return ret, err == nil, err
	}
	return value{}, false, fmt.Errorf("unknown statement %T", s)
}

func (in *interpreter) eval(e expr) (value, error) {
	switch e := e.(type) {
	case *numberExpr:
		return floatValue(e.v), nil

	case *boolExpr:
		return boolValue(e.v), nil

	case *identExpr:
		v, _, ok := in.lookup(e.name)
		if !ok {
			return value{}, errAtf(e.pos, "undefined: %s", e.name)
		}
		return *v, nil

	case *unaryExpr:
		x, err := in.eval(e.x)
		if err != nil {
			return value{}, err
		}
		switch {
		case e.op == "-" && x.k.isNumeric():
			return mapComps(x, func(f float32) float32 { return -f }), nil
		case e.op == "!" && x.k == kindBool:
			return boolValue(!x.truth()), nil
		}
		return value{}, errAt(e.pos, typeErrorf("operator %s on %s", e.op, x.k))

	case *binaryExpr:
		return in.evalBinary(e)

	case *ternaryExpr:
		cond, err := in.eval(e.cond)
		if err != nil {
			return value{}, err
		} else if cond.k != kindBool {
			return value{}, errAt(e.pos, typeErrorf("ternary condition is %s", cond.k))
		}
		if cond.truth() {
			return in.eval(e.a)
		}
		return in.eval(e.b)

	case *callExpr:
		args := make([]value, len(e.args))
		for i, arg := range e.args {
			var err error
			args[i], err = in.eval(arg)
			if err != nil {
				return value{}, err
			}
		}
		if k, ok := kindFromName(e.name); ok && k != kindVoid {
			v, err := construct(k, args)
			if err != nil {
				return value{}, errAt(e.pos, err)
			}
			return v, nil
		}
		if fn, ok := in.prog.funcs[e.name]; ok {
			return in.call(fn, args, e.pos)
		}
		if b, ok := builtins[e.name]; ok {
			v, err := b(args)
			if err != nil {
				return value{}, errAt(e.pos, fmt.Errorf("%s: %w", e.name, err))
			}
			return v, nil
		}
		return value{}, errAtf(e.pos, "undefined function: %s", e.name)

	case *selectExpr:
		x, err := in.eval(e.x)
		if err != nil {
			return value{}, err
		}
		v, err := swizzle(x, e.sel)
		if err != nil {
			return value{}, errAt(e.pos, err)
		}
		return v, nil

	case *assignExpr:
		return in.evalAssign(e)
	}
	return value{}, fmt.Errorf("unknown expression %T", e)
}

func (in *interpreter) evalBinary(e *binaryExpr) (value, error) {
	x, err := in.eval(e.x)
	if err != nil {
		return value{}, err
	}
	if e.op == "&&" || e.op == "||" {
		if x.k != kindBool {
			return value{}, errAt(e.pos, typeErrorf("operator %s on %s", e.op, x.k))
		}
		if x.truth() == (e.op == "||") {
			return x, nil
		}
		y, err := in.eval(e.y)
		if err != nil {
			return value{}, err
		} else if y.k != kindBool {
			return value{}, errAt(e.pos, typeErrorf("operator %s on %s", e.op, y.k))
		}
		return y, nil
	}
	y, err := in.eval(e.y)
	if err != nil {
		return value{}, err
	}
	v, err := binaryOp(e.op, x, y)
	if err != nil {
		return value{}, errAt(e.pos, err)
	}
	return v, nil
}

func binaryOp(op string, x, y value) (value, error) {
	switch op {
	case "==", "!=":
		if x.k != y.k {
			return value{}, typeErrorf("cannot compare %s and %s", x.k, y.k)
		}
		eq := true
		for i := range x.comps() {
			eq = eq && x.v[i] == y.v[i]
		}
		return boolValue(eq == (op == "==")), nil
	}
	if !x.k.isNumeric() || !y.k.isNumeric() {
		return value{}, typeErrorf("operator %s on %s and %s", op, x.k, y.k)
	}
	switch op {
	case "<", ">", "<=", ">=":
		if x.k != kindFloat || y.k != kindFloat {
			return value{}, typeErrorf("operator %s on %s and %s", op, x.k, y.k)
		}
		a, b := x.v[0], y.v[0]
		switch op {
		case "<":
			return boolValue(a < b), nil
		case ">":
			return boolValue(a > b), nil
		case "<=":
			return boolValue(a <= b), nil
		}
		return boolValue(a >= b), nil
	case "+":
		return componentwise(x, y, add)
	case "-":
		return componentwise(x, y, sub)
	case "*":
		return multiply(x, y)
	case "/":
		return componentwise(x, y, div)
	}
	return value{}, fmt.Errorf("unknown operator %s", op)
}

func (in *interpreter) evalAssign(e *assignExpr) (value, error) {
	v, err := in.eval(e.x)
	if err != nil {
		return value{}, err
	}
	if e.op != "=" {
		cur, err := in.eval(e.target)
		if err != nil {
			return value{}, err
		}
		v, err = binaryOp(e.op[:1], cur, v)
		if err != nil {
			return value{}, errAt(e.pos, err)
		}
	}
	err = in.store(e.target, v)
	if err != nil {
		return value{}, errAt(e.pos, err)
	}
	return v, nil
}

// store assigns v to an l-value: a variable or a swizzle of an l-value.
func (in *interpreter) store(target expr, v value) error {
	switch t := target.(type) {
	case *identExpr:
		ref, isUniform, ok := in.lookup(t.name)
		switch {
		case !ok:
			return fmt.Errorf("undefined: %s", t.name)
		case isUniform:
			return fmt.Errorf("cannot assign to uniform %s", t.name)
		case ref.k != v.k:
			return typeErrorf("cannot assign %s to %s %s", v.k, ref.k, t.name)
		}
		*ref = v
		return nil

	case *selectExpr:
		base, err := in.eval(t.x)
		if err != nil {
			return err
		}
		idx, err := swizzleIndices(base.k, t.sel)
		if err != nil {
			return err
		} else if v.k != vecKind(len(idx)) {
			return typeErrorf("cannot assign %s to .%s", v.k, t.sel)
		}
		var seen [4]bool
		for i, j := range idx {
			if seen[j] {
				return fmt.Errorf("repeated component in .%s assignment", t.sel)
			}
			seen[j] = true
			base.v[j] = v.v[i]
		}
		return in.store(t.x, base)
	}
	return errors.New("invalid assignment target")
}

type builtin func(args []value) (value, error)

var builtins map[string]builtin

func init() {
	builtins = map[string]builtin{
		"abs":         genType(1, func(x []float32) float32 { return math32.Abs(x[0]) }),
		"sign":        genType(1, func(x []float32) float32 { return glslSign(x[0]) }),
		"floor":       genType(1, func(x []float32) float32 { return math32.Floor(x[0]) }),
		"ceil":        genType(1, func(x []float32) float32 { return math32.Ceil(x[0]) }),
		"trunc":       genType(1, func(x []float32) float32 { return math32.Trunc(x[0]) }),
		"fract":       genType(1, func(x []float32) float32 { return glslFract(x[0]) }),
		"round":       genType(1, func(x []float32) float32 { return math32.Round(x[0]) }),
		"sqrt":        genType(1, func(x []float32) float32 { return math32.Sqrt(x[0]) }),
		"inversesqrt": genType(1, func(x []float32) float32 { return 1 / math32.Sqrt(x[0]) }),
		"exp":         genType(1, func(x []float32) float32 { return math32.Exp(x[0]) }),
		"exp2":        genType(1, func(x []float32) float32 { return math32.Exp2(x[0]) }),
		"log":         genType(1, func(x []float32) float32 { return math32.Log(x[0]) }),
		"log2":        genType(1, func(x []float32) float32 { return math32.Log2(x[0]) }),
		"sin":         genType(1, func(x []float32) float32 { return math32.Sin(x[0]) }),
		"cos":         genType(1, func(x []float32) float32 { return math32.Cos(x[0]) }),
		"tan":         genType(1, func(x []float32) float32 { return math32.Tan(x[0]) }),
		"asin":        genType(1, func(x []float32) float32 { return math32.Asin(x[0]) }),
		"acos":        genType(1, func(x []float32) float32 { return math32.Acos(x[0]) }),
		"radians":     genType(1, func(x []float32) float32 { return x[0] * (math32.Pi / 180) }),
		"degrees":     genType(1, func(x []float32) float32 { return x[0] * (180 / math32.Pi) }),
		"min":         genType(2, func(x []float32) float32 { return glslMin(x[0], x[1]) }),
		"max":         genType(2, func(x []float32) float32 { return glslMax(x[0], x[1]) }),
		"mod":         genType(2, func(x []float32) float32 { return glslMod(x[0], x[1]) }),
		"pow":         genType(2, func(x []float32) float32 { return math32.Pow(x[0], x[1]) }),
		"step":        genType(2, func(x []float32) float32 { return glslStep(x[0], x[1]) }),
		"clamp":       genType(3, func(x []float32) float32 { return glslClamp(x[0], x[1], x[2]) }),
		"mix":         genType(3, func(x []float32) float32 { return glslMix(x[0], x[1], x[2]) }),
		"smoothstep":  genType(3, func(x []float32) float32 { return glslSmoothstep(x[0], x[1], x[2]) }),
		"atan":        builtinAtan,
		"length":      builtinLength,
		"distance":    builtinDistance,
		"dot":         builtinDot,
		"cross":       builtinCross,
		"normalize":   builtinNormalize,
		"isinf":       scalarPredicate(func(x float32) bool { return math32.IsInf(x, 0) }),
		"isnan":       scalarPredicate(math32.IsNaN),
	}
}

// genType returns a componentwise builtin of n arguments. Arguments are
// floats or vectors of one common length; float arguments are broadcast.
func genType(n int, fn func(x []float32) float32) builtin {
	return func(args []value) (value, error) {
		if len(args) != n {
			return value{}, fmt.Errorf("want %d arguments, got %d", n, len(args))
		}
		rk := kindFloat
		for _, a := range args {
			switch {
			case a.k == kindFloat:
			case a.k.isVec() && (rk == kindFloat || rk == a.k):
				rk = a.k
			default:
				return value{}, typeErrorf("invalid argument %s", a.k)
			}
		}
		var x [3]float32
		r := value{k: rk}
		for i := 0; i < rk.size(); i++ {
			for j, a := range args {
				if a.k == kindFloat {
					x[j] = a.v[0]
				} else {
					x[j] = a.v[i]
				}
			}
			r.v[i] = fn(x[:n])
		}
		return r, nil
	}
}

func scalarPredicate(fn func(float32) bool) builtin {
	return func(args []value) (value, error) {
		if len(args) != 1 || args[0].k != kindFloat {
			return value{}, errors.New("want a single float argument")
		}
		return boolValue(fn(args[0].v[0])), nil
	}
}

var (
	atan1 = genType(1, func(x []float32) float32 { return math32.Atan(x[0]) })
	atan2 = genType(2, func(x []float32) float32 { return math32.Atan2(x[0], x[1]) })
)

func builtinAtan(args []value) (value, error) {
	if len(args) == 2 {
		return atan2(args)
	}
	return atan1(args)
}

func wantVectors(args []value, n int) error {
	if len(args) != n {
		return fmt.Errorf("want %d arguments, got %d", n, len(args))
	}
	for _, a := range args {
		if a.k != args[0].k || !(a.k == kindFloat || a.k.isVec()) {
			return typeErrorf("invalid arguments %s and %s", args[0].k, a.k)
		}
	}
	return nil
}

func builtinLength(args []value) (value, error) {
	if err := wantVectors(args, 1); err != nil {
		return value{}, err
	}
	return floatValue(math32.Sqrt(dotValues(args[0], args[0]))), nil
}

func builtinDistance(args []value) (value, error) {
	if err := wantVectors(args, 2); err != nil {
		return value{}, err
	}
	d, _ := componentwise(args[0], args[1], sub)
	return floatValue(math32.Sqrt(dotValues(d, d))), nil
}

func builtinDot(args []value) (value, error) {
	if err := wantVectors(args, 2); err != nil {
		return value{}, err
	}
	return floatValue(dotValues(args[0], args[1])), nil
}

func builtinCross(args []value) (value, error) {
	if err := wantVectors(args, 2); err != nil {
		return value{}, err
	} else if args[0].k != kindVec3 {
		return value{}, typeErrorf("cross of %s", args[0].k)
	}
	a, b := args[0].v, args[1].v
	r := value{k: kindVec3}
	r.v[0] = a[1]*b[2] - a[2]*b[1]
	r.v[1] = a[2]*b[0] - a[0]*b[2]
	r.v[2] = a[0]*b[1] - a[1]*b[0]
	return r, nil
}

func builtinNormalize(args []value) (value, error) {
	if err := wantVectors(args, 1); err != nil {
		return value{}, err
	}
	l := math32.Sqrt(dotValues(args[0], args[0]))
	return mapComps(args[0], func(x float32) float32 { return x / l }), nil
}
