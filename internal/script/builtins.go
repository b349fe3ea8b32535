package script

import (
	"fmt"
	"io"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/soypat/csgsdf"
	"github.com/soypat/csgsdf/forge/fasteners"
	"github.com/soypat/geometry/ms3"
)

// sexpShape passes a shape between builtins.
type sexpShape struct {
	s csgsdf.Shape
}

func (s *sexpShape) SexpString(ps *zygo.PrintState) string {
	if _, ok := s.s.(*csgsdf.Boolean); ok {
		return "(Boolean)"
	}
	return "(Primitive)"
}
func (s *sexpShape) Type() *zygo.RegisteredType { return nil }

type sexpVector struct {
	v ms3.Vec
}

func (v *sexpVector) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(Vector %g %g %g)", v.v.X, v.v.Y, v.v.Z)
}
func (v *sexpVector) Type() *zygo.RegisteredType { return nil }

func describe(s zygo.Sexp) string {
	switch s.(type) {
	case *sexpShape:
		return "shape"
	case *sexpVector:
		return "vector"
	case *zygo.SexpInt, *zygo.SexpFloat:
		return "number"
	}
	if s == nil || s == zygo.SexpNull {
		return "nil"
	}
	return fmt.Sprintf("%T (%s)", s, s.SexpString(nil))
}

func toFloat32(s zygo.Sexp) (float32, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float32(v.Val), nil
	case *zygo.SexpFloat:
		return float32(v.Val), nil
	}
	return 0, fmt.Errorf("expected number, got %s", describe(s))
}

func toInt(s zygo.Sexp) (int, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return int(v.Val), nil
	case *zygo.SexpFloat:
		if v.Val == float64(int(v.Val)) {
			return int(v.Val), nil
		}
	}
	return 0, fmt.Errorf("expected integer, got %s", describe(s))
}

func toVector(s zygo.Sexp) (ms3.Vec, error) {
	if v, ok := s.(*sexpVector); ok {
		return v.v, nil
	}
	return ms3.Vec{}, fmt.Errorf("expected vector, got %s", describe(s))
}

func toShape(s zygo.Sexp) (csgsdf.Shape, error) {
	if sh, ok := s.(*sexpShape); ok {
		return sh.s, nil
	}
	return nil, fmt.Errorf("expected shape, got %s", describe(s))
}

func toBoolean(s zygo.Sexp) (*csgsdf.Boolean, error) {
	if sh, ok := s.(*sexpShape); ok {
		if b, ok := sh.s.(*csgsdf.Boolean); ok {
			return b, nil
		}
	}
	return nil, fmt.Errorf("expected boolean (Union, Intersection or Difference), got %s", describe(s))
}

func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %s", describe(s))
}

// floats converts all arguments to numbers, requiring exactly n of them.
func floats(args []zygo.Sexp, n int) ([]float32, error) {
	if len(args) != n {
		return nil, fmt.Errorf("expected %d arguments, got %d", n, len(args))
	}
	f := make([]float32, n)
	for i, arg := range args {
		var err error
		f[i], err = toFloat32(arg)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
	}
	return f, nil
}

// vectorArg accepts either a single Vector or three numbers starting at args[0].
func vectorArg(args []zygo.Sexp) (ms3.Vec, error) {
	switch len(args) {
	case 1:
		return toVector(args[0])
	case 3:
		f, err := floats(args, 3)
		if err != nil {
			return ms3.Vec{}, err
		}
		return ms3.Vec{X: f[0], Y: f[1], Z: f[2]}, nil
	}
	return ms3.Vec{}, fmt.Errorf("expected a vector or 3 numbers, got %d arguments", len(args))
}

type builtin func(args []zygo.Sexp) (zygo.Sexp, error)

func shapeResult(s csgsdf.Shape, err error) (zygo.Sexp, error) {
	if err != nil {
		return zygo.SexpNull, err
	}
	return &sexpShape{s: s}, nil
}

func booleanResult(b *csgsdf.Boolean, err error) (zygo.Sexp, error) {
	if err != nil {
		return zygo.SexpNull, err
	}
	return &sexpShape{s: b}, nil
}

func shapeList(args []zygo.Sexp) ([]csgsdf.Shape, error) {
	if len(args) == 1 {
		if _, isShape := args[0].(*sexpShape); !isShape {
			var err error
			args, err = sexpListToSlice(args[0])
			if err != nil {
				return nil, err
			}
		}
	}
	shapes := make([]csgsdf.Shape, len(args))
	for i, arg := range args {
		var err error
		shapes[i], err = toShape(arg)
		if err != nil {
			return nil, fmt.Errorf("child %d: %w", i+1, err)
		}
	}
	return shapes, nil
}

// minFunctionBuiltin builds a builtin that sets a smoothing kernel with parameter k on a boolean.
func minFunctionBuiltin(newMin func(k float32) (csgsdf.MinFunction, error)) builtin {
	return func(args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("expected a boolean and k, got %d arguments", len(args))
		}
		b, err := toBoolean(args[0])
		if err != nil {
			return zygo.SexpNull, err
		}
		k, err := toFloat32(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("k: %w", err)
		}
		mf, err := newMin(k)
		if err != nil {
			return zygo.SexpNull, err
		}
		return booleanResult(csgsdf.SetMinFunction(b, mf))
	}
}

var builtins = map[string]builtin{
	"Vector": func(args []zygo.Sexp) (zygo.Sexp, error) {
		f, err := floats(args, 3)
		if err != nil {
			return zygo.SexpNull, err
		}
		return &sexpVector{v: ms3.Vec{X: f[0], Y: f[1], Z: f[2]}}, nil
	},

	// Primitives.
	"Sphere": func(args []zygo.Sexp) (zygo.Sexp, error) {
		f, err := floats(args, 1)
		if err != nil {
			return zygo.SexpNull, err
		}
		return shapeResult(csgsdf.NewSphere(f[0]))
	},
	"Plane": func(args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("expected normal and offset, got %d arguments", len(args))
		}
		n, err := toVector(args[0])
		if err != nil {
			return zygo.SexpNull, err
		}
		d, err := toFloat32(args[1])
		if err != nil {
			return zygo.SexpNull, err
		}
		return shapeResult(csgsdf.NewPlane(n, d))
	},
	"Box": func(args []zygo.Sexp) (zygo.Sexp, error) {
		f, err := floats(args, 3)
		if err != nil {
			return zygo.SexpNull, err
		}
		return shapeResult(csgsdf.NewBox(ms3.Vec{X: f[0], Y: f[1], Z: f[2]}))
	},
	"RoundBox": func(args []zygo.Sexp) (zygo.Sexp, error) {
		f, err := floats(args, 4)
		if err != nil {
			return zygo.SexpNull, err
		}
		return shapeResult(csgsdf.NewRoundBox(ms3.Vec{X: f[0], Y: f[1], Z: f[2]}, f[3]))
	},
	"Cylinder": func(args []zygo.Sexp) (zygo.Sexp, error) {
		f, err := floats(args, 1)
		if err != nil {
			return zygo.SexpNull, err
		}
		return shapeResult(csgsdf.NewCylinder(f[0]))
	},
	"CappedCylinder": func(args []zygo.Sexp) (zygo.Sexp, error) {
		r, a, b, err := radiusAndSegment(args)
		if err != nil {
			return zygo.SexpNull, err
		}
		return shapeResult(csgsdf.NewCappedCylinder(r, a, b))
	},
	"RoundedCylinder": func(args []zygo.Sexp) (zygo.Sexp, error) {
		f, err := floats(args, 3)
		if err != nil {
			return zygo.SexpNull, err
		}
		return shapeResult(csgsdf.NewRoundedCylinder(f[0], f[1], f[2]))
	},
	"Capsule": func(args []zygo.Sexp) (zygo.Sexp, error) {
		r, a, b, err := radiusAndSegment(args)
		if err != nil {
			return zygo.SexpNull, err
		}
		return shapeResult(csgsdf.NewCapsule(r, a, b))
	},
	"Torus": func(args []zygo.Sexp) (zygo.Sexp, error) {
		f, err := floats(args, 2)
		if err != nil {
			return zygo.SexpNull, err
		}
		return shapeResult(csgsdf.NewTorus(f[0], f[1]))
	},
	"CappedTorus": func(args []zygo.Sexp) (zygo.Sexp, error) {
		f, err := floats(args, 3)
		if err != nil {
			return zygo.SexpNull, err
		}
		return shapeResult(csgsdf.NewCappedTorus(f[0], f[1], f[2]))
	},

	// Fasteners.
	"HexHead": func(args []zygo.Sexp) (zygo.Sexp, error) {
		var round fasteners.Rounding
		if len(args) == 3 {
			str, ok := args[2].(*zygo.SexpStr)
			if !ok {
				return zygo.SexpNull, fmt.Errorf("rounding must be a string, got %s", describe(args[2]))
			}
			round = fasteners.Rounding(str.S)
			args = args[:2]
		}
		f, err := floats(args, 2)
		if err != nil {
			return zygo.SexpNull, err
		}
		return shapeResult(fasteners.HexHead(f[0], f[1], round))
	},
	"Nut": func(args []zygo.Sexp) (zygo.Sexp, error) {
		f, err := floats(args, 3)
		if err != nil {
			return zygo.SexpNull, err
		}
		return shapeResult(fasteners.Nut(f[0], f[1], f[2]))
	},
	"Washer": func(args []zygo.Sexp) (zygo.Sexp, error) {
		f, err := floats(args, 3)
		if err != nil {
			return zygo.SexpNull, err
		}
		return shapeResult(fasteners.Washer(f[0], f[1], f[2]))
	},

	// Booleans.
	"Union": func(args []zygo.Sexp) (zygo.Sexp, error) {
		shapes, err := shapeList(args)
		if err != nil {
			return zygo.SexpNull, err
		}
		return booleanResult(csgsdf.Union(shapes...))
	},
	"Intersection": func(args []zygo.Sexp) (zygo.Sexp, error) {
		shapes, err := shapeList(args)
		if err != nil {
			return zygo.SexpNull, err
		}
		return booleanResult(csgsdf.Intersection(shapes...))
	},
	"Difference": func(args []zygo.Sexp) (zygo.Sexp, error) {
		shapes, err := shapeList(args)
		if err != nil {
			return zygo.SexpNull, err
		}
		return booleanResult(csgsdf.Difference(shapes...))
	},
	"smooth":             minFunctionBuiltin(csgsdf.NewMinPolynomial),
	"smooth_cubic":       minFunctionBuiltin(csgsdf.NewMinCubicPolynomial),
	"smooth_root":        minFunctionBuiltin(csgsdf.NewMinRoot),
	"smooth_exponential": minFunctionBuiltin(csgsdf.NewMinExponential),
	"chamfer":            minFunctionBuiltin(csgsdf.NewMinChamfer),
	"stairs": func(args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("expected a boolean, k and n, got %d arguments", len(args))
		}
		n, err := toInt(args[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("n: %w", err)
		}
		return minFunctionBuiltin(func(k float32) (csgsdf.MinFunction, error) {
			return csgsdf.NewMinStairs(k, n)
		})(args[:2])
	},

	// Transforms and domain operators.
	"translate": func(args []zygo.Sexp) (zygo.Sexp, error) {
		s, rest, err := shapeAndRest(args)
		if err != nil {
			return zygo.SexpNull, err
		}
		v, err := vectorArg(rest)
		if err != nil {
			return zygo.SexpNull, err
		}
		return &sexpShape{s: csgsdf.Translate(s, v)}, nil
	},
	"rotate_euler": func(args []zygo.Sexp) (zygo.Sexp, error) {
		s, rest, err := shapeAndRest(args)
		if err != nil {
			return zygo.SexpNull, err
		}
		f, err := floats(rest, 3)
		if err != nil {
			return zygo.SexpNull, err
		}
		return &sexpShape{s: csgsdf.Rotate(s, f[0], f[1], f[2])}, nil
	},
	"scale": func(args []zygo.Sexp) (zygo.Sexp, error) {
		s, rest, err := shapeAndRest(args)
		if err != nil {
			return zygo.SexpNull, err
		}
		var v ms3.Vec
		if len(rest) == 1 {
			if f, ferr := toFloat32(rest[0]); ferr == nil {
				v = ms3.Vec{X: f, Y: f, Z: f}
			} else if v, err = toVector(rest[0]); err != nil {
				return zygo.SexpNull, err
			}
		} else if v, err = vectorArg(rest); err != nil {
			return zygo.SexpNull, err
		}
		return shapeResult(csgsdf.Scale(s, v))
	},
	"repeat": func(args []zygo.Sexp) (zygo.Sexp, error) {
		s, rest, err := shapeAndRest(args)
		if err != nil {
			return zygo.SexpNull, err
		}
		if len(rest) != 3 {
			return zygo.SexpNull, fmt.Errorf("expected shape, cell, min and max vectors, got %d arguments", len(args))
		}
		var v [3]ms3.Vec
		for i := range v {
			v[i], err = toVector(rest[i])
			if err != nil {
				return zygo.SexpNull, err
			}
		}
		lo, err := intVec(v[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("min: %w", err)
		}
		hi, err := intVec(v[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("max: %w", err)
		}
		return shapeResult(csgsdf.Repeat(s, v[0], lo, hi))
	},
	"twist": func(args []zygo.Sexp) (zygo.Sexp, error) {
		s, rest, err := shapeAndRest(args)
		if err != nil {
			return zygo.SexpNull, err
		}
		f, err := floats(rest, 1)
		if err != nil {
			return zygo.SexpNull, err
		}
		return shapeResult(csgsdf.Twist(s, f[0]))
	},
	"bend": func(args []zygo.Sexp) (zygo.Sexp, error) {
		s, rest, err := shapeAndRest(args)
		if err != nil {
			return zygo.SexpNull, err
		}
		f, err := floats(rest, 1)
		if err != nil {
			return zygo.SexpNull, err
		}
		return shapeResult(csgsdf.Bend(s, f[0]))
	},
}

func shapeAndRest(args []zygo.Sexp) (csgsdf.Shape, []zygo.Sexp, error) {
	if len(args) == 0 {
		return nil, nil, fmt.Errorf("expected a shape as first argument")
	}
	s, err := toShape(args[0])
	return s, args[1:], err
}

func radiusAndSegment(args []zygo.Sexp) (r float32, a, b ms3.Vec, err error) {
	if len(args) != 3 {
		return 0, a, b, fmt.Errorf("expected radius and two end vectors, got %d arguments", len(args))
	}
	r, err = toFloat32(args[0])
	if err != nil {
		return 0, a, b, err
	}
	a, err = toVector(args[1])
	if err != nil {
		return 0, a, b, err
	}
	b, err = toVector(args[2])
	return r, a, b, err
}

func intVec(v ms3.Vec) ([3]int, error) {
	r := [3]int{int(v.X), int(v.Y), int(v.Z)}
	if float32(r[0]) != v.X || float32(r[1]) != v.Y || float32(r[2]) != v.Z {
		return r, fmt.Errorf("repetition bounds must be integers, got %v", v)
	}
	return r, nil
}

// sandboxFunctions returns the zygomys sandbox functions plus the shape
// builtins, with print, println and printf writing to sink. zygomys calls
// entries of this table before any scope lookup, so they must all be passed
// when the environment is created.
func sandboxFunctions(sink io.Writer) map[string]zygo.ZlispUserFunction {
	funcs := zygo.SandboxSafeFunctions()
	for name, fn := range builtins {
		funcs[name] = func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			res, err := fn(args)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
			}
			return res, nil
		}
	}
	printer := func(newline bool) zygo.ZlispUserFunction {
		return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			parts := make([]string, len(args))
			for i, arg := range args {
				if str, ok := arg.(*zygo.SexpStr); ok {
					parts[i] = str.S
				} else {
					parts[i] = arg.SexpString(nil)
				}
			}
			text := strings.Join(parts, " ")
			if newline {
				text += "\n"
			}
			_, err := io.WriteString(sink, text)
			return zygo.SexpNull, err
		}
	}
	funcs["print"] = printer(false)
	funcs["println"] = printer(true)
	funcs["printf"] = func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		res, err := zygo.PrintFunction(env, "sprintf", args)
		if err != nil {
			return zygo.SexpNull, err
		}
		str, ok := res.(*zygo.SexpStr)
		if !ok {
			return zygo.SexpNull, fmt.Errorf("printf: unexpected %s", describe(res))
		}
		_, err = io.WriteString(sink, str.S)
		return zygo.SexpNull, err
	}
	return funcs
}
