package gleval

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/soypat/csgsdf/glbuild"
	"github.com/soypat/geometry/ms3"
)

// ShaderSDF3 evaluates GLSL source on the CPU with a small interpreter.
// It supports the language subset emitted by the glbuild package, which
// makes it suitable for checking generated shaders against the CPU
// evaluators without a GPU.
type ShaderSDF3 struct {
	mu    sync.Mutex
	in    *interpreter
	entry *funcDecl
	bb    ms3.Box
	args  [1]value
}

var _ SDF3 = (*ShaderSDF3)(nil)

// NewShaderSDF3 parses src and prepares the function named entry for
// evaluation. entry must take a single vec3 argument and return a float.
// Syntax and type errors are reported with their line and column.
func NewShaderSDF3(src, entry string, bb ms3.Box) (*ShaderSDF3, error) {
	prog, err := parseGLSL(src)
	if err != nil {
		return nil, err
	}
	fn, ok := prog.funcs[entry]
	if !ok {
		return nil, fmt.Errorf("entry point %q not defined", entry)
	} else if fn.ret != kindFloat || len(fn.params) != 1 || fn.params[0].k != kindVec3 {
		return nil, fmt.Errorf("entry point %q must have signature float %s(vec3)", entry, entry)
	}
	in, err := newInterpreter(prog)
	if err != nil {
		return nil, err
	}
	return &ShaderSDF3{in: in, entry: fn, bb: bb}, nil
}

// NewMapSDF3 generates the map program of s and interprets it with an
// identity world transform.
func NewMapSDF3(s glbuild.Shader3D, bb ms3.Box) (*ShaderSDF3, error) {
	if s == nil {
		return nil, errors.New("nil shader")
	}
	var buf bytes.Buffer
	_, err := glbuild.NewDefaultProgrammer().WriteMap(&buf, s)
	if err != nil {
		return nil, err
	}
	sdf, err := NewShaderSDF3(buf.String(), glbuild.MapFunctionName, bb)
	if err != nil {
		return nil, err
	}
	err = sdf.SetUniformMat4(glbuild.WorldTransformUniform, identityMat4)
	if err != nil {
		return nil, err
	}
	return sdf, nil
}

var identityMat4 = [16]float32{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 1, 0,
	0, 0, 0, 1,
}

// SetUniformMat4 sets a mat4 uniform. m is in column-major order as
// expected by glUniformMatrix4fv without transposition.
func (s *ShaderSDF3) SetUniformMat4(name string, m [16]float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.in.setUniform(name, value{k: kindMat4, v: m})
}

// SetUniformFloat sets a float uniform.
func (s *ShaderSDF3) SetUniformFloat(name string, f float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.in.setUniform(name, floatValue(f))
}

// SetUniformVec3 sets a vec3 uniform.
func (s *ShaderSDF3) SetUniformVec3(name string, v ms3.Vec) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.in.setUniform(name, vec3Value(v))
}

func vec3Value(v ms3.Vec) value {
	return value{k: kindVec3, v: [16]float32{v.X, v.Y, v.Z}}
}

// Evaluate implements [SDF3]. Evaluation stops at the first runtime error.
func (s *ShaderSDF3) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	if len(pos) != len(dist) {
		return errMismatchBufferLength
	} else if len(pos) == 0 {
		return errEmptyBuffers
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range pos {
		d, err := s.eval(p)
		if err != nil {
			return fmt.Errorf("evaluating %v: %w", p, err)
		}
		dist[i] = d
	}
	return nil
}

// EvalPoint evaluates the entry point at a single position.
func (s *ShaderSDF3) EvalPoint(p ms3.Vec) (float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eval(p)
}

func (s *ShaderSDF3) eval(p ms3.Vec) (float32, error) {
	s.args[0] = vec3Value(p)
	ret, err := s.in.call(s.entry, s.args[:], s.entry.pos)
	if err != nil {
		return 0, err
	}
	return ret.v[0], nil
}

// Bounds implements [SDF3].
func (s *ShaderSDF3) Bounds() ms3.Box { return s.bb }
