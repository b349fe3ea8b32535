package glbuild

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/soypat/geometry/ms3"
)

// VersionStr is the default version directive written at the top of renderer programs.
const VersionStr = "#version 330 core\n"

const computeVersionStr = "#version 430\n"

// WorldTransformUniform is the name of the mat4 uniform applied to the
// evaluation point at the start of the map entry point.
const WorldTransformUniform = "iWorldTransform"

// MapFunctionName is the name of the generated entry point.
const MapFunctionName = "map"

// Shader3D can create SDF shader source code for an arbitrary 3D shape.
type Shader3D interface {
	// AppendShaderExpr appends a GLSL float expression to b that evaluates the
	// distance from the point expression p to the shape. Helper functions the
	// expression calls are added to code. Children are compiled before the
	// receiver adds its own helper functions.
	AppendShaderExpr(b []byte, p string, code *SharedCode) []byte
	// ForEachChild calls fn on the Shader3D's direct children in order.
	// Unary operations have one child i.e: Translate, Rotate, Scale.
	// Booleans have two or more children.
	ForEachChild(fn func(child Shader3D) error) error
}

// ShaderFunction is a named GLSL function definition with a fixed name,
// usually part of a helper library. See [MakeShaderFunction].
type ShaderFunction struct {
	name   string
	source string
}

// MakeShaderFunction parses the function name out of a GLSL function definition.
func MakeShaderFunction(shaderDef []byte) (sf ShaderFunction, err error) {
	shaderDef = bytes.TrimSpace(shaderDef)
	fnNameEnd := bytes.IndexByte(shaderDef, '(')
	fnNameStart := bytes.IndexByte(shaderDef, ' ')
	if fnNameEnd < 0 || fnNameStart < 0 || fnNameStart > fnNameEnd {
		return ShaderFunction{}, errors.New("unable to parse function name")
	}
	name := bytes.TrimSpace(shaderDef[fnNameStart:fnNameEnd])
	if len(name) == 0 {
		return ShaderFunction{}, errors.New("empty function name")
	}
	sf = ShaderFunction{
		name:   string(name),
		source: string(shaderDef),
	}
	return sf, nil
}

// Name returns the GLSL identifier of the function.
func (sf ShaderFunction) Name() string { return sf.name }

// Source returns the full function definition.
func (sf ShaderFunction) Source() string { return sf.source }

// SharedCode accumulates helper function definitions during a single compilation.
// Blocks are kept in emission order, which is the depth-first order in which
// nodes are compiled, children before parents. The zero value is ready to use.
//
// Generated functions get positional names: the prefix followed by the number
// of blocks emitted before them. Two generated functions whose text differs
// only by name share one block and one name.
type SharedCode struct {
	blocks  []string
	byKey   map[string]string // generated text keyed with bare prefix -> function name.
	statics map[string]string // static function name -> source.
	scratch []byte
}

func (sc *SharedCode) init() {
	if sc.byKey == nil {
		sc.byKey = make(map[string]string)
		sc.statics = make(map[string]string)
	}
}

// Len returns the number of blocks emitted so far.
func (sc *SharedCode) Len() int { return len(sc.blocks) }

// Blocks returns the emitted helper function blocks in emission order.
// The returned slice must not be modified.
func (sc *SharedCode) Blocks() []string { return sc.blocks }

// Reset discards all blocks while keeping allocated memory.
func (sc *SharedCode) Reset() {
	sc.blocks = sc.blocks[:0]
	clear(sc.byKey)
	clear(sc.statics)
}

// AddStatic adds a fixed-name library function the first time it is seen and
// returns its name. It panics if a different function with the same name was added.
func (sc *SharedCode) AddStatic(fn ShaderFunction) string {
	sc.init()
	if fn.name == "" {
		panic("glbuild: empty shader function")
	}
	src, ok := sc.statics[fn.name]
	if ok {
		if src != fn.source {
			panic("glbuild: conflicting definitions for shader function " + fn.name)
		}
		return fn.name
	}
	sc.statics[fn.name] = fn.source
	sc.blocks = append(sc.blocks, fn.source)
	return fn.name
}

// AddFunction adds a generated function and returns the name it was given.
// gen must append the complete function definition using name as the
// function's identifier. gen must not modify sc.
func (sc *SharedCode) AddFunction(prefix string, gen func(b []byte, name string) []byte) string {
	sc.init()
	sc.scratch = gen(sc.scratch[:0], prefix)
	name, ok := sc.byKey[string(sc.scratch)]
	if ok {
		return name
	}
	key := string(sc.scratch)
	name = prefix + strconv.Itoa(len(sc.blocks))
	sc.scratch = gen(sc.scratch[:0], name)
	sc.blocks = append(sc.blocks, string(sc.scratch))
	sc.byKey[key] = name
	return name
}

//go:embed renderer.glsl
var defaultTemplate []byte

// Programmer implements final shader assembly for Shader3D trees.
type Programmer struct {
	header   []byte
	template []byte
	scratch  []byte
	// Invocations size in X (local group size) to give each compute work group.
	invocX int
}

// NewDefaultProgrammer returns a Programmer with the default version header,
// the embedded raymarching template and a compute work group size of 32.
func NewDefaultProgrammer() *Programmer {
	return &Programmer{
		header:   []byte(VersionStr),
		template: defaultTemplate,
		scratch:  make([]byte, 0, 1024),
		invocX:   32,
	}
}

// DefaultTemplate returns a copy of the embedded raymarching template.
func DefaultTemplate() []byte {
	return bytes.Clone(defaultTemplate)
}

// SetTemplate replaces the raymarching template written after the map entry point.
// The template must call map(vec3) and may use the iWorldTransform uniform.
func (p *Programmer) SetTemplate(tmpl []byte) {
	p.template = tmpl
}

// SetHeader replaces the text written at the very start of renderer programs.
func (p *Programmer) SetHeader(header []byte) {
	p.header = header
}

// SetComputeInvocations sets the work group local-sizes. x*y*z must be less than maximum number of invocations.
func (p *Programmer) SetComputeInvocations(x, y, z int) {
	if y != 1 || z != 1 {
		panic("unsupported")
	} else if x < 1 {
		panic("zero or negative X invocation size")
	}
	p.invocX = x
}

// ComputeInvocations returns the worker group invocation size in x y and z.
func (p *Programmer) ComputeInvocations() (int, int, int) {
	return p.invocX, 1, 1
}

// Compile walks the tree depth first and returns the root expression in
// terms of the point variable "p" along with the helper blocks it references.
func (p *Programmer) Compile(s Shader3D) (expr string, helpers []string) {
	var code SharedCode
	p.scratch = s.AppendShaderExpr(p.scratch[:0], "p", &code)
	return string(p.scratch), code.Blocks()
}

// Compile is shorthand for compiling with a default Programmer.
func Compile(s Shader3D) (expr string, helpers []string) {
	return NewDefaultProgrammer().Compile(s)
}

// WriteMap writes the helper functions, the world transform uniform and the
// map entry point. It does not write a version header.
func (p *Programmer) WriteMap(w io.Writer, s Shader3D) (int, error) {
	expr, helpers := p.Compile(s)
	var buf bytes.Buffer
	for _, h := range helpers {
		buf.WriteString(h)
		buf.WriteString("\n\n")
	}
	fmt.Fprintf(&buf, `uniform mat4 %s;

float %s(in vec3 p) {
    p = (vec4(p, 1.0) * %s).xyz;
    return %s;
}
`, WorldTransformUniform, MapFunctionName, WorldTransformUniform, expr)
	return w.Write(buf.Bytes())
}

// WriteRenderer writes the complete raymarching program: header, map entry
// point and template.
func (p *Programmer) WriteRenderer(w io.Writer, s Shader3D) (n int, err error) {
	n, err = w.Write(p.header)
	if err != nil {
		return n, err
	}
	ngot, err := p.WriteMap(w, s)
	n += ngot
	if err != nil {
		return n, err
	}
	ngot, err = w.Write([]byte{'\n'})
	n += ngot
	if err != nil {
		return n, err
	}
	ngot, err = w.Write(p.template)
	n += ngot
	return n, err
}

// WriteComputeSDF3 writes a compute program that evaluates the tree over a
// buffer of tightly packed positions (binding 0) and stores distances in
// binding 1.
func (p *Programmer) WriteComputeSDF3(w io.Writer, s Shader3D) (int, error) {
	expr, helpers := p.Compile(s)
	var buf bytes.Buffer
	buf.WriteString(computeVersionStr)
	for _, h := range helpers {
		buf.WriteString(h)
		buf.WriteString("\n\n")
	}
	fmt.Fprintf(&buf, `float sdf(vec3 p) {
    return %s;
}

layout(local_size_x = %d, local_size_y = 1, local_size_z = 1) in;

// Input: 3D positions at which to evaluate SDF, packed as x,y,z floats.
layout(std430, binding = 0) buffer PositionsBuffer {
    float vbo_positions[];
};

// Output: Result of SDF evaluation are the distances. Maps to position buffer.
layout(std430, binding = 1) buffer DistancesBuffer {
    float vbo_distances[];
};

void main() {
    int idx = int(gl_GlobalInvocationID.x);
    if (idx >= vbo_distances.length()) {
        return;
    }
    vec3 p = vec3(vbo_positions[3*idx], vbo_positions[3*idx+1], vbo_positions[3*idx+2]);
    vbo_distances[idx] = sdf(p);
}
`, expr, p.invocX)
	return w.Write(buf.Bytes())
}

// ForEachNodeDFS visits every node of the tree in depth-first pre-order.
// depth is 0 for the root.
func ForEachNodeDFS(root Shader3D, fn func(s Shader3D, depth int) error) error {
	return forEachNodeDFS(root, 0, fn)
}

func forEachNodeDFS(s Shader3D, depth int, fn func(s Shader3D, depth int) error) error {
	err := fn(s, depth)
	if err != nil {
		return err
	}
	return s.ForEachChild(func(child Shader3D) error {
		return forEachNodeDFS(child, depth+1, fn)
	})
}

// CountNodes returns the amount of nodes in the tree, root included.
func CountNodes(root Shader3D) (n int) {
	ForEachNodeDFS(root, func(Shader3D, int) error {
		n++
		return nil
	})
	return n
}

// Depth returns the number of levels in the tree. A single leaf has depth 1.
func Depth(root Shader3D) (maxDepth int) {
	ForEachNodeDFS(root, func(_ Shader3D, depth int) error {
		maxDepth = max(maxDepth, depth+1)
		return nil
	})
	return maxDepth
}

// AppendFloat appends the shortest GLSL float literal that parses back to v exactly.
func AppendFloat(b []byte, v float32) []byte {
	start := len(b)
	b = strconv.AppendFloat(b, float64(v), 'g', -1, 32)
	if bytes.IndexAny(b[start:], ".eEnN") < 0 {
		b = append(b, ".0"...)
	}
	return b
}

// AppendFloats appends the values as float literals separated by sep.
func AppendFloats(b []byte, sep string, s ...float32) []byte {
	for i, v := range s {
		if i > 0 {
			b = append(b, sep...)
		}
		b = AppendFloat(b, v)
	}
	return b
}

// AppendVec3 appends a vec3 constructor literal.
func AppendVec3(b []byte, v ms3.Vec) []byte {
	b = append(b, "vec3("...)
	b = AppendFloats(b, ", ", v.X, v.Y, v.Z)
	return append(b, ')')
}

// AppendMat3 appends a mat3 constructor literal equal to m. GLSL matrix
// constructors take their arguments column by column.
func AppendMat3(b []byte, m ms3.Mat3) []byte {
	return AppendMat3Array(b, m.Array())
}

// AppendMat3Array appends a mat3 constructor literal for a row-major array.
func AppendMat3Array(b []byte, rowMajor [9]float32) []byte {
	return appendMat(b, "mat3", 3, rowMajor[:])
}

// appendMat expects arr in row-major order.
func appendMat(b []byte, typename string, dim int, arr []float32) []byte {
	b = append(b, typename...)
	b = append(b, '(')
	for col := 0; col < dim; col++ {
		for row := 0; row < dim; row++ {
			if col != 0 || row != 0 {
				b = append(b, ", "...)
			}
			b = AppendFloat(b, arr[row*dim+col]) // Column major access, as per OpenGL standard.
		}
	}
	return append(b, ')')
}

// FormatShader indents function bodies of a shader for readability.
// It is meant for debugging output and is not used during compilation.
func FormatShader(source string) string {
	var sb strings.Builder
	depth := 0
	for _, line := range strings.Split(source, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "}") && depth > 0 {
			depth--
		}
		if line != "" {
			sb.WriteString(strings.Repeat("    ", depth))
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
		depth += strings.Count(line, "{") - strings.Count(line, "}")
		if strings.HasPrefix(line, "}") {
			depth++
		}
		depth = max(depth, 0)
	}
	return sb.String()
}
