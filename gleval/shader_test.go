package gleval_test

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/chewxy/math32"
	"github.com/soypat/csgsdf"
	"github.com/soypat/csgsdf/gleval"
	"github.com/soypat/geometry/ms3"
)

var unitBox = ms3.Box{Min: ms3.Vec{X: -1, Y: -1, Z: -1}, Max: ms3.Vec{X: 1, Y: 1, Z: 1}}

func TestShaderPrograms(t *testing.T) {
	for _, test := range []struct {
		name string
		src  string
		p    ms3.Vec
		want float32
	}{
		{
			name: "sphere",
			src:  "float f(vec3 p) { return length(p) - 1.0; }",
			p:    ms3.Vec{X: 3, Y: 4},
			want: 4,
		},
		{
			name: "multiple declarators",
			src: `float f(in vec3 p) {
    vec3 a = vec3(1.0), b = vec3(2.0, 3.0, 4.0);
    return dot(a, b);
}`,
			want: 9,
		},
		{
			name: "swizzle assignment",
			src: `float f(vec3 p) {
    p.x = abs(p.x);
    p.yz = p.zy;
    return p.x*100.0 + p.y*10.0 + p.z;
}`,
			p:    ms3.Vec{X: -1, Y: 2, Z: 3},
			want: 132,
		},
		{
			name: "compound assignment",
			src: `float f(vec3 p) {
    float a = 1.0;
    a += 2.0;
    a *= 3.0;
    a -= 1.0;
    a /= 2.0;
    return a;
}`,
			want: 4,
		},
		{
			name: "if else and ternary",
			src: `float f(vec3 p) {
    if (p.x > 0.0 && p.y > 0.0) {
        return 1.0;
    } else if (p.x < 0.0 || p.y < 0.0) {
        return p.z > 0.0 ? 2.0 : 3.0;
    }
    return 4.0;
}`,
			p:    ms3.Vec{X: -1, Y: 1, Z: -1},
			want: 3,
		},
		{
			name: "helper call",
			src: `float sq(float x) { return x*x; }
float f(vec3 p) { return sq(p.x) + sq(p.y); }`,
			p:    ms3.Vec{X: 2, Y: 3},
			want: 13,
		},
		{
			name: "mat2 is column major",
			src: `float f(vec3 p) {
    mat2 m = mat2(1.0, 2.0, 3.0, 4.0);
    vec2 r = m * vec2(1.0, 0.0);
    return r.y;
}`,
			want: 2,
		},
		{
			name: "world transform",
			src: `uniform mat4 T;
float f(vec3 p) {
    p = (vec4(p, 1.0) * T).xyz;
    return p.x;
}`,
			p:    ms3.Vec{X: 5},
			want: 0, // Uniforms are zero until set.
		},
		{
			name: "globals and comments",
			src: `#version 330 core
const float R = 2.0; // radius
/* block comment */
float f(vec3 p) { return R * 1e+01; }`,
			want: 20,
		},
		{
			name: "isinf and exp2",
			src: `float f(vec3 p) {
    float res = exp2(200.0);
    if (res == 0.0 || isinf(res)) {
        return -1.0;
    }
    return res;
}`,
			want: -1,
		},
		{
			name: "mod and clamp",
			src:  "float f(vec3 p) { return mod(-1.0, 3.0) + clamp(5.0, 0.0, 1.0); }",
			want: 3,
		},
		{
			name: "vector clamp bounds",
			src: `float f(vec3 p) {
    vec3 c = clamp(p, vec3(-1.0, -2.0, -3.0), vec3(1.0, 2.0, 3.0));
    return c.x + c.y + c.z;
}`,
			p:    ms3.Vec{X: 10, Y: -10, Z: 2},
			want: 1 - 2 + 2,
		},
		{
			name: "round half away from zero",
			src:  "float f(vec3 p) { return round(p.x); }",
			p:    ms3.Vec{X: -2.5},
			want: -3,
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			sdf, err := gleval.NewShaderSDF3(test.src, "f", unitBox)
			if err != nil {
				t.Fatal(err)
			}
			got, err := sdf.EvalPoint(test.p)
			if err != nil {
				t.Fatal(err)
			}
			if got != test.want {
				t.Errorf("got %g, want %g", got, test.want)
			}
		})
	}
}

func TestShaderUniform(t *testing.T) {
	const src = `uniform mat4 T;
float f(vec3 p) {
    p = (vec4(p, 1.0) * T).xyz;
    return p.y;
}`
	sdf, err := gleval.NewShaderSDF3(src, "f", unitBox)
	if err != nil {
		t.Fatal(err)
	}
	// Row vector times matrix picks columns: the second column returns x+10.
	err = sdf.SetUniformMat4("T", [16]float32{
		1, 0, 0, 0,
		1, 0, 0, 10,
		0, 0, 1, 0,
		0, 0, 0, 1,
	})
	if err != nil {
		t.Fatal(err)
	}
	got, err := sdf.EvalPoint(ms3.Vec{X: 2})
	if err != nil {
		t.Fatal(err)
	}
	if got != 12 {
		t.Errorf("got %g, want 12", got)
	}
	if err := sdf.SetUniformMat4("missing", [16]float32{}); err == nil {
		t.Error("expected error setting undeclared uniform")
	}
	if err := sdf.SetUniformFloat("T", 1); err == nil {
		t.Error("expected error setting uniform of wrong type")
	}
}

func TestShaderErrors(t *testing.T) {
	for _, test := range []struct {
		name    string
		src     string
		wantPos string // line:column prefix.
	}{
		{"missing semicolon", "float f(vec3 p) {\n    return 1.0\n}", "3:1"},
		{"unbalanced parenthesis", "float f(vec3 p) { return (1.0; }", "1:30"},
		{"unsupported loop", "float f(vec3 p) {\n  for (;;) {}\n}", "2:3"},
		{"undefined variable", "float f(vec3 p) {\n  return q;\n}", "2:10"},
		{"type mismatch", "float f(vec3 p) {\n  float a = p;\n  return a;\n}", "2:3"},
		{"wrong return type", "float f(vec3 p) { return p; }", "1:7"},
		{"undefined function", "float f(vec3 p) { return g(p); }", "1:26"},
		{"assign to uniform", "uniform float u;\nfloat f(vec3 p) { u = 1.0; return u; }", "2:21"},
	} {
		t.Run(test.name, func(t *testing.T) {
			sdf, err := gleval.NewShaderSDF3(test.src, "f", unitBox)
			if err == nil {
				_, err = sdf.EvalPoint(ms3.Vec{})
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.HasPrefix(err.Error(), test.wantPos+":") {
				t.Errorf("error %q does not start with position %s", err, test.wantPos)
			}
		})
	}
}

func TestShaderEntrySignature(t *testing.T) {
	_, err := gleval.NewShaderSDF3("float f(vec2 p) { return p.x; }", "f", unitBox)
	if err == nil {
		t.Error("expected error for entry point with vec2 argument")
	}
	_, err = gleval.NewShaderSDF3("float f(vec3 p) { return p.x; }", "g", unitBox)
	if err == nil {
		t.Error("expected error for undefined entry point")
	}
}

func TestMapSDF3MatchesEval(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	sphere, _ := csgsdf.NewSphere(0.5)
	box, _ := csgsdf.NewBox(ms3.Vec{X: 1, Y: 0.4, Z: 0.6})
	torus, _ := csgsdf.NewTorus(0.2, 0.8)
	u, err := csgsdf.Union(csgsdf.Translate(sphere, ms3.Vec{X: 0.5}), box, torus)
	if err != nil {
		t.Fatal(err)
	}
	sdf, err := gleval.NewMapSDF3(u, unitBox)
	if err != nil {
		t.Fatal(err)
	}
	pos := make([]ms3.Vec, 500)
	for i := range pos {
		pos[i] = ms3.Vec{X: rng.Float32()*4 - 2, Y: rng.Float32()*4 - 2, Z: rng.Float32()*4 - 2}
	}
	dist := make([]float32, len(pos))
	err = sdf.Evaluate(pos, dist, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i, p := range pos {
		want := u.Eval(p)
		if math32.Abs(dist[i]-want) > 1e-5 {
			t.Fatalf("at %v: interpreted %g, native %g", p, dist[i], want)
		}
	}
}

func TestCPUSDF3(t *testing.T) {
	sphere, _ := csgsdf.NewSphere(1)
	if _, err := gleval.NewCPUSDF3(sphere, ms3.Box{}); err == nil {
		t.Error("expected error for empty bounding box")
	}
	sdf, err := gleval.NewCPUSDF3(sphere, unitBox)
	if err != nil {
		t.Fatal(err)
	}
	pos := []ms3.Vec{{}, {X: 2}, {Y: -3}}
	dist := make([]float32, len(pos))
	if err := sdf.Evaluate(pos, dist[:1], nil); err == nil {
		t.Error("expected buffer length mismatch")
	}
	err = sdf.Evaluate(pos, dist, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []float32{-1, 1, 2}
	for i := range want {
		if dist[i] != want[i] {
			t.Errorf("dist[%d]=%g, want %g", i, dist[i], want[i])
		}
	}
}

func TestNormalsCentralDiff(t *testing.T) {
	sphere, _ := csgsdf.NewSphere(1)
	sdf, err := gleval.NewCPUSDF3(sphere, unitBox)
	if err != nil {
		t.Fatal(err)
	}
	pos := []ms3.Vec{{X: 1}, {Y: -1}, {X: 0.6, Z: 0.8}}
	normals := make([]ms3.Vec, len(pos))
	err = gleval.NormalsCentralDiff(sdf, pos, normals, 1e-3, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i, n := range normals {
		n = ms3.Unit(n)
		if d := ms3.Norm(ms3.Sub(n, pos[i])); d > 1e-3 {
			t.Errorf("normal at %v is %v", pos[i], n)
		}
	}
	err = gleval.NormalsCentralDiff(sdf, pos, normals, 0, nil)
	if err == nil {
		t.Error("expected error for zero step")
	}
	err = gleval.NormalsCentralDiff(sdf, pos, normals[:1], 1e-3, nil)
	if err == nil {
		t.Error("expected error for mismatched buffers")
	}
}
