package script

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chewxy/math32"
	"github.com/soypat/csgsdf"
	"github.com/soypat/geometry/ms3"
)

func TestEvalShapes(t *testing.T) {
	tests := []struct {
		name   string
		source string
		p      ms3.Vec
		want   float32
	}{
		{"sphere", `(Sphere 1)`, ms3.Vec{X: 3}, 2},
		{"float radius", `(Sphere 1.5)`, ms3.Vec{}, -1.5},
		{"def and translate", `(def s (Sphere 1))
(translate s (Vector 2 0 0))`, ms3.Vec{X: 2}, -1},
		{"translate with numbers", `(translate (Sphere 1) 0 0 5)`, ms3.Vec{Z: 5}, -1},
		{"box", `(Box 2 4 6)`, ms3.Vec{X: 5}, 4},
		{"union array", `(Union [(Sphere 1) (translate (Sphere 1) (Vector 4 0 0))])`, ms3.Vec{X: 4}, -1},
		{"union varargs", `(Union (Sphere 1) (Sphere 2))`, ms3.Vec{}, -2},
		{"difference", `(Difference [(Sphere 2) (Sphere 1)])`, ms3.Vec{}, 1},
		{"uniform scale", `(scale (Sphere 1) 2)`, ms3.Vec{X: 5}, 3},
		{"vector scale", `(scale (Sphere 1) (Vector 2 2 2))`, ms3.Vec{X: 5}, 3},
		{"torus", `(Torus 1 3)`, ms3.Vec{X: 2}, -1},
		{"capsule", `(Capsule 0.5 (Vector 0 0 0) (Vector 0 0 2))`, ms3.Vec{Z: 4}, 1.5},
		{"rotate identity", `(rotate_euler (Box 2 4 6) 0 0 0)`, ms3.Vec{Y: 5}, 3},
		{"hex head", `(HexHead 2 1 "tb")`, ms3.Vec{}, -0.5},
		{"nut", `(Nut 2 1 0.6)`, ms3.Vec{}, 0.6},
		{"washer", `(Washer 1 2 0.2)`, ms3.Vec{X: 1.5}, -0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sink bytes.Buffer
			shape, err := NewEngine(&sink).Eval(context.Background(), tt.source)
			if err != nil {
				t.Fatalf("Eval: %v\nsink: %s", err, sink.String())
			}
			if got := shape.Eval(tt.p); math32.Abs(got-tt.want) > 1e-5 {
				t.Errorf("distance at %v = %g, want %g", tt.p, got, tt.want)
			}
		})
	}
}

func TestEvalMinFunctions(t *testing.T) {
	for _, src := range []string{
		`(smooth (Union [(Sphere 1) (Box 1 1 1)]) 0.2)`,
		`(smooth_cubic (Union [(Sphere 1) (Box 1 1 1)]) 0.2)`,
		`(smooth_root (Intersection [(Sphere 1) (Box 1 1 1)]) 0.2)`,
		`(smooth_exponential (Union [(Sphere 1) (Box 1 1 1) (Cylinder 0.2)]) 8)`,
		`(chamfer (Difference [(Sphere 1) (Box 1 1 1)]) 0.1)`,
		`(stairs (Union [(Sphere 1) (Box 1 1 1)]) 0.3 3)`,
	} {
		shape, err := NewEngine(nil).Eval(context.Background(), src)
		if err != nil {
			t.Errorf("%s: %v", src, err)
			continue
		}
		if _, ok := shape.(*csgsdf.Boolean); !ok {
			t.Errorf("%s: want boolean, got %T", src, shape)
		}
	}
}

func TestEvalErrors(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		wantMsg string
	}{
		{"invalid radius", `(Sphere -1)`, "radius must be positive"},
		{"type mismatch", `(translate 1 (Vector 1 2 3))`, "expected shape"},
		{"not a shape", `(Vector 1 2 3)`, "must end with a shape"},
		{"smooth on primitive", `(smooth (Sphere 1) 0.1)`, "expected boolean"},
		{"union arity", `(Union [(Sphere 1)])`, "at least 2 children"},
		{"chamfer arity", `(chamfer (Union [(Sphere 1) (Sphere 2) (Sphere 3)]) 0.1)`, "exactly 2 children"},
		{"stairs count", `(stairs (Union [(Sphere 1) (Sphere 2)]) 0.1 0)`, "step count"},
		{"empty", "  ", "empty script"},
		{"parse error", `(Sphere 1`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sink bytes.Buffer
			shape, err := NewEngine(&sink).Eval(context.Background(), tt.source)
			if err == nil {
				t.Fatalf("expected error, got shape %T", shape)
			}
			var evalErr *EvalError
			if !errors.As(err, &evalErr) {
				t.Fatalf("want *EvalError, got %T", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not contain %q", err, tt.wantMsg)
			}
			if !strings.Contains(sink.String(), err.Error()) {
				t.Errorf("sink %q missing error %q", sink.String(), err)
			}
		})
	}
}

func TestEvalCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var sink bytes.Buffer
	_, err := NewEngine(&sink).Eval(ctx, `(Sphere 1)`)
	if err == nil {
		t.Fatal("expected error for canceled context")
	}
	if !strings.Contains(sink.String(), "canceled") {
		t.Errorf("sink %q does not report cancellation", sink.String())
	}
}

func TestPrint(t *testing.T) {
	// Script output must never reach the process stdout.
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	stdout := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = stdout }()

	var sink bytes.Buffer
	_, err = NewEngine(&sink).Eval(context.Background(), `(println "radius" 3)
(printf "r=%v;" 2.5)
(print "done")
(Sphere 3)`)
	os.Stdout = stdout
	w.Close()
	leaked, _ := io.ReadAll(r)
	r.Close()
	if err != nil {
		t.Fatal(err)
	}
	if got := sink.String(); got != "radius 3\nr=2.5;done" {
		t.Errorf("sink = %q", got)
	}
	if len(leaked) != 0 {
		t.Errorf("script wrote %q to stdout", leaked)
	}
}

func TestParseZygomysError(t *testing.T) {
	tests := []struct {
		msg      string
		wantLine int
		wantMsg  string
	}{
		{"Error on line 3: unexpected end of input", 3, "unexpected end of input"},
		{"line 7: bad token", 7, "bad token"},
		{"something failed", 0, "something failed"},
	}
	for _, tt := range tests {
		got := parseZygomysError(errors.New(tt.msg))
		if got.Line != tt.wantLine || got.Message != tt.wantMsg {
			t.Errorf("parseZygomysError(%q) = %+v", tt.msg, got)
		}
	}
	if (&EvalError{Line: 2, Message: "x"}).Error() != "line 2: x" {
		t.Error("unexpected EvalError format")
	}
}

func TestExampleScripts(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("..", "..", "examples", "scripts", "*.zy"))
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) == 0 {
		t.Fatal("no example scripts found")
	}
	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			source, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			shape, err := NewEngine(nil).Eval(context.Background(), string(source))
			if err != nil {
				t.Fatal(err)
			}
			if d := shape.Eval(ms3.Vec{}); math32.IsNaN(d) || math32.IsInf(d, 0) {
				t.Errorf("distance at origin is %g", d)
			}
		})
	}
}
