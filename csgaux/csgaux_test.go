package csgaux

import (
	"bytes"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	math "github.com/chewxy/math32"
	"github.com/soypat/csgsdf"
	"github.com/soypat/csgsdf/glrender"
	"github.com/soypat/geometry/ms3"
)

var testBounds = ms3.Box{Min: ms3.Vec{X: -1.5, Y: -1.5, Z: -1.5}, Max: ms3.Vec{X: 1.5, Y: 1.5, Z: 1.5}}

func TestRender(t *testing.T) {
	sphere, err := csgsdf.NewSphere(1)
	if err != nil {
		t.Fatal(err)
	}
	var stl, shader, logs bytes.Buffer
	logger := log.NewWithOptions(&logs, log.Options{Level: log.DebugLevel})
	mesh, err := Render(sphere, RenderConfig{
		Bounds:       testBounds,
		STLOutput:    &stl,
		ShaderOutput: &shader,
		IndexedMesh:  true,
		Mesh:         glrender.SDFXConfig{Cells: 24},
	}, logger)
	if err != nil {
		t.Fatal(err)
	}
	if err := mesh.Validate(); err != nil {
		t.Fatal(err)
	}
	if mesh.TriangleCount() == 0 {
		t.Fatal("empty mesh")
	}
	if want := 84 + 50*mesh.TriangleCount(); stl.Len() != want {
		t.Errorf("STL has %d bytes, want %d", stl.Len(), want)
	}
	if !strings.Contains(shader.String(), "float map(in vec3 p)") {
		t.Error("renderer shader missing map function")
	}
	for _, want := range []string{"rendered triangles", "built indexed mesh", "using CPU"} {
		if !strings.Contains(logs.String(), want) {
			t.Errorf("log output missing %q:\n%s", want, logs.String())
		}
	}

	// Nil logger is silent.
	shader.Reset()
	_, err = Render(sphere, RenderConfig{ShaderOutput: &shader}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Render(sphere, RenderConfig{}, nil); err == nil {
		t.Error("expected error for no outputs")
	}
	if _, err := Render(sphere, RenderConfig{STLOutput: &stl, Mesh: glrender.SDFXConfig{Cells: 16}}, nil); err == nil {
		t.Error("expected error for empty bounds")
	}
}

func TestRenderSlicePNG(t *testing.T) {
	box, err := csgsdf.NewBox(ms3.Vec{X: 2, Y: 1, Z: 1})
	if err != nil {
		t.Fatal(err)
	}
	bb := ms3.Box{Min: ms3.Vec{X: -2, Y: -1, Z: -1}, Max: ms3.Vec{X: 2, Y: 1, Z: 1}}
	var buf bytes.Buffer
	err = RenderSlicePNG(&buf, box, bb, 0, 50, nil)
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if sz := img.Bounds().Size(); sz.X != 100 || sz.Y != 50 {
		t.Errorf("want 100x50 image preserving aspect ratio, got %v", sz)
	}
	if err := RenderSlicePNG(&buf, box, bb, 0, 0, nil); err == nil {
		t.Error("expected error for zero height")
	}
}

func TestDistanceBands(t *testing.T) {
	conv := DistanceBands(1)
	if conv(float32Nan()) != invalidColor || conv(math.Inf(1)) != invalidColor {
		t.Error("NaN and Inf should map to the invalid color")
	}
	in := conv(-0.5).(color.RGBA)
	out := conv(0.5).(color.RGBA)
	if in.B <= in.R || out.R <= out.B {
		t.Errorf("interior should be blue-ish and exterior orange-ish, got %v and %v", in, out)
	}
	if edge := conv(0).(color.RGBA); edge != (color.RGBA{R: 255, G: 255, B: 255, A: 255}) {
		t.Errorf("surface should be white, got %v", edge)
	}
}

func TestGradient(t *testing.T) {
	bw := Gradient(2, color.Black, color.White)
	if bw(-5) != color.Black || bw(5) != color.White {
		t.Error("gradient saturates to end colors")
	}
	mid := color.GrayModel.Convert(bw(0)).(color.Gray)
	if mid.Y < 126 || mid.Y > 129 {
		t.Errorf("midpoint gray %d", mid.Y)
	}
	if bw(float32Nan()) != invalidColor {
		t.Error("NaN should map to the invalid color")
	}
	blue := color.RGBA{B: 255, A: 255}
	grad := Gradient(4, color.White, blue)
	r, g, b, _ := grad(1).RGBA() // Three quarters of the way to blue.
	if b != 0xffff || r != g || r < 0x3f00 || r > 0x4100 {
		t.Errorf("unexpected gradient color %x %x %x", r, g, b)
	}
}

func TestNewSliceColoring(t *testing.T) {
	bb := ms3.Box{Min: ms3.Vec{X: -3, Y: -4}, Max: ms3.Vec{X: 3, Y: 4, Z: 1}}
	if c := NewSliceColoring(bb, 1)(-1); c != color.Black {
		t.Errorf("gradient coloring inside = %v, want black", c)
	}
	bands := NewSliceColoring(bb, 0)
	want := DistanceBands(math.Hypot(6, 8) / 3)
	for _, d := range []float32{-2, -0.3, 0, 0.7, 4} {
		if bands(d) != want(d) {
			t.Errorf("band coloring at %g differs from diagonal scaled bands", d)
		}
	}
}

func float32Nan() float32 {
	var zero float32
	return zero / zero
}
