package fasteners

import (
	"testing"

	math "github.com/chewxy/math32"
	"github.com/soypat/csgsdf/gleval"
	"github.com/soypat/geometry/ms3"
)

const tol = 1e-4

func TestHexHead(t *testing.T) {
	const radius, height float32 = 2, 1
	apothem := radius * math.Cos(math.Pi/6)
	hex, err := HexHead(radius, height, RoundNone)
	if err != nil {
		t.Fatal(err)
	}
	if d := hex.Eval(ms3.Vec{}); math.Abs(d+height/2) > tol {
		t.Errorf("center distance %g, want %g", d, -height/2)
	}
	// Flats lie at multiples of 60 degrees.
	for i := 0; i < 6; i++ {
		sa, ca := math.Sincos(float32(i) * math.Pi / 3)
		p := ms3.Vec{X: (apothem + 0.5) * ca, Y: (apothem + 0.5) * sa}
		if d := hex.Eval(p); math.Abs(d-0.5) > tol {
			t.Errorf("distance off flat %d = %g, want 0.5", i, d)
		}
	}
	// Corners lie between flats.
	if d := hex.Eval(ms3.Vec{Y: radius * 0.99}); d >= 0 {
		t.Errorf("point inside corner has distance %g", d)
	}
}

func TestHexHeadRounding(t *testing.T) {
	flat, err := HexHead(2, 1, RoundNone)
	if err != nil {
		t.Fatal(err)
	}
	domed, err := HexHead(2, 1, RoundTop)
	if err != nil {
		t.Fatal(err)
	}
	// Top corner is cut by the dome, bottom corner is untouched.
	topCorner := ms3.Vec{Y: 1.95, Z: 0.49}
	bottomCorner := ms3.Vec{Y: 1.95, Z: -0.49}
	if flat.Eval(topCorner) >= 0 {
		t.Fatal("top corner should be inside flat head")
	}
	if domed.Eval(topCorner) <= 0 {
		t.Error("top corner should be removed by dome")
	}
	if domed.Eval(bottomCorner) >= 0 {
		t.Error("bottom corner should remain")
	}
	if _, err := HexHead(2, 1, "x"); err == nil {
		t.Error("expected invalid rounding error")
	}
	if _, err := HexHead(0, 1, RoundNone); err == nil {
		t.Error("expected radius error")
	}
}

func TestNutAndWasher(t *testing.T) {
	nut, err := Nut(2, 1, 0.6)
	if err != nil {
		t.Fatal(err)
	}
	if d := nut.Eval(ms3.Vec{}); math.Abs(d-0.6) > tol {
		t.Errorf("bore center distance %g, want 0.6", d)
	}
	if d := nut.Eval(ms3.Vec{X: 1.2}); d >= 0 {
		t.Errorf("nut body distance %g", d)
	}
	if _, err := Nut(2, 1, 2); err == nil {
		t.Error("expected hole radius error")
	}

	washer, err := Washer(1, 2, 0.2)
	if err != nil {
		t.Fatal(err)
	}
	if d := washer.Eval(ms3.Vec{X: 1.5}); math.Abs(d+0.1) > tol {
		t.Errorf("washer mid distance %g, want -0.1", d)
	}
	if d := washer.Eval(ms3.Vec{}); math.Abs(d-1) > tol {
		t.Errorf("washer center distance %g, want 1", d)
	}
	if _, err := Washer(2, 1, 0.2); err == nil {
		t.Error("expected radii error")
	}
}

func TestFastenersCompile(t *testing.T) {
	nut, err := Nut(2, 1, 0.6)
	if err != nil {
		t.Fatal(err)
	}
	sdf, err := gleval.NewMapSDF3(nut, ms3.Box{Min: ms3.Vec{X: -3, Y: -3, Z: -3}, Max: ms3.Vec{X: 3, Y: 3, Z: 3}})
	if err != nil {
		t.Fatal(err)
	}
	pos := []ms3.Vec{{}, {X: 1.2}, {Y: 1.5, Z: 0.3}, {X: 4}}
	dist := make([]float32, len(pos))
	if err := sdf.Evaluate(pos, dist, nil); err != nil {
		t.Fatal(err)
	}
	for i, p := range pos {
		if want := nut.Eval(p); math.Abs(dist[i]-want) > 1e-3 {
			t.Errorf("shader distance at %v = %g, native %g", p, dist[i], want)
		}
	}
}
