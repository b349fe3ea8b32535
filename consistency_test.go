package csgsdf_test

import (
	"math/rand"
	"testing"

	"github.com/chewxy/math32"
	"github.com/soypat/csgsdf"
	"github.com/soypat/csgsdf/glbuild"
	"github.com/soypat/csgsdf/gleval"
	"github.com/soypat/geometry/ms3"
)

// TestShaderMatchesEval checks the generated GLSL against the native
// evaluator by interpreting the shader for random trees.
func TestShaderMatchesEval(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	bb := ms3.Box{Min: ms3.Vec{X: -3, Y: -3, Z: -3}, Max: ms3.Vec{X: 3, Y: 3, Z: 3}}
	const (
		numTrees  = 40
		numPoints = 1000
		tol       = 1e-4
	)
	pos := make([]ms3.Vec, numPoints)
	dist := make([]float32, numPoints)
	for tree := 0; tree < numTrees; tree++ {
		s := randomShape(rng, 5)
		sdf, err := gleval.NewMapSDF3(s, bb)
		if err != nil {
			expr, helpers := glbuild.Compile(s)
			t.Fatalf("tree %d: %v\n%s\n%s", tree, err, helpers, expr)
		}
		for i := range pos {
			pos[i] = randomPoint(rng, 3)
		}
		err = sdf.Evaluate(pos, dist, nil)
		if err != nil {
			t.Fatalf("tree %d: %v", tree, err)
		}
		for i, p := range pos {
			want := s.Eval(p)
			if diff := math32.Abs(dist[i] - want); diff > tol*math32.Max(1, math32.Abs(want)) {
				t.Fatalf("tree %d at %v: shader %g, native %g (%d nodes)", tree, p, dist[i], want, glbuild.CountNodes(s))
			}
		}
	}
}

func TestTwistBendMatchShader(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	box := must(csgsdf.NewBox(ms3.Vec{X: 0.5, Y: 1, Z: 2}))
	shapes := []csgsdf.Shape{
		must(csgsdf.Twist(box, 2)),
		must(csgsdf.Twist(box, -0.7)),
		must(csgsdf.Bend(box, 3)),
		must(csgsdf.Bend(must(csgsdf.Twist(box, 1.5)), 6)),
	}
	for _, s := range shapes {
		sdf, err := gleval.NewMapSDF3(s, ms3.Box{Max: ms3.Vec{X: 1, Y: 1, Z: 1}})
		if err != nil {
			t.Fatal(err)
		}
		for i := 0; i < 500; i++ {
			p := randomPoint(rng, 2)
			got, err := sdf.EvalPoint(p)
			if err != nil {
				t.Fatal(err)
			}
			if want := s.Eval(p); math32.Abs(got-want) > 1e-5 {
				t.Fatalf("at %v: shader %g, native %g", p, got, want)
			}
		}
	}
}

func randomShape(rng *rand.Rand, depth int) csgsdf.Shape {
	if depth <= 1 || rng.Intn(4) == 0 {
		return randomPrimitive(rng)
	}
	child := func() csgsdf.Shape { return randomShape(rng, depth-1) }
	switch rng.Intn(9) {
	case 0:
		return csgsdf.Translate(child(), randomPoint(rng, 1))
	case 1:
		return csgsdf.Rotate(child(), rng.Float32()*6, rng.Float32()*6, rng.Float32()*6)
	case 2:
		f := func() float32 { return 0.5 + rng.Float32()*1.5 }
		return must(csgsdf.Scale(child(), ms3.Vec{X: f(), Y: f(), Z: f()}))
	case 3:
		cell := ms3.Vec{X: 1 + rng.Float32(), Y: 1 + rng.Float32(), Z: 1 + rng.Float32()}
		return must(csgsdf.Repeat(child(), cell, [3]int{-1, -2, 0}, [3]int{1, 0, 2}))
	case 4:
		return must(csgsdf.Twist(child(), 1+rng.Float32()*4))
	case 5:
		return must(csgsdf.Bend(child(), 2+rng.Float32()*8))
	case 6:
		n := 2 + rng.Intn(2)
		shapes := make([]csgsdf.Shape, n)
		for i := range shapes {
			shapes[i] = child()
		}
		b := must(csgsdf.Union(shapes...))
		return must(csgsdf.SetMinFunction(b, randomMinFunction(rng, n)))
	case 7:
		b := must(csgsdf.Intersection(child(), child()))
		return must(csgsdf.SetMinFunction(b, randomMinFunction(rng, 2)))
	default:
		b := must(csgsdf.Difference(child(), child()))
		return must(csgsdf.SetMinFunction(b, randomMinFunction(rng, 2)))
	}
}

func randomMinFunction(rng *rand.Rand, n int) csgsdf.MinFunction {
	k := 0.05 + rng.Float32()*0.3
	if n > 2 {
		if rng.Intn(2) == 0 {
			return csgsdf.MinDefault
		}
		return must(csgsdf.NewMinExponential(8 + k*10))
	}
	switch rng.Intn(7) {
	case 0:
		return must(csgsdf.NewMinPolynomial(k))
	case 1:
		return must(csgsdf.NewMinCubicPolynomial(k))
	case 2:
		return must(csgsdf.NewMinRoot(k))
	case 3:
		return must(csgsdf.NewMinChamfer(k))
	case 4:
		return must(csgsdf.NewMinStairs(k, 1+rng.Intn(4)))
	case 5:
		return must(csgsdf.NewMinExponential(8 + k*10))
	}
	return csgsdf.MinDefault
}

func randomPrimitive(rng *rand.Rand) csgsdf.Shape {
	f := func(lo, hi float32) float32 { return lo + rng.Float32()*(hi-lo) }
	switch rng.Intn(10) {
	case 0:
		return must(csgsdf.NewSphere(f(0.2, 1.5)))
	case 1:
		return must(csgsdf.NewPlane(randomPoint(rng, 1), f(-1, 1)))
	case 2:
		return must(csgsdf.NewBox(ms3.Vec{X: f(0.2, 2), Y: f(0.2, 2), Z: f(0.2, 2)}))
	case 3:
		return must(csgsdf.NewRoundBox(ms3.Vec{X: f(0.5, 2), Y: f(0.5, 2), Z: f(0.5, 2)}, f(0, 0.2)))
	case 4:
		return must(csgsdf.NewCylinder(f(0.2, 1)))
	case 5:
		return must(csgsdf.NewCappedCylinder(f(0.1, 0.8), randomPoint(rng, 1), ms3.Vec{X: 1.5, Y: -1, Z: 0.5}))
	case 6:
		return must(csgsdf.NewRoundedCylinder(f(0.5, 1), f(0.05, 0.2), f(0.3, 1)))
	case 7:
		return must(csgsdf.NewCapsule(f(0.1, 0.5), randomPoint(rng, 1), ms3.Vec{X: -1, Y: 1, Z: 1}))
	case 8:
		return must(csgsdf.NewTorus(f(0.1, 0.3), f(0.8, 1.5)))
	}
	return must(csgsdf.NewCappedTorus(f(0.1, 0.3), f(0.8, 1.5), f(0.3, 3)))
}
