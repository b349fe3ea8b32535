package glsllib_test

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/soypat/csgsdf/glbuild"
	"github.com/soypat/csgsdf/glbuild/glsllib"
	"github.com/soypat/csgsdf/gleval"
	"github.com/soypat/geometry/ms3"
)

func TestLibraryFunctions(t *testing.T) {
	bb := ms3.Box{Max: ms3.Vec{X: 1, Y: 1, Z: 1}}
	for _, test := range []struct {
		fn   glbuild.ShaderFunction
		call string
		p    ms3.Vec
		want float32
	}{
		{glsllib.Box(), "Box(p, vec3(1.0, 2.0, 3.0))", ms3.Vec{}, -1},
		{glsllib.RoundBox(), "RoundBox(p, vec3(0.5), 0.5)", ms3.Vec{X: 3}, 2},
		{glsllib.CappedCylinder(), "CappedCylinder(p, vec3(0.0), vec3(0.0, 0.0, 2.0), 1.0)", ms3.Vec{X: 3, Z: 1}, 2},
		{glsllib.RoundedCylinder(), "RoundedCylinder(p, 1.0, 0.0, 1.0)", ms3.Vec{X: 3}, 1},
		{glsllib.Capsule(), "Capsule(p, vec3(0.0), vec3(0.0, 0.0, 2.0), 0.5)", ms3.Vec{Z: 4}, 1.5},
		{glsllib.Torus(), "Torus(p, vec2(2.0, 0.5))", ms3.Vec{X: 2}, -0.5},
		{glsllib.CappedTorus(), "CappedTorus(p, 2.0, 0.5, vec2(1.0, 0.0))", ms3.Vec{X: 2}, -0.5},
		{glsllib.SminPolynomial(), "sminPolynomial(0.0, 0.0, 0.5)", ms3.Vec{}, -0.125},
		{glsllib.SminCubic(), "sminCubic(1.0, 2.0, 0.5)", ms3.Vec{}, 1},
		{glsllib.SminRoot(), "sminRoot(1.0, 1.0, 0.0)", ms3.Vec{}, 1},
		{glsllib.SminChamfer(), "sminChamfer(1.0, 3.0, 0.1)", ms3.Vec{}, 1},
		{glsllib.SminStairs(), "sminStairs(1.0, 3.0, 0.5, 2.0)", ms3.Vec{}, 1},
	} {
		src := test.fn.Source() + "\nfloat f(vec3 p) { return " + test.call + "; }\n"
		sdf, err := gleval.NewShaderSDF3(src, "f", bb)
		if err != nil {
			t.Errorf("%s: %v", test.fn.Name(), err)
			continue
		}
		got, err := sdf.EvalPoint(test.p)
		if err != nil {
			t.Errorf("%s: %v", test.fn.Name(), err)
		} else if math32.Abs(got-test.want) > 1e-6 {
			t.Errorf("%s at %v: got %g, want %g", test.fn.Name(), test.p, got, test.want)
		}
	}
}
