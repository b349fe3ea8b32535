package glsllib

import (
	_ "embed"

	"github.com/soypat/csgsdf/glbuild"
)

//go:embed sminpolynomial.glsl
var sminPolynomialSrc []byte

// SminPolynomial is the quadratic polynomial smooth minimum:
//
//	float sminPolynomial(float d0, float d1, float k)
func SminPolynomial() glbuild.ShaderFunction { return mustShaderFunction(sminPolynomialSrc) }

//go:embed smincubic.glsl
var sminCubicSrc []byte

// SminCubic is the cubic polynomial smooth minimum:
//
//	float sminCubic(float d0, float d1, float k)
func SminCubic() glbuild.ShaderFunction { return mustShaderFunction(sminCubicSrc) }

//go:embed sminroot.glsl
var sminRootSrc []byte

// SminRoot is the square root smooth minimum:
//
//	float sminRoot(float d0, float d1, float k)
func SminRoot() glbuild.ShaderFunction { return mustShaderFunction(sminRootSrc) }

//go:embed sminchamfer.glsl
var sminChamferSrc []byte

// SminChamfer joins two distances with a 45 degree bevel:
//
//	float sminChamfer(float d0, float d1, float k)
func SminChamfer() glbuild.ShaderFunction { return mustShaderFunction(sminChamferSrc) }

//go:embed sminstairs.glsl
var sminStairsSrc []byte

// SminStairs joins two distances with n steps:
//
//	float sminStairs(float d0, float d1, float k, float n)
func SminStairs() glbuild.ShaderFunction { return mustShaderFunction(sminStairsSrc) }
