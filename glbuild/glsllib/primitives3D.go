package glsllib

import (
	_ "embed"

	"github.com/soypat/csgsdf/glbuild"
)

func mustShaderFunction(src []byte) glbuild.ShaderFunction {
	fn, err := glbuild.MakeShaderFunction(src)
	if err != nil {
		panic("glsllib: " + err.Error())
	}
	return fn
}

//go:embed box.glsl
var boxSrc []byte

// Box is the SDF definition for an axis aligned box of half extents b:
//
//	float Box(vec3 p, vec3 b)
func Box() glbuild.ShaderFunction { return mustShaderFunction(boxSrc) }

//go:embed roundbox.glsl
var roundboxSrc []byte

// RoundBox is the SDF definition for a box with rounded edges:
//
//	float RoundBox(vec3 p, vec3 b, float r)
func RoundBox() glbuild.ShaderFunction { return mustShaderFunction(roundboxSrc) }

//go:embed cappedcylinder.glsl
var cappedCylinderSrc []byte

// CappedCylinder is the SDF definition for a cylinder between two end points:
//
//	float CappedCylinder(vec3 p, vec3 a, vec3 b, float r)
func CappedCylinder() glbuild.ShaderFunction { return mustShaderFunction(cappedCylinderSrc) }

//go:embed roundedcylinder.glsl
var roundedCylinderSrc []byte

// RoundedCylinder is the SDF definition for a z-aligned cylinder with rounded rims:
//
//	float RoundedCylinder(vec3 p, float ra, float rb, float h)
func RoundedCylinder() glbuild.ShaderFunction { return mustShaderFunction(roundedCylinderSrc) }

//go:embed capsule.glsl
var capsuleSrc []byte

// Capsule is the SDF definition for a line segment swept by a sphere:
//
//	float Capsule(vec3 p, vec3 a, vec3 b, float r)
func Capsule() glbuild.ShaderFunction { return mustShaderFunction(capsuleSrc) }

//go:embed torus.glsl
var torusSrc []byte

// Torus is the SDF definition for a torus lying on the xy plane:
//
//	float Torus(vec3 p, vec2 t)
func Torus() glbuild.ShaderFunction { return mustShaderFunction(torusSrc) }

//go:embed cappedtorus.glsl
var cappedTorusSrc []byte

// CappedTorus is the SDF definition for a torus section. an holds the sine and cosine of the cap angle.
//
//	float CappedTorus(vec3 p, float ra, float rb, vec2 an)
func CappedTorus() glbuild.ShaderFunction { return mustShaderFunction(cappedTorusSrc) }
