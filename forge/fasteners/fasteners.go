// Package fasteners builds unthreaded nut, bolt head and washer shapes.
package fasteners

import (
	"errors"
	"fmt"

	math "github.com/chewxy/math32"
	"github.com/soypat/csgsdf"
	"github.com/soypat/geometry/ms3"
)

// Rounding selects which faces of a hex head are domed.
type Rounding string

const (
	RoundNone   Rounding = ""
	RoundTop    Rounding = "t"
	RoundBottom Rounding = "b"
	RoundBoth   Rounding = "tb"
)

// HexHead returns a hexagonal prism for a nut or bolt centered at the origin
// with its axis along z. radius is the distance from the axis to a corner.
// The top and/or bottom faces are optionally domed by intersecting with a sphere.
func HexHead(radius, height float32, round Rounding) (csgsdf.Shape, error) {
	switch {
	case !(radius > 0):
		return nil, fmt.Errorf("hex head radius must be positive, got %g", radius)
	case !(height > 0):
		return nil, fmt.Errorf("hex head height must be positive, got %g", height)
	case round != RoundNone && round != RoundTop && round != RoundBottom && round != RoundBoth:
		return nil, fmt.Errorf("invalid hex head rounding %q", round)
	}
	apothem := radius * math.Cos(30*math.Pi/180)
	// Each slab bounds two opposite flats of the hexagon.
	slab, err := csgsdf.NewBox(ms3.Vec{X: 2 * apothem, Y: 2 * radius, Z: height})
	if err != nil {
		return nil, err
	}
	hex, err := csgsdf.Intersection(
		slab,
		csgsdf.Rotate(slab, math.Pi/3, 0, 0),
		csgsdf.Rotate(slab, 2*math.Pi/3, 0, 0),
	)
	if err != nil {
		return nil, err
	}
	if round == RoundNone {
		return hex, nil
	}

	topRound := radius * 1.6
	sphere, err := csgsdf.NewSphere(topRound)
	if err != nil {
		return nil, err
	}
	zOfs := math.Sqrt(topRound*topRound-apothem*apothem) - height/2
	shapes := []csgsdf.Shape{hex}
	if round == RoundTop || round == RoundBoth {
		shapes = append(shapes, csgsdf.Translate(sphere, ms3.Vec{Z: -zOfs}))
	}
	if round == RoundBottom || round == RoundBoth {
		shapes = append(shapes, csgsdf.Translate(sphere, ms3.Vec{Z: zOfs}))
	}
	return csgsdf.Intersection(shapes...)
}

// Nut returns a hex nut with a plain bore of holeRadius and domed faces.
func Nut(radius, height, holeRadius float32) (csgsdf.Shape, error) {
	if !(holeRadius > 0) || holeRadius >= radius*math.Cos(30*math.Pi/180) {
		return nil, fmt.Errorf("nut hole radius must be positive and smaller than the hex flats, got %g", holeRadius)
	}
	head, err := HexHead(radius, height, RoundBoth)
	if err != nil {
		return nil, err
	}
	bore, err := csgsdf.NewCylinder(holeRadius)
	if err != nil {
		return nil, err
	}
	return csgsdf.Difference(head, bore)
}

// Washer returns a flat washer centered at the origin with its axis along z.
func Washer(inner, outer, thickness float32) (csgsdf.Shape, error) {
	if !(inner > 0) || !(outer > inner) {
		return nil, errors.New("washer radii must satisfy 0 < inner < outer")
	} else if !(thickness > 0) {
		return nil, fmt.Errorf("washer thickness must be positive, got %g", thickness)
	}
	a, b := ms3.Vec{Z: -thickness / 2}, ms3.Vec{Z: thickness / 2}
	disk, err := csgsdf.NewCappedCylinder(outer, a, b)
	if err != nil {
		return nil, err
	}
	hole, err := csgsdf.NewCylinder(inner)
	if err != nil {
		return nil, err
	}
	return csgsdf.Difference(disk, hole)
}
