package glrender

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/chewxy/math32"
	"github.com/soypat/csgsdf/gleval"
	"github.com/soypat/geometry/ms3"
)

type setImage = interface {
	image.Image
	Set(x, y int, c color.Color)
}

// ImageRendererSlice renders cross sections of 3D SDFs at constant z to images.
type ImageRendererSlice struct {
	conv func(f float32) color.Color
	pos  []ms3.Vec
	dist []float32
}

// NewImageRendererSlice instances a new [ImageRendererSlice]. A nil float->color conversion
// function results in a simple black-white color scheme where black is the interior of the SDF (negative distance).
func NewImageRendererSlice(evalBufferSize int, conversion func(float32) color.Color) (*ImageRendererSlice, error) {
	if evalBufferSize <= 64 {
		return nil, errors.New("too small evaluation buffer size")
	}
	if conversion == nil {
		conversion = func(f float32) color.Color {
			switch {
			case math32.IsNaN(f) || math32.IsInf(f, 0):
				return color.RGBA{R: 255, A: 255}
			case f > 0:
				return color.White
			default:
				return color.Black
			}
		}
	}
	ir := &ImageRendererSlice{
		conv: conversion,
		pos:  make([]ms3.Vec, evalBufferSize),
		dist: make([]float32, evalBufferSize),
	}
	return ir, nil
}

// Render maps the x-y extent of the SDF's bounds at height z onto img. Image rows grow
// downwards so the top row corresponds to the maximum y. userData is passed to all [gleval.SDF3.Evaluate] calls.
func (ir *ImageRendererSlice) Render(sdf gleval.SDF3, z float32, img setImage, userData any) error {
	imgBB := img.Bounds()
	dxi := imgBB.Dx()
	dyi := imgBB.Dy()
	if dxi <= 0 || dyi <= 0 {
		return errors.New("empty image")
	} else if len(ir.dist) < dxi {
		return fmt.Errorf("require evaluation buffer (%d) to be at least of length of image rows (%d)", len(ir.dist), dxi)
	}
	bb := sdf.Bounds()
	sz := bb.Size()
	dx := sz.X / float32(dxi)
	dy := sz.Y / float32(dyi)
	xmin := bb.Min.X + dx/2 // Sample pixel centers.
	ymax := bb.Max.Y - dy/2
	for j := 0; j < dyi; j++ {
		y := ymax - float32(j)*dy
		err := ir.renderRow(sdf, j, y, z, xmin, dx, imgBB, img, userData)
		if err != nil {
			return err
		}
	}
	return nil
}

func (ir *ImageRendererSlice) renderRow(sdf gleval.SDF3, row int, y, z, xmin, dx float32, imgBB image.Rectangle, img setImage, userData any) error {
	dxi := imgBB.Dx()
	for i := 0; i < dxi; i++ {
		ir.pos[i] = ms3.Vec{X: float32(i)*dx + xmin, Y: y, Z: z}
	}
	err := sdf.Evaluate(ir.pos[:dxi], ir.dist[:dxi], userData)
	if err != nil {
		return err
	}
	conv := ir.conv
	for i := 0; i < dxi; i++ {
		img.Set(i+imgBB.Min.X, row+imgBB.Min.Y, conv(ir.dist[i]))
	}
	return nil
}
