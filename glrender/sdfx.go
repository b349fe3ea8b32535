package glrender

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/soypat/csgsdf/gleval"
	"github.com/soypat/geometry/ms3"
)

// Marching cubes algorithms supported by [SDFXConfig].
const (
	AlgorithmUniform = "uniform"
	AlgorithmOctree  = "octree"
)

// SDFXConfig configures the sdfx marching cubes backend.
type SDFXConfig struct {
	// Cells is the number of cells along the longest bounding box axis.
	Cells int
	// Algorithm is one of "uniform" or "octree". Empty selects uniform.
	Algorithm string
}

func (cfg SDFXConfig) render3() (render.Render3, error) {
	if cfg.Cells <= 1 {
		return nil, fmt.Errorf("need at least 2 cells, got %d", cfg.Cells)
	}
	switch cfg.Algorithm {
	case "", AlgorithmUniform:
		return render.NewMarchingCubesUniform(cfg.Cells), nil
	case AlgorithmOctree:
		return render.NewMarchingCubesOctree(cfg.Cells), nil
	}
	return nil, fmt.Errorf("unknown marching cubes algorithm %q", cfg.Algorithm)
}

// SDFXRenderer extracts the zero isosurface of an SDF3 using sdfx's marching cubes.
// Extraction runs in full on the first call to ReadTriangles.
type SDFXRenderer struct {
	sdf      gleval.SDF3
	r3       render.Render3
	rendered bool
	tris     []ms3.Triangle
	off      int
}

var _ Renderer = (*SDFXRenderer)(nil)

// NewSDFXRenderer returns a [Renderer] meshing sdf within its bounds.
func NewSDFXRenderer(s gleval.SDF3, cfg SDFXConfig) (*SDFXRenderer, error) {
	if s == nil {
		return nil, errors.New("nil SDF3")
	}
	bb := s.Bounds()
	sz := bb.Size()
	if sz.X <= 0 || sz.Y <= 0 || sz.Z <= 0 {
		return nil, errors.New("SDF3 bounds have no volume")
	}
	r3, err := cfg.render3()
	if err != nil {
		return nil, err
	}
	return &SDFXRenderer{sdf: s, r3: r3}, nil
}

// ReadTriangles reads triangles of the extracted surface into dst.
func (r *SDFXRenderer) ReadTriangles(dst []ms3.Triangle, userData any) (int, error) {
	if len(dst) == 0 {
		return 0, errors.New("empty triangle buffer")
	}
	if !r.rendered {
		err := r.render(userData)
		if err != nil {
			return 0, err
		}
	}
	n := copy(dst, r.tris[r.off:])
	r.off += n
	if r.off == len(r.tris) {
		return n, io.EOF
	}
	return n, nil
}

func (r *SDFXRenderer) render(userData any) error {
	adapter := &sdfxAdapter{sdf: r.sdf, userData: userData}
	triangles := render.ToTriangles(adapter, r.r3)
	if adapter.err != nil {
		return fmt.Errorf("evaluating SDF during meshing: %w", adapter.err)
	}
	tris := make([]ms3.Triangle, 0, len(triangles))
	for _, tri := range triangles {
		var t ms3.Triangle
		for j := 0; j < 3; j++ {
			v := tri[j]
			t[j] = ms3.Vec{X: float32(v.X), Y: float32(v.Y), Z: float32(v.Z)}
		}
		if t[0] == t[1] || t[1] == t[2] || t[0] == t[2] {
			continue // Degenerate after float32 truncation.
		}
		tris = append(tris, t)
	}
	r.tris = tris
	r.rendered = true
	return nil
}

// sdfxAdapter exposes a gleval.SDF3 as an sdf.SDF3 sampled one point at a time.
// Evaluation stops at the first error, after which the field reads as empty space.
type sdfxAdapter struct {
	sdf      gleval.SDF3
	userData any
	mu       sync.Mutex
	pos      [1]ms3.Vec
	dist     [1]float32
	err      error
}

var _ sdf.SDF3 = (*sdfxAdapter)(nil)

func (a *sdfxAdapter) Evaluate(p v3.Vec) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return math.MaxFloat32
	}
	a.pos[0] = ms3.Vec{X: float32(p.X), Y: float32(p.Y), Z: float32(p.Z)}
	err := a.sdf.Evaluate(a.pos[:], a.dist[:], a.userData)
	if err != nil {
		a.err = err
		return math.MaxFloat32
	}
	return float64(a.dist[0])
}

func (a *sdfxAdapter) BoundingBox() sdf.Box3 {
	bb := a.sdf.Bounds()
	return sdf.Box3{
		Min: v3.Vec{X: float64(bb.Min.X), Y: float64(bb.Min.Y), Z: float64(bb.Min.Z)},
		Max: v3.Vec{X: float64(bb.Max.X), Y: float64(bb.Max.Y), Z: float64(bb.Max.Z)},
	}
}
