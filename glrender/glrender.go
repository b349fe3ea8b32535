package glrender

import (
	"errors"
	"fmt"
	"io"

	"github.com/chewxy/math32"
	"github.com/soypat/csgsdf/gleval"
	"github.com/soypat/geometry/ms3"
)

// Renderer produces triangles of a mesh. ReadTriangles follows io.Reader
// semantics: it returns io.EOF once all triangles have been read.
type Renderer interface {
	ReadTriangles(dst []ms3.Triangle, userData any) (n int, err error)
}

// RenderAll reads the full contents of a Renderer and returns the slice read.
// It does not return error on io.EOF, like the io.RenderAll implementation.
func RenderAll(r Renderer, userData any) ([]ms3.Triangle, error) {
	const startSize = 4096
	var err error
	var nt int
	result := make([]ms3.Triangle, 0, startSize)
	buf := make([]ms3.Triangle, startSize)
	for {
		nt, err = r.ReadTriangles(buf, userData)
		if err == nil || err == io.EOF {
			result = append(result, buf[:nt]...)
		}
		if err != nil {
			break
		}
	}
	if err == io.EOF {
		return result, nil
	}
	return result, err
}

// Mesh is an indexed triangle mesh. Vertices holds interleaved
// position and normal data as x,y,z,nx,ny,nz and each consecutive
// triple of Indices forms one triangle.
type Mesh struct {
	Vertices []float32
	Indices  []uint32
}

const vertexStride = 6

// NewMesh builds an indexed mesh from triangles. Vertices sharing the exact same
// position are merged. Per-vertex normals are computed by central differences on sdf
// with the given step and normalized to unit length.
func NewMesh(triangles []ms3.Triangle, sdf gleval.SDF3, normalStep float32) (Mesh, error) {
	if len(triangles) == 0 {
		return Mesh{}, errors.New("no triangles to build mesh")
	} else if sdf == nil {
		return Mesh{}, errors.New("nil SDF3")
	} else if normalStep <= 0 {
		return Mesh{}, errors.New("normal step must be positive")
	}
	seen := make(map[ms3.Vec]uint32, len(triangles))
	var pos []ms3.Vec
	indices := make([]uint32, 0, 3*len(triangles))
	for _, tri := range triangles {
		for _, v := range tri {
			idx, ok := seen[v]
			if !ok {
				idx = uint32(len(pos))
				seen[v] = idx
				pos = append(pos, v)
			}
			indices = append(indices, idx)
		}
	}
	normals := make([]ms3.Vec, len(pos))
	err := gleval.NormalsCentralDiff(sdf, pos, normals, normalStep, nil)
	if err != nil {
		return Mesh{}, fmt.Errorf("computing normals: %w", err)
	}
	// Flat regions and creases can yield a vanishing gradient, fall back to face normals there.
	var faceNormals []ms3.Vec
	for i, n := range normals {
		if ms3.Norm(n) > 0 && !math32.IsNaN(ms3.Norm(n)) {
			continue
		}
		if faceNormals == nil {
			faceNormals = accumulateFaceNormals(triangles, indices, len(pos))
		}
		normals[i] = faceNormals[i]
		if ms3.Norm(normals[i]) == 0 {
			normals[i] = ms3.Vec{Z: 1}
		}
	}
	vertices := make([]float32, 0, vertexStride*len(pos))
	for i, p := range pos {
		n := ms3.Unit(normals[i])
		vertices = append(vertices, p.X, p.Y, p.Z, n.X, n.Y, n.Z)
	}
	return Mesh{Vertices: vertices, Indices: indices}, nil
}

func accumulateFaceNormals(triangles []ms3.Triangle, indices []uint32, numVerts int) []ms3.Vec {
	acc := make([]ms3.Vec, numVerts)
	for i, tri := range triangles {
		n := triangleNormal(tri)
		for j := 0; j < 3; j++ {
			idx := indices[3*i+j]
			acc[idx] = ms3.Add(acc[idx], n)
		}
	}
	return acc
}

// triangleNormal returns the area weighted normal of t following the right hand rule.
func triangleNormal(t ms3.Triangle) ms3.Vec {
	e1 := ms3.Sub(t[1], t[0])
	e2 := ms3.Sub(t[2], t[0])
	return ms3.Vec{
		X: e1.Y*e2.Z - e1.Z*e2.Y,
		Y: e1.Z*e2.X - e1.X*e2.Z,
		Z: e1.X*e2.Y - e1.Y*e2.X,
	}
}

// Validate checks the index buffer describes whole triangles referencing existing vertices.
func (m Mesh) Validate() error {
	if len(m.Vertices)%vertexStride != 0 {
		return fmt.Errorf("vertex buffer length %d not a multiple of %d", len(m.Vertices), vertexStride)
	}
	if len(m.Indices)%3 != 0 {
		return fmt.Errorf("index count %d not divisible by 3", len(m.Indices))
	}
	nv := uint32(m.VertexCount())
	for i, idx := range m.Indices {
		if idx >= nv {
			return fmt.Errorf("index %d at position %d out of range of %d vertices", idx, i, nv)
		}
	}
	return nil
}

// Expand de-indexes the mesh into flat position and normal buffers with
// three consecutive vertices per triangle.
func (m Mesh) Expand() (positions, normals []float32, err error) {
	if err := m.Validate(); err != nil {
		return nil, nil, err
	}
	positions = make([]float32, 0, 3*len(m.Indices))
	normals = make([]float32, 0, 3*len(m.Indices))
	for _, idx := range m.Indices {
		v := m.Vertices[vertexStride*idx : vertexStride*(idx+1)]
		positions = append(positions, v[0], v[1], v[2])
		normals = append(normals, v[3], v[4], v[5])
	}
	return positions, normals, nil
}

func (m Mesh) TriangleCount() int { return len(m.Indices) / 3 }

func (m Mesh) VertexCount() int { return len(m.Vertices) / vertexStride }

// Triangles returns the mesh triangles by position.
func (m Mesh) Triangles() []ms3.Triangle {
	tris := make([]ms3.Triangle, m.TriangleCount())
	for i := range tris {
		for j := 0; j < 3; j++ {
			v := m.Vertices[vertexStride*m.Indices[3*i+j]:]
			tris[i][j] = ms3.Vec{X: v[0], Y: v[1], Z: v[2]}
		}
	}
	return tris
}
