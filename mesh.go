package bonetube

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
)

// Mesh is an indexed triangle mesh with per-vertex color, UV and skinning attributes.
// All per-vertex slices are parallel and of equal length. A Mesh is not modified after Build returns it.
type Mesh struct {
	RadialSegments int
	Vertices       []ms3.Vec
	// Colors holds RGB components in X, Y and Z in the range [0,1].
	Colors []ms3.Vec
	UVs    []ms2.Vec
	// Indices are triangle vertex index triples with counter clockwise winding.
	Indices     []uint32
	SkinIndices [][4]uint16
	SkinWeights [][4]float32
	// Bones are the visited nodes in traversal order. A bone's position in
	// this slice is the value stored in SkinIndices.
	Bones []Node
}

func (m *Mesh) NumVertices() int  { return len(m.Vertices) }
func (m *Mesh) NumTriangles() int { return len(m.Indices) / 3 }

// Triangle returns the i'th triangle of the mesh.
func (m *Mesh) Triangle(i int) ms3.Triangle {
	idx := m.Indices[3*i : 3*i+3]
	return ms3.Triangle{m.Vertices[idx[0]], m.Vertices[idx[1]], m.Vertices[idx[2]]}
}

// AppendTriangles appends the mesh's triangles to dst and returns the result.
func (m *Mesh) AppendTriangles(dst []ms3.Triangle) []ms3.Triangle {
	for i := 0; i < m.NumTriangles(); i++ {
		dst = append(dst, m.Triangle(i))
	}
	return dst
}

// Triangles returns the triangles of the mesh in index order.
func (m *Mesh) Triangles() []ms3.Triangle {
	return m.AppendTriangles(make([]ms3.Triangle, 0, m.NumTriangles()))
}

// Bounds returns the axis aligned bounding box of the mesh vertices. Returns the zero Box for an empty mesh.
func (m *Mesh) Bounds() ms3.Box {
	if len(m.Vertices) == 0 {
		return ms3.Box{}
	}
	bb := ms3.Box{Min: m.Vertices[0], Max: m.Vertices[0]}
	for _, v := range m.Vertices[1:] {
		bb.Min = ms3.MinElem(bb.Min, v)
		bb.Max = ms3.MaxElem(bb.Max, v)
	}
	return bb
}

// Validate checks the structural invariants of the mesh: parallel attribute slices,
// in-range triangle and skin indices and unit skin weights.
func (m *Mesh) Validate() error {
	nv := len(m.Vertices)
	if len(m.Colors) != nv || len(m.UVs) != nv || len(m.SkinIndices) != nv || len(m.SkinWeights) != nv {
		return errors.New("mismatched vertex attribute lengths")
	}
	if len(m.Indices)%3 != 0 {
		return fmt.Errorf("index count %d not a multiple of 3", len(m.Indices))
	}
	if m.RadialSegments > 0 && nv != m.RadialSegments*len(m.Bones) {
		return fmt.Errorf("got %d vertices, want %d rings of %d", nv, len(m.Bones), m.RadialSegments)
	}
	for i, idx := range m.Indices {
		if int(idx) >= nv {
			return fmt.Errorf("index %d out of range: %d >= %d vertices", i, idx, nv)
		}
	}
	for i := range m.SkinWeights {
		var sum float32
		for k, w := range m.SkinWeights[i] {
			if w != 0 && int(m.SkinIndices[i][k]) >= len(m.Bones) {
				return fmt.Errorf("vertex %d skin index %d out of range", i, m.SkinIndices[i][k])
			}
			sum += w
		}
		if math32.Abs(sum-1) > 1e-5 {
			return fmt.Errorf("vertex %d skin weights sum to %v", i, sum)
		}
	}
	return nil
}

// ComputeVertexNormals returns area weighted vertex normals, the average of
// adjacent face normals scaled by face area. Vertices with no faces get the zero vector.
func (m *Mesh) ComputeVertexNormals() []ms3.Vec {
	normals := make([]ms3.Vec, len(m.Vertices))
	for i := 0; i < len(m.Indices); i += 3 {
		ia, ib, ic := m.Indices[i], m.Indices[i+1], m.Indices[i+2]
		a, b, c := m.Vertices[ia], m.Vertices[ib], m.Vertices[ic]
		// Cross product magnitude is twice the area which weights the contribution.
		n := ms3.Cross(ms3.Sub(b, a), ms3.Sub(c, a))
		normals[ia] = ms3.Add(normals[ia], n)
		normals[ib] = ms3.Add(normals[ib], n)
		normals[ic] = ms3.Add(normals[ic], n)
	}
	for i, n := range normals {
		if ms3.Norm(n) > 0 {
			normals[i] = ms3.Unit(n)
		}
	}
	return normals
}

// Skin applies linear blend skinning to the mesh vertices and appends the resulting
// positions to dst. boneMatrices is indexed by bone index.
func (m *Mesh) Skin(dst []ms3.Vec, boneMatrices []mgl32.Mat4) ([]ms3.Vec, error) {
	if len(boneMatrices) < len(m.Bones) {
		return dst, fmt.Errorf("got %d bone matrices for %d bones", len(boneMatrices), len(m.Bones))
	}
	for i, v := range m.Vertices {
		p := mgl32.Vec4{v.X, v.Y, v.Z, 1}
		var acc mgl32.Vec4
		for k, w := range m.SkinWeights[i] {
			if w == 0 {
				continue
			}
			bi := int(m.SkinIndices[i][k])
			if bi >= len(boneMatrices) {
				return dst, fmt.Errorf("vertex %d references bone %d without matrix", i, bi)
			}
			acc = acc.Add(boneMatrices[bi].Mul4x1(p).Mul(w))
		}
		dst = append(dst, ms3.Vec{X: acc[0], Y: acc[1], Z: acc[2]})
	}
	return dst, nil
}

// Centroid returns the mean of points. Returns the zero vector for no points.
func Centroid(points []ms3.Vec) ms3.Vec {
	if len(points) == 0 {
		return ms3.Vec{}
	}
	var sum ms3.Vec
	for _, p := range points {
		sum = ms3.Add(sum, p)
	}
	return ms3.Scale(1/float32(len(points)), sum)
}

// The Flat methods lay out attributes as tightly packed arrays ready for GPU upload.

func (m *Mesh) FlatPositions() []float32 {
	flat := make([]float32, 0, 3*len(m.Vertices))
	for _, v := range m.Vertices {
		flat = append(flat, v.X, v.Y, v.Z)
	}
	return flat
}

func (m *Mesh) FlatColors() []float32 {
	flat := make([]float32, 0, 3*len(m.Colors))
	for _, c := range m.Colors {
		flat = append(flat, c.X, c.Y, c.Z)
	}
	return flat
}

func (m *Mesh) FlatUVs() []float32 {
	flat := make([]float32, 0, 2*len(m.UVs))
	for _, uv := range m.UVs {
		flat = append(flat, uv.X, uv.Y)
	}
	return flat
}

func (m *Mesh) FlatSkinIndices() []uint16 {
	flat := make([]uint16, 0, 4*len(m.SkinIndices))
	for _, si := range m.SkinIndices {
		flat = append(flat, si[:]...)
	}
	return flat
}

func (m *Mesh) FlatSkinWeights() []float32 {
	flat := make([]float32, 0, 4*len(m.SkinWeights))
	for _, sw := range m.SkinWeights {
		flat = append(flat, sw[:]...)
	}
	return flat
}
