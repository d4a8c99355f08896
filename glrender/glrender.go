package glrender

import (
	"errors"
	"io"

	"github.com/soypat/bonetube"
	"github.com/soypat/geometry/ms3"
)

type Renderer interface {
	ReadTriangles(dst []ms3.Triangle) (n int, err error)
}

// RenderAll reads the full contents of a Renderer and returns the slice read.
// It does not return error on io.EOF, like the io.RenderAll implementation.
func RenderAll(r Renderer) ([]ms3.Triangle, error) {
	const startSize = 4096
	var err error
	var nt int
	result := make([]ms3.Triangle, 0, startSize)
	buf := make([]ms3.Triangle, startSize)
	for {
		nt, err = r.ReadTriangles(buf)
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

// MeshRenderer streams the triangles of a [bonetube.Mesh] in index order.
type MeshRenderer struct {
	mesh *bonetube.Mesh
	next int
}

// NewMeshRenderer returns a Renderer over mesh's triangles.
func NewMeshRenderer(mesh *bonetube.Mesh) (*MeshRenderer, error) {
	var mr MeshRenderer
	err := mr.Reset(mesh)
	if err != nil {
		return nil, err
	}
	return &mr, nil
}

// Reset switches the renderer to a new mesh and rewinds it.
func (mr *MeshRenderer) Reset(mesh *bonetube.Mesh) error {
	if mesh == nil {
		return errors.New("nil mesh")
	} else if len(mesh.Indices)%3 != 0 {
		return errors.New("mesh index count not multiple of 3")
	}
	mr.mesh = mesh
	mr.next = 0
	return nil
}

// ReadTriangles fills dst with the next triangles of the mesh. It returns io.EOF once all triangles are read.
func (mr *MeshRenderer) ReadTriangles(dst []ms3.Triangle) (n int, err error) {
	nt := mr.mesh.NumTriangles()
	if mr.next >= nt {
		return 0, io.EOF
	}
	for n < len(dst) && mr.next < nt {
		dst[n] = mr.mesh.Triangle(mr.next)
		n++
		mr.next++
	}
	return n, nil
}

// triangleNormal returns the unit normal of t following its winding. Degenerate triangles yield the zero vector.
func triangleNormal(t ms3.Triangle) ms3.Vec {
	n := ms3.Cross(ms3.Sub(t[1], t[0]), ms3.Sub(t[2], t[0]))
	if ms3.Norm(n) == 0 {
		return ms3.Vec{}
	}
	return ms3.Unit(n)
}
