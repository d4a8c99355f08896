package bonetube_test

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/soypat/bonetube"
	"github.com/soypat/geometry/ms3"
)

func squareTube(t *testing.T) *bonetube.Mesh {
	t.Helper()
	root := withWidth(node(0, 0, 0), 2)
	withWidth(root.add(node(0, 0, 1)), 2)
	mesh, err := bonetube.Build(root, bonetube.Config{RadialSegments: 4})
	if err != nil {
		t.Fatal(err)
	}
	return mesh
}

func TestEdges(t *testing.T) {
	mesh := squareTube(t)
	edges := mesh.Edges(0)
	// 4 edges per open ring plus 4 edges along the tube. Quad diagonals are coplanar.
	if len(edges) != 12 {
		t.Fatalf("expected 12 edges, got %d: %v", len(edges), edges)
	}
	var rings, lengthwise int
	for _, e := range edges {
		switch {
		case e[0].Z == e[1].Z:
			rings++
		case e[0].X == e[1].X && e[0].Y == e[1].Y:
			lengthwise++
		default:
			t.Errorf("unexpected diagonal edge %v", e)
		}
	}
	if rings != 8 || lengthwise != 4 {
		t.Errorf("got %d ring edges and %d lengthwise edges", rings, lengthwise)
	}
	// Threshold above the 90 degree crease angle hides the lengthwise edges.
	if got := len(mesh.Edges(91)); got != 8 {
		t.Errorf("expected only boundary edges, got %d", got)
	}
	// Edges are deterministic.
	again := mesh.Edges(0)
	for i := range edges {
		if edges[i] != again[i] {
			t.Fatal("edge order changed between calls")
		}
	}
}

func TestComputeVertexNormals(t *testing.T) {
	mesh := squareTube(t)
	normals := mesh.ComputeVertexNormals()
	if len(normals) != mesh.NumVertices() {
		t.Fatalf("got %d normals for %d vertices", len(normals), mesh.NumVertices())
	}
	for i, n := range normals {
		if math32.Abs(ms3.Norm(n)-1) > tol {
			t.Errorf("normal %d not unit: %v", i, n)
		}
		v := mesh.Vertices[i]
		radial := ms3.Vec{X: v.X, Y: v.Y}
		if ms3.Dot(n, radial) <= 0 {
			t.Errorf("normal %d %v points inward at %v", i, n, v)
		}
	}

	single, err := bonetube.Build(node(0, 0, 0), bonetube.Config{})
	if err != nil {
		t.Fatal(err)
	}
	for _, n := range single.ComputeVertexNormals() {
		if n != (ms3.Vec{}) {
			t.Error("expected zero normal for vertex without faces")
		}
	}
}

func TestSkin(t *testing.T) {
	mesh := squareTube(t)
	identity := []mgl32.Mat4{mgl32.Ident4(), mgl32.Ident4()}
	got, err := mesh.Skin(nil, identity)
	if err != nil {
		t.Fatal(err)
	}
	for i := range got {
		if ms3.Norm(ms3.Sub(got[i], mesh.Vertices[i])) > tol {
			t.Errorf("identity skinning moved vertex %d", i)
		}
	}

	moved := []mgl32.Mat4{mgl32.Ident4(), mgl32.Translate3D(0, 0, 2)}
	got, err = mesh.Skin(got[:0], moved)
	if err != nil {
		t.Fatal(err)
	}
	for i := range got {
		want := mesh.Vertices[i]
		if i >= mesh.RadialSegments {
			want.Z += 2
		}
		if ms3.Norm(ms3.Sub(got[i], want)) > tol {
			t.Errorf("vertex %d: got %v, want %v", i, got[i], want)
		}
	}

	_, err = mesh.Skin(nil, identity[:1])
	if err == nil {
		t.Error("expected error for missing bone matrix")
	}
}

func TestMeshAccessors(t *testing.T) {
	mesh := squareTube(t)
	bb := mesh.Bounds()
	if ms3.Norm(ms3.Sub(bb.Min, ms3.Vec{X: -1, Y: -1})) > tol {
		t.Errorf("bad bounds min %v", bb.Min)
	}
	if ms3.Norm(ms3.Sub(bb.Max, ms3.Vec{X: 1, Y: 1, Z: 1})) > tol {
		t.Errorf("bad bounds max %v", bb.Max)
	}
	nv := mesh.NumVertices()
	if len(mesh.FlatPositions()) != 3*nv || len(mesh.FlatColors()) != 3*nv || len(mesh.FlatUVs()) != 2*nv ||
		len(mesh.FlatSkinWeights()) != 4*nv || len(mesh.FlatSkinIndices()) != 4*nv {
		t.Error("flat attribute length mismatch")
	}
	tris := mesh.Triangles()
	if len(tris) != mesh.NumTriangles() || len(tris) != 2*mesh.RadialSegments {
		t.Errorf("got %d triangles", len(tris))
	}
	if (&bonetube.Mesh{}).Bounds() != (ms3.Box{}) {
		t.Error("empty mesh bounds should be zero")
	}
}

func TestCentroid(t *testing.T) {
	if bonetube.Centroid(nil) != (ms3.Vec{}) {
		t.Error("centroid of nothing should be zero")
	}
	got := bonetube.Centroid([]ms3.Vec{{X: 1}, {Y: 2}, {Z: 3}, {X: -1, Y: -2, Z: 1}})
	if ms3.Norm(ms3.Sub(got, ms3.Vec{Z: 1})) > tol {
		t.Errorf("got centroid %v", got)
	}
}

func TestValidateDetectsCorruption(t *testing.T) {
	mesh := squareTube(t)
	mesh.Indices[0] = uint32(mesh.NumVertices())
	if mesh.Validate() == nil {
		t.Error("expected out of range index error")
	}
	mesh = squareTube(t)
	mesh.SkinWeights[0][1] = 0.5
	if mesh.Validate() == nil {
		t.Error("expected skin weight sum error")
	}
	mesh = squareTube(t)
	mesh.Colors = mesh.Colors[1:]
	if mesh.Validate() == nil {
		t.Error("expected attribute length error")
	}
}
