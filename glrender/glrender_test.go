package glrender

import (
	"bytes"
	"image"
	"image/color"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/soypat/bonetube"
	"github.com/soypat/bonetube/skeleton"
	"github.com/soypat/geometry/ms3"
)

func chainMesh(t *testing.T, bones, segments int) *bonetube.Mesh {
	t.Helper()
	root := skeleton.New("b0")
	root.SetWidth(2)
	parent := root
	for i := 1; i < bones; i++ {
		b := skeleton.New("b")
		b.Position = ms3.Vec{Z: 1}
		b.SetWidth(2)
		if err := parent.AddChild(b); err != nil {
			t.Fatal(err)
		}
		parent = b
	}
	mesh, err := bonetube.Build(root, bonetube.Config{RadialSegments: segments})
	if err != nil {
		t.Fatal(err)
	}
	return mesh
}

func TestMeshRenderer(t *testing.T) {
	mesh := chainMesh(t, 40, 16) // 39*32 = 1248 triangles.
	mr, err := NewMeshRenderer(mesh)
	if err != nil {
		t.Fatal(err)
	}
	var buf [100]ms3.Triangle
	var got []ms3.Triangle
	for {
		n, err := mr.ReadTriangles(buf[:])
		got = append(got, buf[:n]...)
		if err == io.EOF {
			break
		} else if err != nil {
			t.Fatal(err)
		}
	}
	want := mesh.Triangles()
	if len(got) != len(want) {
		t.Fatalf("read %d triangles, want %d", len(got), len(want))
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("triangle %d mismatch", i)
		}
	}

	err = mr.Reset(mesh)
	if err != nil {
		t.Fatal(err)
	}
	all, err := RenderAll(mr)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != len(want) {
		t.Errorf("RenderAll read %d triangles, want %d", len(all), len(want))
	}
	if _, err = NewMeshRenderer(nil); err == nil {
		t.Error("expected error for nil mesh")
	}
}

func TestBinarySTL(t *testing.T) {
	mesh := chainMesh(t, 3, 5)
	tris := mesh.Triangles()
	var buf bytes.Buffer
	n, err := WriteBinarySTL(&buf, tris)
	if err != nil {
		t.Fatal(err)
	} else if n != buf.Len() || n != 84+50*len(tris) {
		t.Fatalf("wrote %d bytes, buffer has %d", n, buf.Len())
	}
	// Stored facet normals point away from the tube axis.
	raw := buf.Bytes()[84:]
	for i, tri := range tris {
		normal := getVec(raw[50*i:])
		c := bonetube.Centroid(tri[:])
		if ms3.Dot(normal, ms3.Vec{X: c.X, Y: c.Y}) <= 0 {
			t.Errorf("facet %d normal %v points inward", i, normal)
		}
	}
	got, err := ReadBinarySTL(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(tris) {
		t.Fatalf("read %d triangles, want %d", len(got), len(tris))
	}
	for i := range got {
		if got[i] != tris[i] {
			t.Errorf("triangle %d: got %v, want %v", i, got[i], tris[i])
		}
	}

	_, err = ReadBinarySTL(bytes.NewReader(make([]byte, 40)))
	if err == nil {
		t.Error("expected short header error")
	}
}

func TestASCIISTL(t *testing.T) {
	mesh := chainMesh(t, 2, 3)
	var buf bytes.Buffer
	err := WriteASCIISTL(&buf, "tube", mesh.Triangles())
	if err != nil {
		t.Fatal(err)
	}
	s := buf.String()
	if !strings.HasPrefix(s, "solid tube\n") || !strings.HasSuffix(s, "endsolid tube\n") {
		t.Error("missing solid delimiters")
	}
	if got := strings.Count(s, "facet normal"); got != mesh.NumTriangles() {
		t.Errorf("got %d facets, want %d", got, mesh.NumTriangles())
	}
	if got := strings.Count(s, "vertex "); got != 3*mesh.NumTriangles() {
		t.Errorf("got %d vertices", got)
	}
}

func TestImageRenderer(t *testing.T) {
	mesh := chainMesh(t, 2, 4)
	bg := color.RGBA{R: 10, G: 200, B: 10, A: 255}
	ir := ImageRenderer{
		// Tube axis becomes image up, faces with -Y normals face the viewer.
		View:       mgl32.QuatRotate(-math.Pi/2, mgl32.Vec3{1, 0, 0}),
		Background: bg,
		Margin:     4,
	}
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	err := ir.Render(mesh, img)
	if err != nil {
		t.Fatal(err)
	}
	if img.RGBAAt(0, 0) != bg || img.RGBAAt(63, 63) != bg {
		t.Error("expected background at corners")
	}
	inside := img.RGBAAt(20, 32)
	if inside == bg {
		t.Error("expected tube face at image center")
	}
	if inside.R != inside.G || inside.G != inside.B {
		t.Errorf("black tube should shade to gray, got %v", inside)
	}

	// Viewed along the tube axis every face is seen edge on and culled.
	ir.View = mgl32.QuatIdent()
	err = ir.Render(mesh, img)
	if err != nil {
		t.Fatal(err)
	}
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			if img.RGBAAt(x, y) != bg {
				t.Fatalf("pixel (%d,%d) drawn for culled faces", x, y)
			}
		}
	}

	// Wireframe edges are drawn even when faces are culled.
	ir.EdgeColor = color.RGBA{R: 255, A: 255}
	err = ir.Render(mesh, img)
	if err != nil {
		t.Fatal(err)
	}
	var red int
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			if c := img.RGBAAt(x, y); c.R > c.G {
				red++
			}
		}
	}
	if red == 0 {
		t.Error("expected wireframe pixels")
	}

	err = ir.Render(mesh, image.NewRGBA(image.Rect(0, 0, 8, 8)))
	if err == nil {
		t.Error("expected margin error")
	}
}

func TestRGBAClamps(t *testing.T) {
	for _, test := range []struct {
		in   ms3.Vec
		want color.RGBA
	}{
		{in: ms3.Vec{X: -1, Y: 0.5, Z: 2}, want: color.RGBA{G: 127, B: 255, A: 255}},
		{in: ms3.Vec{X: 1, Y: 0, Z: 1e9}, want: color.RGBA{R: 255, B: 255, A: 255}},
		{in: ms3.Vec{}, want: color.RGBA{A: 255}},
	} {
		got := rgba(test.in)
		if got != test.want {
			t.Errorf("rgba(%v)=%v, want %v", test.in, got, test.want)
		}
	}
}
