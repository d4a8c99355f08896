package tubeaux

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"testing"

	math "github.com/chewxy/math32"
	"github.com/soypat/bonetube"
	"github.com/soypat/bonetube/glrender"
	"github.com/soypat/bonetube/skeleton"
	"github.com/soypat/geometry/ms3"
)

var blue = color.RGBA{B: 255, A: 255}

func spine(t *testing.T, bones int) *skeleton.Bone {
	t.Helper()
	root := skeleton.New("root")
	parent := root
	for i := 1; i < bones; i++ {
		b := skeleton.New("vertebra")
		b.Position = ms3.Vec{Z: 1}
		err := parent.AddChild(b)
		if err != nil {
			t.Fatal(err)
		}
		parent = b
	}
	return root
}

func TestRender(t *testing.T) {
	root := spine(t, 4)
	root.SetWidth(0.5)
	mesh, err := bonetube.Build(root, bonetube.Config{RadialSegments: 8})
	if err != nil {
		t.Fatal(err)
	}
	var stl, pic bytes.Buffer
	err = Render(mesh, RenderConfig{
		STLOutput:   &stl,
		ImageOutput: &pic,
		ImageWidth:  200,
		ImageHeight: 100,
		Wireframe:   true,
		Label:       true,
		Silent:      true,
	})
	if err != nil {
		t.Fatal(err)
	}
	tris, err := glrender.ReadBinarySTL(&stl)
	if err != nil {
		t.Fatal(err)
	} else if len(tris) != mesh.NumTriangles() {
		t.Errorf("STL has %d triangles, want %d", len(tris), mesh.NumTriangles())
	}
	img, err := png.Decode(&pic)
	if err != nil {
		t.Fatal(err)
	}
	if sz := img.Bounds().Size(); sz.X != 200 || sz.Y != 100 {
		t.Errorf("got image size %v", sz)
	}

	err = Render(mesh, RenderConfig{Silent: true})
	if err == nil {
		t.Error("expected error for missing outputs")
	}
	err = Render(nil, RenderConfig{STLOutput: &stl, Silent: true})
	if err == nil {
		t.Error("expected error for nil mesh")
	}
	mesh.Indices = mesh.Indices[:len(mesh.Indices)-1]
	err = Render(mesh, RenderConfig{STLOutput: &stl, Silent: true})
	if err == nil {
		t.Error("expected error for invalid mesh")
	}
}

func TestDrawLabel(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 120, 40))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	err := DrawLabel(img, "bones 3", 14)
	if err != nil {
		t.Fatal(err)
	}
	var inked int
	for y := 0; y < 40; y++ {
		for x := 0; x < 120; x++ {
			if img.RGBAAt(x, y).R < 128 {
				inked++
			}
		}
	}
	if inked == 0 {
		t.Error("label drew no pixels")
	}
}

func TestColorGradient(t *testing.T) {
	conv := ColorConversionLinearGradient(10, red, blue)
	if got := conv(-1); got != red {
		t.Errorf("below range got %v", got)
	}
	if got := conv(11); got != blue {
		t.Errorf("above range got %v", got)
	}
	if got := conv(math.NaN()); got != red {
		t.Errorf("NaN got %v", got)
	}
	// Red to blue goes the short way around the hue circle through magenta.
	mid := color.RGBAModel.Convert(conv(2.5)).(color.RGBA)
	if mid.R != 255 || mid.G != 0 || mid.B < 126 || mid.B > 129 {
		t.Errorf("quarter gradient got %v", mid)
	}

	gray := ColorConversionLinearGradient(4, color.Black, color.White)
	for _, test := range []struct {
		t    float32
		want uint8
	}{
		{-1, 0}, {0, 0}, {2, 127}, {4, 255}, {9, 255},
	} {
		got := color.GrayModel.Convert(gray(test.t)).(color.Gray)
		if got.Y != test.want {
			t.Errorf("gray(%v)=%d, want %d", test.t, got.Y, test.want)
		}
	}
}

func TestDepthColors(t *testing.T) {
	root := spine(t, 5)
	maxDepth := DepthColors(root, red, blue)
	if maxDepth != 4 {
		t.Fatalf("got max depth %d", maxDepth)
	}
	c, ok := root.Color()
	if !ok || c != red {
		t.Errorf("root color %v", c)
	}
	var last *skeleton.Bone
	root.Walk(func(b *skeleton.Bone, _ int) bool {
		last = b
		return true
	})
	c, ok = last.Color()
	if !ok || c != blue {
		t.Errorf("deepest color %v", c)
	}

	single := skeleton.New("lonely")
	if DepthColors(single, red, blue) != 0 {
		t.Error("single bone depth should be 0")
	}
	c, _ = single.Color()
	if c != red {
		t.Errorf("single bone color %v", c)
	}
}

func TestUIArguments(t *testing.T) {
	err := UI(nil, skeleton.New("root"), UIConfig{})
	if err == nil {
		t.Error("expected error for nil mesh")
	}
}
