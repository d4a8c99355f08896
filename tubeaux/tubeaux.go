package tubeaux

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"os"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"github.com/soypat/bonetube"
	"github.com/soypat/bonetube/glrender"
	"github.com/soypat/bonetube/skeleton"
	"golang.org/x/image/font/gofont/goregular"
)

type RenderConfig struct {
	STLOutput io.Writer
	// ImageOutput receives a PNG preview of the mesh.
	ImageOutput io.Writer
	// ImageWidth and ImageHeight default to 512.
	ImageWidth, ImageHeight int
	// View rotates the mesh before the preview is projected along -Z.
	View mgl32.Quat
	// Wireframe draws the mesh feature edges over the preview.
	Wireframe bool
	// Label writes vertex, triangle and bone counts on the preview.
	Label  bool
	Silent bool
}

type UIConfig struct {
	Width, Height int
	// Context stops the UI when done. May be nil.
	Context context.Context
	// Animate is called every frame with the seconds elapsed since start
	// and may pose the skeleton. Bone hierarchy must not change.
	Animate func(root *skeleton.Bone, t float64)
}

// Render is an auxiliary function to aid users in getting setup in using bonetube quickly.
// Ideally users should implement their own output functions since applications may vary widely.
func Render(mesh *bonetube.Mesh, cfg RenderConfig) (err error) {
	if cfg.STLOutput == nil && cfg.ImageOutput == nil {
		return errors.New("Render requires output parameter in config")
	} else if mesh == nil {
		return errors.New("nil mesh")
	}
	log := func(args ...any) {
		if !cfg.Silent {
			fmt.Println(args...)
		}
	}
	watch := stopwatch()
	err = mesh.Validate()
	if err != nil {
		return fmt.Errorf("invalid mesh: %w", err)
	}
	log("mesh has", mesh.NumVertices(), "vertices,", mesh.NumTriangles(), "triangles and", len(mesh.Bones), "bones, validated in", watch())

	if cfg.STLOutput != nil {
		watch = stopwatch()
		renderer, err := glrender.NewMeshRenderer(mesh)
		if err != nil {
			return err
		}
		triangles, err := glrender.RenderAll(renderer)
		if err != nil {
			return fmt.Errorf("reading triangles: %w", err)
		}
		_, err = glrender.WriteBinarySTL(cfg.STLOutput, triangles)
		if err != nil {
			return fmt.Errorf("writing STL file: %w", err)
		}
		log("wrote", outputName(cfg.STLOutput, "STL"), "in", watch())
	}

	if cfg.ImageOutput != nil {
		watch = stopwatch()
		width, height := cfg.ImageWidth, cfg.ImageHeight
		if width <= 0 {
			width = 512
		}
		if height <= 0 {
			height = 512
		}
		img := image.NewRGBA(image.Rect(0, 0, width, height))
		ir := glrender.ImageRenderer{
			View:   cfg.View,
			Margin: min(width, height) / 16,
		}
		if cfg.Wireframe {
			ir.EdgeColor = color.RGBA{R: 30, G: 30, B: 200, A: 255}
		}
		err = ir.Render(mesh, img)
		if err != nil {
			return fmt.Errorf("rendering preview: %w", err)
		}
		if cfg.Label {
			text := fmt.Sprintf("%d verts  %d tris  %d bones", mesh.NumVertices(), mesh.NumTriangles(), len(mesh.Bones))
			err = DrawLabel(img, text, 12)
			if err != nil {
				return err
			}
		}
		err = png.Encode(cfg.ImageOutput, img)
		if err != nil {
			return fmt.Errorf("encoding PNG: %w", err)
		}
		log("wrote", outputName(cfg.ImageOutput, "PNG preview"), "in", watch())
	}
	return nil
}

// UI opens a window showing mesh skinned by the current pose of the skeleton under root.
// Drag with the left mouse button to orbit and scroll to zoom. Requires cgo.
func UI(mesh *bonetube.Mesh, root *skeleton.Bone, cfg UIConfig) error {
	if mesh == nil || root == nil {
		return errors.New("nil mesh or skeleton")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = 800, 600
	}
	return ui(mesh, root, cfg)
}

var goFont = sync.OnceValues(func() (*truetype.Font, error) {
	return truetype.Parse(goregular.TTF)
})

// DrawLabel writes text in black on the top left corner of img using the Go regular font.
func DrawLabel(img draw.Image, text string, size float64) error {
	f, err := goFont()
	if err != nil {
		return fmt.Errorf("parsing font: %w", err)
	}
	c := freetype.NewContext()
	c.SetDPI(72)
	c.SetFont(f)
	c.SetFontSize(size)
	c.SetClip(img.Bounds())
	c.SetDst(img)
	c.SetSrc(image.Black)
	origin := img.Bounds().Min
	pt := freetype.Pt(origin.X+4, origin.Y+4+int(c.PointToFixed(size)>>6))
	_, err = c.DrawString(text, pt)
	return err
}

func outputName(w io.Writer, fallback string) string {
	if fp, ok := w.(*os.File); ok {
		return fp.Name()
	}
	return fallback
}

func stopwatch() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start)
	}
}
