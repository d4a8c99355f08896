package glrender

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"slices"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/soypat/bonetube"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/glgl/math/ms1"
	"golang.org/x/image/vector"
)

// ImageRenderer draws flat shaded previews of meshes using an orthographic
// projection along -Z after rotating the mesh by View.
type ImageRenderer struct {
	// View rotates the mesh before projection. The zero value is the identity.
	View mgl32.Quat
	// Background fills the image before drawing. Nil means white.
	Background color.Color
	// EdgeColor draws the mesh's wireframe edges over the shaded faces when not nil.
	EdgeColor color.Color
	// EdgeWidth is the wireframe line width in pixels. Zero means 1.
	EdgeWidth float32
	// Margin is the amount of empty pixels between the mesh and image border.
	Margin int

	z    vector.Rasterizer
	tris []projectedTri
}

type projectedTri struct {
	p     [3]ms2.Vec
	depth float32
	col   color.RGBA
}

// light direction in view space, towards the viewer and up-left.
var lightDir = ms3.Unit(ms3.Vec{X: -0.4, Y: 0.5, Z: 1})

// Render draws the mesh onto img, scaled to fit its bounds. Back facing triangles are culled.
func (ir *ImageRenderer) Render(mesh *bonetube.Mesh, img draw.Image) error {
	if mesh == nil {
		return errors.New("nil mesh")
	}
	bb := img.Bounds()
	if bb.Dx() <= 2*ir.Margin || bb.Dy() <= 2*ir.Margin {
		return errors.New("image too small for margin")
	}
	bg := ir.Background
	if bg == nil {
		bg = color.White
	}
	draw.Draw(img, bb, image.NewUniform(bg), image.Point{}, draw.Src)
	if len(mesh.Vertices) == 0 {
		return nil
	}
	view := ir.View
	if view == (mgl32.Quat{}) {
		view = mgl32.QuatIdent()
	}
	verts := make([]ms3.Vec, len(mesh.Vertices))
	for i, v := range mesh.Vertices {
		verts[i] = rotate(view, v)
	}
	toPixel := fit(verts, bb, ir.Margin)

	ir.tris = ir.tris[:0]
	for i := 0; i < len(mesh.Indices); i += 3 {
		ia, ib, ic := mesh.Indices[i], mesh.Indices[i+1], mesh.Indices[i+2]
		t := ms3.Triangle{verts[ia], verts[ib], verts[ic]}
		n := triangleNormal(t)
		if n.Z <= 0 {
			continue // Facing away from viewer or degenerate.
		}
		base := ms3.Scale(1./3, ms3.Add(ms3.Add(mesh.Colors[ia], mesh.Colors[ib]), mesh.Colors[ic]))
		shade := 0.35 + 0.65*math32.Max(0, ms3.Dot(n, lightDir))
		ir.tris = append(ir.tris, projectedTri{
			p:     [3]ms2.Vec{toPixel(t[0]), toPixel(t[1]), toPixel(t[2])},
			depth: (t[0].Z + t[1].Z + t[2].Z) / 3,
			col:   rgba(ms3.Scale(shade, base)),
		})
	}
	// Painter's algorithm: furthest triangles first.
	slices.SortStableFunc(ir.tris, func(a, b projectedTri) int {
		switch {
		case a.depth < b.depth:
			return -1
		case a.depth > b.depth:
			return 1
		}
		return 0
	})
	for _, t := range ir.tris {
		ir.fill(img, t.p[:], t.col)
	}

	if ir.EdgeColor == nil {
		return nil
	}
	lw := ir.EdgeWidth
	if lw <= 0 {
		lw = 1
	}
	ec := color.RGBAModel.Convert(ir.EdgeColor).(color.RGBA)
	for _, e := range mesh.Edges(0) {
		p0 := toPixel(rotate(view, e[0]))
		p1 := toPixel(rotate(view, e[1]))
		ir.line(img, p0, p1, lw, ec)
	}
	return nil
}

func (ir *ImageRenderer) fill(img draw.Image, poly []ms2.Vec, c color.RGBA) {
	bb := img.Bounds()
	ir.z.Reset(bb.Dx(), bb.Dy())
	ir.z.DrawOp = draw.Over
	ir.z.MoveTo(poly[0].X, poly[0].Y)
	for _, p := range poly[1:] {
		ir.z.LineTo(p.X, p.Y)
	}
	ir.z.ClosePath()
	ir.z.Draw(img, bb, image.NewUniform(c), image.Point{})
}

// line draws a segment as a filled quad of width lw.
func (ir *ImageRenderer) line(img draw.Image, p0, p1 ms2.Vec, lw float32, c color.RGBA) {
	d := ms2.Sub(p1, p0)
	length := ms2.Norm(d)
	if length == 0 {
		return
	}
	off := ms2.Scale(lw/(2*length), ms2.Vec{X: -d.Y, Y: d.X})
	ir.fill(img, []ms2.Vec{ms2.Add(p0, off), ms2.Add(p1, off), ms2.Sub(p1, off), ms2.Sub(p0, off)}, c)
}

// fit returns a function mapping view space positions to pixel coordinates so
// that all of verts fit in bb with margin. Image Y grows downwards.
func fit(verts []ms3.Vec, bb image.Rectangle, margin int) func(ms3.Vec) ms2.Vec {
	minv, maxv := verts[0], verts[0]
	for _, v := range verts[1:] {
		minv = ms3.MinElem(minv, v)
		maxv = ms3.MaxElem(maxv, v)
	}
	w := float32(bb.Dx() - 2*margin)
	h := float32(bb.Dy() - 2*margin)
	sx, sy := maxv.X-minv.X, maxv.Y-minv.Y
	scale := math32.Min(w/math32.Max(sx, 1e-6), h/math32.Max(sy, 1e-6))
	cx, cy := (minv.X+maxv.X)/2, (minv.Y+maxv.Y)/2
	// Rasterizer coordinates are relative to the image bounds origin.
	halfW, halfH := float32(bb.Dx())/2, float32(bb.Dy())/2
	return func(v ms3.Vec) ms2.Vec {
		return ms2.Vec{
			X: halfW + (v.X-cx)*scale,
			Y: halfH - (v.Y-cy)*scale,
		}
	}
}

func rotate(q mgl32.Quat, v ms3.Vec) ms3.Vec {
	r := q.Rotate(mgl32.Vec3{v.X, v.Y, v.Z})
	return ms3.Vec{X: r[0], Y: r[1], Z: r[2]}
}

func rgba(c ms3.Vec) color.RGBA {
	return color.RGBA{
		R: uint8(ms1.Clamp(c.X, 0, 1) * 255),
		G: uint8(ms1.Clamp(c.Y, 0, 1) * 255),
		B: uint8(ms1.Clamp(c.Z, 0, 1) * 255),
		A: 255,
	}
}
