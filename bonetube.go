package bonetube

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
)

const (
	tau = 2 * math32.Pi
	// DefaultRadialSegments is the amount of vertices per ring when Config.RadialSegments is zero.
	DefaultRadialSegments = 4
	// DefaultWidth is the tube diameter used when Config.Width is zero and a node has no width.
	DefaultWidth = 0.1
)

var (
	// ErrInvalidConfig is returned for explicitly invalid Config values. Zero valued
	// fields are not invalid: they select DefaultRadialSegments, DefaultWidth and black.
	ErrInvalidConfig = errors.New("invalid tube configuration")
	// ErrEmptyTree is returned for a nil root or a root that is not a bone and has no bone children.
	ErrEmptyTree    = errors.New("empty bone tree")
	ErrCyclicTree   = errors.New("node visited twice; tree contains a cycle or shared node")
	ErrTooManyBones = errors.New("bone count exceeds 16 bit skin index")
)

// Node is a member of an externally owned skeleton. The builder only reads from nodes
// and uses the Node value as a map key, so implementations must be comparable (usually pointers).
// Pointer implementations that may be passed as a nil root should report IsBone false and
// no children for a nil receiver so that Build returns [ErrEmptyTree].
type Node interface {
	WorldPosition() ms3.Vec
	WorldRotation() mgl32.Quat
	NumChildren() int
	Child(i int) Node
	// IsBone reports whether the node is traversed. Children that are not
	// bones are ignored by the builder.
	IsBone() bool
	// Width returns the tube diameter override for the node, if any.
	Width() (float32, bool)
	// Color returns the vertex color override for the node, if any.
	Color() (color.Color, bool)
}

// Config controls tube generation. The zero value is valid and yields the defaults.
type Config struct {
	// RadialSegments is the amount of vertices in each ring. Must be at least 3. Zero means [DefaultRadialSegments].
	RadialSegments int
	// Width is the fallback tube diameter. Zero means [DefaultWidth].
	Width float32
	// Color is the fallback vertex color. Nil means black.
	Color color.Color
	// OrientTerminalsToParent orients rings of terminal bones with their parent's world
	// rotation instead of their own so that a twisted leaf does not squash the tube end.
	OrientTerminalsToParent bool
}

func (cfg Config) withDefaults() (Config, error) {
	var errs []error
	switch {
	case cfg.RadialSegments == 0:
		cfg.RadialSegments = DefaultRadialSegments
	case cfg.RadialSegments < 3:
		errs = append(errs, fmt.Errorf("%w: need at least 3 radial segments, got %d", ErrInvalidConfig, cfg.RadialSegments))
	}
	switch {
	case cfg.Width == 0:
		cfg.Width = DefaultWidth
	case cfg.Width < 0 || math32.IsNaN(cfg.Width) || math32.IsInf(cfg.Width, 0):
		errs = append(errs, fmt.Errorf("%w: width must be positive and finite, got %v", ErrInvalidConfig, cfg.Width))
	}
	if cfg.Color == nil {
		cfg.Color = color.Black
	}
	return cfg, errors.Join(errs...)
}

// Build generates a tube mesh following the skeleton rooted at root. It is safe for concurrent use.
func Build(root Node, cfg Config) (*Mesh, error) {
	var bld Builder
	return bld.Build(root, cfg)
}

// Builder generates tube meshes from skeletons. It reuses its traversal buffers between
// calls to Build, so a Builder must not be used from several goroutines at once.
type Builder struct {
	queue []queued
	// seen maps nodes to their bone index. Nodes are inserted when queued
	// so a second encounter means the input is not a tree.
	seen map[Node]int
}

type queued struct {
	node   Node
	parent Node
}

// Build walks the bone tree rooted at root breadth first and returns one ring of
// cfg.RadialSegments vertices per visited node, with consecutive rings stitched into a tube.
// The input tree is not modified. A lone bone root yields a single ring and no triangles.
func (bld *Builder) Build(root Node, cfg Config) (*Mesh, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	if root == nil || !root.IsBone() && !hasBoneChild(root) {
		return nil, ErrEmptyTree
	}
	if bld.seen == nil {
		bld.seen = make(map[Node]int)
	} else {
		clear(bld.seen)
	}
	defer bld.reset()
	n := cfg.RadialSegments
	defaultColor := colorToVec(cfg.Color)
	defaultRadius := cfg.Width / 2
	mesh := &Mesh{RadialSegments: n}

	bld.queue = append(bld.queue[:0], queued{node: root})
	bld.seen[root] = -1
	for head := 0; head < len(bld.queue); head++ {
		q := bld.queue[head]
		node := q.node
		isTerminator := true
		for i := 0; i < node.NumChildren(); i++ {
			child := node.Child(i)
			if child == nil || !child.IsBone() {
				continue
			}
			if _, dup := bld.seen[child]; dup {
				return nil, fmt.Errorf("%w: at bone %d", ErrCyclicTree, len(mesh.Bones))
			}
			bld.seen[child] = -1
			bld.queue = append(bld.queue, queued{node: child, parent: node})
			isTerminator = false
		}

		radius := defaultRadius
		if w, ok := node.Width(); ok {
			radius = w / 2
		}
		col := defaultColor
		if c, ok := node.Color(); ok && c != nil {
			col = colorToVec(c)
		}
		rot := node.WorldRotation()
		if cfg.OrientTerminalsToParent && isTerminator && q.parent != nil {
			rot = q.parent.WorldRotation()
		}
		pos := node.WorldPosition()

		if len(mesh.Bones) > math.MaxUint16 {
			return nil, ErrTooManyBones
		}
		mesh.Bones = append(mesh.Bones, node)
		boneIndex := len(mesh.Bones) - 1
		bld.seen[node] = boneIndex
		ringStart := uint32(len(mesh.Vertices))
		for i := 0; i < n; i++ {
			theta := float32(i) / float32(n) * tau
			x := math32.Sin(theta) * radius
			y := math32.Cos(theta) * radius
			v := rot.Rotate(mgl32.Vec3{x, y, 0})
			mesh.Vertices = append(mesh.Vertices, ms3.Add(pos, ms3.Vec{X: v[0], Y: v[1], Z: v[2]}))
			mesh.Colors = append(mesh.Colors, col)
			mesh.UVs = append(mesh.UVs, ms2.Vec{X: x / float32(n), Y: 1})
			mesh.SkinIndices = append(mesh.SkinIndices, [4]uint16{uint16(boneIndex)})
			mesh.SkinWeights = append(mesh.SkinWeights, [4]float32{1})
		}

		if q.parent == nil {
			continue // Root ring has nothing to connect to.
		}
		parentStart := uint32(bld.seen[q.parent] * n)
		for x := 0; x < n; x++ {
			next := (x + 1) % n
			a := ringStart + uint32(x)
			b := parentStart + uint32(x)
			c := parentStart + uint32(next)
			d := ringStart + uint32(next)
			mesh.Indices = append(mesh.Indices, a, d, b, d, c, b)
		}
	}
	return mesh, nil
}

func hasBoneChild(node Node) bool {
	for i := 0; i < node.NumChildren(); i++ {
		if child := node.Child(i); child != nil && child.IsBone() {
			return true
		}
	}
	return false
}

func (bld *Builder) reset() {
	// Drop node references so the builder does not keep skeletons alive.
	clear(bld.queue)
	bld.queue = bld.queue[:0]
	clear(bld.seen)
}

// colorToVec converts c to non-premultiplied RGB components in [0,1].
func colorToVec(c color.Color) ms3.Vec {
	nc := color.NRGBA64Model.Convert(c).(color.NRGBA64)
	return ms3.Vec{
		X: float32(nc.R) / math.MaxUint16,
		Y: float32(nc.G) / math.MaxUint16,
		Z: float32(nc.B) / math.MaxUint16,
	}
}
