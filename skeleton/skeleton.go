// Package skeleton implements a bone hierarchy with local transforms that can be
// fed to the tube builder and animated by changing bone rotations.
package skeleton

import (
	"errors"
	"image/color"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/soypat/bonetube"
	"github.com/soypat/geometry/ms3"
)

var _ bonetube.Node = (*Bone)(nil)

// Bone is a node of a skeleton. Position and Rotation are relative to the parent bone.
type Bone struct {
	Name     string
	Position ms3.Vec
	Rotation mgl32.Quat
	// Leaf marks a child that is an attachment point and not part of the tube.
	Leaf bool

	width    float32
	hasWidth bool
	color    color.Color
	parent   *Bone
	children []*Bone
}

// New returns a bone with identity rotation at the parent's origin.
func New(name string) *Bone {
	return &Bone{Name: name, Rotation: mgl32.QuatIdent()}
}

// AddChild attaches child to b. The child must not have a parent and must not be an ancestor of b.
func (b *Bone) AddChild(child *Bone) error {
	switch {
	case child == nil:
		return errors.New("nil child bone")
	case child.parent != nil:
		return errors.New("bone " + child.Name + " already has parent " + child.parent.Name)
	}
	for anc := b; anc != nil; anc = anc.parent {
		if anc == child {
			return errors.New("adding bone " + child.Name + " would create a cycle")
		}
	}
	child.parent = b
	b.children = append(b.children, child)
	return nil
}

// Detach removes b from its parent's children. It is a no-op for root bones.
func (b *Bone) Detach() {
	p := b.parent
	if p == nil {
		return
	}
	for i, c := range p.children {
		if c == b {
			p.children = append(p.children[:i], p.children[i+1:]...)
			break
		}
	}
	b.parent = nil
}

func (b *Bone) Parent() *Bone     { return b.parent }
func (b *Bone) Children() []*Bone { return b.children }

// NumChildren returns the amount of children, leaves included. A nil bone has none.
func (b *Bone) NumChildren() int {
	if b == nil {
		return 0
	}
	return len(b.children)
}

// IsBone reports whether b is part of the tube. Leaves and nil bones are not.
func (b *Bone) IsBone() bool { return b != nil && !b.Leaf }

func (b *Bone) Child(i int) bonetube.Node { return b.children[i] }

// SetColor overrides the vertex color of the bone's ring. A nil color clears the override.
func (b *Bone) SetColor(c color.Color) { b.color = c }

// SetWidth overrides the tube diameter at this bone. A negative width clears the override.
func (b *Bone) SetWidth(w float32) {
	b.width = w
	b.hasWidth = w >= 0
}

func (b *Bone) Width() (float32, bool) { return b.width, b.hasWidth }

func (b *Bone) Color() (color.Color, bool) { return b.color, b.color != nil }

// WorldRotation returns the rotation of the bone accumulated from the root.
func (b *Bone) WorldRotation() mgl32.Quat {
	_, q := b.worldTransform()
	return q
}

// WorldPosition returns the position of the bone accumulated from the root.
func (b *Bone) WorldPosition() ms3.Vec {
	p, _ := b.worldTransform()
	return p
}

// WorldMatrix returns the bone to world transform.
func (b *Bone) WorldMatrix() mgl32.Mat4 {
	p, q := b.worldTransform()
	return mgl32.Translate3D(p.X, p.Y, p.Z).Mul4(q.Mat4())
}

// worldTransform composes the local transforms from b up to the root in a single
// pass over the ancestors, applying each parent to the transform accumulated below it.
func (b *Bone) worldTransform() (ms3.Vec, mgl32.Quat) {
	p := mgl32.Vec3{b.Position.X, b.Position.Y, b.Position.Z}
	q := b.Rotation
	for a := b.parent; a != nil; a = a.parent {
		p = a.Rotation.Rotate(p).Add(mgl32.Vec3{a.Position.X, a.Position.Y, a.Position.Z})
		q = a.Rotation.Mul(q)
	}
	return ms3.Vec{X: p[0], Y: p[1], Z: p[2]}, q
}

// Walk calls fn for b and all its descendants depth first. Returning false from fn skips the bone's children.
func (b *Bone) Walk(fn func(bone *Bone, depth int) bool) {
	b.walk(fn, 0)
}

func (b *Bone) walk(fn func(*Bone, int) bool, depth int) {
	if !fn(b, depth) {
		return
	}
	for _, c := range b.children {
		c.walk(fn, depth+1)
	}
}

// Find returns the first bone named name in depth first order, or nil if not found.
func (b *Bone) Find(name string) *Bone {
	var found *Bone
	b.Walk(func(bone *Bone, _ int) bool {
		if found == nil && bone.Name == name {
			found = bone
		}
		return found == nil
	})
	return found
}

// Count returns the amount of bones in the tree rooted at b, leaves included.
func (b *Bone) Count() (n int) {
	b.Walk(func(*Bone, int) bool { n++; return true })
	return n
}
