package skeleton

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/soypat/bonetube"
)

// Transformer is implemented by nodes that expose a bone to world transform.
type Transformer interface {
	WorldMatrix() mgl32.Mat4
}

// BindInverse returns the inverse world matrices of bones in their current (bind) pose.
// bones is usually [bonetube.Mesh.Bones] and every node must implement [Transformer].
func BindInverse(bones []bonetube.Node) ([]mgl32.Mat4, error) {
	inv := make([]mgl32.Mat4, len(bones))
	for i, node := range bones {
		t, ok := node.(Transformer)
		if !ok {
			return nil, fmt.Errorf("bone %d of type %T has no world matrix", i, node)
		}
		m := t.WorldMatrix()
		if mgl32.Abs(m.Det()) < 1e-12 {
			return nil, fmt.Errorf("bone %d world matrix is singular", i)
		}
		inv[i] = m.Inv()
	}
	return inv, nil
}

// SkinMatrices appends to dst the skinning matrices of bones in their current pose, the
// world matrix times the bind inverse. The result is indexed by bone index.
func SkinMatrices(dst []mgl32.Mat4, bones []bonetube.Node, bindInverse []mgl32.Mat4) ([]mgl32.Mat4, error) {
	if len(bindInverse) != len(bones) {
		return dst, fmt.Errorf("got %d bind matrices for %d bones", len(bindInverse), len(bones))
	}
	for i, node := range bones {
		t, ok := node.(Transformer)
		if !ok {
			return dst, fmt.Errorf("bone %d of type %T has no world matrix", i, node)
		}
		dst = append(dst, t.WorldMatrix().Mul4(bindInverse[i]))
	}
	return dst, nil
}
