//go:build tinygo || !cgo

package tubeaux

import (
	"errors"

	"github.com/soypat/bonetube"
	"github.com/soypat/bonetube/skeleton"
)

func ui(mesh *bonetube.Mesh, root *skeleton.Bone, cfg UIConfig) error {
	return errors.New("require cgo for UI rendering")
}
