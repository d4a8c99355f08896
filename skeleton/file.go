package skeleton

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pelletier/go-toml/v2"
	"github.com/soypat/bonetube"
	"github.com/soypat/geometry/ms3"
	"golang.org/x/image/colornames"
	"gopkg.in/yaml.v3"
)

// Format is a skeleton description file format.
type Format int

const (
	FormatYAML Format = iota + 1
	FormatTOML
)

func (f Format) String() string {
	switch f {
	case FormatYAML:
		return "yaml"
	case FormatTOML:
		return "toml"
	}
	return "Format(" + strconv.Itoa(int(f)) + ")"
}

// FormatFromFilename infers the file format from the filename extension.
func FormatFromFilename(filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	}
	return 0, fmt.Errorf("unknown skeleton file extension %q", filepath.Ext(filename))
}

// File is a decoded skeleton description: tube settings and the bone tree.
type File struct {
	Config bonetube.Config
	Root   *Bone
}

// fileSchema is the on-disk layout. Colors are "#rrggbb", "#rgb" or SVG color names
// and rotations are XYZ Euler angles in degrees.
type fileSchema struct {
	RadialSegments          int       `yaml:"radialSegments" toml:"radialSegments"`
	Width                   float32   `yaml:"width" toml:"width"`
	Color                   string    `yaml:"color" toml:"color"`
	OrientTerminalsToParent bool      `yaml:"orientTerminalsToParent" toml:"orientTerminalsToParent"`
	Root                    *fileBone `yaml:"root" toml:"root"`
}

type fileBone struct {
	Name     string     `yaml:"name" toml:"name"`
	Position []float32  `yaml:"position" toml:"position"`
	Rotation []float32  `yaml:"rotation" toml:"rotation"`
	Width    *float32   `yaml:"width" toml:"width"`
	Color    string     `yaml:"color" toml:"color"`
	Leaf     bool       `yaml:"leaf" toml:"leaf"`
	Children []fileBone `yaml:"children" toml:"children"`
}

// Load reads and decodes a skeleton file, inferring the format from its extension.
func Load(filename string) (*File, error) {
	format, err := FormatFromFilename(filename)
	if err != nil {
		return nil, err
	}
	fp, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	f, err := Decode(fp, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return f, nil
}

// Decode reads a skeleton description in the given format from r.
func Decode(r io.Reader, format Format) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var schema fileSchema
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&schema)
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&schema)
	default:
		return nil, fmt.Errorf("unsupported skeleton format %v", format)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %v skeleton: %w", format, err)
	}
	if schema.Root == nil {
		return nil, errors.New("skeleton file has no root bone")
	}
	file := &File{
		Config: bonetube.Config{
			RadialSegments:          schema.RadialSegments,
			Width:                   schema.Width,
			OrientTerminalsToParent: schema.OrientTerminalsToParent,
		},
	}
	if schema.Color != "" {
		file.Config.Color, err = ParseColor(schema.Color)
		if err != nil {
			return nil, err
		}
	}
	file.Root, err = schema.Root.bone()
	if err != nil {
		return nil, err
	}
	return file, nil
}

func (fb *fileBone) bone() (*Bone, error) {
	b := New(fb.Name)
	b.Leaf = fb.Leaf
	pos, err := vec3(fb.Position)
	if err != nil {
		return nil, fmt.Errorf("bone %q position: %w", fb.Name, err)
	}
	b.Position = ms3.Vec{X: pos[0], Y: pos[1], Z: pos[2]}
	rot, err := vec3(fb.Rotation)
	if err != nil {
		return nil, fmt.Errorf("bone %q rotation: %w", fb.Name, err)
	}
	if rot != (mgl32.Vec3{}) {
		b.Rotation = mgl32.AnglesToQuat(mgl32.DegToRad(rot[0]), mgl32.DegToRad(rot[1]), mgl32.DegToRad(rot[2]), mgl32.XYZ)
	}
	if fb.Width != nil {
		if *fb.Width < 0 {
			return nil, fmt.Errorf("bone %q has negative width %v", fb.Name, *fb.Width)
		}
		b.SetWidth(*fb.Width)
	}
	if fb.Color != "" {
		c, err := ParseColor(fb.Color)
		if err != nil {
			return nil, fmt.Errorf("bone %q: %w", fb.Name, err)
		}
		b.SetColor(c)
	}
	for i := range fb.Children {
		child, err := fb.Children[i].bone()
		if err != nil {
			return nil, err
		}
		err = b.AddChild(child)
		if err != nil {
			return nil, err
		}
	}
	return b, nil
}

// vec3 converts an optional 3 element list. An empty list is the zero vector.
func vec3(v []float32) (mgl32.Vec3, error) {
	switch len(v) {
	case 0:
		return mgl32.Vec3{}, nil
	case 3:
		return mgl32.Vec3{v[0], v[1], v[2]}, nil
	}
	return mgl32.Vec3{}, fmt.Errorf("want 3 components, got %d", len(v))
}

// ParseColor parses "#rrggbb" and "#rgb" hexadecimal colors and SVG 1.1 color names.
func ParseColor(s string) (color.Color, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		c, ok := colornames.Map[strings.ToLower(s)]
		if !ok {
			return nil, fmt.Errorf("unknown color name %q", s)
		}
		return c, nil
	}
	hex := s[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return nil, fmt.Errorf("bad hex color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("bad hex color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}
