package data

import (
	"encoding/hex"
	"fmt"
	"image/color"
	"math"
	"os"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"

	"github.com/polarlab/polarlab/internal/optics"
	"github.com/polarlab/polarlab/internal/world"
)

// ObjectDef is one named object in a scene file.
type ObjectDef struct {
	Name         string     `yaml:"name"`
	Type         string     `yaml:"type"`
	Center       [3]float32 `yaml:"center"`
	Cell         *[3]int32  `yaml:"cell"`     // point-like target voxel; default floor(center)
	Rotation     [2]float32 `yaml:"rotation"` // yaw, pitch in degrees
	Color        Color      `yaml:"color"`
	Width        *float32   `yaml:"width"`
	Height       *float32   `yaml:"height"`
	Radius       *float32   `yaml:"radius"`
	Polarization string     `yaml:"polarization"` // light sources
	Jones        *JonesDef  `yaml:"jones"`        // optical types
	Wavelength   float32    `yaml:"wavelength"`
	Align        *AlignDef  `yaml:"align"`
}

// JonesDef selects an optics preset. Angles are degrees.
type JonesDef struct {
	Kind        string  `yaml:"kind"`
	Angle       float64 `yaml:"angle"`
	Retardation float64 `yaml:"retardation"`
	Circularity float64 `yaml:"circularity"`
}

// AlignDef links an object to another by name.
type AlignDef struct {
	To       string  `yaml:"to"`
	Axis     string  `yaml:"axis"`
	Distance float32 `yaml:"distance"`
}

// Color accepts "#rrggbb" or [r, g, b] in scene files.
type Color struct {
	color.RGBA
	set bool
}

func (c *Color) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		s := strings.TrimPrefix(n.Value, "#")
		b, err := hex.DecodeString(s)
		if err != nil || len(b) != 3 {
			return fmt.Errorf("line %d: color %q is not #rrggbb", n.Line, n.Value)
		}
		c.RGBA = color.RGBA{R: b[0], G: b[1], B: b[2], A: 255}
	case yaml.SequenceNode:
		var rgb [3]uint8
		if err := n.Decode(&rgb); err != nil {
			return fmt.Errorf("line %d: color: %w", n.Line, err)
		}
		c.RGBA = color.RGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 255}
	default:
		return fmt.Errorf("line %d: color must be a string or list", n.Line)
	}
	c.set = true
	return nil
}

type sceneFile struct {
	Name    string      `yaml:"name"`
	Objects []ObjectDef `yaml:"objects"`
}

// SceneTable holds one parsed scene.
type SceneTable struct {
	name    string
	objects []ObjectDef
	byName  map[string]int
}

// Name is the scene's display name.
func (t *SceneTable) Name() string { return t.name }

// Get returns the named object definition.
func (t *SceneTable) Get(name string) (ObjectDef, bool) {
	i, ok := t.byName[name]
	if !ok {
		return ObjectDef{}, false
	}
	return t.objects[i], true
}

// Count returns the number of objects in the scene.
func (t *SceneTable) Count() int {
	return len(t.objects)
}

// LoadSceneTable loads a scene from a YAML file.
func LoadSceneTable(path string) (*SceneTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene: %w", err)
	}
	return ParseScene(raw)
}

// ParseScene parses and validates scene YAML.
func ParseScene(raw []byte) (*SceneTable, error) {
	var f sceneFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse scene: %w", err)
	}
	t := &SceneTable{name: f.Name, objects: f.Objects, byName: make(map[string]int, len(f.Objects))}
	for i, def := range f.Objects {
		if def.Name == "" {
			return nil, fmt.Errorf("scene object %d: missing name", i)
		}
		if _, dup := t.byName[def.Name]; dup {
			return nil, fmt.Errorf("scene object %q: duplicate name", def.Name)
		}
		t.byName[def.Name] = i
	}
	for _, def := range f.Objects {
		if _, err := def.Object(); err != nil {
			return nil, fmt.Errorf("scene object %q: %w", def.Name, err)
		}
		if a := def.Align; a != nil {
			if _, ok := t.byName[a.To]; !ok {
				return nil, fmt.Errorf("scene object %q: align target %q not found", def.Name, a.To)
			}
			if _, err := world.ParseAxis(a.Axis); err != nil {
				return nil, fmt.Errorf("scene object %q: %w", def.Name, err)
			}
		}
	}
	return t, nil
}

// Object builds the world record for def.
func (def ObjectDef) Object() (world.Object, error) {
	typ, err := world.ParseObjectType(def.Type)
	if err != nil {
		return world.Object{}, err
	}
	o := world.NewObject(typ)
	o.Center = mgl32.Vec3(def.Center)
	o.Rotation = [2]float32{mgl32.DegToRad(def.Rotation[0]), mgl32.DegToRad(def.Rotation[1])}
	if def.Color.set {
		o.Color = def.Color.RGBA
	}
	if def.Width != nil {
		o.Width = *def.Width
	}
	if def.Height != nil {
		o.Height = *def.Height
	}
	if def.Radius != nil {
		o.Radius = *def.Radius
	}
	if def.Wavelength != 0 {
		o.Wavelength = def.Wavelength
	}
	if def.Polarization != "" {
		k, err := optics.ParseLight(def.Polarization)
		if err != nil {
			return world.Object{}, err
		}
		o.Polarization = k.Vector()
	}
	if j := def.Jones; j != nil {
		k, err := optics.ParsePolarizer(j.Kind)
		if err != nil {
			return world.Object{}, err
		}
		o.Jones = optics.Element{
			Kind:        k,
			Angle:       j.Angle * math.Pi / 180,
			Retardation: j.Retardation * math.Pi / 180,
			Circularity: j.Circularity * math.Pi / 180,
		}.Matrix()
	}
	return o, nil
}

func (def ObjectDef) target() [3]int32 {
	if def.Cell != nil {
		return *def.Cell
	}
	return [3]int32{
		int32(math.Floor(float64(def.Center[0]))),
		int32(math.Floor(float64(def.Center[1]))),
		int32(math.Floor(float64(def.Center[2]))),
	}
}

// Apply inserts every object into w, forms the named alignments and resolves
// them once. On failure every object inserted by this call is removed again.
// Returns scene name to registry index.
func (t *SceneTable) Apply(w *world.World) (map[string]uint32, error) {
	index := make(map[string]uint32, len(t.objects))
	inserted := make([]uint32, 0, len(t.objects))
	undo := func() {
		for j := len(inserted) - 1; j >= 0; j-- {
			_ = w.RemoveObject(inserted[j])
		}
	}

	for _, def := range t.objects {
		o, err := def.Object()
		if err != nil {
			undo()
			return nil, fmt.Errorf("scene object %q: %w", def.Name, err)
		}
		i, err := w.InsertObject(def.target(), o)
		if err != nil {
			undo()
			return nil, fmt.Errorf("scene object %q: %w", def.Name, err)
		}
		index[def.Name] = i
		inserted = append(inserted, i)
	}
	for _, def := range t.objects {
		if def.Align == nil {
			continue
		}
		axis, _ := world.ParseAxis(def.Align.Axis)
		if err := w.Align(index[def.Name], index[def.Align.To], axis, def.Align.Distance); err != nil {
			undo()
			return nil, fmt.Errorf("scene object %q: %w", def.Name, err)
		}
	}
	if _, err := w.ResolveAlignments(); err != nil {
		undo()
		return nil, fmt.Errorf("scene %s: resolve alignments: %w", t.name, err)
	}
	return index, nil
}
