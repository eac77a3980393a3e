package optics

import (
	"fmt"
	"math"
)

// Polarization is a Jones vector.
type Polarization struct {
	Ex, Ey complex64
}

// Intensity is |Ex|² + |Ey|².
func (p Polarization) Intensity() float32 {
	return real(p.Ex)*real(p.Ex) + imag(p.Ex)*imag(p.Ex) +
		real(p.Ey)*real(p.Ey) + imag(p.Ey)*imag(p.Ey)
}

// LightKind selects a light source polarization preset.
type LightKind uint8

const (
	LightLinearHorizontal LightKind = iota
	LightLinearVertical
	LightLinear45
	LightRightCircular
	LightLeftCircular
)

var lightKeys = [...]string{
	LightLinearHorizontal: "linear_horizontal",
	LightLinearVertical:   "linear_vertical",
	LightLinear45:         "linear_45",
	LightRightCircular:    "right_circular",
	LightLeftCircular:     "left_circular",
}

func (k LightKind) String() string {
	if int(k) < len(lightKeys) {
		return lightKeys[k]
	}
	return fmt.Sprintf("LightKind(%d)", uint8(k))
}

// ParseLight resolves a scene/command identifier.
func ParseLight(s string) (LightKind, error) {
	for i, key := range lightKeys {
		if key == s {
			return LightKind(i), nil
		}
	}
	return 0, fmt.Errorf("optics: unknown light polarization %q", s)
}

// Vector returns the normalized Jones vector for k.
func (k LightKind) Vector() Polarization {
	h := float32(1 / math.Sqrt2)
	switch k {
	case LightLinearVertical:
		return Polarization{Ex: 0, Ey: 1}
	case LightLinear45:
		return Polarization{Ex: complex(h, 0), Ey: complex(h, 0)}
	case LightRightCircular:
		return Polarization{Ex: complex(h, 0), Ey: complex(0, -h)}
	case LightLeftCircular:
		return Polarization{Ex: complex(h, 0), Ey: complex(0, h)}
	default:
		return Polarization{Ex: 1, Ey: 0}
	}
}
