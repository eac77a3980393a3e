// Package optics builds the polarization state of light sources and the Jones
// matrices of optical elements. The results are carried on world objects and
// read only by the renderer.
package optics

import (
	"fmt"
	"math"
	"math/cmplx"
)

// Jones is a 2x2 complex matrix indexed [row][col].
type Jones [2][2]complex64

// Identity passes light through unchanged.
var Identity = Jones{{1, 0}, {0, 1}}

// Apply transforms a polarization state.
func (j Jones) Apply(p Polarization) Polarization {
	return Polarization{
		Ex: j[0][0]*p.Ex + j[0][1]*p.Ey,
		Ey: j[1][0]*p.Ex + j[1][1]*p.Ey,
	}
}

// Mul returns j·o (o is applied first).
func (j Jones) Mul(o Jones) Jones {
	var r Jones
	for i := 0; i < 2; i++ {
		for k := 0; k < 2; k++ {
			r[i][k] = j[i][0]*o[0][k] + j[i][1]*o[1][k]
		}
	}
	return r
}

// ColumnMajor returns the four entries in the order the shader indexes them.
func (j Jones) ColumnMajor() [4]complex64 {
	return [4]complex64{j[0][0], j[1][0], j[0][1], j[1][1]}
}

// PolarizerKind selects a Jones matrix preset.
type PolarizerKind uint8

const (
	LinearHorizontal PolarizerKind = iota
	LinearVertical
	Linear45
	LinearTheta
	RightCircular
	LeftCircular
	QuarterWaveFastVertical
	QuarterWaveFastHorizontal
	QuarterWaveFastTheta
	HalfWaveRotatedTheta
	HalfWaveFastTheta
	LinearRetarderTheta
	EllipticalRetarderTheta
)

var polarizerNames = [...]struct{ key, label string }{
	LinearHorizontal:          {"linear_horizontal", "Linear horizontal"},
	LinearVertical:            {"linear_vertical", "Linear vertical"},
	Linear45:                  {"linear_45", "Linear rotated 45 degrees"},
	LinearTheta:               {"linear_theta", "Linear rotated θ"},
	RightCircular:             {"right_circular", "Right circular"},
	LeftCircular:              {"left_circular", "Left circular"},
	QuarterWaveFastVertical:   {"quarter_wave_vertical", "Quarter-wave plate, fast axis vertical"},
	QuarterWaveFastHorizontal: {"quarter_wave_horizontal", "Quarter-wave plate, fast axis horizontal"},
	QuarterWaveFastTheta:      {"quarter_wave_theta", "Quarter-wave plate, fast axis at θ"},
	HalfWaveRotatedTheta:      {"half_wave_rotated", "Half-wave plate rotated by θ"},
	HalfWaveFastTheta:         {"half_wave_theta", "Half-wave plate, fast axis at θ"},
	LinearRetarderTheta:       {"linear_retarder", "General waveplate (linear phase retarder)"},
	EllipticalRetarderTheta:   {"elliptical_retarder", "Arbitrary birefringent material (elliptical phase retarder)"},
}

func (k PolarizerKind) String() string {
	if int(k) < len(polarizerNames) {
		return polarizerNames[k].label
	}
	return fmt.Sprintf("PolarizerKind(%d)", uint8(k))
}

// Key is the identifier used in scene files and commands.
func (k PolarizerKind) Key() string {
	if int(k) < len(polarizerNames) {
		return polarizerNames[k].key
	}
	return ""
}

// ParsePolarizer resolves a scene/command identifier.
func ParsePolarizer(s string) (PolarizerKind, error) {
	for i, n := range polarizerNames {
		if n.key == s {
			return PolarizerKind(i), nil
		}
	}
	return 0, fmt.Errorf("optics: unknown polarizer %q", s)
}

// Element parameters. Angle is the fast/transmission axis from horizontal,
// Retardation the relative phase η, Circularity the ellipticity φ. All radians.
type Element struct {
	Kind        PolarizerKind
	Angle       float64
	Retardation float64
	Circularity float64
}

// Matrix builds the Jones matrix for e.
func (e Element) Matrix() Jones {
	c, s := math.Cos(e.Angle), math.Sin(e.Angle)
	cc, ss, cs := complex(c*c, 0), complex(s*s, 0), complex(c*s, 0)
	i := complex(0, 1)

	var m [2][2]complex128
	switch e.Kind {
	case LinearHorizontal:
		m = [2][2]complex128{{1, 0}, {0, 0}}
	case LinearVertical:
		m = [2][2]complex128{{0, 0}, {0, 1}}
	case Linear45:
		m = scale([2][2]complex128{{1, 1}, {1, 1}}, 0.5)
	case LinearTheta:
		m = [2][2]complex128{{cc, cs}, {cs, ss}}
	case RightCircular:
		m = scale([2][2]complex128{{1, i}, {-i, 1}}, 0.5)
	case LeftCircular:
		m = scale([2][2]complex128{{1, -i}, {i, 1}}, 0.5)
	case QuarterWaveFastVertical:
		m = scale([2][2]complex128{{1, 0}, {0, -i}}, cmplx.Exp(i*math.Pi/4))
	case QuarterWaveFastHorizontal:
		m = scale([2][2]complex128{{1, 0}, {0, i}}, cmplx.Exp(-i*math.Pi/4))
	case QuarterWaveFastTheta:
		off := (1 - i) * cs
		m = scale([2][2]complex128{{cc + i*ss, off}, {off, ss + i*cc}}, cmplx.Exp(-i*math.Pi/4))
	case HalfWaveRotatedTheta:
		c2, s2 := complex(math.Cos(2*e.Angle), 0), complex(math.Sin(2*e.Angle), 0)
		m = [2][2]complex128{{c2, s2}, {s2, -c2}}
	case HalfWaveFastTheta:
		m = scale([2][2]complex128{{cc - ss, 2 * cs}, {2 * cs, ss - cc}}, cmplx.Exp(-i*math.Pi/2))
	case LinearRetarderTheta:
		m = retarder(cc, ss, cs, e.Retardation, 0)
	case EllipticalRetarderTheta:
		m = retarder(cc, ss, cs, e.Retardation, e.Circularity)
	default:
		return Identity
	}
	return toJones(m)
}

// retarder is the general elliptical retarder; phi == 0 gives the linear one.
func retarder(cc, ss, cs complex128, eta, phi float64) [2][2]complex128 {
	i := complex(0, 1)
	en := cmplx.Exp(i * complex(eta, 0))
	off := (1 - en) * cs
	m := [2][2]complex128{
		{cc + en*ss, off * cmplx.Exp(-i*complex(phi, 0))},
		{off * cmplx.Exp(i*complex(phi, 0)), ss + en*cc},
	}
	return scale(m, cmplx.Exp(-i*complex(eta/2, 0)))
}

func scale(m [2][2]complex128, f complex128) [2][2]complex128 {
	for r := range m {
		for c := range m[r] {
			m[r][c] *= f
		}
	}
	return m
}

func toJones(m [2][2]complex128) Jones {
	return Jones{
		{complex64(m[0][0]), complex64(m[0][1])},
		{complex64(m[1][0]), complex64(m[1][1])},
	}
}
