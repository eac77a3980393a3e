package world

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// Align makes dep follow anchor at distance along axis. An anchor holds at
// most one dependent; a dependent already following another anchor is moved.
func (r *Registry) Align(dep, anchor uint32, axis Axis, distance float32) error {
	if dep == anchor {
		return fmt.Errorf("align %d to itself: %w", dep, ErrInvalidAlignment)
	}
	if !r.Alive(dep) {
		return fmt.Errorf("align dependent %d: %w", dep, ErrNoObject)
	}
	if !r.Alive(anchor) {
		return fmt.Errorf("align anchor %d: %w", anchor, ErrNoObject)
	}
	if d := r.objects[anchor].Dependent; d != 0 && d != dep {
		return fmt.Errorf("anchor %d already leads %d: %w", anchor, d, ErrInvalidAlignment)
	}
	// Walk up from anchor; reaching dep would close a loop.
	for cur, steps := anchor, 0; cur != 0 && steps < len(r.objects); cur, steps = r.objects[cur].AlignedTo, steps+1 {
		if cur == dep {
			return fmt.Errorf("align %d to %d forms a cycle: %w", dep, anchor, ErrInvalidAlignment)
		}
	}

	d := &r.objects[dep]
	if prev := d.AlignedTo; prev != 0 && prev != anchor && r.objects[prev].Dependent == dep {
		r.objects[prev].Dependent = 0
	}
	d.AlignedTo = anchor
	d.Axis = axis
	d.AlignedDistance = distance
	r.objects[anchor].Dependent = dep

	r.log.Debug("object aligned",
		zap.Uint32("dependent", dep),
		zap.Uint32("anchor", anchor),
		zap.Stringer("axis", axis),
		zap.Float32("distance", distance),
	)
	return nil
}

// Unalign breaks dep's link to its anchor. Unaligned objects are left as is.
func (r *Registry) Unalign(dep uint32) error {
	if !r.Alive(dep) {
		return fmt.Errorf("unalign %d: %w", dep, ErrNoObject)
	}
	d := &r.objects[dep]
	if d.AlignedTo == 0 {
		return nil
	}
	if a := d.AlignedTo; r.Alive(a) && r.objects[a].Dependent == dep {
		r.objects[a].Dependent = 0
	}
	d.AlignedTo, d.Axis, d.AlignedDistance = 0, AxisFront, 0
	return nil
}

// Bounds is the world-space box aligned objects are clamped into.
type Bounds struct {
	Min, Max mgl32.Vec3
}

// BoundsFor returns the box covered by keys [0, block) shifted back by bias.
func BoundsFor(block [3]uint32, bias int32) Bounds {
	b := float32(bias)
	return Bounds{
		Min: mgl32.Vec3{-b, -b, -b},
		Max: mgl32.Vec3{float32(block[0]) - b - 1, float32(block[1]) - b - 1, float32(block[2]) - b - 1},
	}
}

// Clamp limits p to b per axis.
func (b Bounds) Clamp(p mgl32.Vec3) mgl32.Vec3 {
	for i := range p {
		p[i] = mgl32.Clamp(p[i], b.Min[i], b.Max[i])
	}
	return p
}

// AlignedCenter is where an object following anchor along axis at distance
// belongs: the axis unit rotated by the anchor's pitch about X, then its yaw
// about Y.
func AlignedCenter(anchor Object, axis Axis, distance float32) mgl32.Vec3 {
	rot := mgl32.Rotate3DY(anchor.Rotation[0]).Mul3(mgl32.Rotate3DX(anchor.Rotation[1]))
	return anchor.Center.Add(rot.Mul3x1(axis.Unit()).Mul(distance))
}

// Resolver moves aligned objects to their anchor-relative positions.
// Anchors are resolved before their dependents so a chain settles in one pass.
type Resolver struct {
	reg    *Registry
	bounds Bounds
	done   []bool
	chain  []uint32
}

func NewResolver(reg *Registry, bounds Bounds) *Resolver {
	return &Resolver{
		reg:    reg,
		bounds: bounds,
		done:   make([]bool, reg.Cap()),
	}
}

// ResolveAlignments repositions every aligned object and returns how many
// moved. Errors from individual updates are joined and returned after the
// pass completes.
func (s *Resolver) ResolveAlignments() (moved int, err error) {
	r := s.reg
	clear(s.done)
	var errs []error

	for i := uint32(1); int(i) < len(r.objects); i++ {
		if s.done[i] || !r.Alive(i) || r.objects[i].AlignedTo == 0 {
			continue
		}
		s.chain = s.chain[:0]
		for cur := i; cur != 0 && !s.done[cur] && r.objects[cur].AlignedTo != 0; cur = r.objects[cur].AlignedTo {
			s.done[cur] = true
			s.chain = append(s.chain, cur)
		}
		for j := len(s.chain) - 1; j >= 0; j-- {
			ok, uerr := s.follow(s.chain[j])
			if uerr != nil {
				errs = append(errs, uerr)
			}
			if ok {
				moved++
			}
		}
	}
	return moved, errors.Join(errs...)
}

func (s *Resolver) follow(dep uint32) (bool, error) {
	r := s.reg
	d := r.objects[dep]
	if !r.Alive(d.AlignedTo) {
		return false, nil
	}
	target := s.bounds.Clamp(AlignedCenter(r.objects[d.AlignedTo], d.Axis, d.AlignedDistance))
	if target == d.Center {
		return false, nil
	}
	d.Center = target
	if err := r.UpdateObjectPosition(dep, d); err != nil {
		return false, err
	}
	return true, nil
}
