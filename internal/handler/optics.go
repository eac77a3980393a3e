package handler

import (
	"fmt"

	"github.com/polarlab/polarlab/internal/optics"
	"github.com/polarlab/polarlab/internal/world"
)

func cmdPolarize(out *Reply, args []string, deps *Deps) error {
	if len(args) != 2 {
		return ErrUsage
	}
	i, o, err := lookupObject(deps.World, args[0])
	if err != nil {
		return err
	}
	if o.Type != world.LightSource {
		return fmt.Errorf("#%d is a %s, not a light", i, o.Type)
	}
	kind, err := optics.ParseLight(args[1])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	o.Polarization = kind.Vector()
	if err := deps.World.UpdateObjectPosition(i, o); err != nil {
		return err
	}
	out.Msgf("#%d emits %s light", i, kind)
	return nil
}

func cmdJones(out *Reply, args []string, deps *Deps) error {
	if len(args) < 2 || len(args) > 5 {
		return ErrUsage
	}
	i, o, err := lookupObject(deps.World, args[0])
	if err != nil {
		return err
	}
	if !o.Type.Optical() {
		return fmt.Errorf("#%d is a %s, not an optical element", i, o.Type)
	}
	kind, err := optics.ParsePolarizer(args[1])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	params, err := parseFloats(args[2:])
	if err != nil {
		return err
	}
	e := optics.Element{Kind: kind}
	for n, p := range params {
		r := float64(deg(p))
		switch n {
		case 0:
			e.Angle = r
		case 1:
			e.Retardation = r
		case 2:
			e.Circularity = r
		}
	}
	o.Jones = e.Matrix()
	if err := deps.World.UpdateObjectPosition(i, o); err != nil {
		return err
	}
	out.Msgf("#%d is now: %s", i, kind)
	return nil
}
