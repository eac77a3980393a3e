package world

import "errors"

var (
	ErrRegistryFull     = errors.New("world: registry full")
	ErrInvalidAlignment = errors.New("world: invalid alignment")
	ErrNoObject         = errors.New("world: no such object")
	ErrOutOfBounds      = errors.New("world: position outside voxel space")
)
