package voxel

import "errors"

var (
	ErrTableFull   = errors.New("voxel: table full")
	ErrKeyNotFound = errors.New("voxel: key not found")
	ErrBadBlock    = errors.New("voxel: block size does not hash injectively")
)
