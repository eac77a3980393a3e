// Profiling:
// go build ./cmd/voxelprof
// ./voxelprof -mode mem
// go tool pprof -http=":8000" -nodefraction=0.001 ./voxelprof mem.pprof

package main

import (
	"errors"
	"flag"
	"fmt"
	"math"
	"math/rand/v2"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/profile"

	"github.com/polarlab/polarlab/internal/snapshot"
	"github.com/polarlab/polarlab/internal/voxel"
	"github.com/polarlab/polarlab/internal/world"
)

func main() {
	mode := flag.String("mode", "cpu", "cpu or mem")
	rounds := flag.Int("rounds", 20, "fresh worlds to build")
	iters := flag.Int("iters", 2000, "churn steps per world")
	flag.Parse()

	var p interface{ Stop() }
	switch *mode {
	case "cpu":
		p = profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook)
	case "mem":
		p = profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook)
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q\n", *mode)
		os.Exit(2)
	}
	s := run(*rounds, *iters)
	p.Stop()
	fmt.Printf("ops %d  full %d  moved %d  longest chain %d\n", s.ops, s.full, s.moved, s.chain)
}

type stats struct {
	ops, full, moved, chain int
}

// run inserts, moves, aligns and removes objects at random, resolving and
// capturing a snapshot every step the way the game loop does.
func run(rounds, iters int) stats {
	var s stats
	rng := rand.New(rand.NewPCG(1, 2))
	types := []world.ObjectType{world.OpaqueCube, world.OpticalCube, world.LightSource, world.SquareWall, world.RoundWall}

	for range rounds {
		opts := world.DefaultOptions()
		opts.TableCapacity = 8000
		opts.BucketCount = 4096
		w := world.New(opts, nil)
		var snap snapshot.Snapshot
		var live []uint32

		for it := range iters {
			s.ops++
			switch op := rng.IntN(10); {
			case op < 4 || len(live) == 0:
				obj := world.NewObject(types[rng.IntN(len(types))])
				obj.Center = randomPoint(rng)
				cell := floorCell(obj.Center)
				i, err := w.InsertObject(cell, obj)
				if errors.Is(err, world.ErrRegistryFull) || errors.Is(err, voxel.ErrTableFull) {
					s.full++
					continue
				}
				if err == nil {
					live = append(live, i)
				}
			case op < 7:
				i := live[rng.IntN(len(live))]
				o, _ := w.Registry.Object(i)
				o.Center = randomPoint(rng)
				if errors.Is(w.UpdateObjectPosition(i, o), voxel.ErrTableFull) {
					s.full++
				}
			case op < 8 && len(live) > 1:
				dep, anchor := live[rng.IntN(len(live))], live[rng.IntN(len(live))]
				_ = w.Align(dep, anchor, world.Axis(rng.IntN(3)), rng.Float32()*4)
			default:
				k := rng.IntN(len(live))
				_ = w.RemoveObject(live[k])
				live[k] = live[len(live)-1]
				live = live[:len(live)-1]
			}

			moved, _ := w.ResolveAlignments()
			s.moved += moved
			snap.Capture(w, uint64(it))
		}
		s.chain = max(s.chain, w.Table.LongestChain())
	}
	return s
}

func randomPoint(rng *rand.Rand) mgl32.Vec3 {
	return mgl32.Vec3{
		rng.Float32()*60 - 30,
		rng.Float32()*20 - 5,
		rng.Float32()*60 - 30,
	}
}

func floorCell(p mgl32.Vec3) [3]int32 {
	return [3]int32{
		int32(math.Floor(float64(p[0]))),
		int32(math.Floor(float64(p[1]))),
		int32(math.Floor(float64(p[2]))),
	}
}
