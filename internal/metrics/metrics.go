// Package metrics exposes world occupancy and loop counters to Prometheus.
package metrics

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/promhttp"

	"github.com/polarlab/polarlab/internal/world"
)

const Namespace = "polarlab"

// Metrics owns every collector. Counters are updated from the game loop;
// world gauges are read from the last published Stats at scrape time.
type Metrics struct {
	Commands     *prometheus.CounterVec
	Ticks        prometheus.Counter
	TickDuration prometheus.Histogram
	Realigned    prometheus.Counter
	ScriptErrors prometheus.Counter

	world *WorldCollector
}

func New() *Metrics {
	return &Metrics{
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "console",
			Name:      "commands_total",
			Help:      "Console and script commands executed, by result.",
		}, []string{"result"}),
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "loop",
			Name:      "ticks_total",
			Help:      "Simulation ticks run.",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "loop",
			Name:      "tick_duration_seconds",
			Help:      "Wall time spent inside one tick.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),
		Realigned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "align",
			Name:      "moves_total",
			Help:      "Aligned objects repositioned by the resolver.",
		}),
		ScriptErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "script",
			Name:      "errors_total",
			Help:      "Lua hook failures.",
		}),
		world: NewWorldCollector(),
	}
}

// Register adds every collector to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.Commands, m.Ticks, m.TickDuration, m.Realigned, m.ScriptErrors, m.world} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Publish records the latest world summary for the next scrape.
func (m *Metrics) Publish(s world.Stats) { m.world.Publish(s) }

// Handler serves reg in the Prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// WorldCollector reports registry and voxel table occupancy.
type WorldCollector struct {
	last atomic.Pointer[world.Stats]

	objects      *prometheus.Desc
	objectCap    *prometheus.Desc
	lights       *prometheus.Desc
	aligned      *prometheus.Desc
	tableUsed    *prometheus.Desc
	tableCap     *prometheus.Desc
	longestChain *prometheus.Desc
	voxelMisses  *prometheus.Desc
}

func NewWorldCollector() *WorldCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(Namespace, "world", name), help, nil, nil)
	}
	return &WorldCollector{
		objects:      desc("objects", "Live registry objects."),
		objectCap:    desc("object_capacity", "Allocatable registry slots."),
		lights:       desc("lights", "Live light sources."),
		aligned:      desc("aligned_objects", "Objects following an anchor."),
		tableUsed:    desc("voxel_slots_used", "Occupied voxel table slots."),
		tableCap:     desc("voxel_slots", "Voxel table slot capacity."),
		longestChain: desc("voxel_longest_chain", "Longest bucket chain in the voxel table."),
		voxelMisses:  desc("voxel_misses_total", "Voxel entries missing when an object was cleared."),
	}
}

func (c *WorldCollector) Publish(s world.Stats) { c.last.Store(&s) }

func (c *WorldCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.objects
	ch <- c.objectCap
	ch <- c.lights
	ch <- c.aligned
	ch <- c.tableUsed
	ch <- c.tableCap
	ch <- c.longestChain
	ch <- c.voxelMisses
}

func (c *WorldCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.last.Load()
	if s == nil {
		return
	}
	gauge := func(d *prometheus.Desc, v int) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, float64(v))
	}
	gauge(c.objects, s.Objects)
	gauge(c.objectCap, s.ObjectCap)
	gauge(c.lights, s.Lights)
	gauge(c.aligned, s.Aligned)
	gauge(c.tableUsed, s.TableUsed)
	gauge(c.tableCap, s.TableCap)
	gauge(c.longestChain, s.LongestChain)
	ch <- prometheus.MustNewConstMetric(c.voxelMisses, prometheus.CounterValue, float64(s.VoxelMisses))
}
