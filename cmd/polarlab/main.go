package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/polarlab/polarlab/internal/config"
	"github.com/polarlab/polarlab/internal/console"
	"github.com/polarlab/polarlab/internal/core/event"
	coresys "github.com/polarlab/polarlab/internal/core/system"
	"github.com/polarlab/polarlab/internal/data"
	"github.com/polarlab/polarlab/internal/handler"
	"github.com/polarlab/polarlab/internal/metrics"
	"github.com/polarlab/polarlab/internal/scripting"
	"github.com/polarlab/polarlab/internal/snapshot"
	"github.com/polarlab/polarlab/internal/system"
	"github.com/polarlab/polarlab/internal/world"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

var printer = message.NewPrinter(language.English)

func printBanner() {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m              polarlab  v0.1.0             \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m     voxel world · polarized light lab     \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
}

func printSection(title string) {
	lineLen := max(46-len(title)-1, 3)
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := printer.Sprintf("%d", count)
	dotsLen := max(42-len(label)-len(numStr), 3)
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main loop ─────────────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/polarlab.toml"
	if p := os.Getenv("POLARLAB_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner()

	// 3. World
	printSection("world")
	w := world.New(worldOptions(cfg.World), log.Named("world"))
	printStat("voxel table slots", w.Table.Cap())
	printStat("voxel buckets", w.Table.BucketCount())
	printStat("object slots", w.Registry.Cap()-1)
	fmt.Println()

	bus := event.NewBus()
	deps := &handler.Deps{World: w, Bus: bus, Log: log.Named("handler")}
	reg := handler.NewRegistry(deps)
	handler.RegisterAll(reg)
	subscribeLogging(bus, log.Named("event"))

	// 4. Scene
	if cfg.Scene.File != "" {
		printSection("scene")
		scene, err := data.LoadSceneTable(cfg.Scene.File)
		if err != nil {
			return fmt.Errorf("scene: %w", err)
		}
		if _, err := scene.Apply(w); err != nil {
			return fmt.Errorf("scene: %w", err)
		}
		printOK(fmt.Sprintf("loaded %q", scene.Name()))
		printStat("objects", w.Registry.Len())
		printStat("voxel slots used", w.Table.Len())
		fmt.Println()
	}

	// 5. Metrics
	m := metrics.New()
	if cfg.Metrics.Listen != "" {
		promReg := prometheus.NewRegistry()
		promReg.MustRegister(collectors.NewGoCollector())
		if err := m.Register(promReg); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(promReg))
		srv := &http.Server{Addr: cfg.Metrics.Listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server stopped", zap.Error(err))
			}
		}()
		defer srv.Close()
	}

	// 6. Systems
	cmds := make(chan system.Command, cfg.Tick.CommandQueueSize)
	runner := coresys.NewRunner()
	runner.Register(system.NewInputSystem(cmds, reg, cfg.Tick.MaxCommandsPerTick, m, log.Named("input")))
	runner.Register(system.NewEventDispatchSystem(bus))
	if cfg.Scene.Script != "" {
		engine, err := scripting.NewEngine(cfg.Scene.Script, log.Named("lua"))
		if err != nil {
			return fmt.Errorf("script: %w", err)
		}
		defer engine.Close()
		engine.Bind(handler.NewScriptHost(reg))
		scriptSys := system.NewScriptSystem(engine, reg, w, m, log.Named("lua"))
		if err := scriptSys.Setup(); err != nil {
			return fmt.Errorf("script: %w", err)
		}
		runner.Register(scriptSys)
		printOK(fmt.Sprintf("script %s", cfg.Scene.Script))
	}
	runner.Register(system.NewAlignmentSystem(w, bus, m, log.Named("align")))
	runner.Register(system.NewMetricsSystem(w, m, log.Named("metrics")))
	runner.Register(system.NewSnapshotSystem(w, snapshot.NewLogSink(log.Named("snapshot"), cfg.Tick.SnapshotLogEvery), log))

	// 7. Console
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if cfg.Console.Enabled {
		con, err := console.Open(cfg.Console, reg.Verbs(), cmds, log.Named("console"))
		if err != nil {
			return err
		}
		defer con.Close()
		go func() {
			defer cancel()
			if err := con.Run(ctx); err != nil {
				log.Error("console stopped", zap.Error(err))
			}
		}()
	}

	// 8. Start loop
	ticker := time.NewTicker(cfg.Tick.Rate)
	defer ticker.Stop()

	printSection("ready")
	if cfg.Metrics.Listen != "" {
		printReady(fmt.Sprintf("metrics on %s/metrics", cfg.Metrics.Listen))
	}
	printReady(fmt.Sprintf("loop running (tick: %s)", cfg.Tick.Rate))
	fmt.Println()

	for {
		select {
		case <-ticker.C:
			start := time.Now()
			runner.Tick(cfg.Tick.Rate)
			m.TickDuration.Observe(time.Since(start).Seconds())
		case <-ctx.Done():
			log.Info("shutting down", zap.Uint64("ticks", runner.Ticks()))
			return nil
		}
	}
}

func worldOptions(c config.WorldConfig) world.Options {
	buckets := c.BucketCount
	if buckets == 0 {
		buckets = c.TableCapacity
	}
	return world.Options{
		TableCapacity:    c.TableCapacity,
		BucketCount:      buckets,
		BlockSize:        c.BlockSize,
		Bias:             c.Bias,
		RegistryCapacity: c.RegistryCapacity,
	}
}

func subscribeLogging(bus *event.Bus, log *zap.Logger) {
	event.Subscribe(bus, func(e event.ObjectInserted) {
		log.Debug("inserted", zap.Uint32("index", e.Index), zap.String("type", e.Type), zap.Int("voxels", e.Voxels))
	})
	event.Subscribe(bus, func(e event.ObjectRemoved) {
		log.Debug("removed", zap.Uint32("index", e.Index))
	})
	event.Subscribe(bus, func(e event.ObjectMoved) {
		log.Debug("moved", zap.Uint32("index", e.Index), zap.Bool("aligned", e.Aligned))
	})
	event.Subscribe(bus, func(e event.ObjectAligned) {
		log.Debug("aligned", zap.Uint32("dependent", e.Dependent), zap.Uint32("anchor", e.Anchor))
	})
	event.Subscribe(bus, func(e event.CommandFailed) {
		log.Info("command failed", zap.String("line", e.Line), zap.Error(e.Err))
	})
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
