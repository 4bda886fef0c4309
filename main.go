package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/beads/config"
	"github.com/pthm-cable/beads/game"
	"github.com/pthm-cable/beads/stream"
	"github.com/pthm-cable/beads/window"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxFrames := flag.Int("max-frames", 0, "Stop after N frames (0 = unlimited)")
	serve := flag.String("serve", "", "Websocket listen address for streaming buffers (overrides stream.addr)")
	brute := flag.Bool("brute", false, "Use brute-force neighbor search")
	workers := flag.Int("workers", 0, "Solver worker count (0 = GOMAXPROCS, 1 = serial)")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()
	if *brute {
		cfg.Grid.Mode = "brute"
		cfg.Derived.BruteForce = true
	}

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	var hub *stream.Hub
	addr := cfg.Stream.Addr
	if *serve != "" {
		addr = *serve
	}
	if addr != "" {
		hub = stream.NewHub()
		if _, err := hub.Start(addr); err != nil {
			slog.Error("failed to start stream", "error", err)
			os.Exit(1)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			hub.Close(ctx)
		}()
	}

	opts := game.Options{
		Config:    cfg,
		Seed:      rngSeed,
		LogStats:  *logStats,
		OutputDir: *outputDir,
		Workers:   *workers,
		Stream:    hub,
	}

	if *headless {
		g, err := game.NewGameWithOptions(opts)
		if err != nil {
			slog.Error("failed to create simulation", "error", err)
			os.Exit(1)
		}
		defer g.Unload()

		slog.Info("starting headless simulation",
			"seed", rngSeed,
			"max_frames", *maxFrames,
		)

		for {
			g.UpdateHeadless()

			if *maxFrames > 0 && int(g.Tick()) >= *maxFrames {
				g.Debug()
				slog.Info("max frames reached", "frame", g.Tick())
				return
			}
		}
	}

	rl.SetConfigFlags(rl.FlagWindowResizable | rl.FlagMsaa4xHint)
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "SPH Beads")
	defer rl.CloseWindow()

	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	g, err := game.NewGameWithOptions(opts)
	if err != nil {
		slog.Error("failed to create simulation", "error", err)
		os.Exit(1)
	}
	defer g.Unload()

	w := window.New(g)
	for !rl.WindowShouldClose() {
		w.Update()
		w.Draw()

		if *maxFrames > 0 && int(g.Tick()) >= *maxFrames {
			break
		}
	}
}
