package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/l1jgo/entkit/internal/config"
	"github.com/l1jgo/entkit/internal/core/ecs"
	"github.com/l1jgo/entkit/internal/handle"
	"github.com/l1jgo/entkit/internal/injector"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(name string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m               entkit  v0.1.0              \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m      managed entity handles for Go        \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mapp:\033[0m %s\n\n", name)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
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
	configFlag := flag.String("config", "", "path to the TOML config (default $"+config.EnvPath+" or "+config.DefaultPath+")")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bootCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	rt, cleanup, err := injector.InitializeRuntime(bootCtx, config.Path(*configFlag))
	cancel()
	if err != nil {
		return err
	}
	defer cleanup()
	defer rt.App.Close()

	cfg, log := rt.Config, rt.Log
	printBanner(cfg.App.Name)

	printSection("runtime")
	printOK(fmt.Sprintf("asset source: %s", cfg.Assets.Source))
	printOK(fmt.Sprintf("registry policy: %s", cfg.Handles.RegistryPolicy))
	printStat("systems", rt.App.Runner.Len())
	fmt.Println()

	printSection("showcase")
	sc := newShowcase(rt)
	if err := sc.install(cfg.App.Showcase); err != nil {
		return fmt.Errorf("showcase: %w", err)
	}
	printOK(fmt.Sprintf("loading %s", cfg.App.Showcase))
	fmt.Println()

	go sc.monitor(ctx, 2*time.Second)

	printReady(fmt.Sprintf("ticking every %s, Ctrl+C to stop", cfg.App.TickRate))
	err = rt.App.Run(ctx, cfg.App.TickRate)

	stats := ecs.MustResource[handle.EntityHandler](rt.App.World).Stats()
	log.Info("shutting down",
		zap.Uint64("ticks", rt.App.Ticks()),
		zap.Int("entities", rt.App.World.Len()),
		zap.Uint64("despawned", stats.Despawned))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
