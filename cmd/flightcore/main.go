package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"flightcore/internal/config"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./dev.yaml", "Path to YAML config")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rt, err := newRuntime(ctx, cfg)
	if err != nil {
		log.Fatalf("runtime init failed: %v", err)
	}
	defer rt.Close()

	log.Printf("flightcore starting")
	log.Printf("control period=%s observer=%v sim=%v", cfg.Control.Period, cfg.Control.UseObserver, cfg.Sim.Enable)
	log.Printf("telemetry dest=%s interval=%s", cfg.Telemetry.Dest, cfg.Telemetry.Interval)

	if err := rt.run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("runtime stopped: %v", err)
	}
	log.Printf("flightcore stopping")
}
