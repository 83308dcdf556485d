package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"callscreen/internal/app"
	"callscreen/internal/config"
	"callscreen/internal/monitor"
)

func main() {
	replay := flag.String("replay", "", "replay a recorded call-monitor file instead of connecting")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	a, err := app.New(cfg)
	if err != nil {
		log.Fatalf("startup: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *replay != "" {
		if err := monitor.ReplayFile(*replay, a.Blocker().HandleLine); err != nil {
			log.Fatalf("replay %s: %v", *replay, err)
		}
		return
	}

	if err := a.Run(ctx); err != nil {
		log.Fatalf("run: %v", err)
	}
}
