package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"FragilityLab/internal/config"
	"FragilityLab/internal/loader"
	"FragilityLab/internal/recorder"
	"FragilityLab/internal/scheduler"
	"FragilityLab/internal/universe"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] FragilityLab starting...")

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	// Init panel source
	var source loader.Source
	if cfg.Data.PanelCSV != "" {
		var sectors *loader.SectorMap
		if cfg.Data.SectorMapPath != "" {
			sectors, err = loader.LoadSectorMap(cfg.Data.SectorMapPath)
			if err != nil {
				log.Fatalf("[FATAL] load sector map: %v", err)
			}
		}
		source = loader.NewCSVSource(cfg.Data.PanelCSV, sectors)
	} else {
		source = loader.DefaultMockSource(cfg.Simulation.Seed)
	}
	log.Printf("[INFO] panel source: %s", source.Name())

	ld := loader.NewLoader(source)

	// Init universe manager
	um, err := universe.NewManager(cfg.Universe.StateFile)
	if err != nil {
		log.Fatalf("[FATAL] init universe manager: %v", err)
	}

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, cfg, ld, um, rec)
	if err := sched.Register(cfg.Schedule.PipelineCron); err != nil {
		log.Fatalf("[FATAL] register cron tasks: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, executing pipeline now")
		go sched.RunNow()
	}

	log.Println("[INFO] FragilityLab is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	log.Println("[INFO] FragilityLab stopped")
}
