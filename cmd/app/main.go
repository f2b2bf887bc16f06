package main

import (
	"flag"
	"log"
	"os"

	"TickerPulse/internal/di"
	"TickerPulse/pkg/config"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "config file path")
	once := flag.Bool("once", false, "run a single report over report.source and exit")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	log.Printf("env=%s symbols=%s window=%v", cfg.Environment, cfg.Classifier.SymbolsFile, cfg.Window.Symbols)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	if *once {
		err = app.RunReport()
	} else {
		err = app.Run()
	}
	if err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
