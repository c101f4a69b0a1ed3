package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"kiosk/internal/app"
	"kiosk/internal/config"
	"kiosk/internal/logger"
)

const version = "0.3.0"

// The preview window must be driven from the main OS thread.
func init() {
	runtime.LockOSThread()
}

func main() {
	fs := ff.NewFlagSet("kiosk")
	var (
		envFile     = fs.StringLong("env-file", ".env", "dotenv file loaded before reading configuration")
		device      = fs.StringLong("device", "", "camera index, stream URL, udp://host:port or upload (overrides CAMERA_DEVICE)")
		detector    = fs.StringLong("detector", "", "detection backend: dnn or cascade (overrides DETECTOR)")
		catalogPath = fs.StringLong("catalog", "", "JSON price catalog (overrides CATALOG_PATH)")
		port        = fs.IntLong("port", 0, "HTTP server port (overrides PORT)")
		headless    = fs.BoolLong("headless", "run without the local preview window")
		showVersion = fs.BoolLong("version", "show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("KIOSK"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	if _, err := config.LoadEnvFile(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "error: load %s: %v\n", *envFile, err)
		os.Exit(1)
	}

	cfg := config.Load()
	if *device != "" {
		cfg.CameraDevice = *device
	}
	if *detector != "" {
		cfg.Detector = *detector
	}
	if *catalogPath != "" {
		cfg.CatalogPath = *catalogPath
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *headless {
		cfg.Headless = true
	}

	log := logger.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.NewApp(cfg, log)
	if err != nil {
		log.Error("Failed to initialize kiosk: %v", err)
		os.Exit(1)
	}

	if err := application.Run(ctx); err != nil {
		log.Error("Kiosk stopped: %v", err)
		stop()
		os.Exit(1)
	}
	log.Info("👋 Kiosk closed")
}
