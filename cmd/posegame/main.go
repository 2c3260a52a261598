// posegame - exercise pose matching game server.
// Detector clients stream landmarks or frames to /ws/detector; the web API
// plays routines, records poses and keeps score history.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-posegame/pkg/app"
)

func main() {
	cfg := parseFlags()

	a, err := app.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(2)
	}

	if err := a.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "initialization failed: %v\n", err)
		os.Exit(1)
	}
	defer a.Shutdown()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := a.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "runtime error: %v\n", err)
		a.Shutdown()
		os.Exit(1)
	}
}

// parseFlags parses command line flags and returns configuration.
// Environment variables override flags in app.New.
func parseFlags() app.Config {
	cfg := app.DefaultConfig()

	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	flag.StringVar(&cfg.DataDir, "data", cfg.DataDir, "Data directory for poses, routines and results")
	flag.StringVar(&cfg.Store, "store", cfg.Store, "Storage backend: json or sqlite")
	flag.StringVar(&cfg.Port, "port", cfg.Port, "HTTP server port")
	flag.StringVar(&cfg.Detector, "detector", cfg.Detector, "Detector: external, yolo or http")
	flag.StringVar(&cfg.ModelPath, "model", cfg.ModelPath, "YOLOv8-pose ONNX model path")
	flag.BoolVar(&cfg.UseCUDA, "cuda", cfg.UseCUDA, "Run the YOLO model on CUDA")
	flag.StringVar(&cfg.DetectorURL, "detector-url", cfg.DetectorURL, "Base URL of the http detector service")
	flag.StringVar(&cfg.Matcher, "matcher", cfg.Matcher, "Matcher tuning: default or relaxed")
	flag.DurationVar(&cfg.Session.MinInterval, "frame-interval", cfg.Session.MinInterval, "Minimum spacing of detected frames")
	flag.Float64Var(&cfg.Session.Smoothing, "smoothing", cfg.Session.Smoothing, "Landmark smoothing weight in [0, 1]")
	flag.IntVar(&cfg.Countdown, "countdown", cfg.Countdown, "Pose capture countdown in seconds")
	flag.Parse()

	return cfg
}
