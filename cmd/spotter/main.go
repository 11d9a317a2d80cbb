// Spotter serves a live camera recognition overlay: it samples the
// camera on a fixed cadence, fuses a scene classifier and an object
// detector into one ranked detection list, and pushes the list, the
// pipeline state, and the live frames to the browser overlay.
//
// Usage:
//
//	spotter [-addr :8080] [-env-file .env] [-debug]
//
// Configuration comes from SPOTTER_* environment variables; flags
// override them. See internal/config for the full list.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spottercam/go-spotter/internal/config"
	"github.com/spottercam/go-spotter/internal/log"
	"github.com/spottercam/go-spotter/pkg/capture"
	"github.com/spottercam/go-spotter/pkg/controller"
	"github.com/spottercam/go-spotter/pkg/fusion"
	"github.com/spottercam/go-spotter/pkg/vision"
	"github.com/spottercam/go-spotter/pkg/vision/dnn"
	"github.com/spottercam/go-spotter/pkg/web"
)

var version = "1.0.0"

var (
	addr    = flag.String("addr", "", "listen address (overrides SPOTTER_ADDR)")
	envFile = flag.String("env-file", "", "path to a .env file")
	debug   = flag.Bool("debug", false, "debug logging and HTTP request logs")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	level := cfg.LogLevel
	if *debug {
		level = "debug"
	}
	log.Init(level)
	logger := log.L()

	fmt.Println()
	fmt.Println("📷 go-spotter v" + version)
	fmt.Println("   live camera recognition overlay")
	fmt.Println()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Both models load in parallel; if either fails the pipeline stays
	// permanently not-ready but the overlay still serves state.
	classifierCfg := dnn.DefaultClassifierConfig()
	classifierCfg.ModelPath = cfg.ClassifierModel
	classifierCfg.ConfigPath = cfg.ClassifierConfig
	classifierCfg.LabelsPath = cfg.ClassifierLabels
	classifierCfg.TopN = cfg.ClassifierTopN

	detectorCfg := dnn.DefaultDetectorConfig()
	detectorCfg.ModelPath = cfg.DetectorModel
	detectorCfg.ConfigPath = cfg.DetectorConfig
	detectorCfg.LabelsPath = cfg.DetectorLabels
	detectorCfg.ConfidenceThresh = float32(cfg.DetectorMinConfidence)

	registry := vision.NewRegistry(logger)
	if err := registry.Load(ctx,
		func(ctx context.Context) (vision.SceneClassifier, error) {
			return dnn.NewClassifier(classifierCfg, logger)
		},
		func(ctx context.Context) (vision.ObjectDetector, error) {
			return dnn.NewDetector(detectorCfg, logger)
		},
	); err != nil {
		logger.Error("model load failed, detections disabled", "error", err)
	}

	device := capture.NewMediaDevice(capture.DeviceLabels{
		User:        cfg.CameraUser,
		Environment: cfg.CameraEnvironment,
	}, logger)
	session := capture.NewSession(device, capture.Constraints{
		IdealWidth:  cfg.IdealWidth,
		IdealHeight: cfg.IdealHeight,
	}, logger)
	gate := capture.NewGate()

	ctrl := controller.New(session, gate, registry.Ready, capture.ParseFacing(cfg.Facing), logger)
	server := web.New(cfg.Addr, *debug, ctrl, logger)

	engine := fusion.New(fusion.Config{
		Interval: cfg.TickInterval,
		Limit:    cfg.DetectionLimit,
	}, registry, session, gate, ctrl.PublishDetections, logger)

	// Presentation sinks: every detection or state change is pushed to
	// the overlay, and sampled frames stream to /ws/camera.
	ctrl.OnDetections = server.PublishDetections
	ctrl.OnState = server.PublishState
	session.OnFrame = server.SendCameraFrame
	server.OnStats = func() map[string]any {
		stats := map[string]any{"engine": engine.Stats()}
		if src := session.FrameSource(); src != nil {
			stats["frames"] = src.Stats()
		}
		return stats
	}

	// Initial acquisition; a denial here is state, not a startup error.
	ctrl.Start(ctx)

	go engine.Run(ctx)
	go func() {
		if err := server.Run(ctx); err != nil {
			logger.Error("web server failed", "error", err)
			cancel()
		}
	}()

	logger.Info("spotter up",
		"addr", cfg.Addr,
		"tick", cfg.TickInterval,
		"facing", cfg.Facing,
		"ready", registry.Ready(),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("web server shutdown", "error", err)
	}

	ctrl.Close()
	if err := registry.Close(); err != nil {
		logger.Warn("model close", "error", err)
	}

	fmt.Println("👋 Goodbye!")
}
