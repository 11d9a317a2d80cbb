// Package config loads go-spotter configuration from SPOTTER_*
// environment variables, optionally seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Defaults for anything unset in the environment.
const (
	DefaultAddr                  = ":8080"
	DefaultTickInterval          = time.Second
	DefaultDetectionLimit        = 5
	DefaultClassifierTopN        = 3
	DefaultDetectorMinConfidence = 0.5
	DefaultIdealWidth            = 1080
	DefaultIdealHeight           = 1920
)

// Config holds the full runtime configuration.
type Config struct {
	Addr     string
	LogLevel string

	TickInterval   time.Duration
	DetectionLimit int

	ClassifierModel  string
	ClassifierConfig string
	ClassifierLabels string
	ClassifierTopN   int

	DetectorModel         string
	DetectorConfig        string
	DetectorLabels        string
	DetectorMinConfidence float64

	Facing            string // initial camera facing: "user" or "environment"
	CameraUser        string // device-label substring for the user camera
	CameraEnvironment string // device-label substring for the environment camera

	IdealWidth  int
	IdealHeight int
}

// Load reads an optional .env file and builds the config from the
// environment, validating it.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	} else {
		// A .env in the working directory is optional.
		_ = godotenv.Load()
	}

	cfg := FromEnv()
	if errs := cfg.Validate(); len(errs) > 0 {
		return Config{}, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

// FromEnv builds the config from SPOTTER_* variables, using defaults
// for anything unset.
func FromEnv() Config {
	return Config{
		Addr:     Str("SPOTTER_ADDR", DefaultAddr),
		LogLevel: Str("SPOTTER_LOG_LEVEL", "info"),

		TickInterval:   Millis("SPOTTER_TICK_MS", DefaultTickInterval),
		DetectionLimit: Int("SPOTTER_DETECTION_LIMIT", DefaultDetectionLimit),

		ClassifierModel:  Str("SPOTTER_CLASSIFIER_MODEL", "models/googlenet_places365.caffemodel"),
		ClassifierConfig: Str("SPOTTER_CLASSIFIER_CONFIG", "models/googlenet_places365.prototxt"),
		ClassifierLabels: Str("SPOTTER_CLASSIFIER_LABELS", "models/categories_places365.txt"),
		ClassifierTopN:   Int("SPOTTER_CLASSIFIER_TOPN", DefaultClassifierTopN),

		DetectorModel:         Str("SPOTTER_DETECTOR_MODEL", "models/frozen_inference_graph.pb"),
		DetectorConfig:        Str("SPOTTER_DETECTOR_CONFIG", "models/ssd_mobilenet_v1_coco.pbtxt"),
		DetectorLabels:        Str("SPOTTER_DETECTOR_LABELS", "models/coco_labels.txt"),
		DetectorMinConfidence: Float("SPOTTER_DETECTOR_MIN_CONFIDENCE", DefaultDetectorMinConfidence),

		Facing:            Str("SPOTTER_FACING", "environment"),
		CameraUser:        Str("SPOTTER_CAMERA_USER", ""),
		CameraEnvironment: Str("SPOTTER_CAMERA_ENV", ""),

		IdealWidth:  Int("SPOTTER_IDEAL_WIDTH", DefaultIdealWidth),
		IdealHeight: Int("SPOTTER_IDEAL_HEIGHT", DefaultIdealHeight),
	}
}

// Validate returns a list of problems, empty if the config is usable.
func (c *Config) Validate() []string {
	var errs []string

	if c.Addr == "" {
		errs = append(errs, "listen address must not be empty")
	}
	if c.TickInterval < 100*time.Millisecond {
		errs = append(errs, "tick interval must be at least 100ms")
	}
	if c.DetectionLimit < 1 {
		errs = append(errs, "detection limit must be at least 1")
	}
	if c.ClassifierTopN < 1 {
		errs = append(errs, "classifier top-n must be at least 1")
	}
	if c.DetectorMinConfidence < 0 || c.DetectorMinConfidence > 1 {
		errs = append(errs, "detector min confidence must be within [0, 1]")
	}
	if c.Facing != "user" && c.Facing != "environment" {
		errs = append(errs, `facing must be "user" or "environment"`)
	}
	if c.ClassifierModel == "" || c.DetectorModel == "" {
		errs = append(errs, "model paths must not be empty")
	}
	if c.IdealWidth < 160 || c.IdealHeight < 160 {
		errs = append(errs, "ideal resolution must be at least 160x160")
	}

	return errs
}

// Str returns the env value for key, or def when unset.
func Str(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Int returns the env value for key as an int, or def when unset or
// unparsable.
func Int(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// Float returns the env value for key as a float64, or def when unset
// or unparsable.
func Float(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

// Millis reads an integer millisecond count from the environment.
func Millis(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return time.Duration(n) * time.Millisecond
}
