// Package web serves the overlay page and the REST + websocket surface
// the presentation layer consumes: pipeline state, the ranked detection
// list, live camera frames, and the two user triggers.
package web

import (
	"context"
	_ "embed"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/spottercam/go-spotter/pkg/controller"
	"github.com/spottercam/go-spotter/pkg/hub"
	"github.com/spottercam/go-spotter/pkg/vision"
)

//go:embed index.html
var indexHTML []byte

// StatsFunc supplies pipeline counters for /api/stats.
type StatsFunc func() map[string]any

// Server is the overlay web server. All pipeline access goes through
// the controller; the server itself holds no detection state.
type Server struct {
	app    *fiber.App
	addr   string
	ctrl   *controller.Controller
	logger *slog.Logger

	detectionsHub *hub.Hub
	stateHub      *hub.Hub
	cameraHub     *hub.Hub

	// OnStats, if set, contributes pipeline counters to /api/stats.
	OnStats StatsFunc
}

// New creates the server around ctrl. With debug set, every HTTP
// request is logged.
func New(addr string, debug bool, ctrl *controller.Controller, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		addr:          addr,
		ctrl:          ctrl,
		logger:        logger.With("component", "web"),
		detectionsHub: hub.New("detections", logger),
		stateHub:      hub.New("state", logger),
		cameraHub:     hub.New("camera", logger),
	}

	app := fiber.New(fiber.Config{
		AppName:               "go-spotter",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(cors.New())
	if debug {
		app.Use(fiberlogger.New())
	}

	app.Get("/", s.handleIndex)
	app.Get("/health", s.handleHealth)

	api := app.Group("/api")
	api.Get("/state", s.handleState)
	api.Get("/detections", s.handleDetections)
	api.Post("/detections/clear", s.handleClear)
	api.Post("/camera/toggle", s.handleToggle)
	api.Get("/stats", s.handleStats)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/detections", websocket.New(s.handleDetectionsWS))
	app.Get("/ws/state", websocket.New(s.handleStateWS))
	app.Get("/ws/camera", websocket.New(s.handleCameraWS))

	s.app = app
	return s
}

// Run starts the hubs and serves until the listener fails or Shutdown
// is called. ctx bounds the hub lifetimes.
func (s *Server) Run(ctx context.Context) error {
	go s.detectionsHub.Run(ctx)
	go s.stateHub.Run(ctx)
	go s.cameraHub.Run(ctx)

	s.logger.Info("listening", "addr", s.addr)
	return s.app.Listen(s.addr)
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// PublishDetections pushes a fresh detection list to overlay clients.
// Wire it to the controller's OnDetections callback.
func (s *Server) PublishDetections(d vision.Detections) {
	if err := s.detectionsHub.BroadcastJSON(d); err != nil {
		s.logger.Warn("broadcast detections", "error", err)
	}
}

// PublishState pushes a state snapshot to overlay clients. Wire it to
// the controller's OnState callback.
func (s *Server) PublishState(snap controller.Snapshot) {
	if err := s.stateHub.BroadcastJSON(snap); err != nil {
		s.logger.Warn("broadcast state", "error", err)
	}
}

// SendCameraFrame pushes one JPEG frame to overlay viewers. Wire it to
// the session's OnFrame callback.
func (s *Server) SendCameraFrame(frame vision.Frame) {
	s.cameraHub.BroadcastBinary(frame.Data)
}
