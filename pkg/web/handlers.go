package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/spottercam/go-spotter/pkg/hub"
)

func (s *Server) handleIndex(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Send(indexHTML)
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// handleState returns the full observable pipeline state.
func (s *Server) handleState(c *fiber.Ctx) error {
	return c.JSON(s.ctrl.Snapshot())
}

// handleDetections returns the current ranked list.
func (s *Server) handleDetections(c *fiber.Ctx) error {
	return c.JSON(s.ctrl.Detections())
}

// handleClear empties the detection list. The next successful fusion
// pass repopulates it.
func (s *Server) handleClear(c *fiber.Ctx) error {
	s.ctrl.ClearDetections()
	return c.JSON(s.ctrl.Snapshot())
}

// handleToggle flips the camera facing. A denied reacquisition is
// state, not a transport error: the response always carries the
// resulting snapshot.
func (s *Server) handleToggle(c *fiber.Ctx) error {
	snap, err := s.ctrl.ToggleFacing(c.UserContext())
	if err != nil {
		s.logger.Warn("toggle left camera denied", "error", err)
	}
	return c.JSON(snap)
}

// handleStats returns hub and pipeline counters.
func (s *Server) handleStats(c *fiber.Ctx) error {
	stats := fiber.Map{
		"hubs": fiber.Map{
			"detections": s.detectionsHub.Stats(),
			"state":      s.stateHub.Stats(),
			"camera":     s.cameraHub.Stats(),
		},
	}
	if s.OnStats != nil {
		for k, v := range s.OnStats() {
			stats[k] = v
		}
	}
	return c.JSON(stats)
}

// handleDetectionsWS streams detection list replacements. The current
// list goes out on connect so a new overlay never starts blank.
func (s *Server) handleDetectionsWS(conn *websocket.Conn) {
	if err := conn.WriteJSON(s.ctrl.Detections()); err != nil {
		conn.Close()
		return
	}
	hub.NewClient(s.detectionsHub, conn).Run()
}

// handleStateWS streams state snapshots, current state first.
func (s *Server) handleStateWS(conn *websocket.Conn) {
	if err := conn.WriteJSON(s.ctrl.Snapshot()); err != nil {
		conn.Close()
		return
	}
	hub.NewClient(s.stateHub, conn).Run()
}

// handleCameraWS streams binary JPEG frames.
func (s *Server) handleCameraWS(conn *websocket.Conn) {
	hub.NewClient(s.cameraHub, conn).Run()
}
