package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"

	"github.com/spottercam/go-spotter/pkg/capture"
	"github.com/spottercam/go-spotter/pkg/controller"
	"github.com/spottercam/go-spotter/pkg/vision"
)

func newTestServer(t *testing.T) (*Server, *controller.Controller, *capture.MockDevice) {
	t.Helper()

	device := capture.NewMockDevice()
	session := capture.NewSession(device, capture.DefaultConstraints(), nil)
	gate := capture.NewGate()
	ctrl := controller.New(session, gate, func() bool { return true }, capture.FacingEnvironment, nil)
	t.Cleanup(ctrl.Close)

	return New(":0", false, ctrl, nil), ctrl, device
}

func TestHealthEndpoint(t *testing.T) {
	s, _, _ := newTestServer(t)

	resp, err := s.app.Test(httptest.NewRequest("GET", "/health", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestIndexServesOverlay(t *testing.T) {
	s, _, _ := newTestServer(t)

	resp, err := s.app.Test(httptest.NewRequest("GET", "/", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "<!DOCTYPE html>") {
		t.Error("index did not serve the overlay page")
	}
}

func TestStateEndpoint(t *testing.T) {
	s, _, _ := newTestServer(t)

	resp, err := s.app.Test(httptest.NewRequest("GET", "/api/state", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var snap controller.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.Capture != capture.StateUnknown {
		t.Errorf("capture = %q, want unknown before any acquisition", snap.Capture)
	}
	if snap.Detections == nil {
		t.Error("snapshot detections is null, want empty list")
	}
}

func TestDetectionsEndpoint(t *testing.T) {
	s, ctrl, _ := newTestServer(t)
	ctrl.PublishDetections(vision.Detections{
		{Label: "cup", Confidence: 0.88, Kind: vision.KindObject},
	})

	resp, err := s.app.Test(httptest.NewRequest("GET", "/api/detections", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	var got vision.Detections
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode detections: %v", err)
	}
	if len(got) != 1 || got[0].Label != "cup" {
		t.Errorf("detections = %v, want [cup]", got.Labels())
	}
}

func TestToggleEndpoint(t *testing.T) {
	s, ctrl, device := newTestServer(t)
	ctrl.Start(context.Background())

	resp, err := s.app.Test(httptest.NewRequest("POST", "/api/camera/toggle", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var snap controller.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.Facing != capture.FacingUser {
		t.Errorf("facing after toggle = %q, want user", snap.Facing)
	}
	if snap.Capture != capture.StateGranted {
		t.Errorf("capture after toggle = %q, want granted", snap.Capture)
	}

	attempts := device.Attempts()
	if len(attempts) != 2 || attempts[1] != capture.FacingUser {
		t.Errorf("device attempts = %v, want the toggle to reach the device", attempts)
	}
}

func TestClearEndpoint(t *testing.T) {
	s, ctrl, _ := newTestServer(t)
	ctrl.PublishDetections(vision.Detections{
		{Label: "chair", Confidence: 0.42, Kind: vision.KindObject},
	})

	resp, err := s.app.Test(httptest.NewRequest("POST", "/api/detections/clear", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got := ctrl.Detections(); len(got) != 0 {
		t.Errorf("detections after clear = %v, want empty", got.Labels())
	}
}

func TestStatsEndpoint(t *testing.T) {
	s, _, _ := newTestServer(t)
	s.OnStats = func() map[string]any {
		return map[string]any{"engine": map[string]uint64{"ticks": 12}}
	}

	resp, err := s.app.Test(httptest.NewRequest("GET", "/api/stats", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	var got map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if _, ok := got["hubs"]; !ok {
		t.Error("stats missing hub counters")
	}
	if _, ok := got["engine"]; !ok {
		t.Error("stats missing contributed pipeline counters")
	}
}

func TestDetectionsWebsocket(t *testing.T) {
	device := capture.NewMockDevice()
	session := capture.NewSession(device, capture.DefaultConstraints(), nil)
	ctrl := controller.New(session, capture.NewGate(), func() bool { return true }, capture.FacingEnvironment, nil)
	s := New(":18094", false, ctrl, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)
	time.Sleep(100 * time.Millisecond)
	defer s.Shutdown(context.Background())

	conn, _, err := gorillaws.DefaultDialer.Dial("ws://127.0.0.1:18094/ws/detections", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	// The current (empty) list arrives on connect.
	var initial vision.Detections
	if err := conn.ReadJSON(&initial); err != nil {
		t.Fatalf("read initial list: %v", err)
	}
	if len(initial) != 0 {
		t.Errorf("initial list = %v, want empty", initial.Labels())
	}

	time.Sleep(50 * time.Millisecond) // let the hub register the client
	s.PublishDetections(vision.Detections{
		{Label: "dog", Confidence: 0.93, Kind: vision.KindObject},
	})

	var got vision.Detections
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read broadcast: %v", err)
	}
	if len(got) != 1 || got[0].Label != "dog" {
		t.Errorf("broadcast = %v, want [dog]", got.Labels())
	}
}

func TestStateWebsocketInitialSnapshot(t *testing.T) {
	device := capture.NewMockDevice()
	session := capture.NewSession(device, capture.DefaultConstraints(), nil)
	ctrl := controller.New(session, capture.NewGate(), func() bool { return false }, capture.FacingUser, nil)
	s := New(":18095", false, ctrl, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)
	time.Sleep(100 * time.Millisecond)
	defer s.Shutdown(context.Background())

	conn, _, err := gorillaws.DefaultDialer.Dial("ws://127.0.0.1:18095/ws/state", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var snap controller.Snapshot
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatalf("read initial snapshot: %v", err)
	}
	if snap.Capture != capture.StateUnknown {
		t.Errorf("capture = %q, want unknown", snap.Capture)
	}
	if snap.Facing != capture.FacingUser {
		t.Errorf("facing = %q, want user", snap.Facing)
	}
	if snap.Ready {
		t.Error("snapshot ready with an unready registry")
	}
}
