package capture

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pion/mediadevices"
	"github.com/pion/mediadevices/pkg/frame"
	"github.com/pion/mediadevices/pkg/io/video"
	"github.com/pion/mediadevices/pkg/prop"

	// Register the local camera drivers with mediadevices.
	_ "github.com/pion/mediadevices/pkg/driver/camera"

	"github.com/spottercam/go-spotter/pkg/vision"
)

const defaultJPEGQuality = 85

// DeviceLabels maps each facing mode to a device-label substring used
// during selection. Empty values fall back to enumeration order: the
// first video input acts as the user camera, the second (when present)
// as the environment camera.
type DeviceLabels struct {
	User        string
	Environment string
}

// MediaDevice opens local cameras through pion/mediadevices using
// getUserMedia-style constraints.
type MediaDevice struct {
	labels DeviceLabels
	logger *slog.Logger

	// JPEGQuality controls frame encoding, 1-100.
	JPEGQuality int
}

// NewMediaDevice creates a device selector over the local cameras.
func NewMediaDevice(labels DeviceLabels, logger *slog.Logger) *MediaDevice {
	if logger == nil {
		logger = slog.Default()
	}
	return &MediaDevice{
		labels:      labels,
		logger:      logger.With("component", "capture.device"),
		JPEGQuality: defaultJPEGQuality,
	}
}

// RequestStream opens the camera matching facing with an ideal
// resolution hint. Every failure comes back as a *PermissionError.
func (d *MediaDevice) RequestStream(ctx context.Context, facing Facing, cons Constraints) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, AsPermissionError(facing, err)
	}

	info, err := d.pick(facing)
	if err != nil {
		return nil, AsPermissionError(facing, err)
	}

	stream, err := mediadevices.GetUserMedia(mediadevices.MediaStreamConstraints{
		Video: func(c *mediadevices.MediaTrackConstraints) {
			c.DeviceID = prop.StringExact(info.DeviceID)
			c.Width = prop.IntRanged{Min: 0, Max: 4096, Ideal: cons.IdealWidth}
			c.Height = prop.IntRanged{Min: 0, Max: 4096, Ideal: cons.IdealHeight}
			c.FrameFormat = prop.FrameFormatOneOf{
				frame.FormatI420,
				frame.FormatI444,
				frame.FormatYUY2,
				frame.FormatUYVY,
				frame.FormatNV12,
				frame.FormatNV21,
				frame.FormatMJPEG,
			}
		},
	})
	if err != nil {
		return nil, AsPermissionError(facing, err)
	}

	tracks := stream.GetVideoTracks()
	if len(tracks) == 0 {
		closeTracks(stream)
		return nil, AsPermissionError(facing, fmt.Errorf("%w: stream has no video track", ErrNoCamera))
	}
	videoTrack, ok := tracks[0].(*mediadevices.VideoTrack)
	if !ok {
		closeTracks(stream)
		return nil, AsPermissionError(facing, fmt.Errorf("%w: unexpected track type %T", ErrNoCamera, tracks[0]))
	}

	d.logger.Info("camera opened",
		"facing", facing,
		"label", info.Label,
		"ideal", fmt.Sprintf("%dx%d", cons.IdealWidth, cons.IdealHeight),
	)

	return &mediaStream{
		id:     uuid.NewString(),
		stream: stream,
		reader: &mediaFrameReader{
			reader:  videoTrack.NewReader(false),
			quality: d.JPEGQuality,
		},
	}, nil
}

// pick selects a video input for facing: by configured label substring
// when one is set, otherwise by enumeration order.
func (d *MediaDevice) pick(facing Facing) (mediadevices.MediaDeviceInfo, error) {
	var cameras []mediadevices.MediaDeviceInfo
	for _, dev := range mediadevices.EnumerateDevices() {
		if dev.Kind == mediadevices.VideoInput {
			cameras = append(cameras, dev)
		}
	}
	if len(cameras) == 0 {
		return mediadevices.MediaDeviceInfo{}, ErrNoCamera
	}

	want := d.labels.User
	if facing == FacingEnvironment {
		want = d.labels.Environment
	}
	if want != "" {
		for _, cam := range cameras {
			if strings.Contains(strings.ToLower(cam.Label), strings.ToLower(want)) {
				return cam, nil
			}
		}
		return mediadevices.MediaDeviceInfo{}, fmt.Errorf("%w: no label matching %q", ErrNoCamera, want)
	}

	idx := 0
	if facing == FacingEnvironment && len(cameras) > 1 {
		idx = 1
	}
	return cameras[idx], nil
}

func closeTracks(stream mediadevices.MediaStream) {
	for _, t := range stream.GetTracks() {
		t.Close()
	}
}

// mediaStream adapts a mediadevices stream to the Stream interface.
type mediaStream struct {
	id     string
	stream mediadevices.MediaStream
	reader *mediaFrameReader
}

func (m *mediaStream) ID() string { return m.id }

func (m *mediaStream) Tracks() []Track {
	ts := m.stream.GetTracks()
	out := make([]Track, 0, len(ts))
	for _, t := range ts {
		out = append(out, &mediaTrack{track: t})
	}
	return out
}

func (m *mediaStream) Reader() FrameReader { return m.reader }

type mediaTrack struct {
	track mediadevices.Track
}

func (t *mediaTrack) ID() string { return t.track.ID() }

func (t *mediaTrack) Stop() error { return t.track.Close() }

// mediaFrameReader samples frames from the video track and JPEG-encodes
// them for the pipeline.
type mediaFrameReader struct {
	reader  video.Reader
	quality int
}

func (r *mediaFrameReader) Read(ctx context.Context) (vision.Frame, error) {
	if err := ctx.Err(); err != nil {
		return vision.Frame{}, err
	}

	img, release, err := r.reader.Read()
	if err != nil {
		return vision.Frame{}, err
	}
	if release != nil {
		defer release()
	}

	bounds := img.Bounds()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: r.quality}); err != nil {
		return vision.Frame{}, fmt.Errorf("encode frame: %w", err)
	}

	return vision.Frame{
		Data:       buf.Bytes(),
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
		CapturedAt: time.Now(),
	}, nil
}

// Ensure the mediadevices adapter satisfies the capture contracts.
var (
	_ Device = (*MediaDevice)(nil)
	_ Stream = (*mediaStream)(nil)
)
