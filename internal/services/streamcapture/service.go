package streamcapture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"vehicle-counter-go/internal/helpers"
	"vehicle-counter-go/internal/models"
)

const maxConsecutiveEmpty = 10

var ErrSourceClosed = errors.New("video source is not open")

var ffmpegOnce sync.Once

// Source reads BGR frames from an RTSP url, a video file or a local webcam
// index and resizes them to a fixed width.
type Source struct {
	cameraID string
	url      string
	width    int

	cap *gocv.VideoCapture
	img gocv.Mat
}

// NewSource creates a source; nothing is opened until Open.
func NewSource(cameraID, url string, width int) *Source {
	return &Source{cameraID: cameraID, url: url, width: width}
}

// Open connects to the camera.
func (s *Source) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ffmpegOnce.Do(configureFFmpegOptions)

	log.Info().
		Str("camera_id", s.cameraID).
		Str("url", s.url).
		Msg("Opening video capture")

	var (
		cap *gocv.VideoCapture
		err error
	)
	if idx, convErr := strconv.Atoi(s.url); convErr == nil {
		cap, err = gocv.OpenVideoCapture(idx)
	} else {
		cap, err = gocv.OpenVideoCaptureWithAPI(s.url, gocv.VideoCaptureFFmpeg)
	}
	if err != nil {
		return fmt.Errorf("failed to open video source %s: %w", s.url, err)
	}
	if !cap.IsOpened() {
		cap.Close()
		return fmt.Errorf("video capture is not opened for camera %s", s.cameraID)
	}

	cap.Set(gocv.VideoCaptureBufferSize, 1)

	log.Info().
		Str("camera_id", s.cameraID).
		Float64("actual_fps", cap.Get(gocv.VideoCaptureFPS)).
		Float64("actual_width", cap.Get(gocv.VideoCaptureFrameWidth)).
		Float64("actual_height", cap.Get(gocv.VideoCaptureFrameHeight)).
		Msg("VideoCapture opened successfully")

	s.cap = cap
	s.img = gocv.NewMat()
	return nil
}

// Read returns the next frame, resized to the configured width. A run of
// empty frames is reported as an error so the caller reconnects.
func (s *Source) Read() (*models.RawFrame, error) {
	if s.cap == nil {
		return nil, ErrSourceClosed
	}

	for empty := 0; ; empty++ {
		if empty >= maxConsecutiveEmpty {
			return nil, fmt.Errorf("too many consecutive empty frames (%d)", empty)
		}
		if ok := s.cap.Read(&s.img); !ok {
			return nil, fmt.Errorf("failed to read frame from %s", s.url)
		}
		if !s.img.Empty() {
			break
		}
	}

	w, h := helpers.ScaledSize(s.img.Cols(), s.img.Rows(), s.width)
	var data []byte
	if w != s.img.Cols() || h != s.img.Rows() {
		resized := gocv.NewMat()
		gocv.Resize(s.img, &resized, image.Pt(w, h), 0, 0, gocv.InterpolationLinear)
		data = resized.ToBytes()
		resized.Close()
	} else {
		data = s.img.ToBytes()
	}

	return &models.RawFrame{
		CameraID:  s.cameraID,
		Data:      data,
		Timestamp: time.Now(),
		Width:     w,
		Height:    h,
		Format:    "BGR",
	}, nil
}

// Close releases the capture.
func (s *Source) Close() error {
	if s.cap == nil {
		return nil
	}
	err := s.cap.Close()
	s.img.Close()
	s.cap = nil
	return err
}

// configureFFmpegOptions sets the OpenCV FFmpeg backend options for RTSP.
func configureFFmpegOptions() {
	if os.Getenv("OPENCV_FFMPEG_CAPTURE_OPTIONS") != "" {
		return
	}

	ffmpegOptions := map[string]string{
		"rtsp_transport":  "tcp",
		"buffer_size":     "2097152",
		"max_delay":       "500000",
		"stimeout":        "5000000",
		"rw_timeout":      "5000000",
		"flags":           "low_delay",
		"fflags":          "nobuffer+flush_packets",
		"analyzeduration": "500000",
		"probesize":       "2000000",
		"reconnect":       "1",
	}

	keys := make([]string, 0, len(ffmpegOptions))
	for k := range ffmpegOptions {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	opts := make([]string, 0, len(keys))
	for _, k := range keys {
		opts = append(opts, k+";"+ffmpegOptions[k])
	}
	os.Setenv("OPENCV_FFMPEG_CAPTURE_OPTIONS", strings.Join(opts, "|"))

	log.Debug().Strs("ffmpeg_options", opts).Msg("FFmpeg options configured for OpenCV")
}
