package detection

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"vehicle-counter-go/internal/models"
)

// DetectMethod is the unary RPC that runs detection and tracking on one JPEG.
const DetectMethod = "/counter.Detector/Detect"

// CameraIDKey is the metadata key carrying the camera of a frame. The tracker
// keeps separate track id spaces per camera.
const CameraIDKey = "camera-id"

var (
	ErrBackoff = errors.New("detector in backoff after consecutive failures")
	ErrClosed  = errors.New("detector client is shut down")
)

// FrameEncoder compresses a raw frame to the JPEG sent to the detector.
type FrameEncoder interface {
	Encode(frame *models.RawFrame, quality int) ([]byte, error)
}

// backoff tracks consecutive failures of one camera.
type backoff struct {
	lastFailTime     time.Time
	consecutiveFails int
}

// Service is a gRPC client for the external detector/tracker.
type Service struct {
	mu       sync.RWMutex
	conn     *grpc.ClientConn
	endpoint string
	quality  int
	encoder  FrameEncoder

	failures        map[string]*backoff
	maxRetryBackoff time.Duration
}

// NewService creates the client. The connection is established lazily by
// gRPC, so an unavailable detector does not fail startup.
func NewService(endpoint string, jpegQuality int, encoder FrameEncoder) (*Service, error) {
	target, creds, err := parseGRPCEndpoint(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to parse detector endpoint %s: %w", endpoint, err)
	}

	log.Info().
		Str("original_endpoint", endpoint).
		Str("normalized_endpoint", target).
		Bool("use_tls", creds.Info().SecurityProtocol == "tls").
		Msg("Initializing detector client")

	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("failed to create detector client for %s: %w", target, err)
	}
	return newServiceWithConn(conn, target, jpegQuality, encoder), nil
}

func newServiceWithConn(conn *grpc.ClientConn, endpoint string, jpegQuality int, encoder FrameEncoder) *Service {
	return &Service{
		conn:            conn,
		endpoint:        endpoint,
		quality:         jpegQuality,
		encoder:         encoder,
		failures:        make(map[string]*backoff),
		maxRetryBackoff: 30 * time.Second,
	}
}

// Detect sends frame as JPEG and parses the tracked detections.
func (s *Service) Detect(ctx context.Context, frame *models.RawFrame) (*models.DetectionResult, error) {
	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()
	if conn == nil {
		return nil, ErrClosed
	}

	if !s.shouldRetry(frame.CameraID) {
		return nil, ErrBackoff
	}

	jpg, err := s.encoder.Encode(frame, s.quality)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame %d: %w", frame.FrameID, err)
	}

	ctx = metadata.AppendToOutgoingContext(ctx, CameraIDKey, frame.CameraID)

	start := time.Now()
	resp := &structpb.Struct{}
	if err := conn.Invoke(ctx, DetectMethod, wrapperspb.Bytes(jpg), resp); err != nil {
		// Our own cancellation says nothing about detector health.
		if ctx.Err() == nil && status.Code(err) != codes.Canceled {
			s.recordFailure(frame.CameraID)
		}
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	s.resetFailures(frame.CameraID)

	result, err := ParseResult(resp)
	if err != nil {
		return nil, err
	}
	result.Latency = time.Since(start).Seconds()

	log.Trace().
		Str("camera_id", frame.CameraID).
		Int64("frame_id", frame.FrameID).
		Int("detections", len(result.Detections)).
		Float64("latency_s", result.Latency).
		Msg("Detection response")

	return result, nil
}

// ParseResult decodes the detector response:
//
//	{detections: [{class_id, class_name, confidence, box: [x1,y1,x2,y2], track_id}], names: {"2": "car"}}
//
// A missing or null track_id means the object is not tracked.
func ParseResult(s *structpb.Struct) (*models.DetectionResult, error) {
	result := &models.DetectionResult{Names: map[int]string{}}
	if s == nil {
		return result, nil
	}
	fields := s.GetFields()

	if names := fields["names"].GetStructValue(); names != nil {
		for k, v := range names.GetFields() {
			id, err := strconv.Atoi(k)
			if err != nil {
				return nil, fmt.Errorf("invalid class id %q in names", k)
			}
			result.Names[id] = v.GetStringValue()
		}
	}

	for i, v := range fields["detections"].GetListValue().GetValues() {
		obj := v.GetStructValue()
		if obj == nil {
			return nil, fmt.Errorf("detection %d is not an object", i)
		}
		det, err := parseDetection(obj.GetFields())
		if err != nil {
			return nil, fmt.Errorf("detection %d: %w", i, err)
		}
		result.Detections = append(result.Detections, det)
	}
	return result, nil
}

func parseDetection(f map[string]*structpb.Value) (models.Detection, error) {
	box := f["box"].GetListValue().GetValues()
	if len(box) != 4 {
		return models.Detection{}, fmt.Errorf("box must have 4 coordinates, got %d", len(box))
	}

	det := models.Detection{
		ClassID:    int(f["class_id"].GetNumberValue()),
		ClassName:  f["class_name"].GetStringValue(),
		Confidence: float32(f["confidence"].GetNumberValue()),
		Box: models.BBox{
			X1: box[0].GetNumberValue(),
			Y1: box[1].GetNumberValue(),
			X2: box[2].GetNumberValue(),
			Y2: box[3].GetNumberValue(),
		},
	}
	if tv, ok := f["track_id"]; ok {
		if _, isNum := tv.GetKind().(*structpb.Value_NumberValue); isNum {
			id := int32(tv.GetNumberValue())
			det.TrackID = &id
		}
	}
	return det, nil
}

// IsHealthy reports whether the channel is usable.
func (s *Service) IsHealthy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.conn == nil {
		return false
	}
	state := s.conn.GetState()
	return state == connectivity.Ready || state == connectivity.Idle || state == connectivity.Connecting
}

// State is the gRPC connectivity state, for the system endpoint.
func (s *Service) State() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.conn == nil {
		return connectivity.Shutdown.String()
	}
	return s.conn.GetState().String()
}

func (s *Service) Endpoint() string { return s.endpoint }

func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		log.Info().Msg("Shutting down detector connection")
		err := s.conn.Close()
		s.conn = nil
		return err
	}
	return nil
}

// shouldRetry applies exponential backoff after consecutive failures of
// camera: 1s, 2s, 4s ... up to maxRetryBackoff. Other cameras are unaffected.
func (s *Service) shouldRetry(camera string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b := s.failures[camera]
	if b == nil || b.consecutiveFails == 0 {
		return true
	}

	wait := time.Duration(1<<uint(min(b.consecutiveFails-1, 30))) * time.Second
	if wait > s.maxRetryBackoff {
		wait = s.maxRetryBackoff
	}
	return time.Since(b.lastFailTime) >= wait
}

func (s *Service) recordFailure(camera string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.failures[camera]
	if b == nil {
		b = &backoff{}
		s.failures[camera] = b
	}
	b.consecutiveFails++
	b.lastFailTime = time.Now()

	if b.consecutiveFails <= 5 {
		log.Warn().
			Str("camera_id", camera).
			Int("consecutive_fails", b.consecutiveFails).
			Str("endpoint", s.endpoint).
			Msg("Detector failure recorded")
	}
}

func (s *Service) resetFailures(camera string) {
	s.mu.Lock()
	if b := s.failures[camera]; b != nil {
		if b.consecutiveFails > 0 {
			log.Info().Str("camera_id", camera).Str("endpoint", s.endpoint).Msg("Detector recovered")
		}
		delete(s.failures, camera)
	}
	s.mu.Unlock()
}

// parseGRPCEndpoint normalizes endpoint to host:port and picks TLS for
// https or well-known TLS ports, insecure otherwise.
func parseGRPCEndpoint(endpoint string) (string, credentials.TransportCredentials, error) {
	if !strings.Contains(endpoint, "://") {
		switch {
		case strings.Contains(endpoint, ".") && !strings.Contains(endpoint, ":"):
			endpoint = "https://" + endpoint + ":443"
		case strings.Contains(endpoint, ":"):
			scheme := "http://"
			if _, port, ok := strings.Cut(endpoint, ":"); ok {
				switch port {
				case "443", "8443", "9443":
					scheme = "https://"
				}
			}
			endpoint = scheme + endpoint
		default:
			endpoint = "https://" + endpoint + ":443"
		}
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return "", nil, fmt.Errorf("invalid endpoint URL: %w", err)
	}

	host := u.Host
	if u.Port() == "" {
		switch u.Scheme {
		case "https":
			host = u.Hostname() + ":443"
		case "http":
			host = u.Hostname() + ":80"
		default:
			return "", nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
		}
	}

	var creds credentials.TransportCredentials
	switch u.Scheme {
	case "https":
		creds = credentials.NewTLS(&tls.Config{ServerName: u.Hostname()})
	case "http":
		creds = insecure.NewCredentials()
	default:
		return "", nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}

	return host, creds, nil
}
