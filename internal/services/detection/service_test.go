package detection

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"vehicle-counter-go/internal/helpers"
	"vehicle-counter-go/internal/models"
)

// stdJPEG stands in for the OpenCV encoder.
type stdJPEG struct{}

func (stdJPEG) Encode(frame *models.RawFrame, quality int) ([]byte, error) {
	return helpers.FrameJPEG(frame, quality)
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func TestParseResult(t *testing.T) {
	resp := mustStruct(t, map[string]any{
		"names": map[string]any{"2": "car", "0": "person"},
		"detections": []any{
			map[string]any{"class_id": 2, "class_name": "car", "confidence": 0.5, "box": []any{10, 20, 30, 40}, "track_id": 7},
			map[string]any{"class_id": 0, "confidence": 0.25, "box": []any{1, 2, 3, 4}, "track_id": nil},
			map[string]any{"class_id": 0, "confidence": 0.25, "box": []any{5, 6, 7, 8}},
		},
	})

	got, err := ParseResult(resp)
	require.NoError(t, err)

	seven := int32(7)
	want := &models.DetectionResult{
		Names: map[int]string{0: "person", 2: "car"},
		Detections: []models.Detection{
			{ClassID: 2, ClassName: "car", Confidence: 0.5, Box: models.BBox{X1: 10, Y1: 20, X2: 30, Y2: 40}, TrackID: &seven},
			{ClassID: 0, Confidence: 0.25, Box: models.BBox{X1: 1, Y1: 2, X2: 3, Y2: 4}},
			{ClassID: 0, Confidence: 0.25, Box: models.BBox{X1: 5, Y1: 6, X2: 7, Y2: 8}},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseResult mismatch (-want +got):\n%s", diff)
	}
	require.True(t, got.Detections[0].HasTrack())
	require.False(t, got.Detections[1].HasTrack())
}

func TestParseResultErrors(t *testing.T) {
	tests := []struct {
		name string
		resp map[string]any
	}{
		{"short box", map[string]any{"detections": []any{map[string]any{"box": []any{1, 2, 3}}}}},
		{"not an object", map[string]any{"detections": []any{"car"}}},
		{"bad name key", map[string]any{"names": map[string]any{"car": "car"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseResult(mustStruct(t, tt.resp))
			require.Error(t, err)
		})
	}
}

func TestParseGRPCEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		host     string
		tls      bool
	}{
		{"localhost:50052", "localhost:50052", false},
		{"detector.example.com", "detector.example.com:443", true},
		{"detector.example.com:8443", "detector.example.com:8443", true},
		{"http://10.0.0.5", "10.0.0.5:80", false},
		{"https://detector.example.com:9000", "detector.example.com:9000", true},
	}
	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			host, creds, err := parseGRPCEndpoint(tt.endpoint)
			require.NoError(t, err)
			require.Equal(t, tt.host, host)
			require.Equal(t, tt.tls, creds.Info().SecurityProtocol == "tls")
		})
	}

	_, _, err := parseGRPCEndpoint("ftp://detector:21")
	require.Error(t, err)
}

// startDetector serves DetectMethod over an in-memory listener.
func startDetector(t *testing.T, handler func(ctx context.Context, jpg []byte) (*structpb.Struct, error)) *Service {
	t.Helper()
	lis := bufconn.Listen(1 << 20)

	srv := grpc.NewServer(grpc.UnknownServiceHandler(func(_ any, stream grpc.ServerStream) error {
		method, _ := grpc.MethodFromServerStream(stream)
		if method != DetectMethod {
			return status.Errorf(codes.Unimplemented, "unknown method %s", method)
		}
		req := &wrapperspb.BytesValue{}
		if err := stream.RecvMsg(req); err != nil {
			return err
		}
		resp, err := handler(stream.Context(), req.GetValue())
		if err != nil {
			return err
		}
		return stream.SendMsg(resp)
	}))
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	s := newServiceWithConn(conn, "bufnet", 80, stdJPEG{})
	t.Cleanup(func() { s.Shutdown(context.Background()) })
	return s
}

func testFrame() *models.RawFrame {
	return &models.RawFrame{CameraID: "cam_b-in", FrameID: 3, Data: make([]byte, 32*24*3), Width: 32, Height: 24}
}

func TestDetectRoundTrip(t *testing.T) {
	var gotCamera string
	var gotJPEG []byte
	s := startDetector(t, func(ctx context.Context, jpg []byte) (*structpb.Struct, error) {
		md, _ := metadata.FromIncomingContext(ctx)
		if v := md.Get(CameraIDKey); len(v) > 0 {
			gotCamera = v[0]
		}
		gotJPEG = jpg
		return structpb.NewStruct(map[string]any{
			"names":      map[string]any{"2": "car"},
			"detections": []any{map[string]any{"class_id": 2, "confidence": 0.8, "box": []any{1, 1, 5, 5}, "track_id": 4}},
		})
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := s.Detect(ctx, testFrame())
	require.NoError(t, err)
	require.Len(t, result.Detections, 1)
	require.Equal(t, int32(4), *result.Detections[0].TrackID)
	require.Equal(t, "car", result.ClassName(2))
	require.Equal(t, "cam_b-in", gotCamera)
	require.Equal(t, []byte{0xff, 0xd8}, gotJPEG[:2])
}

func TestDetectBackoffAfterFailure(t *testing.T) {
	s := startDetector(t, func(context.Context, []byte) (*structpb.Struct, error) {
		return nil, status.Error(codes.Unavailable, "model loading")
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := s.Detect(ctx, testFrame())
	require.Error(t, err)
	require.Equal(t, codes.Unavailable, status.Code(err))

	_, err = s.Detect(ctx, testFrame())
	require.ErrorIs(t, err, ErrBackoff)
}

func TestDetectBackoffIsPerCamera(t *testing.T) {
	s := startDetector(t, func(ctx context.Context, _ []byte) (*structpb.Struct, error) {
		md, _ := metadata.FromIncomingContext(ctx)
		if v := md.Get(CameraIDKey); len(v) > 0 && v[0] == "cam_a" {
			return nil, status.Error(codes.Unavailable, "stream decoder wedged")
		}
		return structpb.NewStruct(map[string]any{"detections": []any{}})
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	camA, camB := testFrame(), testFrame()
	camA.CameraID = "cam_a"
	camB.CameraID = "cam_b"

	_, err := s.Detect(ctx, camA)
	require.Equal(t, codes.Unavailable, status.Code(err))
	_, err = s.Detect(ctx, camA)
	require.ErrorIs(t, err, ErrBackoff)

	_, err = s.Detect(ctx, camB)
	require.NoError(t, err)
}

func TestDetectCancelDoesNotBackOff(t *testing.T) {
	release := make(chan struct{})
	s := startDetector(t, func(ctx context.Context, _ []byte) (*structpb.Struct, error) {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return structpb.NewStruct(map[string]any{"detections": []any{}})
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := s.Detect(ctx, testFrame())
	require.Error(t, err)

	require.True(t, s.shouldRetry(testFrame().CameraID))
}

func TestDetectAfterShutdown(t *testing.T) {
	s := startDetector(t, func(context.Context, []byte) (*structpb.Struct, error) {
		return structpb.NewStruct(map[string]any{})
	})
	require.NoError(t, s.Shutdown(context.Background()))

	_, err := s.Detect(context.Background(), testFrame())
	require.ErrorIs(t, err, ErrClosed)
	require.False(t, s.IsHealthy())
}
