package camera

import (
	"context"
	"time"

	"vehicle-counter-go/internal/counting"
	"vehicle-counter-go/internal/models"
)

// FrameSource yields decoded frames from a camera. Read errors are treated as
// transient: the acquisition worker closes and reopens the source.
type FrameSource interface {
	Open(ctx context.Context) error
	Read() (*models.RawFrame, error)
	Close() error
}

// Detector runs object detection and tracking on one frame.
type Detector interface {
	Detect(ctx context.Context, frame *models.RawFrame) (*models.DetectionResult, error)
}

// Annotator draws regions, boxes and counts onto a copy of frame.
type Annotator interface {
	Annotate(frame *models.RawFrame, result *models.DetectionResult, counters []*counting.RegionCounter, fps float64) *models.RawFrame
}

// Archive writes the annotated stream to disk, one file per rotation period.
type Archive interface {
	Open(at time.Time, width, height int) (string, error)
	Write(frame *models.RawFrame) error
	Close() error
}

// Notifier receives count changes and source status transitions. Calls must
// not block the caller.
type Notifier interface {
	NotifyCount(event models.CountEvent)
	NotifyDeviceStatus(event models.DeviceStatusEvent)
}

// PipelineState is the stage of the most recent frame in a camera pipeline.
type PipelineState int32

const (
	StateIdle PipelineState = iota
	StateAcquiring
	StateQueued
	StateProcessing
	StateArchived
	StateStopping
)

func (s PipelineState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateAcquiring:
		return "ACQUIRING"
	case StateQueued:
		return "QUEUED"
	case StateProcessing:
		return "PROCESSING"
	case StateArchived:
		return "ARCHIVED"
	case StateStopping:
		return "STOPPING"
	default:
		return "UNKNOWN"
	}
}

// noopNotifier is used when a pipeline is built without notifications.
type noopNotifier struct{}

func (noopNotifier) NotifyCount(models.CountEvent)               {}
func (noopNotifier) NotifyDeviceStatus(models.DeviceStatusEvent) {}
