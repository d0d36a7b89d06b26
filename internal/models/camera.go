package models

import (
	"time"
)

// RawFrame represents a decoded BGR frame from a camera source
type RawFrame struct {
	CameraID  string    `json:"camera_id"`
	Data      []byte    `json:"-"`
	Timestamp time.Time `json:"timestamp"`
	FrameID   int64     `json:"frame_id"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Format    string    `json:"format"` // "BGR"
}

// Clone returns a deep copy so the caller may draw on it without
// touching the frame held by the queue.
func (f *RawFrame) Clone() *RawFrame {
	if f == nil {
		return nil
	}
	cp := *f
	cp.Data = make([]byte, len(f.Data))
	copy(cp.Data, f.Data)
	return &cp
}

// CameraStatus is the externally visible runtime status of one camera pipeline
type CameraStatus struct {
	CameraID      string    `json:"camera_id"`
	State         string    `json:"state"`
	SourceOnline  bool      `json:"source_online"`
	FramesRead    int64     `json:"frames_read"`
	FramesDropped int64     `json:"frames_dropped"`
	FramesDone    int64     `json:"frames_processed"`
	LastFrameTime time.Time `json:"last_frame_time"`
	ArchivePath   string    `json:"archive_path,omitempty"`
	NextRotation  time.Time `json:"next_rotation"`
	ProcessingFPS float64   `json:"processing_fps"`
	LastError     string    `json:"last_error,omitempty"`
}
