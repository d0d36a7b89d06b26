package models

import (
	"time"
)

// Direction of a counted crossing
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// Tally holds the IN/OUT totals for one class label.
type Tally struct {
	In  int `json:"IN"`
	Out int `json:"OUT"`
}

// CounterCounts is a read-only copy of one region counter's state
type CounterCounts struct {
	Counter   string           `json:"counter"`
	Zone      string           `json:"zone"`
	InCounts  int              `json:"in_counts"`
	OutCounts int              `json:"out_counts"`
	ClassWise map[string]Tally `json:"class_wise_count"`
}

// Total is the sum of both directions.
func (c CounterCounts) Total() int {
	return c.InCounts + c.OutCounts
}

// CameraCounts is published by the processing worker after every frame.
type CameraCounts struct {
	CameraID  string          `json:"camera_id"`
	Counters  []CounterCounts `json:"counters"`
	UpdatedAt time.Time       `json:"updated_at"`
	Since     time.Time       `json:"since"`
}

// CountEvent is emitted once per fired in/out update flag
type CountEvent struct {
	ID         string           `json:"id"`
	Camera     string           `json:"camera"`
	Zone       string           `json:"zone"`
	Direction  Direction        `json:"direction"`
	Counter    string           `json:"counter"`
	Delta      int              `json:"delta"` // crossings this event adds under Direction
	InCounts   int              `json:"in_counts"`
	OutCounts  int              `json:"out_counts"`
	ClassWise  map[string]Tally `json:"class_wise_count,omitempty"`
	Snapshot   []byte           `json:"-"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// DeviceStatusEvent reports a camera source going online or offline.
type DeviceStatusEvent struct {
	Camera     string    `json:"camera"`
	Detail     string    `json:"detail"` // "online" | "offline"
	OccurredAt time.Time `json:"occurred_at"`
}

const (
	DeviceOnline  = "online"
	DeviceOffline = "offline"
)
