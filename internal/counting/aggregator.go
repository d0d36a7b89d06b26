package counting

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"vehicle-counter-go/internal/helpers"
	"vehicle-counter-go/internal/models"
)

// MaxCountersPerCamera bounds how many lines one camera may count on.
const MaxCountersPerCamera = 3

// CounterSpec configures one counter of a ZoneAggregator. InEvent and
// OutEvent choose which event label is reported when the matching update
// flag fires; they default to "in" and "out".
type CounterSpec struct {
	Options  CounterOptions
	InEvent  models.Direction
	OutEvent models.Direction
}

// ZoneUpdate is one notification-worthy change produced by a frame. Delta is
// how many crossings this frame added under Event; several tracks crossing
// in the same frame produce one update with Delta > 1.
type ZoneUpdate struct {
	Counter   string
	Zone      string
	Event     models.Direction
	Delta     int
	Counts    models.CounterCounts
	Crossings []Crossing
	Snapshot  []byte
}

// ZoneAggregator runs every counter of one camera over the same detections.
type ZoneAggregator struct {
	cameraID string
	specs    []CounterSpec
	counters []*RegionCounter

	snapshotMargin  float64
	snapshotQuality int
	since           time.Time
}

type AggregatorOptions struct {
	CameraID        string
	Counters        []CounterSpec
	SnapshotMargin  float64
	SnapshotQuality int
}

func NewZoneAggregator(opts AggregatorOptions) (*ZoneAggregator, error) {
	if len(opts.Counters) == 0 {
		return nil, fmt.Errorf("camera %s: at least one counter is required", opts.CameraID)
	}
	if len(opts.Counters) > MaxCountersPerCamera {
		return nil, fmt.Errorf("camera %s: %d counters configured, max %d", opts.CameraID, len(opts.Counters), MaxCountersPerCamera)
	}

	za := &ZoneAggregator{
		cameraID:        opts.CameraID,
		specs:           make([]CounterSpec, len(opts.Counters)),
		snapshotMargin:  opts.SnapshotMargin,
		snapshotQuality: opts.SnapshotQuality,
	}
	for i, spec := range opts.Counters {
		if spec.InEvent == "" {
			spec.InEvent = models.DirectionIn
		}
		if spec.OutEvent == "" {
			spec.OutEvent = models.DirectionOut
		}
		za.specs[i] = spec
	}
	za.Reset(time.Now())
	return za, nil
}

// Reset recreates every counter, discarding counts, histories and counted ids.
func (za *ZoneAggregator) Reset(now time.Time) {
	za.counters = make([]*RegionCounter, len(za.specs))
	for i, spec := range za.specs {
		za.counters[i] = NewRegionCounter(spec.Options)
	}
	za.since = now
}

func (za *ZoneAggregator) Counters() []*RegionCounter { return za.counters }

// Observe feeds one frame's detections to every counter and returns the
// updates to notify. frame is used for snapshots and may be nil.
//
// A single object may be counted by several counters in the same frame.
// The snapshot attached to every update is the last crop taken this frame,
// falling back to the whole frame when no crop could be made.
func (za *ZoneAggregator) Observe(frame *models.RawFrame, result *models.DetectionResult) []ZoneUpdate {
	var dets []models.Detection
	var names map[int]string
	if result != nil {
		dets = result.Detections
		names = result.Names
	}

	var updates []ZoneUpdate
	var lastCrop []byte

	for i, rc := range za.counters {
		crossings := rc.Observe(dets, names)

		for _, c := range crossings {
			if frame == nil {
				continue
			}
			crop, err := helpers.SnapshotJPEG(frame, c.Box, za.snapshotMargin, za.snapshotQuality)
			if err != nil {
				log.Debug().Err(err).Str("camera_id", za.cameraID).Int32("track_id", c.TrackID).Msg("Snapshot crop failed")
				continue
			}
			lastCrop = crop
		}

		var nIn, nOut int
		for _, c := range crossings {
			if c.Direction == models.DirectionIn {
				nIn++
			} else {
				nOut++
			}
		}

		spec := za.specs[i]
		counts := rc.Counts()
		first := len(updates)
		if rc.InCountsUpdate {
			updates = append(updates, ZoneUpdate{
				Counter:   rc.Name(),
				Zone:      rc.Zone(),
				Event:     spec.InEvent,
				Delta:     nIn,
				Counts:    counts,
				Crossings: crossings,
			})
		}
		if rc.OutCountsUpdate {
			// both labels remapped to the same event: report once
			if len(updates) > first && updates[first].Event == spec.OutEvent {
				updates[first].Delta += nOut
			} else {
				updates = append(updates, ZoneUpdate{
					Counter:   rc.Name(),
					Zone:      rc.Zone(),
					Event:     spec.OutEvent,
					Delta:     nOut,
					Counts:    counts,
					Crossings: crossings,
				})
			}
		}
	}

	if len(updates) == 0 {
		return nil
	}

	snapshot := lastCrop
	if snapshot == nil && frame != nil {
		if full, err := helpers.FrameJPEG(frame, za.snapshotQuality); err == nil {
			snapshot = full
		}
	}
	for i := range updates {
		updates[i].Snapshot = snapshot
	}
	return updates
}

// Snapshot copies the state of every counter.
func (za *ZoneAggregator) Snapshot(now time.Time) *models.CameraCounts {
	out := &models.CameraCounts{
		CameraID:  za.cameraID,
		Counters:  make([]models.CounterCounts, len(za.counters)),
		UpdatedAt: now,
		Since:     za.since,
	}
	for i, rc := range za.counters {
		out.Counters[i] = rc.Counts()
	}
	return out
}
