package counting

import (
	"github.com/bmharper/ringbuffer"

	"vehicle-counter-go/internal/models"
)

const (
	// MaxHistory is the number of anchors kept per track.
	MaxHistory = 150

	// PreviousLag is how far back Previous looks once a track is long enough.
	// Comparing against an older anchor filters single-frame jitter.
	PreviousLag = 5
)

type trackEntry struct {
	points   ringbuffer.RingP[models.Point]
	lastSeen int64
}

// TrackHistory keeps the recent anchor points of every track seen by one
// region counter. It is not safe for concurrent use; the processing worker
// owns it.
type TrackHistory struct {
	tracks map[int32]*trackEntry
}

func NewTrackHistory() *TrackHistory {
	return &TrackHistory{tracks: make(map[int32]*trackEntry)}
}

// Append records anchor p for trackID, observed on frame. Once a track holds
// MaxHistory anchors the oldest one is dropped.
func (h *TrackHistory) Append(trackID int32, p models.Point, frame int64) {
	e, ok := h.tracks[trackID]
	if !ok {
		e = &trackEntry{points: ringbuffer.NewRingP[models.Point](MaxHistory)}
		h.tracks[trackID] = e
	}
	e.points.Add(p)
	e.lastSeen = frame
}

// Previous returns the reference anchor used for direction tests:
// the anchor PreviousLag samples back from the end when the track is long
// enough, otherwise the oldest one. Tracks with fewer than two anchors have
// no reference.
func (h *TrackHistory) Previous(trackID int32) (models.Point, bool) {
	e, ok := h.tracks[trackID]
	if !ok {
		return models.Point{}, false
	}

	n := e.points.Len()
	switch {
	case n >= PreviousLag:
		return e.points.Peek(n - PreviousLag), true
	case n >= 2:
		return e.points.Peek(0), true
	default:
		return models.Point{}, false
	}
}

// Points returns a copy of the anchors of trackID, oldest first.
func (h *TrackHistory) Points(trackID int32) []models.Point {
	e, ok := h.tracks[trackID]
	if !ok {
		return nil
	}
	out := make([]models.Point, e.points.Len())
	for i := range out {
		out[i] = e.points.Peek(i)
	}
	return out
}

// Len returns the number of tracks with history.
func (h *TrackHistory) Len() int {
	return len(h.tracks)
}

// EvictStale drops every track whose last observation is more than ttl frames
// before frame and returns the evicted ids. A ttl <= 0 disables eviction.
func (h *TrackHistory) EvictStale(frame, ttl int64) []int32 {
	if ttl <= 0 {
		return nil
	}
	var evicted []int32
	for id, e := range h.tracks {
		if frame-e.lastSeen > ttl {
			delete(h.tracks, id)
			evicted = append(evicted, id)
		}
	}
	return evicted
}
