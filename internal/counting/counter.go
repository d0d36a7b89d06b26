package counting

import (
	"sort"
	"strconv"

	"vehicle-counter-go/internal/models"
)

// ClassMerge folds a set of detector classes into one representative class.
type ClassMerge struct {
	Classes []int
	Target  int
}

// DefaultClassMerge folds car, bus, train and truck (COCO 2,5,6,7) into car.
func DefaultClassMerge() ClassMerge {
	return ClassMerge{Classes: []int{2, 5, 6, 7}, Target: 2}
}

// Apply returns the representative class of id.
func (m ClassMerge) Apply(id int) (int, bool) {
	for _, c := range m.Classes {
		if c == id {
			return m.Target, true
		}
	}
	return id, false
}

// Crossing is a newly counted track returned by Observe.
type Crossing struct {
	TrackID   int32
	Box       models.BBox
	Direction models.Direction
	ClassName string
}

// CounterOptions configures a RegionCounter.
type CounterOptions struct {
	Name       string
	Zone       string
	Region     Region
	Anchor     AnchorPolicy
	ClassMerge ClassMerge

	// TrackTTL evicts histories of tracks unseen for more than this many
	// frames. Zero keeps every history until Reset.
	TrackTTL int64
}

// RegionCounter counts tracks crossing one line or entering one polygon.
// Each track id is counted at most once for the lifetime of the counter.
type RegionCounter struct {
	opts CounterOptions

	InCounts        int
	OutCounts       int
	InCountsUpdate  bool
	OutCountsUpdate bool
	ClassWiseCount  map[string]models.Tally
	CountedIDs      map[int32]struct{}

	history *TrackHistory
	frame   int64
}

func NewRegionCounter(opts CounterOptions) *RegionCounter {
	if len(opts.Region.points) == 0 {
		opts.Region = DefaultRegion()
	}
	rc := &RegionCounter{opts: opts}
	rc.Reset()
	return rc
}

// Reset discards all counts, history and counted ids.
func (rc *RegionCounter) Reset() {
	rc.InCounts = 0
	rc.OutCounts = 0
	rc.InCountsUpdate = false
	rc.OutCountsUpdate = false
	rc.ClassWiseCount = make(map[string]models.Tally)
	rc.CountedIDs = make(map[int32]struct{})
	rc.history = NewTrackHistory()
	rc.frame = 0
}

func (rc *RegionCounter) Name() string           { return rc.opts.Name }
func (rc *RegionCounter) Zone() string           { return rc.opts.Zone }
func (rc *RegionCounter) Region() Region         { return rc.opts.Region }
func (rc *RegionCounter) Anchor() AnchorPolicy   { return rc.opts.Anchor }
func (rc *RegionCounter) History() *TrackHistory { return rc.history }

// Counted reports whether id has already been attributed to a crossing.
func (rc *RegionCounter) Counted(id int32) bool {
	_, ok := rc.CountedIDs[id]
	return ok
}

// Observe processes one frame of detections. Update flags are reset first and
// set again only if the matching tally changed during this call. names maps
// class ids to labels; it may be nil.
func (rc *RegionCounter) Observe(dets []models.Detection, names map[int]string) []Crossing {
	rc.InCountsUpdate = false
	rc.OutCountsUpdate = false
	rc.frame++

	prevIn, prevOut := rc.InCounts, rc.OutCounts
	var crossings []Crossing

	for _, det := range dets {
		if det.TrackID == nil {
			continue
		}
		trackID := *det.TrackID

		label := rc.label(det, names)
		if _, ok := rc.ClassWiseCount[label]; !ok {
			rc.ClassWiseCount[label] = models.Tally{}
		}

		curr := rc.opts.Anchor.Anchor(det.Box)
		rc.history.Append(trackID, curr, rc.frame)
		prev, hasPrev := rc.history.Previous(trackID)
		if !hasPrev || rc.Counted(trackID) {
			continue
		}

		dir, crossed := rc.detect(det.Box, prev, curr)
		if !crossed {
			continue
		}

		rc.CountedIDs[trackID] = struct{}{}
		tally := rc.ClassWiseCount[label]
		if dir == models.DirectionIn {
			rc.InCounts++
			tally.In++
		} else {
			rc.OutCounts++
			tally.Out++
		}
		rc.ClassWiseCount[label] = tally

		crossings = append(crossings, Crossing{
			TrackID:   trackID,
			Box:       det.Box,
			Direction: dir,
			ClassName: label,
		})
	}

	rc.history.EvictStale(rc.frame, rc.opts.TrackTTL)

	rc.InCountsUpdate = rc.InCounts != prevIn
	rc.OutCountsUpdate = rc.OutCounts != prevOut
	return crossings
}

func (rc *RegionCounter) detect(box models.BBox, prev, curr models.Point) (models.Direction, bool) {
	region := rc.opts.Region
	if region.IsLine() {
		return CrossingWithinLineArea(region.points[0], region.points[1], prev, curr)
	}

	if !region.Contains(curr) {
		return "", false
	}
	c := region.Centroid()
	if (box.X1-prev.X)*(c.X-prev.X) > 0 {
		return models.DirectionIn, true
	}
	return models.DirectionOut, true
}

func (rc *RegionCounter) label(det models.Detection, names map[int]string) string {
	cls, merged := rc.opts.ClassMerge.Apply(det.ClassID)
	if name, ok := names[cls]; ok && name != "" {
		return name
	}
	if !merged && det.ClassName != "" {
		return det.ClassName
	}
	return strconv.Itoa(cls)
}

// Counts returns a copy of the counter state.
func (rc *RegionCounter) Counts() models.CounterCounts {
	cw := make(map[string]models.Tally, len(rc.ClassWiseCount))
	for k, v := range rc.ClassWiseCount {
		cw[k] = v
	}
	return models.CounterCounts{
		Counter:   rc.opts.Name,
		Zone:      rc.opts.Zone,
		InCounts:  rc.InCounts,
		OutCounts: rc.OutCounts,
		ClassWise: cw,
	}
}

// Labels returns the class labels seen so far, sorted.
func (rc *RegionCounter) Labels() []string {
	out := make([]string, 0, len(rc.ClassWiseCount))
	for k := range rc.ClassWiseCount {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
