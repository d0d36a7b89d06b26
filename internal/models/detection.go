package models

// Point is a single image-space coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BBox is an axis-aligned box in pixel coordinates.
type BBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

func (b BBox) Width() float64  { return b.X2 - b.X1 }
func (b BBox) Height() float64 { return b.Y2 - b.Y1 }

// Detection represents a single tracked object returned by the detector for one frame
type Detection struct {
	ClassID    int     `json:"class_id"`
	ClassName  string  `json:"class_name"`
	Confidence float32 `json:"confidence"`
	Box        BBox    `json:"box"`

	// TrackID is nil when the tracker could not associate the object.
	TrackID *int32 `json:"track_id,omitempty"`
}

// HasTrack reports whether the detection carries a tracker id.
func (d Detection) HasTrack() bool {
	return d.TrackID != nil
}

// DetectionResult is the detector output for one frame
type DetectionResult struct {
	Detections []Detection    `json:"detections"`
	Names      map[int]string `json:"names"`
	Latency    float64        `json:"latency_ms"`
}

// ClassName resolves a class id through the detector's name table.
func (r *DetectionResult) ClassName(id int) string {
	if r != nil && r.Names != nil {
		if name, ok := r.Names[id]; ok {
			return name
		}
	}
	return ""
}
