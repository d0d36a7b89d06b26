package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"vehicle-counter-go/internal/counting"
	"vehicle-counter-go/internal/models"
)

// CamerasFile is the layout of the CAMERAS_CONFIG YAML file.
type CamerasFile struct {
	Cameras []CameraConfig `yaml:"cameras"`
}

// CameraConfig declares one camera pipeline and its counters.
type CameraConfig struct {
	ID      string `yaml:"id"`
	URL     string `yaml:"url"`
	Enabled *bool  `yaml:"enabled,omitempty"`

	Anchor         string `yaml:"anchor"` // centroid, bottom-right, bottom-center, center-right
	ClassMerge     []int  `yaml:"class_merge,omitempty"`
	MergeTarget    *int   `yaml:"merge_target,omitempty"`
	TrackTTLFrames int64  `yaml:"track_ttl_frames"`

	// Zero values fall back to the process-wide settings.
	ProcessFPS     int      `yaml:"process_fps,omitempty"`
	QueueCapacity  int      `yaml:"queue_capacity,omitempty"`
	RotationHour   *int     `yaml:"rotation_hour,omitempty"`
	SnapshotMargin *float64 `yaml:"snapshot_margin,omitempty"`

	Counters []CounterConfig `yaml:"counters"`
}

// CounterConfig declares one counting line or polygon.
type CounterConfig struct {
	Name     string      `yaml:"name"`
	Zone     string      `yaml:"zone"`
	Points   [][]float64 `yaml:"points"`
	Anchor   string      `yaml:"anchor,omitempty"`
	InEvent  string      `yaml:"in_event,omitempty"`
	OutEvent string      `yaml:"out_event,omitempty"`
}

// IsEnabled defaults to true.
func (c CameraConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// LoadCameras reads and validates the camera records at path, filling unset
// per-camera settings from cfg.
func LoadCameras(path string, cfg *Config) ([]CameraConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cameras config: %w", err)
	}
	return ParseCameras(data, cfg)
}

// ParseCameras decodes YAML camera records and validates them.
func ParseCameras(data []byte, cfg *Config) ([]CameraConfig, error) {
	var file CamerasFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse cameras config: %w", err)
	}

	seen := make(map[string]bool, len(file.Cameras))
	for i := range file.Cameras {
		cam := &file.Cameras[i]
		cam.applyDefaults(cfg)
		if err := cam.Validate(); err != nil {
			return nil, fmt.Errorf("camera %q: %w", cam.ID, err)
		}
		if seen[cam.ID] {
			return nil, fmt.Errorf("camera %q: duplicate id", cam.ID)
		}
		seen[cam.ID] = true
	}
	return file.Cameras, nil
}

func (c *CameraConfig) applyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}
	if c.ProcessFPS <= 0 {
		c.ProcessFPS = cfg.ProcessFPS
	}
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = cfg.QueueCapacity
	}
	if c.RotationHour == nil {
		h := cfg.RotationHour
		c.RotationHour = &h
	}
	if c.SnapshotMargin == nil {
		m := cfg.SnapshotMargin
		c.SnapshotMargin = &m
	}
}

// Validate checks everything that would otherwise fail at pipeline start.
func (c CameraConfig) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("id is required")
	}
	if c.URL == "" {
		return fmt.Errorf("url is required")
	}
	if _, err := counting.ParseAnchorPolicy(c.Anchor); err != nil {
		return err
	}
	if n := len(c.Counters); n == 0 || n > counting.MaxCountersPerCamera {
		return fmt.Errorf("expected 1-%d counters, got %d", counting.MaxCountersPerCamera, n)
	}
	if c.RotationHour != nil && (*c.RotationHour < 0 || *c.RotationHour > 23) {
		return fmt.Errorf("rotation_hour %d out of range 0-23", *c.RotationHour)
	}
	if c.SnapshotMargin != nil && *c.SnapshotMargin < 0 {
		return fmt.Errorf("snapshot_margin must not be negative")
	}

	names := make(map[string]bool, len(c.Counters))
	for i, ctr := range c.Counters {
		if ctr.Name == "" {
			return fmt.Errorf("counter %d: name is required", i)
		}
		if names[ctr.Name] {
			return fmt.Errorf("counter %q: duplicate name", ctr.Name)
		}
		names[ctr.Name] = true

		if _, err := ctr.Region(); err != nil {
			return fmt.Errorf("counter %q: %w", ctr.Name, err)
		}
		if _, err := counting.ParseAnchorPolicy(ctr.Anchor); err != nil {
			return fmt.Errorf("counter %q: %w", ctr.Name, err)
		}
		for _, ev := range []string{ctr.InEvent, ctr.OutEvent} {
			if ev != "" && ev != string(models.DirectionIn) && ev != string(models.DirectionOut) {
				return fmt.Errorf("counter %q: event %q must be in or out", ctr.Name, ev)
			}
		}
	}
	return nil
}

// Region converts the configured points. A counter without points counts on
// the default line.
func (c CounterConfig) Region() (counting.Region, error) {
	if len(c.Points) == 0 {
		return counting.DefaultRegion(), nil
	}
	pts := make([]models.Point, len(c.Points))
	for i, p := range c.Points {
		if len(p) != 2 {
			return counting.Region{}, fmt.Errorf("%w: point %d must be [x, y]", counting.ErrInvalidRegion, i)
		}
		pts[i] = models.Point{X: p[0], Y: p[1]}
	}
	return counting.NewRegion(pts)
}

// Merge returns the class merge for this camera, defaulting to vehicles->car.
func (c CameraConfig) Merge() counting.ClassMerge {
	m := counting.DefaultClassMerge()
	if len(c.ClassMerge) > 0 {
		m.Classes = c.ClassMerge
	}
	if c.MergeTarget != nil {
		m.Target = *c.MergeTarget
	}
	return m
}

// AggregatorOptions builds the counting setup for this camera.
func (c CameraConfig) AggregatorOptions(snapshotQuality int) (counting.AggregatorOptions, error) {
	cameraAnchor, err := counting.ParseAnchorPolicy(c.Anchor)
	if err != nil {
		return counting.AggregatorOptions{}, err
	}

	specs := make([]counting.CounterSpec, 0, len(c.Counters))
	for _, ctr := range c.Counters {
		region, err := ctr.Region()
		if err != nil {
			return counting.AggregatorOptions{}, fmt.Errorf("counter %q: %w", ctr.Name, err)
		}
		anchor := cameraAnchor
		if ctr.Anchor != "" {
			if anchor, err = counting.ParseAnchorPolicy(ctr.Anchor); err != nil {
				return counting.AggregatorOptions{}, err
			}
		}
		zone := ctr.Zone
		if zone == "" {
			zone = c.ID
		}
		specs = append(specs, counting.CounterSpec{
			Options: counting.CounterOptions{
				Name:       ctr.Name,
				Zone:       zone,
				Region:     region,
				Anchor:     anchor,
				ClassMerge: c.Merge(),
				TrackTTL:   c.TrackTTLFrames,
			},
			InEvent:  models.Direction(ctr.InEvent),
			OutEvent: models.Direction(ctr.OutEvent),
		})
	}

	margin := 0.5
	if c.SnapshotMargin != nil {
		margin = *c.SnapshotMargin
	}
	return counting.AggregatorOptions{
		CameraID:        c.ID,
		Counters:        specs,
		SnapshotMargin:  margin,
		SnapshotQuality: snapshotQuality,
	}, nil
}
