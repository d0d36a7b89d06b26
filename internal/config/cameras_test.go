package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"vehicle-counter-go/internal/counting"
	"vehicle-counter-go/internal/models"
)

const sampleCameras = `
cameras:
  - id: cam_b-in
    url: rtsp://10.0.0.11/stream1
    anchor: centroid
    counters:
      - name: counter1
        zone: b
        points: [[50, 400], [500, 250]]
        in_event: in
        out_event: in
      - name: counter2
        zone: b
        points: [[750, 200], [1050, 190]]
        in_event: out
        out_event: out
  - id: cam_b-out
    url: rtsp://10.0.0.12/stream1
    anchor: buttom-right
    process_fps: 10
    rotation_hour: 3
    counters:
      - name: counter1
        zone: b
        points: [[575, 275], [1280, 425]]
        in_event: out
        out_event: out
  - id: cam_default
    url: rtsp://10.0.0.13/stream1
    enabled: false
    class_merge: [3, 4]
    merge_target: 3
    counters:
      - name: main
`

func testDefaults() *Config {
	return &Config{ProcessFPS: 15, QueueCapacity: 10, RotationHour: 0, SnapshotMargin: 0.5}
}

func TestParseCameras(t *testing.T) {
	cams, err := ParseCameras([]byte(sampleCameras), testDefaults())
	require.NoError(t, err)
	require.Len(t, cams, 3)

	bin := cams[0]
	require.True(t, bin.IsEnabled())
	require.Equal(t, 15, bin.ProcessFPS)
	require.Equal(t, 10, bin.QueueCapacity)
	require.Equal(t, 0, *bin.RotationHour)

	opts, err := bin.AggregatorOptions(80)
	require.NoError(t, err)
	require.Len(t, opts.Counters, 2)
	require.Equal(t, models.DirectionIn, opts.Counters[0].OutEvent)
	require.Equal(t, models.DirectionOut, opts.Counters[1].InEvent)
	require.Equal(t, 0.5, opts.SnapshotMargin)
	require.Equal(t, counting.DefaultClassMerge(), opts.Counters[0].Options.ClassMerge)

	bout := cams[1]
	require.Equal(t, 10, bout.ProcessFPS)
	require.Equal(t, 3, *bout.RotationHour)
	opts, err = bout.AggregatorOptions(80)
	require.NoError(t, err)
	require.Equal(t, counting.AnchorBottomRight, opts.Counters[0].Options.Anchor)

	def := cams[2]
	require.False(t, def.IsEnabled())
	opts, err = def.AggregatorOptions(80)
	require.NoError(t, err)
	require.Equal(t, counting.DefaultRegion().Points(), opts.Counters[0].Options.Region.Points())
	require.Equal(t, "cam_default", opts.Counters[0].Options.Zone, "zone defaults to camera id")
	require.Equal(t, counting.ClassMerge{Classes: []int{3, 4}, Target: 3}, def.Merge())
}

func TestParseCamerasRejectsInvalidRecords(t *testing.T) {
	cases := map[string]string{
		"single point": `
cameras:
  - id: a
    url: rtsp://x
    counters:
      - name: c
        points: [[1, 2]]
`,
		"bad anchor": `
cameras:
  - id: a
    url: rtsp://x
    anchor: top-left
    counters:
      - name: c
`,
		"too many counters": `
cameras:
  - id: a
    url: rtsp://x
    counters: [{name: a}, {name: b}, {name: c}, {name: d}]
`,
		"duplicate camera": `
cameras:
  - {id: a, url: rtsp://x, counters: [{name: c}]}
  - {id: a, url: rtsp://y, counters: [{name: c}]}
`,
		"bad event": `
cameras:
  - id: a
    url: rtsp://x
    counters:
      - {name: c, in_event: sideways}
`,
		"rotation hour": `
cameras:
  - id: a
    url: rtsp://x
    rotation_hour: 24
    counters: [{name: c}]
`,
		"missing url": `
cameras:
  - id: a
    counters: [{name: c}]
`,
	}

	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCameras([]byte(doc), testDefaults())
			require.Error(t, err)
		})
	}

	_, err := ParseCameras([]byte(cases["single point"]), testDefaults())
	require.ErrorIs(t, err, counting.ErrInvalidRegion)
}

func TestLoadCamerasFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cameras.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleCameras), 0o644))

	cams, err := LoadCameras(path, testDefaults())
	require.NoError(t, err)
	require.Len(t, cams, 3)

	_, err = LoadCameras(filepath.Join(t.TempDir(), "missing.yaml"), testDefaults())
	require.Error(t, err)
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("COUNTER_TEST_INT", "42")
	t.Setenv("COUNTER_TEST_BAD", "nope")
	t.Setenv("COUNTER_TEST_FLOAT", "0.25")

	require.Equal(t, 42, getEnvInt("COUNTER_TEST_INT", 1))
	require.Equal(t, 1, getEnvInt("COUNTER_TEST_BAD", 1))
	require.Equal(t, 0.25, getEnvFloat("COUNTER_TEST_FLOAT", 0.5))
	require.True(t, getEnvBool("COUNTER_TEST_UNSET", true))
}
