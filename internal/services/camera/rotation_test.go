package camera

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNextRotation(t *testing.T) {
	loc := time.FixedZone("test", 5*3600+30*60)

	tests := []struct {
		name string
		now  time.Time
		hour int
		want time.Time
	}{
		{
			name: "later today",
			now:  time.Date(2024, 3, 10, 1, 15, 0, 0, loc),
			hour: 3,
			want: time.Date(2024, 3, 10, 3, 0, 0, 0, loc),
		},
		{
			name: "midnight is tomorrow",
			now:  time.Date(2024, 3, 10, 14, 0, 0, 0, loc),
			hour: 0,
			want: time.Date(2024, 3, 11, 0, 0, 0, 0, loc),
		},
		{
			name: "exactly on the boundary moves a day",
			now:  time.Date(2024, 3, 10, 0, 0, 0, 0, loc),
			hour: 0,
			want: time.Date(2024, 3, 11, 0, 0, 0, 0, loc),
		},
		{
			name: "month end",
			now:  time.Date(2024, 2, 29, 23, 59, 59, 0, loc),
			hour: 0,
			want: time.Date(2024, 3, 1, 0, 0, 0, 0, loc),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextRotation(tt.now, tt.hour)
			require.True(t, tt.want.Equal(got), "got %s want %s", got, tt.want)
		})
	}
}

func TestArchiveName(t *testing.T) {
	ts := time.Date(2024, 3, 10, 0, 0, 5, 0, time.UTC)
	require.Equal(t, "20240310_000005_cam_b-in.mp4", ArchiveName(ts, "cam_b-in"))
}

func TestRotationScheduleDue(t *testing.T) {
	start := time.Date(2024, 3, 10, 23, 59, 0, 0, time.UTC)
	s := newRotationSchedule(start, 0)

	require.False(t, s.due(start.Add(30*time.Second)))
	require.True(t, s.due(start.Add(61*time.Second)))
	require.False(t, s.due(start.Add(2*time.Minute)), "boundary advanced after firing")
	require.Equal(t, time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC), s.next)
}
