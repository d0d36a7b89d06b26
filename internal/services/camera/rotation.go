package camera

import (
	"fmt"
	"time"
)

// ArchiveTimeLayout is the timestamp prefix of archive file names.
const ArchiveTimeLayout = "20060102_150405"

// NextRotation returns the first instant strictly after now at which the
// local wall clock reads hour:00:00.
func NextRotation(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = time.Date(now.Year(), now.Month(), now.Day()+1, hour, 0, 0, 0, now.Location())
	}
	return next
}

// ArchiveName builds the archive file name for a camera started at t.
func ArchiveName(t time.Time, cameraID string) string {
	return fmt.Sprintf("%s_%s.mp4", t.Format(ArchiveTimeLayout), cameraID)
}

// rotationSchedule tracks the next daily boundary for one camera. It is owned
// by the processing worker.
type rotationSchedule struct {
	hour int
	next time.Time
}

func newRotationSchedule(now time.Time, hour int) *rotationSchedule {
	return &rotationSchedule{hour: hour, next: NextRotation(now, hour)}
}

// due reports whether now has reached the boundary, and if so advances it.
func (r *rotationSchedule) due(now time.Time) bool {
	if now.Before(r.next) {
		return false
	}
	r.next = NextRotation(now, r.hour)
	return true
}
