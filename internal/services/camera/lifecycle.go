package camera

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"vehicle-counter-go/internal/config"
	"vehicle-counter-go/internal/counting"
	"vehicle-counter-go/internal/logging"
	"vehicle-counter-go/internal/models"
)

// CameraState represents the atomic run state of a camera
type CameraState int32

const (
	StateStopped CameraState = iota
	StateRunning
	StateStoppingCamera
)

func (s CameraState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateRunning:
		return "running"
	case StateStoppingCamera:
		return "stopping"
	default:
		return "unknown"
	}
}

// Dependencies are the collaborators of one camera pipeline.
type Dependencies struct {
	Source    FrameSource
	Detector  Detector
	Annotator Annotator // optional
	Archive   Archive   // optional
	Notifier  Notifier  // optional

	// Now defaults to time.Now.
	Now func() time.Time
}

// Options are the per-camera pipeline settings.
type Options struct {
	Camera            config.CameraConfig
	SourceRetryDelay  time.Duration
	DetectorTimeout   time.Duration
	SnapshotQuality   int
	StopTimeout       time.Duration
	PanicRestartDelay time.Duration // pause before a crashed acquisition loop restarts
	Logger            *zerolog.Logger // base logger, the global one when nil
}

// CameraLifecycle runs the two workers of one camera: acquisition pushes
// frames into a drop-oldest queue, processing pops them, counts and archives.
// Counters are owned by the processing worker; readers use Counts.
type CameraLifecycle struct {
	id     string
	opts   Options
	deps   Dependencies
	logger zerolog.Logger

	state int32
	stage int32

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	queue      *FrameQueue
	aggregator *counting.ZoneAggregator
	counts     atomic.Pointer[models.CameraCounts]

	// Processing worker only
	schedule    *rotationSchedule
	archiveOpen bool

	sourceOnline   atomic.Bool
	statusReported atomic.Bool
	framesRead     atomic.Int64
	framesDone     atomic.Int64
	lastFrameNanos atomic.Int64
	fpsBits        atomic.Uint64
	nextRotation   atomic.Int64
	archivePath    atomic.Pointer[string]
	lastError      atomic.Pointer[string]
}

// NewCameraLifecycle validates the camera's counting setup and builds an idle
// pipeline. Invalid regions fail here, before any frame is read.
func NewCameraLifecycle(opts Options, deps Dependencies) (*CameraLifecycle, error) {
	if deps.Source == nil {
		return nil, fmt.Errorf("camera %s: frame source is required", opts.Camera.ID)
	}
	if deps.Detector == nil {
		return nil, fmt.Errorf("camera %s: detector is required", opts.Camera.ID)
	}
	if deps.Notifier == nil {
		deps.Notifier = noopNotifier{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if opts.SourceRetryDelay <= 0 {
		opts.SourceRetryDelay = 500 * time.Millisecond
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = 5 * time.Second
	}
	if opts.PanicRestartDelay <= 0 {
		opts.PanicRestartDelay = 2 * time.Second
	}
	base := log.Logger
	if opts.Logger != nil {
		base = *opts.Logger
	}

	aggOpts, err := opts.Camera.AggregatorOptions(opts.SnapshotQuality)
	if err != nil {
		return nil, fmt.Errorf("camera %s: %w", opts.Camera.ID, err)
	}
	agg, err := counting.NewZoneAggregator(aggOpts)
	if err != nil {
		return nil, err
	}

	cl := &CameraLifecycle{
		id:         opts.Camera.ID,
		opts:       opts,
		deps:       deps,
		logger:     logging.WithCamera(base, opts.Camera.ID),
		queue:      NewFrameQueue(opts.Camera.QueueCapacity),
		aggregator: agg,
	}
	cl.counts.Store(agg.Snapshot(deps.Now()))
	return cl, nil
}

func (cl *CameraLifecycle) ID() string { return cl.id }

func (cl *CameraLifecycle) getState() CameraState {
	return CameraState(atomic.LoadInt32(&cl.state))
}

func (cl *CameraLifecycle) setStage(s PipelineState) {
	atomic.StoreInt32(&cl.stage, int32(s))
}

// Stage is the pipeline stage of the most recent frame.
func (cl *CameraLifecycle) Stage() PipelineState {
	return PipelineState(atomic.LoadInt32(&cl.stage))
}

// Start launches the acquisition and processing workers.
func (cl *CameraLifecycle) Start(parent context.Context) error {
	if !atomic.CompareAndSwapInt32(&cl.state, int32(StateStopped), int32(StateRunning)) {
		return fmt.Errorf("camera %s cannot start from state %s", cl.id, cl.getState())
	}

	cl.logger.Info().
		Int("process_fps", cl.opts.Camera.ProcessFPS).
		Int("queue_capacity", cl.queue.Cap()).
		Msg("Starting camera")

	cl.ctx, cl.cancel = context.WithCancel(parent)
	cl.schedule = newRotationSchedule(cl.deps.Now(), cl.rotationHour())
	cl.nextRotation.Store(cl.schedule.next.UnixNano())

	cl.wg.Add(2)
	go cl.runAcquisition()
	go cl.runProcessing()
	return nil
}

// Stop cancels both workers and waits for them to release the source and
// archive writer.
func (cl *CameraLifecycle) Stop() error {
	if !atomic.CompareAndSwapInt32(&cl.state, int32(StateRunning), int32(StateStoppingCamera)) {
		return fmt.Errorf("camera %s cannot stop from state %s", cl.id, cl.getState())
	}

	cl.logger.Info().Msg("Stopping camera")
	cl.setStage(StateStopping)
	cl.cancel()

	done := make(chan struct{})
	go func() {
		cl.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		cl.logger.Debug().Msg("Shutdown confirmed")
	case <-time.After(cl.opts.StopTimeout):
		cl.logger.Warn().Msg("Shutdown timeout")
	}

	atomic.StoreInt32(&cl.state, int32(StateStopped))
	cl.logger.Info().Msg("Camera stopped successfully")
	return nil
}

// Done is closed when both workers have exited.
func (cl *CameraLifecycle) Done() <-chan struct{} {
	done := make(chan struct{})
	go func() {
		cl.wg.Wait()
		close(done)
	}()
	return done
}

func (cl *CameraLifecycle) rotationHour() int {
	if cl.opts.Camera.RotationHour != nil {
		return *cl.opts.Camera.RotationHour
	}
	return 0
}

// ========================================
// ACQUISITION WORKER
// ========================================

// runAcquisition restarts the read loop after a panic until the camera is
// stopped.
func (cl *CameraLifecycle) runAcquisition() {
	defer cl.wg.Done()
	defer cl.queue.Close()

	var frameID int64
	for cl.acquire(&frameID) {
		cl.setSourceOnline(false)
		cl.logger.Warn().Dur("restart_in", cl.opts.PanicRestartDelay).Msg("Restarting acquisition after panic")
		if !cl.sleep(cl.opts.PanicRestartDelay) {
			return
		}
	}
}

// acquire reads frames into the queue until ctx is cancelled. It reports
// restart=true when it stopped because of a panic.
func (cl *CameraLifecycle) acquire(frameID *int64) (restart bool) {
	defer func() {
		if r := recover(); r != nil {
			cl.recordError(fmt.Errorf("acquisition panic: %v", r))
			cl.logger.Error().Interface("panic", r).Msg("Acquisition panic recovered")
			restart = true
		}
	}()

	source := cl.deps.Source
	opened := false
	defer func() {
		if opened {
			if err := source.Close(); err != nil {
				cl.logger.Warn().Err(err).Msg("Failed to close frame source")
			}
		}
	}()

	for {
		if cl.ctx.Err() != nil {
			cl.logger.Info().Msg("Camera context cancelled")
			return false
		}

		if !opened {
			if err := source.Open(cl.ctx); err != nil {
				cl.recordError(err)
				cl.setSourceOnline(false)
				cl.logger.Warn().Err(err).Dur("retry_in", cl.opts.SourceRetryDelay).Msg("Failed to open frame source")
				if !cl.sleep(cl.opts.SourceRetryDelay) {
					return false
				}
				continue
			}
			opened = true
			cl.setSourceOnline(true)
		}

		cl.setStage(StateAcquiring)
		frame, err := source.Read()
		if err != nil {
			cl.recordError(err)
			cl.setSourceOnline(false)
			cl.logger.Warn().Err(err).Dur("retry_in", cl.opts.SourceRetryDelay).Msg("Frame read failed, reopening source")

			if cerr := source.Close(); cerr != nil {
				cl.logger.Debug().Err(cerr).Msg("Error closing frame source")
			}
			opened = false
			if !cl.sleep(cl.opts.SourceRetryDelay) {
				return false
			}
			continue
		}
		if frame == nil {
			continue
		}

		*frameID++
		frame.FrameID = *frameID
		frame.CameraID = cl.id
		if frame.Timestamp.IsZero() {
			frame.Timestamp = cl.deps.Now()
		}

		cl.framesRead.Add(1)
		cl.lastFrameNanos.Store(frame.Timestamp.UnixNano())

		if cl.queue.Push(frame) {
			cl.logger.Trace().Int64("frame_id", *frameID).Msg("Queue full, dropped oldest frame")
		}
		cl.setStage(StateQueued)
	}
}

// setSourceOnline reports online/offline transitions to the notifier.
func (cl *CameraLifecycle) setSourceOnline(online bool) {
	prev := cl.sourceOnline.Swap(online)
	if prev == online && cl.statusReported.Load() {
		return
	}
	cl.statusReported.Store(true)

	detail := models.DeviceOffline
	if online {
		detail = models.DeviceOnline
	}
	cl.logger.Info().Str("status", detail).Msg("Camera source status changed")
	cl.deps.Notifier.NotifyDeviceStatus(models.DeviceStatusEvent{
		Camera:     cl.id,
		Detail:     detail,
		OccurredAt: cl.deps.Now(),
	})
}

// ========================================
// PROCESSING WORKER
// ========================================

func (cl *CameraLifecycle) runProcessing() {
	defer cl.wg.Done()
	defer cl.closeArchive()

	fps := cl.opts.Camera.ProcessFPS
	if fps <= 0 {
		fps = 15
	}
	budget := time.Second / time.Duration(fps)

	var lastDone time.Time
	for {
		// Pop would still hand out queued frames after cancellation.
		if cl.ctx.Err() != nil {
			cl.logger.Debug().Msg("Processing loop exiting")
			return
		}
		frame, err := cl.queue.Pop(cl.ctx)
		if err != nil {
			cl.logger.Debug().Err(err).Msg("Processing loop exiting")
			return
		}

		start := cl.deps.Now()
		cl.setStage(StateProcessing)
		cl.processFrame(frame)
		cl.setStage(StateArchived)
		cl.framesDone.Add(1)

		if !lastDone.IsZero() {
			cl.updateFPS(start.Sub(lastDone))
		}
		lastDone = start

		if remaining := budget - cl.deps.Now().Sub(start); remaining > 0 {
			if !cl.sleep(remaining) {
				return
			}
		}
	}
}

// processFrame runs one detect/count/draw/archive cycle.
func (cl *CameraLifecycle) processFrame(frame *models.RawFrame) {
	defer func() {
		if r := recover(); r != nil {
			cl.logger.Error().
				Int64("frame_id", frame.FrameID).
				Interface("panic", r).
				Msg("Process frame panic recovered")
		}
	}()

	now := cl.deps.Now()
	if cl.schedule.due(now) {
		cl.rotate(now)
	}
	if cl.deps.Archive != nil && !cl.archiveOpen {
		cl.openArchive(now, frame)
	}

	result := cl.detect(frame)
	updates := cl.aggregator.Observe(frame, result)
	for _, u := range updates {
		cl.dispatch(u, now)
	}

	out := frame
	if cl.deps.Annotator != nil {
		if annotated := cl.deps.Annotator.Annotate(frame, result, cl.aggregator.Counters(), cl.ProcessingFPS()); annotated != nil {
			out = annotated
		}
	}
	if cl.deps.Archive != nil && cl.archiveOpen {
		if err := cl.deps.Archive.Write(out); err != nil {
			cl.recordError(err)
			cl.logger.Warn().Err(err).Int64("frame_id", frame.FrameID).Msg("Failed to write archive frame")
		}
	}

	cl.counts.Store(cl.aggregator.Snapshot(now))
}

func (cl *CameraLifecycle) detect(frame *models.RawFrame) *models.DetectionResult {
	ctx := cl.ctx
	if cl.opts.DetectorTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cl.opts.DetectorTimeout)
		defer cancel()
	}

	result, err := cl.deps.Detector.Detect(ctx, frame)
	if err != nil {
		cl.recordError(err)
		cl.logger.Debug().Err(err).Int64("frame_id", frame.FrameID).Msg("Detection failed, frame not counted")
		return nil
	}
	return result
}

func (cl *CameraLifecycle) dispatch(u counting.ZoneUpdate, now time.Time) {
	cl.logger.Info().
		Str("counter", u.Counter).
		Str("zone", u.Zone).
		Str("event", string(u.Event)).
		Int("delta", u.Delta).
		Int("in_counts", u.Counts.InCounts).
		Int("out_counts", u.Counts.OutCounts).
		Msg("Count changed")

	cl.deps.Notifier.NotifyCount(models.CountEvent{
		ID:         uuid.NewString(),
		Camera:     cl.id,
		Zone:       u.Zone,
		Direction:  u.Event,
		Counter:    u.Counter,
		Delta:      u.Delta,
		InCounts:   u.Counts.InCounts,
		OutCounts:  u.Counts.OutCounts,
		ClassWise:  u.Counts.ClassWise,
		Snapshot:   u.Snapshot,
		OccurredAt: now,
	})
}

// rotate closes the current archive and recreates every counter. The next
// archive file is opened with the triggering frame.
func (cl *CameraLifecycle) rotate(now time.Time) {
	cl.logger.Info().Time("next_rotation", cl.schedule.next).Msg("Daily rotation")

	cl.closeArchive()
	cl.aggregator.Reset(now)
	cl.counts.Store(cl.aggregator.Snapshot(now))
	cl.nextRotation.Store(cl.schedule.next.UnixNano())
}

func (cl *CameraLifecycle) openArchive(now time.Time, frame *models.RawFrame) {
	path, err := cl.deps.Archive.Open(now, frame.Width, frame.Height)
	if err != nil {
		cl.recordError(err)
		cl.logger.Error().Err(err).Msg("Failed to open archive")
		return
	}
	cl.archiveOpen = true
	cl.archivePath.Store(&path)
	cl.logger.Info().Str("path", path).Msg("Archive opened")
}

func (cl *CameraLifecycle) closeArchive() {
	if cl.deps.Archive == nil || !cl.archiveOpen {
		return
	}
	cl.archiveOpen = false
	if err := cl.deps.Archive.Close(); err != nil {
		cl.recordError(err)
		cl.logger.Warn().Err(err).Msg("Failed to close archive")
	}
}

// sleep waits for d or until the camera is cancelled. It reports whether the
// full duration elapsed.
func (cl *CameraLifecycle) sleep(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-cl.ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (cl *CameraLifecycle) updateFPS(interval time.Duration) {
	if interval <= 0 {
		return
	}
	inst := float64(time.Second) / float64(interval)
	prev := math.Float64frombits(cl.fpsBits.Load())
	if prev == 0 {
		cl.fpsBits.Store(math.Float64bits(inst))
		return
	}
	cl.fpsBits.Store(math.Float64bits(prev*0.9 + inst*0.1))
}

func (cl *CameraLifecycle) recordError(err error) {
	msg := err.Error()
	cl.lastError.Store(&msg)
}

// ProcessingFPS is a smoothed rate of processed frames.
func (cl *CameraLifecycle) ProcessingFPS() float64 {
	return math.Float64frombits(cl.fpsBits.Load())
}

// Counts returns the counter state published after the last processed frame.
func (cl *CameraLifecycle) Counts() *models.CameraCounts {
	return cl.counts.Load()
}

// Dropped is the number of frames discarded by the queue.
func (cl *CameraLifecycle) Dropped() int64 {
	return cl.queue.Dropped()
}

// Status summarizes the pipeline for the API.
func (cl *CameraLifecycle) Status() models.CameraStatus {
	st := models.CameraStatus{
		CameraID:      cl.id,
		State:         cl.getState().String(),
		SourceOnline:  cl.sourceOnline.Load(),
		FramesRead:    cl.framesRead.Load(),
		FramesDropped: cl.queue.Dropped(),
		FramesDone:    cl.framesDone.Load(),
		ProcessingFPS: cl.ProcessingFPS(),
	}
	if n := cl.lastFrameNanos.Load(); n > 0 {
		st.LastFrameTime = time.Unix(0, n)
	}
	if n := cl.nextRotation.Load(); n > 0 {
		st.NextRotation = time.Unix(0, n)
	}
	if p := cl.archivePath.Load(); p != nil {
		st.ArchivePath = *p
	}
	if e := cl.lastError.Load(); e != nil {
		st.LastError = *e
	}
	if st.State == StateRunning.String() {
		st.State = cl.Stage().String()
	}
	return st
}
