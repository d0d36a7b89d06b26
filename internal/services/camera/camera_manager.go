package camera

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"vehicle-counter-go/internal/config"
	"vehicle-counter-go/internal/logging"
	"vehicle-counter-go/internal/models"
)

var ErrCameraNotFound = errors.New("camera not found")

// Factories build the per-camera collaborators. Annotator and Archive may
// return nil to run a camera without overlay or recording.
type Factories struct {
	Source    func(cam config.CameraConfig) (FrameSource, error)
	Annotator func(cam config.CameraConfig) Annotator
	Archive   func(cam config.CameraConfig) Archive
}

// CameraManager owns every configured camera pipeline. The detector and the
// notifier are shared between cameras.
type CameraManager struct {
	cfg      *config.Config
	detector Detector
	notifier Notifier

	cameras map[string]*CameraLifecycle
	order   []string
	mutex   sync.RWMutex
}

// NewCameraManager validates and builds one pipeline per enabled camera.
// Any invalid counter region aborts startup.
func NewCameraManager(cfg *config.Config, cams []config.CameraConfig, detector Detector, notifier Notifier, f Factories) (*CameraManager, error) {
	if f.Source == nil {
		return nil, fmt.Errorf("source factory is required")
	}

	cm := &CameraManager{
		cfg:      cfg,
		detector: detector,
		notifier: notifier,
		cameras:  make(map[string]*CameraLifecycle, len(cams)),
	}
	logger := logging.NewServiceLogger(cfg, "camera")

	for _, cam := range cams {
		if !cam.IsEnabled() {
			log.Info().Str("camera_id", cam.ID).Msg("Camera disabled, skipping")
			continue
		}
		if _, exists := cm.cameras[cam.ID]; exists {
			return nil, fmt.Errorf("camera %s configured twice", cam.ID)
		}

		source, err := f.Source(cam)
		if err != nil {
			return nil, fmt.Errorf("camera %s: failed to create frame source: %w", cam.ID, err)
		}
		deps := Dependencies{
			Source:   source,
			Detector: detector,
			Notifier: notifier,
		}
		if f.Annotator != nil {
			deps.Annotator = f.Annotator(cam)
		}
		if f.Archive != nil {
			deps.Archive = f.Archive(cam)
		}

		cl, err := NewCameraLifecycle(Options{
			Camera:            cam,
			SourceRetryDelay:  cfg.SourceRetryDelay,
			DetectorTimeout:   cfg.DetectorTimeout,
			SnapshotQuality:   cfg.SnapshotQuality,
			StopTimeout:       cfg.ShutdownTimeout,
			PanicRestartDelay: cfg.PanicRestartDelay,
			Logger:            &logger,
		}, deps)
		if err != nil {
			return nil, err
		}
		cm.cameras[cam.ID] = cl
		cm.order = append(cm.order, cam.ID)
	}

	log.Info().
		Int("cameras", len(cm.cameras)).
		Int("process_fps", cfg.ProcessFPS).
		Int("queue_capacity", cfg.QueueCapacity).
		Msg("Camera manager initialized")

	return cm, nil
}

// Start launches every camera pipeline.
func (cm *CameraManager) Start(ctx context.Context) error {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	for _, id := range cm.order {
		if err := cm.cameras[id].Start(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Shutdown stops all cameras in parallel and waits until they have released
// their sources and archives, or ctx expires.
func (cm *CameraManager) Shutdown(ctx context.Context) error {
	cm.mutex.RLock()
	cams := make([]*CameraLifecycle, 0, len(cm.cameras))
	for _, id := range cm.order {
		cams = append(cams, cm.cameras[id])
	}
	cm.mutex.RUnlock()

	var wg sync.WaitGroup
	for _, cl := range cams {
		if cl.getState() != StateRunning {
			continue
		}
		wg.Add(1)
		go func(cl *CameraLifecycle) {
			defer wg.Done()
			if err := cl.Stop(); err != nil {
				log.Warn().Err(err).Str("camera_id", cl.ID()).Msg("Failed to stop camera")
			}
		}(cl)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Int("cameras", len(cams)).Msg("All cameras stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("camera shutdown: %w", ctx.Err())
	}
}

// Get returns the pipeline for id.
func (cm *CameraManager) Get(id string) (*CameraLifecycle, error) {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	cl, ok := cm.cameras[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCameraNotFound, id)
	}
	return cl, nil
}

// Statuses lists every camera ordered by id.
func (cm *CameraManager) Statuses() []models.CameraStatus {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	out := make([]models.CameraStatus, 0, len(cm.cameras))
	for _, cl := range cm.cameras {
		out = append(out, cl.Status())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CameraID < out[j].CameraID })
	return out
}

// Counts returns the latest counters of one camera.
func (cm *CameraManager) Counts(id string) (*models.CameraCounts, error) {
	cl, err := cm.Get(id)
	if err != nil {
		return nil, err
	}
	return cl.Counts(), nil
}

// IDs lists the configured cameras in configuration order.
func (cm *CameraManager) IDs() []string {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	return append([]string(nil), cm.order...)
}

// Status returns the runtime status of one camera.
func (cm *CameraManager) Status(id string) (models.CameraStatus, error) {
	cl, err := cm.Get(id)
	if err != nil {
		return models.CameraStatus{}, err
	}
	return cl.Status(), nil
}
