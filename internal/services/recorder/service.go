package recorder

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"vehicle-counter-go/internal/config"
	"vehicle-counter-go/internal/models"
	"vehicle-counter-go/internal/services/camera"
)

// Encoder writes frames into one video file.
type Encoder interface {
	Open(path string, width, height int, fps float64) error
	Write(frame *models.RawFrame) error
	Close() error
}

// Publisher is satisfied by messaging.Service.
type Publisher interface {
	Publish(subject string, data interface{}) error
}

// ArchiveMetadata is published when an archive file is closed.
type ArchiveMetadata struct {
	CameraID   string    `json:"camera_id"`
	File       string    `json:"file"`
	Path       string    `json:"path"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Duration   float64   `json:"duration"`
	FileSize   int64     `json:"file_size"`
	FrameCount int64     `json:"frame_count"`
}

// Options configure one camera's archive.
type Options struct {
	CameraID string
	Dir      string
	FPS      float64
	MaxFiles int    // 0 keeps every file
	Subject  string // NATS subject prefix for metadata
}

// OptionsFor derives archive options for cam from the process config.
func OptionsFor(cfg *config.Config, cam config.CameraConfig) Options {
	return Options{
		CameraID: cam.ID,
		Dir:      filepath.Join(cfg.ArchiveDir, cam.ID),
		FPS:      float64(cam.ProcessFPS),
		MaxFiles: cfg.ArchiveMaxFiles,
		Subject:  cfg.ArchiveSubject,
	}
}

// Archive is the per-camera rotating recorder. It is driven only by the
// camera's processing worker and is not safe for concurrent use.
type Archive struct {
	opts Options
	enc  Encoder
	pub  Publisher
	now  func() time.Time

	path    string
	started time.Time
	frames  int64
}

// NewArchive builds an archive; pub may be nil.
func NewArchive(opts Options, enc Encoder, pub Publisher) *Archive {
	if opts.FPS <= 0 {
		opts.FPS = 15
	}
	return &Archive{opts: opts, enc: enc, pub: pub, now: time.Now}
}

// Open starts a new file named after at.
func (a *Archive) Open(at time.Time, width, height int) (string, error) {
	if a.path != "" {
		return "", fmt.Errorf("archive %s is still open", a.path)
	}
	if err := os.MkdirAll(a.opts.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create archive dir: %w", err)
	}

	path := filepath.Join(a.opts.Dir, camera.ArchiveName(at, a.opts.CameraID))
	if err := a.enc.Open(path, width, height, a.opts.FPS); err != nil {
		return "", fmt.Errorf("failed to open archive %s: %w", path, err)
	}

	a.path = path
	a.started = at
	a.frames = 0

	log.Info().
		Str("camera_id", a.opts.CameraID).
		Str("path", path).
		Int("width", width).
		Int("height", height).
		Float64("fps", a.opts.FPS).
		Msg("Archive file opened")
	return path, nil
}

func (a *Archive) Write(frame *models.RawFrame) error {
	if a.path == "" {
		return fmt.Errorf("archive for camera %s is not open", a.opts.CameraID)
	}
	if err := a.enc.Write(frame); err != nil {
		return err
	}
	a.frames++
	return nil
}

// Close finalizes the current file, publishes its metadata and applies
// retention. The closed file stays readable.
func (a *Archive) Close() error {
	if a.path == "" {
		return nil
	}
	path := a.path
	a.path = ""

	if err := a.enc.Close(); err != nil {
		return fmt.Errorf("failed to close archive %s: %w", path, err)
	}

	if err := a.publishMetadata(path); err != nil {
		log.Error().Err(err).Str("camera_id", a.opts.CameraID).Msg("Failed to publish archive metadata")
	}
	if err := a.cleanupOldFiles(); err != nil {
		log.Error().Err(err).Str("camera_id", a.opts.CameraID).Msg("Failed to cleanup old archives")
	}
	return nil
}

// Path is the file currently being written, or "".
func (a *Archive) Path() string { return a.path }

func (a *Archive) publishMetadata(path string) error {
	if a.pub == nil {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to get archive file info: %w", err)
	}

	end := a.now()
	meta := ArchiveMetadata{
		CameraID:   a.opts.CameraID,
		File:       filepath.Base(path),
		Path:       path,
		StartTime:  a.started,
		EndTime:    end,
		Duration:   end.Sub(a.started).Seconds(),
		FileSize:   info.Size(),
		FrameCount: a.frames,
	}

	subject := fmt.Sprintf("%s.%s", a.opts.Subject, a.opts.CameraID)
	if err := a.pub.Publish(subject, meta); err != nil {
		return err
	}

	log.Info().
		Str("camera_id", a.opts.CameraID).
		Str("file", meta.File).
		Int64("size_bytes", meta.FileSize).
		Int64("frames", meta.FrameCount).
		Msg("Published archive metadata")
	return nil
}

// cleanupOldFiles keeps the newest MaxFiles archives of this camera.
func (a *Archive) cleanupOldFiles() error {
	if a.opts.MaxFiles <= 0 {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(a.opts.Dir, "*.mp4"))
	if err != nil {
		return fmt.Errorf("failed to find archives: %w", err)
	}
	if len(files) <= a.opts.MaxFiles {
		return nil
	}

	type fileInfo struct {
		path    string
		modTime time.Time
	}
	list := make([]fileInfo, 0, len(files))
	for _, f := range files {
		if stat, err := os.Stat(f); err == nil {
			list = append(list, fileInfo{path: f, modTime: stat.ModTime()})
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].modTime.Before(list[j].modTime) })

	removed := 0
	for i := 0; i < len(list)-a.opts.MaxFiles; i++ {
		if err := os.Remove(list[i].path); err != nil {
			log.Warn().Err(err).Str("path", list[i].path).Msg("Failed to remove old archive")
			continue
		}
		removed++
	}

	if removed > 0 {
		log.Info().
			Str("camera_id", a.opts.CameraID).
			Int("removed_files", removed).
			Int("max_files", a.opts.MaxFiles).
			Msg("Cleaned up old archives")
	}
	return nil
}
