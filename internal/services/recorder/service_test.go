package recorder

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"vehicle-counter-go/internal/models"
)

// fileEncoder writes one byte per frame so archives have a real size.
type fileEncoder struct {
	f      *os.File
	opened []string
}

func (e *fileEncoder) Open(path string, width, height int, fps float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	e.f = f
	e.opened = append(e.opened, filepath.Base(path))
	return nil
}

func (e *fileEncoder) Write(frame *models.RawFrame) error {
	_, err := e.f.Write([]byte{1})
	return err
}

func (e *fileEncoder) Close() error {
	return e.f.Close()
}

type fakePublisher struct {
	mu       sync.Mutex
	subjects []string
	messages []ArchiveMetadata
}

func (p *fakePublisher) Publish(subject string, data interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	meta, ok := data.(ArchiveMetadata)
	if !ok {
		return errors.New("unexpected payload")
	}
	p.subjects = append(p.subjects, subject)
	p.messages = append(p.messages, meta)
	return nil
}

func TestArchiveLifecycle(t *testing.T) {
	dir := t.TempDir()
	enc := &fileEncoder{}
	pub := &fakePublisher{}
	a := NewArchive(Options{CameraID: "cam_b-in", Dir: dir, FPS: 15, Subject: "video.archives"}, enc, pub)

	start := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return start.Add(time.Hour) }

	path, err := a.Open(start, 64, 48)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "20240310_000000_cam_b-in.mp4"), path)
	require.Equal(t, path, a.Path())

	_, err = a.Open(start, 64, 48)
	require.Error(t, err, "open while a file is still being written")

	for i := 0; i < 3; i++ {
		require.NoError(t, a.Write(&models.RawFrame{}))
	}
	require.NoError(t, a.Close())
	require.Empty(t, a.Path())
	require.NoError(t, a.Close(), "closing twice is a no-op")

	require.Equal(t, []string{"video.archives.cam_b-in"}, pub.subjects)
	meta := pub.messages[0]
	require.Equal(t, "20240310_000000_cam_b-in.mp4", meta.File)
	require.Equal(t, int64(3), meta.FrameCount)
	require.Equal(t, int64(3), meta.FileSize)
	require.Equal(t, 3600.0, meta.Duration)

	require.Error(t, a.Write(&models.RawFrame{}))
}

func TestArchiveRetention(t *testing.T) {
	dir := t.TempDir()
	enc := &fileEncoder{}
	a := NewArchive(Options{CameraID: "cam", Dir: dir, MaxFiles: 2}, enc, nil)

	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		at := day.AddDate(0, 0, i)
		path, err := a.Open(at, 10, 10)
		require.NoError(t, err)
		require.NoError(t, a.Close())
		require.NoError(t, os.Chtimes(path, at, at))
	}

	// The last Close ran retention before its own mtime was set, so run once more.
	require.NoError(t, a.cleanupOldFiles())

	files, err := filepath.Glob(filepath.Join(dir, "*.mp4"))
	require.NoError(t, err)
	for i := range files {
		files[i] = filepath.Base(files[i])
	}
	require.ElementsMatch(t, []string{"20240312_000000_cam.mp4", "20240313_000000_cam.mp4"}, files)
}
