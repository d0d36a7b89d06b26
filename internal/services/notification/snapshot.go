package notification

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SnapshotStore keeps the latest crop of every zone as zone_<zone>.jpg and
// returns the public URL of the written file.
type SnapshotStore struct {
	dir     string
	baseURL string
}

func NewSnapshotStore(dir, baseURL string) *SnapshotStore {
	return &SnapshotStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}
}

// FileName is the snapshot file for zone. Characters that are not safe in
// a file name are replaced with '_'.
func FileName(zone string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, zone)
	return "zone_" + safe + ".jpg"
}

// Save replaces the zone's snapshot atomically.
func (s *SnapshotStore) Save(zone string, jpeg []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create snapshot dir: %w", err)
	}

	name := FileName(zone)
	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create snapshot: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if _, err := tmp.Write(jpeg); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to store snapshot: %w", err)
	}

	return s.baseURL + "/" + name, nil
}
