package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pfrederiksen/silat-watch/internal/schedule"
)

// SnapshotFile is the name of the snapshot file inside the data directory
const SnapshotFile = "data_terakhir.json"

// Storage handles persistence of schedule snapshots
type Storage struct {
	dataDir string
}

// New creates a new Storage instance
func New(dataDir string) (*Storage, error) {
	// Expand ~ to home directory
	if strings.HasPrefix(dataDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, dataDir[2:])
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	return &Storage{
		dataDir: dataDir,
	}, nil
}

// Dir returns the data directory, with ~ expanded
func (s *Storage) Dir() string {
	return s.dataDir
}

// Path returns the path to the snapshot file
func (s *Storage) Path() string {
	return filepath.Join(s.dataDir, SnapshotFile)
}

// Load reads the previous snapshot from disk.
// A missing file yields an empty snapshot.
func (s *Storage) Load() (schedule.Snapshot, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return schedule.Snapshot{}, nil
		}
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	var snapshot schedule.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}

	if snapshot == nil {
		snapshot = schedule.Snapshot{}
	}

	return snapshot, nil
}

// Save replaces the snapshot on disk with records
func (s *Storage) Save(records schedule.Snapshot) error {
	if records == nil {
		records = schedule.Snapshot{}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(s.dataDir, SnapshotFile+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("closing snapshot: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("setting snapshot permissions: %w", err)
	}

	if err := os.Rename(tmpName, s.Path()); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replacing snapshot: %w", err)
	}

	return nil
}
