package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrUnavailable signals that the inventory source failed or returned nothing.
var ErrUnavailable = errors.New("inventory data unavailable")

// FileAccessor reads a full snapshot from a JSON document on disk.
// It is the accessor used by the CLI host and by tests; a live deployment
// substitutes an accessor backed by the inventory system's API.
type FileAccessor struct {
	path string
}

// NewFileAccessor creates a file-backed snapshot accessor.
func NewFileAccessor(path string) *FileAccessor {
	return &FileAccessor{path: path}
}

// Snapshot loads and decodes the snapshot document. A missing file, a
// decode failure, or a snapshot with no records at all maps to ErrUnavailable.
func (a *FileAccessor) Snapshot(_ context.Context) (Snapshot, error) {
	data, err := os.ReadFile(a.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Snapshot{}, fmt.Errorf("%w: %s", ErrUnavailable, a.path)
		}
		return Snapshot{}, fmt.Errorf("read snapshot %s: %w", a.path, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot %s: %w", a.path, err)
	}

	if snap.Empty() {
		return Snapshot{}, fmt.Errorf("%w: snapshot %s holds no records", ErrUnavailable, a.path)
	}

	return snap, nil
}
