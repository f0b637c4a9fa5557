package inventory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeSnapshot(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snapshot.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}
	return path
}

func TestFileAccessor_ReadsSnapshot(t *testing.T) {
	path := writeSnapshot(t, `{
		"taken_at": "2026-08-01T12:00:00Z",
		"prefixes": [
			{"prefix": "10.0.0.0/24", "status": "active", "total_addresses": 256, "used_addresses": 200}
		],
		"devices": [
			{"name": "sw-ber-01", "site": "ber", "status": "active"}
		]
	}`)

	snap, err := NewFileAccessor(path).Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if len(snap.Prefixes) != 1 || snap.Prefixes[0].UsedAddresses != 200 {
		t.Errorf("Unexpected prefixes %+v", snap.Prefixes)
	}
	if len(snap.Devices) != 1 || snap.Devices[0].Name != "sw-ber-01" {
		t.Errorf("Unexpected devices %+v", snap.Devices)
	}
}

func TestFileAccessor_MissingFileIsUnavailable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.json")
	_, err := NewFileAccessor(path).Snapshot(context.Background())
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable for a missing file, got %v", err)
	}
}

func TestFileAccessor_EmptySnapshotIsUnavailable(t *testing.T) {
	path := writeSnapshot(t, `{"taken_at": "2026-08-01T12:00:00Z"}`)
	_, err := NewFileAccessor(path).Snapshot(context.Background())
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable for an empty snapshot, got %v", err)
	}
}

func TestFileAccessor_MalformedJSON(t *testing.T) {
	path := writeSnapshot(t, `{broken`)
	_, err := NewFileAccessor(path).Snapshot(context.Background())
	if err == nil {
		t.Errorf("Expected a decode error for malformed JSON")
	}
	if errors.Is(err, ErrUnavailable) {
		t.Errorf("Expected a decode failure, not ErrUnavailable: %v", err)
	}
}

func TestDeviceRecord_Field(t *testing.T) {
	dev := DeviceRecord{
		Name: "sw-ber-01", Site: "ber", Role: "access",
		DeviceType: "c9300", Serial: "XYZ", Status: "active",
	}

	cases := []struct {
		field string
		want  string
		known bool
	}{
		{"name", "sw-ber-01", true},
		{"site", "ber", true},
		{"device_role", "access", true},
		{"device_type", "c9300", true},
		{"serial", "XYZ", true},
		{"platform", "", true},
		{"no_such_field", "", false},
	}
	for _, c := range cases {
		got, known := dev.Field(c.field)
		if got != c.want || known != c.known {
			t.Errorf("Field(%q): expected (%q, %v), got (%q, %v)", c.field, c.want, c.known, got, known)
		}
	}
}

func TestSnapshot_Empty(t *testing.T) {
	if !(Snapshot{}).Empty() {
		t.Errorf("Expected a zero snapshot to be empty")
	}
	withCable := Snapshot{Cables: []CableRecord{{ID: 1}}}
	if withCable.Empty() {
		t.Errorf("Expected a snapshot with records not to be empty")
	}
}
