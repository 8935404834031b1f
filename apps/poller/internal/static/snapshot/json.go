package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Haruday0/sendai-bus-map-v2/apps/api/repository"
	"github.com/Haruday0/sendai-bus-map-v2/apps/api/schedule"
)

// GeneratorVersion changes whenever Build's output layout changes, forcing a
// rebuild of cached snapshots
const GeneratorVersion = "1"

// ManifestFile is the name of the manifest written next to the snapshot files
const ManifestFile = "manifest.json"

// Manifest describes a snapshot directory
type Manifest struct {
	UpdatedAt        string          `json:"updated_at"`
	GeneratedAt      string          `json:"generated_at,omitempty"` // legacy
	GeneratorVersion string          `json:"generator_version"`
	Files            []ManifestEntry `json:"files"`
}

// ManifestEntry is one snapshot file and its checksum
type ManifestEntry struct {
	Path   string `json:"path"`
	SHA256 string `json:"sha256"`
}

// WriteJSON writes the six snapshot files and a manifest into dir
func WriteJSON(dir string, t schedule.Tables, now time.Time) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	files := []struct {
		name string
		v    any
	}{
		{repository.StopsFile, t.Stops},
		{repository.RoutesFile, t.Routes},
		{repository.TimetablesFile, t.Timetables},
		{repository.ShapesFile, t.Shapes},
		{repository.CalendarFile, t.Calendar},
		{repository.ExtraFile, t.Extra},
	}

	manifest := Manifest{
		UpdatedAt:        now.UTC().Format(time.RFC3339),
		GeneratorVersion: GeneratorVersion,
	}
	for _, f := range files {
		data, err := json.Marshal(f.v)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", f.name, err)
		}
		if err := writeFileAtomic(filepath.Join(dir, f.name), data); err != nil {
			return err
		}
		manifest.Files = append(manifest.Files, ManifestEntry{Path: f.name, SHA256: sha256Sum(data)})
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(filepath.Join(dir, ManifestFile), data)
}

// ReadManifest reads the manifest of a snapshot directory
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	return &m, nil
}

// writeFileAtomic replaces path so a running API never reads a half-written file
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

func sha256Sum(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
