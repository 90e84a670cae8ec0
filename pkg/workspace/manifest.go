package workspace

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/ajitpratap0/schemagit/pkg/errors"
)

// ManifestName is the file name of the manifest inside the output directory.
const ManifestName = "manifest.json"

// File is one written definition file. Path is relative to the output
// directory and uses forward slashes.
type File struct {
	Object   string `json:"object"`
	Path     string `json:"path"`
	Bytes    int64  `json:"bytes"`
	Checksum string `json:"xxh3"`
}

// Phase reports one dumped object type.
type Phase struct {
	ObjectType string `json:"object_type"`
	Shards     int    `json:"shards"`
	Objects    int    `json:"objects"`
	Bytes      int64  `json:"bytes"`
	DurationMS int64  `json:"duration_ms"`
	Files      []File `json:"files"`
}

// Manifest describes a completed run.
type Manifest struct {
	RunID      string    `json:"run_id"`
	Dialect    string    `json:"dialect"`
	Schema     string    `json:"schema"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Objects    int       `json:"objects"`
	Bytes      int64     `json:"bytes"`
	Phases     []Phase   `json:"phases"`

	root string
}

// NewManifest starts the manifest of a run writing below root.
func NewManifest(root, dialect, schema string, started time.Time) *Manifest {
	return &Manifest{
		RunID:     uuid.NewString(),
		Dialect:   dialect,
		Schema:    schema,
		StartedAt: started.UTC(),
		root:      root,
	}
}

// AddPhase records an object type. File paths are made relative to the
// manifest root and sorted.
func (m *Manifest) AddPhase(p Phase) {
	for i, f := range p.Files {
		if m.root != "" {
			if rel, err := filepath.Rel(m.root, f.Path); err == nil {
				f.Path = rel
			}
		}
		f.Path = filepath.ToSlash(f.Path)
		p.Files[i] = f
	}
	sort.Slice(p.Files, func(i, j int) bool { return p.Files[i].Path < p.Files[j].Path })

	m.Phases = append(m.Phases, p)
	m.Objects += p.Objects
	m.Bytes += p.Bytes
}

// Write stamps the finish time and writes the manifest into the root
// directory.
func (m *Manifest) Write(finished time.Time) (string, error) {
	m.FinishedAt = finished.UTC()
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode manifest")
	}

	path := filepath.Join(m.root, ManifestName)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeFile, "failed to write manifest").
			WithDetail("path", path)
	}
	return path, nil
}

// ReadManifest loads a manifest written by Write.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read manifest").
			WithDetail("path", path)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeValidation, "invalid manifest").
			WithDetail("path", path)
	}
	m.root = filepath.Dir(path)
	return &m, nil
}
