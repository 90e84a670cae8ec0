package workspace

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManifestRoundTrip(t *testing.T) {
	root := t.TempDir()
	m := NewManifest(root, "oracle", "HR", runTime)
	_, err := uuid.Parse(m.RunID)
	require.NoError(t, err)

	m.AddPhase(Phase{
		ObjectType: "VIEW",
		Shards:     2,
		Objects:    2,
		Bytes:      30,
		Files: []File{
			{Object: "V2", Path: filepath.Join(root, "Views", "V2.sql"), Bytes: 10, Checksum: "b"},
			{Object: "V1", Path: filepath.Join(root, "Views", "V1.sql"), Bytes: 20, Checksum: "a"},
		},
	})
	m.AddPhase(Phase{ObjectType: "JOB", Shards: 1, Objects: 1, Bytes: 5})

	path, err := m.Write(runTime.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, ManifestName), path)

	got, err := ReadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, m.RunID, got.RunID)
	assert.Equal(t, 3, got.Objects)
	assert.Equal(t, int64(35), got.Bytes)
	assert.Equal(t, time.Minute, got.FinishedAt.Sub(got.StartedAt))
	require.Len(t, got.Phases, 2)
	assert.Equal(t, "VIEW", got.Phases[0].ObjectType)
	require.Len(t, got.Phases[0].Files, 2)
	assert.Equal(t, "Views/V1.sql", got.Phases[0].Files[0].Path)
	assert.Equal(t, "a", got.Phases[0].Files[0].Checksum)
}

func TestManifestRunIDsDiffer(t *testing.T) {
	a := NewManifest("", "sqlite", "main", runTime)
	b := NewManifest("", "sqlite", "main", runTime)
	assert.NotEqual(t, a.RunID, b.RunID)
}
