package workspace

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/schemagit/pkg/errors"
)

var runTime = time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

func TestPrepareCreatesMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "hr")

	backup, err := Prepare(dir, runTime, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Empty(t, backup)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestPrepareMovesExistingDirectoryAside(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "hr")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "Tables"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Tables", "EMP.sql"), []byte("old"), 0o644))

	backup, err := Prepare(dir, runTime, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, dir+"_bkp_20240309140507", backup)

	old, err := os.ReadFile(filepath.Join(backup, "Tables", "EMP.sql"))
	require.NoError(t, err)
	assert.Equal(t, "old", string(old))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "fresh directory must be empty")
}

func TestPrepareRefusesToOverwriteBackup(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "hr")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.MkdirAll(BackupName(dir, runTime), 0o755))

	_, err := Prepare(dir, runTime, nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeFile))

	_, statErr := os.Stat(dir)
	assert.NoError(t, statErr, "original directory must stay in place")
}

func TestPrepareRejectsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hr")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := Prepare(path, runTime, nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeFile))
}

func TestBackupName(t *testing.T) {
	assert.Equal(t, "/srv/hr_bkp_20240309140507", BackupName("/srv/hr/", runTime))
}

func TestArchive(t *testing.T) {
	root := t.TempDir()
	backup := filepath.Join(root, "hr_bkp_20240309140507")
	require.NoError(t, os.MkdirAll(filepath.Join(backup, "Views"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(backup, "Views", "V1.sql"), []byte("CREATE VIEW v1\r\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(backup, "schemagit.log"), []byte("log"), 0o644))

	archive, err := Archive(backup, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, backup+".tar.zst", archive)

	_, err = os.Stat(backup)
	assert.True(t, os.IsNotExist(err), "backup directory must be removed")

	f, err := os.Open(archive)
	require.NoError(t, err)
	defer f.Close()
	dec, err := zstd.NewReader(f)
	require.NoError(t, err)
	defer dec.Close()

	contents := map[string]string{}
	var names []string
	tr := tar.NewReader(dec)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		names = append(names, hdr.Name)
		if hdr.Typeflag == tar.TypeReg {
			data, err := io.ReadAll(tr)
			require.NoError(t, err)
			contents[hdr.Name] = string(data)
		}
	}
	sort.Strings(names)
	assert.Equal(t, []string{
		"hr_bkp_20240309140507/",
		"hr_bkp_20240309140507/Views/",
		"hr_bkp_20240309140507/Views/V1.sql",
		"hr_bkp_20240309140507/schemagit.log",
	}, names)
	assert.Equal(t, "CREATE VIEW v1\r\n", contents["hr_bkp_20240309140507/Views/V1.sql"])
}

func TestArchiveKeepsBackupOnCollision(t *testing.T) {
	root := t.TempDir()
	backup := filepath.Join(root, "hr_bkp")
	require.NoError(t, os.MkdirAll(backup, 0o755))
	require.NoError(t, os.WriteFile(backup+ArchiveExtension, nil, 0o644))

	_, err := Archive(backup, nil)
	require.Error(t, err)
	_, statErr := os.Stat(backup)
	assert.NoError(t, statErr)
}
