// Package workspace prepares the output directory of a run: an existing
// directory is moved aside to a timestamped backup, optionally packed into a
// zstd-compressed tar archive, and a manifest of the written files is saved
// once the run succeeds.
package workspace

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"github.com/ajitpratap0/schemagit/pkg/errors"
)

// BackupLayout is the time layout appended to backup directory names.
const BackupLayout = "20060102150405"

// ArchiveExtension is appended to a backup directory packed by Archive.
const ArchiveExtension = ".tar.zst"

// BackupName returns the name an existing output directory is renamed to.
func BackupName(dir string, now time.Time) string {
	return filepath.Clean(dir) + "_bkp_" + now.Format(BackupLayout)
}

// Prepare makes dir an empty directory. When dir already exists it is renamed
// to BackupName(dir, now) first and the backup path is returned.
func Prepare(dir string, now time.Time, logger *zap.Logger) (string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var backup string
	info, err := os.Stat(dir)
	switch {
	case err == nil:
		if !info.IsDir() {
			return "", errors.New(errors.ErrorTypeFile, "output path exists and is not a directory").
				WithDetail("path", dir)
		}
		backup = BackupName(dir, now)
		if _, err := os.Stat(backup); err == nil {
			return "", errors.New(errors.ErrorTypeFile, "backup directory already exists").
				WithDetail("path", backup)
		}
		if err := os.Rename(dir, backup); err != nil {
			return "", errors.Wrap(err, errors.ErrorTypeFile, "failed to move existing output directory").
				WithDetail("path", dir)
		}
		logger.Info("existing output directory moved",
			zap.String("path", dir),
			zap.String("backup", backup))
	case !os.IsNotExist(err):
		return "", errors.Wrap(err, errors.ErrorTypeFile, "failed to inspect output directory").
			WithDetail("path", dir)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeFile, "failed to create output directory").
			WithDetail("path", dir)
	}
	return backup, nil
}

// Archive packs the directory backup into backup+ArchiveExtension and removes
// the directory. The archive's entries are relative to backup's parent, so
// extracting it next to the output restores the backup directory.
func Archive(backup string, logger *zap.Logger) (string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	target := backup + ArchiveExtension

	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeFile, "failed to create backup archive").
			WithDetail("path", target)
	}

	size, err := writeArchive(f, backup)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(target)
		return "", errors.Wrap(err, errors.ErrorTypeFile, "failed to write backup archive").
			WithDetail("path", target)
	}

	if err := os.RemoveAll(backup); err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeFile, "failed to remove archived backup").
			WithDetail("path", backup)
	}
	logger.Info("backup archived",
		zap.String("archive", target),
		zap.Int64("uncompressed_bytes", size))
	return target, nil
}

func writeArchive(w io.Writer, root string) (int64, error) {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return 0, err
	}
	tw := tar.NewWriter(enc)
	base := filepath.Dir(root)

	var total int64
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if !d.IsDir() && !info.Mode().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if d.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		src, err := os.Open(path)
		if err != nil {
			return err
		}
		n, err := io.Copy(tw, src)
		src.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		total += n
		return nil
	})

	if err := tw.Close(); walkErr == nil {
		walkErr = err
	}
	if err := enc.Close(); walkErr == nil {
		walkErr = err
	}
	return total, walkErr
}
