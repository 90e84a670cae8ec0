package dump

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/zeebo/xxh3"

	"github.com/ajitpratap0/schemagit/pkg/errors"
)

// FileResult describes one written definition file.
type FileResult struct {
	Object   string `json:"object"`
	Path     string `json:"path"`
	Bytes    int64  `json:"bytes"`
	Checksum uint64 `json:"xxh3"`
}

const writeBufferSize = 64 * 1024

// fileNameReplacer maps characters that are separators or reserved on common
// filesystems to '_'.
var fileNameReplacer = strings.NewReplacer(
	"/", "_", `\`, "_", ":", "_", "*", "_", "?", "_",
	`"`, "_", "<", "_", ">", "_", "|", "_", "\x00", "_",
)

// FileName returns the file name of object with extension ext.
func FileName(object, ext string) string {
	name := fileNameReplacer.Replace(object)
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return '_'
		}
		return r
	}, name)
	if name == "" || name == "." || name == ".." {
		name = strings.Repeat("_", len(name)+1)
	}
	return name + ext
}

// writeDefinition creates dir/FileName(object, ext) exclusively and writes the
// normalized definition followed by the normalized footer. dir and its parents
// are created if missing.
func writeDefinition(dir, object, ext string, definition []byte, footer string, unescape bool) (FileResult, error) {
	path := filepath.Join(dir, FileName(object, ext))
	res := FileResult{Object: object, Path: path}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return res, errors.Wrap(err, errors.ErrorTypeFile, "failed to create directory").WithDetail("path", dir)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644) //nolint:gosec // G304: path is built from the output directory
	if err != nil {
		return res, errors.Wrap(err, errors.ErrorTypeFile, "failed to create definition file").WithDetail("path", path)
	}

	hasher := xxh3.New()
	counter := &countingWriter{}
	bw := bufio.NewWriterSize(f, writeBufferSize)
	norm := NewNormalizer(io.MultiWriter(bw, hasher, counter), unescape)

	err = writeAll(norm, definition, footer)
	if err == nil {
		err = bw.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return res, errors.Wrap(err, errors.ErrorTypeFile, "failed to write definition file").WithDetail("path", path)
	}

	res.Bytes = counter.n
	res.Checksum = hasher.Sum64()
	return res, nil
}

func writeAll(norm *Normalizer, definition []byte, footer string) error {
	// chunked so the normalizer's scratch buffer stays bounded
	for len(definition) > 0 {
		chunk := definition
		if len(chunk) > writeBufferSize {
			chunk = chunk[:writeBufferSize]
		}
		if _, err := norm.Write(chunk); err != nil {
			return err
		}
		definition = definition[len(chunk):]
	}
	if err := norm.Flush(); err != nil {
		return err
	}
	if footer == "" {
		return nil
	}
	if _, err := norm.WriteString(footer); err != nil {
		return err
	}
	return norm.Flush()
}

type countingWriter struct {
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	c.n += int64(len(p))
	return len(p), nil
}
