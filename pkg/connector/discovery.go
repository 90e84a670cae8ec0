package connector

import (
	"os"
	"path/filepath"

	"github.com/ajitpratap0/schemagit/pkg/errors"
)

// SearchPath returns the directories searched for driver artifacts, in order:
// explicit (if set), the working directory and the executable's directory.
// Duplicates are removed.
func SearchPath(explicit string) []string {
	var dirs []string
	add := func(dir string) {
		if dir == "" {
			return
		}
		if abs, err := filepath.Abs(dir); err == nil {
			dir = abs
		}
		for _, d := range dirs {
			if d == dir {
				return
			}
		}
		dirs = append(dirs, dir)
	}

	add(explicit)
	if wd, err := os.Getwd(); err == nil {
		add(wd)
	}
	if exe, err := os.Executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		add(filepath.Dir(exe))
	}
	return dirs
}

// Discover returns the first directory of the search path holding any of the
// artifacts of d. An empty result with a nil error means nothing was found
// and nothing was required; a directory given explicitly makes the artifact
// required.
func Discover(d Dialect, explicit string) (string, error) {
	if len(d.Artifacts) == 0 {
		return "", nil
	}
	if explicit != "" {
		if info, err := os.Stat(explicit); err != nil || !info.IsDir() {
			return "", errors.Wrap(errors.ErrDriverMissing, errors.ErrorTypeConfig,
				"driver directory "+explicit+" does not exist").WithDetail("path", explicit)
		}
	}

	dirs := SearchPath(explicit)
	for _, dir := range dirs {
		for _, name := range d.Artifacts {
			info, err := os.Stat(filepath.Join(dir, name))
			if err == nil && !info.IsDir() {
				return dir, nil
			}
		}
	}

	if explicit != "" {
		return "", errors.Wrap(errors.ErrDriverMissing, errors.ErrorTypeConfig,
			"cannot find "+d.Name+" driver artifacts; provide their location with --driver-dir").
			WithDetail("searched", dirs)
	}
	return "", nil
}
