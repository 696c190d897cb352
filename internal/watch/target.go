package watch

import (
	"os"

	"golang.org/x/text/unicode/norm"
)

// Mode says whether a session watches one specific file or everything in a
// directory.
type Mode int

const (
	// ModeDirectory watches every entry directly under the root.
	ModeDirectory Mode = iota
	// ModeSingleFile registers on the file's containing directory and
	// filters events down to the one filename.
	ModeSingleFile
)

func (m Mode) String() string {
	if m == ModeSingleFile {
		return "single-file"
	}
	return "directory"
}

// Target is a resolved watch target. Immutable after Resolve.
type Target struct {
	// Path is the path as given by the caller.
	Path string
	Mode Mode
	// Root is the directory actually registered with the OS facility.
	Root string
	// FilterName is set only in single-file mode: the exact name events
	// must carry to reach the callback.
	FilterName string
}

// Resolve stats path and derives the watch root. A regular file watches its
// containing directory with the filename as filter; a directory watches
// itself unfiltered. Stat failures surface as *PathAccessError.
func Resolve(path string) (*Target, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &PathAccessError{Path: path, Err: err}
	}
	if info.IsDir() {
		return &Target{Path: path, Mode: ModeDirectory, Root: path}, nil
	}
	dir, name := splitDirFile(path)
	return &Target{
		Path:       path,
		Mode:       ModeSingleFile,
		Root:       dir,
		FilterName: norm.NFC.String(name),
	}, nil
}

// passFilter reports whether a decoded record name should reach the
// callback. Directory mode passes everything; single-file mode requires an
// exact, case-sensitive match on the base name. Both sides are compared in
// NFC so decomposed names (macOS) still match.
func (t *Target) passFilter(name string) bool {
	if t.Mode != ModeSingleFile {
		return true
	}
	_, base := splitDirFile(name)
	return norm.NFC.String(base) == t.FilterName
}

// splitDirFile splits a path at its last separator. A bare filename has no
// directory part, so the current directory stands in for it.
func splitDirFile(path string) (dir, name string) {
	for i := len(path) - 1; i >= 0; i-- {
		if os.IsPathSeparator(path[i]) {
			return path[:i+1], path[i+1:]
		}
	}
	return "./", path
}
