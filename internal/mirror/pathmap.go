package mirror

import (
	"path/filepath"
	"strings"
)

// MapPath maps a path under watchRoot to its mirror under mirrorRoot,
// preserving every intermediate segment. Pure function of its arguments;
// never consults the filesystem. srcPath must lie under watchRoot; a path
// outside it falls back to the basename.
func MapPath(watchRoot, mirrorRoot, srcPath string) string {
	rel, err := filepath.Rel(watchRoot, srcPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.Join(mirrorRoot, filepath.Base(srcPath))
	}

	return filepath.Join(mirrorRoot, rel)
}
