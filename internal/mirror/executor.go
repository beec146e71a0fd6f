package mirror

import (
	"fmt"
	"io"
	"mirrord/internal/model"
	"os"
	"path/filepath"
)

// Executor performs non-destructive copies into the mirror root. An existing
// destination entry is never overwritten.
type Executor struct {
	watchRoot  string
	mirrorRoot string
}

func NewExecutor(watchRoot, mirrorRoot string) (*Executor, error) {
	absSrc, err := filepath.Abs(watchRoot)
	if err != nil {
		return nil, fmt.Errorf("invalid watch root: %w", err)
	}
	absDst, err := filepath.Abs(mirrorRoot)
	if err != nil {
		return nil, fmt.Errorf("invalid mirror root: %w", err)
	}

	if err := os.MkdirAll(absDst, 0755); err != nil {
		return nil, fmt.Errorf("failed to create mirror root: %w", err)
	}

	return &Executor{
		watchRoot:  absSrc,
		mirrorRoot: absDst,
	}, nil
}

func (e *Executor) DestFor(srcPath string) string {
	return MapPath(e.watchRoot, e.mirrorRoot, srcPath)
}

// Copy mirrors src to dst. If dst already exists the call is a no-op with
// OutcomeSkippedExists. The returned error is non-nil only for OutcomeFailed.
func (e *Executor) Copy(src, dst string, isDir bool) (model.CopyOutcome, error) {
	if _, err := os.Lstat(dst); err == nil {
		return model.OutcomeSkippedExists, nil
	} else if !os.IsNotExist(err) {
		return model.OutcomeFailed, fmt.Errorf("failed to stat destination: %w", err)
	}

	var err error
	if isDir {
		err = e.copyTree(src, dst)
	} else {
		err = e.copyFile(src, dst)
	}

	if err != nil {
		return model.OutcomeFailed, err
	}

	return model.OutcomeCopied, nil
}

// copyFile writes into a temp file next to dst and renames it into place,
// preserving the source's mode bits and modification time. Two dispatches
// racing to the same dst both pass the exists-check at worst; the last rename
// wins, which is harmless since both copied the same source.
func (e *Executor) copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open src: %w", err)
	}

	defer func(f *os.File) {
		_ = f.Close()
	}(in)

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat src: %w", err)
	}

	dstDir := filepath.Dir(dst)
	if err := os.MkdirAll(dstDir, 0755); err != nil {
		return fmt.Errorf("failed to create parent dir: %w", err)
	}

	out, err := os.CreateTemp(dstDir, ".mirrord-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmp := out.Name()

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write: %w", err)
	}

	if err := out.Chmod(info.Mode().Perm()); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to rename: %w", err)
	}

	if err := os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return fmt.Errorf("failed to set mtime: %w", err)
	}

	return nil
}

// copyTree mirrors a directory and whatever children exist at the moment of
// invocation. Children created afterward arrive as their own events; this
// walk only covers ones that raced the watch registration.
func (e *Executor) copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}

		if _, err := os.Lstat(target); err == nil {
			return nil
		}

		return e.copyFile(path, target)
	})
}
