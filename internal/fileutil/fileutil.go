// Package fileutil provides file copy and atomic replacement helpers shared
// by the cache layers and the build pipeline.
package fileutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// CopyFile streams src to dst using io.Copy with default permissions (0o644).
func CopyFile(src, dst string) error {
	return CopyFileMode(src, dst, 0o644)
}

// CopyFileMode streams src to dst, setting the given file mode on dst.
func CopyFileMode(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// WriteFileAtomic writes data to a temporary file in the destination
// directory, syncs it to disk, and renames it into place, so readers never
// observe a partial file even across a crash.
func WriteFileAtomic(dst string, data []byte, mode os.FileMode) error {
	tmp := tempSibling(dst)
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// MoveFileAtomic moves src to dst, copying through a temporary sibling when a
// direct rename crosses filesystems. The destination is only ever visible
// fully written.
func MoveFileAtomic(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	tmp := tempSibling(dst)
	if err := CopyFile(src, tmp); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("stage copy: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Remove(src)
}

// tempSibling returns a unique temporary path in the same directory as dst,
// which keeps the final rename on a single filesystem.
func tempSibling(dst string) string {
	return filepath.Join(filepath.Dir(dst), ".tmp-"+uuid.NewString()+filepath.Ext(dst))
}
