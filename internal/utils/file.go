package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/menta2k/dataset-labeller/pkg/types"
)

// ImageExtensions is the allow-list of image file extensions
var ImageExtensions = []string{".jpg", ".jpeg", ".png"}

// NormalizePath returns an absolute path with forward slashes so that string
// equality can stand in for path equality.
func NormalizePath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		abs = filepath.Clean(p)
	}
	return filepath.ToSlash(strings.ReplaceAll(abs, "\\", "/"))
}

// EnsureDir creates a directory if it doesn't exist
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: failed to create directory %s: %w", types.ErrIO, dir, err)
	}
	return nil
}

// BaseName returns the file name without directory and extension
func BaseName(path string) string {
	base := filepath.Base(filepath.FromSlash(path))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// IsImageFile checks if a file has an allowed image extension
func IsImageFile(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, imgExt := range ImageExtensions {
		if ext == imgExt {
			return true
		}
	}
	return false
}

// IsHidden reports whether name is a dot-file, such as macOS ._ metadata
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// ListImageFiles lists the image files directly inside dir, sorted by full
// path. Hidden files are skipped. A missing directory yields an empty list.
func ListImageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: failed to list %s: %w", types.ErrIO, dir, err)
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if IsHidden(e.Name()) || !IsImageFile(e.Name()) {
			continue
		}
		p := NormalizePath(filepath.Join(dir, e.Name()))
		if !FileExists(p) {
			continue
		}
		files = append(files, p)
	}
	sort.Strings(files)
	return files, nil
}

// FileExists checks if a file exists and is not a directory
func FileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// NonEmptyFileExists checks if a regular file exists and has content
func NonEmptyFileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir() && info.Size() > 0
}

// DirExists checks if a directory exists
func DirExists(dirname string) bool {
	info, err := os.Stat(dirname)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// MoveFile renames src to dst. Both must live on the same filesystem; there
// is no copy fallback, so a failed move leaves src untouched.
func MoveFile(src, dst string) error {
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("%w: failed to move %s to %s: %w", types.ErrIO, src, dst, err)
	}
	return nil
}

// CopyFile copies src to dst, preserving the permission bits and modification time
func CopyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("%w: failed to open %s: %w", types.ErrIO, src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("%w: failed to stat %s: %w", types.ErrIO, src, err)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("%w: failed to create %s: %w", types.ErrIO, dst, err)
	}
	if _, err = io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("%w: failed to copy %s: %w", types.ErrIO, src, err)
	}
	if err = out.Close(); err != nil {
		return fmt.Errorf("%w: failed to close %s: %w", types.ErrIO, dst, err)
	}
	_ = os.Chtimes(dst, info.ModTime(), info.ModTime())
	return nil
}

// WriteFileAtomic writes data to a temp file next to filename and renames it into place
func WriteFileAtomic(filename string, data []byte) error {
	dir := filepath.Dir(filename)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(filename)+".*")
	if err != nil {
		return fmt.Errorf("%w: failed to create temp file in %s: %w", types.ErrIO, dir, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: failed to write %s: %w", types.ErrIO, filename, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: failed to close %s: %w", types.ErrIO, filename, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: failed to chmod %s: %w", types.ErrIO, filename, err)
	}
	if err := os.Rename(tmpName, filename); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: failed to replace %s: %w", types.ErrIO, filename, err)
	}
	return nil
}

// IsBareFilename reports whether name is a bare file name with no directory part
func IsBareFilename(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, "/\\") && name == filepath.Base(name)
}
