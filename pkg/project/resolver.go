package project

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/menta2k/dataset-labeller/internal/utils"
	"github.com/menta2k/dataset-labeller/pkg/types"
)

// ResolveRoot finds the dataset root for an arbitrary folder. Candidates are
// checked in order: the folder itself, its parent, its grandparent, then each
// immediate subdirectory. A candidate qualifies when it holds images/<split>
// for at least one known split. The second result is false when nothing
// qualifies; the caller then uses the input as-is.
func ResolveRoot(input string) (string, bool) {
	return detectRoot(input, zap.NewNop())
}

func detectRoot(input string, log *zap.Logger) (string, bool) {
	p := strings.TrimRight(utils.NormalizePath(input), "/")
	if p == "" {
		p = "/"
	}

	parent := utils.NormalizePath(filepath.Dir(p))
	grandparent := utils.NormalizePath(filepath.Dir(parent))
	for _, c := range []string{p, parent, grandparent} {
		if qualifies(c) {
			return c, true
		}
	}

	for _, child := range subdirectories(p, log) {
		if qualifies(child) {
			return child, true
		}
	}
	return "", false
}

// subdirectories lists the immediate subdirectories of dir by name.
// Entries that cannot be inspected are skipped.
func subdirectories(dir string, log *zap.Logger) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Debug("skipping unreadable subdirectory", zap.String("dir", dir), zap.Error(err))
		return nil
	}

	dirs := make([]string, 0, len(entries))
	for _, e := range entries {
		child := utils.NormalizePath(filepath.Join(dir, e.Name()))
		info, err := os.Stat(child)
		if err != nil {
			log.Debug("skipping inaccessible candidate", zap.String("path", child), zap.Error(err))
			continue
		}
		if info.IsDir() {
			dirs = append(dirs, child)
		}
	}
	sort.Strings(dirs)
	return dirs
}

// qualifies reports whether dir has an images/<split> directory
func qualifies(dir string) bool {
	for _, s := range types.Splits {
		if utils.DirExists(filepath.Join(dir, "images", string(s))) {
			return true
		}
	}
	return false
}

// ChooseRoot applies the open policy for a requested mode. Split-structured
// modes use the resolved root, else the input when it has an images/ folder.
// Image mode also prefers a resolved root so an existing dataset is not
// re-imported as flat.
func ChooseRoot(input string, mode types.OpenMode) string {
	return chooseRoot(input, mode, zap.NewNop())
}

func chooseRoot(input string, mode types.OpenMode, log *zap.Logger) string {
	path := utils.NormalizePath(input)
	if detected, ok := detectRoot(path, log); ok {
		if detected != path {
			log.Info("using detected dataset root", zap.String("input", path), zap.String("root", detected), zap.String("mode", string(mode)))
		}
		return detected
	}
	// Split modes fall back to the input whether or not it has images/;
	// image mode treats it as a flat folder.
	return path
}
