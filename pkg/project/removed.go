package project

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/menta2k/dataset-labeller/internal/utils"
	"github.com/menta2k/dataset-labeller/pkg/types"
)

// LabelExtensions are the label files that travel with an image on remove
// and restore
var LabelExtensions = []string{".txt", ".json"}

func removedImageDir(root string, s types.Split) string {
	return filepath.Join(root, "removed", string(s), "images")
}

func removedLabelDir(root string, s types.Split) string {
	return filepath.Join(root, "removed", string(s), "labels")
}

// Remove moves an image and its label files into removed/<split>/ and
// returns the refreshed image list of the split. The image must exist; label
// files are moved when present.
func (p *Project) Remove(imagePath string, split types.Split) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.root == "" {
		return nil, types.ErrNoProject
	}
	s, err := types.ParseSplit(string(split))
	if err != nil {
		return nil, err
	}

	img := utils.NormalizePath(imagePath)
	if !utils.FileExists(img) {
		return nil, fmt.Errorf("%w: image %s", types.ErrNotFound, img)
	}
	filename := filepath.Base(img)
	base := utils.BaseName(img)

	remImages := removedImageDir(p.root, s)
	remLabels := removedLabelDir(p.root, s)
	if err := utils.EnsureDir(remImages); err != nil {
		return nil, err
	}
	if err := utils.EnsureDir(remLabels); err != nil {
		return nil, err
	}

	if err := utils.MoveFile(img, filepath.Join(remImages, filename)); err != nil {
		return nil, err
	}

	labelDir := filepath.Join(p.root, "labels", string(s))
	moved, err := moveLabels(labelDir, remLabels, base)
	if err != nil {
		// The image is already in removed/; report the orphaned state.
		p.config.Logger.Error("label move failed after image was removed",
			zap.String("image", img), zap.Error(err))
		return nil, err
	}

	p.config.Logger.Info("removed image",
		zap.String("split", string(s)),
		zap.String("image", filename),
		zap.Strings("labels", moved))

	return p.refreshLocked(s)
}

// Restore moves a removed image and its label files back into the split.
// Occupied destinations are handled according to the RestorePolicy.
func (p *Project) Restore(split types.Split, filename string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.root == "" {
		return nil, types.ErrNoProject
	}
	s, err := types.ParseSplit(string(split))
	if err != nil {
		return nil, err
	}
	if !utils.IsBareFilename(filename) {
		return nil, fmt.Errorf("%w: %q is not a file name", types.ErrInvalidInput, filename)
	}

	remImg := filepath.Join(removedImageDir(p.root, s), filename)
	if !utils.FileExists(remImg) {
		return nil, fmt.Errorf("%w: removed file %s", types.ErrNotFound, filename)
	}
	base := utils.BaseName(filename)
	remLabels := removedLabelDir(p.root, s)

	dstImages := p.imageDir(s)
	dstLabels := filepath.Join(p.root, "labels", string(s))
	dstImg := filepath.Join(dstImages, filename)

	if p.config.RestorePolicy == RestoreReject {
		if err := checkRestoreConflicts(dstImg, remLabels, dstLabels, base); err != nil {
			return nil, err
		}
	}

	if err := utils.EnsureDir(dstImages); err != nil {
		return nil, err
	}
	if err := utils.EnsureDir(dstLabels); err != nil {
		return nil, err
	}

	if err := utils.MoveFile(remImg, dstImg); err != nil {
		return nil, err
	}
	moved, err := moveLabels(remLabels, dstLabels, base)
	if err != nil {
		p.config.Logger.Error("label move failed after image was restored",
			zap.String("image", filename), zap.Error(err))
		return nil, err
	}

	p.config.Logger.Info("restored image",
		zap.String("split", string(s)),
		zap.String("image", filename),
		zap.Strings("labels", moved))

	return p.refreshLocked(s)
}

// ListRemoved returns the sorted file names held in removed/<split>/images
func (p *Project) ListRemoved(split types.Split) ([]string, error) {
	root, err := p.Root()
	if err != nil {
		return nil, err
	}
	s, err := types.ParseSplit(string(split))
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(removedImageDir(root, s))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: failed to list removed images: %w", types.ErrIO, err)
	}

	files := []string{}
	for _, e := range entries {
		if e.IsDir() || utils.IsHidden(e.Name()) || !utils.IsImageFile(e.Name()) {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)
	return files, nil
}

// moveLabels moves <base><ext> for every label extension present in src
func moveLabels(src, dst, base string) ([]string, error) {
	moved := []string{}
	for _, ext := range LabelExtensions {
		name := base + ext
		from := filepath.Join(src, name)
		if !utils.FileExists(from) {
			continue
		}
		if err := utils.MoveFile(from, filepath.Join(dst, name)); err != nil {
			return moved, err
		}
		moved = append(moved, name)
	}
	return moved, nil
}

func checkRestoreConflicts(dstImg, remLabels, dstLabels, base string) error {
	if utils.FileExists(dstImg) {
		return fmt.Errorf("%w: %s already exists", types.ErrConflict, dstImg)
	}
	for _, ext := range LabelExtensions {
		name := base + ext
		if utils.FileExists(filepath.Join(remLabels, name)) && utils.FileExists(filepath.Join(dstLabels, name)) {
			return fmt.Errorf("%w: label %s already exists", types.ErrConflict, name)
		}
	}
	return nil
}
