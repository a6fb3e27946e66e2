package project

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/menta2k/dataset-labeller/internal/utils"
	"github.com/menta2k/dataset-labeller/pkg/labels"
	"github.com/menta2k/dataset-labeller/pkg/types"
)

// LabelPath derives root/labels/<split>/<image base name>.txt
func LabelPath(root string, split types.Split, imagePath string) string {
	return utils.NormalizePath(filepath.Join(root, "labels", string(split), utils.BaseName(imagePath)+".txt"))
}

// Labels reads the annotations of an image in split
func (p *Project) Labels(imagePath string, split types.Split) (types.LabelSet, error) {
	img, lbl, err := p.labelTarget(imagePath, split)
	if err != nil {
		return types.LabelSet{}, err
	}

	w, h, err := p.config.Reader.Dimensions(img)
	if err != nil {
		return types.LabelSet{}, err
	}

	rects, err := labels.Decode(lbl, w, h)
	if err != nil {
		return types.LabelSet{}, err
	}

	return types.LabelSet{
		Rects:        rects,
		Width:        w,
		Height:       h,
		HasLabelFile: utils.NonEmptyFileExists(lbl),
	}, nil
}

// SaveLabels replaces the annotations of an image in split. Saving no rects
// deletes the label file.
func (p *Project) SaveLabels(imagePath string, split types.Split, rects []types.Rect) error {
	img, lbl, err := p.labelTarget(imagePath, split)
	if err != nil {
		return err
	}

	w, h, err := p.config.Reader.Dimensions(img)
	if err != nil {
		return err
	}

	if err := labels.Encode(lbl, rects, w, h); err != nil {
		return err
	}
	p.config.Logger.Debug("saved labels", zap.String("image", img), zap.String("label", lbl), zap.Int("rects", len(rects)))
	return nil
}

// labelTarget validates the image and split and returns the normalized
// image path and its label path
func (p *Project) labelTarget(imagePath string, split types.Split) (string, string, error) {
	root, err := p.Root()
	if err != nil {
		return "", "", err
	}
	s, err := types.ParseSplit(string(split))
	if err != nil {
		return "", "", err
	}
	img := utils.NormalizePath(imagePath)
	if !utils.FileExists(img) {
		return "", "", fmt.Errorf("%w: image %s", types.ErrNotFound, img)
	}
	return img, LabelPath(root, s, img), nil
}
