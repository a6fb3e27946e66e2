package project

import (
	"path/filepath"

	"github.com/menta2k/dataset-labeller/internal/utils"
	"github.com/menta2k/dataset-labeller/pkg/types"
)

// ListSplits returns the splits that have an images/<split> directory under
// root, in train, val, test order. A flat root (no images/) has only train.
func ListSplits(root string) []types.Split {
	if !utils.DirExists(filepath.Join(root, "images")) {
		return []types.Split{types.Train}
	}
	splits := []types.Split{}
	for _, s := range types.Splits {
		if utils.DirExists(filepath.Join(root, "images", string(s))) {
			splits = append(splits, s)
		}
	}
	return splits
}

// ListImages returns the allowed image files directly inside dir, sorted by
// full path
func ListImages(dir string) ([]string, error) {
	return utils.ListImageFiles(dir)
}

// Entry pairs an image with the label file that belongs to it. The label
// file may not exist.
type Entry struct {
	Split     types.Split
	ImagePath string
	LabelPath string
}

// Entries enumerates every image of every present split. A flat project
// reports its root images under train.
func (p *Project) Entries() ([]Entry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.root == "" {
		return nil, types.ErrNoProject
	}

	splits := []types.Split{types.Train}
	if p.layout == types.LayoutSplit {
		splits = ListSplits(p.root)
	}

	entries := []Entry{}
	for _, s := range splits {
		files, err := ListImages(p.imageDir(s))
		if err != nil {
			return nil, err
		}
		for _, img := range files {
			entries = append(entries, Entry{
				Split:     s,
				ImagePath: img,
				LabelPath: LabelPath(p.root, s, img),
			})
		}
	}
	return entries, nil
}
