// Package project tracks one opened dataset: its root, layout, active split
// and the image list of that split. The filesystem is the durable state;
// a Project only caches the active split's listing.
package project

import (
	"fmt"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/menta2k/dataset-labeller/internal/utils"
	"github.com/menta2k/dataset-labeller/pkg/analyzer"
	"github.com/menta2k/dataset-labeller/pkg/types"
)

// DimensionReader returns the pixel size of an image file
type DimensionReader interface {
	Dimensions(path string) (int, int, error)
}

// RestorePolicy decides what Restore does when the destination is occupied
type RestorePolicy int

const (
	// RestoreOverwrite replaces existing files (last write wins)
	RestoreOverwrite RestorePolicy = iota
	// RestoreReject fails with ErrConflict before moving anything
	RestoreReject
)

// Config holds the collaborators of a Project
type Config struct {
	Reader        DimensionReader
	Logger        *zap.Logger
	RestorePolicy RestorePolicy
}

// Project is a single opened dataset. All methods are safe for concurrent
// use; mutating operations are serialized.
type Project struct {
	mu     sync.Mutex
	config Config

	root   string
	mode   types.OpenMode
	layout types.Layout
	split  types.Split
	images []string
}

// Info is a snapshot of the project state
type Info struct {
	Root   string         `json:"root"`
	Mode   types.OpenMode `json:"mode"`
	Layout types.Layout   `json:"layout"`
	Split  types.Split    `json:"split"`
	Splits []types.Split  `json:"splits"`
	Images []string       `json:"images"`
	Count  int            `json:"count"`
}

// New creates a Project with default collaborators
func New() *Project {
	return NewWithConfig(Config{})
}

// NewWithConfig creates a Project with custom collaborators
func NewWithConfig(config Config) *Project {
	if config.Reader == nil {
		config.Reader = analyzer.New()
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	return &Project{config: config, split: types.Train, images: []string{}}
}

// Open resolves the dataset root for input and makes it the current project
func (p *Project) Open(input string, mode types.OpenMode) (Info, error) {
	path := utils.NormalizePath(input)
	if !utils.DirExists(path) {
		return Info{}, fmt.Errorf("%w: folder %s", types.ErrNotFound, path)
	}

	root := chooseRoot(path, mode, p.config.Logger)

	var (
		layout types.Layout
		split  types.Split
		images []string
	)
	if utils.DirExists(filepath.Join(root, "images")) {
		layout = types.LayoutSplit
		present := ListSplits(root)
		listings := make(map[types.Split][]string, len(present))
		for _, s := range present {
			if err := utils.EnsureDir(filepath.Join(root, "labels", string(s))); err != nil {
				return Info{}, err
			}
			files, err := ListImages(filepath.Join(root, "images", string(s)))
			if err != nil {
				return Info{}, err
			}
			listings[s] = files
		}
		split = pickActiveSplit(present, listings)
		images = listings[split]
		if images == nil {
			images = []string{}
		}
	} else {
		layout = types.LayoutFlat
		split = types.Train
		files, err := ListImages(root)
		if err != nil {
			return Info{}, err
		}
		images = files
		if err := utils.EnsureDir(filepath.Join(root, "labels", string(types.Train))); err != nil {
			return Info{}, err
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.root = root
	p.mode = mode
	p.layout = layout
	p.split = split
	p.images = images

	p.config.Logger.Info("opened project",
		zap.String("root", root),
		zap.String("layout", string(layout)),
		zap.String("split", string(split)),
		zap.Int("images", len(images)))

	return p.infoLocked(), nil
}

// pickActiveSplit prefers a non-empty train, then the first non-empty split,
// then the first present split, then train.
func pickActiveSplit(present []types.Split, listings map[types.Split][]string) types.Split {
	if len(listings[types.Train]) > 0 {
		return types.Train
	}
	for _, s := range present {
		if len(listings[s]) > 0 {
			return s
		}
	}
	if len(present) > 0 {
		return present[0]
	}
	return types.Train
}

// SelectSplit makes name the active split and relists its images. A split
// with no image directory falls back to train with an empty list.
func (p *Project) SelectSplit(name string) (types.Split, []string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.root == "" {
		return "", nil, types.ErrNoProject
	}

	s, err := types.ParseSplit(name)
	if err == nil && utils.DirExists(p.imageDir(s)) {
		files, err := ListImages(p.imageDir(s))
		if err != nil {
			return "", nil, err
		}
		p.split = s
		p.images = files
	} else {
		p.split = types.Train
		p.images = []string{}
	}
	return p.split, copyStrings(p.images), nil
}

// Info returns a snapshot of the project
func (p *Project) Info() (Info, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.root == "" {
		return Info{}, types.ErrNoProject
	}
	return p.infoLocked(), nil
}

// Root returns the dataset root, or ErrNoProject
func (p *Project) Root() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.root == "" {
		return "", types.ErrNoProject
	}
	return p.root, nil
}

func (p *Project) infoLocked() Info {
	splits := []types.Split{types.Train}
	if p.layout == types.LayoutSplit {
		splits = ListSplits(p.root)
	}
	return Info{
		Root:   p.root,
		Mode:   p.mode,
		Layout: p.layout,
		Split:  p.split,
		Splits: splits,
		Images: copyStrings(p.images),
		Count:  len(p.images),
	}
}

// imageDir is the directory holding a split's images. A flat project keeps
// its train images in the root itself.
func (p *Project) imageDir(s types.Split) string {
	if p.layout == types.LayoutFlat && s == types.Train {
		return p.root
	}
	return filepath.Join(p.root, "images", string(s))
}

// refreshLocked relists split s and updates the cache when s is active
func (p *Project) refreshLocked(s types.Split) ([]string, error) {
	dir := p.imageDir(s)
	if !utils.DirExists(dir) {
		if s == p.split {
			return copyStrings(p.images), nil
		}
		return []string{}, nil
	}
	files, err := ListImages(dir)
	if err != nil {
		return nil, err
	}
	if s == p.split {
		p.images = files
	}
	return copyStrings(files), nil
}

func copyStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
