// Package export writes a copy of an opened dataset in YOLO or JSON form
package export

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/menta2k/dataset-labeller/internal/utils"
	"github.com/menta2k/dataset-labeller/pkg/analyzer"
	"github.com/menta2k/dataset-labeller/pkg/labels"
	"github.com/menta2k/dataset-labeller/pkg/project"
	"github.com/menta2k/dataset-labeller/pkg/types"
)

// Format is an export target
type Format string

const (
	FormatYOLO Format = "YOLO (.txt)"
	FormatJSON Format = "JSON"
)

// ParseFormat accepts the display names and their short forms
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yolo (.txt)", "yolo", "txt":
		return FormatYOLO, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: export format %q", types.ErrUnsupportedFormat, s)
}

// Result summarizes a finished export
type Result struct {
	Count     int    `json:"count"`
	OutputDir string `json:"output"`
}

// Config holds the collaborators of an Exporter
type Config struct {
	Reader project.DimensionReader
	Logger *zap.Logger
}

// Exporter copies a project's images and annotations into an output tree.
// An export is not transactional: on failure the files already written stay.
type Exporter struct {
	config Config
}

func New() *Exporter {
	return NewWithConfig(Config{})
}

func NewWithConfig(config Config) *Exporter {
	if config.Reader == nil {
		config.Reader = analyzer.New()
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	return &Exporter{config: config}
}

// Export writes every image of p, with its annotations, under outDir
func (e *Exporter) Export(ctx context.Context, p *project.Project, outDir, format string) (Result, error) {
	f, err := ParseFormat(format)
	if err != nil {
		return Result{}, err
	}
	entries, err := p.Entries()
	if err != nil {
		return Result{}, err
	}

	out := utils.NormalizePath(outDir)
	if err := utils.EnsureDir(out); err != nil {
		return Result{}, err
	}

	switch f {
	case FormatYOLO:
		err = e.exportYOLO(ctx, entries, out)
	case FormatJSON:
		err = e.exportJSON(ctx, entries, out)
	}
	if err != nil {
		return Result{}, err
	}

	e.config.Logger.Info("export finished",
		zap.String("format", string(f)),
		zap.String("output", out),
		zap.Int("images", len(entries)))
	return Result{Count: len(entries), OutputDir: out}, nil
}

func (e *Exporter) exportYOLO(ctx context.Context, entries []project.Entry, out string) error {
	for _, en := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		imgDir := filepath.Join(out, "images", string(en.Split))
		lblDir := filepath.Join(out, "labels", string(en.Split))
		if err := utils.EnsureDir(imgDir); err != nil {
			return err
		}
		if err := utils.EnsureDir(lblDir); err != nil {
			return err
		}
		if err := utils.CopyFile(en.ImagePath, filepath.Join(imgDir, filepath.Base(en.ImagePath))); err != nil {
			return err
		}
		if utils.FileExists(en.LabelPath) {
			if err := utils.CopyFile(en.LabelPath, filepath.Join(lblDir, filepath.Base(en.LabelPath))); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Exporter) exportJSON(ctx context.Context, entries []project.Entry, out string) error {
	annDir := filepath.Join(out, "annotations")
	order := []types.Split{}
	bySplit := map[types.Split][]Record{}

	for _, en := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		imgDir := filepath.Join(out, "images", string(en.Split))
		if err := utils.EnsureDir(imgDir); err != nil {
			return err
		}
		if err := utils.EnsureDir(annDir); err != nil {
			return err
		}
		if err := utils.CopyFile(en.ImagePath, filepath.Join(imgDir, filepath.Base(en.ImagePath))); err != nil {
			return err
		}

		w, h, err := e.config.Reader.Dimensions(en.ImagePath)
		if err != nil {
			return err
		}
		rects, err := labels.Decode(en.LabelPath, w, h)
		if err != nil {
			return err
		}

		if _, seen := bySplit[en.Split]; !seen {
			order = append(order, en.Split)
		}
		bySplit[en.Split] = append(bySplit[en.Split], NewRecord(filepath.Base(en.ImagePath), en.Split, w, h, rects))
	}

	for _, s := range order {
		data, err := EncodeManifest(bySplit[s])
		if err != nil {
			return err
		}
		if err := utils.WriteFileAtomic(filepath.Join(annDir, string(s)+".json"), data); err != nil {
			return err
		}
	}
	return nil
}
