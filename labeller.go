// Package labeller manages YOLO-style object detection datasets on disk.
//
// A Session owns one opened dataset together with the class list, the model
// library, an optional detection backend and the exporter. The filesystem is
// the durable state: labels live in labels/<split>/<image>.txt beside
// images/<split>/, and removed images are parked under removed/<split>/.
//
// Basic usage:
//
//	s, err := labeller.New(config.Default(), zap.NewNop())
//	if err != nil {
//		log.Fatal(err)
//	}
//	info, err := s.Open("/data/cats", "yolo")
//	if err != nil {
//		log.Fatal(err)
//	}
//	set, err := s.Labels(info.Images[0], info.Split)
//	...
//	res, err := s.Export(ctx, "/tmp/cats-export", "JSON")
//
// The package consists of these components:
//
//  1. Project (pkg/project): root detection, splits, annotations, soft delete
//  2. Labels (pkg/labels): the YOLO text codec
//  3. Detection (pkg/detection): vision model backends through ollama or llama.cpp
//  4. Export (pkg/export): YOLO and JSON dataset export
//  5. Server (pkg/server): the HTTP API used by the web UI
package labeller

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/menta2k/dataset-labeller/internal/config"
	"github.com/menta2k/dataset-labeller/internal/utils"
	"github.com/menta2k/dataset-labeller/pkg/analyzer"
	"github.com/menta2k/dataset-labeller/pkg/detection"
	"github.com/menta2k/dataset-labeller/pkg/export"
	"github.com/menta2k/dataset-labeller/pkg/llamacpp"
	"github.com/menta2k/dataset-labeller/pkg/ollama"
	"github.com/menta2k/dataset-labeller/pkg/project"
	"github.com/menta2k/dataset-labeller/pkg/types"
)

// Version of the labeller library
const Version = "1.0.0"

// DefaultOllamaURL is used when the ollama backend has no URL configured
const DefaultOllamaURL = "http://localhost:11434"

// Options configure a Session directly, without a config file
type Options struct {
	Logger        *zap.Logger
	Reader        project.DimensionReader
	Engine        detection.Engine
	RestorePolicy project.RestorePolicy
	Classes       []string
	Models        []string
	Confidence    float64
	ExportFormat  string
}

// Session is one labelling workspace. It is safe for concurrent use.
type Session struct {
	log      *zap.Logger
	project  *project.Project
	classes  *project.ClassRegistry
	models   *detection.ModelLibrary
	engine   detection.Engine
	exporter *export.Exporter

	confidence   float64
	exportFormat string
}

// DetectRequest asks for detections on one image
type DetectRequest struct {
	ImagePath  string  `json:"image_path"`
	Model      string  `json:"model_path"`
	Confidence float64 `json:"conf"`
	ClassID    int     `json:"cls"`
}

// DetectResult holds the detections and the model that produced them
type DetectResult struct {
	Rects []types.Rect `json:"rects"`
	Model string       `json:"model"`
}

// New creates a Session from application configuration. A nil cfg uses the
// defaults.
func New(cfg *config.Config, log *zap.Logger) (*Session, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = zap.NewNop()
	}

	classes := cfg.Project.Classes
	if cfg.Project.ClassesFile != "" {
		names, err := project.LoadClassFile(cfg.Project.ClassesFile)
		if err != nil {
			return nil, err
		}
		classes = names
	}

	engine, err := NewEngine(cfg.Detection, log)
	if err != nil {
		return nil, err
	}

	policy := project.RestoreOverwrite
	if !cfg.Project.RestoreOverwrite {
		policy = project.RestoreReject
	}

	return NewWithOptions(Options{
		Logger:        log,
		Engine:        engine,
		RestorePolicy: policy,
		Classes:       classes,
		Models:        cfg.Detection.Models,
		Confidence:    cfg.Detection.Confidence,
		ExportFormat:  cfg.Export.DefaultFormat,
	})
}

// NewWithOptions creates a Session with explicit collaborators
func NewWithOptions(opts Options) (*Session, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Reader == nil {
		opts.Reader = analyzer.New()
	}
	if opts.Engine == nil {
		opts.Engine = detection.Unavailable{}
	}
	if len(opts.Classes) == 0 {
		opts.Classes = config.Default().Project.Classes
	}
	if opts.ExportFormat == "" {
		opts.ExportFormat = string(export.FormatYOLO)
	}

	classes, err := project.NewClassRegistry(opts.Classes)
	if err != nil {
		return nil, err
	}

	return &Session{
		log: opts.Logger,
		project: project.NewWithConfig(project.Config{
			Reader:        opts.Reader,
			Logger:        opts.Logger.Named("project"),
			RestorePolicy: opts.RestorePolicy,
		}),
		classes: classes,
		models:  detection.NewModelLibrary(opts.Models),
		engine:  opts.Engine,
		exporter: export.NewWithConfig(export.Config{
			Reader: opts.Reader,
			Logger: opts.Logger.Named("export"),
		}),
		confidence:   opts.Confidence,
		exportFormat: opts.ExportFormat,
	}, nil
}

// NewEngine builds the detection backend named in cfg
func NewEngine(cfg config.DetectionConfig, log *zap.Logger) (detection.Engine, error) {
	opts := detection.Options{
		SendFormat:  cfg.SendFormat,
		SendSize:    cfg.SendSize,
		SendQuality: cfg.SendQuality,
		Logger:      log.Named("detection"),
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case config.BackendNone, "":
		return detection.Unavailable{Reason: "no detection backend configured"}, nil
	case config.BackendOllama:
		url := cfg.URL
		if url == "" {
			url = DefaultOllamaURL
		}
		c, err := ollama.NewClient(url, cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client: %w", err)
		}
		return detection.NewDetector(c, opts), nil
	case config.BackendLlamaCpp:
		c, err := llamacpp.NewClient(cfg.URL, cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("failed to create llama.cpp client: %w", err)
		}
		return detection.NewDetector(c, opts), nil
	}
	return nil, fmt.Errorf("%w: detection backend %q", types.ErrInvalidInput, cfg.Backend)
}

// Project returns the underlying project
func (s *Session) Project() *project.Project {
	return s.project
}

// Open opens the dataset at path. mode is one of images, yolo or rfdetr.
func (s *Session) Open(path, mode string) (project.Info, error) {
	m, err := types.ParseOpenMode(mode)
	if err != nil {
		return project.Info{}, err
	}
	return s.project.Open(path, m)
}

// SelectSplit changes the active split
func (s *Session) SelectSplit(name string) (types.Split, []string, error) {
	return s.project.SelectSplit(name)
}

// Info describes the opened dataset
func (s *Session) Info() (project.Info, error) {
	return s.project.Info()
}

// ImageFile validates that path is an existing file and returns it normalized
func (s *Session) ImageFile(path string) (string, error) {
	p := utils.NormalizePath(path)
	if !utils.FileExists(p) {
		return "", fmt.Errorf("%w: image %s", types.ErrNotFound, p)
	}
	return p, nil
}

// Labels reads the annotations of an image
func (s *Session) Labels(imagePath string, split types.Split) (types.LabelSet, error) {
	return s.project.Labels(imagePath, split)
}

// SaveLabels replaces the annotations of an image
func (s *Session) SaveLabels(imagePath string, split types.Split, rects []types.Rect) error {
	return s.project.SaveLabels(imagePath, split, rects)
}

// Remove soft-deletes an image and its labels
func (s *Session) Remove(imagePath string, split types.Split) ([]string, error) {
	return s.project.Remove(imagePath, split)
}

// Restore brings a soft-deleted image back
func (s *Session) Restore(split types.Split, filename string) ([]string, error) {
	return s.project.Restore(split, filename)
}

// ListRemoved lists the soft-deleted images of a split
func (s *Session) ListRemoved(split types.Split) ([]string, error) {
	return s.project.ListRemoved(split)
}

func (s *Session) Classes() []string {
	return s.classes.Names()
}

func (s *Session) SetClasses(names []string) ([]string, error) {
	return s.classes.Set(names)
}

func (s *Session) Models() []string {
	return s.models.Models()
}

func (s *Session) ImportModel(path string) ([]string, error) {
	return s.models.Import(path)
}

// Detect runs the detection backend on an image. A zero confidence uses
// the configured default.
func (s *Session) Detect(ctx context.Context, req DetectRequest) (DetectResult, error) {
	if u, ok := s.engine.(detection.Unavailable); ok {
		return DetectResult{}, u.Err()
	}
	img, err := s.ImageFile(req.ImagePath)
	if err != nil {
		return DetectResult{}, err
	}
	model, err := s.models.Resolve(req.Model)
	if err != nil {
		return DetectResult{}, err
	}
	conf := req.Confidence
	if conf <= 0 {
		conf = s.confidence
	}

	rects, err := s.engine.Detect(ctx, img, model, conf, req.ClassID)
	if err != nil {
		return DetectResult{}, err
	}
	s.log.Info("detected objects",
		zap.String("image", img),
		zap.String("model", model),
		zap.Int("rects", len(rects)))
	return DetectResult{Rects: rects, Model: model}, nil
}

// Export writes the dataset to outDir. An empty format uses the configured
// default.
func (s *Session) Export(ctx context.Context, outDir, format string) (export.Result, error) {
	if format == "" {
		format = s.exportFormat
	}
	return s.exporter.Export(ctx, s.project, outDir, format)
}
