package detection

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/menta2k/dataset-labeller/pkg/analyzer"
	"github.com/menta2k/dataset-labeller/pkg/client"
	"github.com/menta2k/dataset-labeller/pkg/processing"
	"github.com/menta2k/dataset-labeller/pkg/types"
)

// DefaultPrompt asks a vision model for every object with a normalized box
const DefaultPrompt = `You are an object detector for dataset labelling.

Return JSON only:
{
  "objects": [
    {"label": "string", "confidence": 0.0, "box": {"x": 0.0, "y": 0.0, "w": 0.0, "h": 0.0}}
  ]
}

HARD RULES
- Coordinates are normalized to [0,1] (NOT pixels); x,y is the top-left corner.
- One entry per distinct object instance. Boxes must tightly enclose the object.
- confidence is your certainty in [0,1].
- If nothing is found, return {"objects": []}.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// Engine finds objects in an image and returns them as pixel rectangles
// tagged with classID
type Engine interface {
	Detect(ctx context.Context, imagePath, model string, confidence float64, classID int) ([]types.Rect, error)
}

// Options tune how images are sent to the model
type Options struct {
	Prompt      string
	SendFormat  string
	SendSize    int
	SendQuality int
	Logger      *zap.Logger
}

// Detector runs detection through a vision model client
type Detector struct {
	client    client.VisionClient
	processor *processing.Processor
	opts      Options
}

// NewDetector creates a new detector with a vision client
func NewDetector(c client.VisionClient, opts Options) *Detector {
	if opts.Prompt == "" {
		opts.Prompt = DefaultPrompt
	}
	if opts.SendFormat == "" {
		opts.SendFormat = "jpg"
	}
	if opts.SendQuality <= 0 {
		opts.SendQuality = 85
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Detector{client: c, processor: processing.NewProcessor(), opts: opts}
}

// Detect implements Engine
func (d *Detector) Detect(ctx context.Context, imagePath, model string, confidence float64, classID int) ([]types.Rect, error) {
	img, err := d.processor.LoadImage(imagePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", analyzer.ErrNotImage, err)
	}
	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())

	payload, err := d.processor.PrepareImageForModel(img, d.opts.SendFormat, d.opts.SendSize, d.opts.SendQuality)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	result, err := d.client.DetectObjects(ctx, model, d.opts.Prompt, payload)
	if err != nil {
		return nil, fmt.Errorf("detection failed: %w", err)
	}

	rects := toRects(result.Objects, w, h, confidence, classID)
	d.opts.Logger.Debug("detection finished",
		zap.String("image", imagePath),
		zap.String("model", model),
		zap.Int("objects", len(result.Objects)),
		zap.Int("kept", len(rects)))
	return rects, nil
}

// toRects drops objects under the confidence threshold or without area and
// scales the rest to pixels
func toRects(objects []types.Detection, w, h, confidence float64, classID int) []types.Rect {
	rects := []types.Rect{}
	for _, o := range objects {
		if o.Confidence < confidence || strings.EqualFold(o.Label, "none") {
			continue
		}
		x1 := processing.Clamp(o.Box.X, 0, 1)
		y1 := processing.Clamp(o.Box.Y, 0, 1)
		x2 := processing.Clamp(o.Box.X+o.Box.W, 0, 1)
		y2 := processing.Clamp(o.Box.Y+o.Box.H, 0, 1)
		if x2 <= x1 || y2 <= y1 {
			continue
		}
		rects = append(rects, types.Rect{
			X1:      x1 * w,
			Y1:      y1 * h,
			X2:      x2 * w,
			Y2:      y2 * h,
			ClassID: classID,
		})
	}
	return rects
}

// Unavailable is an Engine for setups without a detection backend
type Unavailable struct {
	Reason string
}

func (u Unavailable) Detect(context.Context, string, string, float64, int) ([]types.Rect, error) {
	return nil, u.Err()
}

// Err wraps ErrCapabilityUnavailable with the reason
func (u Unavailable) Err() error {
	reason := u.Reason
	if reason == "" {
		reason = "no detection backend configured"
	}
	return fmt.Errorf("%w: %s", types.ErrCapabilityUnavailable, reason)
}
