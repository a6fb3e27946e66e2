package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Split is a named partition of a dataset's images
type Split string

const (
	Train Split = "train"
	Val   Split = "val"
	Test  Split = "test"
)

// Splits lists every known split in discovery order
var Splits = []Split{Train, Val, Test}

// ParseSplit validates a split name
func ParseSplit(name string) (Split, error) {
	for _, s := range Splits {
		if string(s) == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: unknown split %q", ErrInvalidInput, name)
}

// Layout is the structural mode of an opened dataset root
type Layout string

const (
	// LayoutFlat is a folder of images with no images/<split> tree
	LayoutFlat Layout = "flat"
	// LayoutSplit has images/<split> and labels/<split> directories
	LayoutSplit Layout = "split-structured"
)

// OpenMode is the kind of project a caller asked to open
type OpenMode string

const (
	ModeImages OpenMode = "images"
	ModeYOLO   OpenMode = "yolo"
	ModeRFDETR OpenMode = "rfdetr"
)

// ParseOpenMode validates a mode name; empty means ModeImages
func ParseOpenMode(name string) (OpenMode, error) {
	switch OpenMode(strings.ToLower(strings.TrimSpace(name))) {
	case "", ModeImages:
		return ModeImages, nil
	case ModeYOLO:
		return ModeYOLO, nil
	case ModeRFDETR:
		return ModeRFDETR, nil
	}
	return "", fmt.Errorf("%w: unknown project mode %q", ErrInvalidInput, name)
}

// IsSplitStructured reports whether the mode expects an images/<split> tree
func (m OpenMode) IsSplitStructured() bool {
	return m == ModeYOLO || m == ModeRFDETR
}

// Rect is a bounding box in pixel coordinates with a class id.
// Degenerate boxes are allowed.
type Rect struct {
	X1      float64
	Y1      float64
	X2      float64
	Y2      float64
	ClassID int
}

// MarshalJSON encodes the rect as [x1, y1, x2, y2, class_id]
func (r Rect) MarshalJSON() ([]byte, error) {
	return json.Marshal([5]float64{r.X1, r.Y1, r.X2, r.Y2, float64(r.ClassID)})
}

// UnmarshalJSON decodes [x1, y1, x2, y2, class_id]
func (r *Rect) UnmarshalJSON(data []byte) error {
	var v []float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if len(v) != 5 {
		return fmt.Errorf("%w: rect needs 5 values, got %d", ErrInvalidInput, len(v))
	}
	*r = Rect{X1: v[0], Y1: v[1], X2: v[2], Y2: v[3], ClassID: int(v[4])}
	return nil
}

// YoloBox is a center-based box normalized to [0,1] of the image size
type YoloBox struct {
	CX float64
	CY float64
	W  float64
	H  float64
}

// Box represents a normalized bounding box with top-left coordinates in [0,1] range
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Detection is one object reported by a vision model
type Detection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
}

// DetectionResult contains the objects a vision model found in an image
type DetectionResult struct {
	Objects []Detection `json:"objects"`
}

// ImageEntry is an image file belonging to one split
type ImageEntry struct {
	Split Split
	Path  string
}

// LabelSet is the annotation state of one image
type LabelSet struct {
	Rects        []Rect `json:"rects"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	HasLabelFile bool   `json:"has_label_file"`
}
