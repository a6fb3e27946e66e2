package export

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/menta2k/dataset-labeller/pkg/types"
)

// Record is one image of a JSON manifest
type Record struct {
	Image       string       `json:"image"`
	Split       types.Split  `json:"split"`
	Width       int          `json:"width"`
	Height      int          `json:"height"`
	Annotations []Annotation `json:"annotations"`
}

// Annotation is one box of a Record in both pixel and normalized form
type Annotation struct {
	ClassID  int      `json:"class_id"`
	BBoxXYXY [4]Float `json:"bbox_xyxy"`
	BBoxYOLO [4]Float `json:"bbox_yolo"`
}

// NewRecord builds the manifest record of one image
func NewRecord(image string, split types.Split, w, h int, rects []types.Rect) Record {
	anns := make([]Annotation, 0, len(rects))
	fw, fh := float64(w), float64(h)
	for _, r := range rects {
		anns = append(anns, Annotation{
			ClassID:  r.ClassID,
			BBoxXYXY: [4]Float{Float(r.X1), Float(r.Y1), Float(r.X2), Float(r.Y2)},
			BBoxYOLO: [4]Float{
				Float(((r.X1 + r.X2) / 2) / fw),
				Float(((r.Y1 + r.Y2) / 2) / fh),
				Float((r.X2 - r.X1) / fw),
				Float((r.Y2 - r.Y1) / fh),
			},
		})
	}
	return Record{Image: image, Split: split, Width: w, Height: h, Annotations: anns}
}

// Float marshals like a Python float: integral values keep a ".0" and very
// large or small magnitudes use exponent notation
type Float float64

func (f Float) MarshalJSON() ([]byte, error) {
	return []byte(formatFloat(float64(f))), nil
}

func formatFloat(v float64) string {
	abs := math.Abs(v)
	if abs != 0 && (abs >= 1e16 || abs < 1e-4) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// EncodeManifest renders records with 2-space indentation, unescaped
// non-ASCII text and no trailing newline
func EncodeManifest(records []Record) ([]byte, error) {
	if records == nil {
		records = []Record{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
