// Package labels reads and writes YOLO text annotations.
//
// A label file holds one object per line:
//
//	<class_id> <cx> <cy> <w> <h>
//
// where the four box values are fractions of the image width and height.
// An image with no objects has no label file at all.
package labels

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/menta2k/dataset-labeller/internal/utils"
	"github.com/menta2k/dataset-labeller/pkg/types"
)

// fieldsPerLine is the number of values on a well-formed label line
const fieldsPerLine = 5

// Decode reads the label file at path and converts it to pixel rectangles
// for an image of w x h pixels. A missing or empty file decodes to no rects.
func Decode(path string, w, h int) ([]types.Rect, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []types.Rect{}, nil
		}
		return nil, fmt.Errorf("%w: failed to open label file: %w", types.ErrIO, err)
	}
	defer f.Close()

	rects, err := Parse(f, w, h)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read label file %s: %w", types.ErrIO, path, err)
	}
	return rects, nil
}

// Parse decodes label lines from r. Lines without exactly five finite
// numeric fields are skipped.
func Parse(r io.Reader, w, h int) ([]types.Rect, error) {
	rects := []types.Rect{}
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if rect, ok := parseLine(line, w, h); ok {
			rects = append(rects, rect)
		}
		if err == io.EOF {
			return rects, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

func parseLine(line string, w, h int) (types.Rect, bool) {
	fields := strings.Fields(line)
	if len(fields) != fieldsPerLine {
		return types.Rect{}, false
	}
	var v [fieldsPerLine]float64
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 64)
		if err != nil || math.IsNaN(x) || math.IsInf(x, 0) {
			return types.Rect{}, false
		}
		v[i] = x
	}
	box := types.YoloBox{CX: v[1], CY: v[2], W: v[3], H: v[4]}
	return FromBox(box, int(v[0]), w, h), true
}

// Encode writes rects to path in normalized form. An empty rect set removes
// any existing file instead of writing an empty one.
func Encode(path string, rects []types.Rect, w, h int) error {
	if len(rects) == 0 {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: failed to delete label file: %w", types.ErrIO, err)
		}
		return nil
	}

	data, err := Format(rects, w, h)
	if err != nil {
		return err
	}
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	return utils.WriteFileAtomic(path, data)
}

// Format renders rects as label file content
func Format(rects []types.Rect, w, h int) ([]byte, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: image dimensions must be positive, got %dx%d", types.ErrInvalidInput, w, h)
	}
	var buf bytes.Buffer
	for _, r := range rects {
		b := ToBox(r, w, h)
		fmt.Fprintf(&buf, "%d %.6f %.6f %.6f %.6f\n", r.ClassID, b.CX, b.CY, b.W, b.H)
	}
	return buf.Bytes(), nil
}

// ToBox converts a pixel rect to a normalized center box
func ToBox(r types.Rect, w, h int) types.YoloBox {
	fw, fh := float64(w), float64(h)
	return types.YoloBox{
		CX: ((r.X1 + r.X2) / 2) / fw,
		CY: ((r.Y1 + r.Y2) / 2) / fh,
		W:  (r.X2 - r.X1) / fw,
		H:  (r.Y2 - r.Y1) / fh,
	}
}

// FromBox converts a normalized center box to a pixel rect
func FromBox(b types.YoloBox, classID, w, h int) types.Rect {
	fw, fh := float64(w), float64(h)
	return types.Rect{
		X1:      (b.CX - b.W/2) * fw,
		Y1:      (b.CY - b.H/2) * fh,
		X2:      (b.CX + b.W/2) * fw,
		Y2:      (b.CY + b.H/2) * fh,
		ClassID: classID,
	}
}
