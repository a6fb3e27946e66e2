package detection

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/menta2k/dataset-labeller/pkg/analyzer"
	"github.com/menta2k/dataset-labeller/pkg/types"
)

type fakeClient struct {
	result *types.DetectionResult
	err    error

	model  string
	prompt string
	img    string
}

func (f *fakeClient) DetectObjects(ctx context.Context, model, prompt, imgB64 string) (*types.DetectionResult, error) {
	f.model, f.prompt, f.img = model, prompt, imgB64
	return f.result, f.err
}

func writePNG(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 255, A: 255})
	}
	path := filepath.Join(t.TempDir(), "a.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func TestDetect(t *testing.T) {
	path := writePNG(t, 200, 100)
	fc := &fakeClient{result: &types.DetectionResult{Objects: []types.Detection{
		{Label: "dog", Confidence: 0.9, Box: types.Box{X: 0.1, Y: 0.2, W: 0.5, H: 0.5}},
		{Label: "cat", Confidence: 0.3, Box: types.Box{X: 0.1, Y: 0.1, W: 0.1, H: 0.1}},
		{Label: "edge", Confidence: 0.8, Box: types.Box{X: 0.9, Y: -0.1, W: 0.5, H: 0.5}},
		{Label: "flat", Confidence: 0.8, Box: types.Box{X: 0.5, Y: 0.5, W: 0, H: 0.2}},
	}}}

	d := NewDetector(fc, Options{SendFormat: "png"})
	rects, err := d.Detect(context.Background(), path, "llava:13b", 0.5, 2)
	require.NoError(t, err)
	require.Len(t, rects, 2)

	require.InDelta(t, 20, rects[0].X1, 1e-9)
	require.InDelta(t, 20, rects[0].Y1, 1e-9)
	require.InDelta(t, 120, rects[0].X2, 1e-9)
	require.InDelta(t, 70, rects[0].Y2, 1e-9)
	require.Equal(t, 2, rects[0].ClassID)

	// clamped to the image
	require.InDelta(t, 180, rects[1].X1, 1e-9)
	require.InDelta(t, 0, rects[1].Y1, 1e-9)
	require.InDelta(t, 200, rects[1].X2, 1e-9)
	require.InDelta(t, 40, rects[1].Y2, 1e-9)

	require.Equal(t, "llava:13b", fc.model)
	require.Equal(t, DefaultPrompt, fc.prompt)
	require.NotEmpty(t, fc.img)
}

func TestDetectNothingFound(t *testing.T) {
	path := writePNG(t, 10, 10)
	d := NewDetector(&fakeClient{result: &types.DetectionResult{}}, Options{})
	rects, err := d.Detect(context.Background(), path, "m", 0.5, 0)
	require.NoError(t, err)
	require.NotNil(t, rects)
	require.Empty(t, rects)
}

func TestDetectErrors(t *testing.T) {
	d := NewDetector(&fakeClient{err: errors.New("boom")}, Options{})

	bad := filepath.Join(t.TempDir(), "bad.png")
	require.NoError(t, os.WriteFile(bad, []byte("nope"), 0o644))
	_, err := d.Detect(context.Background(), bad, "m", 0.5, 0)
	require.ErrorIs(t, err, analyzer.ErrNotImage)

	_, err = d.Detect(context.Background(), writePNG(t, 10, 10), "m", 0.5, 0)
	require.ErrorContains(t, err, "boom")
}

func TestUnavailable(t *testing.T) {
	var e Engine = Unavailable{Reason: "backend disabled"}
	_, err := e.Detect(context.Background(), "x.jpg", "", 0.5, 0)
	require.ErrorIs(t, err, types.ErrCapabilityUnavailable)
	require.ErrorContains(t, err, "backend disabled")

	_, err = Unavailable{}.Detect(context.Background(), "x.jpg", "", 0.5, 0)
	require.ErrorIs(t, err, types.ErrCapabilityUnavailable)
}
