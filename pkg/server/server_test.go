package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	labeller "github.com/menta2k/dataset-labeller"
	"github.com/menta2k/dataset-labeller/pkg/types"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, image.NewGray(image.Rect(0, 0, w, h))))
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	session, err := labeller.NewWithOptions(labeller.Options{})
	require.NoError(t, err)
	return New(session, Options{})
}

func do(t *testing.T, s *Server, method, target string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	out := map[string]any{}
	if rec.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", types.ErrNotFound), http.StatusNotFound},
		{types.ErrInvalidInput, http.StatusBadRequest},
		{types.ErrNoProject, http.StatusBadRequest},
		{types.ErrUnsupportedFormat, http.StatusBadRequest},
		{types.ErrCapabilityUnavailable, http.StatusBadRequest},
		{types.ErrConflict, http.StatusConflict},
		{types.ErrIO, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestSystemAndDialogs(t *testing.T) {
	s := newTestServer(t)

	rec, body := do(t, s, http.MethodGet, "/api/system", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, false, body["dialogs_enabled"])
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec, body = do(t, s, http.MethodGet, "/api/dialog/folder", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, body["detail"], "disabled")

	rec, _ = do(t, s, http.MethodGet, "/api/dialog/file?kind=model", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequestIDIsEchoed(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/classes", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestNoProjectLoaded(t *testing.T) {
	s := newTestServer(t)
	rec, body := do(t, s, http.MethodGet, "/api/project/info", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, types.ErrNoProject.Error(), body["detail"])

	rec, _ = do(t, s, http.MethodGet, "/api/restore/list", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLabellingFlow(t *testing.T) {
	root := t.TempDir()
	img := filepath.Join(root, "images", "train", "a.png")
	writePNG(t, img, 100, 200)
	s := newTestServer(t)

	rec, body := do(t, s, http.MethodPost, "/api/project/open", map[string]string{"path": root, "mode": "yolo"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "train", body["split"])
	require.EqualValues(t, 1, body["count"])
	require.Equal(t, []any{"class0", "class1", "class2"}, body["class_names"])
	images := body["images"].([]any)
	imgPath := images[0].(string)

	rec, _ = do(t, s, http.MethodPost, "/api/labels/save", map[string]any{
		"image_path": imgPath,
		"split":      "train",
		"rects":      [][]float64{{40, 30, 60, 110, 1}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, body = do(t, s, http.MethodGet, "/api/labels?split=train&image_path="+imgPath, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, body["has_label_file"])
	require.EqualValues(t, 100, body["width"])
	rects := body["rects"].([]any)
	require.Len(t, rects, 1)
	first := rects[0].([]any)
	require.InDelta(t, 40, first[0].(float64), 1e-3)
	require.EqualValues(t, 1, first[4])

	rec, _ = do(t, s, http.MethodPost, "/api/labels/save", map[string]any{
		"image_path": imgPath,
		"rects":      [][]float64{{1, 2, 3}},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = do(t, s, http.MethodPost, "/api/remove", map[string]string{"image_path": imgPath, "split": "train"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "a.png", body["removed"])
	require.Empty(t, body["images"])

	rec, body = do(t, s, http.MethodGet, "/api/restore/list?split=train", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []any{"a.png"}, body["files"])

	rec, body = do(t, s, http.MethodPost, "/api/restore", map[string]string{"split": "train", "filename": "a.png"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, body["images"], 1)

	rec, _ = do(t, s, http.MethodPost, "/api/restore", map[string]string{"split": "train", "filename": "a.png"})
	require.Equal(t, http.StatusNotFound, rec.Code)

	out := t.TempDir()
	rec, body = do(t, s, http.MethodPost, "/api/export", map[string]string{"output_dir": out, "fmt": "JSON"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.EqualValues(t, 1, body["count"])
	require.FileExists(t, filepath.Join(out, "annotations", "train.json"))

	rec, _ = do(t, s, http.MethodPost, "/api/export", map[string]string{"output_dir": out, "fmt": "COCO"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, s, http.MethodPost, "/api/detect", map[string]any{"image_path": imgPath})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImage(t *testing.T) {
	root := t.TempDir()
	img := filepath.Join(root, "a.png")
	writePNG(t, img, 4, 4)
	s := newTestServer(t)

	rec, _ := do(t, s, http.MethodGet, "/api/image?path="+img, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	rec, _ = do(t, s, http.MethodGet, "/api/image?path="+filepath.Join(root, "b.png"), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClassesAndModels(t *testing.T) {
	s := newTestServer(t)

	rec, body := do(t, s, http.MethodPost, "/api/classes", map[string]any{"names": []string{" cat ", "", "dog"}})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []any{"cat", "dog"}, body["class_names"])

	rec, _ = do(t, s, http.MethodPost, "/api/classes", map[string]any{"names": []string{" "}})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	model := filepath.Join(t.TempDir(), "best.gguf")
	require.NoError(t, os.WriteFile(model, []byte("x"), 0o644))
	rec, body = do(t, s, http.MethodPost, "/api/models/import", map[string]string{"path": model})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, body["models"], 1)

	rec, _ = do(t, s, http.MethodPost, "/api/models/import", map[string]string{"path": model + ".missing"})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec, body = do(t, s, http.MethodGet, "/api/models", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, body["models"], 1)
}

func TestStaticUI(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>ui</html>"), 0o644))
	session, err := labeller.NewWithOptions(labeller.Options{})
	require.NoError(t, err)
	s := New(session, Options{StaticDir: dir})

	rec, _ := do(t, s, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "ui")
}
