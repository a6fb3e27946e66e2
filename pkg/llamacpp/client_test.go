package llamacpp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDetectObjects(t *testing.T) {
	var got ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","choices":[{"index":0,"message":{"role":"assistant",` +
			`"content":"{\"objects\":[{\"label\":\"car\",\"confidence\":0.7,\"box\":{\"x\":0,\"y\":0,\"w\":1,\"h\":1}}]}"}}]}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL+"/", 5*time.Second)
	require.NoError(t, err)

	res, err := c.DetectObjects(context.Background(), "qwen2.5vl:7b", "find", "iVBORw0KGgoAAAA")
	require.NoError(t, err)
	require.Len(t, res.Objects, 1)
	require.Equal(t, "car", res.Objects[0].Label)

	require.Equal(t, "qwen2.5vl:7b", got.Model)
	require.False(t, got.Stream)
	parts, ok := got.Messages[0].Content.([]any)
	require.True(t, ok)
	require.Len(t, parts, 2)
	image := parts[1].(map[string]any)["image_url"].(map[string]any)
	require.Equal(t, "data:image/png;base64,iVBORw0KGgoAAAA", image["url"])
}

func TestContentPartArrayReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":[{"type":"text",` +
			`"text":"{\"objects\":[{\"label\":\"car\",\"confidence\":0.6,\"box\":{\"x\":0.1,\"y\":0.1,\"w\":0.2,\"h\":0.2}}]}"}]}}]}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, time.Second)
	require.NoError(t, err)
	res, err := c.DetectObjects(context.Background(), "m", "find", "")
	require.NoError(t, err)
	require.Len(t, res.Objects, 1)
	require.Equal(t, "car", res.Objects[0].Label)
}

func TestServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, time.Second)
	require.NoError(t, err)
	_, err = c.DetectObjects(context.Background(), "m", "p", "")
	require.ErrorContains(t, err, "503")
}

func TestNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, time.Second)
	require.NoError(t, err)
	_, err = c.DetectObjects(context.Background(), "m", "p", "")
	require.ErrorContains(t, err, "no choices")
}
