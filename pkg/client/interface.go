package client

import (
	"context"

	"github.com/menta2k/dataset-labeller/pkg/types"
)

// VisionClient is a vision model backend able to locate objects in an image
type VisionClient interface {
	DetectObjects(ctx context.Context, model, prompt, imgB64 string) (*types.DetectionResult, error)
}
