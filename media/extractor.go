package media

import (
	"context"
	"image"
)

// Extractor turns a decoded photo into one embedding per detected face.
// Zero faces is a valid result.
type Extractor interface {
	Extract(ctx context.Context, img image.Image) ([][]float32, error)
}

// ExtractorFunc adapts a plain function to Extractor.
type ExtractorFunc func(ctx context.Context, img image.Image) ([][]float32, error)

func (f ExtractorFunc) Extract(ctx context.Context, img image.Image) ([][]float32, error) {
	return f(ctx, img)
}
