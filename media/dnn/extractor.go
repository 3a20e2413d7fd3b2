// Package dnn implements media.Extractor with OpenCV DNN networks: an SSD
// face detector followed by an embedding model run on each face crop.
package dnn

import (
	"context"
	"fmt"
	"image"
	"sync"

	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// Extractor detects faces and embeds each one. gocv networks are not safe
// for concurrent use, so calls are serialized.
type Extractor struct {
	mu       sync.Mutex
	detector *FaceDetector
	embedder *Embedder
	logger   *zap.Logger
}

// NewExtractor loads both networks. Any load failure is returned so the
// caller can refuse to start.
func NewExtractor(detectorConfig, detectorModel, recognitionModel, recognitionName string, logger *zap.Logger) (*Extractor, error) {
	detector, err := NewFaceDetector(detectorConfig, detectorModel, logger)
	if err != nil {
		return nil, err
	}
	embedder, err := NewEmbedder(recognitionModel, recognitionName, logger)
	if err != nil {
		detector.Close()
		return nil, err
	}
	return &Extractor{
		detector: detector,
		embedder: embedder,
		logger:   logger.Named("extractor"),
	}, nil
}

func (x *Extractor) Close() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.detector.Close()
	x.embedder.Close()
}

func (x *Extractor) Extract(ctx context.Context, img image.Image) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// channel order of the result is BGR, as the networks expect
	bgr, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image to mat: %w", err)
	}
	defer bgr.Close()

	x.mu.Lock()
	defer x.mu.Unlock()

	detections := x.detector.Detect(bgr)
	x.logger.Debug("faces detected", zap.Int("count", len(detections)))

	bounds := image.Rect(0, 0, bgr.Cols(), bgr.Rows())
	embeddings := make([][]float32, 0, len(detections))
	for _, det := range detections {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rect := det.Rect().Intersect(bounds)
		if rect.Empty() {
			continue
		}
		face := bgr.Region(rect)
		embedding := x.embedder.Embed(face)
		face.Close()
		if len(embedding) == 0 {
			x.logger.Warn("skipping face with empty embedding", zap.Any("rect", rect))
			continue
		}
		embeddings = append(embeddings, embedding)
	}
	return embeddings, nil
}
