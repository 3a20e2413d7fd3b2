package dnn

import (
	"fmt"
	"image"
	"math"
	"os"

	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// Embedder extracts face embeddings with an ArcFace or FaceNet style network
type Embedder struct {
	net       gocv.Net
	logger    *zap.Logger
	ModelName string

	InputSizeW int
	InputSizeH int
}

// NewEmbedder loads a face recognition model (ArcFace, FaceNet, etc.)
func NewEmbedder(modelPath string, modelName string, logger *zap.Logger) (*Embedder, error) {
	if modelPath == "" {
		return nil, fmt.Errorf("recognition model path is empty")
	}
	logger = logger.Named("embedder")

	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("recognition model %s: %w", modelPath, err)
	}

	net := gocv.ReadNet(modelPath, "")
	if net.Empty() {
		return nil, fmt.Errorf("failed to load %s network from %s", modelName, modelPath)
	}
	logger.Info("loaded face recognition model", zap.String("model", modelName), zap.String("path", modelPath))
	preferCUDA(&net, logger)

	inputSize := 112
	if modelName == "facenet" {
		inputSize = 160
	}

	return &Embedder{
		net:        net,
		logger:     logger,
		ModelName:  modelName,
		InputSizeW: inputSize,
		InputSizeH: inputSize,
	}, nil
}

func (e *Embedder) Close() {
	if e != nil {
		e.net.Close()
	}
}

// Embed returns the L2 normalized embedding of a BGR face crop
func (e *Embedder) Embed(face gocv.Mat) []float32 {
	if face.Empty() {
		return nil
	}

	rgb := gocv.NewMat()
	defer rgb.Close()
	if face.Channels() == 3 {
		gocv.CvtColor(face, &rgb, gocv.ColorBGRToRGB)
	} else {
		face.CopyTo(&rgb)
	}

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(rgb, &resized, image.Pt(e.InputSizeW, e.InputSizeH), 0, 0, gocv.InterpolationLinear)

	floats := gocv.NewMat()
	defer floats.Close()
	resized.ConvertTo(&floats, gocv.MatTypeCV32F)

	blob := gocv.BlobFromImage(floats, 1.0/255.0, image.Pt(e.InputSizeW, e.InputSizeH), gocv.NewScalar(0, 0, 0, 0), false, false)
	defer blob.Close()

	e.net.SetInput(blob, "")
	output := e.net.Forward("")
	defer output.Close()

	if len(output.Size()) == 0 {
		e.logger.Warn("empty recognition output")
		return nil
	}

	flattened := output.Reshape(1, 1)
	defer flattened.Close()

	embedding := make([]float32, flattened.Cols())
	for i := range embedding {
		embedding[i] = flattened.GetFloatAt(0, i)
	}
	return normalize(embedding)
}

// normalize scales the embedding vector to unit length
func normalize(embedding []float32) []float32 {
	var norm float64
	for _, val := range embedding {
		norm += float64(val) * float64(val)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return embedding
	}

	normalized := make([]float32, len(embedding))
	for i, val := range embedding {
		normalized[i] = float32(float64(val) / norm)
	}
	return normalized
}
