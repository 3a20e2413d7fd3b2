package dnn

import (
	"fmt"
	"image"

	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

type Detection struct {
	X          int
	Y          int
	W          int
	H          int
	Confidence float32
}

// Rect returns the detection as an image rectangle.
func (d Detection) Rect() image.Rectangle {
	return image.Rect(d.X, d.Y, d.X+d.W, d.Y+d.H)
}

// FaceDetector wraps the res10 SSD face detection network
type FaceDetector struct {
	net    gocv.Net
	logger *zap.Logger

	// configuration parameters used during detection
	InputSizeW    int
	InputSizeH    int
	ScaleFactor   float64
	MeanVal       gocv.Scalar
	ConfThreshold float32
}

// preferCUDA switches the network to CUDA when available, falling back to CPU
func preferCUDA(net *gocv.Net, logger *zap.Logger) {
	cudaBackendErr := net.SetPreferableBackend(gocv.NetBackendCUDA)
	cudaTargetErr := net.SetPreferableTarget(gocv.NetTargetCUDA)
	if cudaBackendErr == nil && cudaTargetErr == nil {
		logger.Info("using CUDA backend")
		return
	}

	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)
	logger.Info("CUDA not available, using CPU backend",
		zap.NamedError("backend_error", cudaBackendErr),
		zap.NamedError("target_error", cudaTargetErr),
	)
}

// NewFaceDetector loads the DNN model
func NewFaceDetector(configPath, modelPath string, logger *zap.Logger) (*FaceDetector, error) {
	if configPath == "" || modelPath == "" {
		return nil, fmt.Errorf("face detector config or model path is empty")
	}
	logger = logger.Named("detector")

	net := gocv.ReadNet(modelPath, configPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load face detection network: config=%s, model=%s", configPath, modelPath)
	}
	logger.Info("loaded face detection model", zap.String("model", modelPath))
	preferCUDA(&net, logger)

	return &FaceDetector{
		net:           net,
		logger:        logger,
		InputSizeW:    300,
		InputSizeH:    300,
		ScaleFactor:   1.0,
		MeanVal:       gocv.NewScalar(104.0, 177.0, 123.0, 0),
		ConfThreshold: 0.5,
	}, nil
}

func (d *FaceDetector) Close() {
	if d != nil {
		d.net.Close()
	}
}

// Detect runs face detection on a BGR image
func (d *FaceDetector) Detect(img gocv.Mat) []Detection {
	if img.Empty() {
		return nil
	}

	imgHeight := float32(img.Rows())
	imgWidth := float32(img.Cols())

	blob := gocv.BlobFromImage(img, d.ScaleFactor, image.Pt(d.InputSizeW, d.InputSizeH), d.MeanVal, false, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	detectionsMat := d.net.Forward("")
	defer detectionsMat.Close()

	sizes := detectionsMat.Size()
	if len(sizes) != 4 {
		d.logger.Warn("unexpected detector output dimensions", zap.Ints("sizes", sizes))
		return nil
	}

	numDetections := sizes[2]
	if numDetections == 0 {
		return nil
	}

	// [1,1,N,7] -> [N,7]
	detectionsData := detectionsMat.Reshape(1, numDetections)
	defer detectionsData.Close()

	var results []Detection
	for i := 0; i < numDetections; i++ {
		confidence := detectionsData.GetFloatAt(i, 2)
		if confidence <= d.ConfThreshold {
			continue
		}

		xMin := max(0, detectionsData.GetFloatAt(i, 3)*imgWidth)
		yMin := max(0, detectionsData.GetFloatAt(i, 4)*imgHeight)
		xMax := min(imgWidth, detectionsData.GetFloatAt(i, 5)*imgWidth)
		yMax := min(imgHeight, detectionsData.GetFloatAt(i, 6)*imgHeight)

		if xMax > xMin && yMax > yMin {
			results = append(results, Detection{
				X:          int(xMin),
				Y:          int(yMin),
				W:          int(xMax - xMin),
				H:          int(yMax - yMin),
				Confidence: confidence,
			})
		}
	}
	return results
}
