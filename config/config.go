package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	MetricEuclidean = "euclidean"
	MetricCosine    = "cosine"
)

const (
	defaultMatchTolerance    = 0.5
	defaultMaxImageDimension = 1600
	defaultMaxUploadBytes    = 20 << 20
	defaultCaptureQueueSize  = 50
	defaultNumCaptureWorkers = 2
)

// ErrInvalidConfig is returned by Validate for settings the server cannot start with.
var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	// database
	DatabaseDriver string
	DatabaseDSN    string

	// gallery artifact holding the known labels and embeddings
	GalleryPath string

	// matcher settings
	MatchTolerance float64
	MatchMetric    string

	// face detection model paths (DNN)
	FaceDNNNetConfigPath string
	FaceDNNNetModelPath  string

	// face embedding model
	RecognitionModelPath string
	RecognitionModelName string

	// upload handling
	MaxImageDimension int   // longest side after downscaling, before detection
	MaxUploadBytes    int64 // multipart body limit

	// http
	Port           string
	AllowedOrigins []string

	// capture archive, disabled when CaptureStoragePath is empty
	CaptureStoragePath string
	CaptureQueueSize   int
	NumCaptureWorkers  int

	// admin basic auth for corrections and roster edits, disabled when hash is empty
	AdminUsername     string
	AdminPasswordHash string

	// logging
	LogLevel  string
	LogFormat string

	// location used to decide what "today" is
	Location *time.Location
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(envVar string, defaultVal int) int {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val <= 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %d. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func getEnvFloatOrDefault(envVar string, defaultVal float64) float64 {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.ParseFloat(valStr, 64)
	if err != nil || val <= 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %g. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func LoadConfig() (Config, error) {
	driver := strings.ToLower(getEnvOrDefault("DATABASE_DRIVER", DriverSQLite))

	var dsn string
	if driver == DriverPostgres {
		dsn = os.Getenv("DATABASE_URL")
	} else {
		dsn = getEnvOrDefault("DATABASE_PATH", "attendance.db")
	}

	galleryPath := getEnvOrDefault("GALLERY_PATH", "encodings.json")
	absGallery, err := filepath.Abs(galleryPath)
	if err != nil {
		return Config{}, fmt.Errorf("failed to get absolute path for gallery '%s': %w", galleryPath, err)
	}

	var absCapture string
	if capturePath := os.Getenv("CAPTURE_STORAGE_PATH"); capturePath != "" {
		absCapture, err = filepath.Abs(capturePath)
		if err != nil {
			return Config{}, fmt.Errorf("failed to get absolute path for capture storage '%s': %w", capturePath, err)
		}
	}

	tzName := getEnvOrDefault("TIMEZONE", "Local")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return Config{}, fmt.Errorf("failed to load timezone '%s': %w", tzName, err)
	}

	cfg := Config{
		DatabaseDriver:       driver,
		DatabaseDSN:          dsn,
		GalleryPath:          absGallery,
		MatchTolerance:       getEnvFloatOrDefault("MATCH_TOLERANCE", defaultMatchTolerance),
		MatchMetric:          strings.ToLower(getEnvOrDefault("MATCH_METRIC", MetricEuclidean)),
		FaceDNNNetConfigPath: getEnvOrDefault("FACE_DNN_CONFIG_PATH", "./models/deploy.prototxt.txt"),
		FaceDNNNetModelPath:  getEnvOrDefault("FACE_DNN_MODEL_PATH", "./models/res10_300x300_ssd_iter_140000_fp16.caffemodel"),
		RecognitionModelPath: getEnvOrDefault("RECOGNITION_MODEL_PATH", "./models/arcface.onnx"),
		RecognitionModelName: getEnvOrDefault("RECOGNITION_MODEL_NAME", "arcface"),
		MaxImageDimension:    getEnvIntOrDefault("MAX_IMAGE_DIMENSION", defaultMaxImageDimension),
		MaxUploadBytes:       int64(getEnvIntOrDefault("MAX_UPLOAD_BYTES", defaultMaxUploadBytes)),
		Port:                 getEnvOrDefault("PORT", "8080"),
		AllowedOrigins:       splitList(getEnvOrDefault("ALLOWED_ORIGINS", "http://localhost:5173")),
		CaptureStoragePath:   absCapture,
		CaptureQueueSize:     getEnvIntOrDefault("CAPTURE_QUEUE_SIZE", defaultCaptureQueueSize),
		NumCaptureWorkers:    getEnvIntOrDefault("NUM_CAPTURE_WORKERS", defaultNumCaptureWorkers),
		AdminUsername:        getEnvOrDefault("ADMIN_USERNAME", "admin"),
		AdminPasswordHash:    os.Getenv("ADMIN_PASSWORD_HASH"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "console"),
		Location:             loc,
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks settings that have no safe fallback.
func (c Config) Validate() error {
	switch c.DatabaseDriver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("%w: unknown DATABASE_DRIVER %q", ErrInvalidConfig, c.DatabaseDriver)
	}
	if c.DatabaseDSN == "" {
		return fmt.Errorf("%w: empty database DSN for driver %s", ErrInvalidConfig, c.DatabaseDriver)
	}
	switch c.MatchMetric {
	case MetricEuclidean, MetricCosine:
	default:
		return fmt.Errorf("%w: unknown MATCH_METRIC %q", ErrInvalidConfig, c.MatchMetric)
	}
	if c.MatchTolerance <= 0 {
		return fmt.Errorf("%w: MATCH_TOLERANCE must be positive, got %g", ErrInvalidConfig, c.MatchTolerance)
	}
	if c.GalleryPath == "" {
		return fmt.Errorf("%w: GALLERY_PATH is required", ErrInvalidConfig)
	}
	return nil
}

// CaptureEnabled reports whether uploaded photos are archived.
func (c Config) CaptureEnabled() bool {
	return c.CaptureStoragePath != ""
}

// AuthEnabled reports whether write endpoints require admin credentials.
func (c Config) AuthEnabled() bool {
	return c.AdminPasswordHash != ""
}

// Today returns the current calendar day in the configured location.
func (c Config) Today() string {
	loc := c.Location
	if loc == nil {
		loc = time.Local
	}
	return time.Now().In(loc).Format("2006-01-02")
}
