package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
)

// ErrDecode is returned for upload bytes that are not a readable image.
var ErrDecode = errors.New("media: unable to decode image")

// DecodeImage decodes upload bytes, applies the EXIF orientation, and
// downscales so the longest side is at most maxDimension (0 disables).
func DecodeImage(data []byte, maxDimension int) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty upload", ErrDecode)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, fmt.Errorf("%w: invalid dimensions %dx%d", ErrDecode, bounds.Dx(), bounds.Dy())
	}

	if maxDimension > 0 && (bounds.Dx() > maxDimension || bounds.Dy() > maxDimension) {
		img = imaging.Fit(img, maxDimension, maxDimension, imaging.Lanczos)
	}
	return img, nil
}

// TakenAt returns the EXIF capture time of the photo, if it has one.
func TakenAt(data []byte) (time.Time, bool) {
	exifData, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		// most uploads from browsers have no EXIF at all
		return time.Time{}, false
	}
	dt, err := exifData.DateTime()
	if err != nil {
		return time.Time{}, false
	}
	return dt, true
}
