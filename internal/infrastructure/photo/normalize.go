package photo

import (
	"bytes"
	"fmt"
	"io"

	"github.com/disintegration/imaging"
	"github.com/hotelops/backoffice/internal/domain"
)

// MaxDimension bounds the longer side of a stored photo
const MaxDimension = 1600

const jpegQuality = 85

// Normalize decodes an uploaded photo, applies its EXIF orientation, fits it
// within MaxDimension and re-encodes it as JPEG. Images already small enough
// keep their size.
func Normalize(r io.Reader) (*bytes.Buffer, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: unreadable image", domain.ErrInvalidInput)
	}

	if b := img.Bounds(); b.Dx() > MaxDimension || b.Dy() > MaxDimension {
		img = imaging.Fit(img, MaxDimension, MaxDimension, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode photo: %w", err)
	}
	return &buf, nil
}
