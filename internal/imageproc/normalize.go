// Package imageproc prepares pictures for the vision model.
package imageproc

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/Vovarama1992/scene_narrator/internal/domain"
)

const jpegQuality = 90

// Decode checks that data is a readable JPEG or PNG picture.
func Decode(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}
	return img, nil
}

// Rotate turns the picture counter-clockwise by degrees (0, 90, 180 or 270),
// growing the canvas to fit, and re-encodes it as JPEG.
func Rotate(data []byte, degrees int) ([]byte, error) {
	img, err := Decode(data)
	if err != nil {
		return nil, err
	}

	var out image.Image
	switch degrees {
	case 0:
		out = img
	case 90:
		out = imaging.Rotate90(img)
	case 180:
		out = imaging.Rotate180(img)
	case 270:
		out = imaging.Rotate270(img)
	default:
		return nil, fmt.Errorf("unsupported rotation %d", degrees)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("%w: encode jpeg: %v", domain.ErrDecode, err)
	}
	return buf.Bytes(), nil
}

// DataURL always labels the payload as JPEG.
func DataURL(data []byte) string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data)
}

// Normalize runs the per-source normalization: camera frames are rotated,
// uploads are only validated and passed through unchanged.
func Normalize(blob *domain.ImageBlob, cameraRotation int) (string, error) {
	data := blob.Data
	if blob.Source == domain.SourceCamera {
		rotated, err := Rotate(data, cameraRotation)
		if err != nil {
			return "", err
		}
		data = rotated
	} else if _, err := Decode(data); err != nil {
		return "", err
	}
	return DataURL(data), nil
}

// Normalizer binds the configured camera rotation.
type Normalizer struct {
	CameraRotation int
}

func (n Normalizer) Normalize(blob *domain.ImageBlob) (string, error) {
	return Normalize(blob, n.CameraRotation)
}
