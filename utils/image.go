package utils

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"

	"go.uber.org/zap"
)

const (
	maxImageDimension = 1024
	jpegQuality       = 85
)

// PrepareImage downscales an incoming photo to at most 1024px on the long
// side and re-encodes it as JPEG for the vision call. Pure bytes-to-bytes:
// no network, no pipeline coupling.
func PrepareImage(data []byte) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	if width > maxImageDimension || height > maxImageDimension {
		scale := float64(maxImageDimension) / float64(width)
		if height > width {
			scale = float64(maxImageDimension) / float64(height)
		}
		dstWidth := int(float64(width) * scale)
		dstHeight := int(float64(height) * scale)

		dst := image.NewRGBA(image.Rect(0, 0, dstWidth, dstHeight))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst

		zap.L().Debug("downscaled image",
			zap.String("format", format),
			zap.Int("width", dstWidth),
			zap.Int("height", dstHeight))
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}

	return buf.Bytes(), nil
}
