package image

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	_ "golang.org/x/image/webp"

	"github.com/manash/roomdesign/pkg/models"
)

// Decode decodes any registered format: PNG, JPEG, GIF or WebP.
func Decode(img models.Image) (image.Image, error) {
	if img.IsEmpty() {
		return nil, ErrNoImageData
	}
	decoded, _, err := image.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUnsupportedFormat, err)
	}
	return decoded, nil
}

// Dimensions reads only the header to report width and height.
func Dimensions(img models.Image) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(img.Data))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", models.ErrUnsupportedFormat, err)
	}
	return cfg.Width, cfg.Height, nil
}

func EncodePNG(src image.Image) (models.Image, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		return models.Image{}, fmt.Errorf("failed to encode png: %w", err)
	}
	return models.Image{Data: buf.Bytes(), MimeType: "image/png"}, nil
}

// ToPNG re-encodes img as PNG. PNG input is returned unchanged.
func ToPNG(img models.Image) (models.Image, error) {
	if img.MimeType == "image/png" {
		return img, nil
	}
	decoded, err := Decode(img)
	if err != nil {
		return models.Image{}, err
	}
	return EncodePNG(decoded)
}
