package models

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

const dataURLPrefix = "data:"

// Image is an encoded image (JPEG, PNG, WebP...) together with its MIME type.
type Image struct {
	Data     []byte
	MimeType string
}

func NewImage(data []byte) Image {
	return Image{Data: data, MimeType: http.DetectContentType(data)}
}

func (i Image) IsEmpty() bool {
	return len(i.Data) == 0
}

// IsImage reports whether the sniffed or declared MIME type is an image type.
func (i Image) IsImage() bool {
	return strings.HasPrefix(i.MimeType, "image/")
}

func (i Image) Base64() string {
	return base64.StdEncoding.EncodeToString(i.Data)
}

// DataURL renders the image as "data:<mime>;base64,<payload>".
func (i Image) DataURL() string {
	return fmt.Sprintf("data:%s;base64,%s", i.MimeType, i.Base64())
}

// Extension returns a file extension (without dot) matching the MIME type.
func (i Image) Extension() string {
	switch i.MimeType {
	case "image/jpeg":
		return "jpg"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	default:
		return "png"
	}
}

// ParseDataURL decodes either a full data URL or a bare base64 payload.
// A bare payload has its MIME type sniffed from the decoded bytes.
func ParseDataURL(s string) (Image, error) {
	payload := s
	mimeType := ""
	if strings.HasPrefix(s, dataURLPrefix) {
		header, body, ok := strings.Cut(s, ",")
		if !ok {
			return Image{}, fmt.Errorf("%w: malformed data URL", ErrUnsupportedFormat)
		}
		meta := strings.TrimPrefix(header, dataURLPrefix)
		if !strings.HasSuffix(meta, ";base64") {
			return Image{}, fmt.Errorf("%w: data URL is not base64 encoded", ErrUnsupportedFormat)
		}
		mimeType = strings.TrimSuffix(meta, ";base64")
		payload = body
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Image{}, fmt.Errorf("failed to decode image: %w", err)
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return Image{Data: data, MimeType: mimeType}, nil
}
