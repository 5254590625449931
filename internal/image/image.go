package image

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/manash/roomdesign/internal/security"
	"github.com/manash/roomdesign/pkg/models"
)

var ErrNoImageData = errors.New("no image data available")

// Saver writes designs to disk.
type Saver struct {
	now func() time.Time
}

func NewSaver() *Saver {
	return &Saver{now: time.Now}
}

// Save writes img to path, creating parent directories. An empty path gets
// a generated name based on roomName and label.
func (s *Saver) Save(img models.Image, path, roomName, label string) (string, error) {
	if img.IsEmpty() {
		return "", ErrNoImageData
	}

	if path == "" {
		path = GenerateFilenameWithTime(roomName, label, img.Extension(), s.now())
	}

	if err := s.ensureDir(path); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, img.Data, 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return path, nil
}

func (s *Saver) ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0755)
}

func GenerateFilename(roomName, label, ext string) string {
	return GenerateFilenameWithTime(roomName, label, ext, time.Now())
}

// GenerateFilenameWithTime builds "<room>-<label>-<timestamp>.<ext>" from
// the uploaded file's base name.
func GenerateFilenameWithTime(roomName, label, ext string, t time.Time) string {
	base := filepath.Base(roomName)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "room"
	}
	base = security.SanitizeFilename(base)

	if label == "" {
		label = "design"
	}
	label = security.SanitizeFilename(strings.ToLower(strings.ReplaceAll(label, " ", "-")))

	return fmt.Sprintf("%s-%s-%s.%s", base, label, t.Format("20060102-150405"), ext)
}
