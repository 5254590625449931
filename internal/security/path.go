package security

import (
	"errors"
	"path/filepath"
	"strings"
)

var (
	ErrPathTraversal  = errors.New("path traversal detected")
	ErrAbsolutePath   = errors.New("absolute paths are not allowed")
	ErrReservedName   = errors.New("reserved filename not allowed")
	ErrLeadingHyphen  = errors.New("filename cannot start with hyphen")
	ErrImageExtension = errors.New("design files must end in .png, .jpg, .jpeg, .webp or .gif")

	windowsReservedNames = map[string]bool{
		"con": true, "prn": true, "aux": true, "nul": true,
		"com1": true, "com2": true, "com3": true, "com4": true,
		"com5": true, "com6": true, "com7": true, "com8": true, "com9": true,
		"lpt1": true, "lpt2": true, "lpt3": true, "lpt4": true,
		"lpt5": true, "lpt6": true, "lpt7": true, "lpt8": true, "lpt9": true,
	}

	imageExtensions = map[string]bool{
		".png": true, ".jpg": true, ".jpeg": true, ".webp": true, ".gif": true,
	}
)

// ValidateSavePath checks a user-supplied output path for a design. Paths
// must be relative, stay below the working directory and carry an image
// extension.
func ValidateSavePath(path string) error {
	if filepath.IsAbs(path) {
		return ErrAbsolutePath
	}

	for _, part := range strings.FieldsFunc(path, isSeparator) {
		if part == ".." {
			return ErrPathTraversal
		}
	}

	base := filepath.Base(filepath.Clean(path))
	if windowsReservedNames[stem(base)] {
		return ErrReservedName
	}

	if strings.HasPrefix(base, "-") {
		return ErrLeadingHyphen
	}

	if !imageExtensions[strings.ToLower(filepath.Ext(base))] {
		return ErrImageExtension
	}

	return nil
}

// WithImageExtension appends ext when path has no extension at all.
func WithImageExtension(path, ext string) string {
	if filepath.Ext(path) != "" {
		return path
	}
	return path + "." + strings.TrimPrefix(ext, ".")
}

// SanitizeFilename makes name safe to use as a single path element.
func SanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "-", "\\", "-", ":", "-",
		"*", "", "?", "", "\"", "",
		"<", "", ">", "", "|", "", "\x00", "",
	)
	sanitized := replacer.Replace(name)
	sanitized = strings.TrimLeft(sanitized, ".-")
	sanitized = strings.TrimRight(sanitized, ". ")

	if windowsReservedNames[stem(sanitized)] {
		sanitized += "_"
	}

	if sanitized == "" {
		sanitized = "file"
	}

	return sanitized
}

func stem(base string) string {
	return strings.TrimSuffix(strings.ToLower(base), strings.ToLower(filepath.Ext(base)))
}

func isSeparator(r rune) bool {
	return r == '/' || r == '\\'
}
