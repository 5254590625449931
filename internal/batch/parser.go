package batch

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Item is one room photo to restyle, with the edits to apply after the
// style.
type Item struct {
	Index  int
	Photo  string
	Style  string
	Edits  []string
	Output string
}

type jsonItem struct {
	Photo  string   `json:"photo"`
	Style  string   `json:"style,omitempty"`
	Edits  []string `json:"edits,omitempty"`
	Output string   `json:"output,omitempty"`
}

func ParseFile(path string) ([]Item, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		return ParseJSON(file)
	case ".txt", "":
		return ParseText(file)
	default:
		return nil, fmt.Errorf("unsupported file format %q: use .txt or .json", ext)
	}
}

// ParseText reads one item per line as "photo | style | edit | edit ...".
// Only the photo is required. Blank lines and # comments are skipped.
func ParseText(r io.Reader) ([]Item, error) {
	var items []Item
	scanner := bufio.NewScanner(r)
	index := 0

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "|")
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		if fields[0] == "" {
			return nil, fmt.Errorf("line %q has no photo", line)
		}

		index++
		item := Item{Index: index, Photo: fields[0]}
		if len(fields) > 1 {
			item.Style = fields[1]
		}
		for _, edit := range fields[min(len(fields), 2):] {
			if edit != "" {
				item.Edits = append(item.Edits, edit)
			}
		}
		items = append(items, item)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("no photos found in file")
	}

	return items, nil
}

func ParseJSON(r io.Reader) ([]Item, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var jsonItems []jsonItem
	if err := json.Unmarshal(data, &jsonItems); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	if len(jsonItems) == 0 {
		return nil, fmt.Errorf("no photos found in file")
	}

	items := make([]Item, len(jsonItems))
	for i, ji := range jsonItems {
		if strings.TrimSpace(ji.Photo) == "" {
			return nil, fmt.Errorf("item %d has no photo", i+1)
		}
		items[i] = Item{
			Index:  i + 1,
			Photo:  ji.Photo,
			Style:  ji.Style,
			Edits:  ji.Edits,
			Output: ji.Output,
		}
	}

	return items, nil
}
