package catalog

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/MrSnakeDoc/daylog/internal/domain"
)

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// File is the top-level structure of the category file.
//
//	categories:
//	  - name: Work
//	    emoji: "🧑‍💻"
//	    color: "#2563eb"
type File struct {
	Categories []Entry `yaml:"categories"`
}

// Loader handles loading and parsing of the category file
type Loader struct {
	filePath string
}

// NewLoader creates a new category file loader
func NewLoader(filePath string) *Loader {
	return &Loader{
		filePath: filePath,
	}
}

// Path returns the file the loader reads
func (l *Loader) Path() string {
	return l.filePath
}

// Load reads, parses and validates the category file
func (l *Loader) Load() ([]Entry, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read category file: %w", err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse category yaml: %w", err)
	}

	if err := validate(file.Categories); err != nil {
		return nil, fmt.Errorf("invalid category file %s: %w", l.filePath, err)
	}
	return file.Categories, nil
}

func validate(entries []Entry) error {
	var errs []error
	seen := make(map[domain.Category]bool, len(entries))

	for i, e := range entries {
		if !e.Name.Known() {
			errs = append(errs, fmt.Errorf("entry %d: unknown category %q", i, e.Name))
			continue
		}
		if seen[e.Name] {
			errs = append(errs, fmt.Errorf("entry %d: duplicate category %q", i, e.Name))
		}
		seen[e.Name] = true
		if e.Color != "" && !colorPattern.MatchString(e.Color) {
			errs = append(errs, fmt.Errorf("entry %d: color %q is not #rrggbb", i, e.Color))
		}
	}
	return errors.Join(errs...)
}
