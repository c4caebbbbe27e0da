package style

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// preset mirrors Directives with plain strings so a partial file only
// overrides what it names
type preset struct {
	Genre       string `yaml:"genre"`
	Language    string `yaml:"language"`
	Aspect      string `yaml:"aspect"`
	Instruction string `yaml:"instruction"`
	Character   string `yaml:"character"`
	Title       string `yaml:"title"`
}

// LoadPreset reads a YAML style preset and overlays it on base
func LoadPreset(path string, base Directives) (Directives, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("failed to read preset: %w", err)
	}
	return ParsePreset(data, base)
}

// ParsePreset overlays the YAML document in data on base
func ParsePreset(data []byte, base Directives) (Directives, error) {
	var p preset
	if err := yaml.Unmarshal(data, &p); err != nil {
		return base, fmt.Errorf("failed to parse preset: %w", err)
	}

	d := base
	if p.Genre != "" {
		mode, err := ParseGenreMode(p.Genre)
		if err != nil {
			return base, err
		}
		d.Genre = mode
	}
	if p.Aspect != "" {
		aspect, err := ParseAspectRatio(p.Aspect)
		if err != nil {
			return base, err
		}
		d.Aspect = aspect
	}
	if p.Language != "" {
		d.Language = ParseLanguage(p.Language)
	}
	if s := strings.TrimSpace(p.Instruction); s != "" {
		d.Instruction = s
	}
	if s := strings.TrimSpace(p.Character); s != "" {
		d.Character = s
	}
	if s := strings.TrimSpace(p.Title); s != "" {
		d.Title = s
	}
	return d, nil
}
