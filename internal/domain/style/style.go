package style

import (
	"fmt"
	"strings"
)

// GenreMode selects the visual template used for image prompts
type GenreMode int

const (
	Info GenreMode = iota
	Stickman
	History
	Mannequin
	Engineering
	Vector
)

var genreNames = map[GenreMode]string{
	Info:        "info",
	Stickman:    "stickman",
	History:     "history",
	Mannequin:   "mannequin",
	Engineering: "engineering",
	Vector:      "vector",
}

var genreLabels = map[GenreMode]string{
	Info:        "Bright & informational",
	Stickman:    "Dramatic stickman narrative",
	History:     "Historical documentary",
	Mannequin:   "3D mannequin documentary",
	Engineering: "Technical engineering 3D",
	Vector:      "Flat vector explainer",
}

// Modes lists every genre mode in display order
func Modes() []GenreMode {
	return []GenreMode{Info, Stickman, History, Mannequin, Engineering, Vector}
}

func (g GenreMode) String() string {
	if name, ok := genreNames[g]; ok {
		return name
	}
	return fmt.Sprintf("genre(%d)", int(g))
}

// Label is the human readable name shown in menus
func (g GenreMode) Label() string {
	return genreLabels[g]
}

func (g GenreMode) MarshalText() ([]byte, error) {
	if _, ok := genreNames[g]; !ok {
		return nil, fmt.Errorf("unknown genre mode %d", int(g))
	}
	return []byte(g.String()), nil
}

func (g *GenreMode) UnmarshalText(b []byte) error {
	mode, err := ParseGenreMode(string(b))
	if err != nil {
		return err
	}
	*g = mode
	return nil
}

// ParseGenreMode accepts the short mode name, case-insensitive
func ParseGenreMode(s string) (GenreMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for mode, name := range genreNames {
		if name == s {
			return mode, nil
		}
	}
	return Info, fmt.Errorf("unknown genre mode %q (want one of %s)", s, strings.Join(modeNames(), ", "))
}

func modeNames() []string {
	var names []string
	for _, m := range Modes() {
		names = append(names, m.String())
	}
	return names
}

// AspectRatio is the frame layout of generated images and videos
type AspectRatio string

const (
	Wide     AspectRatio = "16:9"
	Vertical AspectRatio = "9:16"
)

// ParseAspectRatio accepts "16:9"/"wide" and "9:16"/"vertical"
func ParseAspectRatio(s string) (AspectRatio, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "16:9", "wide", "landscape", "":
		return Wide, nil
	case "9:16", "vertical", "portrait", "shorts":
		return Vertical, nil
	default:
		return "", fmt.Errorf("unknown aspect ratio %q", s)
	}
}

func (a AspectRatio) IsVertical() bool {
	return a == Vertical
}

// Size returns the pixel size requested from backends that take explicit
// dimensions
func (a AspectRatio) Size() (width, height int) {
	if a.IsVertical() {
		return 1080, 1920
	}
	return 1920, 1080
}

// Language is the language of any text drawn inside an image
type Language string

const (
	Korean   Language = "Korean"
	English  Language = "English"
	Japanese Language = "Japanese"
)

// ParseLanguage normalises the three known languages and passes anything
// else through unchanged
func ParseLanguage(s string) Language {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "korean", "ko", "ko-kr":
		return Korean
	case "english", "en", "en-us":
		return English
	case "japanese", "ja", "ja-jp":
		return Japanese
	default:
		return Language(s)
	}
}

// Guide tells the image model which script to render on-screen text in, with
// a transliteration example
func (l Language) Guide() (guide, example string) {
	switch l {
	case Korean:
		return "Any on-screen text must be written in Korean (Hangul) only.", "(e.g. 'New York' -> '뉴욕', 'Tokyo' -> '도쿄')"
	case English:
		return "Any on-screen text must be written in English only.", "(e.g. '서울' -> 'Seoul', '독도' -> 'Dokdo')"
	case Japanese:
		return "Any on-screen text must be written in Japanese only.", "(e.g. '서울' -> 'ソウル', 'New York' -> 'ニューヨーク')"
	default:
		return fmt.Sprintf("Any on-screen text must be written in %s only.", string(l)), ""
	}
}

// Directives is the style configuration shared by every scene of a run
type Directives struct {
	Genre       GenreMode   `json:"genre" yaml:"genre"`
	Language    Language    `json:"language" yaml:"language"`
	Aspect      AspectRatio `json:"aspect" yaml:"aspect"`
	Instruction string      `json:"instruction" yaml:"instruction"`
	Character   string      `json:"character,omitempty" yaml:"character"`
	Title       string      `json:"title,omitempty" yaml:"title"`
}

// DefaultInstruction is the house drawing style
const DefaultInstruction = `Draw a round-faced white 2D stickman acting out the line, like a clear explanatory slide, as one single scene rather than a split screen.
Keep it uncluttered: at most two or three key words of on-screen text, blended naturally into the background and objects. No subtitle-style captions.
Render the whole background in detailed, immersive 2D with varied places and situations. Always a 2D stickman.`

// Defaults returns the directives used when nothing is configured
func Defaults() Directives {
	return Directives{
		Genre:       Info,
		Language:    Korean,
		Aspect:      Wide,
		Instruction: DefaultInstruction,
	}
}
