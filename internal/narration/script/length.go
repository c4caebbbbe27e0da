package script

import (
	"fmt"
	"strings"
)

// Length is how much text a section should have
type Length int

const (
	Fixed  Length = iota // intro and epilogue
	Short                // about 1,000 characters
	Medium               // about 1,500 characters
	Long                 // 2,000 characters or more
)

var lengthNames = map[Length]string{
	Fixed:  "fixed",
	Short:  "short",
	Medium: "medium",
	Long:   "long",
}

func (l Length) String() string {
	return lengthNames[l]
}

// ParseLength accepts the names above and the minute shorthands 2m, 3m, 4m
func ParseLength(s string) (Length, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fixed":
		return Fixed, nil
	case "short", "2m", "2min", "15m":
		return Short, nil
	case "medium", "3m", "3min", "20m", "":
		return Medium, nil
	case "long", "4m", "4min", "25m":
		return Long, nil
	}
	return Medium, fmt.Errorf("unknown section length %q", s)
}

// target returns the length goal and writing guidance for the prompt
func (l Length) target() (chars, guidance string) {
	switch l {
	case Short:
		return "about 1,000 characters including spaces",
			"Deliver the key points clearly without being too brief."
	case Medium:
		return "about 1,500 characters including spaces",
			"Explain in detail with enough examples."
	case Long:
		return "2,000 characters or more including spaces",
			"Describe in depth and detail as if under a microscope. Never summarise."
	default:
		return "about 400 words (about 1,400 characters)",
			"Open with a strong hook and close with a lingering ending. No greetings."
	}
}
