package entities

import "fmt"

// ColorIndicator is the agent-facing highlight on an appointment card
type ColorIndicator string

const (
	ColorNone   ColorIndicator = "none"
	ColorYellow ColorIndicator = "yellow"
	ColorGreen  ColorIndicator = "green"
	ColorRed    ColorIndicator = "red"
)

var colorCycle = []ColorIndicator{ColorNone, ColorYellow, ColorGreen, ColorRed}

// ParseColorIndicator validates s. Empty is treated as none.
func ParseColorIndicator(s string) (ColorIndicator, error) {
	if s == "" {
		return ColorNone, nil
	}
	for _, c := range colorCycle {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("invalid color indicator %q", s)
}

// Next returns the color after c in the none, yellow, green, red cycle.
// Unknown values restart the cycle at yellow as if they were none.
func (c ColorIndicator) Next() ColorIndicator {
	for i, v := range colorCycle {
		if v == c {
			return colorCycle[(i+1)%len(colorCycle)]
		}
	}
	return ColorYellow
}

// IsValid reports whether c is one of the four known colors
func (c ColorIndicator) IsValid() bool {
	_, err := ParseColorIndicator(string(c))
	return err == nil && c != ""
}
