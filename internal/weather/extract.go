package weather

import (
	"regexp"
	"strings"
)

var locationPattern = regexp.MustCompile(`(?i)weather\s+(?:in|for|at)?\s+([a-zA-Z\s]+)`)

// ExtractLocation pulls the place name out of phrases like "weather in Paris".
// The capture runs over letters and spaces only, so "weather in New York?"
// yields "New York".
func ExtractLocation(text string) (string, bool) {
	m := locationPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	loc := strings.TrimSpace(m[1])
	if loc == "" {
		return "", false
	}
	return loc, true
}

// LocationOrDefault is ExtractLocation with DefaultLocation as fallback.
func LocationOrDefault(text string) string {
	if loc, ok := ExtractLocation(text); ok {
		return loc
	}
	return DefaultLocation
}

// MentionsWeather reports whether text contains "weather" in any case.
func MentionsWeather(text string) bool {
	return strings.Contains(strings.ToLower(text), "weather")
}
