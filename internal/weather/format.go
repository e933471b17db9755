package weather

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatReport renders the multi-line report used by the weather report runner.
func FormatReport(d Data) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Weather for %s:\n", d.Location)
	b.WriteString("-----------------------------\n")
	writeFields(&b, d)
	return b.String()
}

// FormatChatMessage renders the shorter form posted into a chat transcript.
func FormatChatMessage(d Data) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Weather for %s:\n", d.Location)
	writeFields(&b, d)
	return strings.TrimRight(b.String(), "\n")
}

func writeFields(b *strings.Builder, d Data) {
	fmt.Fprintf(b, "Temperature: %s°C\n", formatNumber(d.Temperature))
	fmt.Fprintf(b, "Condition: %s\n", d.Condition)
	fmt.Fprintf(b, "Humidity: %d%%\n", d.Humidity)
	fmt.Fprintf(b, "Wind Speed: %s km/h\n", formatNumber(d.WindSpeed))
}

// formatNumber drops a trailing ".0", so 22 prints as "22" and 18.5 as "18.5".
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
