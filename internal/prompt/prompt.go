// Package prompt renders the image-generation instruction for a diorama scene.
package prompt

import (
	"strconv"
	"strings"
	"time"
)

// DateLayout renders dates as "October 14, 2026".
const DateLayout = "January 02, 2006"

// Build renders the scene prompt. The wording is part of the product and must
// stay byte-stable for identical inputs.
func Build(location, weather string, temperatureC float64, today time.Time) string {
	var sb strings.Builder
	sb.WriteString("Present a clear, 45° top-down isometric miniature 3D cartoon scene of ")
	sb.WriteString(location)
	sb.WriteString(", featuring its most iconic landmarks and architectural elements. ")
	sb.WriteString("Use soft, refined textures with realistic PBR materials and gentle, lifelike lighting and shadows. ")
	sb.WriteString("Integrate ")
	sb.WriteString(weather)
	sb.WriteString(" weather directly into the city environment to create an immersive atmospheric mood. ")
	sb.WriteString("Use a clean, minimalistic composition with a soft, solid-colored background. ")
	sb.WriteString(`At the top-center, place the title "`)
	sb.WriteString(location)
	sb.WriteString(`" in large bold text, a prominent weather icon beneath it, then the date (`)
	sb.WriteString(today.Format(DateLayout))
	sb.WriteString(") (small text) and temperature (")
	sb.WriteString(FormatTemperature(temperatureC))
	sb.WriteString(") (medium text). ")
	sb.WriteString("All text must be centered with consistent spacing, and may subtly overlap the tops of the buildings. ")
	sb.WriteString("Square 1000x1000 dimension")
	return sb.String()
}

// FormatTemperature renders the shortest decimal form followed by °C, e.g. "20°C".
func FormatTemperature(c float64) string {
	return strconv.FormatFloat(c, 'f', -1, 64) + "°C"
}
