package prompt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var fixedDay = time.Date(2026, time.March, 7, 15, 4, 5, 0, time.UTC)

func TestBuild_Deterministic(t *testing.T) {
	a := Build("Kyoto", "light rain", 12.5, fixedDay)
	b := Build("Kyoto", "light rain", 12.5, fixedDay)
	assert.Equal(t, a, b)
}

func TestBuild_ContainsInputs(t *testing.T) {
	tests := []struct {
		location string
		weather  string
		temp     float64
		wantTemp string
	}{
		{"Test City", "clear sky", 20, "20°C"},
		{"Reykjavík", "snow", -3.5, "-3.5°C"},
		{"Cairo", "sunny", 41, "41°C"},
	}
	for _, tt := range tests {
		t.Run(tt.location, func(t *testing.T) {
			p := Build(tt.location, tt.weather, tt.temp, fixedDay)
			assert.Contains(t, p, tt.location)
			assert.Contains(t, p, `title "`+tt.location+`"`)
			assert.Contains(t, p, "Integrate "+tt.weather+" weather")
			assert.Contains(t, p, "temperature ("+tt.wantTemp+")")
			assert.Contains(t, p, "1000x1000")
			assert.Contains(t, p, "the date (March 07, 2026)")
		})
	}
}

func TestBuild_ExactWording(t *testing.T) {
	want := `Present a clear, 45° top-down isometric miniature 3D cartoon scene of Oslo, featuring its most iconic landmarks and architectural elements. ` +
		`Use soft, refined textures with realistic PBR materials and gentle, lifelike lighting and shadows. ` +
		`Integrate fog weather directly into the city environment to create an immersive atmospheric mood. ` +
		`Use a clean, minimalistic composition with a soft, solid-colored background. ` +
		`At the top-center, place the title "Oslo" in large bold text, a prominent weather icon beneath it, then the date (March 07, 2026) (small text) and temperature (4°C) (medium text). ` +
		`All text must be centered with consistent spacing, and may subtly overlap the tops of the buildings. ` +
		`Square 1000x1000 dimension`
	assert.Equal(t, want, Build("Oslo", "fog", 4, fixedDay))
}

func TestBuild_DateIgnoresTimeOfDay(t *testing.T) {
	morning := time.Date(2026, time.March, 7, 0, 0, 1, 0, time.UTC)
	assert.Equal(t, Build("Rome", "haze", 18, morning), Build("Rome", "haze", 18, fixedDay))
}

func TestFormatTemperature(t *testing.T) {
	assert.Equal(t, "0°C", FormatTemperature(0))
	assert.Equal(t, "25.25°C", FormatTemperature(25.25))
	assert.Equal(t, "-100°C", FormatTemperature(-100))
	// the parsed value is rendered, not the client's literal
	assert.Equal(t, "20°C", FormatTemperature(20.0))
	assert.Equal(t, "25.5°C", FormatTemperature(25.50))
}
