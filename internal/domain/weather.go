package domain

// WeatherReading is the formatted current-conditions snapshot for one city.
type WeatherReading struct {
	City         string `json:"city"`
	TemperatureC int    `json:"temperature"`
	Description  string `json:"description"`
	Icon         string `json:"icon"`
	Humidity     int    `json:"humidity"`
}

// IconTable maps a provider condition description to a display glyph.
type IconTable map[string]string

// Lookup returns the glyph for description, or "" when it is not mapped.
func (t IconTable) Lookup(description string) string {
	return t[description]
}

// DefaultIcons returns a fresh copy of the built-in icon table.
func DefaultIcons() IconTable {
	return IconTable{
		"clear sky":        "☀️",
		"few clouds":       "🌤️",
		"scattered clouds": "☁️",
		"broken clouds":    "☁️",
		"shower rain":      "🌧️",
		"rain":             "🌧️",
		"thunderstorm":     "⛈️",
		"snow":             "🌨️",
		"mist":             "🌫️",
	}
}
