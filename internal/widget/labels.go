package widget

import "github.com/i474232898/weather-refresh/internal/weather"

type appearance struct {
	Label string
	Icon  string
}

var appearances = map[weather.Condition]appearance{
	weather.ConditionClear:        {"Clear", "sun"},
	weather.ConditionPartlyCloudy: {"Partly cloudy", "cloud-sun"},
	weather.ConditionCloudy:       {"Cloudy", "cloud"},
	weather.ConditionDrizzle:      {"Drizzle", "cloud-drizzle"},
	weather.ConditionHeavyRain:    {"Heavy rain", "cloud-rain"},
	weather.ConditionThunderstorm: {"Thunderstorm", "cloud-lightning"},
	weather.ConditionSnow:         {"Snow", "snowflake"},
	weather.ConditionFog:          {"Fog", "cloud-fog"},
	weather.ConditionUnknown:      {"Unknown", "cloud"},
}

// Appearance returns the display label and icon name for c.
func Appearance(c weather.Condition) (label, icon string) {
	a, ok := appearances[c]
	if !ok {
		a = appearances[weather.ConditionUnknown]
	}
	return a.Label, a.Icon
}
