package weather

import (
	"strconv"
	"time"
)

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionClear        Condition = "clear"
	ConditionPartlyCloudy Condition = "partly_cloudy"
	ConditionCloudy       Condition = "cloudy"
	ConditionDrizzle      Condition = "drizzle"
	ConditionHeavyRain    Condition = "heavy_rain"
	ConditionThunderstorm Condition = "thunderstorm"
	ConditionSnow         Condition = "snow"
	ConditionFog          Condition = "fog"
	ConditionUnknown      Condition = "unknown"
)

// Conditions lists every condition variant in display order.
var Conditions = []Condition{
	ConditionClear,
	ConditionPartlyCloudy,
	ConditionCloudy,
	ConditionDrizzle,
	ConditionHeavyRain,
	ConditionThunderstorm,
	ConditionSnow,
	ConditionFog,
	ConditionUnknown,
}

// UnmarshalText maps unrecognised values to ConditionUnknown so that older or
// newer persisted snapshots still decode.
func (c *Condition) UnmarshalText(text []byte) error {
	v := Condition(text)
	for _, known := range Conditions {
		if v == known {
			*c = v
			return nil
		}
	}
	*c = ConditionUnknown
	return nil
}

// Coordinates is a latitude/longitude pair in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Query formats the coordinates the way weather providers accept them: "lat,lon".
func (c Coordinates) Query() string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lon, 'f', -1, 64)
}

// Snapshot is one fully-formed weather result for a location at a point in time.
// A snapshot is never mutated; the next successful fetch supersedes it.
type Snapshot struct {
	Location    string    `json:"location"`
	Country     string    `json:"country"`
	Temperature float64   `json:"temperature"`
	Condition   Condition `json:"condition"`
	Humidity    int       `json:"humidity"`
	WindSpeed   float64   `json:"windSpeed"`
	FeelsLike   float64   `json:"feelsLike"`
	Timestamp   time.Time `json:"timestamp"` // always UTC

	// Hourly holds at most 12 same-day points starting at the fetch hour.
	Hourly []HourlyPoint `json:"hourlyForecast"`
	Daily  []ForecastDay `json:"forecast"`
}

// Age reports how old the snapshot is relative to now.
func (s Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.Timestamp)
}

// HourlyPoint is a single hour of the same-day forecast.
type HourlyPoint struct {
	Time         string    `json:"time"` // "HH:mm"
	TimeEpoch    int64     `json:"timeEpoch"`
	Temperature  float64   `json:"temperature"`
	Condition    Condition `json:"condition"`
	ChanceOfRain int       `json:"chanceOfRain"`
	WindSpeed    float64   `json:"windSpeed"`
}

// ForecastDay is one entry of the multi-day forecast.
type ForecastDay struct {
	Date         string    `json:"date"`
	DateEpoch    int64     `json:"dateEpoch"`
	MaxTemp      float64   `json:"maxTemp"`
	MinTemp      float64   `json:"minTemp"`
	Condition    Condition `json:"condition"`
	ChanceOfRain int       `json:"chanceOfRain"`
}

// Preferences is the durable user state shared by the screen and the widget.
type Preferences struct {
	// Snapshot is the serialized last successful snapshot, empty when none.
	Snapshot        string
	LocationBased   bool
	LastQuery       string
	LastCoordinates *Coordinates
}

// DefaultPreferences is the record a fresh install starts with.
func DefaultPreferences() Preferences {
	return Preferences{LocationBased: true}
}
