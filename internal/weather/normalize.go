package weather

import (
	"strconv"
	"strings"
	"time"
)

const (
	maxHourlyPoints = 12

	payloadHourLayout = "2006-01-02 15:04"
	displayHourLayout = "15:04"
)

// conditionRange maps an inclusive range of provider codes to a condition.
type conditionRange struct {
	from, to  int
	condition Condition
}

// WeatherAPI.com condition codes, first match wins.
var conditionTable = []conditionRange{
	{1000, 1000, ConditionClear},
	{1006, 1006, ConditionClear},
	{1003, 1003, ConditionPartlyCloudy},
	{1009, 1030, ConditionCloudy},
	{1135, 1135, ConditionFog},
	{1150, 1183, ConditionDrizzle},
	{1186, 1200, ConditionHeavyRain},
	{1213, 1213, ConditionSnow},
	{1219, 1219, ConditionSnow},
	{1279, 1279, ConditionThunderstorm},
	{1282, 1282, ConditionThunderstorm},
}

// ConditionFromCode classifies a provider condition code. Codes outside every
// known range map to ConditionUnknown.
func ConditionFromCode(code int) Condition {
	for _, r := range conditionTable {
		if code >= r.from && code <= r.to {
			return r.condition
		}
	}
	return ConditionUnknown
}

// Normalize converts a raw forecast payload into a Snapshot. The hourly slice is
// taken from the first forecast day, keeping hours at or after now's hour.
func Normalize(p ForecastPayload, now time.Time) Snapshot {
	snap := Snapshot{
		Location:    p.Location.Name,
		Country:     p.Location.Country,
		Temperature: p.Current.TempC,
		Condition:   ConditionFromCode(p.Current.Condition.Code),
		Humidity:    p.Current.Humidity,
		WindSpeed:   p.Current.WindKph,
		FeelsLike:   p.Current.FeelsLikeC,
		Timestamp:   now.UTC(),
		Hourly:      []HourlyPoint{},
		Daily:       make([]ForecastDay, 0, len(p.Forecast.Days)),
	}

	if len(p.Forecast.Days) > 0 {
		snap.Hourly = hourlyFrom(p.Forecast.Days[0].Hours, now.Hour())
	}

	for _, d := range p.Forecast.Days {
		snap.Daily = append(snap.Daily, ForecastDay{
			Date:         d.Date,
			DateEpoch:    d.DateEpoch,
			MaxTemp:      d.Day.MaxTempC,
			MinTemp:      d.Day.MinTempC,
			Condition:    ConditionFromCode(d.Day.Condition.Code),
			ChanceOfRain: d.Day.ChanceOfRain,
		})
	}

	return snap
}

func hourlyFrom(hours []PayloadHour, currentHour int) []HourlyPoint {
	out := make([]HourlyPoint, 0, maxHourlyPoints)
	for _, h := range hours {
		if len(out) == maxHourlyPoints {
			break
		}
		hour, ok := hourOfDay(h.Time)
		if !ok || hour < currentHour {
			continue
		}
		out = append(out, HourlyPoint{
			Time:         FormatHour(h.Time),
			TimeEpoch:    h.TimeEpoch,
			Temperature:  h.TempC,
			Condition:    ConditionFromCode(h.Condition.Code),
			ChanceOfRain: h.ChanceOfRain,
			WindSpeed:    h.WindKph,
		})
	}
	return out
}

// hourOfDay extracts the hour from "2006-01-02 15:04".
func hourOfDay(ts string) (int, bool) {
	_, clock, found := strings.Cut(ts, " ")
	if !found {
		return 0, false
	}
	hh, _, _ := strings.Cut(clock, ":")
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	return h, true
}

// FormatHour renders a provider timestamp as "HH:mm". When the timestamp does
// not parse it falls back to the part after the first space, and failing that
// returns the input unchanged.
func FormatHour(ts string) string {
	if t, err := time.Parse(payloadHourLayout, ts); err == nil {
		return t.Format(displayHourLayout)
	}
	if parts := strings.Split(ts, " "); len(parts) > 1 {
		return parts[1]
	}
	return ts
}
