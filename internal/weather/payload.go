package weather

// ForecastPayload is the raw forecast a Source returns. Its shape and JSON tags
// follow WeatherAPI.com's forecast.json; other providers translate into it.
type ForecastPayload struct {
	Location PayloadLocation `json:"location"`
	Current  PayloadCurrent  `json:"current"`
	Forecast struct {
		Days []PayloadDay `json:"forecastday"`
	} `json:"forecast"`
}

type PayloadLocation struct {
	Name    string `json:"name"`
	Country string `json:"country"`
	TzID    string `json:"tz_id"`
}

type PayloadCondition struct {
	Text string `json:"text"`
	Icon string `json:"icon"`
	Code int    `json:"code"`
}

type PayloadCurrent struct {
	TempC      float64          `json:"temp_c"`
	FeelsLikeC float64          `json:"feelslike_c"`
	Humidity   int              `json:"humidity"`
	WindKph    float64          `json:"wind_kph"`
	Condition  PayloadCondition `json:"condition"`
}

type PayloadDay struct {
	Date      string `json:"date"`
	DateEpoch int64  `json:"date_epoch"`
	Day       struct {
		MaxTempC     float64          `json:"maxtemp_c"`
		MinTempC     float64          `json:"mintemp_c"`
		ChanceOfRain int              `json:"daily_chance_of_rain"`
		Condition    PayloadCondition `json:"condition"`
	} `json:"day"`
	Hours []PayloadHour `json:"hour"`
}

type PayloadHour struct {
	Time         string           `json:"time"` // "2006-01-02 15:04"
	TimeEpoch    int64            `json:"time_epoch"`
	TempC        float64          `json:"temp_c"`
	WindKph      float64          `json:"wind_kph"`
	ChanceOfRain int              `json:"chance_of_rain"`
	Condition    PayloadCondition `json:"condition"`
}
