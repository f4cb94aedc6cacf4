package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Placeholder is shown for any value the observation does not carry.
const Placeholder = "--"

// measurement is an NWS quantitative value; Value is nil when the station
// did not report it.
type measurement struct {
	Value *float64 `json:"value"`
}

// Observation is the latest station observation, in the API's metric units.
type Observation struct {
	TemperatureC  *float64
	DewpointC     *float64
	WindSpeedKmh  *float64
	WindGustKmh   *float64
	WindDirection *float64
	HumidityPct   *float64
	VisibilityM   *float64
	PressurePa    *float64
	Description   string
	Timestamp     string
}

// FetchObservation retrieves the latest observation for station.
func (c *Client) FetchObservation(ctx context.Context, apiBase, station string) (*Observation, error) {
	url := fmt.Sprintf("%s/stations/%s/observations/latest", strings.TrimRight(apiBase, "/"), station)
	body, err := c.get(ctx, url, "application/geo+json")
	if err != nil {
		return nil, err
	}
	return ParseObservation(body)
}

// ParseObservation decodes an observation body. Missing fields stay nil.
func ParseObservation(body []byte) (*Observation, error) {
	var apiResp struct {
		Properties struct {
			Temperature        measurement `json:"temperature"`
			Dewpoint           measurement `json:"dewpoint"`
			WindSpeed          measurement `json:"windSpeed"`
			WindGust           measurement `json:"windGust"`
			WindDirection      measurement `json:"windDirection"`
			RelativeHumidity   measurement `json:"relativeHumidity"`
			Visibility         measurement `json:"visibility"`
			BarometricPressure measurement `json:"barometricPressure"`
			TextDescription    string      `json:"textDescription"`
			Timestamp          string      `json:"timestamp"`
		} `json:"properties"`
	}
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse observation JSON: %w", err)
	}
	p := apiResp.Properties
	return &Observation{
		TemperatureC:  p.Temperature.Value,
		DewpointC:     p.Dewpoint.Value,
		WindSpeedKmh:  p.WindSpeed.Value,
		WindGustKmh:   p.WindGust.Value,
		WindDirection: p.WindDirection.Value,
		HumidityPct:   p.RelativeHumidity.Value,
		VisibilityM:   p.Visibility.Value,
		PressurePa:    p.BarometricPressure.Value,
		Description:   p.TextDescription,
		Timestamp:     p.Timestamp,
	}, nil
}

// Conditions is the weather panel as display strings.
type Conditions struct {
	Temperature   string `json:"temperature"`
	Conditions    string `json:"conditions"`
	Wind          string `json:"wind"`
	Gusts         string `json:"gusts"`
	Humidity      string `json:"humidity"`
	Visibility    string `json:"visibility"`
	Pressure      string `json:"pressure"`
	WindDirection string `json:"windDirection"`
	Dewpoint      string `json:"dewpoint"`
	DewpointClass string `json:"dewpointClass"`
	DewDepression string `json:"dewDepression"`
	FeelsLike     string `json:"feelsLike"`
	LastUpdate    string `json:"lastUpdate"`
	OutlookURL    string `json:"outlookUrl"`
	RadarURL      string `json:"radarUrl"`
	Error         string `json:"error,omitempty"`
}

// ErrorConditions is what the panel shows after a failed fetch.
func ErrorConditions(err error) Conditions {
	c := emptyConditions()
	c.Conditions = "Error"
	if err != nil {
		c.Error = err.Error()
	}
	return c
}

func emptyConditions() Conditions {
	return Conditions{
		Temperature:   Placeholder,
		Conditions:    "Unknown",
		Wind:          Placeholder + " mph",
		Gusts:         "None",
		Humidity:      Placeholder + "%",
		Visibility:    Placeholder + " mi",
		Pressure:      Placeholder + `"`,
		WindDirection: Placeholder,
		Dewpoint:      Placeholder + "°F",
		DewDepression: Placeholder,
	}
}

// Display converts the observation to imperial display strings. radarSite
// selects the NWS radar loop; loc is the dashboard's time zone.
func (o *Observation) Display(now time.Time, loc *time.Location, radarSite string) Conditions {
	c := emptyConditions()
	if o.Description != "" {
		c.Conditions = o.Description
	}

	tempF, hasTemp := convert(o.TemperatureC, celsiusToF)
	dewF, hasDew := convert(o.DewpointC, celsiusToF)
	windMph, hasWind := convert(o.WindSpeedKmh, kmhToMph)
	gustMph, hasGust := convert(o.WindGustKmh, kmhToMph)
	hum, hasHum := convert(o.HumidityPct, jsRound)

	if hasTemp {
		c.Temperature = itoa(tempF)
	}
	if hasWind {
		c.Wind = itoa(windMph) + " mph"
	}
	if hasGust {
		c.Gusts = itoa(gustMph) + " mph"
	}
	if hasHum {
		c.Humidity = itoa(hum) + "%"
	}
	if o.VisibilityM != nil {
		vis := jsRound(*o.VisibilityM/1609.34*10) / 10
		c.Visibility = strconv.FormatFloat(vis, 'f', -1, 64) + " mi"
	}
	if o.PressurePa != nil {
		c.Pressure = fmt.Sprintf(`%.2f"`, *o.PressurePa/3386.39)
	}
	c.WindDirection = CompassDirection(o.WindDirection)
	if hasDew {
		c.Dewpoint = itoa(dewF) + "°F"
		c.DewpointClass = DewpointClass(dewF)
	}
	if hasTemp && hasDew {
		c.DewDepression = itoa(tempF-dewF) + "°F"
	}
	if hasTemp && hasHum {
		hi, okHI := HeatIndex(tempF, hum)
		wc, okWC := 0.0, false
		if hasWind {
			wc, okWC = WindChill(tempF, windMph)
		}
		switch {
		case okHI && hi != tempF:
			c.FeelsLike = fmt.Sprintf("Heat Index: %s°F", itoa(hi))
		case okWC && wc != tempF:
			c.FeelsLike = fmt.Sprintf("Wind Chill: %s°F", itoa(wc))
		}
	}

	if loc == nil {
		loc = time.UTC
	}
	c.LastUpdate = "Last: " + now.In(loc).Format("3:04 PM")
	ts := now.UnixMilli()
	c.OutlookURL = fmt.Sprintf("https://www.spc.noaa.gov/products/outlook/day1otlk.gif?t=%d", ts)
	c.RadarURL = fmt.Sprintf("https://radar.weather.gov/ridge/standard/%s_0.gif?t=%d", radarSite, ts)
	return c
}

// jsRound rounds half up, matching the dashboard's browser arithmetic
// (math.Round rounds -2.5 to -3; this gives -2).
func jsRound(v float64) float64 {
	return math.Floor(v + 0.5)
}

func celsiusToF(c float64) float64 { return jsRound(c*9/5 + 32) }
func kmhToMph(k float64) float64   { return jsRound(k * 0.621371) }

func convert(v *float64, f func(float64) float64) (float64, bool) {
	if v == nil {
		return 0, false
	}
	return f(*v), true
}

func itoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

var compassPoints = []string{"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE", "S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW"}

// CompassDirection converts degrees to a 16-point compass label.
func CompassDirection(deg *float64) string {
	if deg == nil {
		return Placeholder
	}
	i := int(jsRound(*deg/22.5)) % 16
	if i < 0 {
		i += 16
	}
	return compassPoints[i]
}

// DewpointClass buckets a dew point (°F) by how it feels.
func DewpointClass(dewF float64) string {
	switch {
	case dewF < 55:
		return "dewpoint-comfortable"
	case dewF < 65:
		return "dewpoint-sticky"
	case dewF < 70:
		return "dewpoint-oppressive"
	default:
		return "dewpoint-miserable"
	}
}

// HeatIndex applies the Rothfusz regression; it only applies from 80°F.
func HeatIndex(t, rh float64) (float64, bool) {
	if t < 80 {
		return 0, false
	}
	hi := -42.379 + 2.04901523*t + 10.14333127*rh - 0.22475541*t*rh -
		0.00683783*t*t - 0.05481717*rh*rh + 0.00122874*t*t*rh +
		0.00085282*t*rh*rh - 0.00000199*t*t*rh*rh
	return jsRound(hi), true
}

// WindChill applies the NWS formula; it only applies at or below 50°F with
// at least 3 mph of wind.
func WindChill(t, w float64) (float64, bool) {
	if t > 50 || w < 3 {
		return 0, false
	}
	p := math.Pow(w, 0.16)
	return jsRound(35.74 + 0.6215*t - 35.75*p + 0.4275*t*p), true
}
