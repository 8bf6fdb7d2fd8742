// Package weather provides a toolx.Toolx backed by the Open-Meteo API.
// Open-Meteo needs no API key, which makes it a good default tool for
// exercising the tool-call round trip end to end.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/parleyhq/parley/pkg/ai/llm"
)

const (
	geocodingURL = "https://geocoding-api.open-meteo.com/v1/search"
	forecastURL  = "https://api.open-meteo.com/v1/forecast"
)

// Tool resolves a city name to coordinates and reports current conditions.
type Tool struct {
	httpClient *http.Client
}

// Option configures the weather tool
type Option func(*Tool)

// WithHTTPClient overrides the HTTP client used for API calls
func WithHTTPClient(client *http.Client) Option {
	return func(t *Tool) {
		t.httpClient = client
	}
}

// New creates a weather tool
func New(opts ...Option) *Tool {
	t := &Tool{
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

func (t *Tool) Name() string { return "get_weather" }

func (t *Tool) GetTool() llm.Tool {
	return llm.Tool{
		Type: "function",
		Function: llm.Function{
			Name:        "get_weather",
			Description: "Gets the current weather for a city. Input: JSON with a 'city' field.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"city": map[string]any{
						"type":        "string",
						"description": "City name, e.g. 'Lima' or 'San Francisco'",
					},
				},
				"required": []string{"city"},
			},
		},
	}
}

type toolInput struct {
	City string `json:"city"`
}

// Report is what the tool returns to the model, serialized as JSON
type Report struct {
	City          string  `json:"city"`
	Country       string  `json:"country,omitempty"`
	TemperatureC  float64 `json:"temperature_c"`
	WindSpeedKmh  float64 `json:"wind_speed_kmh"`
	WeatherCode   int     `json:"weather_code"`
	Conditions    string  `json:"conditions"`
	ObservationAt string  `json:"observation_at"`
}

func (t *Tool) Call(ctx context.Context, input string) (any, error) {
	var in toolInput
	if err := json.Unmarshal([]byte(input), &in); err != nil {
		return nil, errorRegistry.NewWithCause(ErrInvalidInput, err)
	}
	if in.City == "" {
		return nil, errorRegistry.NewWithMessage(ErrInvalidInput, "city is required")
	}

	loc, err := t.geocode(ctx, in.City)
	if err != nil {
		return nil, err
	}

	return t.currentWeather(ctx, loc)
}

type location struct {
	Name      string
	Country   string
	Latitude  float64
	Longitude float64
}

func (t *Tool) geocode(ctx context.Context, city string) (location, error) {
	params := url.Values{}
	params.Set("name", city)
	params.Set("count", "1")

	var payload struct {
		Results []struct {
			Name      string  `json:"name"`
			Country   string  `json:"country"`
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"results"`
	}

	if err := t.getJSON(ctx, geocodingURL+"?"+params.Encode(), &payload); err != nil {
		return location{}, err
	}

	if len(payload.Results) == 0 {
		return location{}, errorRegistry.New(ErrLocationNotFound).
			WithDetail("city", city)
	}

	r := payload.Results[0]
	return location{
		Name:      r.Name,
		Country:   r.Country,
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
	}, nil
}

func (t *Tool) currentWeather(ctx context.Context, loc location) (Report, error) {
	params := url.Values{}
	params.Set("latitude", fmt.Sprintf("%.4f", loc.Latitude))
	params.Set("longitude", fmt.Sprintf("%.4f", loc.Longitude))
	params.Set("current_weather", "true")

	var payload struct {
		CurrentWeather struct {
			Temperature float64 `json:"temperature"`
			WindSpeed   float64 `json:"windspeed"`
			WeatherCode int     `json:"weathercode"`
			Time        string  `json:"time"`
		} `json:"current_weather"`
	}

	if err := t.getJSON(ctx, forecastURL+"?"+params.Encode(), &payload); err != nil {
		return Report{}, err
	}

	cw := payload.CurrentWeather
	return Report{
		City:          loc.Name,
		Country:       loc.Country,
		TemperatureC:  cw.Temperature,
		WindSpeedKmh:  cw.WindSpeed,
		WeatherCode:   cw.WeatherCode,
		Conditions:    describeWeatherCode(cw.WeatherCode),
		ObservationAt: cw.Time,
	}, nil
}

func (t *Tool) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return errorRegistry.NewWithCause(ErrAPIRequest, err)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return errorRegistry.NewWithCause(ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errorRegistry.New(ErrAPIResponse).
			WithDetail("status", resp.StatusCode).
			WithDetail("url", rawURL)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errorRegistry.NewWithCause(ErrAPIResponse, err)
	}

	return nil
}

// describeWeatherCode maps WMO weather interpretation codes to short text
func describeWeatherCode(code int) string {
	switch {
	case code == 0:
		return "clear sky"
	case code <= 3:
		return "partly cloudy"
	case code <= 48:
		return "fog"
	case code <= 57:
		return "drizzle"
	case code <= 67:
		return "rain"
	case code <= 77:
		return "snow"
	case code <= 82:
		return "rain showers"
	case code <= 86:
		return "snow showers"
	default:
		return "thunderstorm"
	}
}
