package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/i474232898/tabilog/internal/weather"
)

const (
	DefaultGeocodingURL = "https://geocoding-api.open-meteo.com/v1/search"
	DefaultForecastURL  = "https://api.open-meteo.com/v1/forecast"
	DefaultArchiveURL   = "https://archive-api.open-meteo.com/v1/archive"

	dailyVariables  = "weather_code,temperature_2m_max,temperature_2m_min"
	hourlyVariables = "temperature_2m,weather_code"
)

// OpenMeteoConfig holds endpoint and retry settings for OpenMeteo.
type OpenMeteoConfig struct {
	GeocodingURL string
	ForecastURL  string
	ArchiveURL   string
	// Language is the geocoding language hint, e.g. "zh" or "en".
	Language   string
	MaxRetries int
}

// OpenMeteo implements weather.Geocoder and weather.Provider for the
// Open-Meteo geocoding, forecast and archive APIs.
type OpenMeteo struct {
	geocodingURL string
	forecastURL  string
	archiveURL   string
	language     string

	geocoding *endpointClient
	forecast  *endpointClient
	archive   *endpointClient
}

func NewOpenMeteo(client *http.Client, cfg OpenMeteoConfig) *OpenMeteo {
	if cfg.GeocodingURL == "" {
		cfg.GeocodingURL = DefaultGeocodingURL
	}
	if cfg.ForecastURL == "" {
		cfg.ForecastURL = DefaultForecastURL
	}
	if cfg.ArchiveURL == "" {
		cfg.ArchiveURL = DefaultArchiveURL
	}

	backoff := BackoffConfig{
		MaxRetries:      cfg.MaxRetries,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
	}
	return &OpenMeteo{
		geocodingURL: cfg.GeocodingURL,
		forecastURL:  cfg.ForecastURL,
		archiveURL:   cfg.ArchiveURL,
		language:     cfg.Language,
		geocoding:    newEndpointClient("openmeteo-geocoding", client, backoff),
		forecast:     newEndpointClient("openmeteo-forecast", client, backoff),
		archive:      newEndpointClient("openmeteo-archive", client, backoff),
	}
}

// Geocode returns the coordinates of the first place matching name.
func (p *OpenMeteo) Geocode(ctx context.Context, name string) (weather.Coordinates, error) {
	values := url.Values{}
	values.Set("name", name)
	values.Set("count", "1")
	values.Set("format", "json")
	if p.language != "" {
		values.Set("language", p.language)
	}

	var payload struct {
		Results []struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"results"`
	}
	if err := p.getJSON(ctx, p.geocoding, p.geocodingURL, values, &payload); err != nil {
		return weather.Coordinates{}, err
	}
	if len(payload.Results) == 0 {
		return weather.Coordinates{}, fmt.Errorf("%w: %q", weather.ErrGeocodingMiss, name)
	}

	r := payload.Results[0]
	return weather.Coordinates{Latitude: r.Latitude, Longitude: r.Longitude}, nil
}

// Daily fetches the daily range block for a single date.
func (p *OpenMeteo) Daily(ctx context.Context, src weather.Source, at weather.Coordinates, date string) (weather.DailySeries, error) {
	values := p.dayQuery(at, date)
	values.Set("daily", dailyVariables)

	var payload struct {
		Daily *struct {
			Time        []string   `json:"time"`
			WeatherCode []*int     `json:"weather_code"`
			TempMax     []*float64 `json:"temperature_2m_max"`
			TempMin     []*float64 `json:"temperature_2m_min"`
		} `json:"daily"`
	}
	ec, baseURL := p.endpoint(src)
	if err := p.getJSON(ctx, ec, baseURL, values, &payload); err != nil {
		return weather.DailySeries{}, err
	}
	if payload.Daily == nil {
		return weather.DailySeries{}, fmt.Errorf("%w: missing daily block", weather.ErrMalformedResponse)
	}

	return weather.DailySeries{
		Time:        payload.Daily.Time,
		WeatherCode: payload.Daily.WeatherCode,
		TempMax:     payload.Daily.TempMax,
		TempMin:     payload.Daily.TempMin,
	}, nil
}

// Hourly fetches the 24-slot hourly block of a single local day.
func (p *OpenMeteo) Hourly(ctx context.Context, src weather.Source, at weather.Coordinates, date string) (weather.HourlySeries, error) {
	values := p.dayQuery(at, date)
	values.Set("hourly", hourlyVariables)

	var payload struct {
		Hourly *struct {
			Time        []string   `json:"time"`
			Temperature []*float64 `json:"temperature_2m"`
			WeatherCode []*int     `json:"weather_code"`
		} `json:"hourly"`
	}
	ec, baseURL := p.endpoint(src)
	if err := p.getJSON(ctx, ec, baseURL, values, &payload); err != nil {
		return weather.HourlySeries{}, err
	}
	if payload.Hourly == nil || len(payload.Hourly.Time) == 0 {
		return weather.HourlySeries{}, fmt.Errorf("%w: missing hourly block", weather.ErrMalformedResponse)
	}

	return weather.HourlySeries{
		Time:        payload.Hourly.Time,
		Temperature: payload.Hourly.Temperature,
		WeatherCode: payload.Hourly.WeatherCode,
	}, nil
}

func (p *OpenMeteo) endpoint(src weather.Source) (*endpointClient, string) {
	if src == weather.SourceArchive {
		return p.archive, p.archiveURL
	}
	return p.forecast, p.forecastURL
}

func (p *OpenMeteo) dayQuery(at weather.Coordinates, date string) url.Values {
	values := url.Values{}
	values.Set("latitude", fmt.Sprintf("%f", at.Latitude))
	values.Set("longitude", fmt.Sprintf("%f", at.Longitude))
	// timezone=auto makes the hourly block start at local midnight.
	values.Set("timezone", "auto")
	values.Set("start_date", date)
	values.Set("end_date", date)
	return values
}

func (p *OpenMeteo) getJSON(ctx context.Context, ec *endpointClient, baseURL string, values url.Values, out any) error {
	resp, err := ec.get(ctx, baseURL+"?"+values.Encode())
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", weather.ErrMalformedResponse, err)
	}
	return nil
}
