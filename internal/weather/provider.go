package weather

import (
	"context"
	"errors"
)

var (
	// ErrUnresolvableLocation is returned when a location string holds no searchable place name.
	ErrUnresolvableLocation = errors.New("no resolvable location")
	// ErrGeocodingMiss is returned when the geocoder has no candidate for a place name.
	ErrGeocodingMiss = errors.New("no geocoding match")
	// ErrProviderUnavailable wraps transport failures talking to a provider.
	ErrProviderUnavailable = errors.New("weather provider unavailable")
	// ErrMalformedResponse is returned when a provider answer lacks the expected series.
	ErrMalformedResponse = errors.New("malformed provider response")
)

// Source selects the provider endpoint.
type Source int

const (
	SourceForecast Source = iota
	SourceArchive
)

func (s Source) String() string {
	if s == SourceArchive {
		return "archive"
	}
	return "forecast"
}

// DailySeries is the parallel-array daily block of a provider response.
// Entries are nil when the provider has no value for that slot.
type DailySeries struct {
	Time        []string
	WeatherCode []*int
	TempMax     []*float64
	TempMin     []*float64
}

// HourlySeries is the parallel-array hourly block for one local day.
type HourlySeries struct {
	Time        []string
	Temperature []*float64
	WeatherCode []*int
}

// Geocoder resolves a place name to coordinates.
// Implementations return ErrGeocodingMiss when there is no candidate.
type Geocoder interface {
	Geocode(ctx context.Context, name string) (Coordinates, error)
}

// Provider abstracts the daily and hourly endpoints of a forecast/archive pair
// (e.g. Open-Meteo forecast and Open-Meteo archive).
type Provider interface {
	Daily(ctx context.Context, src Source, at Coordinates, date string) (DailySeries, error)
	Hourly(ctx context.Context, src Source, at Coordinates, date string) (HourlySeries, error)
}
