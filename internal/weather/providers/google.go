package providers

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/tabilog/internal/weather"
)

// googleNoResults is the error text kelvins/geocoder returns for ZERO_RESULTS.
const googleNoResults = "No results found"

// googleMu guards the package-level settings and calls of kelvins/geocoder.
var googleMu sync.Mutex

// GoogleGeocoder resolves place names with the Google Geocoding API.
type GoogleGeocoder struct {
	apiKey string
}

func NewGoogleGeocoder(apiKey string) *GoogleGeocoder {
	return &GoogleGeocoder{apiKey: apiKey}
}

// Geocode looks name up as a city.
func (g *GoogleGeocoder) Geocode(ctx context.Context, name string) (weather.Coordinates, error) {
	if g.apiKey == "" {
		return weather.Coordinates{}, fmt.Errorf("%w: google geocoder api key is not configured", weather.ErrProviderUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return weather.Coordinates{}, fmt.Errorf("%w: %v", weather.ErrProviderUnavailable, err)
	}

	loc, err := googleGeocoding(g.apiKey, name)
	if err != nil {
		if strings.Contains(err.Error(), googleNoResults) {
			return weather.Coordinates{}, fmt.Errorf("%w: %q", weather.ErrGeocodingMiss, name)
		}
		return weather.Coordinates{}, fmt.Errorf("%w: %v", weather.ErrProviderUnavailable, err)
	}
	return weather.Coordinates{Latitude: loc.Latitude, Longitude: loc.Longitude}, nil
}

// googleGeocoding runs one library call under googleMu. The library indexes
// the first result even for statuses it does not recognise (OVER_DAILY_LIMIT),
// so a panic there is turned into an error.
func googleGeocoding(apiKey, name string) (loc geocoder.Location, err error) {
	googleMu.Lock()
	defer googleMu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected google geocoding answer: %v", r)
		}
	}()

	geocoder.ApiKey = apiKey
	// The library pastes the address into the query string as is.
	return geocoder.Geocoding(geocoder.Address{City: url.QueryEscape(name)})
}
