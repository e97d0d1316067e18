package providers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/i474232898/tabilog/internal/weather"
)

type geocodeEntry struct {
	at    weather.Coordinates
	found bool
}

// CachedGeocoder memoizes coordinates (and misses) per place name.
// Transport errors are not cached.
type CachedGeocoder struct {
	next  weather.Geocoder
	cache *cache.Cache
}

func NewCachedGeocoder(next weather.Geocoder, ttl time.Duration) *CachedGeocoder {
	return &CachedGeocoder{
		next:  next,
		cache: cache.New(ttl, 2*ttl),
	}
}

func (c *CachedGeocoder) Geocode(ctx context.Context, name string) (weather.Coordinates, error) {
	key := "coords_" + strings.ToLower(strings.TrimSpace(name))
	if cached, found := c.cache.Get(key); found {
		entry := cached.(geocodeEntry)
		if !entry.found {
			return weather.Coordinates{}, weather.ErrGeocodingMiss
		}
		return entry.at, nil
	}

	at, err := c.next.Geocode(ctx, name)
	switch {
	case err == nil:
		c.cache.Set(key, geocodeEntry{at: at, found: true}, cache.DefaultExpiration)
	case errors.Is(err, weather.ErrGeocodingMiss):
		c.cache.Set(key, geocodeEntry{}, cache.DefaultExpiration)
	}
	return at, err
}
