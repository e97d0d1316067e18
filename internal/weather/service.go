package weather

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/i474232898/tabilog/internal/common"
)

// Service resolves itinerary locations and dates into weather records.
// Its exported methods never fail: any error is logged and reported as no data.
type Service struct {
	geocoder Geocoder
	provider Provider
	clock    Clock
	logger   *zap.Logger
}

// NewService creates a new Service. A nil clock uses SystemClock.
func NewService(geocoder Geocoder, provider Provider, clock Clock, logger *zap.Logger) *Service {
	if clock == nil {
		clock = SystemClock
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		geocoder: geocoder,
		provider: provider,
		clock:    clock,
		logger:   logger,
	}
}

// Clock returns the clock the service classifies dates with.
func (s *Service) Clock() Clock {
	return s.clock
}

// DayWeather returns the day-range weather for location on date, or nil.
func (s *Service) DayWeather(ctx context.Context, location, date string) *Record {
	rec, err := s.fetchDay(ctx, location, date)
	if err != nil {
		s.logFailure("day", location, date, "", err)
		return nil
	}
	return rec
}

// ActivityWeather returns the weather at the hour named by timeLabel, or nil.
// Labels without a specific hour fall back to DayWeather.
func (s *Service) ActivityWeather(ctx context.Context, location, date, timeLabel string) *Record {
	rec, err := s.fetchActivity(ctx, location, date, timeLabel)
	if err != nil {
		s.logFailure("activity", location, date, timeLabel, err)
		return nil
	}
	return rec
}

func (s *Service) fetchDay(ctx context.Context, location, date string) (*Record, error) {
	at, h, err := s.prepare(ctx, location, date)
	if err != nil {
		return nil, err
	}

	series, err := s.provider.Daily(ctx, h.Source(), at, queryDate(date, h))
	if err != nil {
		return nil, err
	}
	if len(series.Time) == 0 || len(series.WeatherCode) == 0 ||
		len(series.TempMax) == 0 || len(series.TempMin) == 0 {
		return nil, fmt.Errorf("%w: empty daily series", ErrMalformedResponse)
	}
	code, maxC, minC := series.WeatherCode[0], series.TempMax[0], series.TempMin[0]
	if code == nil || maxC == nil || minC == nil {
		return nil, fmt.Errorf("%w: null daily values", ErrMalformedResponse)
	}

	return NewRangeRecord(
		common.RoundHalfUp(*minC),
		common.RoundHalfUp(*maxC),
		ConditionFromWMO(*code),
		h.Historical,
	), nil
}

func (s *Service) fetchActivity(ctx context.Context, location, date, timeLabel string) (*Record, error) {
	hour, ok := ResolveHour(timeLabel)
	if !ok {
		return s.fetchDay(ctx, location, date)
	}

	at, h, err := s.prepare(ctx, location, date)
	if err != nil {
		return nil, err
	}

	series, err := s.provider.Hourly(ctx, h.Source(), at, queryDate(date, h))
	if err != nil {
		return nil, err
	}
	// The series is one local day starting at 00:00, so the hour is the index.
	if hour >= len(series.Temperature) || hour >= len(series.WeatherCode) {
		return nil, fmt.Errorf("%w: hourly series has no slot %d", ErrMalformedResponse, hour)
	}
	temp, code := series.Temperature[hour], series.WeatherCode[hour]
	if temp == nil || code == nil {
		return nil, fmt.Errorf("%w: null hourly values at %d", ErrMalformedResponse, hour)
	}

	return NewPointRecord(common.RoundHalfUp(*temp), ConditionFromWMO(*code), h.Historical), nil
}

// prepare resolves and geocodes location and classifies date.
func (s *Service) prepare(ctx context.Context, location, date string) (Coordinates, Horizon, error) {
	name, ok := ResolveLocation(location)
	if !ok {
		return Coordinates{}, Horizon{}, ErrUnresolvableLocation
	}

	h, err := Classify(date, s.clock)
	if err != nil {
		return Coordinates{}, Horizon{}, err
	}

	at, err := s.geocoder.Geocode(ctx, name)
	if err != nil {
		return Coordinates{}, Horizon{}, err
	}
	return at, h, nil
}

func queryDate(date string, h Horizon) string {
	if h.Historical {
		return h.ReferenceDate
	}
	return date
}

func (s *Service) logFailure(kind, location, date, timeLabel string, err error) {
	fields := []zap.Field{
		zap.String("kind", kind),
		zap.String("location", location),
		zap.String("date", date),
		zap.Error(err),
	}
	if timeLabel != "" {
		fields = append(fields, zap.String("time", timeLabel))
	}

	if errors.Is(err, ErrUnresolvableLocation) || errors.Is(err, ErrGeocodingMiss) {
		s.logger.Debug("weather skipped", fields...)
		return
	}
	s.logger.Warn("weather fetch failed", fields...)
}
