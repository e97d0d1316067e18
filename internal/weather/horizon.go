package weather

import (
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	// ForecastPastDays and ForecastFutureDays bound the forecast-eligible window, inclusive.
	ForecastPastDays   = -1
	ForecastFutureDays = 14

	dateLayout = "2006-01-02"
)

// ErrInvalidDate is returned for dates that are not YYYY-MM-DD.
var ErrInvalidDate = errors.New("invalid date")

// Clock supplies "now". The horizon is measured in the clock's location.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the local wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// Horizon classifies a date against the forecast window.
type Horizon struct {
	// Offset is target midnight minus today midnight, in whole local days.
	Offset int
	// Historical is true when the date is outside the forecast window.
	Historical bool
	// ReferenceDate is the archive date to query; set only when Historical.
	ReferenceDate string
}

// Source returns the endpoint that serves this horizon.
func (h Horizon) Source() Source {
	if h.Historical {
		return SourceArchive
	}
	return SourceForecast
}

// DayOffset returns the number of local calendar days from today to date.
func DayOffset(date string, now time.Time) (int, error) {
	loc := now.Location()
	target, err := time.ParseInLocation(dateLayout, date, loc)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	// Rounding absorbs 23h/25h days around DST transitions.
	return int(math.Round(target.Sub(today).Hours() / 24)), nil
}

// ForecastEligible reports whether offset falls in the forecast window.
func ForecastEligible(offset int) bool {
	return offset >= ForecastPastDays && offset <= ForecastFutureDays
}

// Classify computes the horizon of date as seen from clock.
func Classify(date string, clock Clock) (Horizon, error) {
	now := clock.Now()
	offset, err := DayOffset(date, now)
	if err != nil {
		return Horizon{}, err
	}
	h := Horizon{Offset: offset}
	if ForecastEligible(offset) {
		return h, nil
	}

	target, _ := time.ParseInLocation(dateLayout, date, now.Location())
	h.Historical = true
	h.ReferenceDate = referenceDate(target, now.Year())
	return h, nil
}

// referenceDate is the same month/day one year before target, with the year
// clamped below currentYear.
func referenceDate(target time.Time, currentYear int) string {
	year := target.Year() - 1
	if year > currentYear {
		year = currentYear - 1
	}
	day := target.Day()
	if target.Month() == time.February && day == 29 && !isLeap(year) {
		day = 28
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, int(target.Month()), day)
}

func isLeap(y int) bool {
	return y%4 == 0 && (y%100 != 0 || y%400 == 0)
}
