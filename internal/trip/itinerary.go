package trip

import (
	"errors"
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

var (
	// ErrLastDay is returned when deleting the only remaining day.
	ErrLastDay = errors.New("an itinerary needs at least one day")
	// ErrDayNotFound is returned when no day has the requested id.
	ErrDayNotFound = errors.New("day not found")
	// ErrInvalidIndex is returned for out-of-range reorder positions.
	ErrInvalidIndex = errors.New("day index out of range")
	// ErrInvalidDate is returned for dates that are not YYYY-MM-DD.
	ErrInvalidDate = errors.New("invalid date")
)

var weekdays = [...]string{"日", "一", "二", "三", "四", "五", "六"}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// AddDays shifts a calendar date by n days.
func AddDays(date string, n int) (string, error) {
	t, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, n).Format(dateLayout), nil
}

// DisplayDate renders a date as "M/D (weekday)", e.g. "2/3 (二)".
func DisplayDate(date string) string {
	t, err := ParseDate(date)
	if err != nil {
		return date
	}
	return fmt.Sprintf("%d/%d (%s)", int(t.Month()), t.Day(), weekdays[t.Weekday()])
}

// Weekday returns the weekday label shown in DisplayDate.
func Weekday(date string) string {
	t, err := ParseDate(date)
	if err != nil {
		return ""
	}
	return weekdays[t.Weekday()]
}

// RederiveDates returns a copy of days dated consecutively from start.
func RederiveDates(days []Day, start string) ([]Day, error) {
	first, err := ParseDate(start)
	if err != nil {
		return nil, err
	}
	out := CloneDays(days)
	for i := range out {
		date := first.AddDate(0, 0, i).Format(dateLayout)
		out[i].Date = date
		out[i].DisplayDate = DisplayDate(date)
	}
	return out, nil
}

// NewDay builds an empty day with the placeholder location.
func NewDay(id, date string) Day {
	return Day{
		ID:          id,
		Date:        date,
		DisplayDate: DisplayDate(date),
		Location:    PlaceholderLocation,
		Activities:  []Activity{},
	}
}

// AddDay appends a placeholder day dated the day after the last one.
// An empty itinerary starts at today.
func AddDay(days []Day, id string, today time.Time) ([]Day, error) {
	date := today.Format(dateLayout)
	if len(days) > 0 {
		next, err := AddDays(days[len(days)-1].Date, 1)
		if err != nil {
			return nil, err
		}
		date = next
	}
	out := append(CloneDays(days), NewDay(id, date))
	return out, nil
}

// DeleteDay removes the day with id and re-dates the rest from the
// remaining first day.
func DeleteDay(days []Day, id string) ([]Day, error) {
	if len(days) <= 1 {
		return nil, ErrLastDay
	}
	idx := IndexOf(days, id)
	if idx < 0 {
		return nil, ErrDayNotFound
	}

	remaining := make([]Day, 0, len(days)-1)
	remaining = append(remaining, days[:idx]...)
	remaining = append(remaining, days[idx+1:]...)
	return RederiveDates(remaining, remaining[0].Date)
}

// ReorderDays moves the day at from to position to. Dates stay anchored at
// the first day's date before the move.
func ReorderDays(days []Day, from, to int) ([]Day, error) {
	if from < 0 || from >= len(days) || to < 0 || to >= len(days) {
		return nil, ErrInvalidIndex
	}
	if from == to {
		return CloneDays(days), nil
	}

	anchor := days[0].Date
	moved := CloneDays(days)
	day := moved[from]
	moved = append(moved[:from], moved[from+1:]...)
	moved = append(moved[:to], append([]Day{day}, moved[to:]...)...)
	return RederiveDates(moved, anchor)
}

// SetStartDate re-dates the itinerary from start and drops every weather
// record, since all of them described other dates.
func SetStartDate(days []Day, start string) ([]Day, error) {
	out, err := RederiveDates(days, start)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Weather = nil
		for j := range out[i].Activities {
			out[i].Activities[j].Weather = nil
		}
	}
	return out, nil
}

// IndexOf returns the position of the day with id, or -1.
func IndexOf(days []Day, id string) int {
	for i, d := range days {
		if d.ID == id {
			return i
		}
	}
	return -1
}

// ReplaceDay returns a copy of days with the day of the same id replaced.
func ReplaceDay(days []Day, day Day) ([]Day, error) {
	idx := IndexOf(days, day.ID)
	if idx < 0 {
		return nil, ErrDayNotFound
	}
	out := CloneDays(days)
	out[idx] = day.Clone()
	return out, nil
}

// DayUpdate holds the client-editable fields of a day.
type DayUpdate struct {
	Location   string
	Subtitle   string
	Activities []Activity
}

// ApplyDayUpdate returns day with upd applied. Date fields are kept, and
// activity weather is only carried over from activities the day already had.
func ApplyDayUpdate(day Day, upd DayUpdate) Day {
	out := day.Clone()
	out.Location = upd.Location
	out.Subtitle = upd.Subtitle
	out.Activities = make([]Activity, len(upd.Activities))
	for i, a := range upd.Activities {
		a = a.Clone()
		a.Weather = nil
		if prev, ok := day.Activity(a.ID); ok {
			a.Weather = prev.Weather.Clone()
		}
		out.Activities[i] = a
	}
	return out
}

// MovedDays returns the ids of days whose date differs between before and after.
func MovedDays(before, after []Day) map[string]bool {
	prev := make(map[string]string, len(before))
	for _, d := range before {
		prev[d.ID] = d.Date
	}
	moved := make(map[string]bool)
	for _, d := range after {
		if date, ok := prev[d.ID]; ok && date != d.Date {
			moved[d.ID] = true
		}
	}
	return moved
}

// ClearWeather drops the day's and its activities' weather records.
func ClearWeather(d Day) Day {
	out := d.Clone()
	out.Weather = nil
	for i := range out.Activities {
		out.Activities[i].Weather = nil
	}
	return out
}

// AdoptWeather copies enriched's weather records onto current, the stored
// version of the same day. Records are only taken while they still describe
// current: the day's date and location, and each activity's location and time.
func AdoptWeather(current, enriched Day) Day {
	out := current.Clone()
	if enriched.Weather != nil && current.Date == enriched.Date && current.Location == enriched.Location {
		out.Weather = enriched.Weather.Clone()
	}
	if current.Date != enriched.Date {
		return out
	}
	for i, a := range out.Activities {
		src, ok := enriched.Activity(a.ID)
		if !ok || src.Weather == nil || src.Location != a.Location || src.Time != a.Time {
			continue
		}
		out.Activities[i].Weather = src.Weather.Clone()
	}
	return out
}
