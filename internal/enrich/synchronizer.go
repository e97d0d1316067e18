// Package enrich keeps itinerary weather records in step with days and activities.
package enrich

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/i474232898/tabilog/internal/trip"
	"github.com/i474232898/tabilog/internal/weather"
)

// DefaultConcurrency bounds in-flight fetches of one pass.
const DefaultConcurrency = 8

// Fetcher produces weather records. A nil record means no data.
type Fetcher interface {
	DayWeather(ctx context.Context, location, date string) *weather.Record
	ActivityWeather(ctx context.Context, location, date, timeLabel string) *weather.Record
}

// Synchronizer decides which days and activities need weather and merges
// fetched records back into the itinerary.
type Synchronizer struct {
	fetcher     Fetcher
	clock       weather.Clock
	concurrency int
	logger      *zap.Logger
}

// NewSynchronizer creates a Synchronizer. concurrency <= 0 uses DefaultConcurrency.
func NewSynchronizer(fetcher Fetcher, clock weather.Clock, concurrency int, logger *zap.Logger) *Synchronizer {
	if clock == nil {
		clock = weather.SystemClock
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synchronizer{
		fetcher:     fetcher,
		clock:       clock,
		concurrency: concurrency,
		logger:      logger,
	}
}

// dayPlan lists what one day needs fetched; results land in the same shape.
type dayPlan struct {
	day        bool
	activities []bool
}

type dayResult struct {
	day        *weather.Record
	activities []*weather.Record
}

// BulkRefresh fetches weather for every eligible day and activity and
// returns the updated itinerary. Records are only replaced by successful
// fetches; days left without weather adopt their first activity's record.
func (s *Synchronizer) BulkRefresh(ctx context.Context, days []trip.Day) []trip.Day {
	plans := make([]dayPlan, len(days))
	for i, day := range days {
		plans[i] = dayPlan{
			day:        day.HasWeatherLocation(),
			activities: make([]bool, len(day.Activities)),
		}
		for j, act := range day.Activities {
			plans[i].activities[j] = act.Location != ""
		}
	}

	results := s.fetchAll(ctx, days, plans)

	out := make([]trip.Day, len(days))
	updated := 0
	for i, day := range days {
		merged, changed := merge(day, results[i])
		out[i] = merged
		if changed {
			updated++
		}
	}

	s.logger.Info("weather refresh completed",
		zap.Int("days", len(days)),
		zap.Int("daysUpdated", updated),
	)
	return out
}

// TargetedUpdate re-fetches what an edit of a single day invalidated.
// old is the day before the edit, or nil for a new day. changed is false
// when no weather record differs from updated's, in which case updated is
// returned as is.
func (s *Synchronizer) TargetedUpdate(ctx context.Context, old *trip.Day, updated trip.Day) (trip.Day, bool) {
	plan := dayPlan{activities: make([]bool, len(updated.Activities))}

	if updated.HasWeatherLocation() {
		plan.day = updated.Weather == nil ||
			old == nil ||
			old.Location != updated.Location ||
			old.Date != updated.Date
	}

	for j, act := range updated.Activities {
		if act.Location == "" {
			continue
		}
		var prev trip.Activity
		found := false
		if old != nil {
			prev, found = old.Activity(act.ID)
		}
		plan.activities[j] = act.Weather == nil ||
			!found ||
			prev.Location != act.Location ||
			prev.Time != act.Time
	}

	results := s.fetchAll(ctx, []trip.Day{updated}, []dayPlan{plan})
	merged, changed := merge(updated, results[0])
	if !changed {
		return updated, false
	}
	return merged, true
}

// NeedsRefresh reports whether any day holds a reference-year record although
// its date is now within the forecast window.
func (s *Synchronizer) NeedsRefresh(days []trip.Day) bool {
	now := s.clock.Now()
	for _, day := range days {
		if day.Weather == nil || !day.Weather.IsReference {
			continue
		}
		offset, err := weather.DayOffset(day.Date, now)
		if err != nil {
			continue
		}
		if weather.ForecastEligible(offset) {
			return true
		}
	}
	return false
}

// fetchAll runs every planned fetch concurrently and waits for all of them.
// Each task writes only its own result slot.
func (s *Synchronizer) fetchAll(ctx context.Context, days []trip.Day, plans []dayPlan) []dayResult {
	results := make([]dayResult, len(days))
	for i := range days {
		results[i].activities = make([]*weather.Record, len(days[i].Activities))
	}

	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for i, day := range days {
		i, day := i, day
		if plans[i].day {
			g.Go(func() error {
				results[i].day = s.fetcher.DayWeather(ctx, day.Location, day.Date)
				return nil
			})
		}
		for j, act := range day.Activities {
			j, act := j, act
			if !plans[i].activities[j] {
				continue
			}
			g.Go(func() error {
				results[i].activities[j] = s.fetcher.ActivityWeather(ctx, act.Location, day.Date, act.Time)
				return nil
			})
		}
	}

	// Tasks never return errors; a failed fetch is a nil slot.
	_ = g.Wait()
	return results
}

// merge applies fetched records to a copy of day and backfills the day
// record from its activities. changed reports whether any record differs.
func merge(day trip.Day, res dayResult) (trip.Day, bool) {
	out := day.Clone()
	if res.day != nil {
		out.Weather = res.day.Clone()
	}
	for j, rec := range res.activities {
		if rec != nil {
			out.Activities[j].Weather = rec.Clone()
		}
	}
	if out.Weather == nil {
		out.Weather = out.FirstActivityWeather().Clone()
	}

	changed := !out.Weather.Equal(day.Weather)
	for j := range out.Activities {
		if !out.Activities[j].Weather.Equal(day.Activities[j].Weather) {
			changed = true
		}
	}
	return out, changed
}
