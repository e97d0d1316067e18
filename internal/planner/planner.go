// Package planner implements the trip planner operations on top of the
// store and the weather synchronizer.
package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/i474232898/tabilog/internal/enrich"
	"github.com/i474232898/tabilog/internal/export"
	"github.com/i474232898/tabilog/internal/store"
	"github.com/i474232898/tabilog/internal/trip"
	"github.com/i474232898/tabilog/internal/weather"
)

var (
	// ErrPlanNotFound is returned for unknown plan ids.
	ErrPlanNotFound = errors.New("plan not found")
	// ErrExpenseNotFound is returned for unknown expense ids.
	ErrExpenseNotFound = errors.New("expense not found")
)

const (
	defaultPlanSubtitle = "Planning Mode"
	legacyPlanTitle     = "我的旅行"
)

// Service is the planner application service.
type Service struct {
	repo   *store.Repository
	syncer *enrich.Synchronizer
	clock  weather.Clock
	rate   float64
	newID  func() string
	logger *zap.Logger

	// mu serializes read-modify-write cycles on the store. Weather fetches run outside it.
	mu sync.Mutex
}

// NewService creates a planner Service. rate is TWD per JPY.
func NewService(repo *store.Repository, synchronizer *enrich.Synchronizer, clock weather.Clock, rate float64, logger *zap.Logger) *Service {
	if clock == nil {
		clock = weather.SystemClock
	}
	if rate <= 0 {
		rate = trip.DefaultExchangeRate
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:   repo,
		syncer: synchronizer,
		clock:  clock,
		rate:   rate,
		newID:  uuid.NewString,
		logger: logger,
	}
}

// Bootstrap performs first-run setup: legacy single-plan data is migrated
// into a plan, otherwise a demo plan is created. Once initialized it never
// seeds again, even when every plan was deleted.
func (s *Service) Bootstrap() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	plans, err := s.repo.Plans()
	if err != nil {
		return err
	}
	initialized, err := s.repo.Initialized()
	if err != nil {
		return err
	}

	if len(plans) > 0 {
		if !initialized {
			return s.repo.MarkInitialized()
		}
		return nil
	}
	if initialized {
		return nil
	}

	var plan trip.Plan
	legacy, err := s.repo.Legacy()
	switch {
	case err == nil:
		plan, err = s.migrateLegacy(legacy)
	case errors.Is(err, store.ErrNotFound):
		plan, err = s.seedDemo()
	}
	if err != nil {
		return err
	}

	if err := s.repo.SavePlans([]trip.Plan{plan}); err != nil {
		return err
	}
	if err := s.repo.MarkInitialized(); err != nil {
		return err
	}
	s.logger.Info("planner initialized", zap.String("plan", plan.ID), zap.String("title", plan.Title))
	return nil
}

func (s *Service) migrateLegacy(legacy store.LegacyData) (trip.Plan, error) {
	title := legacy.Title
	if title == "" {
		title = legacyPlanTitle
	}

	start := s.today()
	itinerary := legacy.Itinerary
	var days []trip.Day
	if err := json.Unmarshal(itinerary, &days); err != nil {
		s.logger.Warn("legacy itinerary is not valid json, starting empty", zap.Error(err))
		itinerary = []byte("[]")
	} else if len(days) > 0 && days[0].Date != "" {
		start = days[0].Date
	}
	expenses := legacy.Expenses
	if expenses != nil && !json.Valid(expenses) {
		s.logger.Warn("legacy expenses are not valid json, starting empty")
		expenses = []byte("[]")
	}

	plan := s.newPlan(title, defaultPlanSubtitle, start)
	if err := s.repo.SaveRaw(plan.ID, itinerary, expenses); err != nil {
		return trip.Plan{}, err
	}
	return plan, nil
}

func (s *Service) seedDemo() (trip.Plan, error) {
	days := demoItinerary(s.newID)
	plan := s.newPlan(demoTitle, demoSubtitle, days[0].Date)
	if err := s.repo.SaveItinerary(plan.ID, days); err != nil {
		return trip.Plan{}, err
	}
	if err := s.repo.SaveExpenses(plan.ID, []trip.Expense{}); err != nil {
		return trip.Plan{}, err
	}
	return plan, nil
}

// Plans lists plan metadata.
func (s *Service) Plans() ([]trip.Plan, error) {
	return s.repo.Plans()
}

// Plan returns one plan's metadata.
func (s *Service) Plan(id string) (trip.Plan, error) {
	plans, err := s.repo.Plans()
	if err != nil {
		return trip.Plan{}, err
	}
	for _, p := range plans {
		if p.ID == id {
			return p, nil
		}
	}
	return trip.Plan{}, ErrPlanNotFound
}

// CreatePlan creates a plan holding a single placeholder day on startDate.
func (s *Service) CreatePlan(title, startDate string) (trip.Plan, error) {
	if _, err := trip.ParseDate(startDate); err != nil {
		return trip.Plan{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	plans, err := s.repo.Plans()
	if err != nil {
		return trip.Plan{}, err
	}

	plan := s.newPlan(strings.TrimSpace(title), defaultPlanSubtitle, startDate)
	if err := s.repo.SaveItinerary(plan.ID, []trip.Day{trip.NewDay(s.newID(), startDate)}); err != nil {
		return trip.Plan{}, err
	}
	if err := s.repo.SaveExpenses(plan.ID, []trip.Expense{}); err != nil {
		return trip.Plan{}, err
	}
	if err := s.repo.SavePlans(append(plans, plan)); err != nil {
		return trip.Plan{}, err
	}
	return plan, nil
}

// UpdatePlanDetails changes a plan's title and subtitle.
func (s *Service) UpdatePlanDetails(id, title, subtitle string) (trip.Plan, error) {
	return s.updatePlan(id, func(p *trip.Plan) {
		p.Title = title
		p.Subtitle = subtitle
	})
}

// DeletePlan removes a plan and its data.
func (s *Service) DeletePlan(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	plans, err := s.repo.Plans()
	if err != nil {
		return err
	}
	remaining := make([]trip.Plan, 0, len(plans))
	found := false
	for _, p := range plans {
		if p.ID == id {
			found = true
			continue
		}
		remaining = append(remaining, p)
	}
	if !found {
		return ErrPlanNotFound
	}

	if err := s.repo.SavePlans(remaining); err != nil {
		return err
	}
	return s.repo.DeletePlanData(id)
}

// Itinerary returns the stored days of a plan.
func (s *Service) Itinerary(planID string) ([]trip.Day, error) {
	plan, err := s.Plan(planID)
	if err != nil {
		return nil, err
	}
	return s.loadDays(plan)
}

// OpenItinerary returns a plan's days after refreshing them when a
// reference-year estimate has come into forecast range.
func (s *Service) OpenItinerary(ctx context.Context, planID string) ([]trip.Day, error) {
	days, _, err := s.RefreshIfStale(ctx, planID)
	return days, err
}

// RefreshIfStale runs a bulk refresh when the itinerary holds stale
// reference records. refreshed reports whether it did.
func (s *Service) RefreshIfStale(ctx context.Context, planID string) (days []trip.Day, refreshed bool, err error) {
	days, err = s.Itinerary(planID)
	if err != nil {
		return nil, false, err
	}
	if !s.syncer.NeedsRefresh(days) {
		return days, false, nil
	}

	s.logger.Info("reference weather entered forecast range", zap.String("plan", planID))
	days, err = s.RefreshWeather(ctx, planID)
	return days, err == nil, err
}

// RefreshWeather re-fetches weather for the whole itinerary and stores the result.
func (s *Service) RefreshWeather(ctx context.Context, planID string) ([]trip.Day, error) {
	snapshot, err := s.Itinerary(planID)
	if err != nil {
		return nil, err
	}

	if err := s.writeBack(planID, s.syncer.BulkRefresh(ctx, snapshot)); err != nil {
		return nil, err
	}
	return s.Itinerary(planID)
}

// UpdateDay applies an edit to a day, stores it, then fetches whatever
// weather the edit invalidated. The day is written a second time only when
// a weather record changed.
func (s *Service) UpdateDay(ctx context.Context, planID, dayID string, upd trip.DayUpdate) (trip.Day, error) {
	var before, edited trip.Day
	_, err := s.mutate(planID, func(days []trip.Day) ([]trip.Day, error) {
		idx := trip.IndexOf(days, dayID)
		if idx < 0 {
			return nil, trip.ErrDayNotFound
		}
		before = days[idx].Clone()
		edited = trip.ApplyDayUpdate(days[idx], upd)
		return trip.ReplaceDay(days, edited)
	})
	if err != nil {
		return trip.Day{}, err
	}

	merged, changed := s.syncer.TargetedUpdate(ctx, &before, edited)
	if !changed {
		return edited, nil
	}

	if err := s.writeBack(planID, []trip.Day{merged}); err != nil {
		return trip.Day{}, err
	}
	return merged, nil
}

// AddDay appends a placeholder day.
func (s *Service) AddDay(planID string) ([]trip.Day, error) {
	return s.mutate(planID, func(days []trip.Day) ([]trip.Day, error) {
		return trip.AddDay(days, s.newID(), s.clock.Now())
	})
}

// DeleteDay removes a day; days whose date shifted are re-enriched.
func (s *Service) DeleteDay(ctx context.Context, planID, dayID string) ([]trip.Day, error) {
	return s.redate(ctx, planID, func(days []trip.Day) ([]trip.Day, error) {
		return trip.DeleteDay(days, dayID)
	})
}

// ReorderDays moves a day; days whose date shifted are re-enriched.
func (s *Service) ReorderDays(ctx context.Context, planID string, from, to int) ([]trip.Day, error) {
	return s.redate(ctx, planID, func(days []trip.Day) ([]trip.Day, error) {
		return trip.ReorderDays(days, from, to)
	})
}

// SetStartDate re-dates the whole itinerary and refreshes all weather.
func (s *Service) SetStartDate(ctx context.Context, planID, start string) ([]trip.Day, error) {
	if _, err := trip.ParseDate(start); err != nil {
		return nil, err
	}
	if _, err := s.mutate(planID, func(days []trip.Day) ([]trip.Day, error) {
		return trip.SetStartDate(days, start)
	}); err != nil {
		return nil, err
	}
	if _, err := s.updatePlan(planID, func(p *trip.Plan) { p.StartDate = start }); err != nil {
		return nil, err
	}
	return s.RefreshWeather(ctx, planID)
}

// Expenses lists a plan's expenses.
func (s *Service) Expenses(planID string) ([]trip.Expense, error) {
	if _, err := s.Plan(planID); err != nil {
		return nil, err
	}
	return s.repo.Expenses(planID)
}

// AddExpense validates and stores a new expense.
func (s *Service) AddExpense(planID string, e trip.Expense) (trip.Expense, error) {
	if err := e.Validate(); err != nil {
		return trip.Expense{}, err
	}
	if _, err := s.Plan(planID); err != nil {
		return trip.Expense{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	expenses, err := s.repo.Expenses(planID)
	if err != nil {
		return trip.Expense{}, err
	}
	e.ID = s.newID()
	// newest first
	expenses = append([]trip.Expense{e}, expenses...)
	if err := s.repo.SaveExpenses(planID, expenses); err != nil {
		return trip.Expense{}, err
	}
	return e, nil
}

// DeleteExpense removes an expense.
func (s *Service) DeleteExpense(planID, expenseID string) error {
	if _, err := s.Plan(planID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	expenses, err := s.repo.Expenses(planID)
	if err != nil {
		return err
	}
	remaining, found := trip.RemoveExpense(expenses, expenseID)
	if !found {
		return ErrExpenseNotFound
	}
	return s.repo.SaveExpenses(planID, remaining)
}

// ExpenseSummary totals a plan's expenses in both currencies.
func (s *Service) ExpenseSummary(planID string) (trip.Summary, error) {
	expenses, err := s.Expenses(planID)
	if err != nil {
		return trip.Summary{}, err
	}
	return trip.Summarize(expenses, s.rate), nil
}

// Export renders a plan as CSV and returns it with a download file name.
func (s *Service) Export(planID string) ([]byte, string, error) {
	plan, err := s.Plan(planID)
	if err != nil {
		return nil, "", err
	}
	days, err := s.loadDays(plan)
	if err != nil {
		return nil, "", err
	}
	expenses, err := s.repo.Expenses(planID)
	if err != nil {
		return nil, "", err
	}
	return export.CSV(days, expenses, s.rate), export.Filename(plan.Title), nil
}

// redate applies a date-shifting change, clears the weather of days whose
// date moved and re-enriches those days.
func (s *Service) redate(ctx context.Context, planID string, change func([]trip.Day) ([]trip.Day, error)) ([]trip.Day, error) {
	var moved []trip.Day
	days, err := s.mutate(planID, func(days []trip.Day) ([]trip.Day, error) {
		next, err := change(days)
		if err != nil {
			return nil, err
		}
		shifted := trip.MovedDays(days, next)
		for i := range next {
			if shifted[next[i].ID] {
				next[i] = trip.ClearWeather(next[i])
				moved = append(moved, next[i].Clone())
			}
		}
		return next, nil
	})
	if err != nil || len(moved) == 0 {
		return days, err
	}

	if err := s.writeBack(planID, s.syncer.BulkRefresh(ctx, moved)); err != nil {
		return nil, err
	}
	return s.Itinerary(planID)
}

// writeBack merges the weather of enriched days into the stored itinerary.
// Edits made while fetching win: deleted days are skipped and records that
// no longer match a day's date or location are dropped.
func (s *Service) writeBack(planID string, enriched []trip.Day) error {
	_, err := s.mutate(planID, func(days []trip.Day) ([]trip.Day, error) {
		out := trip.CloneDays(days)
		for _, d := range enriched {
			if idx := trip.IndexOf(out, d.ID); idx >= 0 {
				out[idx] = trip.AdoptWeather(out[idx], d)
			}
		}
		return out, nil
	})
	return err
}

// mutate loads a plan's days, applies fn and stores the result.
func (s *Service) mutate(planID string, fn func([]trip.Day) ([]trip.Day, error)) ([]trip.Day, error) {
	plan, err := s.Plan(planID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	days, err := s.loadDays(plan)
	if err != nil {
		return nil, err
	}
	next, err := fn(days)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SaveItinerary(planID, next); err != nil {
		return nil, err
	}
	return next, nil
}

func (s *Service) updatePlan(id string, fn func(*trip.Plan)) (trip.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	plans, err := s.repo.Plans()
	if err != nil {
		return trip.Plan{}, err
	}
	for i := range plans {
		if plans[i].ID != id {
			continue
		}
		fn(&plans[i])
		if err := s.repo.SavePlans(plans); err != nil {
			return trip.Plan{}, err
		}
		return plans[i], nil
	}
	return trip.Plan{}, ErrPlanNotFound
}

// loadDays reads a plan's itinerary. A plan without a stored itinerary
// gets a single placeholder day on its start date.
func (s *Service) loadDays(plan trip.Plan) ([]trip.Day, error) {
	days, err := s.repo.Itinerary(plan.ID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && len(days) == 0) {
		start := plan.StartDate
		if start == "" {
			start = s.today()
		}
		return []trip.Day{trip.NewDay(s.newID(), start)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load itinerary of plan %s: %w", plan.ID, err)
	}
	return days, nil
}

func (s *Service) newPlan(title, subtitle, start string) trip.Plan {
	return trip.Plan{
		ID:        s.newID(),
		Title:     title,
		Subtitle:  subtitle,
		StartDate: start,
		CreatedAt: s.clock.Now().UnixMilli(),
	}
}

func (s *Service) today() string {
	return s.clock.Now().Format("2006-01-02")
}
