package planner

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/i474232898/tabilog/internal/enrich"
	"github.com/i474232898/tabilog/internal/store"
	"github.com/i474232898/tabilog/internal/trip"
	"github.com/i474232898/tabilog/internal/weather"
)

// stubFetcher answers every fetch with a live record and counts calls.
type stubFetcher struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func (f *stubFetcher) DayWeather(_ context.Context, location, _ string) *weather.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail {
		return nil
	}
	return weather.NewRangeRecord(len(location), 20, weather.ConditionSunny, false)
}

func (f *stubFetcher) ActivityWeather(_ context.Context, location, _, _ string) *weather.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail {
		return nil
	}
	return weather.NewPointRecord(len(location), weather.ConditionCloudy, false)
}

func (f *stubFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// countingKV records how often each key is written.
type countingKV struct {
	*store.MemoryStore
	mu   sync.Mutex
	sets map[string]int
}

func newCountingKV() *countingKV {
	return &countingKV{MemoryStore: store.NewMemoryStore(), sets: map[string]int{}}
}

func (c *countingKV) Set(key string, value []byte) error {
	c.mu.Lock()
	c.sets[key]++
	c.mu.Unlock()
	return c.MemoryStore.Set(key, value)
}

func (c *countingKV) writes(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sets[key]
}

type fixture struct {
	svc     *Service
	kv      *countingKV
	fetcher *stubFetcher
}

func newFixture(t *testing.T, today time.Time) *fixture {
	t.Helper()
	f := &stubFetcher{}
	fx := newFixtureWith(t, today, f)
	fx.fetcher = f
	return fx
}

func newFixtureWith(t *testing.T, today time.Time, f enrich.Fetcher) *fixture {
	t.Helper()
	clock := weather.ClockFunc(func() time.Time { return today })
	kv := newCountingKV()
	syncer := enrich.NewSynchronizer(f, clock, 2, nil)
	return &fixture{
		svc: NewService(store.NewRepository(kv), syncer, clock, 0.22, nil),
		kv:  kv,
	}
}

// gatedFetcher holds every fetch until release is closed.
type gatedFetcher struct {
	stubFetcher
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func newGatedFetcher() *gatedFetcher {
	return &gatedFetcher{started: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedFetcher) DayWeather(ctx context.Context, location, date string) *weather.Record {
	g.once.Do(func() { close(g.started) })
	<-g.release
	return g.stubFetcher.DayWeather(ctx, location, date)
}

func (g *gatedFetcher) ActivityWeather(ctx context.Context, location, date, label string) *weather.Record {
	g.once.Do(func() { close(g.started) })
	<-g.release
	return g.stubFetcher.ActivityWeather(ctx, location, date, label)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 10, 0, 0, 0, time.UTC)
}

func TestBootstrapSeedsDemoOnce(t *testing.T) {
	fx := newFixture(t, day(2025, time.June, 1))

	if err := fx.svc.Bootstrap(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	plans, _ := fx.svc.Plans()
	if len(plans) != 1 || plans[0].Title != demoTitle || plans[0].StartDate != "2026-02-03" {
		t.Fatalf("expected the demo plan, got %+v", plans)
	}
	days, err := fx.svc.Itinerary(plans[0].ID)
	if err != nil || len(days) != 2 || days[1].Date != "2026-02-04" {
		t.Fatalf("unexpected demo itinerary: %+v (%v)", days, err)
	}

	if err := fx.svc.DeletePlan(plans[0].ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := fx.svc.Bootstrap(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plans, _ := fx.svc.Plans(); len(plans) != 0 {
		t.Fatalf("expected no reseed after initialization, got %+v", plans)
	}
}

func TestBootstrapMigratesLegacyData(t *testing.T) {
	fx := newFixture(t, day(2025, time.June, 1))
	fx.kv.Set("tabilog_itinerary", []byte(`[{"id":"d1","date":"2025-11-20","displayDate":"11/20 (四)","location":"Kyoto","activities":[]}]`))
	fx.kv.Set("tabilog_expenses", []byte(`[{"id":"e1","date":"2025-11-20","amount":500,"currency":"JPY","category":"Food","description":""}]`))

	if err := fx.svc.Bootstrap(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	plans, _ := fx.svc.Plans()
	if len(plans) != 1 || plans[0].Title != legacyPlanTitle || plans[0].StartDate != "2025-11-20" {
		t.Fatalf("unexpected migrated plan: %+v", plans)
	}
	days, _ := fx.svc.Itinerary(plans[0].ID)
	if len(days) != 1 || days[0].Location != "Kyoto" {
		t.Fatalf("unexpected migrated itinerary: %+v", days)
	}
	expenses, _ := fx.svc.Expenses(plans[0].ID)
	if len(expenses) != 1 || expenses[0].Amount != 500 {
		t.Fatalf("unexpected migrated expenses: %+v", expenses)
	}
}

func TestBootstrapDropsInvalidLegacyItinerary(t *testing.T) {
	fx := newFixture(t, day(2025, time.June, 1))
	fx.kv.Set("tabilog_itinerary", []byte(`{not json`))
	fx.kv.Set("tabilog_expenses", []byte(`[oops`))

	if err := fx.svc.Bootstrap(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	plans, _ := fx.svc.Plans()
	if len(plans) != 1 || plans[0].StartDate != "2025-06-01" {
		t.Fatalf("unexpected migrated plan: %+v", plans)
	}
	days, err := fx.svc.Itinerary(plans[0].ID)
	if err != nil {
		t.Fatalf("migrated itinerary is unreadable: %v", err)
	}
	if len(days) != 1 || days[0].Date != "2025-06-01" || days[0].Location != trip.PlaceholderLocation {
		t.Fatalf("expected a single placeholder day, got %+v", days)
	}
	expenses, err := fx.svc.Expenses(plans[0].ID)
	if err != nil || len(expenses) != 0 {
		t.Fatalf("expected no expenses, got %+v (%v)", expenses, err)
	}
	if _, err := fx.svc.AddDay(plans[0].ID); err != nil {
		t.Fatalf("migrated plan is not editable: %v", err)
	}
}

func TestCreatePlan(t *testing.T) {
	fx := newFixture(t, day(2026, time.January, 20))

	plan, err := fx.svc.CreatePlan("  北海道  ", "2026-07-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Title != "北海道" || plan.CreatedAt != day(2026, time.January, 20).UnixMilli() {
		t.Fatalf("unexpected plan: %+v", plan)
	}
	days, _ := fx.svc.Itinerary(plan.ID)
	if len(days) != 1 || days[0].Date != "2026-07-01" || days[0].Location != trip.PlaceholderLocation {
		t.Fatalf("unexpected initial itinerary: %+v", days)
	}

	if _, err := fx.svc.CreatePlan("x", "07/01"); !errors.Is(err, trip.ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
	if _, err := fx.svc.Itinerary("nope"); !errors.Is(err, ErrPlanNotFound) {
		t.Fatalf("expected ErrPlanNotFound, got %v", err)
	}
}

func TestUpdateDayWritesWeatherOnlyWhenChanged(t *testing.T) {
	fx := newFixture(t, day(2026, time.January, 20))
	ctx := context.Background()

	plan, _ := fx.svc.CreatePlan("Trip", "2026-01-22")
	days, _ := fx.svc.Itinerary(plan.ID)
	key := "tabilog_itinerary_" + plan.ID
	base := fx.kv.writes(key)

	upd := trip.DayUpdate{
		Location:   "東京",
		Activities: []trip.Activity{{ID: "a1", Time: "Noon", Title: "Lunch", Location: "Asakusa"}},
	}
	updated, err := fx.svc.UpdateDay(ctx, plan.ID, days[0].ID, upd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Weather == nil || updated.Activities[0].Weather == nil {
		t.Fatalf("expected weather to be fetched, got %+v", updated)
	}
	if got := fx.kv.writes(key) - base; got != 2 {
		t.Fatalf("expected edit and weather writes, got %d", got)
	}

	stored, _ := fx.svc.Itinerary(plan.ID)
	if !stored[0].Weather.Equal(updated.Weather) {
		t.Fatal("expected merged weather to be stored")
	}

	// a subtitle edit invalidates nothing
	base = fx.kv.writes(key)
	calls := fx.fetcher.count()
	upd.Subtitle = "淺草散步"
	if _, err := fx.svc.UpdateDay(ctx, plan.ID, days[0].ID, upd); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := fx.kv.writes(key) - base; got != 1 {
		t.Fatalf("expected a single write, got %d", got)
	}
	if fx.fetcher.count() != calls {
		t.Fatal("expected no fetches")
	}

	if _, err := fx.svc.UpdateDay(ctx, plan.ID, "missing", upd); !errors.Is(err, trip.ErrDayNotFound) {
		t.Fatalf("expected ErrDayNotFound, got %v", err)
	}
}

func TestUpdateDayDuringOutage(t *testing.T) {
	fx := newFixture(t, day(2026, time.January, 20))
	fx.fetcher.fail = true

	plan, _ := fx.svc.CreatePlan("Trip", "2026-01-22")
	days, _ := fx.svc.Itinerary(plan.ID)

	updated, err := fx.svc.UpdateDay(context.Background(), plan.ID, days[0].ID, trip.DayUpdate{Location: "東京"})
	if err != nil {
		t.Fatalf("outage must not fail the edit: %v", err)
	}
	if updated.Location != "東京" || updated.Weather != nil {
		t.Fatalf("expected the edit without weather, got %+v", updated)
	}
}

func TestOpenItineraryRefreshesStaleReferences(t *testing.T) {
	// demo days start 2026-02-03, nine days after this clock
	fx := newFixture(t, day(2026, time.January, 25))
	fx.svc.Bootstrap()
	plans, _ := fx.svc.Plans()

	days, err := fx.svc.OpenItinerary(context.Background(), plans[0].ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fx.fetcher.count() == 0 {
		t.Fatal("expected a bulk refresh")
	}
	if days[0].Weather == nil || days[0].Weather.IsReference {
		t.Fatalf("expected live weather, got %+v", days[0].Weather)
	}

	calls := fx.fetcher.count()
	if _, err := fx.svc.OpenItinerary(context.Background(), plans[0].ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fx.fetcher.count() != calls {
		t.Fatal("expected no refresh once references are replaced")
	}
}

func TestOpenItineraryKeepsReferencesOutOfRange(t *testing.T) {
	fx := newFixture(t, day(2025, time.June, 1))
	fx.svc.Bootstrap()
	plans, _ := fx.svc.Plans()

	days, _, err := fx.svc.RefreshIfStale(context.Background(), plans[0].ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fx.fetcher.count() != 0 {
		t.Fatalf("expected no fetches, got %d", fx.fetcher.count())
	}
	if !days[0].Weather.IsReference {
		t.Fatal("expected reference weather to be kept")
	}
}

func TestDayOperationsKeepDatesContiguous(t *testing.T) {
	fx := newFixture(t, day(2026, time.January, 20))
	ctx := context.Background()

	plan, _ := fx.svc.CreatePlan("Trip", "2026-03-10")
	fx.svc.AddDay(plan.ID)
	days, _ := fx.svc.AddDay(plan.ID)
	if len(days) != 3 || days[2].Date != "2026-03-12" {
		t.Fatalf("unexpected days: %+v", days)
	}

	// give the first day a location so the move re-enriches it
	fx.svc.UpdateDay(ctx, plan.ID, days[0].ID, trip.DayUpdate{Location: "東京"})
	calls := fx.fetcher.count()

	days, err := fx.svc.ReorderDays(ctx, plan.ID, 0, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, want := range []string{"2026-03-10", "2026-03-11", "2026-03-12"} {
		if days[i].Date != want {
			t.Fatalf("day %d: expected %s, got %s", i, want, days[i].Date)
		}
	}
	if days[2].Location != "東京" || days[2].Weather == nil {
		t.Fatalf("expected moved day to be re-enriched, got %+v", days[2])
	}
	if fx.fetcher.count() == calls {
		t.Fatal("expected a fetch for the moved day")
	}

	days, err = fx.svc.DeleteDay(ctx, plan.ID, days[0].ID)
	if err != nil || len(days) != 2 || days[1].Date != "2026-03-11" {
		t.Fatalf("unexpected days after delete: %+v (%v)", days, err)
	}
	days, _ = fx.svc.DeleteDay(ctx, plan.ID, days[0].ID)
	if _, err := fx.svc.DeleteDay(ctx, plan.ID, days[0].ID); !errors.Is(err, trip.ErrLastDay) {
		t.Fatalf("expected ErrLastDay, got %v", err)
	}

	if _, err := fx.svc.ReorderDays(ctx, plan.ID, 0, 5); !errors.Is(err, trip.ErrInvalidIndex) {
		t.Fatalf("expected ErrInvalidIndex, got %v", err)
	}
}

func TestSetStartDate(t *testing.T) {
	fx := newFixture(t, day(2026, time.January, 20))
	ctx := context.Background()

	plan, _ := fx.svc.CreatePlan("Trip", "2026-03-10")
	days, _ := fx.svc.AddDay(plan.ID)
	fx.svc.UpdateDay(ctx, plan.ID, days[0].ID, trip.DayUpdate{Location: "東京"})

	days, err := fx.svc.SetStartDate(ctx, plan.ID, "2026-01-21")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if days[0].Date != "2026-01-21" || days[1].Date != "2026-01-22" {
		t.Fatalf("unexpected dates: %+v", days)
	}
	if days[0].Weather == nil {
		t.Fatal("expected weather to be refetched for the new dates")
	}
	got, _ := fx.svc.Plan(plan.ID)
	if got.StartDate != "2026-01-21" {
		t.Fatalf("expected plan start date to follow, got %s", got.StartDate)
	}
}

func TestExpenses(t *testing.T) {
	fx := newFixture(t, day(2026, time.January, 20))
	plan, _ := fx.svc.CreatePlan("Trip", "2026-03-10")

	first, err := fx.svc.AddExpense(plan.ID, trip.Expense{Date: "2026-03-10", Amount: 1000, Currency: trip.CurrencyJPY, Category: "Food"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, _ := fx.svc.AddExpense(plan.ID, trip.Expense{Date: "2026-03-11", Amount: 110, Currency: trip.CurrencyTWD, Category: "Shopping"})

	expenses, _ := fx.svc.Expenses(plan.ID)
	if len(expenses) != 2 || expenses[0].ID != second.ID {
		t.Fatalf("expected newest expense first, got %+v", expenses)
	}

	summary, _ := fx.svc.ExpenseSummary(plan.ID)
	if summary.Count != 2 || math.Abs(summary.TotalJPY-1500) > 1e-6 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	if _, err := fx.svc.AddExpense(plan.ID, trip.Expense{Date: "2026-03-10", Currency: trip.CurrencyJPY}); !errors.Is(err, trip.ErrInvalidExpense) {
		t.Fatalf("expected ErrInvalidExpense, got %v", err)
	}
	if err := fx.svc.DeleteExpense(plan.ID, first.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := fx.svc.DeleteExpense(plan.ID, first.ID); !errors.Is(err, ErrExpenseNotFound) {
		t.Fatalf("expected ErrExpenseNotFound, got %v", err)
	}
}

func TestExport(t *testing.T) {
	fx := newFixture(t, day(2026, time.January, 20))
	plan, _ := fx.svc.CreatePlan("關西", "2026-03-10")

	data, name, err := fx.svc.Export(plan.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "關西_export.csv" {
		t.Fatalf("unexpected filename %q", name)
	}
	if !strings.Contains(string(data), "消費紀錄 Expenses") {
		t.Fatalf("expected the expense section, got %s", data)
	}
}

func TestRefreshWeatherKeepsConcurrentDelete(t *testing.T) {
	g := newGatedFetcher()
	fx := newFixtureWith(t, day(2026, time.January, 20), g)
	plan, err := fx.svc.CreatePlan("冬季", "2026-02-03")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	seeded := []trip.Day{
		{ID: "d1", Date: "2026-02-03", DisplayDate: trip.DisplayDate("2026-02-03"), Location: "東京", Activities: []trip.Activity{}},
		{ID: "d2", Date: "2026-02-04", DisplayDate: trip.DisplayDate("2026-02-04"), Location: "草津", Activities: []trip.Activity{}},
		{ID: "d3", Date: "2026-02-05", DisplayDate: trip.DisplayDate("2026-02-05"), Location: "白川鄉", Activities: []trip.Activity{}},
	}
	if err := fx.svc.repo.SaveItinerary(plan.ID, seeded); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	type result struct {
		days []trip.Day
		err  error
	}
	done := make(chan result, 1)
	go func() {
		days, err := fx.svc.RefreshWeather(context.Background(), plan.ID)
		done <- result{days, err}
	}()

	<-g.started
	// Deleting the last day shifts no dates, so it needs no fetch.
	if _, err := fx.svc.DeleteDay(context.Background(), plan.ID, "d3"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	close(g.release)

	res := <-done
	if res.err != nil {
		t.Fatalf("unexpected error: %v", res.err)
	}
	if len(res.days) != 2 {
		t.Fatalf("refresh returned %d days, expected 2", len(res.days))
	}

	stored, _ := fx.svc.Itinerary(plan.ID)
	if len(stored) != 2 || trip.IndexOf(stored, "d3") >= 0 {
		t.Fatalf("deleted day came back: %+v", stored)
	}
	for _, d := range stored {
		if d.Weather == nil {
			t.Errorf("day %s missing refreshed weather", d.ID)
		}
	}
}

func TestRefreshWeatherDropsRecordsForEditedLocation(t *testing.T) {
	g := newGatedFetcher()
	fx := newFixtureWith(t, day(2026, time.January, 20), g)
	plan, _ := fx.svc.CreatePlan("冬季", "2026-02-03")
	seeded := []trip.Day{
		{ID: "d1", Date: "2026-02-03", DisplayDate: trip.DisplayDate("2026-02-03"), Location: "東京", Activities: []trip.Activity{}},
	}
	if err := fx.svc.repo.SaveItinerary(plan.ID, seeded); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := fx.svc.RefreshWeather(context.Background(), plan.ID)
		done <- err
	}()

	<-g.started
	edited := seeded[0].Clone()
	edited.Location = trip.PlaceholderLocation
	if err := fx.svc.repo.SaveItinerary(plan.ID, []trip.Day{edited}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	close(g.release)

	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stored, _ := fx.svc.Itinerary(plan.ID)
	if stored[0].Location != trip.PlaceholderLocation || stored[0].Weather != nil {
		t.Fatalf("weather for the old location leaked onto the edited day: %+v", stored[0])
	}
}
