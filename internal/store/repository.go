package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/i474232898/tabilog/internal/trip"
)

const (
	keyPlans        = "tabilog_plans"
	keyInitialized  = "tabilog_initialized"
	prefixItinerary = "tabilog_itinerary_"
	prefixExpenses  = "tabilog_expenses_"

	// Single-plan layout written before plans were namespaced.
	legacyKeyItinerary = "tabilog_itinerary"
	legacyKeyExpenses  = "tabilog_expenses"
	legacyKeyTitle     = "tabilog_title"
)

// Repository maps plans, itineraries and expenses onto KV keys.
type Repository struct {
	kv KV
}

// NewRepository creates a Repository over kv.
func NewRepository(kv KV) *Repository {
	return &Repository{kv: kv}
}

// Plans returns the stored plan list; an empty list when none was saved.
func (r *Repository) Plans() ([]trip.Plan, error) {
	var plans []trip.Plan
	if err := r.getJSON(keyPlans, &plans); err != nil {
		if errors.Is(err, ErrNotFound) {
			return []trip.Plan{}, nil
		}
		return nil, err
	}
	if plans == nil {
		plans = []trip.Plan{}
	}
	return plans, nil
}

func (r *Repository) SavePlans(plans []trip.Plan) error {
	return r.setJSON(keyPlans, plans)
}

// Initialized reports whether first-run setup has completed.
func (r *Repository) Initialized() (bool, error) {
	v, err := r.kv.Get(keyInitialized)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return string(v) == "true", nil
}

func (r *Repository) MarkInitialized() error {
	return r.kv.Set(keyInitialized, []byte("true"))
}

// Itinerary returns the days of plan planID, or ErrNotFound.
func (r *Repository) Itinerary(planID string) ([]trip.Day, error) {
	var days []trip.Day
	if err := r.getJSON(prefixItinerary+planID, &days); err != nil {
		return nil, err
	}
	return days, nil
}

func (r *Repository) SaveItinerary(planID string, days []trip.Day) error {
	return r.setJSON(prefixItinerary+planID, days)
}

// Expenses returns the expenses of plan planID; an empty list when none were saved.
func (r *Repository) Expenses(planID string) ([]trip.Expense, error) {
	var expenses []trip.Expense
	if err := r.getJSON(prefixExpenses+planID, &expenses); err != nil {
		if errors.Is(err, ErrNotFound) {
			return []trip.Expense{}, nil
		}
		return nil, err
	}
	if expenses == nil {
		expenses = []trip.Expense{}
	}
	return expenses, nil
}

func (r *Repository) SaveExpenses(planID string, expenses []trip.Expense) error {
	return r.setJSON(prefixExpenses+planID, expenses)
}

// DeletePlanData removes the itinerary and expenses of planID.
func (r *Repository) DeletePlanData(planID string) error {
	if err := r.kv.Delete(prefixItinerary + planID); err != nil {
		return err
	}
	return r.kv.Delete(prefixExpenses + planID)
}

// LegacyData is the pre-namespacing single-plan layout.
type LegacyData struct {
	Title     string
	Itinerary []byte
	Expenses  []byte
}

// Legacy returns the legacy single-plan data, or ErrNotFound when there is none.
func (r *Repository) Legacy() (LegacyData, error) {
	itinerary, err := r.kv.Get(legacyKeyItinerary)
	if err != nil {
		return LegacyData{}, err
	}
	data := LegacyData{Itinerary: itinerary}

	if v, err := r.kv.Get(legacyKeyExpenses); err == nil {
		data.Expenses = v
	} else if !errors.Is(err, ErrNotFound) {
		return LegacyData{}, err
	}
	if v, err := r.kv.Get(legacyKeyTitle); err == nil {
		data.Title = string(v)
	} else if !errors.Is(err, ErrNotFound) {
		return LegacyData{}, err
	}
	return data, nil
}

// SaveRaw copies already-serialized itinerary and expense documents under planID.
func (r *Repository) SaveRaw(planID string, itinerary, expenses []byte) error {
	if err := r.kv.Set(prefixItinerary+planID, itinerary); err != nil {
		return err
	}
	if expenses == nil {
		return nil
	}
	return r.kv.Set(prefixExpenses+planID, expenses)
}

func (r *Repository) getJSON(key string, out any) error {
	data, err := r.kv.Get(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return nil
}

func (r *Repository) setJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return r.kv.Set(key, data)
}
