package trip

import (
	"github.com/i474232898/tabilog/internal/weather"
)

// PlaceholderLocation is the location given to freshly added days.
// It is never geocoded.
const PlaceholderLocation = "New Location"

// ActivityType classifies an itinerary entry.
type ActivityType string

const (
	ActivityFlight    ActivityType = "FLIGHT"
	ActivityHotel     ActivityType = "HOTEL"
	ActivityActivity  ActivityType = "ACTIVITY"
	ActivityTransport ActivityType = "TRANSPORT"
	ActivityFood      ActivityType = "FOOD"
)

// Todo is a checklist entry on an activity.
type Todo struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// Activity is a single entry of a day. It is owned by exactly one Day.
type Activity struct {
	ID            string          `json:"id"`
	Time          string          `json:"time"`
	Title         string          `json:"title"`
	Location      string          `json:"location,omitempty"`
	Description   string          `json:"description,omitempty"`
	Type          ActivityType    `json:"type"`
	GoogleMapLink string          `json:"googleMapLink,omitempty"`
	Todos         []Todo          `json:"todos,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	Weather       *weather.Record `json:"weatherInfo,omitempty"`
}

// Clone returns a deep copy of a.
func (a Activity) Clone() Activity {
	out := a
	if a.Todos != nil {
		out.Todos = append([]Todo(nil), a.Todos...)
	}
	out.Weather = a.Weather.Clone()
	return out
}

// Day is one calendar day of an itinerary. Date and DisplayDate are derived
// from the day's position and the itinerary's first date.
type Day struct {
	ID          string          `json:"id"`
	Date        string          `json:"date"`
	DisplayDate string          `json:"displayDate"`
	Location    string          `json:"location"`
	Subtitle    string          `json:"subtitle,omitempty"`
	Weather     *weather.Record `json:"weatherInfo,omitempty"`
	Activities  []Activity      `json:"activities"`
}

// Clone returns a deep copy of d.
func (d Day) Clone() Day {
	out := d
	out.Weather = d.Weather.Clone()
	out.Activities = make([]Activity, len(d.Activities))
	for i, a := range d.Activities {
		out.Activities[i] = a.Clone()
	}
	return out
}

// HasWeatherLocation reports whether the day's location should be geocoded.
func (d Day) HasWeatherLocation() bool {
	return d.Location != "" && d.Location != PlaceholderLocation
}

// Activity returns the activity with id, if present.
func (d Day) Activity(id string) (Activity, bool) {
	for _, a := range d.Activities {
		if a.ID == id {
			return a, true
		}
	}
	return Activity{}, false
}

// FirstActivityWeather returns the first activity weather record, or nil.
func (d Day) FirstActivityWeather() *weather.Record {
	for _, a := range d.Activities {
		if a.Weather != nil {
			return a.Weather
		}
	}
	return nil
}

// Plan is the metadata of one trip. Its ID namespaces the stored itinerary and expenses.
type Plan struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Subtitle  string `json:"subtitle,omitempty"`
	StartDate string `json:"startDate"`
	// CreatedAt is unix milliseconds.
	CreatedAt int64 `json:"createdAt"`
}

// CloneDays deep-copies an itinerary.
func CloneDays(days []Day) []Day {
	out := make([]Day, len(days))
	for i, d := range days {
		out[i] = d.Clone()
	}
	return out
}
