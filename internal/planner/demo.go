package planner

import (
	"github.com/i474232898/tabilog/internal/trip"
	"github.com/i474232898/tabilog/internal/weather"
)

const (
	demoTitle    = "2026 長野草津合掌村旅遊"
	demoSubtitle = "Trip to Japan"
)

// demoItinerary is the sample trip given to first-time users. Its weather
// records are reference estimates, so opening it near the travel dates
// replaces them with forecasts.
func demoItinerary(newID func() string) []trip.Day {
	days := []trip.Day{
		{
			ID:       newID(),
			Location: "台北 ➔ 東京",
			Weather:  weather.NewRangeRecord(5, 12, weather.ConditionCloudy, true),
			Activities: []trip.Activity{
				{
					ID:          newID(),
					Time:        "TBA",
					Title:       "桃園機場第一航廈 🔜 🇯🇵",
					Type:        trip.ActivityFlight,
					Description: "航班編號 IT200",
					Location:    "Taoyuan International Airport",
					Weather:     weather.NewPointRecord(18, weather.ConditionCloudy, true),
					Todos: []trip.Todo{
						{ID: newID(), Text: "訂機場接送"},
						{ID: newID(), Text: "Skyline 車票預訂"},
					},
				},
				{
					ID:            newID(),
					Time:          "Evening",
					Title:         "住宿：日暮里阿爾蒙特飯店",
					Location:      "Arakawa City, Tokyo",
					Type:          trip.ActivityHotel,
					Weather:       weather.NewPointRecord(8, weather.ConditionCloudy, true),
					GoogleMapLink: "https://www.google.com/maps/search/?api=1&query=Almont+Hotel+Nippori",
				},
			},
		},
		{
			ID:       newID(),
			Location: "東京 ➔ 草津",
			Weather:  weather.NewRangeRecord(-2, 4, weather.ConditionSnow, true),
			Activities: []trip.Activity{
				{
					ID:          newID(),
					Time:        "Morning",
					Title:       "前往輕井澤",
					Type:        trip.ActivityTransport,
					Description: "搭乘新幹線前往輕井澤",
					Weather:     weather.NewPointRecord(2, weather.ConditionSunny, true),
					Todos:       []trip.Todo{{ID: newID(), Text: "訂新幹線"}},
				},
				{
					ID:       newID(),
					Time:     "Afternoon",
					Title:    "草津溫泉 湯畑",
					Location: "Kusatsu, Gunma",
					Type:     trip.ActivityActivity,
				},
			},
		},
	}

	// dates are derived from the first day
	days, _ = trip.RederiveDates(days, "2026-02-03")
	return days
}
