package weather

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionSunny  Condition = "Sunny"
	ConditionCloudy Condition = "Cloudy"
	ConditionRain   Condition = "Rain"
	ConditionSnow   Condition = "Snow"
)

// Record is the weather attached to a day or an activity.
// Day records carry TempMin/TempMax, activity records carry Temp.
type Record struct {
	TempMin   *int      `json:"tempMin,omitempty"`
	TempMax   *int      `json:"tempMax,omitempty"`
	Temp      *int      `json:"temp,omitempty"`
	Condition Condition `json:"condition"`

	// IsReference marks values taken from last year's archive rather than a live forecast.
	IsReference bool `json:"isReference,omitempty"`
}

// NewRangeRecord builds a day-range record.
func NewRangeRecord(minC, maxC int, cond Condition, reference bool) *Record {
	return &Record{TempMin: &minC, TempMax: &maxC, Condition: cond, IsReference: reference}
}

// NewPointRecord builds a point-in-time record.
func NewPointRecord(tempC int, cond Condition, reference bool) *Record {
	return &Record{Temp: &tempC, Condition: cond, IsReference: reference}
}

// Clone returns a deep copy of r. A nil record clones to nil.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := &Record{Condition: r.Condition, IsReference: r.IsReference}
	out.TempMin = cloneInt(r.TempMin)
	out.TempMax = cloneInt(r.TempMax)
	out.Temp = cloneInt(r.Temp)
	return out
}

// Equal reports whether r and o describe the same weather.
func (r *Record) Equal(o *Record) bool {
	if r == nil || o == nil {
		return r == o
	}
	return r.Condition == o.Condition &&
		r.IsReference == o.IsReference &&
		intPtrEqual(r.TempMin, o.TempMin) &&
		intPtrEqual(r.TempMax, o.TempMax) &&
		intPtrEqual(r.Temp, o.Temp)
}

// Coordinates is a geocoded point.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
