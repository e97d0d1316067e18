package weather

// ConditionFromWMO maps a WMO weather interpretation code to a Condition.
// Unmapped codes are treated as Sunny.
func ConditionFromWMO(code int) Condition {
	switch {
	case code == 0 || code == 1:
		return ConditionSunny
	case code == 2 || code == 3 || code == 45 || code == 48:
		return ConditionCloudy
	case code >= 51 && code <= 67:
		return ConditionRain
	case code >= 71 && code <= 77:
		return ConditionSnow
	case code >= 80 && code <= 82:
		return ConditionRain
	case code == 85 || code == 86:
		return ConditionSnow
	case code >= 95 && code <= 99:
		// thunderstorm
		return ConditionRain
	default:
		return ConditionSunny
	}
}
