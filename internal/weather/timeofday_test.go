package weather

import "testing"

func TestResolveHour(t *testing.T) {
	tests := []struct {
		label  string
		want   int
		wantOK bool
	}{
		{"14:30", 14, true},
		{"09:05", 9, true},
		{"2:30pm", 14, true},
		{"2:30 PM", 14, true},
		{"12:00am", 0, true},
		{"12:15pm", 12, true},
		{"下午 3:00", 15, true},
		{"3:00 afternoon", 15, true},
		{"7:30 evening", 19, true},
		{"11:00 night", 23, true},
		{"9:00 morning", 9, true},
		{"14：30", 14, true},
		{"Morning", 9, true},
		{"Afternoon", 14, true},
		{"noon", 12, true},
		{"Evening", 18, true},
		{"Night", 21, true},
		{"早上", 9, true},
		{"晚上", 21, true},
		{"25:00", 0, false},
		{"TBA", 0, false},
		{"", 0, false},
		{"All day", 0, false},
	}

	for _, tt := range tests {
		got, ok := ResolveHour(tt.label)
		if ok != tt.wantOK || (ok && got != tt.want) {
			t.Errorf("ResolveHour(%q) = (%d, %v), expected (%d, %v)", tt.label, got, ok, tt.want, tt.wantOK)
		}
	}
}
