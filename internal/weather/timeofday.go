package weather

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/i474232898/tabilog/internal/common"
)

var clockPattern = regexp.MustCompile(`(\d{1,2})[:：](\d{2})`)

var (
	pmMarkers = []string{"pm", "p.m.", "afternoon", "evening", "night", "下午", "晚上", "傍晚"}
	amMarkers = []string{"am", "a.m.", "上午", "早上"}
)

// keyword buckets, in match order. "afternoon" must precede "noon".
var hourKeywords = []struct {
	hour  int
	words []string
}{
	{9, []string{"morning", "早上", "上午"}},
	{14, []string{"afternoon", "下午"}},
	{12, []string{"noon", "中午"}},
	{18, []string{"evening", "傍晚"}},
	{21, []string{"night", "晚上"}},
}

// ResolveHour maps a free-text time label to an hour of day (0-23).
// ok is false when the label names no specific hour.
func ResolveHour(label string) (hour int, ok bool) {
	lower := strings.ToLower(strings.TrimSpace(label))
	if lower == "" {
		return 0, false
	}

	if m := clockPattern.FindStringSubmatch(lower); m != nil {
		h, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, false
		}
		switch {
		case common.HasAny(lower, pmMarkers...) && h < 12:
			h += 12
		case common.HasAny(lower, amMarkers...) && h == 12:
			h = 0
		}
		if h > 23 {
			return 0, false
		}
		return h, true
	}

	for _, kw := range hourKeywords {
		if common.HasAny(lower, kw.words...) {
			return kw.hour, true
		}
	}
	return 0, false
}
