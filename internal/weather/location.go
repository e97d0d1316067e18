package weather

import "strings"

// routeSeparators split route-style locations such as "Tokyo ➔ Kusatsu".
var routeSeparators = []string{"➔", "→", "->"}

// ResolveLocation extracts the searchable place name from a raw location.
// For a route the destination (text after the last separator) is used.
// ok is false when nothing searchable remains.
func ResolveLocation(raw string) (name string, ok bool) {
	name = raw
	cut := -1
	sepLen := 0
	for _, sep := range routeSeparators {
		if i := strings.LastIndex(raw, sep); i > cut {
			cut = i
			sepLen = len(sep)
		}
	}
	if cut >= 0 {
		name = raw[cut+sepLen:]
	}
	name = strings.TrimSpace(name)
	return name, name != ""
}
