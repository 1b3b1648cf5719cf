package arrivals

import (
	"errors"
	"strings"
	"time"
)

// Layouts understood by Parse. The transit API reports Layout12Hour.
const (
	Layout12Hour = "3:04pm"
	Layout24Hour = "15:04"
)

// Normalize rewrites the API's "24:MM" hour quirk to "00:MM". Any other input
// is returned unchanged.
func Normalize(raw string) string {
	if strings.HasPrefix(raw, "24") {
		return "00" + raw[2:]
	}
	return raw
}

// Parse reads a normalized time string with the given Go time layout.
func Parse(normalized, layout string) (TimeOfDay, error) {
	if layout == "" {
		return TimeOfDay{}, &MalformedTimeError{Raw: normalized, Layout: layout, Err: errors.New("empty layout")}
	}
	t, err := time.Parse(layout, strings.TrimSpace(normalized))
	if err != nil {
		return TimeOfDay{}, &MalformedTimeError{Raw: normalized, Layout: layout, Err: err}
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// ParseAll normalizes and parses every raw string, stopping at the first failure.
func ParseAll(raw []string, layout string) ([]TimeOfDay, error) {
	out := make([]TimeOfDay, 0, len(raw))
	for _, r := range raw {
		tod, err := Parse(Normalize(r), layout)
		if err != nil {
			return nil, err
		}
		out = append(out, tod)
	}
	return out, nil
}
