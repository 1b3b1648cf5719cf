package arrivals

import "time"

// Resolve assigns a date to each time of day, starting from start's date and
// rolling over to the next day whenever an entry would fall before the one
// resolved ahead of it (or, for the first entry, before start itself).
//
// The input is assumed to be non-decreasing modulo 24 hours. Sequences that
// jump back by more than a day are resolved on a best-effort basis.
func Resolve(times []TimeOfDay, start time.Time) []time.Time {
	out := make([]time.Time, 0, len(times))
	loc := start.Location()
	year, month, day := start.Date()

	prev := start
	for _, tod := range times {
		candidate := tod.On(year, month, day, loc)
		if candidate.Before(prev) {
			day++
			candidate = tod.On(year, month, day, loc)
		}
		out = append(out, candidate)
		prev = candidate
	}
	return out
}

// ResolveRaw normalizes, parses and resolves a sequence of raw API strings.
func ResolveRaw(raw []string, layout string, start time.Time) ([]time.Time, error) {
	times, err := ParseAll(raw, layout)
	if err != nil {
		return nil, err
	}
	return Resolve(times, start), nil
}
