package arrivals

import "time"

// Selection is the arrival picked by SelectNext.
type Selection struct {
	At    time.Time
	Index int
	// Qualified is false when no arrival met the lead time and the fallback
	// entry was returned instead.
	Qualified bool
}

// SelectNext returns the first arrival at least minLead after now.
//
// When none qualifies the second arrival is returned if there is one, else
// the first, with Qualified set to false so callers can decide whether to show
// it. An empty sequence yields ErrNoArrivalData.
func SelectNext(resolved []time.Time, now time.Time, minLead time.Duration) (Selection, error) {
	if len(resolved) == 0 {
		return Selection{}, ErrNoArrivalData
	}
	for i, t := range resolved {
		if t.Sub(now) >= minLead {
			return Selection{At: t, Index: i, Qualified: true}, nil
		}
	}
	i := 0
	if len(resolved) > 1 {
		i = 1
	}
	return Selection{At: resolved[i], Index: i}, nil
}

// NextArrival runs the full chain for one route: normalize, parse, resolve,
// then select. Resolution is anchored at the start of now's minute because
// the API only reports minutes; a departure at 17:15 must not roll over to
// tomorrow when polled at 17:15:30.
func NextArrival(raw []string, layout string, now time.Time, minLead time.Duration) (Selection, error) {
	resolved, err := ResolveRaw(raw, layout, now.Truncate(time.Minute))
	if err != nil {
		return Selection{}, err
	}
	return SelectNext(resolved, now, minLead)
}
