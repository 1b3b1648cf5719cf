// Package arrivals turns the loosely formatted departure times returned by the
// transit API into absolute timestamps and picks the next catchable one.
//
// The API only reports bare times of day ("5:15pm") in chronological order.
// Dates are inferred by assuming the sequence never moves backwards by more
// than a day: whenever a time of day would land before its predecessor it is
// pushed onto the following day.
package arrivals

import (
	"fmt"
	"time"
)

// TimeOfDay is an hour (0-23) and minute (0-59) without a date.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// On combines the time of day with a calendar date. Day values outside the
// month are normalised the way time.Date does.
func (t TimeOfDay) On(year int, month time.Month, day int, loc *time.Location) time.Time {
	return time.Date(year, month, day, t.Hour, t.Minute, 0, 0, loc)
}

// RouteArrivals holds the raw departure strings reported for one route.
type RouteArrivals struct {
	Route string
	Times []string
}

// RouteArrivalSet is the result of one stop query, in the order the API
// listed the routes.
type RouteArrivalSet []RouteArrivals

// Add appends a raw time to route, creating the route entry on first use.
func (s *RouteArrivalSet) Add(route, raw string) {
	for i := range *s {
		if (*s)[i].Route == route {
			(*s)[i].Times = append((*s)[i].Times, raw)
			return
		}
	}
	*s = append(*s, RouteArrivals{Route: route, Times: []string{raw}})
}

// Routes returns the route identifiers in API order.
func (s RouteArrivalSet) Routes() []string {
	out := make([]string, 0, len(s))
	for _, ra := range s {
		out = append(out, ra.Route)
	}
	return out
}

// Times returns the raw times for route.
func (s RouteArrivalSet) Times(route string) ([]string, bool) {
	for _, ra := range s {
		if ra.Route == route {
			return ra.Times, true
		}
	}
	return nil, false
}
