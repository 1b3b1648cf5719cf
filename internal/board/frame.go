// Package board composes the text frame shown on the display and runs the
// polling loop that keeps it current.
package board

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"busboard/internal/arrivals"
	"busboard/internal/weather"
)

// Display values used when a line has no data to show.
const (
	WeatherErrorText = "WEATHER ERROR"
	NoDataText       = "NO DATA"
	ErrorText        = "ERROR"

	// unqualifiedMark flags a departure that is sooner than the minimum lead time.
	unqualifiedMark = "*"
)

// Frame is one rendered set of display lines.
type Frame struct {
	Stop       int
	Lines      []string
	RenderedAt time.Time
}

// Text joins the lines the way they appear on screen.
func (f Frame) Text() string {
	return strings.Join(f.Lines, "\n")
}

// RouteResult is the outcome of selecting the next departure for one route.
type RouteResult struct {
	Route     string
	Selection arrivals.Selection
	Err       error
}

// Inputs collects everything Compose needs for one frame.
type Inputs struct {
	Now  time.Time
	Stop int

	WeatherEnabled bool
	Weather        weather.Conditions
	WeatherErr     error

	Routes     []RouteResult
	TransitErr error

	// TimeLayout formats times on the display, "15:04" if empty.
	TimeLayout string
}

// Compose builds the display frame: a date line, an optional weather line and
// the next departure per route.
func Compose(in Inputs) Frame {
	layout := in.TimeLayout
	if layout == "" {
		layout = "15:04"
	}

	lines := []string{in.Now.Format("Mon Jan 2, ") + in.Now.Format(layout)}

	if in.WeatherEnabled {
		if in.WeatherErr != nil {
			lines = append(lines, WeatherErrorText)
		} else {
			lines = append(lines, fmt.Sprintf("%.0f°C %s", in.Weather.Celsius(), in.Weather.Description))
		}
	}

	switch {
	case in.TransitErr != nil:
		lines = append(lines, "Next bus: "+Fallback(in.TransitErr))
	case len(in.Routes) == 0:
		lines = append(lines, "Next bus: "+NoDataText)
	case len(in.Routes) == 1:
		lines = append(lines, "Next bus: "+departureText(in.Routes[0], layout))
	default:
		for _, r := range in.Routes {
			lines = append(lines, r.Route+": "+departureText(r, layout))
		}
	}

	return Frame{Stop: in.Stop, Lines: lines, RenderedAt: in.Now}
}

func departureText(r RouteResult, layout string) string {
	if r.Err != nil {
		return Fallback(r.Err)
	}
	s := r.Selection.At.Format(layout)
	if !r.Selection.Qualified {
		s += unqualifiedMark
	}
	return s
}

// Fallback picks the display value for a failed lookup by error kind.
func Fallback(err error) string {
	if du, ok := arrivals.IsDataUnavailable(err); ok {
		return du.Placeholder()
	}
	if errors.Is(err, arrivals.ErrNoArrivalData) {
		return NoDataText
	}
	return ErrorText
}
