package board

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"busboard/internal/arrivals"
	"busboard/internal/weather"
)

var testNow = time.Date(2018, 10, 29, 17, 3, 0, 0, time.UTC)

func TestCompose_SingleRoute(t *testing.T) {
	f := Compose(Inputs{
		Now:            testNow,
		Stop:           51034,
		WeatherEnabled: true,
		Weather:        weather.Conditions{TempKelvin: 286.15, Description: "light rain"},
		Routes: []RouteResult{{
			Route:     "016",
			Selection: arrivals.Selection{At: testNow.Add(12 * time.Minute), Qualified: true},
		}},
	})

	assert.Equal(t, []string{
		"Mon Oct 29, 17:03",
		"13°C light rain",
		"Next bus: 17:15",
	}, f.Lines)
	assert.Equal(t, 51034, f.Stop)
	assert.Equal(t, testNow, f.RenderedAt)
	assert.Equal(t, "Mon Oct 29, 17:03\n13°C light rain\nNext bus: 17:15", f.Text())
}

func TestCompose_MultipleRoutes(t *testing.T) {
	f := Compose(Inputs{
		Now: testNow,
		Routes: []RouteResult{
			{Route: "016", Selection: arrivals.Selection{At: testNow.Add(5 * time.Minute), Qualified: true}},
			{Route: "033", Selection: arrivals.Selection{At: testNow.Add(2 * time.Minute)}},
			{Route: "099", Err: arrivals.ErrNoArrivalData},
		},
	})

	assert.Equal(t, []string{
		"Mon Oct 29, 17:03",
		"016: 17:08",
		"033: 17:05*",
		"099: NO DATA",
	}, f.Lines)
}

func TestCompose_WeatherDisabledOmitsLine(t *testing.T) {
	f := Compose(Inputs{Now: testNow, WeatherErr: errors.New("ignored")})

	assert.Equal(t, []string{"Mon Oct 29, 17:03", "Next bus: NO DATA"}, f.Lines)
}

func TestCompose_Failures(t *testing.T) {
	f := Compose(Inputs{
		Now:            testNow,
		WeatherEnabled: true,
		WeatherErr:     &arrivals.DataUnavailableError{Source: "weather", Kind: arrivals.FailureConnect},
		TransitErr:     &arrivals.DataUnavailableError{Source: "transit", Kind: arrivals.FailureAPI, Code: "3005"},
	})

	assert.Equal(t, []string{
		"Mon Oct 29, 17:03",
		WeatherErrorText,
		"Next bus: API ERROR 3005",
	}, f.Lines)
}

func TestCompose_CustomLayout(t *testing.T) {
	f := Compose(Inputs{
		Now:        testNow,
		TimeLayout: "3:04pm",
		Routes: []RouteResult{{
			Route:     "016",
			Selection: arrivals.Selection{At: testNow.Add(12 * time.Minute), Qualified: true},
		}},
	})

	assert.Equal(t, "Mon Oct 29, 5:03pm", f.Lines[0])
	assert.Equal(t, "Next bus: 5:15pm", f.Lines[1])
}

func TestFallback(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"connect", &arrivals.DataUnavailableError{Kind: arrivals.FailureConnect}, "CONNECT ERROR"},
		{"http status", &arrivals.DataUnavailableError{Kind: arrivals.FailureHTTPStatus, StatusCode: 500}, "HTTP ERROR 500"},
		{"parse", &arrivals.DataUnavailableError{Kind: arrivals.FailureParse}, "PARSE ERROR"},
		{"wrapped api", errors.Join(errors.New("x"), &arrivals.DataUnavailableError{Kind: arrivals.FailureAPI, Code: "1"}), "API ERROR 1"},
		{"no data", arrivals.ErrNoArrivalData, NoDataText},
		{"malformed", &arrivals.MalformedTimeError{Raw: "x", Layout: arrivals.Layout12Hour}, ErrorText},
		{"other", errors.New("boom"), ErrorText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Fallback(tt.err))
		})
	}
}
