package transit

import "strings"

// apiError is the error body RTTI returns, either as a standalone <Error>
// document or as Code/Message children. The code appears as an attribute in
// some responses and as an element in others.
type apiError struct {
	CodeAttr string `xml:"Code,attr"`
	Code     string `xml:"Code"`
	Message  string `xml:"Message"`
}

func (e apiError) code() string {
	if c := strings.TrimSpace(e.Code); c != "" {
		return c
	}
	return strings.TrimSpace(e.CodeAttr)
}

type apiResponse interface {
	errorBody() apiError
}

type estimatesResponse struct {
	apiError
	NextBuses []nextBus `xml:"NextBus"`
}

func (r *estimatesResponse) errorBody() apiError { return r.apiError }

type nextBus struct {
	RouteNo   string     `xml:"RouteNo"`
	RouteName string     `xml:"RouteName"`
	Direction string     `xml:"Direction"`
	Schedules []schedule `xml:"Schedules>Schedule"`
}

type schedule struct {
	Destination       string `xml:"Destination"`
	ExpectedLeaveTime string `xml:"ExpectedLeaveTime"`
	ExpectedCountdown int    `xml:"ExpectedCountdown"`
	CancelledTrip     bool   `xml:"CancelledTrip"`
}

// StopInfo describes a stop as returned by the stops endpoint.
type StopInfo struct {
	apiError
	StopNo   int     `xml:"StopNo"`
	Name     string  `xml:"Name"`
	OnStreet string  `xml:"OnStreet"`
	AtStreet string  `xml:"AtStreet"`
	City     string  `xml:"City"`
	Routes   string  `xml:"Routes"`
	Lat      float64 `xml:"Latitude"`
	Lon      float64 `xml:"Longitude"`
}

func (s *StopInfo) errorBody() apiError { return s.apiError }
