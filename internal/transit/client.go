// Package transit fetches real-time departure estimates from Translink's
// RTTI API and hands back the raw leave times per route.
package transit

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"busboard/internal/arrivals"
)

const source = "transit"

// Config carries everything the client needs. There is no package-level key.
type Config struct {
	BaseURL           string
	APIKey            string
	Count             int // number of departures requested per route
	TimeFrame         int // search window in minutes
	Timeout           time.Duration
	RequestsPerMinute int // 0 disables client-side limiting
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient builds a client. A nil httpClient gets one with cfg.Timeout.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}
	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, 1),
	}
}

// NextBuses returns the upcoming leave times at stop, grouped by route in API
// order. route narrows the query to one route when non-empty. Failures are
// reported as *arrivals.DataUnavailableError.
func (c *Client) NextBuses(ctx context.Context, stop int, route string) (arrivals.RouteArrivalSet, error) {
	params := url.Values{}
	params.Set("apiKey", c.cfg.APIKey)
	if c.cfg.Count > 0 {
		params.Set("Count", strconv.Itoa(c.cfg.Count))
	}
	if c.cfg.TimeFrame > 0 {
		params.Set("TimeFrame", strconv.Itoa(c.cfg.TimeFrame))
	}
	if route != "" {
		params.Set("RouteNo", route)
	}

	var resp estimatesResponse
	if err := c.get(ctx, fmt.Sprintf("stops/%d/estimates", stop), params, &resp); err != nil {
		return nil, err
	}

	var set arrivals.RouteArrivalSet
	for _, nb := range resp.NextBuses {
		routeNo := strings.TrimSpace(nb.RouteNo)
		for _, s := range nb.Schedules {
			set.Add(routeNo, leaveTime(s.ExpectedLeaveTime))
		}
	}
	return set, nil
}

// Stop returns the stop's descriptive record.
func (c *Client) Stop(ctx context.Context, stop int) (StopInfo, error) {
	params := url.Values{}
	params.Set("apiKey", c.cfg.APIKey)

	var info StopInfo
	if err := c.get(ctx, fmt.Sprintf("stops/%d", stop), params, &info); err != nil {
		return StopInfo{}, err
	}
	info.Name = strings.TrimSpace(info.Name)
	info.Routes = strings.TrimSpace(info.Routes)
	return info, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out apiResponse) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	u := strings.TrimRight(c.cfg.BaseURL, "/") + "/" + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	// JSON is advertised but not honoured reliably; ask for XML.
	req.Header.Set("Accept", "application/xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &arrivals.DataUnavailableError{Source: source, Kind: arrivals.FailureConnect, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &arrivals.DataUnavailableError{Source: source, Kind: arrivals.FailureConnect, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		du := &arrivals.DataUnavailableError{Source: source, Kind: arrivals.FailureHTTPStatus, StatusCode: resp.StatusCode}
		var apiErr apiError
		if xml.Unmarshal(body, &apiErr) == nil {
			du.Code = apiErr.code()
			du.Message = strings.TrimSpace(apiErr.Message)
		}
		return du
	}

	if err := xml.Unmarshal(body, out); err != nil {
		return &arrivals.DataUnavailableError{Source: source, Kind: arrivals.FailureParse, Err: err}
	}
	if e := out.errorBody(); e.code() != "" {
		return &arrivals.DataUnavailableError{
			Source:  source,
			Kind:    arrivals.FailureAPI,
			Code:    e.code(),
			Message: strings.TrimSpace(e.Message),
		}
	}
	return nil
}

// leaveTime strips the date the API appends to departures on a later day
// ("12:05am 2018-10-29"), leaving the time of day.
func leaveTime(raw string) string {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
