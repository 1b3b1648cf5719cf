// Package weather reads current conditions from the OpenWeatherMap API.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"busboard/internal/arrivals"
)

const source = "weather"

const kelvinOffset = 273.15

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Conditions is the subset of the current-weather response shown on the board.
type Conditions struct {
	City        string
	TempKelvin  float64
	Description string
	ObservedAt  time.Time
}

// Celsius returns the temperature in degrees Celsius.
func (c Conditions) Celsius() float64 {
	return c.TempKelvin - kelvinOffset
}

func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, httpClient: httpClient}
}

type currentResponse struct {
	Name string `json:"name"`
	Dt   int64  `json:"dt"`
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
}

// Current fetches the conditions for an OpenWeatherMap city id. Failures are
// reported as *arrivals.DataUnavailableError.
func (c *Client) Current(ctx context.Context, cityID int) (Conditions, error) {
	params := url.Values{}
	params.Set("id", strconv.Itoa(cityID))
	params.Set("APPID", c.cfg.APIKey)
	u := strings.TrimRight(c.cfg.BaseURL, "/") + "/weather?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Conditions{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Conditions{}, &arrivals.DataUnavailableError{Source: source, Kind: arrivals.FailureConnect, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Conditions{}, &arrivals.DataUnavailableError{Source: source, Kind: arrivals.FailureHTTPStatus, StatusCode: resp.StatusCode}
	}

	var body currentResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Conditions{}, &arrivals.DataUnavailableError{Source: source, Kind: arrivals.FailureParse, Err: err}
	}
	if len(body.Weather) == 0 {
		return Conditions{}, &arrivals.DataUnavailableError{Source: source, Kind: arrivals.FailureParse, Err: errors.New("response has no weather entries")}
	}

	cond := Conditions{
		City:        body.Name,
		TempKelvin:  body.Main.Temp,
		Description: body.Weather[0].Description,
	}
	if body.Dt > 0 {
		cond.ObservedAt = time.Unix(body.Dt, 0)
	}
	return cond, nil
}
