package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"busboard/internal/arrivals"
	"busboard/internal/clock"
	"busboard/internal/logging"
	mmetrics "busboard/internal/metrics"
	"busboard/internal/weather"
)

// TransitSource supplies the raw departures for a stop.
type TransitSource interface {
	NextBuses(ctx context.Context, stop int, route string) (arrivals.RouteArrivalSet, error)
}

// WeatherSource supplies current conditions for a city.
type WeatherSource interface {
	Current(ctx context.Context, cityID int) (weather.Conditions, error)
}

// Sink shows a frame somewhere.
type Sink interface {
	Name() string
	Show(ctx context.Context, f Frame) error
}

// HistoryRecorder persists what the board saw and showed.
type HistoryRecorder interface {
	RecordArrivals(ctx context.Context, stop int, route string, observedAt time.Time, expected []time.Time) error
	RecordFrame(ctx context.Context, stop int, renderedAt time.Time, text string) error
}

type Options struct {
	Stop   int
	Routes []string // empty shows the first route the API lists
	CityID int

	ArrivalLayout string
	DisplayLayout string
	MinLead       time.Duration
	Interval      time.Duration
	Location      *time.Location
}

type Manager struct {
	transit TransitSource
	weather WeatherSource // nil disables the weather line
	clock   clock.Clock
	sinks   []Sink
	history HistoryRecorder
	metrics *mmetrics.Collector
	logger  *slog.Logger
	opts    Options

	mu       sync.Mutex
	lastText string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewManager(transit TransitSource, weatherSrc WeatherSource, clk clock.Clock, sinks []Sink, history HistoryRecorder, metrics *mmetrics.Collector, logger *slog.Logger, opts Options) *Manager {
	if clk == nil {
		clk = clock.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.ArrivalLayout == "" {
		opts.ArrivalLayout = arrivals.Layout12Hour
	}
	return &Manager{
		transit: transit,
		weather: weatherSrc,
		clock:   clk,
		sinks:   sinks,
		history: history,
		metrics: metrics,
		logger:  logger,
		opts:    opts,
	}
}

// Start launches the polling loop: one refresh immediately, then one per interval.
func (m *Manager) Start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	m.cancel = cancel
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		// immediate refresh on start
		_, _, _ = m.Refresh(ctx)
		if m.opts.Interval <= 0 {
			return
		}
		ticker := time.NewTicker(m.opts.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_, _, _ = m.Refresh(ctx)
			}
		}
	}()
}

// Stop cancels the polling loop and waits for it to exit.
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}

// Refresh runs one cycle: fetch, resolve, compose and, if the text changed,
// push the frame to every sink. The returned error joins every data failure
// that ended up as a placeholder on the frame.
func (m *Manager) Refresh(ctx context.Context) (Frame, bool, error) {
	start := time.Now()
	now := clock.In(m.clock, m.opts.Location)

	var (
		set        arrivals.RouteArrivalSet
		transitErr error
		cond       weather.Conditions
		weatherErr error
	)

	var g errgroup.Group
	g.Go(func() error {
		t0 := time.Now()
		set, transitErr = m.transit.NextBuses(ctx, m.opts.Stop, m.routeFilter())
		m.observeFetch("transit", time.Since(t0), transitErr)
		return nil
	})
	if m.weather != nil {
		g.Go(func() error {
			t0 := time.Now()
			cond, weatherErr = m.weather.Current(ctx, m.opts.CityID)
			m.observeFetch("weather", time.Since(t0), weatherErr)
			return nil
		})
	}
	_ = g.Wait()

	in := Inputs{
		Now:            now,
		Stop:           m.opts.Stop,
		WeatherEnabled: m.weather != nil,
		Weather:        cond,
		WeatherErr:     weatherErr,
		TransitErr:     transitErr,
		TimeLayout:     m.opts.DisplayLayout,
	}
	errs := []error{transitErr, weatherErr}
	if transitErr == nil {
		in.Routes = m.selectRoutes(ctx, set, now)
		for _, r := range in.Routes {
			if r.Err != nil {
				errs = append(errs, fmt.Errorf("route %s: %w", r.Route, r.Err))
			}
		}
	}

	frame := Compose(in)
	changed := m.publish(ctx, frame)

	if m.metrics != nil {
		m.metrics.Refreshes.Inc()
		m.metrics.RefreshDuration.Observe(time.Since(start).Seconds())
		m.metrics.LastRefresh.Set(float64(now.Unix()))
	}
	logging.LogOperation(m.logger, "board_refreshed",
		slog.Int("stop", m.opts.Stop),
		slog.Bool("changed", changed),
		slog.Duration("duration", time.Since(start)))

	return frame, changed, errors.Join(errs...)
}

// routeFilter narrows the API query when exactly one route is configured.
func (m *Manager) routeFilter() string {
	if len(m.opts.Routes) == 1 {
		return m.opts.Routes[0]
	}
	return ""
}

func (m *Manager) selectRoutes(ctx context.Context, set arrivals.RouteArrivalSet, now time.Time) []RouteResult {
	routes := m.opts.Routes
	if len(routes) == 0 {
		all := set.Routes()
		if len(all) == 0 {
			return nil
		}
		routes = all[:1]
	}

	anchor := now.Truncate(time.Minute)
	results := make([]RouteResult, 0, len(routes))
	for _, route := range routes {
		res := RouteResult{Route: route}
		raw, ok := set.Times(route)
		if !ok {
			res.Err = arrivals.ErrNoArrivalData
			results = append(results, res)
			continue
		}
		resolved, err := arrivals.ResolveRaw(raw, m.opts.ArrivalLayout, anchor)
		if err != nil {
			logging.LogError(m.logger, "unparseable departure time", err,
				slog.String("route", route), slog.Any("raw", raw))
			res.Err = err
			results = append(results, res)
			continue
		}
		if m.history != nil {
			if err := m.history.RecordArrivals(ctx, m.opts.Stop, route, now, resolved); err != nil {
				logging.LogError(m.logger, "record arrivals failed", err, slog.String("route", route))
			}
		}
		res.Selection, res.Err = arrivals.SelectNext(resolved, now, m.opts.MinLead)
		if res.Err == nil && !res.Selection.Qualified && m.metrics != nil {
			m.metrics.UnqualifiedPick.Inc()
		}
		results = append(results, res)
	}
	return results
}

// publish pushes frame to the sinks unless its text matches the last one shown.
func (m *Manager) publish(ctx context.Context, frame Frame) bool {
	text := frame.Text()
	m.mu.Lock()
	if text == m.lastText {
		m.mu.Unlock()
		return false
	}
	m.lastText = text
	m.mu.Unlock()

	for _, s := range m.sinks {
		if err := s.Show(ctx, frame); err != nil {
			logging.LogError(m.logger, "display sink failed", err, slog.String("sink", s.Name()))
			if m.metrics != nil {
				m.metrics.SinkErrors.WithLabelValues(s.Name()).Inc()
			}
		}
	}
	if m.history != nil {
		if err := m.history.RecordFrame(ctx, frame.Stop, frame.RenderedAt, text); err != nil {
			logging.LogError(m.logger, "record frame failed", err)
		}
	}
	if m.metrics != nil {
		m.metrics.FramesPublished.Inc()
	}
	return true
}

func (m *Manager) observeFetch(source string, d time.Duration, err error) {
	if m.metrics != nil {
		m.metrics.FetchDuration.WithLabelValues(source).Observe(d.Seconds())
	}
	if err == nil {
		return
	}
	kind := "other"
	if du, ok := arrivals.IsDataUnavailable(err); ok {
		kind = du.Kind.String()
	}
	if m.metrics != nil {
		m.metrics.FetchErrors.WithLabelValues(source, kind).Inc()
	}
	if transientFailure(err) {
		m.logger.Warn("fetch failed, will retry next cycle", "source", source, "kind", kind, "error", err.Error())
		return
	}
	logging.LogError(m.logger, "fetch failed", err, slog.String("source", source), slog.String("kind", kind))
}

func transientFailure(err error) bool {
	if du, ok := arrivals.IsDataUnavailable(err); ok {
		return du.Transient()
	}
	return !errors.Is(err, context.Canceled)
}
