package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"busboard/internal/board"
	"busboard/internal/clock"
	"busboard/internal/config"
	"busboard/internal/db"
	"busboard/internal/logging"
	"busboard/internal/metrics"
	"busboard/internal/publisher"
	"busboard/internal/transit"
	"busboard/internal/weather"
)

func main() {
	once := flag.Bool("once", false, "refresh the board once, print the frame and exit")
	history := flag.Int("history", 0, "print the last N recorded frames for the stop and exit")
	flag.Parse()

	// Load configuration from .env, config.yaml and environment
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer closeLog()

	// Root context with cancellation on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Optional history database
	var hist *db.History
	if cfg.DatabaseURL != "" {
		sqlDB, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			fatal(logger, "db open error", err)
		}
		defer logging.SafeClose(sqlDB, logger, "close database")
		if err := db.Ping(ctx, sqlDB); err != nil {
			fatal(logger, "db ping error", err)
		}
		if err := db.EnsureSchema(ctx, sqlDB); err != nil {
			fatal(logger, "db schema error", err)
		}
		hist = db.NewHistory(sqlDB)
	}

	if *history > 0 {
		if hist == nil {
			fatal(logger, "history requires a database", errors.New("DATABASE_URL is not set"))
		}
		frames, err := hist.RecentFrames(ctx, cfg.StopNumber, *history)
		if err != nil {
			fatal(logger, "read history", err)
		}
		for _, f := range frames {
			fmt.Printf("%s\n\n", f)
		}
		return
	}

	// Metrics setup
	var mcol *metrics.Collector
	if cfg.MetricsAddr != "" && !*once {
		mcol = metrics.NewCollector(cfg.RefreshInterval, cfg.MinLead)
		srv := mcol.Serve(cfg.MetricsAddr, logger)
		go func() {
			<-ctx.Done()
			// Shutdown with timeout
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	transitClient := transit.NewClient(transit.Config{
		BaseURL:           cfg.TransitBaseURL,
		APIKey:            cfg.TransitAPIKey,
		Count:             cfg.ArrivalCount,
		TimeFrame:         cfg.TimeFrameMinutes,
		Timeout:           cfg.HTTPTimeout,
		RequestsPerMinute: cfg.RequestsPerMinute,
	}, nil)

	if info, err := transitClient.Stop(ctx, cfg.StopNumber); err != nil {
		logger.Warn("stop lookup failed", "stop", cfg.StopNumber, "error", err.Error())
	} else {
		logger.Info("watching stop", "stop", info.StopNo, "name", info.Name, "routes", info.Routes)
	}

	// A nil source leaves the weather line off the board.
	var weatherSrc board.WeatherSource
	if cfg.WeatherAPIKey != "" {
		weatherSrc = weather.NewClient(weather.Config{
			BaseURL: cfg.WeatherBaseURL,
			APIKey:  cfg.WeatherAPIKey,
			Timeout: cfg.HTTPTimeout,
		}, nil)
	}

	var sinks []board.Sink
	if !*once {
		sinks = append(sinks, &publisher.TextDisplay{W: os.Stdout, Columns: cfg.DisplayColumns, Rows: cfg.DisplayRows})
	}
	if cfg.OutputFile != "" {
		sinks = append(sinks, &publisher.FileDisplay{Path: cfg.OutputFile, Columns: cfg.DisplayColumns, Rows: cfg.DisplayRows})
	}
	if cfg.NATSURL != "" {
		var pm publisher.PublisherMetrics
		if mcol != nil {
			pm = mcol
		}
		pub, err := publisher.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubject, pm, logger)
		if err != nil {
			fatal(logger, "nats error", err)
		}
		defer pub.Close()
		sinks = append(sinks, pub)
	}

	var recorder board.HistoryRecorder
	if hist != nil {
		recorder = hist
	}

	mgr := board.NewManager(transitClient, weatherSrc, clock.RealClock{}, sinks, recorder, mcol, logger, board.Options{
		Stop:          cfg.StopNumber,
		Routes:        cfg.Routes,
		CityID:        cfg.CityID,
		ArrivalLayout: cfg.ArrivalTimeLayout,
		DisplayLayout: cfg.DisplayTimeLayout,
		MinLead:       cfg.MinLead,
		Interval:      cfg.RefreshInterval,
		Location:      cfg.Location,
	})

	if *once {
		frame, _, err := mgr.Refresh(ctx)
		for _, line := range publisher.Clip(frame, cfg.DisplayColumns, cfg.DisplayRows) {
			fmt.Println(line)
		}
		if err != nil {
			logging.LogError(logger, "refresh incomplete", err)
			os.Exit(1)
		}
		return
	}

	mgr.Start(ctx)
	logger.Info("board started", "stop", cfg.StopNumber, "routes", cfg.Routes, "interval", cfg.RefreshInterval.String())

	// Block until context cancelled
	<-ctx.Done()
	mgr.Stop()
	logger.Info("shutdown complete")
}

// newLogger writes JSON logs to LOG_FILE when set, otherwise to stderr so the
// text display keeps stdout.
func newLogger(cfg *config.Config) (*slog.Logger, func(), error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	var w io.Writer = os.Stderr
	closeFn := func() {}
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
		closeFn = func() { _ = f.Close() }
	}
	logger := logging.NewStructuredLogger(w, level)
	slog.SetDefault(logger)
	return logger, closeFn, nil
}

func fatal(logger *slog.Logger, msg string, err error) {
	logging.LogError(logger, msg, err)
	os.Exit(1)
}
