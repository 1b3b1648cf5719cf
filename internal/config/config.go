package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	TransitBaseURL    string
	TransitAPIKey     string
	StopNumber        int
	Routes            []string
	ArrivalCount      int
	TimeFrameMinutes  int
	ArrivalTimeLayout string
	DisplayTimeLayout string
	MinLead           time.Duration

	WeatherBaseURL string
	WeatherAPIKey  string
	CityID         int

	RefreshInterval   time.Duration
	RequestsPerMinute int
	HTTPTimeout       time.Duration
	Location          *time.Location

	DisplayColumns int
	DisplayRows    int
	OutputFile     string

	NATSURL     string
	NATSSubject string
	DatabaseURL string
	MetricsAddr string

	LogLevel string
	LogFile  string
}

const (
	defaultTransitBaseURL = "http://api.translink.ca/RTTIAPI/V1"
	defaultWeatherBaseURL = "http://api.openweathermap.org/data/2.5"
)

func defaults() *Config {
	return &Config{
		TransitBaseURL:    defaultTransitBaseURL,
		StopNumber:        51034, // Arbutus St at W 15 Ave
		ArrivalCount:      2,
		TimeFrameMinutes:  12 * 60,
		ArrivalTimeLayout: "3:04pm",
		DisplayTimeLayout: "15:04",
		MinLead:           4 * time.Minute,
		WeatherBaseURL:    defaultWeatherBaseURL,
		CityID:            6173331, // Vancouver, BC
		RefreshInterval:   5 * time.Minute,
		RequestsPerMinute: 30,
		HTTPTimeout:       10 * time.Second,
		Location:          time.Local,
		DisplayColumns:    22,
		DisplayRows:       4,
		NATSSubject:       "busboard.frames",
	}
}

func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := defaults()

	// Optional YAML file; environment variables override its values.
	path := os.Getenv("BUSBOARD_CONFIG")
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		}
	}
	if path != "" {
		fc, err := LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		if err := fc.apply(cfg); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if cfg.TransitAPIKey == "" {
		return nil, errors.New("TRANSLINK_API_KEY must be set (or translink_api_key in the config file)")
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	cfg.TransitBaseURL = getenvDefault("TRANSLINK_BASE_URL", cfg.TransitBaseURL)
	cfg.TransitAPIKey = getenvDefault("TRANSLINK_API_KEY", cfg.TransitAPIKey)
	cfg.WeatherBaseURL = getenvDefault("OPENWEATHERMAP_BASE_URL", cfg.WeatherBaseURL)
	cfg.WeatherAPIKey = getenvDefault("OPENWEATHERMAP_API_KEY", cfg.WeatherAPIKey)
	cfg.ArrivalTimeLayout = getenvDefault("ARRIVAL_TIME_LAYOUT", cfg.ArrivalTimeLayout)
	cfg.DisplayTimeLayout = getenvDefault("DISPLAY_TIME_LAYOUT", cfg.DisplayTimeLayout)

	if v := os.Getenv("ROUTES"); v != "" {
		cfg.Routes = splitList(v)
	}

	ints := []struct {
		key string
		dst *int
		min int
	}{
		{"STOP_NUMBER", &cfg.StopNumber, 1},
		{"ARRIVAL_COUNT", &cfg.ArrivalCount, 1},
		{"TIME_FRAME_MINUTES", &cfg.TimeFrameMinutes, 1},
		{"CITY_ID", &cfg.CityID, 1},
		{"REQUESTS_PER_MINUTE", &cfg.RequestsPerMinute, 0},
		{"DISPLAY_COLUMNS", &cfg.DisplayColumns, 1},
		{"DISPLAY_ROWS", &cfg.DisplayRows, 1},
	}
	for _, f := range ints {
		if v := os.Getenv(f.key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < f.min {
				return fmt.Errorf("invalid %s: %q", f.key, v)
			}
			*f.dst = n
		}
	}

	// Minimum lead time (minutes)
	if v := os.Getenv("MIN_LEAD_MINUTES"); v != "" {
		min, err := strconv.Atoi(v)
		if err != nil || min < 0 {
			return fmt.Errorf("invalid MIN_LEAD_MINUTES: %q", v)
		}
		cfg.MinLead = time.Duration(min) * time.Minute
	}

	// Refresh interval (seconds)
	if v := os.Getenv("REFRESH_INTERVAL_SEC"); v != "" {
		sec, err := strconv.Atoi(v)
		if err != nil || sec <= 0 {
			return fmt.Errorf("invalid REFRESH_INTERVAL_SEC: %q", v)
		}
		cfg.RefreshInterval = time.Duration(sec) * time.Second
	}

	if v := os.Getenv("HTTP_TIMEOUT_SEC"); v != "" {
		sec, err := strconv.Atoi(v)
		if err != nil || sec <= 0 {
			return fmt.Errorf("invalid HTTP_TIMEOUT_SEC: %q", v)
		}
		cfg.HTTPTimeout = time.Duration(sec) * time.Second
	}

	// Time zone
	if tzName := os.Getenv("TZ"); tzName != "" {
		loc, err := time.LoadLocation(tzName)
		if err != nil {
			return fmt.Errorf("invalid TZ: %v", err)
		}
		cfg.Location = loc
	}

	cfg.OutputFile = getenvDefault("OUTPUT_FILE", cfg.OutputFile)
	cfg.NATSURL = getenvDefault("NATS_URL", cfg.NATSURL)
	cfg.NATSSubject = getenvDefault("NATS_SUBJECT", cfg.NATSSubject)
	cfg.DatabaseURL = databaseURL()
	// Metrics listen address (e.g., ":9102"). Empty disables the metrics server.
	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")
	cfg.LogLevel = getenvDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFile = getenvDefault("LOG_FILE", cfg.LogFile)
	return nil
}

// databaseURL prefers DATABASE_URL / PG_DSN, else builds a DSN from PG* vars
// when PGDATABASE is set. Empty disables the history store.
func databaseURL() string {
	if dsn := firstNonEmpty(os.Getenv("DATABASE_URL"), os.Getenv("PG_DSN")); dsn != "" {
		return dsn
	}
	db := os.Getenv("PGDATABASE")
	if db == "" {
		return ""
	}
	host := getenvDefault("PGHOST", "127.0.0.1")
	port := getenvDefault("PGPORT", "5432")
	user := getenvDefault("PGUSER", "postgres")
	pass := os.Getenv("PGPASSWORD")
	sslmode := getenvDefault("PGSSLMODE", "disable")
	if pass != "" {
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", urlEscape(user), urlEscape(pass), host, port, db, sslmode)
	}
	return fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=%s", urlEscape(user), host, port, db, sslmode)
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func urlEscape(s string) string {
	// Minimal escape for DSN user/pass with special chars
	r := strings.NewReplacer("@", "%40", ":", "%3A", "/", "%2F", "?", "%3F", "#", "%23")
	return r.Replace(s)
}
