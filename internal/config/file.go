package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const defaultConfigFile = "config.yaml"

// FileConfig is the optional YAML configuration file. Zero values leave the
// defaults untouched.
type FileConfig struct {
	TranslinkAPIKey    string   `yaml:"translink_api_key"`
	TranslinkBaseURL   string   `yaml:"translink_base_url" validate:"omitempty,url"`
	StopNumber         int      `yaml:"stop_number" validate:"gte=0"`
	Routes             []string `yaml:"routes" validate:"dive,required"`
	ArrivalCount       int      `yaml:"arrival_count" validate:"gte=0,lte=10"`
	TimeFrameMinutes   int      `yaml:"time_frame_minutes" validate:"gte=0,lte=1440"`
	ArrivalTimeLayout  string   `yaml:"arrival_time_layout"`
	DisplayTimeLayout  string   `yaml:"display_time_layout"`
	MinLeadMinutes     *int     `yaml:"min_lead_minutes" validate:"omitempty,gte=0"`
	OpenWeatherAPIKey  string   `yaml:"openweathermap_api_key"`
	OpenWeatherBaseURL string   `yaml:"openweathermap_base_url" validate:"omitempty,url"`
	CityID             int      `yaml:"city_id" validate:"gte=0"`
	RefreshIntervalSec int      `yaml:"refresh_interval_sec" validate:"gte=0"`
	RequestsPerMinute  int      `yaml:"requests_per_minute" validate:"gte=0"`
	HTTPTimeoutSec     int      `yaml:"http_timeout_sec" validate:"gte=0"`
	Timezone           string   `yaml:"timezone"`
	DisplayColumns     int      `yaml:"display_columns" validate:"gte=0"`
	DisplayRows        int      `yaml:"display_rows" validate:"gte=0"`
	OutputFile         string   `yaml:"output_file"`
	NATSURL            string   `yaml:"nats_url" validate:"omitempty,url"`
	NATSSubject        string   `yaml:"nats_subject"`
	LogLevel           string   `yaml:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
	LogFile            string   `yaml:"log_file"`
}

// LoadFile reads and validates a YAML configuration file.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, err
	}
	v := validator.New()
	if err := v.Struct(fc); err != nil {
		return nil, err
	}
	return &fc, nil
}

func (fc *FileConfig) apply(cfg *Config) error {
	setString(&cfg.TransitAPIKey, fc.TranslinkAPIKey)
	setString(&cfg.TransitBaseURL, fc.TranslinkBaseURL)
	setString(&cfg.ArrivalTimeLayout, fc.ArrivalTimeLayout)
	setString(&cfg.DisplayTimeLayout, fc.DisplayTimeLayout)
	setString(&cfg.WeatherAPIKey, fc.OpenWeatherAPIKey)
	setString(&cfg.WeatherBaseURL, fc.OpenWeatherBaseURL)
	setString(&cfg.OutputFile, fc.OutputFile)
	setString(&cfg.NATSURL, fc.NATSURL)
	setString(&cfg.NATSSubject, fc.NATSSubject)
	setString(&cfg.LogLevel, fc.LogLevel)
	setString(&cfg.LogFile, fc.LogFile)

	setInt(&cfg.StopNumber, fc.StopNumber)
	setInt(&cfg.ArrivalCount, fc.ArrivalCount)
	setInt(&cfg.TimeFrameMinutes, fc.TimeFrameMinutes)
	setInt(&cfg.CityID, fc.CityID)
	setInt(&cfg.RequestsPerMinute, fc.RequestsPerMinute)
	setInt(&cfg.DisplayColumns, fc.DisplayColumns)
	setInt(&cfg.DisplayRows, fc.DisplayRows)

	if len(fc.Routes) > 0 {
		cfg.Routes = append([]string(nil), fc.Routes...)
	}
	if fc.MinLeadMinutes != nil {
		cfg.MinLead = time.Duration(*fc.MinLeadMinutes) * time.Minute
	}
	if fc.RefreshIntervalSec > 0 {
		cfg.RefreshInterval = time.Duration(fc.RefreshIntervalSec) * time.Second
	}
	if fc.HTTPTimeoutSec > 0 {
		cfg.HTTPTimeout = time.Duration(fc.HTTPTimeoutSec) * time.Second
	}
	if fc.Timezone != "" {
		loc, err := time.LoadLocation(fc.Timezone)
		if err != nil {
			return fmt.Errorf("invalid timezone: %v", err)
		}
		cfg.Location = loc
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
