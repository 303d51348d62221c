// Package config loads NowSound's runtime settings with viper: defaults,
// an optional YAML file, and validation before the graph starts.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	AppName    = "nowsound"
	ConfigType = "yaml"

	DefaultConfig = `# NowSound engine configuration

# Audio device settings
input_device: "default"   # capture device name, "default" for system default
output_device: "default"  # playback device name
sample_rate: 48000        # audio sample rate in Hz
channel_count: 2          # output channel count (stereo pan requires 2)

# Musical clock
beats_per_minute: 60       # initial tempo
beats_per_measure: 4

# Buffering
audio_buffer_seconds: 1.0    # validated only; pooled buffers always hold one second
pre_recording_seconds: 2.5   # rolling capture window before Record() is called

# Control surface
http_listen_address: "127.0.0.1:9972"

# Observability
log_level: "info"           # trace, debug, info, warn, error
sentry_dsn: ""               # empty disables telemetry capture
notification_url: ""         # shoutrrr URL, empty disables InError notifications
`
)

// Settings holds all engine configuration.
type Settings struct {
	InputDevice  string `mapstructure:"input_device"`
	OutputDevice string `mapstructure:"output_device"`
	SampleRate   int    `mapstructure:"sample_rate"`
	ChannelCount int    `mapstructure:"channel_count"`

	BeatsPerMinute  float32 `mapstructure:"beats_per_minute"`
	BeatsPerMeasure int     `mapstructure:"beats_per_measure"`

	AudioBufferSeconds  float32 `mapstructure:"audio_buffer_seconds"`
	PreRecordingSeconds float32 `mapstructure:"pre_recording_seconds"`

	HTTPListenAddress string `mapstructure:"http_listen_address"`

	LogLevel         string `mapstructure:"log_level"`
	SentryDSN        string `mapstructure:"sentry_dsn"`
	NotificationURL  string `mapstructure:"notification_url"`
}

// Init configures viper with defaults and reads a config file, creating a
// default one under the XDG config directory if none is found. Search order
// mirrors the current directory first, then the XDG path.
func Init() error {
	viper.SetDefault("input_device", "default")
	viper.SetDefault("output_device", "default")
	viper.SetDefault("sample_rate", 48000)
	viper.SetDefault("channel_count", 2)
	viper.SetDefault("beats_per_minute", 60.0)
	viper.SetDefault("beats_per_measure", 4)
	viper.SetDefault("audio_buffer_seconds", 1.0)
	viper.SetDefault("pre_recording_seconds", 2.5)
	viper.SetDefault("http_listen_address", "127.0.0.1:9972")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("sentry_dsn", "")
	viper.SetDefault("notification_url", "")

	viper.SetConfigType(ConfigType)
	viper.AddConfigPath(".")

	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	configDir = filepath.Join(configDir, AppName)
	viper.AddConfigPath(configDir)

	viper.SetConfigName(".config")
	if err = viper.ReadInConfig(); err != nil {
		viper.SetConfigName("config")
		err = viper.ReadInConfig()
	}

	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			if err = ensureConfigExists(configDir); err != nil {
				return err
			}
			if err = viper.ReadInConfig(); err != nil {
				return fmt.Errorf("read config: %w", err)
			}
		} else {
			return fmt.Errorf("read config: %w", err)
		}
	}

	return nil
}

func ensureConfigExists(configPath string) error {
	configFile := filepath.Join(configPath, "config.yaml")

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		if err = os.MkdirAll(configPath, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
		if err = os.WriteFile(configFile, []byte(DefaultConfig), 0o644); err != nil {
			return fmt.Errorf("write default config: %w", err)
		}
	}
	return nil
}

// Get unmarshals and validates the current viper settings.
func Get() (*Settings, error) {
	var s Settings
	if err := viper.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &s, nil
}

// Validate checks that settings fall within ranges the graph can operate on.
func (s *Settings) Validate() error {
	var errs []error

	if s.SampleRate < 8000 || s.SampleRate > 192000 {
		errs = append(errs, fmt.Errorf("sample_rate must be between 8000 and 192000 Hz, got %d", s.SampleRate))
	}
	if s.ChannelCount != 1 && s.ChannelCount != 2 {
		errs = append(errs, fmt.Errorf("channel_count must be 1 or 2, got %d", s.ChannelCount))
	}
	if s.BeatsPerMinute <= 0 || s.BeatsPerMinute > 400 {
		errs = append(errs, fmt.Errorf("beats_per_minute must be between 0 and 400, got %v", s.BeatsPerMinute))
	}
	if s.BeatsPerMeasure < 1 || s.BeatsPerMeasure > 32 {
		errs = append(errs, fmt.Errorf("beats_per_measure must be between 1 and 32, got %d", s.BeatsPerMeasure))
	}
	if s.AudioBufferSeconds <= 0 {
		errs = append(errs, fmt.Errorf("audio_buffer_seconds must be positive, got %v", s.AudioBufferSeconds))
	}
	if s.PreRecordingSeconds < 0 {
		errs = append(errs, fmt.Errorf("pre_recording_seconds must not be negative, got %v", s.PreRecordingSeconds))
	}

	switch s.LogLevel {
	case "trace", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level must be one of trace, debug, info, warn, error, got %q", s.LogLevel))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
