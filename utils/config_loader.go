package utils

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ─── Sensor-level configs ───────────────────────────────────────────────

type SensorConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	RateHz  int  `mapstructure:"rate_hz" yaml:"rate_hz"`
}

// SensorsConfig holds one entry per motion sensor, keyed by sensor name
// ("accelerometer", "gyroscope", "magnetometer", "rotation_vector").
type SensorsConfig struct {
	Simulate bool                    `mapstructure:"simulate" yaml:"simulate"`
	Sensors  map[string]SensorConfig `mapstructure:"sensors" yaml:"sensors"`
}

// ─── Recording / schedule / announcement configs ────────────────────────

type RecordingConfig struct {
	Dir             string `mapstructure:"dir" yaml:"dir"`
	FlushIntervalMs int    `mapstructure:"flush_interval_ms" yaml:"flush_interval_ms"`
	BatchSize       int    `mapstructure:"batch_size" yaml:"batch_size"`
	BufferSizeKB    int    `mapstructure:"buffer_size_kb" yaml:"buffer_size_kb"`
}

type ScheduleConfig struct {
	PreNoticeMode  string  `mapstructure:"pre_notice_mode" yaml:"pre_notice_mode"`
	PreNoticeValue float64 `mapstructure:"pre_notice_value" yaml:"pre_notice_value"`
}

type AnnouncementsConfig struct {
	Enabled bool     `mapstructure:"enabled" yaml:"enabled"`
	Command []string `mapstructure:"command" yaml:"command"`
}

type ServerConfig struct {
	Address   string `mapstructure:"address" yaml:"address"`
	ExportDir string `mapstructure:"export_dir" yaml:"export_dir"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

// Config is the top-level structure of motion.yaml.
type Config struct {
	Recording     RecordingConfig     `mapstructure:"recording" yaml:"recording"`
	Sensors       SensorsConfig       `mapstructure:"sensors" yaml:"sensors"`
	Schedule      ScheduleConfig      `mapstructure:"schedule" yaml:"schedule"`
	Announcements AnnouncementsConfig `mapstructure:"announcements" yaml:"announcements"`
	Server        ServerConfig        `mapstructure:"server" yaml:"server"`
	Log           LogConfig           `mapstructure:"log" yaml:"log"`
}

const envPrefix = "MOTION"

func setDefaults(v *viper.Viper) {
	v.SetDefault("recording.dir", "recordings/MotionSensor")
	v.SetDefault("recording.flush_interval_ms", 1000)
	v.SetDefault("recording.batch_size", 1000)
	v.SetDefault("recording.buffer_size_kb", 64)

	v.SetDefault("sensors.simulate", true)
	v.SetDefault("sensors.sensors", map[string]any{
		"accelerometer":   map[string]any{"enabled": true, "rate_hz": 50},
		"gyroscope":       map[string]any{"enabled": true, "rate_hz": 50},
		"magnetometer":    map[string]any{"enabled": true, "rate_hz": 20},
		"rotation_vector": map[string]any{"enabled": true, "rate_hz": 20},
	})

	v.SetDefault("schedule.pre_notice_mode", "percentage")
	v.SetDefault("schedule.pre_notice_value", 50.0)

	v.SetDefault("announcements.enabled", true)
	v.SetDefault("announcements.command", []string{})

	v.SetDefault("server.address", "127.0.0.1:8080")
	v.SetDefault("server.export_dir", "recordings/exports")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
}

// ─── Loaders ────────────────────────────────────────────────────────────

// LoadConfig reads the YAML file at path (optional: a missing file yields
// defaults), applies MOTION_* environment overrides and a local .env file.
func LoadConfig(path string) (*Config, error) {
	// .env is optional; its absence is not an error.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var nf viper.ConfigFileNotFoundError
			if !errors.As(err, &nf) && !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// DefaultConfig returns the built-in defaults without touching the
// filesystem or environment.
func DefaultConfig() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// MarshalConfig renders cfg as YAML, the format LoadConfig reads.
func MarshalConfig(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}
