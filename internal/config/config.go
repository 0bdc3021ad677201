// Package config loads the agent configuration from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Bus backends.
const (
	BusSPI    = "spi"
	BusSerial = "serial"
	BusNone   = "none"
)

const MaxPixels = 1024

// DeviceConfig identifies the strip towards MQTT and Home Assistant.
type DeviceConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// StripConfig describes the strip and the bus it hangs on.
type StripConfig struct {
	PixelCount   int           `yaml:"pixel_count"`
	Pages        int           `yaml:"pages"`
	Bus          string        `yaml:"bus"`
	SPIPort      string        `yaml:"spi_port"`
	SerialPort   string        `yaml:"serial_port"`
	SerialBaud   int           `yaml:"serial_baud"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// RenderConfig controls the render loop.
type RenderConfig struct {
	Period        time.Duration `yaml:"period"`
	DefaultEffect string        `yaml:"default_effect"`
}

// IntakeConfig bounds the command queue and how fast it is drained.
type IntakeConfig struct {
	QueueSize int     `yaml:"queue_size"`
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
}

// MQTTConfig holds the broker connection and Home Assistant discovery settings.
type MQTTConfig struct {
	Enabled            bool          `yaml:"enabled"`
	Broker             string        `yaml:"broker"` // tcp://IP:PORT
	Username           string        `yaml:"username"`
	Password           string        `yaml:"password"`
	ClientID           string        `yaml:"client_id"`
	Topic              string        `yaml:"topic"`
	KeepAlive          time.Duration `yaml:"keep_alive"`
	HADiscoveryEnabled bool          `yaml:"ha_discovery_enabled"`
	HADiscoveryPrefix  string        `yaml:"ha_discovery_prefix"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Port           string   `yaml:"port"`
	WebFilesDir    string   `yaml:"web_files_dir"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LoggingConfig selects the log level, format (text or json) and output
// (stdout, stderr or a file path).
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Config is the root of the configuration file.
type Config struct {
	Device  DeviceConfig  `yaml:"device"`
	Strip   StripConfig   `yaml:"strip"`
	Render  RenderConfig  `yaml:"render"`
	Intake  IntakeConfig  `yaml:"intake"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`

	PatternsDir   string `yaml:"patterns_dir"`
	WatchPatterns bool   `yaml:"watch_patterns"`
	SchedulesFile string `yaml:"schedules_file"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// Load reads the file at path, applies defaults and validates the result.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration data.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode yaml: %w", err)
	}

	cfg.sanitize()
	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) sanitize() {
	c.Device.ID = strings.TrimSpace(c.Device.ID)
	c.Device.Name = strings.TrimSpace(c.Device.Name)
	c.Strip.Bus = strings.ToLower(strings.TrimSpace(c.Strip.Bus))
	c.Strip.SPIPort = strings.TrimSpace(c.Strip.SPIPort)
	c.Strip.SerialPort = strings.TrimSpace(c.Strip.SerialPort)
	c.Render.DefaultEffect = strings.TrimSpace(c.Render.DefaultEffect)
	c.MQTT.Topic = strings.Trim(strings.TrimSpace(c.MQTT.Topic), "/")
	c.Server.Port = strings.TrimSpace(c.Server.Port)
	c.Server.WebFilesDir = strings.TrimSpace(c.Server.WebFilesDir)
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.PatternsDir = strings.TrimSpace(c.PatternsDir)
	c.SchedulesFile = strings.TrimSpace(c.SchedulesFile)
}

func (c *Config) setDefaults() {
	// Device
	if c.Device.ID == "" {
		c.Device.ID = "lightstrip"
	}
	if c.Device.Name == "" {
		c.Device.Name = "LED Strip"
	}

	// Strip
	if c.Strip.PixelCount == 0 {
		c.Strip.PixelCount = 60
	}
	if c.Strip.Pages == 0 {
		c.Strip.Pages = 2
	}
	if c.Strip.Bus == "" {
		c.Strip.Bus = BusSPI
	}
	if c.Strip.SerialBaud == 0 {
		c.Strip.SerialBaud = 115200
	}
	if c.Strip.WriteTimeout == 0 {
		c.Strip.WriteTimeout = 100 * time.Millisecond
	}

	// Render
	if c.Render.Period == 0 {
		c.Render.Period = 50 * time.Millisecond
	}

	// Intake
	if c.Intake.QueueSize == 0 {
		c.Intake.QueueSize = 32
	}
	if c.Intake.RateLimit == 0 {
		c.Intake.RateLimit = 25.0
	}
	if c.Intake.RateBurst == 0 {
		c.Intake.RateBurst = 25
	}

	// MQTT
	if c.MQTT.Broker == "" {
		c.MQTT.Broker = "tcp://localhost:1883"
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "lightstrip-controller"
	}
	if c.MQTT.Topic == "" {
		c.MQTT.Topic = "lightstrip"
	}
	if c.MQTT.KeepAlive == 0 {
		c.MQTT.KeepAlive = 30 * time.Second
	}
	if c.MQTT.HADiscoveryPrefix == "" {
		c.MQTT.HADiscoveryPrefix = "homeassistant"
	}

	// Server
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.WebFilesDir == "" {
		c.Server.WebFilesDir = "./web"
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"http://localhost:8080"}
	}

	// Logging
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stderr"
	}

	// Files
	if c.PatternsDir == "" {
		c.PatternsDir = "patterns"
	}
	if c.SchedulesFile == "" {
		c.SchedulesFile = "schedules.json"
	}
}

func (c *Config) validate() error {
	var errs []error

	if c.Strip.PixelCount < 1 || c.Strip.PixelCount > MaxPixels {
		errs = append(errs, fmt.Errorf("strip.pixel_count must be 1-%d, got %d", MaxPixels, c.Strip.PixelCount))
	}
	if c.Strip.Pages < 1 {
		errs = append(errs, fmt.Errorf("strip.pages must be at least 1, got %d", c.Strip.Pages))
	}
	switch c.Strip.Bus {
	case BusSPI, BusSerial, BusNone:
	default:
		errs = append(errs, fmt.Errorf("strip.bus must be one of spi, serial, none; got %q", c.Strip.Bus))
	}
	if c.Strip.WriteTimeout < 0 {
		errs = append(errs, errors.New("strip.write_timeout must not be negative"))
	}
	if c.Render.Period < 0 {
		errs = append(errs, errors.New("render.period must be positive"))
	}
	if c.Intake.QueueSize < 0 {
		errs = append(errs, errors.New("intake.queue_size must be positive"))
	}
	if c.Intake.RateLimit < 0 {
		errs = append(errs, errors.New("intake.rate_limit must be positive"))
	}
	if c.Intake.RateBurst < 0 {
		errs = append(errs, errors.New("intake.rate_burst must be positive"))
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config error: %w", errors.Join(errs...))
	}
	return nil
}
