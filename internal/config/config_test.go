package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Errorf("config = %+v, want defaults", cfg)
	}
	if cfg.Strip.PixelCount != 60 || cfg.Render.Period != 50*time.Millisecond || cfg.Strip.Bus != BusSPI {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
device:
  id: " porch "
  name: Porch Strip
strip:
  pixel_count: 150
  bus: " Serial "
  serial_port: /dev/ttyACM0
  write_timeout: 250ms
render:
  period: 20ms
  default_effect: rainbow_cycle
mqtt:
  enabled: true
  topic: /home/lights/
  ha_discovery_enabled: true
server:
  enabled: true
  port: "9090"
watch_patterns: true
logging:
  level: DEBUG
  format: json
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"device id trimmed", cfg.Device.ID, "porch"},
		{"pixel count", cfg.Strip.PixelCount, 150},
		{"bus normalized", cfg.Strip.Bus, BusSerial},
		{"write timeout", cfg.Strip.WriteTimeout, 250 * time.Millisecond},
		{"pages default", cfg.Strip.Pages, 2},
		{"period", cfg.Render.Period, 20 * time.Millisecond},
		{"default effect", cfg.Render.DefaultEffect, "rainbow_cycle"},
		{"topic slashes trimmed", cfg.MQTT.Topic, "home/lights"},
		{"discovery prefix default", cfg.MQTT.HADiscoveryPrefix, "homeassistant"},
		{"server port", cfg.Server.Port, "9090"},
		{"watch patterns", cfg.WatchPatterns, true},
		{"log level lowered", cfg.Logging.Level, "debug"},
		{"log format", cfg.Logging.Format, "json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !reflect.DeepEqual(tt.got, tt.want) {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"too many pixels", "strip:\n  pixel_count: 1025\n", "pixel_count"},
		{"negative pixels", "strip:\n  pixel_count: -3\n", "pixel_count"},
		{"unknown bus", "strip:\n  bus: i2c\n", "strip.bus"},
		{"negative rate", "intake:\n  rate_limit: -1\n", "rate_limit"},
		{"bad log format", "logging:\n  format: xml\n", "logging.format"},
		{"malformed yaml", "strip: [", "decode yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}
