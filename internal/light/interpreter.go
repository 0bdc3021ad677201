package light

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"lightstrip-controller/internal/color"
)

const (
	StateOn  = "ON"
	StateOff = "OFF"
)

// ErrParse matches every error returned by Parse.
var ErrParse = errors.New("invalid light command")

// ParseError describes why a command payload was rejected.
type ParseError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	msg := "invalid light command"
	if e.Field != "" {
		msg += ": " + e.Field
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Is(target error) bool { return target == ErrParse }

func (e *ParseError) Unwrap() error { return e.Err }

func parseErr(field, reason string) error {
	return &ParseError{Field: field, Reason: reason}
}

// CommandColor is the color object of a command payload.
type CommandColor struct {
	R *int `json:"r"`
	G *int `json:"g"`
	B *int `json:"b"`
}

// Command is the JSON light command accepted on the set topic.
type Command struct {
	State      *string       `json:"state"`
	Brightness *int          `json:"brightness,omitempty"`
	Color      *CommandColor `json:"color,omitempty"`
	Effect     *string       `json:"effect,omitempty"`
	ColorTemp  *int          `json:"color_temp,omitempty"`

	// ColorTemperature is accepted as a long form of color_temp.
	ColorTemperature *int `json:"color_temperature,omitempty"`
}

type resolutionRule struct {
	name    string
	matches func(c *Command) bool
	resolve func(c *Command) (Mode, error)
}

// resolutionRules is evaluated in order; the first matching rule decides.
var resolutionRules = []resolutionRule{
	{
		name:    "off",
		matches: func(c *Command) bool { return strings.EqualFold(*c.State, StateOff) },
		resolve: func(*Command) (Mode, error) { return Off(), nil },
	},
	{
		name:    "unrecognized state",
		matches: func(c *Command) bool { return !strings.EqualFold(*c.State, StateOn) },
		resolve: func(c *Command) (Mode, error) {
			return Mode{}, parseErr("state", fmt.Sprintf("unrecognized state %q", *c.State))
		},
	},
	{
		name:    "color",
		matches: func(c *Command) bool { return c.Color != nil },
		resolve: resolveColor,
	},
	{
		name:    "effect",
		matches: func(c *Command) bool { return c.Effect != nil },
		resolve: func(c *Command) (Mode, error) {
			name := strings.TrimSpace(*c.Effect)
			if name == "" {
				return Mode{}, parseErr("effect", "empty effect name")
			}
			return Effect(name), nil
		},
	},
	{
		name:    "brightness",
		matches: func(c *Command) bool { return c.Brightness != nil },
		resolve: func(c *Command) (Mode, error) {
			level, err := channel("brightness", c.Brightness)
			if err != nil {
				return Mode{}, err
			}
			return Brightness(level), nil
		},
	},
	{
		name:    "color_temp",
		matches: func(c *Command) bool { return c.ColorTemp != nil },
		resolve: resolveColorTemp,
	},
	{
		name:    "on",
		matches: func(*Command) bool { return true },
		resolve: func(*Command) (Mode, error) { return On(), nil },
	},
}

// Parse decodes a JSON light command into a mode.
func Parse(raw []byte) (Mode, error) {
	var c Command
	if err := json.Unmarshal(raw, &c); err != nil {
		return Mode{}, &ParseError{Reason: "malformed payload", Err: err}
	}
	return Resolve(&c)
}

// Resolve maps a decoded command onto a mode.
func Resolve(c *Command) (Mode, error) {
	if c.State == nil {
		return Mode{}, parseErr("state", "missing")
	}
	if c.ColorTemp == nil && c.ColorTemperature != nil {
		alias := *c
		alias.ColorTemp = c.ColorTemperature
		c = &alias
	}
	for _, r := range resolutionRules {
		if r.matches(c) {
			return r.resolve(c)
		}
	}
	return On(), nil
}

func resolveColor(c *Command) (Mode, error) {
	r, err := channel("color.r", c.Color.R)
	if err != nil {
		return Mode{}, err
	}
	g, err := channel("color.g", c.Color.G)
	if err != nil {
		return Mode{}, err
	}
	b, err := channel("color.b", c.Color.B)
	if err != nil {
		return Mode{}, err
	}
	return fromColor(color.RGB(r, g, b)), nil
}

func resolveColorTemp(c *Command) (Mode, error) {
	kelvin, err := color.MiredToKelvin(*c.ColorTemp)
	if err != nil {
		return Mode{}, &ParseError{Field: "color_temp", Reason: "out of range", Err: err}
	}
	return fromColor(color.FromKelvin(kelvin)), nil
}

// fromColor drops the value channel; brightness is tracked separately.
func fromColor(c color.PixelColor) Mode {
	h, s, _ := c.HSV()
	return StaticColor(h, s)
}

func channel(field string, v *int) (uint8, error) {
	if v == nil {
		return 0, parseErr(field, "missing")
	}
	if *v < 0 || *v > 255 {
		return 0, parseErr(field, fmt.Sprintf("%d out of range 0-255", *v))
	}
	return uint8(*v), nil
}
