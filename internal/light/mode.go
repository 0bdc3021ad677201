// Package light turns lighting commands into modes and keeps the
// authoritative lighting state.
package light

import (
	"fmt"

	"lightstrip-controller/internal/color"
)

// Kind discriminates the closed set of lighting modes.
type Kind int

const (
	KindOff Kind = iota
	KindOn
	KindStatic
	KindEffect
	KindBrightness
)

func (k Kind) String() string {
	switch k {
	case KindOff:
		return "off"
	case KindOn:
		return "on"
	case KindStatic:
		return "static"
	case KindEffect:
		return "effect"
	case KindBrightness:
		return "brightness"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Mode is a lighting intent. Build it with the constructors below; only the
// fields belonging to Kind are meaningful.
type Mode struct {
	Kind       Kind
	Hue        float64
	Saturation float64
	EffectName string
	Level      uint8
}

// On restores the last active mode.
func On() Mode { return Mode{Kind: KindOn} }

// Off blanks the strip, keeping brightness and the last active mode.
func Off() Mode { return Mode{Kind: KindOff} }

// StaticColor shows one hue at full value; brightness is applied separately.
func StaticColor(hue, saturation float64) Mode {
	return Mode{Kind: KindStatic, Hue: hue, Saturation: saturation}
}

// Effect runs the named animation.
func Effect(name string) Mode {
	return Mode{Kind: KindEffect, EffectName: name}
}

// Brightness modifies the current mode, 0-255.
func Brightness(level uint8) Mode {
	return Mode{Kind: KindBrightness, Level: level}
}

// Color is the full value color of a static mode.
func (m Mode) Color() color.PixelColor {
	return color.FromHSV(m.Hue, m.Saturation, 1)
}

func (m Mode) String() string {
	switch m.Kind {
	case KindStatic:
		return fmt.Sprintf("static(h=%.1f s=%.2f)", m.Hue, m.Saturation)
	case KindEffect:
		return fmt.Sprintf("effect(%s)", m.EffectName)
	case KindBrightness:
		return fmt.Sprintf("brightness(%d)", m.Level)
	default:
		return m.Kind.String()
	}
}
