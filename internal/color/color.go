// Package color holds the pixel color value used across the strip pipeline
// and its conversions to and from hue/saturation/value space.
package color

import (
	"fmt"
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"lightstrip-controller/internal/x/mathx"
)

// PixelColor is a single 8-bit RGB pixel.
type PixelColor struct {
	R, G, B uint8
}

var (
	Black = PixelColor{0, 0, 0}
	White = PixelColor{255, 255, 255}
	Red   = PixelColor{255, 0, 0}
	Green = PixelColor{0, 255, 0}
	Blue  = PixelColor{0, 0, 255}
)

// RGB returns a PixelColor from its channels.
func RGB(r, g, b uint8) PixelColor {
	return PixelColor{R: r, G: g, B: b}
}

// FromHSV builds a color from hue in degrees, saturation and value in [0,1].
// Hue wraps around 360; saturation and value are clamped.
func FromHSV(h, s, v float64) PixelColor {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	r, g, b := colorful.Hsv(h, mathx.Unit(s), mathx.Unit(v)).Clamped().RGB255()
	return PixelColor{R: r, G: g, B: b}
}

// HSV returns hue in [0,360), saturation and value in [0,1].
func (c PixelColor) HSV() (h, s, v float64) {
	return c.colorful().Hsv()
}

// Scale returns the color with its value channel multiplied by f.
func (c PixelColor) Scale(f float64) PixelColor {
	if f >= 1 {
		return c
	}
	h, s, v := c.HSV()
	return FromHSV(h, s, v*mathx.Unit(f))
}

func (c PixelColor) String() string {
	return fmt.Sprintf("(R: %d, G: %d, B: %d)", c.R, c.G, c.B)
}

func (c PixelColor) colorful() colorful.Color {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
}
