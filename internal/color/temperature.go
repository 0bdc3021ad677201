package color

import (
	"fmt"
	"math"
	"sort"

	"lightstrip-controller/internal/x/mathx"
)

const (
	MinKelvin = 1000
	MaxKelvin = 40000
)

type kelvinPoint struct {
	k       int
	r, g, b uint8
}

// Black-body approximation sampled from Tanner Helland's fit.
var kelvinTable = []kelvinPoint{
	{1000, 255, 68, 0},
	{1500, 255, 108, 0},
	{2000, 255, 137, 14},
	{2500, 255, 159, 70},
	{3000, 255, 177, 110},
	{3500, 255, 193, 141},
	{4000, 255, 206, 166},
	{4500, 255, 218, 187},
	{5000, 255, 228, 206},
	{5500, 255, 237, 222},
	{6000, 255, 246, 237},
	{6500, 255, 254, 250},
	{7000, 243, 242, 255},
	{7500, 230, 235, 255},
	{8000, 221, 230, 255},
	{8500, 215, 226, 255},
	{9000, 210, 223, 255},
	{9500, 205, 220, 255},
	{10000, 202, 218, 255},
	{11000, 196, 214, 255},
	{12000, 191, 211, 255},
	{14000, 184, 207, 255},
	{16000, 179, 203, 255},
	{20000, 171, 198, 255},
	{25000, 164, 194, 255},
	{30000, 159, 190, 255},
	{40000, 152, 186, 255},
}

// MiredToKelvin converts a reciprocal megakelvin value to Kelvin.
func MiredToKelvin(mired int) (int, error) {
	if mired <= 0 {
		return 0, fmt.Errorf("mired must be positive, got %d", mired)
	}
	return 1_000_000 / mired, nil
}

// FromKelvin approximates the color of a black body at the given temperature.
// Temperatures outside [MinKelvin, MaxKelvin] are clamped.
func FromKelvin(kelvin int) PixelColor {
	kelvin = mathx.Clamp(kelvin, MinKelvin, MaxKelvin)
	i := sort.Search(len(kelvinTable), func(i int) bool { return kelvinTable[i].k >= kelvin })
	hi := kelvinTable[i]
	if hi.k == kelvin || i == 0 {
		return PixelColor{hi.r, hi.g, hi.b}
	}
	lo := kelvinTable[i-1]
	t := float64(kelvin-lo.k) / float64(hi.k-lo.k)
	return PixelColor{
		R: lerp8(lo.r, hi.r, t),
		G: lerp8(lo.g, hi.g, t),
		B: lerp8(lo.b, hi.b, t),
	}
}

func lerp8(a, b uint8, t float64) uint8 {
	return uint8(math.Round(mathx.Lerp(float64(a), float64(b), t)))
}
