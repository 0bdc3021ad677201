package effects

import (
	"math"
	"math/rand/v2"

	"lightstrip-controller/internal/color"
)

// Names of the animations every strip has.
const (
	Rainbow      = "rainbow"
	RainbowCycle = "rainbow_cycle"
	Breathe      = "breathe"
	ColorWipe    = "color_wipe"
	TheaterChase = "theater_chase"
	Sparkle      = "sparkle"
)

// RegisterBuiltins adds the built-in animations sized for count pixels.
func RegisterBuiltins(r *Registry, count int) {
	r.Register(Rainbow, NewRainbow(count))
	r.Register(RainbowCycle, NewRainbowCycle(count))
	r.Register(Breathe, NewBreathe(count, color.White, 80))
	r.Register(ColorWipe, NewColorWipe(count, color.Green))
	r.Register(TheaterChase, NewTheaterChase(count, color.RGB(255, 147, 41)))
	r.Register(Sparkle, NewSparkle(count, 1))
}

// frameBuf is the shared state of the built-in animations: a frame reused
// between calls and a frame counter.
type frameBuf struct {
	frame []color.PixelColor
	step  int
}

func newFrameBuf(count int) frameBuf {
	return frameBuf{frame: make([]color.PixelColor, count)}
}

func (f *frameBuf) Reset() {
	f.step = 0
	for i := range f.frame {
		f.frame[i] = color.Black
	}
}

func (f *frameBuf) emit() []color.PixelColor {
	out := make([]color.PixelColor, len(f.frame))
	copy(out, f.frame)
	f.step++
	return out
}

// RainbowAnimation shows one hue on the whole strip and walks the color wheel.
type RainbowAnimation struct {
	frameBuf
	degPerFrame float64
}

func NewRainbow(count int) *RainbowAnimation {
	return &RainbowAnimation{frameBuf: newFrameBuf(count), degPerFrame: 2}
}

func (a *RainbowAnimation) Next() ([]color.PixelColor, bool) {
	c := color.FromHSV(float64(a.step)*a.degPerFrame, 1, 1)
	for i := range a.frame {
		a.frame[i] = c
	}
	return a.emit(), true
}

// RainbowCycleAnimation spreads the color wheel over the strip and rotates it.
type RainbowCycleAnimation struct {
	frameBuf
	degPerFrame float64
}

func NewRainbowCycle(count int) *RainbowCycleAnimation {
	return &RainbowCycleAnimation{frameBuf: newFrameBuf(count), degPerFrame: 4}
}

func (a *RainbowCycleAnimation) Next() ([]color.PixelColor, bool) {
	n := float64(len(a.frame))
	offset := float64(a.step) * a.degPerFrame
	for i := range a.frame {
		a.frame[i] = color.FromHSV(offset+float64(i)*360/n, 1, 1)
	}
	return a.emit(), true
}

// BreatheAnimation pulses a color between dark and full value.
type BreatheAnimation struct {
	frameBuf
	base   color.PixelColor
	period int
}

// NewBreathe pulses base once every period frames.
func NewBreathe(count int, base color.PixelColor, period int) *BreatheAnimation {
	if period < 2 {
		period = 2
	}
	return &BreatheAnimation{frameBuf: newFrameBuf(count), base: base, period: period}
}

func (a *BreatheAnimation) Next() ([]color.PixelColor, bool) {
	phase := 2 * math.Pi * float64(a.step%a.period) / float64(a.period)
	level := (1 - math.Cos(phase)) / 2
	c := a.base.Scale(level)
	for i := range a.frame {
		a.frame[i] = c
	}
	return a.emit(), true
}

// ColorWipeAnimation lights the strip one pixel per frame and then stops.
type ColorWipeAnimation struct {
	frameBuf
	c color.PixelColor
}

func NewColorWipe(count int, c color.PixelColor) *ColorWipeAnimation {
	return &ColorWipeAnimation{frameBuf: newFrameBuf(count), c: c}
}

func (a *ColorWipeAnimation) Next() ([]color.PixelColor, bool) {
	if a.step >= len(a.frame) {
		return nil, false
	}
	a.frame[a.step] = a.c
	return a.emit(), true
}

// TheaterChaseAnimation marches every third pixel along the strip.
type TheaterChaseAnimation struct {
	frameBuf
	c     color.PixelColor
	every int
}

func NewTheaterChase(count int, c color.PixelColor) *TheaterChaseAnimation {
	return &TheaterChaseAnimation{frameBuf: newFrameBuf(count), c: c, every: 3}
}

func (a *TheaterChaseAnimation) Next() ([]color.PixelColor, bool) {
	offset := a.step % a.every
	for i := range a.frame {
		if i%a.every == offset {
			a.frame[i] = a.c
		} else {
			a.frame[i] = color.Black
		}
	}
	return a.emit(), true
}

// SparkleAnimation flashes random pixels white and lets them fade out.
type SparkleAnimation struct {
	frameBuf
	seed uint64
	rng  *rand.Rand
	fade float64
}

// NewSparkle creates a sparkle animation whose sequence is fixed by seed.
func NewSparkle(count int, seed uint64) *SparkleAnimation {
	return &SparkleAnimation{
		frameBuf: newFrameBuf(count),
		seed:     seed,
		rng:      rand.New(rand.NewPCG(seed, seed)),
		fade:     0.7,
	}
}

func (a *SparkleAnimation) Reset() {
	a.frameBuf.Reset()
	a.rng = rand.New(rand.NewPCG(a.seed, a.seed))
}

func (a *SparkleAnimation) Next() ([]color.PixelColor, bool) {
	for i := range a.frame {
		a.frame[i] = a.frame[i].Scale(a.fade)
	}
	sparks := len(a.frame)/20 + 1
	for i := 0; i < sparks; i++ {
		a.frame[a.rng.IntN(len(a.frame))] = color.White
	}
	return a.emit(), true
}
