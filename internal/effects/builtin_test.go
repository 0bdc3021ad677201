package effects

import (
	"reflect"
	"testing"

	"lightstrip-controller/internal/color"
)

func TestBuiltinsRegistered(t *testing.T) {
	r := NewRegistry()
	RegisterBuiltins(r, 10)

	want := []string{Breathe, ColorWipe, Rainbow, RainbowCycle, Sparkle, TheaterChase}
	if got := r.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Names = %v, want %v", got, want)
	}

	for _, name := range want {
		t.Run(name, func(t *testing.T) {
			frame, ok := r.Next(name)
			if !ok {
				t.Fatal("no first frame")
			}
			if len(frame) != 10 {
				t.Errorf("frame length = %d, want 10", len(frame))
			}
		})
	}
}

func TestColorWipeIsBounded(t *testing.T) {
	a := NewColorWipe(3, color.Blue)

	for i := 0; i < 3; i++ {
		frame, ok := a.Next()
		if !ok {
			t.Fatalf("frame %d missing", i)
		}
		if frame[i] != color.Blue {
			t.Errorf("frame %d: led %d not lit", i, i)
		}
	}
	if _, ok := a.Next(); ok {
		t.Error("color wipe kept going after the last pixel")
	}

	a.Reset()
	frame, ok := a.Next()
	if !ok || frame[0] != color.Blue || frame[1] != color.Black {
		t.Errorf("after Reset first frame = %v, %v", frame, ok)
	}
}

func TestTheaterChase(t *testing.T) {
	c := color.Red
	a := NewTheaterChase(6, c)

	first, _ := a.Next()
	second, _ := a.Next()

	want1 := []color.PixelColor{c, color.Black, color.Black, c, color.Black, color.Black}
	want2 := []color.PixelColor{color.Black, c, color.Black, color.Black, c, color.Black}
	if !reflect.DeepEqual(first, want1) || !reflect.DeepEqual(second, want2) {
		t.Errorf("frames = %v, %v", first, second)
	}
}

func TestBreatheCycle(t *testing.T) {
	a := NewBreathe(1, color.White, 4)
	var levels []uint8
	for i := 0; i < 4; i++ {
		f, _ := a.Next()
		levels = append(levels, f[0].R)
	}
	if levels[0] != 0 || levels[2] != 255 {
		t.Errorf("breathe levels = %v, want dark at start and full at half period", levels)
	}
}

func TestFramesAreCopies(t *testing.T) {
	a := NewRainbow(2)
	f1, _ := a.Next()
	saved := f1[0]
	a.Next()
	if f1[0] != saved {
		t.Error("a returned frame changed after the next call")
	}
}

func TestSparkleResetRepeats(t *testing.T) {
	a := NewSparkle(40, 7)
	first, _ := a.Next()
	a.Next()
	a.Reset()
	again, _ := a.Next()
	if !reflect.DeepEqual(first, again) {
		t.Error("sparkle is not reproducible after Reset")
	}
}
