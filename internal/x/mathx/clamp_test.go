package mathx

import "testing"

func TestClamp(t *testing.T) {
	tests := []struct {
		name      string
		v, lo, hi int
		want      int
	}{
		{"inside", 5, 0, 10, 5},
		{"below", -3, 0, 10, 0},
		{"above", 300, 0, 255, 255},
		{"on the bound", 255, 0, 255, 255},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clamp(tt.v, tt.lo, tt.hi); got != tt.want {
				t.Errorf("Clamp(%d, %d, %d) = %d, want %d", tt.v, tt.lo, tt.hi, got, tt.want)
			}
		})
	}
}

func TestLerp(t *testing.T) {
	if got := Lerp(10.0, 20.0, 0.5); got != 15 {
		t.Errorf("Lerp midpoint = %v, want 15", got)
	}
	if got := Lerp(10.0, 20.0, 2); got != 20 {
		t.Errorf("Lerp past end = %v, want 20", got)
	}
}

func TestUnit(t *testing.T) {
	for _, v := range []float64{-0.5, 0, 0.25, 1, 7} {
		if got := Unit(v); got < 0 || got > 1 {
			t.Errorf("Unit(%v) = %v", v, got)
		}
	}
	if got := Unit(0.25); got != 0.25 {
		t.Errorf("Unit(0.25) = %v", got)
	}
}
