package light

import (
	"encoding/json"
	"math"
)

// StatusColor is the color object of a status payload.
type StatusColor struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Status is the retained state message published after every visible change.
type Status struct {
	State      string       `json:"state"`
	Brightness *uint8       `json:"brightness,omitempty"`
	ColorMode  string       `json:"color_mode,omitempty"`
	Color      *StatusColor `json:"color,omitempty"`
	Effect     string       `json:"effect,omitempty"`
}

// StatusOf renders a snapshot in the state message format. An off strip
// reports the state alone.
func StatusOf(s Snapshot) Status {
	if !s.IsOn() {
		return Status{State: StateOff}
	}

	level := BrightnessLevel(s.Brightness)
	st := Status{State: StateOn, Brightness: &level}

	switch s.Mode.Kind {
	case KindStatic:
		c := s.Mode.Color()
		st.ColorMode = "rgb"
		st.Color = &StatusColor{R: c.R, G: c.G, B: c.B}
	case KindEffect:
		st.Effect = s.Mode.EffectName
	}
	return st
}

// JSON encodes the status.
func (s Status) JSON() []byte {
	b, _ := json.Marshal(s)
	return b
}

// BrightnessLevel converts a brightness factor to the 0-255 wire scale.
func BrightnessLevel(f float64) uint8 {
	switch {
	case f <= 0:
		return 0
	case f >= 1:
		return 255
	}
	return uint8(math.Round(f * 255))
}
