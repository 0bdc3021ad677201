package light

import "sync"

// Snapshot is a consistent copy of the lighting state.
type Snapshot struct {
	Mode       Mode
	Brightness float64
}

// IsOn reports whether the strip shows anything.
func (s Snapshot) IsOn() bool { return s.Mode.Kind != KindOff }

// Machine reconciles incoming modes with the current lighting state. It is
// safe for concurrent use.
type Machine struct {
	mu             sync.Mutex
	mode           Mode
	brightness     float64
	last           Mode
	lastBrightness float64
}

// NewMachine starts switched off at full brightness. The mode restored by the
// first On is the named effect, or white when defaultEffect is empty.
func NewMachine(defaultEffect string) *Machine {
	last := StaticColor(0, 0)
	if defaultEffect != "" {
		last = Effect(defaultEffect)
	}
	return &Machine{
		mode:           Off(),
		brightness:     1,
		last:           last,
		lastBrightness: 1,
	}
}

// Snapshot returns the current state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{Mode: m.mode, Brightness: m.brightness}
}

// LastActive returns the mode On would restore and its recorded brightness.
func (m *Machine) LastActive() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{Mode: m.last, Brightness: m.lastBrightness}
}

// Apply folds mode into the state. It returns the resulting state and
// whether it differs from the state before the call.
func (m *Machine) Apply(mode Mode) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	before := Snapshot{Mode: m.mode, Brightness: m.brightness}

	switch mode.Kind {
	case KindOff:
		m.mode = mode

	case KindOn:
		if m.mode.Kind == KindOff {
			m.mode = m.last
			m.brightness = m.lastBrightness
		}

	case KindStatic, KindEffect:
		m.mode = mode
		m.last = mode
		m.lastBrightness = m.brightness

	case KindBrightness:
		m.applyBrightness(mode.Level)
	}

	after := Snapshot{Mode: m.mode, Brightness: m.brightness}
	return after, after != before
}

func (m *Machine) applyBrightness(level uint8) {
	factor := float64(level) / 255

	switch m.mode.Kind {
	case KindStatic:
		m.brightness = factor
		m.last = m.mode
		m.lastBrightness = factor

	case KindOff:
		// Dimming while off switches the last static color back on, relative
		// to the brightness it had. An effect stays off.
		if m.last.Kind != KindStatic {
			return
		}
		m.mode = m.last
		m.brightness = m.lastBrightness * factor
	}
}
