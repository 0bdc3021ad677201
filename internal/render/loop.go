// Package render drives the strip from the lighting state at a fixed rate.
package render

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"lightstrip-controller/internal/color"
	"lightstrip-controller/internal/effects"
	"lightstrip-controller/internal/light"
	"lightstrip-controller/internal/ws2812"
)

const DefaultPeriod = 50 * time.Millisecond

// errSkipped marks a tick that left the strip untouched.
var errSkipped = errors.New("frame skipped")

// Stats counts what the loop did since it started.
type Stats struct {
	Frames   uint64
	Skipped  uint64
	Failures uint64
}

// Loop renders the current lighting state onto the back page of a strip
// every period.
type Loop struct {
	machine  *light.Machine
	registry *effects.Registry
	strip    *ws2812.Strip
	period   time.Duration
	log      *logrus.Entry

	lastEffect string

	frames   atomic.Uint64
	skipped  atomic.Uint64
	failures atomic.Uint64
}

func New(machine *light.Machine, registry *effects.Registry, strip *ws2812.Strip, period time.Duration, logger *logrus.Logger) *Loop {
	if period <= 0 {
		period = DefaultPeriod
	}
	return &Loop{
		machine:  machine,
		registry: registry,
		strip:    strip,
		period:   period,
		log:      logger.WithField("component", "render"),
	}
}

// Run renders until ctx is cancelled. Render failures are logged and the
// loop carries on.
func (l *Loop) Run(ctx context.Context) {
	l.log.WithField("period", l.period).Info("Render loop started")
	defer l.log.Info("Render loop stopped")

	ticker := time.NewTicker(l.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := l.Tick(); err != nil && !errors.Is(err, errSkipped) {
				l.log.WithError(err).Warn("Failed to render frame")
			}
		}
	}
}

// Tick renders one frame from the current state.
func (l *Loop) Tick() error {
	snap := l.machine.Snapshot()

	frame, ok := l.frameFor(snap)
	if !ok {
		l.skipped.Add(1)
		return errSkipped
	}

	page := l.backPage()
	if err := l.strip.SetPage(page, frame); err != nil {
		l.failures.Add(1)
		return err
	}
	if err := l.strip.Render(page); err != nil {
		l.failures.Add(1)
		return err
	}
	l.frames.Add(1)
	return nil
}

// Stats returns the loop counters.
func (l *Loop) Stats() Stats {
	return Stats{
		Frames:   l.frames.Load(),
		Skipped:  l.skipped.Load(),
		Failures: l.failures.Load(),
	}
}

// backPage is the page not currently shown.
func (l *Loop) backPage() int {
	last := l.strip.LastRendered()
	if last < 0 {
		return 0
	}
	return (last + 1) % l.strip.Pages()
}

func (l *Loop) frameFor(s light.Snapshot) ([]color.PixelColor, bool) {
	switch s.Mode.Kind {
	case light.KindOff:
		l.lastEffect = ""
		return solid(l.strip.Len(), color.Black), true

	case light.KindStatic:
		l.lastEffect = ""
		c := color.FromHSV(s.Mode.Hue, s.Mode.Saturation, s.Brightness)
		return solid(l.strip.Len(), c), true

	case light.KindEffect:
		name := s.Mode.EffectName
		if name != l.lastEffect {
			l.registry.Reset(name)
			l.lastEffect = name
		}
		frame, ok := l.registry.Next(name)
		if !ok {
			l.log.WithField("effect", name).Debug("No frame from effect")
			return nil, false
		}
		if len(frame) != l.strip.Len() {
			l.log.WithField("effect", name).WithField("len", len(frame)).Debug("Effect frame has wrong length")
			return nil, false
		}
		return frame, true
	}
	return nil, false
}

func solid(n int, c color.PixelColor) []color.PixelColor {
	frame := make([]color.PixelColor, n)
	for i := range frame {
		frame[i] = c
	}
	return frame
}
