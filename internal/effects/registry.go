// Package effects holds the named animations the strip can run.
package effects

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"lightstrip-controller/internal/color"
)

var ErrUnknownEffect = errors.New("unknown effect")

// Animation produces successive frames. ok is false once a bounded animation
// has nothing more to show.
type Animation interface {
	Next() (frame []color.PixelColor, ok bool)
}

// Resetter is implemented by animations that can start over.
type Resetter interface {
	Reset()
}

// entry serializes the steps of one stateful animation.
type entry struct {
	mu   sync.Mutex
	anim Animation
}

func (e *entry) close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	closeAnimation(e.anim)
}

// Registry maps effect names to animations. Lookups may run concurrently with
// pattern reloads and with an animation computing its next frame.
type Registry struct {
	mu       sync.RWMutex
	anims    map[string]*entry
	onChange func(names []string)
}

func NewRegistry() *Registry {
	return &Registry{anims: make(map[string]*entry)}
}

// OnChange installs a callback that receives the sorted names whenever an
// effect is added or removed.
func (r *Registry) OnChange(fn func(names []string)) {
	r.mu.Lock()
	r.onChange = fn
	r.mu.Unlock()
}

// Register adds or replaces the animation called name.
func (r *Registry) Register(name string, a Animation) error {
	if name == "" {
		return errors.New("effect name is empty")
	}
	if a == nil {
		return fmt.Errorf("effect %q: nil animation", name)
	}

	r.mu.Lock()
	old, existed := r.anims[name]
	r.anims[name] = &entry{anim: a}
	r.mu.Unlock()

	if existed && old.anim != a {
		old.close()
	}
	if !existed {
		r.notify()
	}
	return nil
}

// Unregister removes name. It reports whether the effect existed.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	e, ok := r.anims[name]
	delete(r.anims, name)
	r.mu.Unlock()

	if !ok {
		return false
	}
	e.close()
	r.notify()
	return true
}

// Lookup returns the animation called name.
func (r *Registry) Lookup(name string) (Animation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.anims[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEffect, name)
	}
	return e.anim, nil
}

func (r *Registry) lookup(name string) *entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.anims[name]
}

// Next advances the named animation. It returns false when the effect is not
// registered or is exhausted.
func (r *Registry) Next(name string) ([]color.PixelColor, bool) {
	e := r.lookup(name)
	if e == nil {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.anim.Next()
}

// Reset restarts the named animation if it supports it.
func (r *Registry) Reset(name string) {
	e := r.lookup(name)
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if rs, ok := e.anim.(Resetter); ok {
		rs.Reset()
	}
}

func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.anims[name]
	return ok
}

// Names returns the registered effect names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.anims))
	for name := range r.anims {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close releases every animation that holds resources.
func (r *Registry) Close() {
	r.mu.Lock()
	entries := r.anims
	r.anims = make(map[string]*entry)
	r.mu.Unlock()

	for _, e := range entries {
		e.close()
	}
}

func (r *Registry) notify() {
	r.mu.RLock()
	fn := r.onChange
	names := r.namesLocked()
	r.mu.RUnlock()
	if fn != nil {
		fn(names)
	}
}

func closeAnimation(a Animation) {
	if c, ok := a.(io.Closer); ok {
		c.Close()
	}
}
