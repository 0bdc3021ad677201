package effects

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	lua "github.com/yuin/gopher-lua"
)

const patternExt = ".lua"

// Patterns keeps the Lua pattern files of a directory registered as effects.
type Patterns struct {
	dir      string
	count    int
	registry *Registry
	log      *logrus.Entry

	mu     sync.Mutex
	loaded map[string]bool
}

// NewPatterns manages dir for a strip of count pixels.
func NewPatterns(dir string, count int, registry *Registry, logger *logrus.Logger) *Patterns {
	return &Patterns{
		dir:      dir,
		count:    count,
		registry: registry,
		log:      logger.WithField("component", "patterns"),
		loaded:   make(map[string]bool),
	}
}

// Dir is the directory being managed.
func (p *Patterns) Dir() string { return p.dir }

// sanitizeFilename rejects directory traversal and names without a .lua extension.
func sanitizeFilename(name string) (string, error) {
	if !strings.HasSuffix(name, patternExt) {
		return "", errors.New("filename must end with .lua")
	}
	clean := filepath.Base(name)
	if clean != name || clean == patternExt || strings.Contains(clean, "..") {
		return "", fmt.Errorf("invalid filename %q", name)
	}
	return clean, nil
}

// EffectName is the effect a pattern file registers as.
func EffectName(filename string) string {
	return strings.TrimSuffix(filepath.Base(filename), patternExt)
}

// Path returns the path of a pattern file inside the directory, creating the
// directory on first use.
func (p *Patterns) Path(name string) (string, error) {
	clean, err := sanitizeFilename(name)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(p.dir); os.IsNotExist(err) {
		p.log.WithField("dir", p.dir).Info("Creating patterns directory")
		if err := os.MkdirAll(p.dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create patterns directory: %w", err)
		}
	}
	return filepath.Join(p.dir, clean), nil
}

// Code returns the source of a pattern file.
func (p *Patterns) Code(name string) (string, error) {
	path, err := p.Path(name)
	if err != nil {
		return "", err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

// Save checks that code compiles, writes it and registers the effect.
func (p *Patterns) Save(name, code string) error {
	path, err := p.Path(name)
	if err != nil {
		return err
	}
	L := lua.NewState()
	_, err = L.LoadString(code)
	L.Close()
	if err != nil {
		return fmt.Errorf("pattern %s does not compile: %w", name, err)
	}
	if err := os.WriteFile(path, []byte(code), 0o644); err != nil {
		return err
	}
	return p.Load(name)
}

// Delete removes a pattern file and its effect.
func (p *Patterns) Delete(name string) error {
	path, err := p.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return err
	}
	p.Unload(name)
	return nil
}

// List returns the .lua files in the directory.
func (p *Patterns) List() ([]string, error) {
	var patterns []string
	files, err := os.ReadDir(p.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return patterns, nil
		}
		return nil, err
	}
	for _, f := range files {
		if !f.IsDir() && filepath.Ext(f.Name()) == patternExt {
			patterns = append(patterns, f.Name())
		}
	}
	return patterns, nil
}

// Load (re)compiles one pattern file and registers it. A pattern never
// replaces a built-in effect of the same name.
func (p *Patterns) Load(name string) error {
	path, err := p.Path(name)
	if err != nil {
		return err
	}
	effect := EffectName(name)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.registry.Has(effect) && !p.loaded[effect] {
		return fmt.Errorf("pattern %s would shadow the built-in effect %q", name, effect)
	}

	code, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	anim, err := NewLuaAnimation(effect, string(code), p.count, p.log)
	if err != nil {
		return err
	}
	if err := p.registry.Register(effect, anim); err != nil {
		anim.Close()
		return err
	}
	p.loaded[effect] = true
	p.log.WithField("effect", effect).Info("Pattern loaded")
	return nil
}

// Unload removes the effect registered from a pattern file.
func (p *Patterns) Unload(name string) {
	effect := EffectName(name)

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.loaded[effect] {
		return
	}
	delete(p.loaded, effect)
	p.registry.Unregister(effect)
	p.log.WithField("effect", effect).Info("Pattern unloaded")
}

// LoadAll registers every pattern in the directory. Broken files are logged
// and skipped.
func (p *Patterns) LoadAll() error {
	files, err := p.List()
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := p.Load(f); err != nil {
			p.log.WithError(err).WithField("file", f).Warn("Skipping pattern")
		}
	}
	return nil
}
