// Package scheduler runs lighting commands on cron schedules.
package scheduler

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"lightstrip-controller/internal/core"
	"lightstrip-controller/internal/light"
)

var ErrUnknownSchedule = errors.New("unknown schedule")

// ScheduleEntry is a saved schedule.
type ScheduleEntry struct {
	Spec    string `json:"spec"`
	Command string `json:"command"`
}

// Entry is a schedule as listed to clients.
type Entry struct {
	ID      int       `json:"id"`
	Spec    string    `json:"spec"`
	Command string    `json:"command"`
	Next    time.Time `json:"next"`
}

// Scheduler manages the cron jobs and their persistence.
type Scheduler struct {
	cron          *cron.Cron
	store         map[cron.EntryID]ScheduleEntry
	commands      *core.CommandChannel
	mu            sync.RWMutex
	schedulesFile string
	log           *logrus.Entry
}

// NewScheduler creates a scheduler and loads the saved schedules.
func NewScheduler(commands *core.CommandChannel, schedulesFile string, logger *logrus.Logger) *Scheduler {
	s := &Scheduler{
		cron:          cron.New(),
		store:         make(map[cron.EntryID]ScheduleEntry),
		commands:      commands,
		schedulesFile: schedulesFile,
		log:           logger.WithField("component", "scheduler"),
	}
	s.load()
	return s
}

// Start begins the cron job ticker.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("Cron scheduler started")
}

// Stop halts the cron job ticker and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("Cron scheduler stopped")
}

// Add validates command and schedules it.
func (s *Scheduler) Add(spec, command string) (int, error) {
	payload, err := CommandPayload(command)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.cron.AddFunc(spec, func() { s.execute(command, payload) })
	if err != nil {
		return 0, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	s.store[id] = ScheduleEntry{Spec: spec, Command: command}
	s.save()
	s.log.WithFields(logrus.Fields{"id": id, "spec": spec, "command": command}).Info("Added schedule")
	return int(id), nil
}

// Remove deletes a schedule.
func (s *Scheduler) Remove(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entryID := cron.EntryID(id)
	if _, ok := s.store[entryID]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownSchedule, id)
	}
	s.cron.Remove(entryID)
	delete(s.store, entryID)
	s.save()
	s.log.WithField("id", id).Info("Removed schedule")
	return nil
}

// List returns the schedules ordered by ID.
func (s *Scheduler) List() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]Entry, 0, len(s.store))
	for id, e := range s.store {
		entries = append(entries, Entry{
			ID:      int(id),
			Spec:    e.Spec,
			Command: e.Command,
			Next:    s.cron.Entry(id).Next,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries
}

func (s *Scheduler) execute(command string, payload []byte) {
	s.log.WithField("command", command).Info("Executing scheduled command")
	if s.commands.Submit(core.LightCommand(core.SourceScheduler, payload)) {
		s.log.Warn("Command queue full, dropped the oldest command")
	}
}

// CommandPayload turns a schedule command into a JSON light command. It
// accepts "on", "off", "effect <name>", "brightness <0-255>",
// "color <r> <g> <b>", "color #rrggbb" or a raw JSON light command.
func CommandPayload(command string) ([]byte, error) {
	command = strings.TrimSpace(command)
	var payload []byte

	if strings.HasPrefix(command, "{") {
		payload = []byte(command)
	} else {
		cmd, err := shorthand(command)
		if err != nil {
			return nil, err
		}
		payload, _ = json.Marshal(cmd)
	}

	if _, err := light.Parse(payload); err != nil {
		return nil, fmt.Errorf("invalid command %q: %w", command, err)
	}
	return payload, nil
}

func shorthand(command string) (map[string]any, error) {
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return nil, errors.New("empty command")
	}

	on := map[string]any{"state": light.StateOn}
	switch strings.ToLower(parts[0]) {
	case "on":
		return on, nil
	case "off":
		return map[string]any{"state": light.StateOff}, nil
	case "effect":
		if len(parts) != 2 {
			return nil, fmt.Errorf("usage: effect <name>")
		}
		on["effect"] = parts[1]
		return on, nil
	case "brightness":
		if len(parts) != 2 {
			return nil, fmt.Errorf("usage: brightness <0-255>")
		}
		v, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("brightness %q: %w", parts[1], err)
		}
		on["brightness"] = v
		return on, nil
	case "color":
		rgb, err := parseRGB(parts[1:])
		if err != nil {
			return nil, err
		}
		on["color"] = map[string]int{"r": rgb[0], "g": rgb[1], "b": rgb[2]}
		return on, nil
	}
	return nil, fmt.Errorf("unknown command %q", parts[0])
}

func parseRGB(args []string) ([3]int, error) {
	var rgb [3]int
	switch len(args) {
	case 1:
		hex := strings.TrimPrefix(args[0], "#")
		if len(hex) != 6 {
			return rgb, fmt.Errorf("color %q: want #rrggbb", args[0])
		}
		if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &rgb[0], &rgb[1], &rgb[2]); err != nil {
			return rgb, fmt.Errorf("color %q: %w", args[0], err)
		}
	case 3:
		for i, a := range args {
			v, err := strconv.Atoi(a)
			if err != nil {
				return rgb, fmt.Errorf("color channel %q: %w", a, err)
			}
			rgb[i] = v
		}
	default:
		return rgb, errors.New("usage: color <r> <g> <b> | color #rrggbb")
	}
	return rgb, nil
}

func (s *Scheduler) save() {
	data, err := json.MarshalIndent(s.store, "", "  ")
	if err != nil {
		s.log.WithError(err).Error("Failed to marshal schedules")
		return
	}
	if err := os.WriteFile(s.schedulesFile, data, 0o644); err != nil {
		s.log.WithError(err).Error("Failed to write schedules file")
	}
}

func (s *Scheduler) load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.schedulesFile)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.WithError(err).Error("Failed to read schedules file")
		}
		return
	}

	saved := make(map[cron.EntryID]ScheduleEntry)
	if err := json.Unmarshal(data, &saved); err != nil {
		s.log.WithError(err).Error("Failed to decode schedules file")
		return
	}

	s.log.WithFields(logrus.Fields{"count": len(saved), "file": s.schedulesFile}).Info("Loading schedules")
	for _, entry := range saved {
		payload, err := CommandPayload(entry.Command)
		if err != nil {
			s.log.WithError(err).Warn("Skipping saved schedule")
			continue
		}
		id, err := s.cron.AddFunc(entry.Spec, func() { s.execute(entry.Command, payload) })
		if err != nil {
			s.log.WithError(err).Warn("Skipping saved schedule")
			continue
		}
		s.store[id] = entry
	}
	// IDs are reassigned on load.
	s.save()
}
