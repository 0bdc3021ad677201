package scheduler

import (
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/sirupsen/logrus"

	"lightstrip-controller/internal/core"
	"lightstrip-controller/internal/light"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestCommandPayload(t *testing.T) {
	tests := []struct {
		command string
		want    light.Mode
	}{
		{"on", light.On()},
		{"OFF", light.Off()},
		{"effect rainbow", light.Effect("rainbow")},
		{"brightness 40", light.Brightness(40)},
		{"color 0 0 255", light.StaticColor(240, 1)},
		{"color #00FF00", light.StaticColor(120, 1)},
		{`{"state":"ON","effect":"sparkle"}`, light.Effect("sparkle")},
	}
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			payload, err := CommandPayload(tt.command)
			if err != nil {
				t.Fatalf("CommandPayload: %v", err)
			}
			got, err := light.Parse(payload)
			if err != nil {
				t.Fatalf("payload %s does not parse: %v", payload, err)
			}
			if got != tt.want {
				t.Errorf("mode = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCommandPayloadErrors(t *testing.T) {
	for _, command := range []string{
		"",
		"dance",
		"effect",
		"brightness lots",
		"brightness 300",
		"color 1 2",
		"color #12",
		`{"state":"MAYBE"}`,
	} {
		t.Run(command, func(t *testing.T) {
			if _, err := CommandPayload(command); err == nil {
				t.Errorf("CommandPayload(%q) succeeded", command)
			}
		})
	}
}

func TestAddRemovePersist(t *testing.T) {
	file := filepath.Join(t.TempDir(), "schedules.json")
	commands := core.NewCommandChannel(4)

	s := NewScheduler(commands, file, testLogger())
	id, err := s.Add("0 7 * * *", "on")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := s.Add("30 22 * * *", "effect breathe"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := s.Add("not a spec", "on"); err == nil {
		t.Error("invalid spec accepted")
	}
	if _, err := s.Add("0 8 * * *", "jump"); err == nil {
		t.Error("invalid command accepted")
	}

	if got := len(s.List()); got != 2 {
		t.Fatalf("List has %d entries, want 2", got)
	}

	if err := s.Remove(id); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := s.Remove(id); !errors.Is(err, ErrUnknownSchedule) {
		t.Errorf("second Remove error = %v", err)
	}

	reloaded := NewScheduler(commands, file, testLogger())
	var got []ScheduleEntry
	for _, e := range reloaded.List() {
		got = append(got, ScheduleEntry{Spec: e.Spec, Command: e.Command})
	}
	want := []ScheduleEntry{{Spec: "30 22 * * *", Command: "effect breathe"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("reloaded = %v, want %v", got, want)
	}
}

func TestExecuteSubmitsLightCommand(t *testing.T) {
	commands := core.NewCommandChannel(1)
	s := NewScheduler(commands, filepath.Join(t.TempDir(), "s.json"), testLogger())

	payload, err := CommandPayload("effect rainbow")
	if err != nil {
		t.Fatal(err)
	}
	s.execute("effect rainbow", payload)

	cmd := <-commands.C()
	if cmd.Type != core.CmdLight || cmd.Source != core.SourceScheduler {
		t.Errorf("command = %+v", cmd)
	}
	var body map[string]any
	if err := json.Unmarshal(cmd.Payload, &body); err != nil {
		t.Fatal(err)
	}
	if body["state"] != "ON" || body["effect"] != "rainbow" {
		t.Errorf("payload = %v", body)
	}
}
