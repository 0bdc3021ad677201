package agent

import (
	"bytes"
	"encoding/json"
	"io"
	"path/filepath"
	"reflect"
	"strconv"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"lightstrip-controller/internal/color"
	"lightstrip-controller/internal/config"
	"lightstrip-controller/internal/core"
	"lightstrip-controller/internal/light"
	"lightstrip-controller/internal/scheduler"
	"lightstrip-controller/internal/ws2812"
)

func newTestAgent(t *testing.T) (*Agent, *ws2812.MemoryBus) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	dir := t.TempDir()
	cfg := config.Default()
	cfg.Strip.PixelCount = 4
	cfg.Strip.Bus = config.BusNone
	cfg.Render.Period = 5 * time.Millisecond
	cfg.Render.DefaultEffect = "rainbow"
	cfg.Intake.RateLimit = 1000
	cfg.Intake.RateBurst = 100
	cfg.PatternsDir = filepath.Join(dir, "patterns")
	cfg.SchedulesFile = filepath.Join(dir, "schedules.json")

	bus := ws2812.NewMemoryBus()
	a, err := NewAgent(cfg, bus, "test", logger)
	if err != nil {
		t.Fatalf("NewAgent: %v", err)
	}
	return a, bus
}

func runAgent(t *testing.T, a *Agent) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		a.Run()
		close(done)
	}()
	t.Cleanup(func() {
		a.Shutdown()
		<-done
	})
}

func next(t *testing.T, sub core.Subscriber) core.Event {
	t.Helper()
	select {
	case ev := <-sub:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event")
	}
	return core.Event{}
}

func TestLightCommandsPublishStatus(t *testing.T) {
	a, _ := newTestAgent(t)
	sub := a.EventBus().Subscribe(core.StatusChangedEvent)
	runAgent(t, a)

	a.Submit(core.LightCommand(core.SourceMQTT, []byte(`{"state":"ON","color":{"r":0,"g":255,"b":0}}`)))
	ev := next(t, sub)
	st := ev.Payload.(light.Status)
	if st.State != light.StateOn || st.Color == nil || st.Color.G != 255 {
		t.Errorf("status = %+v", st)
	}

	a.Submit(core.LightCommand(core.SourceMQTT, []byte(`{"state":"ON","effect":"rainbow"}`)))
	next(t, sub)

	// An invalid command and a brightness change on an effect do not publish.
	a.Submit(core.LightCommand(core.SourceMQTT, []byte(`{"brightness":10}`)))
	a.Submit(core.LightCommand(core.SourceMQTT, []byte(`{"state":"ON","brightness":10}`)))
	a.Submit(core.LightCommand(core.SourceMQTT, []byte(`{"state":"OFF"}`)))

	ev = next(t, sub)
	if st := ev.Payload.(light.Status); st.State != light.StateOff {
		t.Errorf("expected the OFF status next, got %+v", st)
	}
	if a.Status().State != light.StateOff {
		t.Errorf("Status = %+v", a.Status())
	}
}

func TestUnknownEffectIsDropped(t *testing.T) {
	a, _ := newTestAgent(t)
	sub := a.EventBus().Subscribe(core.StatusChangedEvent)
	runAgent(t, a)

	a.Submit(core.LightCommand(core.SourceMQTT, []byte(`{"state":"ON","color":{"r":255,"g":0,"b":0}}`)))
	next(t, sub)

	a.Submit(core.LightCommand(core.SourceMQTT, []byte(`{"state":"ON","effect":"not-registered"}`)))
	a.Submit(core.LightCommand(core.SourceMQTT, []byte(`{"state":"OFF"}`)))
	if st := next(t, sub).Payload.(light.Status); st.State != light.StateOff || st.Effect != "" {
		t.Fatalf("expected OFF right after the unknown effect, got %+v", st)
	}

	a.Submit(core.LightCommand(core.SourceMQTT, []byte(`{"state":"ON"}`)))
	st := next(t, sub).Payload.(light.Status)
	if st.Effect != "" || st.Color == nil || *st.Color != (light.StatusColor{R: 255}) {
		t.Errorf("ON restored %+v, want static red", st)
	}
}

func TestStaticColorReachesTheBus(t *testing.T) {
	a, bus := newTestAgent(t)
	runAgent(t, a)

	a.Submit(core.LightCommand(core.SourceWebSocket, []byte(`{"state":"ON","color":{"r":255,"g":0,"b":0}}`)))

	want := ws2812.Encode([]color.PixelColor{color.Red, color.Red, color.Red, color.Red})
	deadline := time.Now().Add(2 * time.Second)
	for !bytes.Equal(bus.Last(), want) {
		if time.Now().After(deadline) {
			t.Fatal("red frame never rendered")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestShutdownBlanksStrip(t *testing.T) {
	a, bus := newTestAgent(t)
	done := make(chan struct{})
	go func() {
		a.Run()
		close(done)
	}()

	a.Submit(core.LightCommand(core.SourceMQTT, []byte(`{"state":"ON","color":{"r":0,"g":0,"b":255}}`)))
	time.Sleep(50 * time.Millisecond)
	a.Shutdown()
	<-done

	if !bytes.Equal(bus.Last(), ws2812.Encode(make([]color.PixelColor, 4))) {
		t.Error("strip was not blanked on shutdown")
	}
}

func TestScheduleCommands(t *testing.T) {
	a, _ := newTestAgent(t)
	sub := a.EventBus().Subscribe(core.ScheduleListChangedEvent)
	runAgent(t, a)

	a.Submit(core.Command{Type: core.CmdAddSchedule, Payload: []byte(`{"spec":"0 7 * * *","command":"effect sparkle"}`)})
	list := next(t, sub).Payload.([]scheduler.Entry)
	if len(list) != 1 || list[0].Command != "effect sparkle" {
		t.Fatalf("schedules = %+v", list)
	}

	payload := []byte(`{"id":"` + strconv.Itoa(list[0].ID) + `"}`)
	a.Submit(core.Command{Type: core.CmdRemoveSchedule, Payload: payload})
	if list := next(t, sub).Payload.([]scheduler.Entry); len(list) != 0 {
		t.Errorf("schedules after remove = %+v", list)
	}
}

func TestPatternCommands(t *testing.T) {
	a, _ := newTestAgent(t)
	sub := a.EventBus().Subscribe(core.PatternListChangedEvent, core.PatternCodeEvent, core.EffectListChangedEvent)
	runAgent(t, a)

	code := `function frame(n) fill(0, 0, 255) end`
	body, _ := json.Marshal(map[string]string{"name": "blue.lua", "code": code})
	a.Submit(core.Command{Type: core.CmdSavePatternCode, Payload: body})

	var sawEffects, sawPatterns bool
	for !(sawEffects && sawPatterns) {
		ev := next(t, sub)
		switch ev.Type {
		case core.EffectListChangedEvent:
			sawEffects = true
			if names := ev.Payload.([]string); !contains(names, "blue") {
				t.Errorf("effect list = %v", names)
			}
		case core.PatternListChangedEvent:
			sawPatterns = true
			if got := ev.Payload.([]string); !reflect.DeepEqual(got, []string{"blue.lua"}) {
				t.Errorf("pattern list = %v", got)
			}
		}
	}

	a.Submit(core.Command{Type: core.CmdGetPatternCode, Payload: []byte(`{"name":"blue.lua"}`)})
	ev := next(t, sub)
	if pc, ok := ev.Payload.(core.PatternCode); !ok || pc.Code != code {
		t.Errorf("pattern code event = %+v", ev)
	}

	a.Submit(core.Command{Type: core.CmdDeletePattern, Payload: []byte(`{"name":"blue.lua"}`)})
	for contains(a.Effects(), "blue") {
		next(t, sub)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
