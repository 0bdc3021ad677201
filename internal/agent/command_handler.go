package agent

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"lightstrip-controller/internal/core"
	"lightstrip-controller/internal/effects"
	"lightstrip-controller/internal/light"
)

type scheduleRequest struct {
	Spec    string `json:"spec"`
	Command string `json:"command"`
}

type scheduleID struct {
	ID json.Number `json:"id"`
}

type patternRequest struct {
	Name string  `json:"name"`
	Code *string `json:"code,omitempty"`
}

func (a *Agent) handleCommand(cmd core.Command) {
	log := a.log.WithFields(logrus.Fields{"type": cmd.Type, "source": cmd.Source})
	log.WithField("payload", string(cmd.Payload)).Debug("Handling command")

	var err error
	switch cmd.Type {
	case core.CmdLight:
		err = a.applyLight(cmd.Payload, log)
	case core.CmdAddSchedule:
		err = a.addSchedule(cmd.Payload)
	case core.CmdRemoveSchedule:
		err = a.removeSchedule(cmd.Payload)
	case core.CmdGetPatternCode:
		err = a.getPatternCode(cmd.Payload)
	case core.CmdSavePatternCode:
		err = a.savePatternCode(cmd.Payload)
	case core.CmdDeletePattern:
		err = a.deletePattern(cmd.Payload)
	default:
		err = fmt.Errorf("unknown command type %q", cmd.Type)
	}

	if err != nil {
		log.WithError(err).Warn("Command dropped")
	}
}

func (a *Agent) applyLight(payload []byte, log *logrus.Entry) error {
	mode, err := light.Parse(payload)
	if err != nil {
		return err
	}
	if mode.Kind == light.KindEffect && !a.registry.Has(mode.EffectName) {
		return fmt.Errorf("%w: %q", effects.ErrUnknownEffect, mode.EffectName)
	}

	snap, changed := a.machine.Apply(mode)
	log.WithFields(logrus.Fields{"mode": snap.Mode, "brightness": snap.Brightness, "changed": changed}).Info("Applied")
	if changed {
		a.eventBus.Publish(core.Event{Type: core.StatusChangedEvent, Payload: light.StatusOf(snap)})
	}
	return nil
}

func (a *Agent) addSchedule(payload []byte) error {
	var req scheduleRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return err
	}
	if _, err := a.scheduler.Add(req.Spec, req.Command); err != nil {
		return err
	}
	a.publishSchedules()
	return nil
}

func (a *Agent) removeSchedule(payload []byte) error {
	var req scheduleID
	if err := json.Unmarshal(payload, &req); err != nil {
		return err
	}
	id, err := req.ID.Int64()
	if err != nil {
		return fmt.Errorf("schedule id %q: %w", req.ID, err)
	}
	if err := a.scheduler.Remove(int(id)); err != nil {
		return err
	}
	a.publishSchedules()
	return nil
}

func (a *Agent) publishSchedules() {
	a.eventBus.Publish(core.Event{Type: core.ScheduleListChangedEvent, Payload: a.scheduler.List()})
}

func decodePattern(payload []byte, needCode bool) (patternRequest, error) {
	var req patternRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return req, err
	}
	if req.Name == "" {
		return req, errors.New("pattern name is missing")
	}
	if needCode && req.Code == nil {
		return req, errors.New("pattern code is missing")
	}
	return req, nil
}

func (a *Agent) getPatternCode(payload []byte) error {
	req, err := decodePattern(payload, false)
	if err != nil {
		return err
	}
	code, err := a.patterns.Code(req.Name)
	if err != nil {
		return err
	}
	a.eventBus.Publish(core.Event{Type: core.PatternCodeEvent, Payload: core.PatternCode{Name: req.Name, Code: code}})
	return nil
}

func (a *Agent) savePatternCode(payload []byte) error {
	req, err := decodePattern(payload, true)
	if err != nil {
		return err
	}
	if err := a.patterns.Save(req.Name, *req.Code); err != nil {
		return err
	}
	a.publishPatterns()
	return nil
}

func (a *Agent) deletePattern(payload []byte) error {
	req, err := decodePattern(payload, false)
	if err != nil {
		return err
	}
	if err := a.patterns.Delete(req.Name); err != nil {
		return err
	}
	a.publishPatterns()
	return nil
}

func (a *Agent) publishPatterns() {
	patterns, err := a.patterns.List()
	if err != nil {
		a.log.WithError(err).Warn("Failed to list patterns")
		return
	}
	a.eventBus.Publish(core.Event{Type: core.PatternListChangedEvent, Payload: patterns})
}
