// Package agent wires the strip, the lighting state and the command sources
// together.
package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"tinygo.org/x/drivers"

	"lightstrip-controller/internal/color"
	"lightstrip-controller/internal/config"
	"lightstrip-controller/internal/core"
	"lightstrip-controller/internal/effects"
	"lightstrip-controller/internal/light"
	"lightstrip-controller/internal/mqtt"
	"lightstrip-controller/internal/render"
	"lightstrip-controller/internal/scheduler"
	"lightstrip-controller/internal/server"
	"lightstrip-controller/internal/ws2812"
)

type Agent struct {
	ctx    context.Context
	cancel context.CancelFunc
	config *config.Config
	log    *logrus.Entry
	wg     sync.WaitGroup

	machine  *light.Machine
	registry *effects.Registry
	patterns *effects.Patterns
	strip    *ws2812.Strip
	loop     *render.Loop

	eventBus *core.EventBus
	commands *core.CommandChannel
	limiter  *rate.Limiter

	scheduler  *scheduler.Scheduler
	server     *server.Server
	mqttClient *mqtt.Client

	shutdownOnce sync.Once
}

// OpenBus opens the bus selected in the strip configuration.
func OpenBus(cfg config.StripConfig, logger *logrus.Logger) (drivers.SPI, error) {
	log := logger.WithField("component", "bus")
	switch cfg.Bus {
	case config.BusSPI:
		bus, err := ws2812.OpenSPI(cfg.SPIPort)
		if err != nil {
			return nil, err
		}
		log.WithField("port", cfg.SPIPort).Info("Using SPI bus")
		return bus, nil
	case config.BusSerial:
		bus, err := ws2812.OpenSerial(cfg.SerialPort, cfg.SerialBaud)
		if err != nil {
			return nil, err
		}
		log.WithField("port", bus.Name()).Info("Using serial bridge")
		return bus, nil
	case config.BusNone:
		log.Info("Dry run, frames are kept in memory")
		return ws2812.NewMemoryBus(), nil
	}
	return nil, fmt.Errorf("unknown bus %q", cfg.Bus)
}

// NewAgent builds every component. Nothing runs until Run is called.
func NewAgent(cfg *config.Config, bus drivers.SPI, version string, logger *logrus.Logger) (*Agent, error) {
	strip, err := ws2812.New(bus, cfg.Strip.PixelCount, cfg.Strip.Pages, ws2812.WithWriteTimeout(cfg.Strip.WriteTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to create strip: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &Agent{
		ctx:      ctx,
		cancel:   cancel,
		config:   cfg,
		log:      logger.WithField("component", "agent"),
		machine:  light.NewMachine(cfg.Render.DefaultEffect),
		registry: effects.NewRegistry(),
		strip:    strip,
		eventBus: core.NewEventBus(),
		commands: core.NewCommandChannel(cfg.Intake.QueueSize),
		limiter:  rate.NewLimiter(rate.Limit(cfg.Intake.RateLimit), cfg.Intake.RateBurst),
	}

	effects.RegisterBuiltins(a.registry, cfg.Strip.PixelCount)
	a.registry.OnChange(func(names []string) {
		a.eventBus.Publish(core.Event{Type: core.EffectListChangedEvent, Payload: names})
	})

	a.patterns = effects.NewPatterns(cfg.PatternsDir, cfg.Strip.PixelCount, a.registry, logger)
	if err := a.patterns.LoadAll(); err != nil {
		a.log.WithError(err).Warn("Could not load patterns")
	}
	if def := cfg.Render.DefaultEffect; def != "" && !a.registry.Has(def) {
		a.log.WithField("effect", def).Warn("Default effect is not registered")
	}

	a.loop = render.New(a.machine, a.registry, a.strip, cfg.Render.Period, logger)
	a.scheduler = scheduler.NewScheduler(a.commands, cfg.SchedulesFile, logger)

	a.server = server.NewServer(cfg.Server, server.Options{
		Commands:  a.commands,
		EventBus:  a.eventBus,
		Status:    a.Status,
		Effects:   a.registry.Names,
		Schedules: func() any { return a.scheduler.List() },
		Patterns:  a.patterns.List,
		Logger:    logger,
	})

	a.mqttClient = mqtt.NewClient(cfg, mqtt.Options{
		Commands: a.commands,
		EventBus: a.eventBus,
		Effects:  a.registry.Names,
		Status:   a.Status,
		Version:  version,
		Logger:   logger,
	})

	return a, nil
}

// Status is the current state message.
func (a *Agent) Status() light.Status {
	return light.StatusOf(a.machine.Snapshot())
}

// Effects lists the registered effect names.
func (a *Agent) Effects() []string {
	return a.registry.Names()
}

// Submit queues a command as if it came from source.
func (a *Agent) Submit(cmd core.Command) {
	if a.commands.Submit(cmd) {
		a.log.Warn("Command queue full, dropped the oldest command")
	}
}

// EventBus exposes the agent's events.
func (a *Agent) EventBus() *core.EventBus { return a.eventBus }

// Run starts every component and processes commands until Shutdown.
func (a *Agent) Run() {
	a.goRun(func() { a.loop.Run(a.ctx) })

	if a.config.WatchPatterns {
		a.goRun(func() {
			if err := a.patterns.Watch(a.ctx); err != nil {
				a.log.WithError(err).Error("Pattern watcher stopped")
			}
		})
	}

	if a.mqttClient != nil {
		a.goRun(func() { a.mqttClient.Run(a.ctx) })
		go func() {
			if err := a.mqttClient.Connect(); err != nil {
				a.log.WithError(err).Error("MQTT setup error")
			}
		}()
	}

	if a.server != nil {
		a.goRun(func() { a.server.Run(a.ctx) })
		go func() {
			if err := a.server.ListenAndServe(); err != nil {
				a.log.WithError(err).Error("Server error")
			}
		}()
	}

	a.scheduler.Start()

	a.log.WithFields(logrus.Fields{
		"pixels":  a.config.Strip.PixelCount,
		"effects": len(a.registry.Names()),
	}).Info("Agent ready")

	a.intake()
}

func (a *Agent) goRun(fn func()) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		fn()
	}()
}

// intake drains the command queue at the configured rate.
func (a *Agent) intake() {
	for {
		select {
		case <-a.ctx.Done():
			a.log.Info("Command intake shutting down")
			return
		case cmd := <-a.commands.C():
			if err := a.limiter.Wait(a.ctx); err != nil {
				return
			}
			a.handleCommand(cmd)
		}
	}
}

// Shutdown stops every component, blanks the strip and releases the bus.
func (a *Agent) Shutdown() {
	a.shutdownOnce.Do(func() {
		a.scheduler.Stop()
		if a.server != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			if err := a.server.Shutdown(ctx); err != nil {
				a.log.WithError(err).Warn("Server shutdown")
			}
			cancel()
		}
		if a.mqttClient != nil {
			a.mqttClient.Disconnect()
		}
		a.cancel()
		a.wg.Wait()

		a.blank()
		if err := a.strip.Close(); err != nil {
			a.log.WithError(err).Warn("Failed to close bus")
		}
		a.registry.Close()
	})
}

func (a *Agent) blank() {
	page := 0
	if last := a.strip.LastRendered(); last >= 0 {
		page = (last + 1) % a.strip.Pages()
	}
	if err := a.strip.Fill(page, color.Black); err != nil {
		return
	}
	if err := a.strip.Render(page); err != nil {
		a.log.WithError(err).Warn("Failed to blank strip")
	}
}
