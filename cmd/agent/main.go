package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/takama/daemon"

	"lightstrip-controller/internal/agent"
	"lightstrip-controller/internal/config"
	"lightstrip-controller/internal/effects"
	"lightstrip-controller/internal/logging"
)

const (
	serviceName        = "lightstrip-controller"
	serviceDescription = "WS2812 LED strip controller with MQTT and Home Assistant support"
)

// These variables will be set by the build script
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	configPath  = flag.String("config", "config.yaml", "Path to configuration file")
	logLevel    = flag.String("log-level", "", "Override log level (debug, info, warn, error)")
	showVersion = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s version %s, commit %s, built %s\n", serviceName, version, commit, date)
		return
	}

	command := "run"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	switch command {
	case "run":
		run()
	case "install", "remove", "start", "stop", "status":
		status, err := manageService(command)
		if err != nil {
			log.Fatalf("Failed to %s service: %v", command, err)
		}
		fmt.Println(status)
	case "effects":
		listEffects()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: %s [flags] [command]

Commands:
  run       Run the controller in the foreground (default)
  install   Install as a system service
  remove    Remove the system service
  start     Start the system service
  stop      Stop the system service
  status    Show the system service status
  effects   List the available effects

Flags:
`, filepath.Base(os.Args[0]))
	flag.PrintDefaults()
}

func loadConfig() *config.Config {
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	return cfg
}

func run() {
	cfg := loadConfig()
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}

	logger.WithFields(logrus.Fields{
		"version": version,
		"commit":  commit,
		"built":   date,
	}).Info("Starting lightstrip controller")

	bus, err := agent.OpenBus(cfg.Strip, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open bus")
	}

	a, err := agent.NewAgent(cfg, bus, version, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create agent")
	}

	go a.Run()

	// Wait for termination signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down agent...")
	a.Shutdown()
	logger.Info("Agent shut down gracefully")
}

func manageService(command string) (string, error) {
	svc, err := daemon.New(serviceName, serviceDescription, daemon.SystemDaemon)
	if err != nil {
		return "", err
	}

	switch command {
	case "install":
		path, err := filepath.Abs(*configPath)
		if err != nil {
			return "", err
		}
		return svc.Install("-config", path, "run")
	case "remove":
		return svc.Remove()
	case "start":
		return svc.Start()
	case "stop":
		return svc.Stop()
	default:
		return svc.Status()
	}
}

func listEffects() {
	cfg := loadConfig()
	registry := effects.NewRegistry()
	defer registry.Close()

	effects.RegisterBuiltins(registry, cfg.Strip.PixelCount)
	patterns := effects.NewPatterns(cfg.PatternsDir, cfg.Strip.PixelCount, registry, logging.Discard())
	if err := patterns.LoadAll(); err != nil {
		log.Printf("Could not load patterns: %v", err)
	}

	for _, name := range registry.Names() {
		fmt.Println(name)
	}
}
