package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/denlab/airnode/pkg/config"
	"github.com/denlab/airnode/pkg/metrics"
	"github.com/denlab/airnode/pkg/pms"
	"github.com/denlab/airnode/pkg/sched"
	"github.com/denlab/airnode/pkg/sgp40"
	"github.com/denlab/airnode/pkg/sht3x"
	"github.com/denlab/airnode/pkg/sim"
	"github.com/denlab/airnode/pkg/transmit"
)

func init() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})
}

func main() {
	var (
		configFlag      = flag.String("config", "airnode.yaml", "Configuration file path")
		writeConfigFlag = flag.Bool("write-config", false, "Write the effective configuration to the config file and exit")
		portFlag        = flag.String("p", "", "Serial port override (e.g., /dev/ttyAMA0)")
		endpointFlag    = flag.String("endpoint", "", "Ingestion endpoint URL override")
		mockFlag        = flag.Bool("mock", false, "Use simulated sensors instead of hardware")
		verboseFlag     = flag.Bool("v", false, "Enable debug logging")
	)
	flag.Parse()

	if *verboseFlag {
		log.SetLevel(log.DebugLevel)
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}
	if *endpointFlag != "" {
		cfg.Ingest.URL = *endpointFlag
	}

	if *writeConfigFlag {
		if err := cfg.Save(*configFlag); err != nil {
			log.Fatalf("Failed to write configuration: %v", err)
		}
		log.Infof("Wrote configuration to %s", *configFlag)
		return
	}

	if cfg.Ingest.URL == "" {
		log.Warn("no ingestion endpoint configured, aggregates will be dropped")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		env  sched.EnvReader
		gas  sched.GasReader
		part sched.ParticulateReader
	)
	if *mockFlag {
		log.Info("running with simulated sensors")
		s := sim.New(cfg.Mock, cfg.Sampling.SampleInterval)
		env, gas, part = s.Env(), s.Gas(), s.Particulate()
	} else {
		env, gas, part, err = openSensors(cfg)
		if err != nil {
			log.Fatalf("Failed to open sensors: %v", err)
		}
	}

	client := transmit.New(cfg.Ingest.URL, cfg.Ingest.Timeout)
	pub := transmit.NewAsync(client, cfg.Ingest.Timeout)
	defer pub.Close()

	var hooks sched.Hooks
	if cfg.Metrics.Listen != "" {
		hooks = metrics.Hooks()
		go metrics.Serve(cfg.Metrics.Listen)
	}

	s := sched.New(sched.Options{
		SampleInterval:  cfg.Sampling.SampleInterval,
		PublishInterval: cfg.Sampling.PublishInterval,
		Env:             env,
		Gas:             gas,
		Particulate:     part,
		Publisher:       pub,
		Hooks:           hooks,
	})

	if err := s.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("Scheduler stopped: %v", err)
	}
	log.Info("shutting down")
}

// openSensors brings up the I2C bus and the serial port and returns the
// three hardware-backed readers.
func openSensors(cfg *config.Config) (sched.EnvReader, sched.GasReader, sched.ParticulateReader, error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, nil, err
	}

	bus, err := i2creg.Open(cfg.I2C.Bus)
	if err != nil {
		return nil, nil, nil, err
	}

	env := sht3x.New(bus, sht3x.DefaultAddress)
	gas := sgp40.New(bus, sgp40.DefaultAddress, cfg.Sampling.SampleInterval)

	part := pms.NewSensor(cfg.Serial.Port, cfg.Serial.Baud)
	if err := part.Connect(); err != nil {
		return nil, nil, nil, err
	}

	return env, gas, part, nil
}
