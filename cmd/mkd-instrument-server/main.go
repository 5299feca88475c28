// Copyright 2024 The Mookodi Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Command mkd-instrument-server drives the opto-mechanical mechanism
// subsystem: slit, grism, fold mirror, lamp, arc and the two filter
// actuators, exposing spec.md §4.6's RPC surface over HTTP+JSON.
package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/maruel/interrupt"
	"github.com/maruel/serve-dir/loghttp"

	"github.com/piascik/Mookodi-sub000/config"
	"github.com/piascik/Mookodi-sub000/internal/xlog"
	"github.com/piascik/Mookodi-sub000/mechanism"
	"github.com/piascik/Mookodi-sub000/mechanism/lac"
	"github.com/piascik/Mookodi-sub000/mechanism/pio"
	mechrpc "github.com/piascik/Mookodi-sub000/mechanism/rpc"
)

func mainImpl() error {
	simulate := flag.Bool("s", false, "replace both hardware backends with in-process emulators")
	configPath := flag.String("c", "/mookodi/conf/mkd.cfg", "instrument server configuration file")
	logFileLevel := flag.Int("d", int(xlog.Intermediate), "log-to-file verbosity level")
	logScreenLevel := flag.Int("D", int(xlog.Terse), "log-to-screen verbosity level")
	flag.Parse()

	if len(flag.Args()) != 0 {
		return fmt.Errorf("unexpected argument: %s", flag.Args()[0])
	}

	cfg, err := config.LoadInstrument(*configPath)
	if err != nil {
		return err
	}

	// The original split -d (file verbosity) and -D (screen verbosity) into
	// two independent thresholds; xlog.Logger carries one threshold per
	// instance, so when both destinations are configured this server logs
	// to the file at the more permissive of the two levels and leaves
	// per-destination filtering to tooling that tails the file.
	logOut := io.Writer(os.Stderr)
	level := xlog.Level(*logScreenLevel)
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()
		logOut = f
		if xlog.Level(*logFileLevel) > level {
			level = xlog.Level(*logFileLevel)
		}
	}
	log := xlog.New(logOut, xlog.FacilityMain, level)

	watcher, err := config.NewWatcher(*configPath, log.With(xlog.FacilityConfig))
	if err != nil {
		log.Logf(xlog.Terse, "config file watch disabled: %v", err)
	} else {
		defer watcher.Close()
	}

	var pioDevice mechanism.Device
	var actuators mechanism.Actuators
	if *simulate {
		pioDevice = pio.NewEmulated()
		actuators = lac.NewEmulatedController()
	} else {
		pioDevice, err = pio.OpenSerial(cfg.PIO.Device)
		if err != nil {
			return fmt.Errorf("opening PIO device: %w", err)
		}
		actuators, err = newLACController()
		if err != nil {
			return fmt.Errorf("opening LAC actuators: %w", err)
		}
	}

	if configurer, ok := actuators.(*lac.Controller); ok {
		if err := configurer.Configure(lac.TuningFromConfig(cfg.LAC)); err != nil {
			return fmt.Errorf("configuring LAC actuators: %w", err)
		}
	}

	if name, err := pioDevice.Identify(); err != nil {
		log.Logf(xlog.Terse, "PIO identify failed: %v", err)
	} else {
		log.Logf(xlog.Terse, "PIO module identity: %s", name)
	}

	var filters [2][5]mechanism.FilterSlot
	for a := 0; a < 2; a++ {
		for f := 0; f < 5; f++ {
			filters[a][f] = mechanism.FilterSlot{
				Position: cfg.LAC.Actuators[a].Filters[f].Position,
				Name:     cfg.LAC.Actuators[a].Filters[f].Name,
			}
		}
	}

	controller := mechanism.New(pioDevice, actuators, mechanism.Config{
		Accuracy: cfg.LAC.Accuracy,
		Filters:  filters,
	})

	handler := mechrpc.NewHandler(controller, log.With(xlog.FacilityMechanism))

	interrupt.HandleCtrlC()

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Logf(xlog.Terse, "listening on %s", addr)
	logged := loghttp.Handler(handler.Mux())
	go func() {
		if err := http.ListenAndServe(addr, logged); err != nil {
			log.Errorf("http server exited: %v", err)
		}
	}()

	for !interrupt.IsSet() {
		time.Sleep(200 * time.Millisecond)
	}
	log.Logf(xlog.Terse, "shutting down")
	return nil
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "mkd-instrument-server: %s.\n", err)
		os.Exit(1)
	}
}
