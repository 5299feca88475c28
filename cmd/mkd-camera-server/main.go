// Copyright 2024 The Mookodi Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Command mkd-camera-server drives the cooled CCD camera subsystem,
// exposing spec.md §4.4's RPC surface over HTTP+JSON. Grounded on
// cmd/lepton/main.go's flag/interrupt/ListenAndServe bootstrap.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/maruel/interrupt"
	"github.com/maruel/serve-dir/loghttp"

	"github.com/piascik/Mookodi-sub000/camera"
	"github.com/piascik/Mookodi-sub000/camera/rpc"
	"github.com/piascik/Mookodi-sub000/config"
	"github.com/piascik/Mookodi-sub000/detector"
	"github.com/piascik/Mookodi-sub000/detector/emulated"
	"github.com/piascik/Mookodi-sub000/fitsfile"
	"github.com/piascik/Mookodi-sub000/fitsheader"
	"github.com/piascik/Mookodi-sub000/internal/xlog"
)

func mainImpl() error {
	configFile := flag.String("config_file", "/mookodi/conf/mkd.cfg", "camera server configuration file")
	loggingConfigFile := flag.String("logging_config_file", "log4cxx.properties", "logging configuration file (unused by this build's structured logger, kept for CLI compatibility)")
	emulateCamera := flag.Bool("emulate_camera", false, "replace the Andor driver with the in-process emulator")
	port := flag.Int("port", 9020, "http port to listen on")
	flag.Parse()
	_ = loggingConfigFile

	if len(flag.Args()) != 0 {
		return fmt.Errorf("unexpected argument: %s", flag.Args()[0])
	}

	cfg, err := config.LoadCamera(*configFile)
	if err != nil {
		return err
	}

	logOut := os.Stderr
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	level := xlog.Level(cfg.LogLevel)
	if level == 0 {
		level = xlog.Intermediate
	}
	log := xlog.New(logOut, xlog.FacilityCamera, level)

	watcher, err := config.NewWatcher(*configFile, log.With(xlog.FacilityConfig))
	if err != nil {
		log.Logf(xlog.Terse, "config file watch disabled: %v", err)
	} else {
		defer watcher.Close()
	}

	var det detector.Detector
	if *emulateCamera {
		det = emulated.New()
	} else {
		det, err = newAndorDetector()
		if err != nil {
			return err
		}
	}

	cache := camera.NewCache(cfg.NCols, cfg.NRows)
	files, err := fitsfile.NewGenerator(fitsfile.Config{
		InstrumentCode: cfg.InstrumentCode,
		DataDirRoot:    cfg.DataDirRoot,
		Telescope:      cfg.Telescope,
		Instrument:     cfg.Instrument,
	}, time.Now, log.With(xlog.FacilityFITS))
	if err != nil {
		return fmt.Errorf("starting filename generator: %w", err)
	}
	headers := fitsheader.NewStore()

	adapter := camera.NewAdapter(det, cache, files, headers, log)
	if err := adapter.Initialize(cfg.AndorConfigDir, camera.AdapterConfig{
		Speeds: map[detector.ReadoutSpeed]camera.SpeedTuple{
			detector.Slow: {
				HSIndex: cfg.ReadoutSpeeds.Slow.HSSpeedIndex,
				VSIndex: cfg.ReadoutSpeeds.Slow.VSSpeedIndex, VSAmplitude: cfg.ReadoutSpeeds.Slow.VSAmplitude,
			},
			detector.Fast: {
				HSIndex: cfg.ReadoutSpeeds.Fast.HSSpeedIndex,
				VSIndex: cfg.ReadoutSpeeds.Fast.VSSpeedIndex, VSAmplitude: cfg.ReadoutSpeeds.Fast.VSAmplitude,
			},
		},
		TargetTempK: cfg.TargetTemperatureK,
		FlipX:       cfg.FlipX,
		FlipY:       cfg.FlipY,
	}); err != nil {
		return fmt.Errorf("initializing detector: %w", err)
	}
	defer adapter.Shutdown()

	campaign := camera.NewCampaign()
	worker := camera.NewWorker(adapter, campaign, log, cfg.UseLockFiles)

	handler := rpc.NewHandler(adapter, worker, campaign, log)

	interrupt.HandleCtrlC()

	addr := fmt.Sprintf(":%d", *port)
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
		fmt.Fprintf(os.Stderr, "mkd-camera-server: %s.\n", err)
		os.Exit(1)
	}
}
