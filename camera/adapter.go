// Copyright 2024 The Mookodi Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package camera

import (
	"sync"

	"github.com/piascik/Mookodi-sub000/detector"
	"github.com/piascik/Mookodi-sub000/fitsfile"
	"github.com/piascik/Mookodi-sub000/fitsheader"
	"github.com/piascik/Mookodi-sub000/internal/xlog"
)

// SpeedTuple is one (hs_index, vs_index, vs_amplitude) programmed for a
// ReadoutSpeed, loaded from the ccd.readout_speed.* configuration keys
// spec.md §6 names.
type SpeedTuple struct {
	HSIndex     int
	VSIndex     int
	VSAmplitude int
}

// Adapter binds one detector.Detector to the cached configuration it
// mirrors, the filename generator, and the header store, serialising
// every call that talks to the driver under mu. mu is not held across a
// full exposure (spec.md §5): the worker calls Detector.Expose and
// Detector.Bias directly, without taking mu.
type Adapter struct {
	mu sync.Mutex

	Detector detector.Detector
	Cache    *Cache
	Files    *fitsfile.Generator
	Headers  *fitsheader.Store
	log      *xlog.Logger

	speeds      map[detector.ReadoutSpeed]SpeedTuple
	targetTempK float64
}

// AdapterConfig carries the configuration-sourced values Initialize needs.
type AdapterConfig struct {
	Speeds          map[detector.ReadoutSpeed]SpeedTuple
	TargetTempK     float64
	FlipX, FlipY    bool
}

// NewAdapter wires a detector, its cache, the filename generator and the
// header store into one adapter, matching the camera RPC handler's
// ownership (spec.md §9: "the camera RPC handler owns the detector
// adapter, the FITS header store, the filename generator, and the
// worker").
func NewAdapter(det detector.Detector, cache *Cache, files *fitsfile.Generator, headers *fitsheader.Store, log *xlog.Logger) *Adapter {
	return &Adapter{
		Detector: det,
		Cache:    cache,
		Files:    files,
		Headers:  headers,
		log:      log,
		speeds:   map[detector.ReadoutSpeed]SpeedTuple{},
	}
}

// Initialize programs the driver's startup sequence: config dir, startup,
// full-frame dimensions, initial SLOW/ONE tuples, flip booleans
// (spec.md §4.1).
func (a *Adapter) Initialize(configDir string, cfg AdapterConfig) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.speeds = cfg.Speeds
	a.targetTempK = cfg.TargetTempK

	if err := a.Detector.Initialize(configDir); err != nil {
		return hardwareError("INIT", "initializing detector: %v", err)
	}
	if err := a.Detector.SetDimensions(a.Cache.ToDimensions()); err != nil {
		return hardwareError("DIMS", "applying startup dimensions: %v", err)
	}
	if err := a.applyReadoutSpeedLocked(detector.Slow); err != nil {
		return err
	}
	if err := a.applyGainLocked(detector.GainOne); err != nil {
		return err
	}
	if err := a.Detector.SetFlip(cfg.FlipX, cfg.FlipY); err != nil {
		return hardwareError("FLIP", "applying flip: %v", err)
	}
	a.Cache.SetFlips(cfg.FlipX, cfg.FlipY)
	return nil
}

func (a *Adapter) Shutdown() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.Detector.Shutdown(); err != nil {
		return hardwareError("SHUTDOWN", "shutting down detector: %v", err)
	}
	return nil
}

// SetBinning validates and reapplies dimensions with new bin factors.
func (a *Adapter) SetBinning(hbin, vbin int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if hbin < 1 || vbin < 1 {
		return newError(InvariantViolation, "hbin/vbin must be >= 1, got %d/%d", hbin, vbin)
	}
	w, enabled := a.Cache.Window()
	if enabled {
		if err := CheckWholePixel(w, hbin, vbin); err != nil {
			return err
		}
	}
	a.Cache.SetBinning(hbin, vbin)
	if err := a.Detector.SetDimensions(a.Cache.ToDimensions()); err != nil {
		return hardwareError("DIMS", "applying binning: %v", err)
	}
	return nil
}

// SetWindow validates bounds per spec.md §4.1 and reapplies dimensions.
func (a *Adapter) SetWindow(w Window) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	ncols, nrows, hbin, vbin := a.Cache.Dimensions()
	if !(1 <= w.XStart && w.XStart < w.XEnd && w.XEnd <= ncols) {
		return newError(InvariantViolation, "window x bounds invalid: 1 <= %d < %d <= %d required", w.XStart, w.XEnd, ncols)
	}
	if !(1 <= w.YStart && w.YStart < w.YEnd && w.YEnd <= nrows) {
		return newError(InvariantViolation, "window y bounds invalid: 1 <= %d < %d <= %d required", w.YStart, w.YEnd, nrows)
	}
	if err := CheckWholePixel(w, hbin, vbin); err != nil {
		return err
	}
	a.Cache.SetWindow(w)
	if err := a.Detector.SetDimensions(a.Cache.ToDimensions()); err != nil {
		return hardwareError("DIMS", "applying window: %v", err)
	}
	return nil
}

func (a *Adapter) ClearWindow() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Cache.ClearWindow()
	if err := a.Detector.SetDimensions(a.Cache.ToDimensions()); err != nil {
		return hardwareError("DIMS", "clearing window: %v", err)
	}
	return nil
}

// CurrentSpeedTuple returns the SpeedTuple programmed for the cache's
// current ReadoutSpeed, for callers that need the configured indices
// rather than the detector's reported speeds (e.g. header composition).
func (a *Adapter) CurrentSpeedTuple() SpeedTuple {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.speeds[a.Cache.ReadoutSpeed()]
}

// SetReadoutSpeed looks up the configured tuple and programs all three
// registers (spec.md §4.1).
func (a *Adapter) SetReadoutSpeed(s detector.ReadoutSpeed) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.applyReadoutSpeedLocked(s)
}

func (a *Adapter) applyReadoutSpeedLocked(s detector.ReadoutSpeed) error {
	tuple, ok := a.speeds[s]
	if !ok {
		return newError(ConfigError, "no readout speed tuple configured for %s", s)
	}
	if err := a.Detector.SetHSSpeed(tuple.HSIndex); err != nil {
		return hardwareError("HSSPEED", "setting hs speed: %v", err)
	}
	if err := a.Detector.SetVSSpeed(tuple.VSIndex); err != nil {
		return hardwareError("VSSPEED", "setting vs speed: %v", err)
	}
	if err := a.Detector.SetVSAmplitude(tuple.VSAmplitude); err != nil {
		return hardwareError("VSAMP", "setting vs amplitude: %v", err)
	}
	a.Cache.SetReadoutSpeed(s)
	return nil
}

func (a *Adapter) SetGain(g detector.Gain) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.applyGainLocked(g)
}

func (a *Adapter) applyGainLocked(g detector.Gain) error {
	if err := a.Detector.SetPreAmpGain(g.PreAmpIndex()); err != nil {
		return hardwareError("GAIN", "setting pre-amp gain: %v", err)
	}
	a.Cache.SetGain(g)
	return nil
}

// CoolDown programs the configured target temperature and turns the
// cooler on. WarmUp turns the cooler off without reprogramming the
// set-point, matching spec.md §4.1's note that "the hardware refuses warm
// set-points".
func (a *Adapter) CoolDown() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.Detector.SetTemperature(a.targetTempK); err != nil {
		return hardwareError("TEMP", "setting target temperature: %v", err)
	}
	if err := a.Detector.CoolerOn(); err != nil {
		return hardwareError("COOLER", "turning cooler on: %v", err)
	}
	return nil
}

func (a *Adapter) WarmUp() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.Detector.CoolerOff(); err != nil {
		return hardwareError("COOLER", "turning cooler off: %v", err)
	}
	return nil
}
