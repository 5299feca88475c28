// Copyright 2024 The Mookodi Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package config loads and validates the JSON configuration files for both
// the camera and instrument servers. The original system used one .ini
// parser (mkd_ini.cpp) shared, in spirit, by both servers and driven by a
// table of {default, min, max} bounds (mkd_ini.h); this package keeps that
// single-loader design (resolving spec.md §9's Open Question) but loads
// JSON, matching the teacher's cmd/lepton config idiom.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Bounds describes the validated range for one integer configuration field,
// ported from mkd_ini.h's {default, min, max} table entries.
type Bounds struct {
	Default, Min, Max int
}

func (b Bounds) check(name string, v int) error {
	if v < b.Min || v > b.Max {
		return fmt.Errorf("config: %s = %d out of range [%d, %d]", name, v, b.Min, b.Max)
	}
	return nil
}

// Camera is the mkd-camera-server configuration file's shape.
type Camera struct {
	WorkingDirectory string `json:"working_directory"`
	LogFile          string `json:"log_file"`
	LogLevel         int    `json:"log_level"`

	Telescope      string `json:"telescope"`
	Instrument     string `json:"instrument"`
	InstrumentCode string `json:"instrument_code"`
	DataDirRoot    string `json:"data_dir_root"`

	AndorConfigDir string `json:"andor_config_dir"`

	NCols int `json:"ncols"`
	NRows int `json:"nrows"`

	FlipX bool `json:"flip_x"`
	FlipY bool `json:"flip_y"`

	TargetTemperatureK float64 `json:"target_temperature_k"`

	ReadoutSpeeds ReadoutSpeeds `json:"readout_speed"`

	// UseLockFiles enables the .lock sidecar protocol (spec.md §4.5) for an
	// external data-mover process. Off by default since the sidecar is
	// optional and the server itself never reads it.
	UseLockFiles bool `json:"use_lock_files"`

	Port int `json:"port"`
}

// ReadoutSpeedTuple is one (hs_speed_index, vs_speed_index, vs_amplitude)
// triple, matching spec.md §6's ccd.readout_speed.*.{SLOW,FAST} keys.
type ReadoutSpeedTuple struct {
	HSSpeedIndex int `json:"hs_speed_index"`
	VSSpeedIndex int `json:"vs_speed_index"`
	VSAmplitude  int `json:"vs_amplitude"`
}

// ReadoutSpeeds holds the SLOW/FAST tuples the camera adapter programs on
// startup and on set_readout_speed.
type ReadoutSpeeds struct {
	Slow ReadoutSpeedTuple `json:"SLOW"`
	Fast ReadoutSpeedTuple `json:"FAST"`
}

// lacBounds mirrors mkd_ini.h's CFG_SECT_LAC table entries.
var lacBounds = map[string]Bounds{
	"Speed":               {Default: 1023, Min: 0, Max: 1023},
	"Accuracy":            {Default: 4, Min: 0, Max: 1023},
	"RetractLimit":        {Default: 0, Min: 0, Max: 1023},
	"ExtendLimit":         {Default: 1023, Min: 0, Max: 1023},
	"MovementThreshold":   {Default: 3, Min: 0, Max: 1023},
	"StallTime":           {Default: 10000, Min: 0, Max: 65535},
	"PWMThreshold":        {Default: 80, Min: 0, Max: 1023},
	"DerivativeThreshold": {Default: 10, Min: 0, Max: 1023},
	"DerivativeMaximum":   {Default: 1023, Min: 0, Max: 1023},
	"DerivativeMinimum":   {Default: 0, Min: 0, Max: 1023},
	"PWMMaximum":          {Default: 1023, Min: 0, Max: 1023},
	"PWMMinimum":          {Default: 80, Min: 0, Max: 1023},
	"ProportionalGain":    {Default: 1, Min: 0, Max: 1023},
	"DerivativeGain":      {Default: 10, Min: 0, Max: 1023},
	"AverageRC":           {Default: 4, Min: 0, Max: 1023},
	"AverageADC":          {Default: 8, Min: 0, Max: 1023},
}

// ActuatorFilter names one of LAC_POSITIONS filter slots for one actuator.
type ActuatorFilter struct {
	Position int    `json:"position"`
	Name     string `json:"name"`
}

// Actuator holds the five named positions of one linear actuator, matching
// mkd_ini.h's LAC<n>Filter<m>Position/Name fields.
type Actuator struct {
	Filters [5]ActuatorFilter `json:"filters"`
}

// LAC is the CFG_SECT_LAC section: tuning parameters shared by both
// actuators plus each actuator's five filter positions.
type LAC struct {
	Speed               int `json:"speed"`
	Accuracy            int `json:"accuracy"`
	RetractLimit        int `json:"retract_limit"`
	ExtendLimit         int `json:"extend_limit"`
	MovementThreshold   int `json:"movement_threshold"`
	StallTime           int `json:"stall_time"`
	PWMThreshold        int `json:"pwm_threshold"`
	DerivativeThreshold int `json:"derivative_threshold"`
	DerivativeMaximum   int `json:"derivative_maximum"`
	DerivativeMinimum   int `json:"derivative_minimum"`
	PWMMaximum          int `json:"pwm_maximum"`
	PWMMinimum          int `json:"pwm_minimum"`
	ProportionalGain    int `json:"proportional_gain"`
	DerivativeGain      int `json:"derivative_gain"`
	AverageRC           int `json:"average_rc"`
	AverageADC          int `json:"average_adc"`

	Actuators [2]Actuator `json:"actuators"`
}

// validate checks every bounded LAC field against lacBounds, matching
// mkd_ini.cpp's range check performed while parsing the .ini file.
func (l LAC) validate() error {
	fields := map[string]int{
		"Speed": l.Speed, "Accuracy": l.Accuracy, "RetractLimit": l.RetractLimit,
		"ExtendLimit": l.ExtendLimit, "MovementThreshold": l.MovementThreshold,
		"StallTime": l.StallTime, "PWMThreshold": l.PWMThreshold,
		"DerivativeThreshold": l.DerivativeThreshold, "DerivativeMaximum": l.DerivativeMaximum,
		"DerivativeMinimum": l.DerivativeMinimum, "PWMMaximum": l.PWMMaximum,
		"PWMMinimum": l.PWMMinimum, "ProportionalGain": l.ProportionalGain,
		"DerivativeGain": l.DerivativeGain, "AverageRC": l.AverageRC, "AverageADC": l.AverageADC,
	}
	for name, v := range fields {
		if err := lacBounds[name].check(name, v); err != nil {
			return err
		}
	}
	for _, act := range l.Actuators {
		for _, f := range act.Filters {
			if f.Position < 0 || f.Position > 1023 {
				return fmt.Errorf("config: actuator filter position %d out of range [0, 1023]", f.Position)
			}
		}
	}
	return nil
}

// Timeouts holds the instrument server's wait and settle timeouts, in
// milliseconds, grounded on mkd_ini.h's CFG_SECT_TMO section (named but not
// detailed in the retrieved mkd_ini.h excerpt; fields below cover the
// deploy/stow and lamp-settle waits spec.md §4.6 requires).
type Timeouts struct {
	DeployMS int `json:"deploy_ms"`
	StowMS   int `json:"stow_ms"`
	LampMS   int `json:"lamp_ms"`
}

// PIO is the CFG_SECT_PIO section.
type PIO struct {
	Device string `json:"device"`
}

// Instrument is the mkd-instrument-server configuration file's shape.
type Instrument struct {
	WorkingDirectory string `json:"working_directory"`
	LogFile          string `json:"log_file"`
	LogLevel         int    `json:"log_level"`

	LAC      LAC      `json:"lac"`
	Timeouts Timeouts `json:"timeouts"`
	PIO      PIO      `json:"pio"`

	Port int `json:"port"`
}

// LoadCamera reads and validates a camera server configuration file.
func LoadCamera(path string) (Camera, error) {
	var c Camera
	if err := readJSON(path, &c); err != nil {
		return Camera{}, err
	}
	if c.NCols <= 0 || c.NRows <= 0 {
		return Camera{}, fmt.Errorf("config: %s: ncols/nrows must be positive", path)
	}
	if c.InstrumentCode == "" {
		return Camera{}, fmt.Errorf("config: %s: instrument_code must not be empty", path)
	}
	return c, nil
}

// LoadInstrument reads and validates an instrument server configuration
// file, applying the same {min,max} bounds mkd_ini.cpp enforced while
// parsing mkd.cfg.
func LoadInstrument(path string) (Instrument, error) {
	var c Instrument
	if err := readJSON(path, &c); err != nil {
		return Instrument{}, err
	}
	if err := c.LAC.validate(); err != nil {
		return Instrument{}, fmt.Errorf("config: %s: %w", path, err)
	}
	if c.PIO.Device == "" {
		return Instrument{}, fmt.Errorf("config: %s: pio.device must not be empty", path)
	}
	return c, nil
}

func readJSON(path string, v interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("config: opening %s: %w", path, err)
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(v); err != nil {
		return fmt.Errorf("config: decoding %s: %w", path, err)
	}
	return nil
}
