// Copyright 2024 The Mookodi Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeJSON(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadCamera_valid(t *testing.T) {
	path := writeJSON(t, "camera.json", `{
		"telescope": "lt", "instrument": "mookodi", "instrument_code": "mkd",
		"data_dir_root": "/data/mookodi", "ncols": 2048, "nrows": 2048, "port": 9020
	}`)
	c, err := LoadCamera(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.NCols != 2048 || c.Port != 9020 {
		t.Fatalf("unexpected config: %+v", c)
	}
}

func TestLoadCamera_rejectsZeroDimensions(t *testing.T) {
	path := writeJSON(t, "camera.json", `{"instrument_code": "mkd", "ncols": 0, "nrows": 2048}`)
	if _, err := LoadCamera(path); err == nil {
		t.Fatal("expected an error for ncols=0")
	}
}

func TestLoadInstrument_valid(t *testing.T) {
	path := writeJSON(t, "instrument.json", `{
		"lac": {"speed": 1023, "accuracy": 4, "retract_limit": 0, "extend_limit": 1023,
			"movement_threshold": 3, "stall_time": 10000, "pwm_threshold": 80,
			"derivative_threshold": 10, "derivative_maximum": 1023, "derivative_minimum": 0,
			"pwm_maximum": 1023, "pwm_minimum": 80, "proportional_gain": 1,
			"derivative_gain": 10, "average_rc": 4, "average_adc": 8},
		"pio": {"device": "/dev/ttyUSB0"}
	}`)
	if _, err := LoadInstrument(path); err != nil {
		t.Fatal(err)
	}
}

func TestLoadInstrument_rejectsOutOfRangeLAC(t *testing.T) {
	path := writeJSON(t, "instrument.json", `{
		"lac": {"speed": 99999},
		"pio": {"device": "/dev/ttyUSB0"}
	}`)
	if _, err := LoadInstrument(path); err == nil {
		t.Fatal("expected an error for out-of-range LAC speed")
	}
}

func TestLoadInstrument_rejectsEmptyPIODevice(t *testing.T) {
	path := writeJSON(t, "instrument.json", `{"lac": {}, "pio": {"device": ""}}`)
	if _, err := LoadInstrument(path); err == nil {
		t.Fatal("expected an error for an empty pio device")
	}
}
