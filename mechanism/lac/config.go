// Copyright 2024 The Mookodi Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lac

import "github.com/piascik/Mookodi-sub000/config"

// TuningFromConfig converts a validated config.LAC section into the Tuning
// Configure writes to both boards.
func TuningFromConfig(c config.LAC) Tuning {
	return Tuning{
		Speed:               c.Speed,
		Accuracy:            c.Accuracy,
		RetractLimit:        c.RetractLimit,
		ExtendLimit:         c.ExtendLimit,
		MovementThreshold:   c.MovementThreshold,
		StallTime:           c.StallTime,
		PWMThreshold:        c.PWMThreshold,
		DerivativeThreshold: c.DerivativeThreshold,
		DerivativeMaximum:   c.DerivativeMaximum,
		DerivativeMinimum:   c.DerivativeMinimum,
		PWMMaximum:          c.PWMMaximum,
		PWMMinimum:          c.PWMMinimum,
		ProportionalGain:    c.ProportionalGain,
		DerivativeGain:      c.DerivativeGain,
		AverageRC:           c.AverageRC,
		AverageADC:          c.AverageADC,
	}
}
