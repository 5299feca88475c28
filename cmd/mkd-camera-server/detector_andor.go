// Copyright 2024 The Mookodi Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build andor

package main

import (
	"github.com/piascik/Mookodi-sub000/detector"
	"github.com/piascik/Mookodi-sub000/detector/andor"
)

func newAndorDetector() (detector.Detector, error) {
	return andor.New(), nil
}
