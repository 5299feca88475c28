// Copyright 2024 The Mookodi Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build !andor

package main

import (
	"fmt"

	"github.com/piascik/Mookodi-sub000/detector"
)

func newAndorDetector() (detector.Detector, error) {
	return nil, fmt.Errorf("mkd-camera-server: built without the andor tag; pass -emulate_camera or rebuild with -tags andor")
}
