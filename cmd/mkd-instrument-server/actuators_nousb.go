// Copyright 2024 The Mookodi Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build !usb

package main

import (
	"fmt"

	"github.com/piascik/Mookodi-sub000/mechanism"
)

func newLACController() (mechanism.Actuators, error) {
	return nil, fmt.Errorf("mkd-instrument-server: built without the usb tag; pass -s or rebuild with -tags usb")
}
