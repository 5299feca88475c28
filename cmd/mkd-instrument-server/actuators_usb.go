// Copyright 2024 The Mookodi Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build usb

package main

import (
	"github.com/piascik/Mookodi-sub000/mechanism"
	"github.com/piascik/Mookodi-sub000/mechanism/lac"
)

func newLACController() (mechanism.Actuators, error) {
	return lac.Open(nil, nil)
}
