// Copyright 2024 The Mookodi Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package rpc is the instrument server's RPC facade over net/http + JSON,
// matching camera/rpc's transport choice for the same reason: spec.md §1
// leaves the RPC framework out of scope by interface, and no dependency in
// the retrieved corpus provides one.
package rpc

import (
	"fmt"

	"github.com/piascik/Mookodi-sub000/mechanism"
)

// CtrlRequest is the body shared by ctrl_slit/ctrl_grism/ctrl_mirror.
type CtrlRequest struct {
	State  string `json:"state"` // "GET" | "DEPLOY" | "STOW"
	TimeoutMS int `json:"tmo_ms"`
}

// ToggleRequest is the body shared by ctrl_lamp/ctrl_arc.
type ToggleRequest struct {
	State string `json:"state"` // "GET" | "DEPLOY" | "STOW"
}

// CtrlFilterRequest is ctrl_filter's request body.
type CtrlFilterRequest struct {
	Which     string `json:"which"` // "FILTER0" | "FILTER1"
	Target    string `json:"target"` // "GET" | "POS0".."POS4"
	TimeoutMS int    `json:"tmo_ms"`
}

// CtrlFiltersRequest is ctrl_filters's request body.
type CtrlFiltersRequest struct {
	Target0   string `json:"target0"`
	Target1   string `json:"target1"`
	TimeoutMS int    `json:"tmo_ms"`
}

// DeployResponse wraps a single DeployState result.
type DeployResponse struct {
	State string `json:"state"`
}

// FilterResponse wraps a single FilterState result.
type FilterResponse struct {
	State string `json:"state"`
}

// FiltersResponse wraps both actuators' FilterState results.
type FiltersResponse struct {
	State0 string `json:"state0"`
	State1 string `json:"state1"`
}

// ErrorResponse is the JSON body for any non-2xx reply.
type ErrorResponse struct {
	Message string `json:"message"`
}

func parseCommand(s string) (mechanism.Command, error) {
	switch s {
	case "GET":
		return mechanism.Get, nil
	case "DEPLOY":
		return mechanism.Deploy, nil
	case "STOW":
		return mechanism.Stow, nil
	default:
		return 0, fmt.Errorf("unknown state %q", s)
	}
}

func parseActuator(s string) (mechanism.ActuatorID, error) {
	switch s {
	case "FILTER0":
		return mechanism.Filter0, nil
	case "FILTER1":
		return mechanism.Filter1, nil
	default:
		return 0, fmt.Errorf("unknown actuator id %q", s)
	}
}

func parseFilterTarget(s string) (mechanism.FilterState, error) {
	switch s {
	case "GET":
		return mechanism.FilterGet, nil
	case "POS0":
		return mechanism.FilterPos0, nil
	case "POS1":
		return mechanism.FilterPos1, nil
	case "POS2":
		return mechanism.FilterPos2, nil
	case "POS3":
		return mechanism.FilterPos3, nil
	case "POS4":
		return mechanism.FilterPos4, nil
	default:
		return 0, fmt.Errorf("unknown filter target %q", s)
	}
}
