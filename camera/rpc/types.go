// Copyright 2024 The Mookodi Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package rpc is the camera server's RPC facade: request validation,
// status assembly, worker launch and abort, over net/http + JSON in the
// teacher's own idiom (grounded on appengine/seeall/api's plain JSON
// structs and cmd/lepton/server.go's http.ServeMux), since the transport
// is specified only by interface (spec.md §1) and no dependency in the
// retrieved example corpus provides an RPC framework.
package rpc

import "github.com/piascik/Mookodi-sub000/camera"

// FitsCardType is the wire enum spec.md §6 names for set_fits_headers.
type FitsCardType string

// Valid FitsCardType values.
const (
	CardInteger FitsCardType = "INTEGER"
	CardFloat   FitsCardType = "FLOAT"
	CardString  FitsCardType = "STRING"
)

// FitsCard is one client-pushed header card on the wire.
type FitsCard struct {
	Keyword string       `json:"keyword"`
	Type    FitsCardType `json:"type"`
	Value   interface{}  `json:"value"`
	Units   string       `json:"units,omitempty"`
	Comment string       `json:"comment,omitempty"`
}

// SetBinningRequest is set_binning's request body.
type SetBinningRequest struct {
	HBin int `json:"hbin"`
	VBin int `json:"vbin"`
}

// SetWindowRequest is set_window's request body.
type SetWindowRequest struct {
	XStart int `json:"x_start"`
	YStart int `json:"y_start"`
	XEnd   int `json:"x_end"`
	YEnd   int `json:"y_end"`
}

// SetReadoutSpeedRequest is set_readout_speed's request body.
type SetReadoutSpeedRequest struct {
	Speed string `json:"speed"` // "SLOW" | "FAST"
}

// SetGainRequest is set_gain's request body.
type SetGainRequest struct {
	Gain string `json:"gain"` // "ONE" | "TWO" | "FOUR"
}

// SetFitsHeadersRequest is set_fits_headers' request body. add_fits_header
// takes a single FitsCard as its body instead.
type SetFitsHeadersRequest struct {
	Cards []FitsCard `json:"cards"`
}

// StartExposeRequest is the body shared by start_expose, start_multbias,
// start_multdark, start_multrun.
type StartExposeRequest struct {
	ExposureLengthMS int  `json:"exposure_length_ms"`
	Count            int  `json:"count"`
	Save             bool `json:"save"`
}

// StateResponse is get_state's reply, composing spec.md §3 + §4.4.
type StateResponse struct {
	NCols, NRows int
	HBin, VBin   int
	WindowEnabled bool
	Window       [4]int // x_start, y_start, x_end, y_end

	ReadoutSpeed string
	Gain         string
	FlipX, FlipY bool

	ExposureState string
	ExposureIndex int
	ExposureCount int
	ElapsedMS     int64
	RemainingMS   int64

	TemperatureK      float64
	TemperatureStatus string

	LastFilename string
	Busy         bool
}

// ImageDataResponse is get_image_data's reply.
type ImageDataResponse struct {
	Width, Height int
	Pixels        []uint16
}

// ErrorResponse is the JSON body returned for any non-2xx reply, carrying
// the camera package's typed Kind as a string (spec.md §9's "convert into
// the RPC error wire type" at the handler boundary).
type ErrorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func errorResponse(err error) (int, ErrorResponse) {
	kind := camera.KindOf(err)
	status := 500
	switch kind {
	case camera.ConfigError, camera.InvariantViolation:
		status = 400
	case camera.BusyError:
		status = 409
	case camera.TimeoutError:
		status = 504
	case camera.AbortedError:
		status = 499
	case camera.FilesystemError, camera.HardwareError:
		status = 500
	}
	msg := err.Error()
	k := "UnknownError"
	if kind != 0 {
		k = kind.String()
	}
	return status, ErrorResponse{Kind: k, Message: msg}
}
