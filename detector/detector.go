// Copyright 2024 The Mookodi Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package detector defines the thin, typed facade the camera server uses
// to drive the vendor CCD detector, in the shape of lepton.Lepton: a
// narrow interface with one real implementation (detector/andor) and one
// in-process fake (detector/emulated) satisfying the same contract.
package detector

import "time"

// ReadoutSpeed selects a programmed (hs_index, vs_index, vs_amplitude)
// tuple from configuration.
type ReadoutSpeed int

// Valid ReadoutSpeed values.
const (
	Slow ReadoutSpeed = iota
	Fast
)

func (s ReadoutSpeed) String() string {
	if s == Fast {
		return "FAST"
	}
	return "SLOW"
}

// Gain selects a pre-amp index on the detector.
type Gain int

// Valid Gain values, mapped to pre-amp index 0/1/2 by the adapter.
const (
	GainOne Gain = iota
	GainTwo
	GainFour
)

func (g Gain) String() string {
	switch g {
	case GainTwo:
		return "TWO"
	case GainFour:
		return "FOUR"
	default:
		return "ONE"
	}
}

// PreAmpIndex maps a Gain to the detector's pre-amp gain register index.
func (g Gain) PreAmpIndex() int { return int(g) }

// TemperatureStatus reports the detector cooler's state.
type TemperatureStatus int

// Valid TemperatureStatus values.
const (
	TemperatureUnknown TemperatureStatus = iota
	TemperatureOff
	TemperatureAmbient
	TemperatureOK
	TemperatureRamping
)

func (s TemperatureStatus) String() string {
	switch s {
	case TemperatureOff:
		return "OFF"
	case TemperatureAmbient:
		return "AMBIENT"
	case TemperatureOK:
		return "OK"
	case TemperatureRamping:
		return "RAMPING"
	default:
		return "UNKNOWN"
	}
}

// DriverStatus is the detector's low-level acquisition status, as
// reported between the start of an expose/bias call and its completion.
type DriverStatus int

// Valid DriverStatus values. The camera RPC handler maps these onto the
// published ExposureState enum (spec.md §4.4's table).
const (
	StatusNone DriverStatus = iota
	StatusWaitStart
	StatusExpose
	StatusReadout
)

// Temperature is a timestamped reading of the detector's sensor.
type Temperature struct {
	Kelvin float64
	Status TemperatureStatus
	At     time.Time
}

// Dimensions describes the pixel geometry programmed on the detector.
type Dimensions struct {
	NCols, NRows int
	HBin, VBin   int
	// WindowEnabled selects a sub-window of the full frame. Bounds are
	// inclusive, unbinned pixel coordinates.
	WindowEnabled              bool
	XStart, YStart, XEnd, YEnd int
}

// BinnedWidth and BinnedHeight return the pixel dimensions of a frame
// taken with d's current binning and window settings.
func (d Dimensions) BinnedWidth() int {
	if d.WindowEnabled {
		return (d.XEnd - d.XStart + 1) / d.HBin
	}
	return d.NCols / d.HBin
}

func (d Dimensions) BinnedHeight() int {
	if d.WindowEnabled {
		return (d.YEnd - d.YStart + 1) / d.VBin
	}
	return d.NRows / d.VBin
}

// ExposeRequest parameterizes a single frame acquisition.
type ExposeRequest struct {
	OpenShutter      bool
	StartTime        time.Time
	ExposureLengthMS int
	// Buffer receives the 16-bit pixel values; it must already be sized
	// to Dimensions.BinnedWidth()*Dimensions.BinnedHeight().
	Buffer []uint16
}

// Detector is the adapter's capability surface, grounded on
// lepton.Lepton's interface shape and on the Andor SDK call sequence
// (other_examples' andor.go): a narrow, typed facade over whatever
// vendor driver is linked in.
type Detector interface {
	// Initialize sets the driver's configuration directory and starts it.
	Initialize(configDir string) error
	Shutdown() error

	SetDimensions(d Dimensions) error
	SetFlip(x, y bool) error

	SetHSSpeed(index int) error
	SetVSSpeed(index int) error
	SetVSAmplitude(amplitude int) error
	SetPreAmpGain(index int) error

	HSSpeedMHz() float64
	VSSpeedMicrosecondsPerPixel() float64

	SetTemperature(kelvin float64) error
	CoolerOn() error
	CoolerOff() error
	Temperature() (Temperature, error)
	CachedTemperature() Temperature

	HeadModelName() (string, error)
	SerialNumber() (int, error)
	BufferLength() (int, error)

	ExposureLength() time.Duration
	ExposureStartTime() time.Time
	ExposureStatus() DriverStatus

	// Expose acquires a single frame. req.Buffer is filled in place.
	Expose(req ExposeRequest) error
	// Bias acquires a zero-length, shutter-closed frame.
	Bias(buf []uint16) error
	// Abort unblocks any in-progress Expose/Bias call.
	Abort() error

	// Save writes buf (binned width x height pixels) plus header to
	// filename as a 16-bit FITS image.
	Save(filename string, buf []uint16, width, height int, header []HeaderCard) error
}

// HeaderCard mirrors fitsheader.Card's shape without importing that
// package, keeping detector free of a dependency on the camera's header
// store type.
type HeaderCard struct {
	Keyword string
	Value   interface{}
	Units   string
	Comment string
}
