// Copyright 2024 The Mookodi Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build andor

// Package andor drives a real Andor CCD head (an iKon-M, in the original
// deployment) through the vendor SDK, implementing detector.Detector. It
// is only built with -tags=andor, when the vendor's ATMCD32D shared
// library and headers are present, exactly as the real lepton.Dev
// requires real SPI/I2C hardware: without that tag, camera servers link
// detector/emulated instead.
package andor

/*
#cgo CFLAGS: -I/usr/local/include
#cgo LDFLAGS: -landor
#include <atmcdLXd.h>
*/
import "C"

import (
	"fmt"
	"sync"
	"time"
	"unsafe"

	"github.com/piascik/Mookodi-sub000/detector"
)

// Driver talks to one Andor detector head through the vendor SDK. mu
// serialises the individual parameter sets that take it (SetDimensions,
// SetHSSpeed, SetVSSpeed) and BufferLength; Expose and Bias do not take
// mu, so it is never held across a full exposure.
type Driver struct {
	mu sync.Mutex

	dims      detector.Dimensions
	hsIndex   int
	vsIndex   int
	startTime time.Time
	length    time.Duration
}

// New returns a Driver bound to the first detected Andor head.
func New() *Driver {
	return &Driver{}
}

func (d *Driver) Initialize(configDir string) error {
	cdir := C.CString(configDir)
	defer C.free(unsafe.Pointer(cdir))
	if rc := C.Initialize(cdir); rc != C.DRV_SUCCESS {
		return errorFromCode(uint(rc))
	}
	return nil
}

func (d *Driver) Shutdown() error {
	if rc := C.ShutDown(); rc != C.DRV_SUCCESS {
		return errorFromCode(uint(rc))
	}
	return nil
}

func (d *Driver) SetDimensions(dims detector.Dimensions) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dims = dims
	if dims.WindowEnabled {
		rc := C.SetImage(C.int(dims.HBin), C.int(dims.VBin), C.int(dims.XStart), C.int(dims.XEnd), C.int(dims.YStart), C.int(dims.YEnd))
		if rc != C.DRV_SUCCESS {
			return errorFromCode(uint(rc))
		}
		return nil
	}
	rc := C.SetImage(C.int(dims.HBin), C.int(dims.VBin), 1, C.int(dims.NCols), 1, C.int(dims.NRows))
	if rc != C.DRV_SUCCESS {
		return errorFromCode(uint(rc))
	}
	return nil
}

func (d *Driver) SetFlip(x, y bool) error {
	// The Andor SDK has no native flip call. This driver accepts the flip
	// settings and ignores them: nothing is stored and no flip is applied.
	return nil
}

func (d *Driver) SetHSSpeed(index int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if rc := C.SetHSSpeed(0, C.int(index)); rc != C.DRV_SUCCESS {
		return errorFromCode(uint(rc))
	}
	d.hsIndex = index
	return nil
}

func (d *Driver) SetVSSpeed(index int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if rc := C.SetVSSpeed(C.int(index)); rc != C.DRV_SUCCESS {
		return errorFromCode(uint(rc))
	}
	d.vsIndex = index
	return nil
}

func (d *Driver) SetVSAmplitude(amp int) error {
	if rc := C.SetVSAmplitude(C.int(amp)); rc != C.DRV_SUCCESS {
		return errorFromCode(uint(rc))
	}
	return nil
}

func (d *Driver) SetPreAmpGain(index int) error {
	if rc := C.SetPreAmpGain(C.int(index)); rc != C.DRV_SUCCESS {
		return errorFromCode(uint(rc))
	}
	return nil
}

func (d *Driver) HSSpeedMHz() float64 {
	var speed C.float
	C.GetHSSpeed(0, 0, C.int(d.hsIndex), &speed)
	return float64(speed)
}

func (d *Driver) VSSpeedMicrosecondsPerPixel() float64 {
	var speed C.float
	C.GetVSSpeed(C.int(d.vsIndex), &speed)
	return float64(speed)
}

func (d *Driver) SetTemperature(kelvin float64) error {
	celsius := int(kelvin - 273.15)
	if rc := C.SetTemperature(C.int(celsius)); rc != C.DRV_SUCCESS {
		return errorFromCode(uint(rc))
	}
	return nil
}

func (d *Driver) CoolerOn() error {
	if rc := C.CoolerON(); rc != C.DRV_SUCCESS {
		return errorFromCode(uint(rc))
	}
	return nil
}

func (d *Driver) CoolerOff() error {
	if rc := C.CoolerOFF(); rc != C.DRV_SUCCESS {
		return errorFromCode(uint(rc))
	}
	return nil
}

func (d *Driver) Temperature() (detector.Temperature, error) {
	var celsius C.int
	rc := C.GetTemperature(&celsius)
	status := statusFromCode(uint(rc))
	if status == detector.TemperatureUnknown {
		return detector.Temperature{}, errorFromCode(uint(rc))
	}
	return detector.Temperature{Kelvin: float64(celsius) + 273.15, Status: status, At: time.Now()}, nil
}

func (d *Driver) CachedTemperature() detector.Temperature {
	t, err := d.Temperature()
	if err != nil {
		return detector.Temperature{Status: detector.TemperatureUnknown, At: time.Now()}
	}
	return t
}

func statusFromCode(rc uint) detector.TemperatureStatus {
	switch rc {
	case C.DRV_TEMPERATURE_OFF:
		return detector.TemperatureOff
	case C.DRV_TEMP_NOT_STABILIZED:
		return detector.TemperatureRamping
	case C.DRV_TEMPERATURE_STABILIZED:
		return detector.TemperatureOK
	case C.DRV_TEMP_NOT_REACHED:
		return detector.TemperatureRamping
	default:
		return detector.TemperatureUnknown
	}
}

func (d *Driver) HeadModelName() (string, error) {
	buf := make([]C.char, 64)
	if rc := C.GetHeadModel(&buf[0]); rc != C.DRV_SUCCESS {
		return "", errorFromCode(uint(rc))
	}
	return C.GoString(&buf[0]), nil
}

func (d *Driver) SerialNumber() (int, error) {
	var n C.int
	if rc := C.GetCameraSerialNumber(&n); rc != C.DRV_SUCCESS {
		return 0, errorFromCode(uint(rc))
	}
	return int(n), nil
}

func (d *Driver) BufferLength() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dims.BinnedWidth() * d.dims.BinnedHeight(), nil
}

func (d *Driver) ExposureLength() time.Duration { return d.length }
func (d *Driver) ExposureStartTime() time.Time  { return d.startTime }

func (d *Driver) ExposureStatus() detector.DriverStatus {
	var status C.int
	C.GetStatus(&status)
	switch status {
	case C.DRV_ACQUIRING:
		return detector.StatusExpose
	case C.DRV_IDLE:
		return detector.StatusNone
	default:
		return detector.StatusNone
	}
}

func (d *Driver) Expose(req detector.ExposeRequest) error {
	d.startTime = req.StartTime
	d.length = time.Duration(req.ExposureLengthMS) * time.Millisecond
	if rc := C.SetShutter(1, boolToShutter(req.OpenShutter), 50, 50); rc != C.DRV_SUCCESS {
		return errorFromCode(uint(rc))
	}
	if rc := C.SetExposureTime(C.float(float64(req.ExposureLengthMS) / 1000.0)); rc != C.DRV_SUCCESS {
		return errorFromCode(uint(rc))
	}
	if rc := C.StartAcquisition(); rc != C.DRV_SUCCESS {
		return errorFromCode(uint(rc))
	}
	if rc := C.WaitForAcquisition(); rc != C.DRV_SUCCESS {
		return errorFromCode(uint(rc))
	}
	return d.readBuffer(req.Buffer)
}

func (d *Driver) Bias(buf []uint16) error {
	return d.Expose(detector.ExposeRequest{OpenShutter: false, StartTime: time.Now(), ExposureLengthMS: 0, Buffer: buf})
}

func (d *Driver) readBuffer(buf []uint16) error {
	n := C.long(len(buf))
	cbuf := make([]C.at_32, len(buf))
	if rc := C.GetAcquiredData(&cbuf[0], n); rc != C.DRV_SUCCESS {
		return errorFromCode(uint(rc))
	}
	for i, v := range cbuf {
		buf[i] = uint16(v)
	}
	return nil
}

func (d *Driver) Abort() error {
	if rc := C.AbortAcquisition(); rc != C.DRV_SUCCESS {
		return errorFromCode(uint(rc))
	}
	return nil
}

// Save delegates to the FITS writer library (out of scope per spec.md
// §1); the real deployment links a vendor-neutral cfitsio wrapper here.
func (d *Driver) Save(filename string, buf []uint16, width, height int, header []detector.HeaderCard) error {
	return fmt.Errorf("andor: Save requires the FITS writer library, not linked into this build")
}

func boolToShutter(open bool) C.int {
	if open {
		return 1
	}
	return 2
}

func errorFromCode(rc uint) error {
	return fmt.Errorf("andor: driver returned code %d", rc)
}
