// Copyright 2024 The Mookodi Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package emulated is an in-process replacement for the real detector
// adapter, preserving its shape and timing discipline without talking to
// hardware, grounded on lepton/fake_lepton.go's MakeFakeLepton.
package emulated

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/piascik/Mookodi-sub000/detector"
)

// Detector is a deterministic, hardware-free stand-in for the real
// detector adapter. It is selected by a runtime flag (--emulate_camera);
// from the RPC surface it is indistinguishable from the real adapter.
type Detector struct {
	mu sync.Mutex

	dims       detector.Dimensions
	flipX      bool
	flipY      bool
	hsIndex    int
	vsIndex    int
	vsAmp      int
	preAmp     int
	targetK    float64
	coolerOn   bool
	coolerSince time.Time

	abort     atomic.Bool
	status    atomic.Int32 // detector.DriverStatus
	startTime atomic.Value // time.Time
	length    atomic.Int64 // nanoseconds
	remaining atomic.Int64 // milliseconds, for get_state's "remaining" field

	started bool
}

// New returns an emulated detector with zero dimensions; SetDimensions
// sets them. Initialize still must be called before use, matching the real
// adapter's lifecycle.
func New() *Detector {
	d := &Detector{}
	d.status.Store(int32(detector.StatusNone))
	d.startTime.Store(time.Time{})
	return d
}

func (d *Detector) Initialize(configDir string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.started = true
	return nil
}

func (d *Detector) Shutdown() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.started = false
	return nil
}

func (d *Detector) SetDimensions(dims detector.Dimensions) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dims = dims
	return nil
}

func (d *Detector) SetFlip(x, y bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.flipX, d.flipY = x, y
	return nil
}

func (d *Detector) SetHSSpeed(index int) error { d.mu.Lock(); defer d.mu.Unlock(); d.hsIndex = index; return nil }
func (d *Detector) SetVSSpeed(index int) error { d.mu.Lock(); defer d.mu.Unlock(); d.vsIndex = index; return nil }
func (d *Detector) SetVSAmplitude(amp int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.vsAmp = amp
	return nil
}
func (d *Detector) SetPreAmpGain(index int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.preAmp = index
	return nil
}

// HSSpeedMHz and VSSpeedMicrosecondsPerPixel return plausible constants
// keyed to the programmed index, standing in for a speed table read off
// the real detector.
func (d *Detector) HSSpeedMHz() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return []float64{1.0, 3.0, 5.0, 10.0}[d.hsIndex%4]
}

func (d *Detector) VSSpeedMicrosecondsPerPixel() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return []float64{4.33, 8.25, 16.25, 32.25}[d.vsIndex%4]
}

func (d *Detector) SetTemperature(kelvin float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.targetK = kelvin
	return nil
}

func (d *Detector) CoolerOn() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.coolerOn = true
	d.coolerSince = time.Now()
	return nil
}

func (d *Detector) CoolerOff() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.coolerOn = false
	return nil
}

const ambientK = 293.15

// Temperature reports a linear ramp from ambient to the target
// temperature over a fixed 30s horizon once the cooler is on, matching
// spec.md §4.1's OFF/AMBIENT/OK/RAMPING/UNKNOWN status ladder.
func (d *Detector) Temperature() (detector.Temperature, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t := d.temperatureLocked()
	return t, nil
}

func (d *Detector) temperatureLocked() detector.Temperature {
	now := time.Now()
	if !d.coolerOn {
		return detector.Temperature{Kelvin: ambientK, Status: detector.TemperatureOff, At: now}
	}
	const rampSeconds = 30.0
	elapsed := now.Sub(d.coolerSince).Seconds()
	frac := elapsed / rampSeconds
	if frac >= 1 {
		return detector.Temperature{Kelvin: d.targetK, Status: detector.TemperatureOK, At: now}
	}
	k := ambientK + frac*(d.targetK-ambientK)
	return detector.Temperature{Kelvin: k, Status: detector.TemperatureRamping, At: now}
}

func (d *Detector) CachedTemperature() detector.Temperature {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.temperatureLocked()
}

func (d *Detector) HeadModelName() (string, error) { return "MOOKODI-EMULATOR", nil }
func (d *Detector) SerialNumber() (int, error)     { return 1, nil }

func (d *Detector) BufferLength() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dims.BinnedWidth() * d.dims.BinnedHeight(), nil
}

func (d *Detector) ExposureLength() time.Duration {
	return time.Duration(d.length.Load())
}

func (d *Detector) ExposureStartTime() time.Time {
	v := d.startTime.Load()
	if v == nil {
		return time.Time{}
	}
	return v.(time.Time)
}

func (d *Detector) ExposureStatus() detector.DriverStatus {
	return detector.DriverStatus(d.status.Load())
}

// Expose synthesises a deterministic gradient image. pixel(i,j) =
// (i*j*2^14) / totalPixels, matching spec.md §4.7. It sleeps in 1-second
// steps during the exposure phase, decrementing the published remaining
// time, then sleeps one second for readout. Abort is observed between
// seconds and ends the loop immediately.
func (d *Detector) Expose(req detector.ExposeRequest) error {
	return d.acquire(req.StartTime, req.ExposureLengthMS, req.Buffer)
}

func (d *Detector) Bias(buf []uint16) error {
	return d.acquire(time.Now(), 0, buf)
}

func (d *Detector) acquire(start time.Time, lengthMS int, buf []uint16) error {
	d.abort.Store(false)
	d.startTime.Store(start)
	d.length.Store(int64(lengthMS) * int64(time.Millisecond))
	d.remaining.Store(int64(lengthMS))
	d.status.Store(int32(detector.StatusExpose))

	remaining := lengthMS
	for remaining > 0 {
		step := remaining
		if step > 1000 {
			step = 1000
		}
		time.Sleep(time.Duration(step) * time.Millisecond)
		remaining -= step
		d.remaining.Store(int64(remaining))
		if d.abort.Load() {
			d.status.Store(int32(detector.StatusNone))
			return fmt.Errorf("emulated: exposure aborted")
		}
	}

	d.status.Store(int32(detector.StatusReadout))
	time.Sleep(time.Second)
	if d.abort.Load() {
		d.status.Store(int32(detector.StatusNone))
		return fmt.Errorf("emulated: exposure aborted during readout")
	}

	d.renderGradient(buf)
	d.status.Store(int32(detector.StatusNone))
	return nil
}

func (d *Detector) renderGradient(buf []uint16) {
	d.mu.Lock()
	w, h := d.dims.BinnedWidth(), d.dims.BinnedHeight()
	d.mu.Unlock()
	if w <= 0 || h <= 0 {
		return
	}
	total := w * h
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			idx := row*w + col
			if idx >= len(buf) {
				return
			}
			buf[idx] = uint16((row * col * 16384) / total)
		}
	}
}

func (d *Detector) Abort() error {
	d.abort.Store(true)
	return nil
}

// Save writes a minimal, valid 16-bit FITS image: a single HDU with a
// fixed-size header block padded to 2880 bytes, matching the on-disk
// format in spec.md §6. The real Andor-backed adapter delegates to the
// vendor FITS writer library (out of scope); the emulator writes the
// format itself so the filename generator's invariants can be tested
// end-to-end without one.
func (d *Detector) Save(filename string, buf []uint16, width, height int, header []detector.HeaderCard) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("emulated: creating %q: %w", filename, err)
	}
	defer f.Close()

	cards := []string{
		"SIMPLE  =                    T",
		"BITPIX  =                   16",
		"NAXIS   =                    2",
		fmt.Sprintf("NAXIS1  = %20d", width),
		fmt.Sprintf("NAXIS2  = %20d", height),
	}
	for _, c := range header {
		cards = append(cards, formatCard(c))
	}
	cards = append(cards, "END")

	block := make([]byte, 0, 2880)
	for _, c := range cards {
		line := fmt.Sprintf("%-80s", c)
		if len(line) > 80 {
			line = line[:80]
		}
		block = append(block, line...)
	}
	for len(block)%2880 != 0 {
		block = append(block, ' ')
	}
	if _, err := f.Write(block); err != nil {
		return fmt.Errorf("emulated: writing header of %q: %w", filename, err)
	}

	pixels := make([]byte, len(buf)*2)
	for i, v := range buf {
		// FITS stores signed 16-bit big-endian; BZERO=32768 convention
		// is handled by the real writer, the emulator stores raw values.
		pixels[2*i] = byte(v >> 8)
		pixels[2*i+1] = byte(v)
	}
	for len(pixels)%2880 != 0 {
		pixels = append(pixels, 0)
	}
	if _, err := f.Write(pixels); err != nil {
		return fmt.Errorf("emulated: writing data of %q: %w", filename, err)
	}
	return nil
}

func formatCard(c detector.HeaderCard) string {
	switch v := c.Value.(type) {
	case bool:
		b := "F"
		if v {
			b = "T"
		}
		return fmt.Sprintf("%-8s= %20s / %s", c.Keyword, b, c.Comment)
	case int64:
		return fmt.Sprintf("%-8s= %20d / %s", c.Keyword, v, c.Comment)
	case int:
		return fmt.Sprintf("%-8s= %20d / %s", c.Keyword, v, c.Comment)
	case float64:
		return fmt.Sprintf("%-8s= %20f / %s", c.Keyword, v, c.Comment)
	case string:
		return fmt.Sprintf("%-8s= '%s' / %s", c.Keyword, v, c.Comment)
	default:
		return fmt.Sprintf("%-8s= %20v / %s", c.Keyword, v, c.Comment)
	}
}
