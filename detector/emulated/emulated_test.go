// Copyright 2024 The Mookodi Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package emulated

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/piascik/Mookodi-sub000/detector"
)

func newTestDetector(t *testing.T) *Detector {
	t.Helper()
	d := New()
	if err := d.Initialize(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	if err := d.SetDimensions(detector.Dimensions{NCols: 4, NRows: 4, HBin: 1, VBin: 1}); err != nil {
		t.Fatal(err)
	}
	return d
}

func TestDetector_biasFillsGradient(t *testing.T) {
	d := newTestDetector(t)
	buf := make([]uint16, 16)
	if err := d.Bias(buf); err != nil {
		t.Fatal(err)
	}
	// pixel(i,j) = (i*j*2^14)/totalPixels; for a 4x4 frame the opposite
	// corner from the origin is non-zero.
	if buf[3*4+3] == 0 {
		t.Fatal("expected a non-zero gradient value at the far corner")
	}
	if buf[0] != 0 {
		t.Fatalf("pixel(0,0) = %d, want 0", buf[0])
	}
}

func TestDetector_abortDuringExposure(t *testing.T) {
	d := newTestDetector(t)
	buf := make([]uint16, 16)
	done := make(chan error, 1)
	go func() {
		done <- d.Expose(detector.ExposeRequest{OpenShutter: true, StartTime: time.Now(), ExposureLengthMS: 5000, Buffer: buf})
	}()
	time.Sleep(50 * time.Millisecond)
	if err := d.Abort(); err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected an error from an aborted exposure")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("abort did not unblock Expose within the first 1s step")
	}
	if got := d.ExposureStatus(); got != detector.StatusNone {
		t.Fatalf("ExposureStatus() after abort = %v, want StatusNone", got)
	}
}

func TestDetector_temperatureRamp(t *testing.T) {
	d := newTestDetector(t)
	if err := d.SetTemperature(173.15); err != nil {
		t.Fatal(err)
	}
	if temp, _ := d.Temperature(); temp.Status != detector.TemperatureOff {
		t.Fatalf("Temperature().Status before CoolerOn = %v, want OFF", temp.Status)
	}
	if err := d.CoolerOn(); err != nil {
		t.Fatal(err)
	}
	temp, _ := d.Temperature()
	if temp.Status != detector.TemperatureRamping {
		t.Fatalf("Temperature().Status just after CoolerOn = %v, want RAMPING", temp.Status)
	}
}

func TestDetector_save(t *testing.T) {
	d := newTestDetector(t)
	buf := make([]uint16, 16)
	if err := d.Bias(buf); err != nil {
		t.Fatal(err)
	}
	name := filepath.Join(t.TempDir(), "test.fits")
	header := []detector.HeaderCard{
		{Keyword: "HBIN", Value: int64(1), Comment: "horizontal binning"},
		{Keyword: "FLIPX", Value: false, Comment: "flip in x"},
	}
	if err := d.Save(name, buf, 4, 4, header); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(name)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size()%2880 != 0 {
		t.Fatalf("FITS file size %d is not a multiple of 2880", info.Size())
	}
}
