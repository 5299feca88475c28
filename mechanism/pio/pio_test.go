// Copyright 2024 The Mookodi Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package pio

import (
	"testing"
	"time"
)

func TestSetOutput_thenGetInputReflectsGrismDeploy(t *testing.T) {
	e := NewEmulated()
	dev := New(NewEmulatedPort(e))

	if err := dev.SetOutput(OutGrismDeploy); err != nil {
		t.Fatal(err)
	}
	inp, err := dev.GetInput()
	if err != nil {
		t.Fatal(err)
	}
	if inp&InpGrismDeploy == 0 || inp&InpGrismStow != 0 {
		t.Fatalf("GetInput() = %#02x, want GRISM_DEPLOY set and GRISM_STOW clear", inp)
	}
}

func TestSetOutput_clearingDeployReportsStow(t *testing.T) {
	e := NewEmulated()
	dev := New(NewEmulatedPort(e))

	if err := dev.SetOutput(OutGrismDeploy | OutSlitDeploy); err != nil {
		t.Fatal(err)
	}
	if err := dev.SetOutput(0); err != nil {
		t.Fatal(err)
	}
	inp, err := dev.GetInput()
	if err != nil {
		t.Fatal(err)
	}
	if inp&InpGrismStow == 0 || inp&InpSlitStow == 0 {
		t.Fatalf("GetInput() = %#02x, want GRISM_STOW and SLIT_STOW set", inp)
	}
}

func TestGetOutput_roundTrips(t *testing.T) {
	e := NewEmulated()
	dev := New(NewEmulatedPort(e))

	if err := dev.SetOutput(OutArcOn | OutWLampOn); err != nil {
		t.Fatal(err)
	}
	got, err := dev.GetOutput()
	if err != nil {
		t.Fatal(err)
	}
	if got != OutArcOn|OutWLampOn {
		t.Fatalf("GetOutput() = %#02x, want %#02x", got, OutArcOn|OutWLampOn)
	}
}

func TestWaitInput_succeedsOnceOutputSet(t *testing.T) {
	e := NewEmulated()
	dev := New(NewEmulatedPort(e))
	if err := dev.SetOutput(OutMirrorDeploy); err != nil {
		t.Fatal(err)
	}
	if err := dev.WaitInput(InpMirrorDeploy, InpMirrorDeploy, time.Second); err != nil {
		t.Fatal(err)
	}
}

func TestIdentify_returnsModuleName(t *testing.T) {
	e := NewEmulated()
	dev := New(NewEmulatedPort(e))
	name, err := dev.Identify()
	if err != nil {
		t.Fatal(err)
	}
	if name != "PIO-USB,mookodi-sim" {
		t.Fatalf("Identify() = %q, want the simulated module's identity string", name)
	}
}

func TestWaitInput_timesOutWhenNeverReached(t *testing.T) {
	e := NewEmulated()
	dev := New(NewEmulatedPort(e))
	err := dev.WaitInput(InpMirrorDeploy, InpMirrorDeploy, 100*time.Millisecond)
	if err == nil {
		t.Fatal("expected a timeout error")
	}
}
