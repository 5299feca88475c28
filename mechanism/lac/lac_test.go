// Copyright 2024 The Mookodi Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lac

import (
	"testing"
	"time"
)

func TestConfigure_writesAndVerifiesEveryRegister(t *testing.T) {
	c := NewEmulatedController()
	tuning := Tuning{
		Speed: 900, Accuracy: 4, RetractLimit: 0, ExtendLimit: 1023,
		MovementThreshold: 3, StallTime: 10000, PWMThreshold: 80,
		DerivativeThreshold: 10, DerivativeMaximum: 1023, DerivativeMinimum: 0,
		PWMMaximum: 1023, PWMMinimum: 80, ProportionalGain: 1,
		DerivativeGain: 10, AverageRC: 4, AverageADC: 8,
	}
	if err := c.Configure(tuning); err != nil {
		t.Fatal(err)
	}
}

func TestSetPosition_waitsWithinAccuracy(t *testing.T) {
	c := NewEmulatedController()
	if err := c.Configure(Tuning{Accuracy: 2}); err != nil {
		t.Fatal(err)
	}
	if err := c.SetPosition(0, 500, time.Second); err != nil {
		t.Fatal(err)
	}
	got, err := c.Feedback(0)
	if err != nil {
		t.Fatal(err)
	}
	if got != 500 {
		t.Fatalf("Feedback(0) = %d, want 500", got)
	}
}

// TestSetBoth_issuesBothPositionsBeforeWaiting matches mkd_lac.cpp's
// lac_set_both: both SET_POSITION writes happen up front, so a slow first
// actuator never delays the second actuator's move from starting.
func TestSetBoth_issuesBothPositionsBeforeWaiting(t *testing.T) {
	var order []int
	bus0 := &orderRecordingBus{EmulatedBus: NewEmulatedBus(), log: &order}
	bus1 := &orderRecordingBus{EmulatedBus: NewEmulatedBus(), log: &order}
	c := NewWithBuses([Count]Bus{bus0, bus1})
	if err := c.Configure(Tuning{Accuracy: 1}); err != nil {
		t.Fatal(err)
	}
	order = nil
	if err := c.SetBoth(100, 200, time.Second); err != nil {
		t.Fatal(err)
	}
	if len(order) < 2 || order[0] != AddrSetPosition || order[1] != AddrSetPosition {
		t.Fatalf("bus transfers began %v, want both SET_POSITION writes before any feedback read", order)
	}
	if bus1.setCount != 1 {
		t.Fatalf("board 1 SET_POSITION issued %d times, want exactly 1", bus1.setCount)
	}
	pos, _ := c.Feedback(1)
	if pos != 200 {
		t.Fatalf("board 1 feedback = %d, want 200", pos)
	}
}

type orderRecordingBus struct {
	*EmulatedBus
	setCount int
	log      *[]int
}

func (b *orderRecordingBus) Xfer(addr, val int) (int, error) {
	if b.log != nil {
		*b.log = append(*b.log, addr)
	}
	if addr == AddrSetPosition {
		b.setCount++
	}
	return b.EmulatedBus.Xfer(addr, val)
}

func TestStatus_reportsConfiguredTuningAndCurrentFeedback(t *testing.T) {
	c := NewEmulatedController()
	tuning := Tuning{Accuracy: 2, Speed: 900}
	if err := c.Configure(tuning); err != nil {
		t.Fatal(err)
	}
	if err := c.SetPosition(0, 300, time.Second); err != nil {
		t.Fatal(err)
	}
	if err := c.SetPosition(1, 400, time.Second); err != nil {
		t.Fatal(err)
	}
	status, err := c.Status()
	if err != nil {
		t.Fatal(err)
	}
	if status[0].Feedback != 300 || status[1].Feedback != 400 {
		t.Fatalf("Status() feedback = %+v, want {300} {400}", status)
	}
	if status[0].Tuning != tuning || status[1].Tuning != tuning {
		t.Fatalf("Status() tuning = %+v, want %+v on both boards", status, tuning)
	}
}

func TestSetPosition_rejectsOutOfRangeIndex(t *testing.T) {
	c := NewEmulatedController()
	if err := c.SetPosition(Count, 0, 0); err == nil {
		t.Fatal("expected an error for an out-of-range board index")
	}
}
