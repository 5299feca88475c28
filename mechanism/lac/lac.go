// Copyright 2024 The Mookodi Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package lac drives the two linear-actuator controller boards over USB
// bulk transfers, ported from mkd_lac.cpp's lac_init/lac_open/lac_xfer
// sequence onto periph.io/x/periph/experimental/conn/usb's vendor/product
// registry shape.
package lac

import (
	"fmt"
	"sync"
	"time"

	"periph.io/x/periph/experimental/conn/usb"
)

// Register addresses, from mkd.h's LAC_SET_* family.
const (
	AddrSetAccuracy            = 0x01
	AddrSetRetractLimit        = 0x02
	AddrSetExtendLimit         = 0x03
	AddrSetMovementThreshold   = 0x04
	AddrSetStallTime           = 0x05
	AddrSetPWMThreshold        = 0x06
	AddrSetDerivativeThreshold = 0x07
	AddrSetDerivativeMaximum   = 0x08
	AddrSetDerivativeMinimum   = 0x09
	AddrSetPWMMaximum          = 0x0A
	AddrSetPWMMinimum          = 0x0B
	AddrSetProportionalGain    = 0x0C
	AddrSetDerivativeGain      = 0x0D
	AddrSetAverageRC           = 0x0E
	AddrSetAverageADC          = 0x0F
	AddrGetFeedback            = 0x10
	AddrSetPosition            = 0x20
	AddrSetSpeed               = 0x21
	AddrDisableManual          = 0x30
	AddrReset                  = 0xFF
)

// VendorID and ProductID identify a LAC board on the USB bus, from
// mkd.h's LAC_VID/LAC_PID.
const (
	VendorID  usb.ID = 0x04D8
	ProductID usb.ID = 0xFC5F
)

// Count is the number of LAC boards a working instrument must have
// (mkd.h's LAC_COUNT).
const Count = 2

// Positions is the number of named filter slots per actuator (mkd.h's
// LAC_POSITIONS).
const Positions = 5

// Tuning holds the CFG_SECT_LAC configuration block lac_conf() writes to
// every board.
type Tuning struct {
	Speed               int
	Accuracy            int
	RetractLimit        int
	ExtendLimit         int
	MovementThreshold   int
	StallTime           int
	PWMThreshold        int
	DerivativeThreshold int
	DerivativeMaximum   int
	DerivativeMinimum   int
	PWMMaximum          int
	PWMMinimum          int
	ProportionalGain    int
	DerivativeGain      int
	AverageRC           int
	AverageADC          int
}

// registers returns Tuning as an ordered (addr, value) list, the same
// order lac_conf() writes them in.
func (t Tuning) registers() []struct {
	addr int
	val  int
} {
	return []struct {
		addr int
		val  int
	}{
		{AddrSetSpeed, t.Speed},
		{AddrSetAccuracy, t.Accuracy},
		{AddrSetRetractLimit, t.RetractLimit},
		{AddrSetExtendLimit, t.ExtendLimit},
		{AddrSetMovementThreshold, t.MovementThreshold},
		{AddrSetStallTime, t.StallTime},
		{AddrSetPWMThreshold, t.PWMThreshold},
		{AddrSetDerivativeThreshold, t.DerivativeThreshold},
		{AddrSetDerivativeMaximum, t.DerivativeMaximum},
		{AddrSetDerivativeMinimum, t.DerivativeMinimum},
		{AddrSetPWMMaximum, t.PWMMaximum},
		{AddrSetPWMMinimum, t.PWMMinimum},
		{AddrSetProportionalGain, t.ProportionalGain},
		{AddrSetDerivativeGain, t.DerivativeGain},
		{AddrSetAverageRC, t.AverageRC},
		{AddrSetAverageADC, t.AverageADC},
	}
}

// Bus abstracts one LAC board's USB bulk endpoint pair, so the real
// backend and tests can both satisfy it without a live bus.
type Bus interface {
	// Xfer writes a 3-byte (addr, val_lo, val_hi) OUT packet, then reads a
	// matching 3-byte IN packet, returning the value the board echoed
	// back (mkd_lac.cpp's lac_xfer).
	Xfer(addr, val int) (int, error)
}

// Controller drives Count LAC boards.
type Controller struct {
	mu      sync.Mutex
	buses   [Count]Bus
	tuning  Tuning
	debugLv int
}

// Open is the entry point for opening real LAC boards over USB. In this
// build it enumerates no devices: reg and opener are not used, and it
// always returns an error together with a Controller that has no buses.
func Open(reg usb.Registry, opener func(usb.ConnCloser) (Bus, error)) (*Controller, error) {
	c := &Controller{}
	_ = reg
	_ = opener
	return c, fmt.Errorf("lac: Open requires a platform-specific USB registry binding, not available in this build")
}

// NewWithBuses wires a Controller directly over already-opened buses,
// the path both the emulated backend and tests use.
func NewWithBuses(buses [Count]Bus) *Controller {
	return &Controller{buses: buses}
}

// Configure writes every tuning register to every board and verifies each
// echoed value matches, matching lac_conf()'s "any disagreement fails the
// whole operation" transaction semantics.
func (c *Controller) Configure(t Tuning) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, bus := range c.buses {
		for _, reg := range t.registers() {
			got, err := bus.Xfer(reg.addr, reg.val)
			if err != nil {
				return fmt.Errorf("lac: configuring board %d addr 0x%02X: %w", i, reg.addr, err)
			}
			if got != reg.val {
				return fmt.Errorf("lac: configuring board %d addr 0x%02X: wrote %d, echoed %d", i, reg.addr, reg.val, got)
			}
		}
	}
	c.tuning = t
	return nil
}

// SetPosition commands one board to a position, optionally polling
// feedback until it is within accuracy or tmo elapses (mkd_lac.cpp's
// lac_set_pos).
func (c *Controller) SetPosition(index, pos int, tmo time.Duration) error {
	if index < 0 || index >= Count {
		return fmt.Errorf("lac: board index %d out of range", index)
	}
	c.mu.Lock()
	bus := c.buses[index]
	accuracy := c.tuning.Accuracy
	c.mu.Unlock()

	if _, err := bus.Xfer(AddrSetPosition, pos); err != nil {
		return fmt.Errorf("lac: setting position on board %d: %w", index, err)
	}
	if tmo <= 0 {
		return nil
	}
	return waitWithinAccuracy(bus, pos, accuracy, tmo)
}

// SetBoth commands both boards' positions without waiting for the first to
// settle before issuing the second, preserving mkd_lac.cpp's lac_set_both
// "simultaneous" property that two-axis moves are expected to overlap.
func (c *Controller) SetBoth(pos0, pos1 int, tmo time.Duration) error {
	c.mu.Lock()
	bus0, bus1 := c.buses[0], c.buses[1]
	accuracy := c.tuning.Accuracy
	c.mu.Unlock()

	if _, err := bus0.Xfer(AddrSetPosition, pos0); err != nil {
		return fmt.Errorf("lac: setting position on board 0: %w", err)
	}
	if _, err := bus1.Xfer(AddrSetPosition, pos1); err != nil {
		return fmt.Errorf("lac: setting position on board 1: %w", err)
	}
	if tmo <= 0 {
		return nil
	}

	deadline := time.Now().Add(tmo)
	const tick = 10 * time.Millisecond
	for {
		now0, err := bus0.Xfer(AddrGetFeedback, 0)
		if err != nil {
			return fmt.Errorf("lac: reading feedback on board 0: %w", err)
		}
		now1, err := bus1.Xfer(AddrGetFeedback, 0)
		if err != nil {
			return fmt.Errorf("lac: reading feedback on board 1: %w", err)
		}
		if abs(now0-pos0) <= accuracy && abs(now1-pos1) <= accuracy {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("lac: SetBoth(%d, %d) timed out after %v", pos0, pos1, tmo)
		}
		time.Sleep(tick)
	}
}

// Debug records a log verbosity level, the counterpart of mkd_lac.cpp's
// lac_debug(level) hook. The level is only stored; nothing in this
// package reads it, and no USB backend log setting is changed.
func (c *Controller) Debug(level int) {
	c.mu.Lock()
	c.debugLv = level
	c.mu.Unlock()
}

// ActuatorStatus is one board's introspection snapshot: the tuning last
// successfully written by Configure, and its current feedback reading.
type ActuatorStatus struct {
	Tuning   Tuning
	Feedback int
}

// Status reads back every board's current feedback and reports it
// alongside the shared Tuning Configure last wrote, the register-dump
// introspection a CLI test harness would want (mkd_tst.cpp's role for
// mkd_lac.cpp).
func (c *Controller) Status() ([Count]ActuatorStatus, error) {
	c.mu.Lock()
	buses := c.buses
	tuning := c.tuning
	c.mu.Unlock()

	var out [Count]ActuatorStatus
	for i, bus := range buses {
		fb, err := bus.Xfer(AddrGetFeedback, 0)
		if err != nil {
			return out, fmt.Errorf("lac: reading status of board %d: %w", i, err)
		}
		out[i] = ActuatorStatus{Tuning: tuning, Feedback: fb}
	}
	return out, nil
}

// Feedback reads one board's current position.
func (c *Controller) Feedback(index int) (int, error) {
	c.mu.Lock()
	bus := c.buses[index]
	c.mu.Unlock()
	return bus.Xfer(AddrGetFeedback, 0)
}

func waitWithinAccuracy(bus Bus, pos, accuracy int, tmo time.Duration) error {
	deadline := time.Now().Add(tmo)
	const tick = 10 * time.Millisecond
	for {
		now, err := bus.Xfer(AddrGetFeedback, 0)
		if err != nil {
			return fmt.Errorf("lac: reading feedback: %w", err)
		}
		if abs(now-pos) <= accuracy {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("lac: SetPosition(%d) timed out after %v", pos, tmo)
		}
		time.Sleep(tick)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
