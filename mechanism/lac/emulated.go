// Copyright 2024 The Mookodi Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lac

import "sync"

// EmulatedBus is the spec.md §4.7 simulated actuator backend: it stores
// whatever position was last set and reports it back verbatim, as if the
// move completed instantly and with perfect accuracy.
type EmulatedBus struct {
	mu       sync.Mutex
	position int
	registers map[int]int
}

// NewEmulatedBus returns an EmulatedBus starting at position 0.
func NewEmulatedBus() *EmulatedBus {
	return &EmulatedBus{registers: make(map[int]int)}
}

// Xfer implements Bus. A write to AddrSetPosition updates the simulated
// position; a read of AddrGetFeedback returns it; every other register is
// stored and echoed back like the real board's lac_xfer does for any
// tuning register.
func (e *EmulatedBus) Xfer(addr, val int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch addr {
	case AddrSetPosition:
		e.position = val
		return val, nil
	case AddrGetFeedback:
		return e.position, nil
	default:
		e.registers[addr] = val
		return val, nil
	}
}

// NewEmulatedController returns a Controller backed by Count fresh
// EmulatedBus instances, for tests and for instrument-server runs started
// with -s.
func NewEmulatedController() *Controller {
	var buses [Count]Bus
	for i := range buses {
		buses[i] = NewEmulatedBus()
	}
	return NewWithBuses(buses)
}
