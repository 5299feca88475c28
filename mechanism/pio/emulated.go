// Copyright 2024 The Mookodi Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package pio

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Emulated is the spec.md §4.7 simulated PIO backend: it plays mkd_pio.cpp's
// pio_sim_out, deriving a plausible input state (deploy vs. stow limit
// switches) directly from the last output byte written, rather than talking
// to real hardware.
type Emulated struct {
	mu  sync.Mutex
	out byte
	inp byte
}

// NewEmulated returns an Emulated device with both mirror/slit/grism
// mechanisms reporting "stowed", matching the original's power-on default.
func NewEmulated() *Emulated {
	e := &Emulated{}
	e.simulateOut(0)
	return e
}

// simulateOut derives the input byte from the output byte, one mechanism at
// a time, exactly mirroring pio_sim_out's three if/else blocks.
func (e *Emulated) simulateOut(out byte) {
	e.out = out
	if out&OutGrismDeploy != 0 {
		e.inp &^= InpGrismStow
		e.inp |= InpGrismDeploy
	} else {
		e.inp &^= InpGrismDeploy
		e.inp |= InpGrismStow
	}
	if out&OutSlitDeploy != 0 {
		e.inp &^= InpSlitStow
		e.inp |= InpSlitDeploy
	} else {
		e.inp &^= InpSlitDeploy
		e.inp |= InpSlitStow
	}
	if out&OutMirrorDeploy != 0 {
		e.inp &^= InpMirrorStow
		e.inp |= InpMirrorDeploy
	} else {
		e.inp &^= InpMirrorDeploy
		e.inp |= InpMirrorStow
	}
}

// SetOutput implements the same contract as Device.SetOutput.
func (e *Emulated) SetOutput(out byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.simulateOut(out)
	return nil
}

// GetOutput implements the same contract as Device.GetOutput.
func (e *Emulated) GetOutput() (byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.out, nil
}

// GetInput implements the same contract as Device.GetInput.
func (e *Emulated) GetInput() (byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inp, nil
}

// Identify implements the same contract as Device.Identify, answering the
// same identity string the wire-protocol emulatedPort replies with to
// PIO_CMD_GET_NAME.
func (e *Emulated) Identify() (string, error) {
	return "PIO-USB,mookodi-sim", nil
}

// emulatedPort adapts Emulated to the Port interface so it can back a real
// Device when tests want to exercise the ASCII protocol framing itself
// rather than bypass it.
type emulatedPort struct {
	mu      sync.Mutex
	e       *Emulated
	pending []byte
}

// NewEmulatedPort wraps an Emulated device behind the wire protocol,
// answering exactly the command strings pio_command sends.
func NewEmulatedPort(e *Emulated) Port {
	return &emulatedPort{e: e}
}

func (p *emulatedPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cmd := strings.TrimSuffix(string(b), "\r")
	var reply string
	switch {
	case cmd == "@00D000" || cmd == "@00D1FF":
		reply = "!00"
	case strings.HasPrefix(cmd, "@00P0") && cmd != "@00P0?":
		var v int
		if _, err := fmt.Sscanf(cmd[5:], "%X", &v); err != nil {
			return 0, fmt.Errorf("pio: parsing output command %q: %w", cmd, err)
		}
		if err := p.e.SetOutput(byte(v)); err != nil {
			return 0, err
		}
		reply = "!00"
	case cmd == "@00P0?":
		v, _ := p.e.GetOutput()
		reply = fmt.Sprintf("@00P0=%02X", v)
	case cmd == "@00P1?":
		v, _ := p.e.GetInput()
		reply = fmt.Sprintf("@00P1=%02X", v)
	case cmd == "$00M":
		reply = "PIO-USB,mookodi-sim"
	default:
		reply = "!FF"
	}
	p.pending = append(p.pending, []byte(reply+"\r")...)
	return len(b), nil
}

func (p *emulatedPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.pending) == 0 {
		return 0, io.EOF
	}
	n := copy(b, p.pending)
	p.pending = p.pending[n:]
	return n, nil
}
