// Copyright 2024 The Mookodi Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package pio drives the PIO-USB digital I/O module over a \r-terminated
// ASCII serial protocol, ported from mkd_pio.cpp's pio_command/pio_set_output
// /pio_get_input sequence.
package pio

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Input bits, from mkd.h's PIO_INP_* family (port 1, read-only).
const (
	InpSpare0      byte = 0b00000001
	InpSpare1      byte = 0b00000010
	InpGrismDeploy byte = 0b00000100
	InpGrismStow   byte = 0b00001000
	InpSlitDeploy  byte = 0b00010000
	InpSlitStow    byte = 0b00100000
	InpMirrorDeploy byte = 0b01000000
	InpMirrorStow   byte = 0b10000000
)

// Output bits, from mkd.h's PIO_OUT_* family (port 0, write).
const (
	OutSpare0      byte = 0b00000001
	OutSpare1      byte = 0b00000010
	OutSpare2      byte = 0b00000100
	OutGrismDeploy byte = 0b00001000
	OutSlitDeploy  byte = 0b00010000
	OutMirrorDeploy byte = 0b00100000
	OutArcOn        byte = 0b01000000
	OutWLampOn      byte = 0b10000000
)

// Port is the minimal serial transport pio.Device needs: a line-oriented,
// \r-terminated read/write, matching pio_command's single write-then-read.
type Port interface {
	io.Writer
	io.Reader
}

// Device is one PIO-USB serial module.
type Device struct {
	port   Port
	reader *bufio.Reader
}

// New wraps an already-opened serial Port. Callers are responsible for
// setting the termios attributes pio_set_attrib configures (8N1, no flow
// control, raw mode); the real binding does this through
// golang.org/x/sys/unix termios calls when opening the device file.
func New(port Port) *Device {
	return &Device{port: port, reader: bufio.NewReader(port)}
}

// command sends cmd (without the trailing \r, added here) and, if chk is
// non-empty, verifies the reply matches it exactly, matching pio_command's
// write-then-optionally-check-reply behaviour.
func (d *Device) command(cmd, chk string) (string, error) {
	if _, err := d.port.Write([]byte(cmd + "\r")); err != nil {
		return "", fmt.Errorf("pio: write(%s): %w", cmd, err)
	}
	line, err := d.reader.ReadString('\r')
	if err != nil {
		return "", fmt.Errorf("pio: read() after %s: %w", cmd, err)
	}
	reply := strings.TrimSuffix(line, "\r")
	if chk != "" && reply != chk {
		return reply, fmt.Errorf("pio: reply %q to %q, want %q", reply, cmd, chk)
	}
	return reply, nil
}

// SetOutput sets port 0 to output mode and writes out, matching
// pio_set_output's two-command sequence (@00D000/!00 then @00P0xx/!00).
func (d *Device) SetOutput(out byte) error {
	if _, err := d.command("@00D000", "!00"); err != nil {
		return err
	}
	_, err := d.command(fmt.Sprintf("@00P0%02X", out), "!00")
	return err
}

// GetOutput reads port 0's current output state, matching pio_get_output.
func (d *Device) GetOutput() (byte, error) {
	if _, err := d.command("@00D000", "!00"); err != nil {
		return 0, err
	}
	reply, err := d.command("@00P0?", "")
	if err != nil {
		return 0, err
	}
	return parseHexByte(reply)
}

// GetInput sets port 1 to input mode and reads it, matching pio_get_input.
func (d *Device) GetInput() (byte, error) {
	if _, err := d.command("@00D1FF", "!00"); err != nil {
		return 0, err
	}
	reply, err := d.command("@00P1?", "")
	if err != nil {
		return 0, err
	}
	return parseHexByte(reply)
}

// parseHexByte extracts the trailing two hex digits of a reply shaped like
// "@00P0=XX" the way pio_get_output/pio_get_input do with strtol(&buf[3]...).
func parseHexByte(reply string) (byte, error) {
	if len(reply) < 2 {
		return 0, fmt.Errorf("pio: reply %q too short to contain a hex byte", reply)
	}
	v, err := strconv.ParseUint(reply[len(reply)-2:], 16, 8)
	if err != nil {
		return 0, fmt.Errorf("pio: parsing hex byte from reply %q: %w", reply, err)
	}
	return byte(v), nil
}

// Identify queries the module's firmware identity string, matching
// mkd.h's PIO_CMD_GET_NAME ("$00M"). Used once at startup to log which
// BMCM module a server is talking to.
func (d *Device) Identify() (string, error) {
	return d.command("$00M", "")
}

// WaitInput polls GetInput until mask&value equals want, or tmo elapses.
func (d *Device) WaitInput(mask, want byte, tmo time.Duration) error {
	deadline := time.Now().Add(tmo)
	const tick = 50 * time.Millisecond
	for {
		inp, err := d.GetInput()
		if err != nil {
			return err
		}
		if inp&mask == want {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("pio: WaitInput(mask=%#02x, want=%#02x) timed out after %v", mask, want, tmo)
		}
		time.Sleep(tick)
	}
}
