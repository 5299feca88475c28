// Copyright 2024 The Mookodi Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build linux

package pio

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// serialPort wraps an opened tty file descriptor as a Port.
type serialPort struct {
	f *os.File
}

func (s *serialPort) Write(b []byte) (int, error) { return s.f.Write(b) }
func (s *serialPort) Read(b []byte) (int, error)  { return s.f.Read(b) }

// OpenSerial opens device (e.g. /dev/ttyACM0) and configures it 8N1, raw,
// no flow control, 0.5s read timeout, matching mkd_pio.cpp's pio_open +
// pio_set_attrib + pio_set_blocking(1) sequence.
func OpenSerial(device string) (*Device, error) {
	f, err := os.OpenFile(device, os.O_RDWR|os.O_NOCTTY|unix.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("pio: open(%s): %w", device, err)
	}
	fd := int(f.Fd())

	tty, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("pio: tcgetattr(%s): %w", device, err)
	}

	tty.Cflag = (tty.Cflag &^ unix.CSIZE) | unix.CS8
	tty.Iflag &^= unix.IGNBRK
	tty.Lflag = 0
	tty.Oflag = 0
	tty.Cc[unix.VMIN] = 1
	tty.Cc[unix.VTIME] = 5
	tty.Iflag &^= unix.IXON | unix.IXOFF | unix.IXANY
	tty.Cflag |= unix.CLOCAL | unix.CREAD
	tty.Cflag &^= unix.PARENB | unix.PARODD
	tty.Cflag &^= unix.CSTOPB
	tty.Cflag &^= unix.CRTSCTS
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, tty); err != nil {
		f.Close()
		return nil, fmt.Errorf("pio: tcsetattr(%s): %w", device, err)
	}

	return New(&serialPort{f: f}), nil
}
