// Copyright 2024 The Mookodi Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package camera implements the cached detector configuration, the
// exposure worker, FITS header composition, and the typed error taxonomy
// that together make up the camera acquisition core (spec.md §4.1-§4.3).
package camera

import (
	"sync/atomic"

	"github.com/piascik/Mookodi-sub000/detector"
)

// Window is an inclusive, unbinned sub-frame rectangle.
type Window struct {
	XStart, YStart, XEnd, YEnd int
}

// Cache is the server's canonical detector configuration (spec.md §3).
// Every field is written by at most one RPC setter and read by get_state
// and the worker; spec.md §5 requires only that individual reads observe a
// legal value, not that a snapshot be transactionally consistent across
// fields, so each field is its own atomic rather than guarded by one lock.
type Cache struct {
	ncols, nrows atomic.Int64
	hbin, vbin   atomic.Int64

	windowEnabled atomic.Bool
	window        atomic.Value // Window

	readoutSpeed atomic.Int32 // detector.ReadoutSpeed
	gain         atomic.Int32 // detector.Gain

	flipX, flipY atomic.Bool
}

// NewCache returns a Cache seeded with the full-frame, unbinned, no-window
// configuration initialize() programs at startup.
func NewCache(ncols, nrows int) *Cache {
	c := &Cache{}
	c.ncols.Store(int64(ncols))
	c.nrows.Store(int64(nrows))
	c.hbin.Store(1)
	c.vbin.Store(1)
	c.window.Store(Window{})
	c.readoutSpeed.Store(int32(detector.Slow))
	c.gain.Store(int32(detector.GainOne))
	return c
}

func (c *Cache) Dimensions() (ncols, nrows, hbin, vbin int) {
	return int(c.ncols.Load()), int(c.nrows.Load()), int(c.hbin.Load()), int(c.vbin.Load())
}

func (c *Cache) SetBinning(hbin, vbin int) { c.hbin.Store(int64(hbin)); c.vbin.Store(int64(vbin)) }

func (c *Cache) Window() (Window, bool) {
	return c.window.Load().(Window), c.windowEnabled.Load()
}

func (c *Cache) SetWindow(w Window) {
	c.window.Store(w)
	c.windowEnabled.Store(true)
}

func (c *Cache) ClearWindow() {
	c.windowEnabled.Store(false)
}

func (c *Cache) ReadoutSpeed() detector.ReadoutSpeed {
	return detector.ReadoutSpeed(c.readoutSpeed.Load())
}

func (c *Cache) SetReadoutSpeed(s detector.ReadoutSpeed) { c.readoutSpeed.Store(int32(s)) }

func (c *Cache) Gain() detector.Gain { return detector.Gain(c.gain.Load()) }

func (c *Cache) SetGain(g detector.Gain) { c.gain.Store(int32(g)) }

func (c *Cache) Flips() (x, y bool) { return c.flipX.Load(), c.flipY.Load() }

func (c *Cache) SetFlips(x, y bool) { c.flipX.Store(x); c.flipY.Store(y) }

// ToDimensions converts the cache's current settings into a
// detector.Dimensions, the shape the adapter's SetDimensions expects.
func (c *Cache) ToDimensions() detector.Dimensions {
	ncols, nrows, hbin, vbin := c.Dimensions()
	w, enabled := c.Window()
	return detector.Dimensions{
		NCols: ncols, NRows: nrows, HBin: hbin, VBin: vbin,
		WindowEnabled: enabled,
		XStart:        w.XStart, YStart: w.YStart, XEnd: w.XEnd, YEnd: w.YEnd,
	}
}

// CheckWholePixel enforces spec.md §3's binning invariant:
// ((x_end - x_start + 1) mod hbin) = 0, symmetrically for y.
func CheckWholePixel(w Window, hbin, vbin int) error {
	if hbin < 1 || vbin < 1 {
		return newError(InvariantViolation, "hbin/vbin must be >= 1, got %d/%d", hbin, vbin)
	}
	if (w.XEnd-w.XStart+1)%hbin != 0 {
		return newError(InvariantViolation, "window width %d is not a multiple of hbin %d", w.XEnd-w.XStart+1, hbin)
	}
	if (w.YEnd-w.YStart+1)%vbin != 0 {
		return newError(InvariantViolation, "window height %d is not a multiple of vbin %d", w.YEnd-w.YStart+1, vbin)
	}
	return nil
}
