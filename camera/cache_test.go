// Copyright 2024 The Mookodi Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package camera

import "testing"

func TestCheckWholePixel_accepts(t *testing.T) {
	if err := CheckWholePixel(Window{XStart: 1, YStart: 1, XEnd: 512, YEnd: 512}, 2, 2); err != nil {
		t.Fatal(err)
	}
}

// TestCheckWholePixel_rejectsOddWidth matches spec.md §8 scenario S6: a
// 513-wide window under 2x binning is not a whole number of binned pixels.
func TestCheckWholePixel_rejectsOddWidth(t *testing.T) {
	err := CheckWholePixel(Window{XStart: 1, YStart: 1, XEnd: 513, YEnd: 512}, 2, 2)
	if err == nil {
		t.Fatal("expected an InvariantViolation")
	}
	if KindOf(err) != InvariantViolation {
		t.Fatalf("KindOf(err) = %v, want InvariantViolation", KindOf(err))
	}
}

func TestCache_toDimensionsReflectsWindow(t *testing.T) {
	c := NewCache(1024, 1024)
	c.SetBinning(2, 2)
	c.SetWindow(Window{XStart: 1, YStart: 1, XEnd: 512, YEnd: 512})
	d := c.ToDimensions()
	if got, want := d.BinnedWidth(), 256; got != want {
		t.Fatalf("BinnedWidth() = %d, want %d", got, want)
	}
	if got, want := d.BinnedHeight(), 256; got != want {
		t.Fatalf("BinnedHeight() = %d, want %d", got, want)
	}
}
