// Copyright 2024 The Mookodi Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package camera

import (
	"testing"
	"time"

	"github.com/piascik/Mookodi-sub000/detector"
	"github.com/piascik/Mookodi-sub000/fitsheader"
)

func TestInternalHeaders_usesVBinNotBinX(t *testing.T) {
	// spec.md §9: the original computed VBIN from Bin_X; this is a bug fix.
	fc := frameContext{hbin: 4, vbin: 2, gain: detector.GainOne}
	cards := internalHeaders(fc)
	for _, c := range cards {
		if c.Keyword == "VBIN" && c.Int != 2 {
			t.Fatalf("VBIN = %d, want 2 (from vbin, not hbin)", c.Int)
		}
	}
}

// TestInternalHeaders_reportsConfiguredSpeedIndices matches spec.md §4.3:
// VSHIFTI, VSAMP and HSHIFTI must carry the configured readout tuple, not
// zero.
func TestInternalHeaders_reportsConfiguredSpeedIndices(t *testing.T) {
	fc := frameContext{gain: detector.GainOne, vsIndex: 2, vsAmplitude: 3, hsIndex: 1}
	cards := internalHeaders(fc)
	want := map[string]int64{"VSHIFTI": 2, "VSAMP": 3, "HSHIFTI": 1}
	for _, c := range cards {
		if exp, ok := want[c.Keyword]; ok && c.Int != exp {
			t.Fatalf("%s = %d, want %d", c.Keyword, c.Int, exp)
		}
	}
}

func TestInternalHeaders_imgRectUsesFullFrameWhenNoWindow(t *testing.T) {
	fc := frameContext{ncols: 1024, nrows: 1024, gain: detector.GainOne}
	cards := internalHeaders(fc)
	for _, c := range cards {
		if c.Keyword == "IMGRECT" && c.Str != "1, 1, 1024, 1024" {
			t.Fatalf("IMGRECT = %q, want full-frame rectangle", c.Str)
		}
	}
}

// TestComposeHeaders_overwriteIsIdempotent matches spec.md §8 invariant 7:
// composing headers twice preserves card count and insertion order.
func TestComposeHeaders_overwriteIsIdempotent(t *testing.T) {
	store := fitsheader.NewStore()
	store.Set(fitsheader.StringCard("OBSERVER", "J. Smith", "", "observer name"))

	fc := frameContext{startTime: time.Now(), gain: detector.GainOne}
	var firstLen int
	var firstKeys []string
	store.Lock(func(s *fitsheader.Store) {
		cards := composeHeaders(s, fc)
		firstLen = len(cards)
		for _, c := range cards {
			firstKeys = append(firstKeys, c.Keyword)
		}
	})
	var secondLen int
	var secondKeys []string
	store.Lock(func(s *fitsheader.Store) {
		cards := composeHeaders(s, fc)
		secondLen = len(cards)
		for _, c := range cards {
			secondKeys = append(secondKeys, c.Keyword)
		}
	})
	if firstLen != secondLen {
		t.Fatalf("card count changed across repeated composition: %d then %d", firstLen, secondLen)
	}
	for i := range firstKeys {
		if firstKeys[i] != secondKeys[i] {
			t.Fatalf("card %d keyword changed across repeated composition: %s then %s", i, firstKeys[i], secondKeys[i])
		}
	}
	if got, _ := store.Get("OBSERVER"); got.Str != "J. Smith" {
		t.Fatalf("client-pushed OBSERVER card was lost")
	}
}
