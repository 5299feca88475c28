// Copyright 2024 The Mookodi Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package camera

import (
	"fmt"
	"time"

	"github.com/piascik/Mookodi-sub000/astro"
	"github.com/piascik/Mookodi-sub000/detector"
	"github.com/piascik/Mookodi-sub000/fitsheader"
)

// frameContext carries the per-frame values internalHeaders needs, kept
// separate from Adapter so header composition can be unit tested without a
// live detector.
type frameContext struct {
	exposureLengthMS int
	startTime        time.Time
	hbin, vbin       int
	tempK            float64
	headModel        string
	serial           int
	flipX, flipY     bool
	window           Window
	windowEnabled    bool
	ncols, nrows     int
	vsSpeed          float64
	vsIndex          int
	vsAmplitude      int
	hsSpeed          float64
	hsIndex          int
	gain             detector.Gain
}

// internalHeaders builds the cards spec.md §4.3 requires the camera to
// write for every saved frame, in the order the table lists them.
func internalHeaders(fc frameContext) []fitsheader.Card {
	rect := fc.window
	if !fc.windowEnabled {
		rect = Window{XStart: 1, YStart: 1, XEnd: fc.ncols, YEnd: fc.nrows}
	}
	rectStr := fmt.Sprintf("%d, %d, %d, %d", rect.XStart, rect.YStart, rect.XEnd, rect.YEnd)

	return []fitsheader.Card{
		fitsheader.FloatCard("EXPTIME", float64(fc.exposureLengthMS)/1000.0, "s", "exposure length"),
		fitsheader.FloatCard("EXPOSURE", float64(fc.exposureLengthMS)/1000.0, "s", "exposure length"),
		fitsheader.StringCard("UTSTART", astro.UTStart(fc.startTime), "", "exposure start time, UTC"),
		fitsheader.StringCard("DATE-OBS", astro.DateObs(fc.startTime), "", "exposure start time, UTC"),
		fitsheader.IntCard("HBIN", int64(fc.hbin), "", "horizontal binning"),
		fitsheader.IntCard("VBIN", int64(fc.vbin), "", "vertical binning"),
		fitsheader.FloatCard("CCDTEMP", fc.tempK, "K", "detector temperature"),
		fitsheader.StringCard("HEAD", fc.headModel, "", "camera head model"),
		fitsheader.IntCard("SERNO", int64(fc.serial), "", "camera serial number"),
		fitsheader.BoolCard("FLIPX", fc.flipX, "", "flip in x"),
		fitsheader.BoolCard("FLIPY", fc.flipY, "", "flip in y"),
		fitsheader.StringCard("IMGRECT", rectStr, "", "image rectangle, unbinned"),
		fitsheader.StringCard("SUBRECT", rectStr, "", "sub-window rectangle, unbinned"),
		fitsheader.FloatCard("VSHIFT", fc.vsSpeed, "us/pixel", "vertical shift speed"),
		fitsheader.IntCard("VSHIFTI", int64(fc.vsIndex), "", "vertical shift speed index"),
		fitsheader.IntCard("VSAMP", int64(fc.vsAmplitude), "", "vertical clock amplitude"),
		fitsheader.FloatCard("HSHIFT", fc.hsSpeed, "MHz", "horizontal shift speed"),
		fitsheader.IntCard("HSHIFTI", int64(fc.hsIndex), "", "horizontal shift speed index"),
		fitsheader.FloatCard("GAIN", gainFactor(fc.gain), "", "pre-amp gain factor"),
	}
}

// gainFactor maps a Gain enumerator to its electron/ADU multiplier, the
// value the original reported for the GAIN card.
func gainFactor(g detector.Gain) float64 {
	switch g {
	case detector.GainTwo:
		return 2.0
	case detector.GainFour:
		return 4.0
	default:
		return 1.0
	}
}

// composeHeaders applies the internal headers on top of the client-pushed
// store, matching spec.md §4.3's "existing headers with the same keyword
// are updated in place" and §4.2 step 3c's "compose per-frame headers".
// Callers must hold Headers' lock across this call and the subsequent
// save, per spec.md §5.
func composeHeaders(store *fitsheader.Store, fc frameContext) []fitsheader.Card {
	store.SetAllLocked(internalHeaders(fc))
	return store.CardsLocked()
}

func toDetectorHeaderCards(cards []fitsheader.Card) []detector.HeaderCard {
	out := make([]detector.HeaderCard, len(cards))
	for i, c := range cards {
		out[i] = detector.HeaderCard{Keyword: c.Keyword, Value: c.Value(), Units: c.Units, Comment: c.Comment}
	}
	return out
}
