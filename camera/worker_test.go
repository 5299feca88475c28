// Copyright 2024 The Mookodi Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package camera

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/piascik/Mookodi-sub000/detector"
	"github.com/piascik/Mookodi-sub000/detector/emulated"
	"github.com/piascik/Mookodi-sub000/fitsfile"
	"github.com/piascik/Mookodi-sub000/fitsheader"
	"github.com/piascik/Mookodi-sub000/internal/xlog"
)

func testHarness(t *testing.T, ncols, nrows int) (*Adapter, *Worker, *Campaign) {
	t.Helper()
	det := emulated.New()
	if err := det.Initialize(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	cache := NewCache(ncols, nrows)
	files, err := fitsfile.NewGenerator(fitsfile.Config{
		InstrumentCode: "mkd", DataDirRoot: t.TempDir(), Telescope: "lt", Instrument: "mookodi",
	}, time.Now, nil)
	if err != nil {
		t.Fatal(err)
	}
	headers := fitsheader.NewStore()
	log := xlog.New(discard{}, xlog.FacilityCamera, xlog.VeryVerbose)

	adapter := NewAdapter(det, cache, files, headers, log)
	if err := adapter.Initialize(t.TempDir(), AdapterConfig{
		Speeds: map[detector.ReadoutSpeed]SpeedTuple{
			detector.Slow: {HSIndex: 0, VSIndex: 0, VSAmplitude: 0},
			detector.Fast: {HSIndex: 1, VSIndex: 1, VSAmplitude: 0},
		},
		TargetTempK: 173.15,
	}); err != nil {
		t.Fatal(err)
	}

	campaign := NewCampaign()
	worker := NewWorker(adapter, campaign, log, true)
	return adapter, worker, campaign
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

// TestScenarioS1 mirrors spec.md §8 scenario S1: rebin, window, then three
// bias frames, checking the saved run numbers are sequential.
func TestScenarioS1(t *testing.T) {
	adapter, worker, campaign := testHarness(t, 1024, 1024)
	if err := adapter.SetBinning(2, 2); err != nil {
		t.Fatal(err)
	}
	if err := adapter.SetWindow(Window{XStart: 1, YStart: 1, XEnd: 512, YEnd: 512}); err != nil {
		t.Fatal(err)
	}
	if err := worker.Start(Bias, 3, 0, true); err != nil {
		t.Fatal(err)
	}
	waitIdle(t, campaign, 10*time.Second)

	names := campaign.FilenameList()
	if len(names) != 3 {
		t.Fatalf("FilenameList() has %d entries, want 3", len(names))
	}
	prevRun := -1
	for _, name := range names {
		run := runNumberOf(t, name)
		if prevRun >= 0 && run != prevRun+1 {
			t.Fatalf("run numbers not sequential: %d then %d", prevRun, run)
		}
		prevRun = run
	}
}

// TestSaveFrame_lockSidecarIsCreatedThenRemoved exercises the optional
// .lock sidecar protocol (spec.md §4.5): every saved frame should end up
// with its sidecar removed again, and the lock/unlock round trip must not
// prevent the frame itself from existing on disk.
func TestSaveFrame_lockSidecarIsCreatedThenRemoved(t *testing.T) {
	_, worker, campaign := testHarness(t, 64, 64)
	if err := worker.Start(Bias, 1, 0, true); err != nil {
		t.Fatal(err)
	}
	waitIdle(t, campaign, 10*time.Second)

	names := campaign.FilenameList()
	if len(names) != 1 {
		t.Fatalf("FilenameList() has %d entries, want 1", len(names))
	}
	filename := names[0]
	if _, err := os.Stat(filename); err != nil {
		t.Fatalf("saved frame %q missing: %v", filename, err)
	}
	lockName := strings.TrimSuffix(filename, ".fits") + ".lock"
	if _, err := os.Stat(lockName); !os.IsNotExist(err) {
		t.Fatalf("lock sidecar %q still present after save: %v", lockName, err)
	}
}

// TestScenarioS3 mirrors spec.md §8 scenario S3: abort mid-campaign leaves
// filename_list shorter than the requested count and the campaign returns
// to idle.
func TestScenarioS3(t *testing.T) {
	_, worker, campaign := testHarness(t, 64, 64)
	if err := worker.Start(Science, 2, 3000, true); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)
	if err := worker.Abort(); err != nil {
		t.Fatal(err)
	}
	waitIdle(t, campaign, 5*time.Second)
	if len(campaign.FilenameList()) > 1 {
		t.Fatalf("filename_list has %d entries after abort, want <= 1", len(campaign.FilenameList()))
	}
}

func TestWorker_rejectsConcurrentStart(t *testing.T) {
	_, worker, campaign := testHarness(t, 64, 64)
	if err := worker.Start(Science, 1, 500, false); err != nil {
		t.Fatal(err)
	}
	err := worker.Start(Science, 1, 500, false)
	if err == nil {
		t.Fatal("expected BusyError for a concurrent start")
	}
	if KindOf(err) != BusyError {
		t.Fatalf("KindOf(err) = %v, want BusyError", KindOf(err))
	}
	waitIdle(t, campaign, 5*time.Second)
}

func waitIdle(t *testing.T, c *Campaign, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for c.IsBusy() {
		if time.Now().After(deadline) {
			t.Fatal("campaign did not become idle within the timeout")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// runNumberOf extracts the run number from a filename shaped like
// mkd_20211115.0001.fits.
func runNumberOf(t *testing.T, path string) int {
	t.Helper()
	base := filepath.Base(path)
	var dateDot, runDot int
	dots := 0
	for i, r := range base {
		if r == '.' {
			dots++
			if dots == 1 {
				dateDot = i
			} else if dots == 2 {
				runDot = i
				break
			}
		}
	}
	var run int
	if _, err := fmt.Sscanf(base[dateDot+1:runDot], "%d", &run); err != nil {
		t.Fatalf("parsing run number from %q: %v", base, err)
	}
	return run
}
