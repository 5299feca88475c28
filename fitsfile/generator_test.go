// Copyright 2024 The Mookodi Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package fitsfile

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func testConfig(root string) Config {
	return Config{
		InstrumentCode: "mkd",
		DataDirRoot:    root,
		Telescope:      "lt",
		Instrument:     "mookodi",
	}
}

// fakeClock lets a test advance time deterministically across night
// boundaries, the way a test double stands in for clock_gettime.
type fakeClock struct {
	t atomic.Value
}

func newFakeClock(start time.Time) *fakeClock {
	c := &fakeClock{}
	c.t.Store(start)
	return c
}

func (c *fakeClock) now() time.Time  { return c.t.Load().(time.Time) }
func (c *fakeClock) set(t time.Time) { c.t.Store(t) }

func TestGenerator_sequentialRunNumbers(t *testing.T) {
	root := t.TempDir()
	clock := newFakeClock(time.Date(2021, time.November, 15, 20, 0, 0, 0, time.UTC))
	g, err := NewGenerator(testConfig(root), clock.now, nil)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for i := 0; i < 3; i++ {
		run, err := g.NextRun()
		if err != nil {
			t.Fatal(err)
		}
		if run != i+1 {
			t.Fatalf("NextRun() = %d, want %d", run, i+1)
		}
		name := g.Filename()
		names = append(names, name)
		if err := os.WriteFile(name, nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	want := []string{
		filepath.Join(root, "lt", "mookodi", "2021", "1115", "mkd_20211115.0001.fits"),
		filepath.Join(root, "lt", "mookodi", "2021", "1115", "mkd_20211115.0002.fits"),
		filepath.Join(root, "lt", "mookodi", "2021", "1115", "mkd_20211115.0003.fits"),
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestGenerator_resumesFromExistingFiles(t *testing.T) {
	root := t.TempDir()
	clock := newFakeClock(time.Date(2021, time.November, 15, 20, 0, 0, 0, time.UTC))
	nightDir := filepath.Join(root, "lt", "mookodi", "2021", "1115")
	if err := os.MkdirAll(nightDir, 0o777); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"mkd_20211115.0001.fits", "mkd_20211115.0002.fits", "other_20211115.0099.fits"} {
		if err := os.WriteFile(filepath.Join(nightDir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	g, err := NewGenerator(testConfig(root), clock.now, nil)
	if err != nil {
		t.Fatal(err)
	}
	run, err := g.NextRun()
	if err != nil {
		t.Fatal(err)
	}
	if run != 3 {
		t.Fatalf("NextRun() after resume = %d, want 3 (ignoring other instrument's run 99)", run)
	}
}

func TestGenerator_nightRolloverResetsRunNumber(t *testing.T) {
	root := t.TempDir()
	clock := newFakeClock(time.Date(2021, time.November, 15, 20, 0, 0, 0, time.UTC))
	g, err := NewGenerator(testConfig(root), clock.now, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if _, err := g.NextRun(); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(g.Filename(), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	// Roll into the next night (past the following noon UT).
	clock.set(time.Date(2021, time.November, 16, 13, 0, 0, 0, time.UTC))
	run, err := g.NextRun()
	if err != nil {
		t.Fatal(err)
	}
	if run != 1 {
		t.Fatalf("first run on new night = %d, want 1", run)
	}
}

func TestLockUnlock(t *testing.T) {
	dir := t.TempDir()
	fits := filepath.Join(dir, "mkd_20211115.0001.fits")
	if err := os.WriteFile(fits, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Lock(fits); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "mkd_20211115.0001.lock")); err != nil {
		t.Fatalf("lock file missing: %v", err)
	}
	if err := Lock(fits); err == nil {
		t.Fatal("expected error locking an already-locked file")
	}
	if err := Unlock(fits); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "mkd_20211115.0001.lock")); !os.IsNotExist(err) {
		t.Fatalf("lock file still present after Unlock: %v", err)
	}
	// Unlocking an already-unlocked file is not an error.
	if err := Unlock(fits); err != nil {
		t.Fatal(err)
	}
}
