// Copyright 2024 The Mookodi Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package fitsfile generates the night-rooted directory tree and
// monotonically increasing run number used to name saved FITS frames,
// ported from ccd_fits_filename.c without its process-global state: a
// *Generator is a value owned by the camera server instance.
package fitsfile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/piascik/Mookodi-sub000/internal/xlog"
)

// Clock returns the current time. Tests substitute a fixed clock to
// control night rollover deterministically.
type Clock func() time.Time

// Generator computes FITS filenames of the form
// <root>/<telescope>/<instrument>/<YYYY>/<MMDD>/<code>_<yyyymmdd>.<runNNNN>.fits
// and the run-number bookkeeping behind them.
type Generator struct {
	mu sync.Mutex

	instrumentCode string
	dataDirRoot    string
	telescope      string
	instrument     string
	clock          Clock
	log            *xlog.Logger

	currentDateNumber int
	currentRunNumber  int
	dataDir           string
}

// Config carries the construction parameters for a Generator, named after
// the spec.md §6 configuration keys they come from.
type Config struct {
	InstrumentCode string // fits.instrument_code
	DataDirRoot    string // fits.data_dir.root
	Telescope      string // fits.data_dir.telescope
	Instrument     string // fits.data_dir.instrument
}

const maxComponentLength = 64

// NewGenerator validates cfg, scans the current night's directory for any
// existing frames, and returns a Generator whose run counter picks up
// where the last session left off.
func NewGenerator(cfg Config, clock Clock, log *xlog.Logger) (*Generator, error) {
	if cfg.InstrumentCode == "" {
		return nil, fmt.Errorf("fitsfile: instrument code was empty")
	}
	for name, v := range map[string]string{
		"instrument code": cfg.InstrumentCode,
		"data dir root":   cfg.DataDirRoot,
		"telescope":       cfg.Telescope,
		"instrument":      cfg.Instrument,
	} {
		if len(v) > maxComponentLength {
			return nil, fmt.Errorf("fitsfile: %s was too long (%d)", name, len(v))
		}
	}
	if clock == nil {
		clock = time.Now
	}
	g := &Generator{
		instrumentCode: cfg.InstrumentCode,
		dataDirRoot:    cfg.DataDirRoot,
		telescope:      cfg.Telescope,
		instrument:     cfg.Instrument,
		clock:          clock,
		log:            log,
	}
	if err := g.setupDataDirectory(); err != nil {
		return nil, err
	}
	g.currentDateNumber = nightDateNumber(g.clock())
	g.currentRunNumber = 0

	entries, err := os.ReadDir(g.dataDir)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("fitsfile: scanning data dir %q: %w", g.dataDir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	for _, name := range names {
		code, date, run, ok := parseFilename(name)
		if !ok {
			continue
		}
		if code != g.instrumentCode || date != g.currentDateNumber {
			continue
		}
		if run > g.currentRunNumber {
			g.currentRunNumber = run
		}
	}
	return g, nil
}

// parseFilename splits "<code>_<yyyymmdd>.<runNNNN>.fits" the way the
// original used strtok on '_' and '.'.
func parseFilename(name string) (code string, date, run int, ok bool) {
	base := strings.TrimSuffix(name, ".fits")
	if base == name {
		return "", 0, 0, false
	}
	underscore := strings.IndexByte(base, '_')
	if underscore < 0 {
		return "", 0, 0, false
	}
	code = base[:underscore]
	rest := base[underscore+1:]
	parts := strings.SplitN(rest, ".", 2)
	if len(parts) != 2 {
		return "", 0, 0, false
	}
	date64, err := strconv.Atoi(parts[0])
	if err != nil {
		return "", 0, 0, false
	}
	run64, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, 0, false
	}
	return code, date64, run64, true
}

func nightDateNumber(t time.Time) int {
	u := t.UTC()
	if u.Hour() < 12 {
		u = u.Add(-12 * time.Hour)
	}
	return u.Year()*10000 + int(u.Month())*100 + u.Day()
}

// setupDataDirectory ensures the night directory exists, creating
// <root>/<telescope>/<instrument>/<YYYY>/<MMDD> as needed. If it had to
// create the year or night directory, it resets the run counter to zero.
func (g *Generator) setupDataDirectory() error {
	night := g.clock().UTC()
	if night.Hour() < 12 {
		night = night.Add(-12 * time.Hour)
	}
	base := filepath.Join(g.dataDirRoot, g.telescope, g.instrument)
	yearDir := filepath.Join(base, strconv.Itoa(night.Year()))
	monthDay := fmt.Sprintf("%02d%02d", int(night.Month()), night.Day())
	nightDir := filepath.Join(yearDir, monthDay)

	createdYear, err := mkdirIfMissing(yearDir)
	if err != nil {
		return err
	}
	createdNight, err := mkdirIfMissing(nightDir)
	if err != nil {
		return err
	}
	g.dataDir = nightDir
	if createdYear || createdNight {
		g.currentRunNumber = 0
		if g.log != nil {
			g.log.Logf(xlog.Verbose, "fitsfile: created night directory %s, run counter reset", nightDir)
		}
	}
	return nil
}

func mkdirIfMissing(dir string) (created bool, err error) {
	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return false, fmt.Errorf("fitsfile: %q exists and is not a directory", dir)
		}
		return false, nil
	}
	if !os.IsNotExist(err) {
		return false, fmt.Errorf("fitsfile: stat %q: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0o777); err != nil {
		return false, fmt.Errorf("fitsfile: mkdir %q: %w", dir, err)
	}
	return true, nil
}

// NextRun ensures the night directory is current (rolling it over if the
// observing night has changed since the last call, and resetting the run
// counter if that directory had to be created) and increments the run
// number. A night directory that already exists does not reset the
// counter. It must be called once per saved frame, before Filename.
func (g *Generator) NextRun() (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	night := nightDateNumber(g.clock())
	if night != g.currentDateNumber {
		g.currentDateNumber = night
	}
	if err := g.setupDataDirectory(); err != nil {
		return 0, err
	}
	g.currentRunNumber++
	return g.currentRunNumber, nil
}

// Filename returns the full path for the current run number.
func (g *Generator) Filename() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return filepath.Join(g.dataDir, fmt.Sprintf("%s_%08d.%04d.fits", g.instrumentCode, g.currentDateNumber, g.currentRunNumber))
}

// RunNumber returns the current run number (the one most recently
// returned by NextRun).
func (g *Generator) RunNumber() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.currentRunNumber
}

// Lock creates a ".lock" sidecar for filename using exclusive-create
// semantics: it fails if the sidecar already exists. The server never
// reads lock files itself; they exist for an external data-mover process.
func Lock(filename string) error {
	lockName := lockFilename(filename)
	f, err := os.OpenFile(lockName, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o666)
	if err != nil {
		return fmt.Errorf("fitsfile: creating lock file %q: %w", lockName, err)
	}
	return f.Close()
}

// Unlock removes filename's ".lock" sidecar if present; it is not an
// error for the sidecar to be absent.
func Unlock(filename string) error {
	lockName := lockFilename(filename)
	if err := os.Remove(lockName); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("fitsfile: removing lock file %q: %w", lockName, err)
	}
	return nil
}

func lockFilename(filename string) string {
	return strings.TrimSuffix(filename, ".fits") + ".lock"
}
