// Copyright 2024 The Mookodi Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package camera

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/piascik/Mookodi-sub000/detector"
	"github.com/piascik/Mookodi-sub000/fitsfile"
	"github.com/piascik/Mookodi-sub000/fitsheader"
	"github.com/piascik/Mookodi-sub000/internal/xlog"
)

// Kind of campaign a worker runs.
type Kind int

// Campaign kinds.
const (
	Bias Kind = iota
	Dark
	Science
)

func (k Kind) String() string {
	switch k {
	case Bias:
		return "BIAS"
	case Dark:
		return "DARK"
	default:
		return "SCIENCE"
	}
}

// ExposureState is the state get_state publishes, derived from the
// detector's DriverStatus per spec.md §4.4's mapping table.
type ExposureState int

// Published exposure states.
const (
	Idle ExposureState = iota
	Setup
	Exposing
	Readout
)

func (s ExposureState) String() string {
	switch s {
	case Setup:
		return "SETUP"
	case Exposing:
		return "EXPOSING"
	case Readout:
		return "READOUT"
	default:
		return "IDLE"
	}
}

// Campaign is the worker's transient, owned state (spec.md §3). Fields are
// atomics or guarded by mu. Worker.Start resets them from the RPC side
// before launching the worker goroutine, Worker.Abort sets abortRequested,
// and otherwise the worker goroutine writes and RPC-handler goroutines read.
type Campaign struct {
	running atomic.Bool

	kind             atomic.Int32
	exposureLengthMS atomic.Int64
	exposureCount    atomic.Int64
	exposureIndex    atomic.Int64

	abortRequested atomic.Bool

	lastFilename atomic.Value // string

	mu           sync.Mutex
	filenameList []string

	imageBuf atomic.Value // []uint16
	bufW     atomic.Int64
	bufH     atomic.Int64
}

// NewCampaign returns an idle campaign.
func NewCampaign() *Campaign {
	c := &Campaign{}
	c.lastFilename.Store("")
	c.imageBuf.Store([]uint16{})
	return c
}

func (c *Campaign) IsBusy() bool { return c.running.Load() }

func (c *Campaign) ExposureIndex() int { return int(c.exposureIndex.Load()) }
func (c *Campaign) ExposureCount() int { return int(c.exposureCount.Load()) }

func (c *Campaign) LastFilename() string { return c.lastFilename.Load().(string) }

func (c *Campaign) FilenameList() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.filenameList))
	copy(out, c.filenameList)
	return out
}

func (c *Campaign) appendFilename(name string) {
	c.mu.Lock()
	c.filenameList = append(c.filenameList, name)
	c.mu.Unlock()
	c.lastFilename.Store(name)
}

func (c *Campaign) ImageData() ([]uint16, int, int) {
	buf := c.imageBuf.Load().([]uint16)
	return buf, int(c.bufW.Load()), int(c.bufH.Load())
}

func (c *Campaign) Kind() Kind { return Kind(c.kind.Load()) }

// Worker runs exposure campaigns against one Adapter, enforcing spec.md
// §5's "at most one worker may be live at any time" rule.
type Worker struct {
	Adapter      *Adapter
	Campaign     *Campaign
	log          *xlog.Logger
	useLockFiles bool
}

// NewWorker returns a Worker over adapter, publishing state through
// campaign. useLockFiles enables the optional .lock sidecar protocol
// (spec.md §4.5) around every saved frame.
func NewWorker(adapter *Adapter, campaign *Campaign, log *xlog.Logger, useLockFiles bool) *Worker {
	return &Worker{Adapter: adapter, Campaign: campaign, log: log, useLockFiles: useLockFiles}
}

// Start launches a detached goroutine running a campaign of count frames
// of the given kind, each exposureLengthMS long (ignored for Bias), saving
// every frame iff save is true. It returns immediately with BusyError if a
// campaign is already running.
func (w *Worker) Start(kind Kind, count, exposureLengthMS int, save bool) error {
	if !w.Campaign.running.CompareAndSwap(false, true) {
		return newError(BusyError, "a worker is already running")
	}
	w.Campaign.kind.Store(int32(kind))
	w.Campaign.exposureLengthMS.Store(int64(exposureLengthMS))
	w.Campaign.exposureCount.Store(int64(count))
	w.Campaign.exposureIndex.Store(0)
	w.Campaign.abortRequested.Store(false)
	w.Campaign.mu.Lock()
	w.Campaign.filenameList = nil
	w.Campaign.mu.Unlock()

	go w.run(kind, count, exposureLengthMS, save)
	return nil
}

// Abort is non-blocking: it flags the campaign and calls the adapter's
// abort entry, which unblocks the in-progress acquisition (spec.md §5).
func (w *Worker) Abort() error {
	w.Campaign.abortRequested.Store(true)
	if err := w.Adapter.Detector.Abort(); err != nil {
		return hardwareError("ABORT", "aborting acquisition: %v", err)
	}
	return nil
}

func (w *Worker) run(kind Kind, count, exposureLengthMS int, save bool) {
	defer w.Campaign.running.Store(false)

	n, err := w.Adapter.Detector.BufferLength()
	if err != nil {
		w.fail("querying buffer length: %v", err)
		return
	}
	buf := make([]uint16, n)

	dims := w.Adapter.Cache.ToDimensions()
	width, height := dims.BinnedWidth(), dims.BinnedHeight()

	for i := 0; i < count; i++ {
		w.Campaign.exposureIndex.Store(int64(i))

		start := time.Now()
		var acqErr error
		switch kind {
		case Bias:
			acqErr = w.Adapter.Detector.Bias(buf)
		case Dark:
			acqErr = w.Adapter.Detector.Expose(detector.ExposeRequest{OpenShutter: false, StartTime: start, ExposureLengthMS: exposureLengthMS, Buffer: buf})
		default:
			acqErr = w.Adapter.Detector.Expose(detector.ExposeRequest{OpenShutter: true, StartTime: start, ExposureLengthMS: exposureLengthMS, Buffer: buf})
		}

		w.Campaign.imageBuf.Store(append([]uint16(nil), buf...))
		w.Campaign.bufW.Store(int64(width))
		w.Campaign.bufH.Store(int64(height))

		if acqErr != nil {
			if w.Campaign.abortRequested.Load() {
				w.fail("campaign aborted at frame %d", i)
			} else {
				w.fail("acquiring frame %d: %v", i, acqErr)
			}
			return
		}

		if save {
			if err := w.saveFrame(buf, width, height, exposureLengthMS, start); err != nil {
				w.fail("saving frame %d: %v", i, err)
				return
			}
		}

		if w.Campaign.abortRequested.Load() {
			w.fail("campaign aborted after frame %d", i)
			return
		}
	}
}

// fail logs a campaign failure at ERROR severity and resets the
// counters, matching spec.md §4.2 step 4 and §7's propagation policy:
// worker errors never crash the server, they surface through get_state
// transitioning back to IDLE.
func (w *Worker) fail(format string, args ...interface{}) {
	w.log.Errorf("camera worker: "+format, args...)
	w.Campaign.exposureCount.Store(0)
	w.Campaign.exposureIndex.Store(0)
}

// saveFrame advances the filename generator, composes headers, and saves
// the frame, holding the header store's lock across composition and save
// so a concurrent set/add/clear_fits_headers call cannot interleave
// (spec.md §5).
func (w *Worker) saveFrame(buf []uint16, width, height, exposureLengthMS int, start time.Time) error {
	if _, err := w.Adapter.Files.NextRun(); err != nil {
		return newError(FilesystemError, "advancing run number: %v", err)
	}
	filename := w.Adapter.Files.Filename()

	ncols, nrows, hbin, vbin := w.Adapter.Cache.Dimensions()
	window, enabled := w.Adapter.Cache.Window()
	flipX, flipY := w.Adapter.Cache.Flips()
	temp := w.Adapter.Detector.CachedTemperature()
	headModel, _ := w.Adapter.Detector.HeadModelName()
	serial, _ := w.Adapter.Detector.SerialNumber()
	speedTuple := w.Adapter.CurrentSpeedTuple()

	fc := frameContext{
		exposureLengthMS: exposureLengthMS,
		startTime:        start,
		hbin:             hbin, vbin: vbin,
		tempK:         temp.Kelvin,
		headModel:     headModel,
		serial:        serial,
		flipX:         flipX, flipY: flipY,
		window:        window,
		windowEnabled: enabled,
		ncols:         ncols, nrows: nrows,
		vsSpeed:       w.Adapter.Detector.VSSpeedMicrosecondsPerPixel(),
		vsIndex:       speedTuple.VSIndex,
		vsAmplitude:   speedTuple.VSAmplitude,
		hsSpeed:       w.Adapter.Detector.HSSpeedMHz(),
		hsIndex:       speedTuple.HSIndex,
		gain:          w.Adapter.Cache.Gain(),
	}

	if w.useLockFiles {
		if err := fitsfile.Lock(filename); err != nil {
			return newError(FilesystemError, "locking %q: %v", filename, err)
		}
	}

	var saveErr error
	w.Adapter.Headers.Lock(func(store *fitsheader.Store) {
		cards := composeHeaders(store, fc)
		saveErr = w.Adapter.Detector.Save(filename, buf, width, height, toDetectorHeaderCards(cards))
	})

	if w.useLockFiles {
		if err := fitsfile.Unlock(filename); err != nil {
			w.log.Errorf("camera worker: unlocking %q: %v", filename, err)
		}
	}

	if saveErr != nil {
		return hardwareError("SAVE", "saving %q: %v", filename, saveErr)
	}

	w.Campaign.appendFilename(filename)
	return nil
}
