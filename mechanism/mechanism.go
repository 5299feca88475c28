// Copyright 2024 The Mookodi Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package mechanism implements the opto-mechanical mechanism subsystem:
// slit, grism and fold-mirror deploy/stow, the arc/flat-field lamp, and the
// two filter-wheel linear actuators, driven over the pio and lac
// transports. Ported from mkd_ctrl.cpp's ctrl_slit/ctrl_grism/ctrl_mirror/
// ctrl_lamp/ctrl_arc/ctrl_filter family.
package mechanism

import (
	"fmt"
	"sync"
	"time"

	"github.com/piascik/Mookodi-sub000/mechanism/lac"
	"github.com/piascik/Mookodi-sub000/mechanism/pio"
)

// DeployState is the result of a deploy/stow/get call on a limit-switched
// mechanism, spec.md §6's DeployState enumeration.
type DeployState int

const (
	DeployUnknown DeployState = iota
	DeployEnabled
	DeployDisabled
	DeployInvalid
	DeployError
)

func (s DeployState) String() string {
	switch s {
	case DeployEnabled:
		return "ENA"
	case DeployDisabled:
		return "DIS"
	case DeployInvalid:
		return "INV"
	case DeployError:
		return "ERR"
	default:
		return "UNK"
	}
}

// Command is the requested direction for a deploy/stow/get call.
type Command int

const (
	Get Command = iota
	Deploy
	Stow
)

// FilterState is the result of a filter actuator get/move call, spec.md
// §6's FilterState enumeration. Pos0..Pos4 index LAC_POSITIONS.
type FilterState int

const (
	FilterGet FilterState = iota
	FilterPos0
	FilterPos1
	FilterPos2
	FilterPos3
	FilterPos4
	FilterBad
	FilterInvalid
	FilterError
)

func (s FilterState) String() string {
	switch s {
	case FilterPos0:
		return "POS0"
	case FilterPos1:
		return "POS1"
	case FilterPos2:
		return "POS2"
	case FilterPos3:
		return "POS3"
	case FilterPos4:
		return "POS4"
	case FilterBad:
		return "BAD"
	case FilterInvalid:
		return "INV"
	case FilterError:
		return "ERR"
	default:
		return "GET"
	}
}

// ActuatorID names one of the two filter actuators, spec.md §6's FilterID.
type ActuatorID int

const (
	Filter0 ActuatorID = iota
	Filter1
)

// deployBits pairs an output-set bit with its deploy/stow input feedback
// bits, from mkd.h's PIO_OUT_*/PIO_INP_* tables.
type deployBits struct {
	out, inpDeploy, inpStow byte
}

var (
	slitBits   = deployBits{pio.OutSlitDeploy, pio.InpSlitDeploy, pio.InpSlitStow}
	grismBits  = deployBits{pio.OutGrismDeploy, pio.InpGrismDeploy, pio.InpGrismStow}
	mirrorBits = deployBits{pio.OutMirrorDeploy, pio.InpMirrorDeploy, pio.InpMirrorStow}
)

// Device is the minimal PIO surface Controller needs, satisfied by both
// *pio.Device and *pio.Emulated.
type Device interface {
	SetOutput(byte) error
	GetOutput() (byte, error)
	GetInput() (byte, error)
	Identify() (string, error)
}

// Actuators is the minimal LAC surface Controller needs.
type Actuators interface {
	SetPosition(index, pos int, tmo time.Duration) error
	SetBoth(pos0, pos1 int, tmo time.Duration) error
	Feedback(index int) (int, error)
}

// FilterSlot names one stored target position for an actuator.
type FilterSlot struct {
	Position int
	Name     string
}

// Controller drives the mechanism subsystem: the PIO digital I/O module and
// the two LAC filter actuators, serialising access to each with its own
// mutex per spec.md §5 ("detector adapter and both mechanism backends are
// not thread-safe; each must be called under a per-device mutex").
type Controller struct {
	pioMu sync.Mutex
	pio   Device

	lacMu     sync.Mutex
	lac       Actuators
	accuracy  int
	filters   [2][5]FilterSlot
}

// Config carries the per-actuator filter slot tables and the shared
// accuracy tolerance used to identify a position.
type Config struct {
	Accuracy int
	Filters  [2][5]FilterSlot
}

// New wires a Controller over already-opened PIO and LAC backends.
func New(p Device, actuators Actuators, cfg Config) *Controller {
	return &Controller{pio: p, lac: actuators, accuracy: cfg.Accuracy, filters: cfg.Filters}
}

// ctrlDeploy implements the shared ctrl_slit/ctrl_grism/ctrl_mirror logic:
// read the output mask, set or clear the bit, write it back, then either
// return the instantaneous reading (tmo=0) or poll until the input limit
// bits agree with the commanded direction.
func (c *Controller) ctrlDeploy(bits deployBits, cmd Command, tmo time.Duration) (DeployState, error) {
	c.pioMu.Lock()
	defer c.pioMu.Unlock()

	if cmd == Get {
		inp, err := c.pio.GetInput()
		if err != nil {
			return DeployError, err
		}
		return deployStateFromInput(bits, inp), nil
	}

	out, err := c.pio.GetOutput()
	if err != nil {
		return DeployError, err
	}
	switch cmd {
	case Deploy:
		out |= bits.out
	case Stow:
		out &^= bits.out
	default:
		return DeployInvalid, fmt.Errorf("mechanism: invalid command %v", cmd)
	}
	if err := c.pio.SetOutput(out); err != nil {
		return DeployError, err
	}

	if tmo <= 0 {
		inp, err := c.pio.GetInput()
		if err != nil {
			return DeployError, err
		}
		return deployStateFromInput(bits, inp), nil
	}

	want := DeployEnabled
	if cmd == Stow {
		want = DeployDisabled
	}
	deadline := time.Now().Add(tmo)
	const tick = 50 * time.Millisecond
	for {
		inp, err := c.pio.GetInput()
		if err != nil {
			return DeployError, err
		}
		state := deployStateFromInput(bits, inp)
		if state == want {
			return state, nil
		}
		if time.Now().After(deadline) {
			return DeployUnknown, nil
		}
		time.Sleep(tick)
	}
}

// deployStateFromInput matches spec.md §8 invariant 5: ENA iff the deploy
// bit is set and the stow bit is clear, symmetrically for DIS; anything
// else (both set, both clear) is transient/inconsistent and reported UNK.
func deployStateFromInput(bits deployBits, inp byte) DeployState {
	deployed := inp&bits.inpDeploy != 0
	stowed := inp&bits.inpStow != 0
	switch {
	case deployed && !stowed:
		return DeployEnabled
	case stowed && !deployed:
		return DeployDisabled
	default:
		return DeployUnknown
	}
}

// CtrlSlit implements spec.md §4.6's ctrl_slit.
func (c *Controller) CtrlSlit(cmd Command, tmo time.Duration) (DeployState, error) {
	return c.ctrlDeploy(slitBits, cmd, tmo)
}

// CtrlGrism implements spec.md §4.6's ctrl_grism.
func (c *Controller) CtrlGrism(cmd Command, tmo time.Duration) (DeployState, error) {
	return c.ctrlDeploy(grismBits, cmd, tmo)
}

// CtrlMirror implements spec.md §4.6's ctrl_mirror.
func (c *Controller) CtrlMirror(cmd Command, tmo time.Duration) (DeployState, error) {
	return c.ctrlDeploy(mirrorBits, cmd, tmo)
}

// ctrlToggle implements the shared ctrl_lamp/ctrl_arc logic: toggle a
// single output bit with no limit sensors; state is read back from the
// output mask alone.
func (c *Controller) ctrlToggle(bit byte, cmd Command) (DeployState, error) {
	c.pioMu.Lock()
	defer c.pioMu.Unlock()

	if cmd == Get {
		out, err := c.pio.GetOutput()
		if err != nil {
			return DeployError, err
		}
		return toggleState(out, bit), nil
	}

	out, err := c.pio.GetOutput()
	if err != nil {
		return DeployError, err
	}
	switch cmd {
	case Deploy:
		out |= bit
	case Stow:
		out &^= bit
	default:
		return DeployInvalid, fmt.Errorf("mechanism: invalid command %v", cmd)
	}
	if err := c.pio.SetOutput(out); err != nil {
		return DeployError, err
	}
	return toggleState(out, bit), nil
}

func toggleState(out, bit byte) DeployState {
	if out&bit != 0 {
		return DeployEnabled
	}
	return DeployDisabled
}

// CtrlLamp implements spec.md §4.6's ctrl_lamp (the white-light flat lamp).
func (c *Controller) CtrlLamp(cmd Command) (DeployState, error) {
	return c.ctrlToggle(pio.OutWLampOn, cmd)
}

// CtrlArc implements spec.md §4.6's ctrl_arc.
func (c *Controller) CtrlArc(cmd Command) (DeployState, error) {
	return c.ctrlToggle(pio.OutArcOn, cmd)
}

// identifySlot scans the five stored target positions for one within
// accuracy of the current feedback, matching ctrl_filter's GET behaviour.
func (c *Controller) identifySlot(id ActuatorID, feedback int) FilterState {
	slots := c.filters[id]
	for i, s := range slots {
		if abs(feedback-s.Position) <= c.accuracy {
			return FilterState(FilterPos0 + FilterState(i))
		}
	}
	return FilterBad
}

// CtrlFilter implements spec.md §4.6's ctrl_filter: get or move one
// actuator to a named target slot.
func (c *Controller) CtrlFilter(id ActuatorID, target FilterState, tmo time.Duration) (FilterState, error) {
	if id != Filter0 && id != Filter1 {
		return FilterInvalid, fmt.Errorf("mechanism: invalid actuator id %v", id)
	}
	c.lacMu.Lock()
	defer c.lacMu.Unlock()

	if target == FilterGet {
		fb, err := c.lac.Feedback(int(id))
		if err != nil {
			return FilterError, err
		}
		return c.identifySlot(id, fb), nil
	}

	slotIdx := int(target - FilterPos0)
	if slotIdx < 0 || slotIdx >= len(c.filters[id]) {
		return FilterInvalid, fmt.Errorf("mechanism: invalid filter target %v", target)
	}
	pos := c.filters[id][slotIdx].Position
	if err := c.lac.SetPosition(int(id), pos, tmo); err != nil {
		return FilterError, err
	}
	if tmo <= 0 {
		return target, nil
	}
	fb, err := c.lac.Feedback(int(id))
	if err != nil {
		return FilterError, err
	}
	return c.identifySlot(id, fb), nil
}

// CtrlFilters implements spec.md §4.6's ctrl_filters: move both actuators
// without waiting for one to settle before commanding the other (the
// "simultaneous" property spec.md §4.6 calls out explicitly), then
// optionally poll both to completion.
func (c *Controller) CtrlFilters(target0, target1 FilterState, tmo time.Duration) (FilterState, FilterState, error) {
	slot0 := int(target0 - FilterPos0)
	slot1 := int(target1 - FilterPos0)
	if slot0 < 0 || slot0 >= len(c.filters[Filter0]) || slot1 < 0 || slot1 >= len(c.filters[Filter1]) {
		return FilterInvalid, FilterInvalid, fmt.Errorf("mechanism: invalid filter targets %v, %v", target0, target1)
	}

	c.lacMu.Lock()
	defer c.lacMu.Unlock()

	pos0 := c.filters[Filter0][slot0].Position
	pos1 := c.filters[Filter1][slot1].Position
	if err := c.lac.SetBoth(pos0, pos1, tmo); err != nil {
		return FilterError, FilterError, err
	}
	if tmo <= 0 {
		return target0, target1, nil
	}
	fb0, err := c.lac.Feedback(int(Filter0))
	if err != nil {
		return FilterError, FilterError, err
	}
	fb1, err := c.lac.Feedback(int(Filter1))
	if err != nil {
		return FilterError, FilterError, err
	}
	return c.identifySlot(Filter0, fb0), c.identifySlot(Filter1, fb1), nil
}

// Configure writes the LAC tuning parameters to both actuator boards,
// matching mkd_lac.cpp's lac_conf() transaction.
func (c *Controller) Configure(tuning lac.Tuning) error {
	c.lacMu.Lock()
	defer c.lacMu.Unlock()
	type configurer interface {
		Configure(lac.Tuning) error
	}
	cfg, ok := c.lac.(configurer)
	if !ok {
		return fmt.Errorf("mechanism: actuator backend does not support Configure")
	}
	return cfg.Configure(tuning)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
