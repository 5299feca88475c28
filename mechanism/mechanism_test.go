// Copyright 2024 The Mookodi Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package mechanism

import (
	"testing"
	"time"

	"github.com/piascik/Mookodi-sub000/mechanism/lac"
	"github.com/piascik/Mookodi-sub000/mechanism/pio"
)

func testFilters() [2][5]FilterSlot {
	return [2][5]FilterSlot{
		{{0, "clear"}, {200, "g"}, {400, "r"}, {600, "i"}, {800, "z"}},
		{{0, "clear"}, {200, "u"}, {400, "b"}, {600, "v"}, {800, "ha"}},
	}
}

// TestScenarioS4 mirrors spec.md §8 scenario S4: a fresh instrument deploys
// the grism, reads back ENA immediately, then stows and reads DIS.
func TestScenarioS4(t *testing.T) {
	c := New(pio.NewEmulated(), lac.NewEmulatedController(), Config{Accuracy: 4, Filters: testFilters()})

	got, err := c.CtrlGrism(Deploy, 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if got != DeployEnabled {
		t.Fatalf("CtrlGrism(Deploy) = %v, want ENA", got)
	}
	got, err = c.CtrlGrism(Get, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got != DeployEnabled {
		t.Fatalf("CtrlGrism(Get) = %v, want ENA", got)
	}
	got, err = c.CtrlGrism(Stow, 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if got != DeployDisabled {
		t.Fatalf("CtrlGrism(Stow) = %v, want DIS", got)
	}
}

// TestScenarioS5 mirrors spec.md §8 scenario S5: ctrl_filters(POS2, POS3)
// returns {POS2, POS3} with both feedbacks within accuracy of their targets.
func TestScenarioS5(t *testing.T) {
	c := New(pio.NewEmulated(), lac.NewEmulatedController(), Config{Accuracy: 4, Filters: testFilters()})

	s0, s1, err := c.CtrlFilters(FilterPos2, FilterPos3, 10*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if s0 != FilterPos2 || s1 != FilterPos3 {
		t.Fatalf("CtrlFilters(POS2, POS3) = (%v, %v), want (POS2, POS3)", s0, s1)
	}
}

func TestCtrlFilter_reportsBadWhenOffAnyStop(t *testing.T) {
	backend := lac.NewEmulatedController()
	c := New(pio.NewEmulated(), backend, Config{Accuracy: 1, Filters: testFilters()})

	if err := backend.SetPosition(int(Filter0), 55, time.Second); err != nil {
		t.Fatal(err)
	}
	got, err := c.CtrlFilter(Filter0, FilterGet, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got != FilterBad {
		t.Fatalf("CtrlFilter(Get) = %v, want BAD", got)
	}
}

func TestCtrlLamp_togglesOutputBitOnly(t *testing.T) {
	c := New(pio.NewEmulated(), lac.NewEmulatedController(), Config{Accuracy: 4, Filters: testFilters()})

	got, err := c.CtrlLamp(Deploy)
	if err != nil {
		t.Fatal(err)
	}
	if got != DeployEnabled {
		t.Fatalf("CtrlLamp(Deploy) = %v, want ENA", got)
	}
	got, err = c.CtrlLamp(Get)
	if err != nil {
		t.Fatal(err)
	}
	if got != DeployEnabled {
		t.Fatalf("CtrlLamp(Get) = %v, want ENA", got)
	}
}
