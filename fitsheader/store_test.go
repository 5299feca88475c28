// Copyright 2024 The Mookodi Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package fitsheader

import "testing"

func TestStore_overwritePreservesPosition(t *testing.T) {
	s := NewStore()
	s.Set(IntCard("HBIN", 1, "", "horizontal binning"))
	s.Set(IntCard("VBIN", 1, "", "vertical binning"))
	s.Set(StringCard("HEAD", "iKon-M", "", "camera head"))

	before := s.Len()
	s.Set(IntCard("VBIN", 2, "", "vertical binning"))
	after := s.Len()

	if before != after {
		t.Fatalf("card count changed on overwrite: %d -> %d", before, after)
	}
	cards := s.Cards()
	if len(cards) != 3 {
		t.Fatalf("len(Cards()) = %d, want 3", len(cards))
	}
	if cards[1].Keyword != "VBIN" || cards[1].Int != 2 {
		t.Fatalf("VBIN not updated in place: %+v", cards[1])
	}
	// Order must be unchanged: HBIN, VBIN, HEAD.
	want := []string{"HBIN", "VBIN", "HEAD"}
	for i, k := range want {
		if cards[i].Keyword != k {
			t.Fatalf("cards[%d].Keyword = %q, want %q", i, cards[i].Keyword, k)
		}
	}
}

func TestStore_clear(t *testing.T) {
	s := NewStore()
	s.Set(IntCard("HBIN", 1, "", ""))
	s.Clear()
	if s.Len() != 0 {
		t.Fatalf("Len() after Clear() = %d, want 0", s.Len())
	}
	if _, ok := s.Get("HBIN"); ok {
		t.Fatal("Get() found a card after Clear()")
	}
}

func TestStore_getMissing(t *testing.T) {
	s := NewStore()
	if _, ok := s.Get("NOPE"); ok {
		t.Fatal("Get() found a card that was never set")
	}
}

func TestStore_boolAndFloatValues(t *testing.T) {
	s := NewStore()
	s.Set(BoolCard("FLIPX", true, "", ""))
	s.Set(FloatCard("EXPTIME", 1.5, "s", ""))
	c, _ := s.Get("FLIPX")
	if c.Value() != true {
		t.Fatalf("FLIPX.Value() = %v, want true", c.Value())
	}
	c, _ = s.Get("EXPTIME")
	if c.Value() != 1.5 {
		t.Fatalf("EXPTIME.Value() = %v, want 1.5", c.Value())
	}
}
