// Copyright 2024 The Mookodi Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package astro

import (
	"math"
	"testing"
	"time"
)

func TestTimeToMJD(t *testing.T) {
	data := []struct {
		name string
		time time.Time
		want float64
	}{
		{"j2000_epoch", time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC), 51544.0},
		{"unix_epoch", time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC), 40587.0},
		{"half_day", time.Date(2000, time.January, 1, 12, 0, 0, 0, time.UTC), 51544.5},
		{"quarter_day", time.Date(2021, time.November, 15, 6, 0, 0, 0, time.UTC), 59533.25},
	}
	for _, d := range data {
		t.Run(d.name, func(t *testing.T) {
			got, err := TimeToMJD(d.time, LeapSecondNone)
			if err != nil {
				t.Fatal(err)
			}
			if math.Abs(got-d.want) > 1e-6 {
				t.Fatalf("TimeToMJD(%s) = %v, want %v", d.time, got, d.want)
			}
		})
	}
}

func TestTimeToMJD_monotonic(t *testing.T) {
	start := time.Date(2021, time.November, 15, 0, 0, 0, 0, time.UTC)
	prev, err := TimeToMJD(start, LeapSecondNone)
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= 100; i++ {
		cur, err := TimeToMJD(start.Add(time.Duration(i)*time.Hour), LeapSecondNone)
		if err != nil {
			t.Fatal(err)
		}
		if cur <= prev {
			t.Fatalf("MJD not monotonically increasing: %v -> %v at step %d", prev, cur, i)
		}
		prev = cur
	}
}

func TestTimeToMJD_leapSecondRange(t *testing.T) {
	now := time.Date(2021, time.June, 30, 23, 59, 59, 0, time.UTC)
	if _, err := TimeToMJD(now, LeapSecondCorrection(2)); err == nil {
		t.Fatal("expected error for out-of-range leap second correction")
	}
	if _, err := TimeToMJD(now, LeapSecondCorrection(-2)); err == nil {
		t.Fatal("expected error for out-of-range leap second correction")
	}
}

func TestUTStart(t *testing.T) {
	tm := time.Date(2021, time.November, 15, 3, 4, 5, 678000000, time.UTC)
	if got, want := UTStart(tm), "03:04:05.678"; got != want {
		t.Fatalf("UTStart() = %q, want %q", got, want)
	}
}

func TestDateObs(t *testing.T) {
	tm := time.Date(2021, time.November, 15, 3, 4, 5, 678000000, time.UTC)
	if got, want := DateObs(tm), "2021-11-15T03:04:05.678"; got != want {
		t.Fatalf("DateObs() = %q, want %q", got, want)
	}
}

func TestNightDate(t *testing.T) {
	data := []struct {
		name string
		time time.Time
		want int
	}{
		{"morning_belongs_to_previous_night", time.Date(2021, time.November, 15, 3, 0, 0, 0, time.UTC), 20211114},
		{"just_before_noon", time.Date(2021, time.November, 15, 11, 59, 0, 0, time.UTC), 20211114},
		{"noon_starts_new_night", time.Date(2021, time.November, 15, 12, 0, 0, 0, time.UTC), 20211115},
		{"evening", time.Date(2021, time.November, 15, 23, 0, 0, 0, time.UTC), 20211115},
	}
	for _, d := range data {
		t.Run(d.name, func(t *testing.T) {
			if got := NightDate(d.time); got != d.want {
				t.Fatalf("NightDate(%s) = %d, want %d", d.time, got, d.want)
			}
		})
	}
}
