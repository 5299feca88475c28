// Copyright 2024 The Mookodi Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package astro converts wall-clock instants to Modified Julian Date and
// to the UT string formats used on FITS header cards.
package astro

import (
	"fmt"
	"time"
)

// LeapSecondCorrection adjusts the length of the day a timestamp falls in,
// to account for an upcoming leap second. There is no on-line leap-second
// table; the caller supplies this out of band.
type LeapSecondCorrection int

// Valid values of LeapSecondCorrection.
const (
	LeapSecondNegative LeapSecondCorrection = -1 // day has 86399 seconds
	LeapSecondNone     LeapSecondCorrection = 0  // day has 86400 seconds
	LeapSecondPositive LeapSecondCorrection = 1  // day has 86401 seconds
)

func (c LeapSecondCorrection) valid() bool {
	return c >= LeapSecondNegative && c <= LeapSecondPositive
}

// TimeToMJD returns the Modified Julian Date (JD - 2400000.5) for t,
// interpreted in UTC, applying the given leap second correction to the
// length of the day t falls in.
//
// Ported from NGAT_Astro_Timespec_To_MJD / NGAT_Astro_Year_Month_Day_To_MJD,
// Hatcher's algorithm (Quarterly Journal of the RAS, Vol 25 No 1, p53-55).
func TimeToMJD(t time.Time, leapSecondCorrection LeapSecondCorrection) (float64, error) {
	if !leapSecondCorrection.valid() {
		return 0, fmt.Errorf("astro: leap second correction %d out of range [-1,1]", leapSecondCorrection)
	}
	u := t.UTC()
	mjd, err := yearMonthDayToMJD(u.Year(), int(u.Month()), u.Day())
	if err != nil {
		return 0, err
	}
	dayFraction, err := hourMinuteSecondToDayFraction(u.Hour(), u.Minute(), u.Second(), u.Nanosecond(), leapSecondCorrection)
	if err != nil {
		return 0, err
	}
	return mjd + dayFraction, nil
}

func yearMonthDayToMJD(year, month, day int) (float64, error) {
	if year < -4712 {
		return 0, fmt.Errorf("astro: year %d out of range", year)
	}
	if month < 1 || month > 12 {
		return 0, fmt.Errorf("astro: month %d out of range [1,12]", month)
	}
	monthDayCount := [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}
	if month == 2 {
		if year%4 == 0 && (year%100 != 0 || year%400 == 0) {
			monthDayCount[1] = 29
		}
	}
	if day < 1 || day > monthDayCount[month-1] {
		return 0, fmt.Errorf("astro: day %d out of range [1,%d]", day, monthDayCount[month-1])
	}

	// aDash is a march-centred year: same as year for March..December, one
	// less than year for January/February.
	aDash := year - (12-month)/10
	// mDash is a month number on a march-centred year.
	mDash := (month + 9) % 12

	y := int(365.25 * (float64(aDash) + 4712.0))
	d1 := 30.6*float64(mDash) + 0.5
	d := int(d1)
	n := y + d + day + 59

	g1 := float64(aDash) / 100.0
	g2 := int(g1 + 49.0)
	g3 := float64(g2) * 0.75
	g := int(g3) - 38

	return float64(int(float64(n-g) - 2400000.5)), nil
}

func hourMinuteSecondToDayFraction(hours, minutes, seconds, nanoseconds int, leapSecondCorrection LeapSecondCorrection) (float64, error) {
	if hours < 0 || hours > 23 {
		return 0, fmt.Errorf("astro: hours %d out of range [0,23]", hours)
	}
	if minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("astro: minutes %d out of range [0,59]", minutes)
	}
	if seconds < 0 || seconds > 61 {
		return 0, fmt.Errorf("astro: seconds %d out of range [0,61]", seconds)
	}
	if nanoseconds < 0 || nanoseconds >= 1e9 {
		return 0, fmt.Errorf("astro: nanoseconds %d out of range [0,1e9)", nanoseconds)
	}
	if !leapSecondCorrection.valid() {
		return 0, fmt.Errorf("astro: leap second correction %d out of range [-1,1]", leapSecondCorrection)
	}

	secondsInDay := 86400.0 + float64(leapSecondCorrection)
	elapsed := float64(seconds) + float64(nanoseconds)/1e9
	elapsed += float64(minutes) * 60.0
	elapsed += float64(hours) * 3600.0

	dayFraction := elapsed / secondsInDay
	if dayFraction < 0.0 || dayFraction > 1.0 {
		return 0, fmt.Errorf("astro: computed day fraction %.6f out of range [0,1]", dayFraction)
	}
	return dayFraction, nil
}

// UTStart formats t (interpreted in UTC) as "HH:MM:SS.sss", the FITS
// UTSTART card format.
func UTStart(t time.Time) string {
	u := t.UTC()
	return fmt.Sprintf("%02d:%02d:%02d.%03d", u.Hour(), u.Minute(), u.Second(), u.Nanosecond()/1e6)
}

// DateObs formats t (interpreted in UTC) as "YYYY-MM-DDTHH:MM:SS.sss", the
// FITS DATE-OBS card format.
func DateObs(t time.Time) string {
	u := t.UTC()
	return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02d.%03d",
		u.Year(), u.Month(), u.Day(), u.Hour(), u.Minute(), u.Second(), u.Nanosecond()/1e6)
}

// NightDate returns the integer yyyymmdd denoting the observing night that
// t falls in. Night D runs from local noon on day D to local noon on day
// D+1; hours 0-11 UT of day D belong to night D-1, so the rule here
// subtracts 12 hours before reading off the calendar date. This matches
// the original source's approach of working entirely in UT, not local
// time, for the night boundary.
func NightDate(t time.Time) int {
	u := t.UTC()
	if u.Hour() < 12 {
		u = u.Add(-12 * time.Hour)
	}
	return u.Year()*10000 + int(u.Month())*100 + u.Day()
}
