// Copyright 2024 The Mookodi Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package fitsheader is an ordered, keyed collection of typed FITS header
// cards, mirroring the original ccd_fits_header.c's card list without its
// process-global storage.
package fitsheader

import "fmt"

// ValueType identifies the Go type carried by a Card's Value.
type ValueType int

// Card value types. The wire enum FitsCardType in spec.md §6 folds
// Integer/Float into INTEGER/FLOAT and does not expose Boolean as its own
// wire kind, but the in-process store keeps all four concrete kinds
// distinct because the CCD headers include genuine booleans (FLIPX,
// FLIPY).
const (
	Integer ValueType = iota
	Float
	String
	Boolean
)

func (t ValueType) String() string {
	switch t {
	case Integer:
		return "INTEGER"
	case Float:
		return "FLOAT"
	case String:
		return "STRING"
	case Boolean:
		return "BOOLEAN"
	default:
		return "UNKNOWN"
	}
}

// Card is a single FITS header entry.
type Card struct {
	Keyword string
	Type    ValueType
	Int     int64
	Float   float64
	Str     string
	Bool    bool
	Units   string
	Comment string
}

// IntCard builds an integer-valued card.
func IntCard(keyword string, v int64, units, comment string) Card {
	return Card{Keyword: keyword, Type: Integer, Int: v, Units: units, Comment: comment}
}

// FloatCard builds a float-valued card.
func FloatCard(keyword string, v float64, units, comment string) Card {
	return Card{Keyword: keyword, Type: Float, Float: v, Units: units, Comment: comment}
}

// StringCard builds a string-valued card.
func StringCard(keyword, v, units, comment string) Card {
	return Card{Keyword: keyword, Type: String, Str: v, Units: units, Comment: comment}
}

// BoolCard builds a boolean-valued card.
func BoolCard(keyword string, v bool, units, comment string) Card {
	return Card{Keyword: keyword, Type: Boolean, Bool: v, Units: units, Comment: comment}
}

// Value returns the card's value boxed as an interface{}, for callers that
// need a generic representation (e.g. JSON marshalling at the RPC layer).
func (c Card) Value() interface{} {
	switch c.Type {
	case Integer:
		return c.Int
	case Float:
		return c.Float
	case String:
		return c.Str
	case Boolean:
		return c.Bool
	default:
		return nil
	}
}

func (c Card) String() string {
	return fmt.Sprintf("%s = %v %s / %s", c.Keyword, c.Value(), c.Units, c.Comment)
}
