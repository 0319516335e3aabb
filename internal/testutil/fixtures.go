// Package testutil provides fixture builders and fakes shared by tests.
package testutil

import (
	"io"
	"log/slog"

	"github.com/roach88/aligniov/internal/ir"
)

// TP parses "run:lumi" and panics on error.
func TP(s string) ir.TimePoint {
	return ir.MustParseTimePoint(s)
}

// IV builds the interval [first, last] from "run:lumi" strings.
// "eot" is accepted for last and means ir.EndOfTime.
func IV(first, last string) ir.Interval {
	end := ir.EndOfTime
	if last != "eot" {
		end = TP(last)
	}
	return ir.MustInterval(TP(first), end)
}

// Sensor returns corrections moving one sensor by shX nanometres.
func Sensor(id uint32, shX int64) ir.Corrections {
	var c ir.Corrections
	c.SetSensor(id, ir.Shift{ShX: shX})
	return c
}

// Pot returns corrections rotating one pot by rotZ nanoradians.
func Pot(id uint32, rotZ int64) ir.Corrections {
	var c ir.Corrections
	c.SetPot(id, ir.Shift{RotZ: rotZ})
	return c
}

// Sum combines values into a fresh Corrections.
func Sum(values ...ir.Corrections) ir.Corrections {
	var c ir.Corrections
	for _, v := range values {
		c.Combine(v)
	}
	return c
}

// Entry builds one sequence entry.
func Entry(first, last string, c ir.Corrections) ir.Entry {
	return ir.Entry{Interval: IV(first, last), Corrections: c}
}

// Seq builds a sequence from entries, in the given order.
func Seq(entries ...ir.Entry) ir.Sequence {
	return ir.Sequence(entries)
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
