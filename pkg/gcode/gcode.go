// Package gcode turns toolpaths into machine motion: a small command-stream
// interface, its RS-274 text encoding and the emitter that sequences depth
// passes, travel, plunges and tabs.
package gcode

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Axis is a bit set of the coordinates present in a Pos.
type Axis uint8

const (
	AxisX Axis = 1 << iota
	AxisY
	AxisZ
)

// Pos is a target position. Only the axes in Axes are written.
type Pos struct {
	X, Y, Z float64
	Axes    Axis
}

// XY returns a position on the X and Y axes only.
func XY(x, y float64) Pos { return Pos{X: x, Y: y, Axes: AxisX | AxisY} }

// Z returns a position on the Z axis only.
func Z(z float64) Pos { return Pos{Z: z, Axes: AxisZ} }

// XYZ returns a position on all three axes.
func XYZ(x, y, z float64) Pos { return Pos{X: x, Y: y, Z: z, Axes: AxisX | AxisY | AxisZ} }

// Has reports whether a is present in p.
func (p Pos) Has(a Axis) bool { return p.Axes&a != 0 }

// Direction is the sense of an arc move seen from +Z.
type Direction int

const (
	CW Direction = iota
	CCW
)

// Writer receives a stream of machine commands.
type Writer interface {
	Reset()
	Rapid(p Pos)
	Linear(p Pos)
	// Arc moves along a circular arc to p. The centre is at (i, j)
	// relative to the arc's start.
	Arc(dir Direction, p Pos, i, j float64)
	Feed(rate float64)
	Finish()
}

// Text writes commands as G-code text, one block per line.
type Text struct {
	w       *bufio.Writer
	feed    float64
	hasFeed bool
	err     error
}

var _ Writer = (*Text)(nil)

// NewText returns a Text writing to w.
func NewText(w io.Writer) *Text {
	return &Text{w: bufio.NewWriter(w)}
}

func (t *Text) put(s string) {
	if t.err != nil {
		return
	}
	_, t.err = t.w.WriteString(s + "\n")
}

func axes(p Pos) string {
	var b strings.Builder
	if p.Has(AxisX) {
		fmt.Fprintf(&b, " X%.3f", p.X)
	}
	if p.Has(AxisY) {
		fmt.Fprintf(&b, " Y%.3f", p.Y)
	}
	if p.Has(AxisZ) {
		fmt.Fprintf(&b, " Z%.3f", p.Z)
	}
	return b.String()
}

// Reset selects the XY plane, millimetres, absolute coordinates and no
// cutter compensation.
func (t *Text) Reset() {
	t.put("G17 G21 G90 G40")
}

// Rapid writes a G0 move.
func (t *Text) Rapid(p Pos) { t.put("G0" + axes(p)) }

// Linear writes a G1 move.
func (t *Text) Linear(p Pos) { t.put("G1" + axes(p)) }

// Arc writes a G2 or G3 move.
func (t *Text) Arc(dir Direction, p Pos, i, j float64) {
	code := "G2"
	if dir == CCW {
		code = "G3"
	}
	t.put(fmt.Sprintf("%s%s I%.3f J%.3f", code, axes(p), i, j))
}

// Feed writes an F word when rate differs from the current feed rate.
func (t *Text) Feed(rate float64) {
	if t.hasFeed && rate == t.feed {
		return
	}
	t.feed, t.hasFeed = rate, true
	t.put(fmt.Sprintf("F%.2f", rate))
}

// Finish writes the end of program and flushes.
func (t *Text) Finish() {
	t.put("M2")
	if t.err == nil {
		t.err = t.w.Flush()
	}
}

// Err returns the first write error.
func (t *Text) Err() error { return t.err }
