package main

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/pfcm/polysynth"
	"github.com/pfcm/polysynth/osc"
)

// note is one note of a score, in seconds.
type note struct {
	key      polysynth.Key
	velocity float32
	start    float64
	length   float64
}

// event is a note on or off at a time, in seconds.
type event struct {
	t        float64
	on       bool
	key      polysynth.Key
	velocity float32
}

// parseScore reads notes written as key:start:length[:velocity], separated by
// spaces or commas. Keys are MIDI numbers, times are seconds and velocity is
// 0 to 1, defaulting to 1. Lengths must be more than zero, otherwise the note
// off would sort before its own note on.
func parseScore(s string) ([]note, error) {
	var notes []note
	for _, f := range strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == ',' || r == '\n' }) {
		parts := strings.Split(f, ":")
		if len(parts) < 3 || len(parts) > 4 {
			return nil, fmt.Errorf("note %q: want key:start:length[:velocity]", f)
		}
		k, err := strconv.ParseUint(parts[0], 10, 8)
		if err != nil || !polysynth.Key(k).Valid() {
			return nil, fmt.Errorf("note %q: bad key %q", f, parts[0])
		}
		n := note{key: polysynth.Key(k), velocity: 1}
		if n.start, err = strconv.ParseFloat(parts[1], 64); err != nil || !(n.start >= 0) {
			return nil, fmt.Errorf("note %q: bad start %q", f, parts[1])
		}
		if n.length, err = strconv.ParseFloat(parts[2], 64); err != nil || !(n.length > 0) {
			return nil, fmt.Errorf("note %q: bad length %q", f, parts[2])
		}
		if len(parts) == 4 {
			v, err := strconv.ParseFloat(parts[3], 32)
			if err != nil {
				return nil, fmt.Errorf("note %q: bad velocity %q", f, parts[3])
			}
			n.velocity = float32(v)
		}
		notes = append(notes, n)
	}
	return notes, nil
}

// events turns notes into note ons and offs in time order. At the same time,
// offs come before ons so a note can be restarted straight away.
func events(notes []note) []event {
	evs := make([]event, 0, 2*len(notes))
	for _, n := range notes {
		evs = append(evs,
			event{t: n.start, on: true, key: n.key, velocity: n.velocity},
			event{t: n.start + n.length, key: n.key},
		)
	}
	slices.SortStableFunc(evs, func(a, b event) int {
		switch {
		case a.t < b.t:
			return -1
		case a.t > b.t:
			return 1
		case a.on == b.on:
			return 0
		case !a.on:
			return -1
		}
		return 1
	})
	return evs
}

// render plays the events on e, returning mono samples up to tail seconds
// after the last event.
func render(e *polysynth.Engine, evs []event, tail float64) ([]float32, error) {
	var end float64
	if len(evs) > 0 {
		end = evs[len(evs)-1].t
	}
	total := int((end + tail) * e.SampleRate())
	out := make([]float32, 0, total)
	next := 0
	for i := 0; i < total; i++ {
		now := float64(i) / e.SampleRate()
		for ; next < len(evs) && evs[next].t <= now; next++ {
			ev := evs[next]
			if !ev.on {
				e.NoteOff(ev.key)
				continue
			}
			if err := e.NoteOn(ev.key, ev.velocity); err != nil {
				return nil, err
			}
		}
		out = append(out, e.Advance())
	}
	return out, nil
}

// setPartials sets the harmonic weights of e from a comma separated list.
func setPartials(e *polysynth.Engine, s string) error {
	ps, err := osc.ParsePartials(s)
	if err != nil {
		return err
	}
	for i, w := range ps {
		if err := e.SetPartial(i, w); err != nil {
			return err
		}
	}
	return nil
}
