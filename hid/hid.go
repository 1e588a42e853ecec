// package hid handles human interface devices. Or IO that uses the same protocols,
// like MIDI.
package hid

import (
	"context"
	"fmt"
	"os"

	"github.com/pfcm/polysynth"
	"github.com/pfcm/polysynth/midi"
)

// Keyboard plays MIDI notes on a synth. Every event is applied as soon as it
// arrives, one lock of the synth per event, and kept in a Roll so it can be
// drawn later.
type Keyboard struct {
	synth *polysynth.Shared
	roll  *Roll

	// Verbose prints every note to stderr.
	Verbose bool
}

func NewKeyboard(s *polysynth.Shared, r *Roll) *Keyboard {
	return &Keyboard{synth: s, roll: r}
}

// Play applies events from c until c is closed or ctx is done. Any notes still
// held when it stops are released so nothing is left droning.
func (k *Keyboard) Play(ctx context.Context, c <-chan midi.Event) error {
	defer k.synth.AllNotesOff()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-c:
			if !ok {
				return nil
			}
			k.Handle(ev)
		}
	}
}

// Handle applies a single event. Anything that isn't a note is ignored.
func (k *Keyboard) Handle(ev midi.Event) {
	key := polysynth.Key(ev.Note)
	switch ev.CV1Type {
	case midi.CV1NoteOn:
		if err := k.synth.NoteOn(key, float32(ev.Velocity)/127); err != nil {
			fmt.Fprintf(os.Stderr, "%v: %v\n", ev, err)
			return
		}
		if k.roll != nil {
			k.roll.NoteOn(key, ev.Velocity, ev.Time)
		}
	case midi.CV1NoteOff:
		if !k.synth.NoteOff(key) && k.Verbose {
			fmt.Fprintf(os.Stderr, "%v: %v wasn't held\n", ev, key)
		}
		if k.roll != nil {
			k.roll.NoteOff(key, ev.Time)
		}
	default:
		return
	}
	if k.Verbose {
		fmt.Fprintf(os.Stderr, "%v %v\n", ev.Time, ev.Message)
	}
}
