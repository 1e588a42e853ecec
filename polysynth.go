// package polysynth is a polyphonic sine synthesizer driven by note events and
// pulled from by an audio device.
//
// An Engine does the work but is strictly single threaded. Wrap it in a Shared
// to use it from a device callback, a MIDI reader and a UI at the same time.
package polysynth

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig is returned when an Engine can't be built from a Config.
	ErrConfig = errors.New("invalid synth configuration")
	// ErrKeyRange is returned for keys outside the MIDI note range.
	ErrKeyRange = errors.New("key out of range")
	// ErrParamIndex is returned when writing past the end of the partials.
	ErrParamIndex = errors.New("parameter index out of range")
)

// Key is a MIDI note number, 0 to 127.
type Key uint8

// MaxKey is the highest valid Key.
const MaxKey Key = 127

// Valid reports whether k is a MIDI note.
func (k Key) Valid() bool { return k <= MaxKey }

var keyNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// String names the note in scientific pitch notation, so 60 is C4 and 69 is A4.
func (k Key) String() string {
	if !k.Valid() {
		return fmt.Sprintf("Key(%d)", uint8(k))
	}
	return fmt.Sprintf("%s%d", keyNames[k%12], int(k)/12-1)
}
