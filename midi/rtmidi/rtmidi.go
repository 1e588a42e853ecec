// package rtmidi reads MIDI from the system's devices with RtMidi, by way of
// gomidi. It works on Linux (ALSA), MacOS (Core MIDI) and Windows.
package rtmidi

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// ErrNoPorts is returned by ReceiveAll when there is nothing to listen to.
var ErrNoPorts = errors.New("no MIDI input ports")

// Ports lists the names of the available input ports.
func Ports() []string {
	var names []string
	for _, in := range midi.GetInPorts() {
		names = append(names, in.String())
	}
	return names
}

// ReceiveAll listens to every input port, calling f with each raw message and
// its timestamp. It blocks until ctx is done. f is called from one goroutine
// per port, so it must be safe for concurrent use. ReceiveAll is a
// midi.Listener.
func ReceiveAll(ctx context.Context, f func([]byte, time.Duration)) error {
	defer midi.CloseDriver()

	ins := midi.GetInPorts()
	if len(ins) == 0 {
		return ErrNoPorts
	}
	var stops []func()
	defer func() {
		for _, stop := range stops {
			stop()
		}
	}()
	fmt.Fprintf(os.Stderr, "Listening to:\n")
	for _, in := range ins {
		name := in.String()
		stop, err := midi.ListenTo(in, func(msg midi.Message, timestampms int32) {
			f(msg.Bytes(), time.Duration(timestampms)*time.Millisecond)
		}, midi.HandleError(func(err error) {
			fmt.Fprintf(os.Stderr, "MIDI input %q: %v\n", name, err)
		}))
		if err != nil {
			return fmt.Errorf("listening to %q: %w", name, err)
		}
		stops = append(stops, stop)
		fmt.Fprintf(os.Stderr, "\t%q\n", name)
	}
	<-ctx.Done()
	return ctx.Err()
}
