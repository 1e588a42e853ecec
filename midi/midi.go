// package midi handles midi.
package midi

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"
)

// ChannelMask selects MIDI channels, bit n set for channel n.
type ChannelMask uint16

const AllChannels ChannelMask = 0xFFFF

// Channel returns a mask with just the one channel (0 to 15) in it.
func Channel(c byte) ChannelMask { return 1 << (c & 0xF) }

// Event is a message along with when the device says it happened. The time is
// only comparable with other events from the same Listener.
type Event struct {
	Message
	Time time.Duration
}

// Listener is function that blocks until the context is done, calling a
// provided callback with raw MIDI 1.0 bytes and a device timestamp. The callback
// may be called from several goroutines at once.
type Listener func(context.Context, func(raw []byte, stamp time.Duration)) error

type sub struct {
	f filter
	c chan Event
}

// Dispatcher routes MIDI messages to a set of channels.
type Dispatcher struct {
	mu   sync.Mutex
	subs []sub
}

func NewDispatcher() *Dispatcher { return &Dispatcher{} }

// Run calls the Listener, dispatching everything it receives, until the
// context is cancelled or the listener fails. Every subscription channel is
// closed when it returns.
func (d *Dispatcher) Run(ctx context.Context, l Listener) error {
	defer d.close()
	err := l(ctx, func(raw []byte, stamp time.Duration) {
		d.Dispatch(ctx, raw, stamp)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Dispatch decodes raw and sends the message to the matching subscribers. It
// blocks until every subscriber has taken it or ctx is done. Messages that
// aren't Channel Voice messages are dropped quietly, broken ones with a
// complaint. Reports whether the message was sent to every subscriber that
// wanted it.
func (d *Dispatcher) Dispatch(ctx context.Context, raw []byte, stamp time.Duration) bool {
	msg, err := Decode(raw)
	if err != nil {
		if !errors.Is(err, ErrUnsupported) {
			fmt.Fprintf(os.Stderr, "MIDI % x: %v\n", raw, err)
		}
		return false
	}
	ev := Event{Message: msg, Time: stamp}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range d.subs {
		if !s.f.match(msg) {
			continue
		}
		select {
		case s.c <- ev:
		case <-ctx.Done():
			return false
		}
	}
	return true
}

func (d *Dispatcher) close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range d.subs {
		close(s.c)
	}
	d.subs = d.subs[:0]
}

// Subscribe returns a channel that receives every message passing the filters.
// It is closed when Run returns.
func (d *Dispatcher) Subscribe(opts ...SubscriptionFilter) <-chan Event {
	f := defaultFilter()
	for _, o := range opts {
		o(&f)
	}

	c := make(chan Event, 100)
	d.mu.Lock()
	d.subs = append(d.subs, sub{f: f, c: c})
	d.mu.Unlock()
	return c
}

type filter struct {
	channels ChannelMask
	cv1Types [7]bool
}

func defaultFilter() filter {
	f := filter{
		channels: AllChannels,
	}
	for i := range f.cv1Types {
		f.cv1Types[i] = true
	}
	return f
}

func (f *filter) match(msg Message) bool {
	if f.channels&Channel(msg.Channel) == 0 {
		return false
	}
	return f.cv1Types[int(msg.CV1Type&0x7)]
}

type SubscriptionFilter func(f *filter)

func WithChannelMask(cm ChannelMask) SubscriptionFilter {
	return func(f *filter) { f.channels = cm }
}

func WithoutCV1Type(t CV1MessageType) SubscriptionFilter {
	return func(f *filter) {
		f.cv1Types[int(t&0x7)] = false
	}
}

// NotesOnly drops everything but note on and note off.
func NotesOnly() SubscriptionFilter {
	return func(f *filter) {
		for i := range f.cv1Types {
			f.cv1Types[i] = false
		}
		f.cv1Types[int(CV1NoteOn&0x7)] = true
		f.cv1Types[int(CV1NoteOff&0x7)] = true
	}
}
