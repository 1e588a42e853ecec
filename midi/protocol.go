package midi

import (
	"errors"
	"fmt"

	gomidi "gitlab.com/gomidi/midi/v2"
)

var (
	// ErrUnsupported is returned for valid MIDI that isn't a 1.0 Channel
	// Voice message, such as system exclusive or clock.
	ErrUnsupported = errors.New("unsupported MIDI message")
	// ErrShort is returned when a message is cut off.
	ErrShort = errors.New("truncated MIDI message")
)

type Message struct {
	CV1Type CV1MessageType
	Channel byte
	// MIDI note for note on/note off/poly pressure, but also
	// index for control change and program for program change.
	Note      byte
	Velocity  byte // for note on and {poly,channel} pressure.
	PitchBend uint16
}

func (m Message) String() string {
	switch m.CV1Type {
	case CV1NoteOn, CV1NoteOff, CV1PolyPressure:
		return fmt.Sprintf("%v(ch=%d note=%d vel=%d)", m.CV1Type, m.Channel, m.Note, m.Velocity)
	case CV1ControlChange:
		return fmt.Sprintf("%v(ch=%d cc=%d val=%d)", m.CV1Type, m.Channel, m.Note, m.Velocity)
	case CV1ProgramChange:
		return fmt.Sprintf("%v(ch=%d program=%d)", m.CV1Type, m.Channel, m.Note)
	case CV1ChannelPressure:
		return fmt.Sprintf("%v(ch=%d pressure=%d)", m.CV1Type, m.Channel, m.Velocity)
	case CV1PitchBend:
		return fmt.Sprintf("%v(ch=%d bend=%d)", m.CV1Type, m.Channel, m.PitchBend)
	}
	return fmt.Sprintf("%v(ch=%d)", m.CV1Type, m.Channel)
}

// CV1MessageType is the type of a 1.0 Channel Voice message: the high 4 bits of
// the status byte.
type CV1MessageType byte

const (
	CV1NoteOff = CV1MessageType(0x8 | byte(iota))
	CV1NoteOn
	CV1PolyPressure
	CV1ControlChange
	CV1ProgramChange
	CV1ChannelPressure
	CV1PitchBend
)

func (t CV1MessageType) String() string {
	switch t {
	case CV1NoteOff:
		return "NoteOff"
	case CV1NoteOn:
		return "NoteOn"
	case CV1PolyPressure:
		return "PolyPressure"
	case CV1ControlChange:
		return "ControlChange"
	case CV1ProgramChange:
		return "ProgramChange"
	case CV1ChannelPressure:
		return "ChannelPressure"
	case CV1PitchBend:
		return "PitchBend"
	}
	return fmt.Sprintf("CV1MessageType(%#x)", byte(t))
}

// dataBytes is the number of data bytes following the status byte.
func (t CV1MessageType) dataBytes() int {
	switch t {
	case CV1ProgramChange, CV1ChannelPressure:
		return 1
	}
	return 2
}

// Decode reads the message at the start of raw, as delivered by a driver.
// A note on with zero velocity is reported as a note off, since that's what
// it means. Note off velocity is not kept.
func Decode(raw []byte) (Message, error) {
	if len(raw) == 0 {
		return Message{}, ErrShort
	}
	if status := raw[0]; status < 0x80 || status >= 0xF0 {
		return Message{}, fmt.Errorf("%w: status %#x", ErrUnsupported, status)
	}
	t := CV1MessageType(raw[0] >> 4)
	n := t.dataBytes()
	if len(raw) < 1+n {
		return Message{}, fmt.Errorf("%w: %v wants %d data bytes, got %d", ErrShort, t, n, len(raw)-1)
	}
	raw = raw[:1+n]

	var (
		m   = gomidi.Message(raw)
		msg = Message{CV1Type: t}
		rel int16
	)
	switch {
	case m.GetNoteStart(&msg.Channel, &msg.Note, &msg.Velocity):
	case m.GetNoteEnd(&msg.Channel, &msg.Note):
		msg.CV1Type, msg.Velocity = CV1NoteOff, 0
	case m.GetPolyAfterTouch(&msg.Channel, &msg.Note, &msg.Velocity):
	case m.GetControlChange(&msg.Channel, &msg.Note, &msg.Velocity):
	case m.GetProgramChange(&msg.Channel, &msg.Note):
	case m.GetAfterTouch(&msg.Channel, &msg.Velocity):
	case m.GetPitchBend(&msg.Channel, &rel, &msg.PitchBend):
	default:
		return Message{}, fmt.Errorf("%w: % x", ErrUnsupported, raw)
	}
	return msg, nil
}
