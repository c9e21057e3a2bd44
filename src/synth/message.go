package synth

import "fmt"

// ----- Message ----- //

// MessageType ...
type MessageType uint8

// MessageType values follow the MIDI status nibble; the meta types are ignored.
const (
	MessageEndOfTrack      MessageType = 0x2f
	MessageSetTempo        MessageType = 0x51
	MessageNoteOff         MessageType = 0x80
	MessageNoteOn          MessageType = 0x90
	MessageKeyPressure     MessageType = 0xa0
	MessageControlChange   MessageType = 0xb0
	MessageProgramChange   MessageType = 0xc0
	MessageChannelPressure MessageType = 0xd0
	MessagePitchBend       MessageType = 0xe0
)

// String ...
func (t MessageType) String() string {
	switch t {
	case MessageEndOfTrack:
		return "end_of_track"
	case MessageSetTempo:
		return "set_tempo"
	case MessageNoteOff:
		return "note_off"
	case MessageNoteOn:
		return "note_on"
	case MessageKeyPressure:
		return "key_pressure"
	case MessageControlChange:
		return "control_change"
	case MessageProgramChange:
		return "program_change"
	case MessageChannelPressure:
		return "channel_pressure"
	case MessagePitchBend:
		return "pitch_bend"
	}
	return fmt.Sprintf("0x%02x", uint8(t))
}

// Message is one decoded control message. Data holds the two payload bytes
// whose meaning depends on Type.
type Message struct {
	Channel uint8
	Type    MessageType
	Data    [2]byte
}

// NoteOn ...
func NoteOn(channel, key, velocity uint8) Message {
	return Message{Channel: channel, Type: MessageNoteOn, Data: [2]byte{key, velocity}}
}

// NoteOff ...
func NoteOff(channel, key uint8) Message {
	return Message{Channel: channel, Type: MessageNoteOff, Data: [2]byte{key, 0}}
}

// ControlChange ...
func ControlChange(channel uint8, control Control, value uint8) Message {
	return Message{Channel: channel, Type: MessageControlChange, Data: [2]byte{uint8(control), value}}
}

// ProgramChange ...
func ProgramChange(channel, program uint8) Message {
	return Message{Channel: channel, Type: MessageProgramChange, Data: [2]byte{program, 0}}
}

// PitchBend takes the 14 bit wire value, 0x2000 being the center.
func PitchBend(channel uint8, value uint16) Message {
	return Message{Channel: channel, Type: MessagePitchBend, Data: [2]byte{uint8(value & 0x7f), uint8(value>>7) & 0x7f}}
}

// Key ...
func (m Message) Key() uint8 { return m.Data[0] }

// Velocity ...
func (m Message) Velocity() uint8 { return m.Data[1] }

// Control ...
func (m Message) Control() Control { return Control(m.Data[0]) }

// Value is the control change value.
func (m Message) Value() uint8 { return m.Data[1] }

// Program ...
func (m Message) Program() uint8 { return m.Data[0] }

// PitchBendRaw is the 14 bit wire value.
func (m Message) PitchBendRaw() int { return int(m.Data[0]) | int(m.Data[1])<<7 }

// PitchBendSemitones maps the 14 bit value to [-2, 2).
func (m Message) PitchBendSemitones() float64 {
	return float64(m.PitchBendRaw()-0x2000) / 0x1000
}

// String ...
func (m Message) String() string {
	return fmt.Sprintf("%s ch:%d %d %d", m.Type, m.Channel, m.Data[0], m.Data[1])
}

// DecodeMessage reads a channel voice message from wire bytes.
func DecodeMessage(raw []byte) (Message, error) {
	if len(raw) == 0 {
		return Message{}, fmt.Errorf("%w: empty message", ErrUnknownMessageType)
	}
	status := raw[0]
	if status < 0x80 || status >= 0xf0 {
		return Message{}, fmt.Errorf("%w: status 0x%02x", ErrUnknownMessageType, status)
	}
	m := Message{Channel: status & 0x0f, Type: MessageType(status & 0xf0)}
	size := 2
	if m.Type == MessageProgramChange || m.Type == MessageChannelPressure {
		size = 1
	}
	if len(raw) < 1+size {
		return Message{}, fmt.Errorf("synth: short %s message: %v", m.Type, raw)
	}
	copy(m.Data[:], raw[1:1+size])
	return m, nil
}

// ----- Dispatch ----- //

// SendMessage applies a message to the instance. A message that fails leaves
// the instance untouched.
func (inst *Instance) SendMessage(m Message) error {
	if int(m.Channel) >= ChannelCount {
		return ErrUnknownChannel
	}
	switch m.Type {
	case MessageEndOfTrack, MessageSetTempo:
		return nil
	case MessageNoteOff:
		return inst.StopNote(m.Channel, m.Key())
	case MessageNoteOn:
		if m.Velocity() > 0 {
			return inst.PlayNote(m.Channel, m.Key(), m.Velocity())
		}
		return inst.StopNote(m.Channel, m.Key())
	case MessageControlChange:
		return inst.SetControl(m.Channel, m.Control(), m.Value())
	case MessageProgramChange:
		return inst.SetProgram(m.Channel, m.Program())
	case MessagePitchBend:
		return inst.SetPitchBend(m.Channel, m.PitchBendSemitones())
	}
	return ErrUnknownMessageType
}

// SetControl stores a control value; volume, expression, pan and balance
// update the stereo gain of the channel.
func (inst *Instance) SetControl(channel uint8, control Control, value uint8) error {
	if int(channel) >= ChannelCount {
		return ErrUnknownChannel
	}
	return inst.channels[channel].setControl(control, value)
}

// SetProgram ...
func (inst *Instance) SetProgram(channel, program uint8) error {
	if int(channel) >= ChannelCount {
		return ErrUnknownChannel
	}
	if int(program) >= ProgramCount {
		return ErrUnknownProgram
	}
	inst.channels[channel].Program = program
	return nil
}

// SetPitchBend sets the bend of channel in semitones. Voices that are already
// released keep their pitch.
func (inst *Instance) SetPitchBend(channel uint8, value float64) error {
	if int(channel) >= ChannelCount {
		return ErrUnknownChannel
	}
	inst.channels[channel].PitchBend = value
	for i := range inst.voices {
		v := &inst.voices[i]
		if v.channel == channel && v.active(inst.sampleIndex) && v.releaseIndex == unset {
			inst.computeBaseFreqRate(v)
		}
	}
	return nil
}
