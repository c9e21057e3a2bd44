package synth

import (
	"math"
	"testing"
)

func TestDecodeMessage(t *testing.T) {
	cases := []struct {
		raw  []byte
		want Message
	}{
		{[]byte{0x93, 60, 100}, NoteOn(3, 60, 100)},
		{[]byte{0x80, 60, 64}, Message{Channel: 0, Type: MessageNoteOff, Data: [2]byte{60, 64}}},
		{[]byte{0xb2, 10, 0}, ControlChange(2, ControlPan, 0)},
		{[]byte{0xc1, 24}, ProgramChange(1, 24)},
		{[]byte{0xef, 0x00, 0x40}, PitchBend(15, 0x2000)},
	}
	for _, c := range cases {
		got, err := DecodeMessage(c.raw)
		expectNoError(t, err)
		if got != c.want {
			t.Errorf("DecodeMessage(%v): expected %v, but got %v", c.raw, c.want, got)
		}
	}
}

func TestDecodeMessageErrors(t *testing.T) {
	for _, raw := range [][]byte{nil, {0x3c}, {0xf8}, {0xff, 0x2f, 0x00}} {
		_, err := DecodeMessage(raw)
		expectError(t, err, ErrUnknownMessageType)
	}
	if _, err := DecodeMessage([]byte{0x90, 60}); err == nil {
		t.Error("expected an error for a short note on")
	}
}

func TestPitchBendSemitones(t *testing.T) {
	expectNear(t, "center", PitchBend(0, 0x2000).PitchBendSemitones(), 0, 0)
	expectNear(t, "min", PitchBend(0, 0).PitchBendSemitones(), -2, 0)
	expectNear(t, "max", PitchBend(0, 0x3fff).PitchBendSemitones(), 2-1.0/0x1000, 1e-12)
}

func TestPanMirror(t *testing.T) {
	inst := newTestInstance(t)
	expectNoError(t, inst.SendMessage(ControlChange(0, ControlPan, 0)))
	expectNoError(t, inst.SendMessage(ControlChange(1, ControlPan, 126)))
	l0, r0 := inst.Channel(0).Gain()
	l1, r1 := inst.Channel(1).Gain()
	expectNear(t, "full left", l0, 1, 1e-12)
	expectNear(t, "full left", r0, 0, 1e-12)
	expectNear(t, "mirror", l0, r1, 1e-12)
	expectNear(t, "mirror", r0, l1, 1e-12)
}

func TestVolumeScalesGain(t *testing.T) {
	inst := newTestInstance(t)
	l, r := inst.Channel(0).Gain()
	expectNoError(t, inst.SendMessage(ControlChange(0, ControlVolume, 0)))
	l0, r0 := inst.Channel(0).Gain()
	if l0 != 0 || r0 != 0 {
		t.Errorf("zero volume should mute, but got %v/%v", l0, r0)
	}
	expectNoError(t, inst.SendMessage(ControlChange(0, ControlVolume, 127)))
	expectNoError(t, inst.SendMessage(ControlChange(0, ControlExpression, 127)))
	l1, r1 := inst.Channel(0).Gain()
	if l1 != l || r1 != r {
		t.Error("gain should come back with full volume")
	}
}

func TestControlChangeWithoutGainUpdate(t *testing.T) {
	inst := newTestInstance(t)
	expectNoError(t, inst.SendMessage(ControlChange(0, ControlModulationWheel, 99)))
	if inst.Channel(0).Controls[ControlModulationWheel] != 99 {
		t.Error("control value should be stored")
	}
	expectNoError(t, inst.SendMessage(ControlChange(0, ControlRPN, 1)))
}

func TestUnknownControlMutatesNothing(t *testing.T) {
	inst := newTestInstance(t)
	before := inst.channels
	expectError(t, inst.SendMessage(ControlChange(0, Control(MaxControls), 1)), ErrUnknownControl)
	expectError(t, inst.SendMessage(ControlChange(0, 120, 0)), ErrUnknownControl)
	if inst.channels != before {
		t.Error("channel state changed on unknown control")
	}
}

func TestUnknownMessageTypeMutatesNothing(t *testing.T) {
	inst := newTestInstance(t)
	expectNoError(t, inst.PlayNote(0, 60, 127))
	channels, voices := inst.channels, inst.voices
	for _, typ := range []MessageType{MessageKeyPressure, MessageChannelPressure, 0xf0} {
		err := inst.SendMessage(Message{Channel: 0, Type: typ, Data: [2]byte{60, 1}})
		expectError(t, err, ErrUnknownMessageType)
	}
	expectError(t, inst.SendMessage(Message{Channel: ChannelCount, Type: MessageNoteOn, Data: [2]byte{60, 1}}), ErrUnknownChannel)
	if inst.channels != channels || inst.voices != voices {
		t.Error("state changed on unknown message")
	}
}

func TestMetaMessagesAreIgnored(t *testing.T) {
	inst := newTestInstance(t)
	expectNoError(t, inst.SendMessage(Message{Type: MessageEndOfTrack}))
	expectNoError(t, inst.SendMessage(Message{Type: MessageSetTempo}))
}

func TestProgramChange(t *testing.T) {
	inst := newTestInstance(t)
	expectNoError(t, inst.SendMessage(ProgramChange(2, 5)))
	if inst.Channel(2).Program != 5 {
		t.Errorf("expected program 5, but got %d", inst.Channel(2).Program)
	}
	expectNoError(t, inst.PlayNote(2, 60, 127))
	if inst.voices[0].program != inst.Program(5) {
		t.Error("voice should use the program of its channel")
	}
	expectError(t, inst.SetProgram(2, ProgramCount), ErrUnknownProgram)
	if inst.Channel(2).Program != 5 {
		t.Error("failed program change should keep the previous program")
	}
}

func TestPitchBendMessageFrequency(t *testing.T) {
	inst := newTestInstance(t)
	expectNoError(t, inst.SendMessage(PitchBend(0, 0x3000)))
	expectNoError(t, inst.PlayNote(0, 69, 127))
	expectNear(t, "freq", inst.voices[0].baseFreqRate*testSampleRate, 440*math.Pow(2, 1.0/12), 1e-9)
}
