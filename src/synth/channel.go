package synth

import "math"

// ----- Controls ----- //

// Control is a MIDI control change number.
type Control uint8

const (
	ControlBankSelect      Control = 0
	ControlModulationWheel Control = 1
	ControlBreath          Control = 2
	ControlVolume          Control = 7
	ControlBalance         Control = 8
	ControlPan             Control = 10
	ControlExpression      Control = 11
	ControlNRPN            Control = 98
	ControlRPN             Control = 100
	MaxControls                    = 101
)

// ----- Channel ----- //

// Channel is the per-channel state set by control messages. Volume (CC7) and
// expression (CC11) attenuate both pan gains.
type Channel struct {
	Program   uint8
	PitchBend float64 // semitones
	Controls  [MaxControls]uint8
	gain      [2]float64
}

func (c *Channel) init() {
	c.Controls[ControlVolume] = 127
	c.Controls[ControlExpression] = 127
	c.Controls[ControlBalance] = 64
	c.Controls[ControlPan] = 64
	c.updateGain()
}

// Gain returns the left and right gains applied to every voice of the channel.
func (c Channel) Gain() (left, right float64) {
	return c.gain[0], c.gain[1]
}

// equal power panning, 0 is full left and 126 full right
func (c *Channel) updateGain() {
	volume := float64(c.Controls[ControlVolume]) / 127 * float64(c.Controls[ControlExpression]) / 127
	pan := math.Min(float64(c.Controls[ControlPan])/126, 1)
	c.gain[0] = volume * math.Cos(math.Pi/2*pan)
	c.gain[1] = volume * math.Sin(math.Pi/2*pan)
}

func (c *Channel) setControl(control Control, value uint8) error {
	if int(control) >= MaxControls {
		return ErrUnknownControl
	}
	c.Controls[control] = value
	switch control {
	case ControlVolume, ControlExpression, ControlPan, ControlBalance:
		c.updateGain()
	}
	return nil
}
