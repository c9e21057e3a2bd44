package synth

// ----- Envelope ----- //

/*
  value
    |    x
    |   / \        sustain
    |  /   x---------------x
    | /                     \  release
    |/                       \
    +------+---+-------------+----+
    |  p0  |p1 |             |    |
  press                   release
*/

// EnvelopePoint ...
type EnvelopePoint struct {
	Time  float64 // seconds since press
	Value float64
}

// Envelope is a piecewise linear ramp followed by a sustain and a release.
//
// Points are ordered by time. A point after the first one with Time <= 0 ends
// the ramp; the last defined value is held until release.
type Envelope struct {
	Points [EnvelopePointCount]EnvelopePoint
	// ReleaseTime is the linear ramp to zero after release in seconds.
	// 0 drops instantly and a negative value holds the sustain value.
	ReleaseTime float64
}

// Sustain returns the value held once the ramp is over.
func (e *Envelope) Sustain() float64 {
	sustain := 0.0
	for i, point := range e.Points {
		if i > 0 && point.Time <= 0 {
			break
		}
		sustain = point.Value
	}
	return sustain
}

// envelopeRate returns the per-sample change that moves current toward the envelope
// target. It is evaluated once per block, so the denominator never goes below
// one block.
func (inst *Instance) envelopeRate(e *Envelope, v *voice, current float64) float64 {
	pressTime := float64(inst.sampleIndex-v.pressIndex) * inst.invSampleRate
	released := v.released(inst.sampleIndex)
	sampleRate := float64(inst.config.SampleRate)

	sustain := 0.0
	for i, point := range e.Points {
		if i > 0 && point.Time <= 0 {
			break
		}
		if !released && point.Time >= pressTime {
			return (point.Value - current) / maxSamples((point.Time-pressTime)*sampleRate)
		}
		sustain = point.Value
	}

	if !released || e.ReleaseTime < 0 {
		return (sustain - current) / BlockSamples
	}
	if e.ReleaseTime == 0 {
		return -current / BlockSamples
	}
	releaseTime := float64(inst.sampleIndex-v.releaseIndex) * inst.invSampleRate
	return -current / maxSamples((e.ReleaseTime-releaseTime)*sampleRate)
}

func maxSamples(samples float64) float64 {
	if samples < BlockSamples {
		return BlockSamples
	}
	return samples
}
