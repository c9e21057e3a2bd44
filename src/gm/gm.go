// Package gm loads a General MIDI flavoured bank of programs into a synth instance.
package gm

import "github.com/jinjor/fm-synth/src/synth"

const percussionBase = 93

// New creates an instance with channel 9 as percussion and the bank loaded.
func New(sampleRate int, seed int64) (*synth.Instance, error) {
	inst, err := synth.New(synth.Config{
		SampleRate:   sampleRate,
		SampleFormat: synth.SampleFormatS16,
		Percussion:   true,
		Seed:         seed,
	})
	if err != nil {
		return nil, err
	}
	Load(inst)
	return inst, nil
}

// Load overwrites the programs of inst and refreshes it.
func Load(inst *synth.Instance) {
	for i := 0; i < 128; i++ {
		p := inst.Program(i)
		*p = synth.Program{}
		p.Operators[0] = op(1, 1, env(0.05, pt(0.05, 1)))
	}
	for i := 128; i < synth.ProgramCount; i++ {
		*inst.Program(i) = synth.Program{}
	}

	fill(inst, 0, 8, piano())
	fill(inst, 16, 8, organ())
	fill(inst, 24, 8, guitar())
	fill(inst, 32, 8, bass())
	fill(inst, 56, 8, brass())

	drums := map[int]synth.Program{
		35: bassDrum(), 36: bassDrum(),
		37: sideStick(),
		38: snare(), 40: snare(),
		39: handClap(),
		41: tom(), 43: tom(), 45: tom(), 47: tom(), 48: tom(), 50: tom(),
		42: hihat(0.1), 44: hihat(0.1),
		46: hihat(0.15), 49: hihat(0.15), 51: hihat(0.15), 55: hihat(0.15),
	}
	for key, p := range drums {
		*inst.Program(percussionBase + key) = p
	}
	inst.Refresh()
}

func fill(inst *synth.Instance, from, count int, p synth.Program) {
	for i := from; i < from+count; i++ {
		*inst.Program(i) = p
	}
}

// ----- Builders ----- //

func pt(time, value float64) synth.EnvelopePoint {
	return synth.EnvelopePoint{Time: time, Value: value}
}

func env(release float64, points ...synth.EnvelopePoint) synth.Envelope {
	e := synth.Envelope{ReleaseTime: release}
	copy(e.Points[:], points)
	return e
}

func op(ratio, output float64, volume synth.Envelope) synth.Operator {
	return synth.Operator{FreqRatio: ratio, Output: output, Volume: volume}
}

// ----- Tonal ----- //

func piano() synth.Program {
	var p synth.Program
	p.Operators[0] = op(1, 1, env(0.5, pt(0, 1), pt(2, 0.25), pt(4, 0.05)))
	p.Operators[1] = op(1, 0, env(-1, pt(0, 1)))
	p.Matrix[1][0] = 4
	p.Matrix[1][1] = 0.4
	return p
}

func organ() synth.Program {
	var p synth.Program
	for i, ratio := range []float64{0.4999, 1, 2.0001, 3.999} {
		p.Operators[i] = op(ratio, 0.25, env(0.05, pt(0.05, 1)))
	}
	return p
}

func guitar() synth.Program {
	var p synth.Program
	p.Operators[0] = op(1, 1, env(0.2, pt(0, 1), pt(2, 0.5)))
	p.Operators[1] = op(1, 0, env(-1, pt(0, 1)))
	p.Matrix[1][0] = 2.5
	return p
}

func bass() synth.Program {
	var p synth.Program
	p.Operators[0] = op(1, 1, env(0.2, pt(0, 1), pt(0.7, 0.3)))
	p.Operators[1] = op(1, 0, env(-1, pt(0, 1), pt(0.25, 0)))
	p.Matrix[1][0] = 1
	return p
}

func brass() synth.Program {
	var p synth.Program
	p.Operators[0] = op(1, 1, env(0.2, pt(0.06, 1), pt(0.7, 0.5)))
	p.Operators[1] = op(1, 0, env(-1, pt(0, 1)))
	p.Operators[2] = op(3.67, 0, env(-1, pt(0, 1), pt(0.05, 0)))
	p.Operators[3] = op(0.02, 0, env(0.1, pt(0.3, 0), pt(0.6, 1)))
	p.Matrix[0][0] = 1
	p.Matrix[1][0] = 1
	p.Matrix[1][1] = 1
	p.Matrix[2][0] = 1
	p.Matrix[3][0] = 0.1
	return p
}

// ----- Percussion ----- //

func bassDrum() synth.Program {
	var p synth.Program
	p.Operators[0] = op(0.2, 8, env(0, pt(0, 1), pt(0.2, 0.75), pt(0.35, 0)))
	p.Operators[0].Pitch = env(0, pt(0.001, 1), pt(0.25, -2))
	return p
}

func sideStick() synth.Program {
	var p synth.Program
	p.Operators[0] = op(1, 2, env(0, pt(0, 1), pt(0.02, 0)))
	p.Operators[0].Noise = 0.1
	p.Operators[0].Pitch = env(0, pt(0.07, -1))
	p.Operators[1] = op(1, 0, env(0, pt(0, 1)))
	p.Matrix[1][0] = 5
	return p
}

func snare() synth.Program {
	var p synth.Program
	p.Operators[0] = op(0.6, 8, env(0, pt(0, 1), pt(0.02, 0.07), pt(0.13, 0)))
	p.Operators[0].Pitch = env(0, pt(0, 1), pt(0.01, -1))
	p.Operators[1] = op(0, 1, env(-1, pt(0, 1), pt(0.1, 0.1), pt(0.3, 0)))
	p.Operators[1].Noise = 1
	return p
}

func handClap() synth.Program {
	var p synth.Program
	p.Operators[0] = op(0, 2, env(0,
		pt(0.001, 1), pt(0.01, 0),
		pt(0.011, 0.9), pt(0.02, 0),
		pt(0.021, 0.8), pt(0.06, 0),
	))
	p.Operators[0].Noise = 1
	return p
}

func tom() synth.Program {
	var p synth.Program
	p.Operators[0] = op(0.2, 8, env(0, pt(0, 1), pt(0.2, 0.75), pt(0.35, 0)))
	p.Operators[0].Pitch = env(0, pt(0.001, 1), pt(0.25, 0))
	return p
}

func hihat(decay float64) synth.Program {
	var p synth.Program
	p.Operators[0] = op(0, 0.5, env(0, pt(0, 1), pt(decay, 0)))
	p.Operators[0].Noise = 1
	return p
}
