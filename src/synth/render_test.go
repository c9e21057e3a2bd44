package synth

import (
	"math"
	"testing"
)

// renderMix renders blocks and returns the mix before normalization.
func renderMix(inst *Instance, blocks int) []float64 {
	var out []float64
	for b := 0; b < blocks; b++ {
		inst.renderBlock()
		out = append(out, inst.mix[:]...)
		inst.sampleIndex += BlockSamples
	}
	return out
}

// constantOperator reaches value within the first block and holds it.
func constantOperator(ratio, output, value float64) Operator {
	op := Operator{FreqRatio: ratio, Output: output}
	op.Volume.Points[0] = EnvelopePoint{Time: 0, Value: value}
	return op
}

// expectedMix runs the operator network of a program whose volume envelopes
// are made with constantOperator and whose pitch envelopes are empty.
func expectedMix(p *Program, freqRate, velocity float64, gain [2]float64, blocks int) []float64 {
	var phases, values, volumes [OperatorCount]float64
	out := make([]float64, 0, blocks*BlockSamples*2)
	for b := 0; b < blocks; b++ {
		for i := 0; i < BlockSamples; i++ {
			var next [OperatorCount]float64
			for j := range p.Operators {
				phase := phases[j]
				for k := range p.Operators {
					phase += p.Matrix[k][j] * values[k] / (2 * math.Pi)
				}
				next[j] = math.Sin(2*math.Pi*phase) * volumes[j]
				if b == 0 {
					volumes[j] += p.Operators[j].Volume.Points[0].Value / BlockSamples
				}
			}
			var left, right float64
			for j := range p.Operators {
				value := next[j] * p.Operators[j].Output * velocity
				left += value * gain[0]
				right += value * gain[1]
				phases[j] += freqRate*p.Operators[j].FreqRatio + p.Operators[j].FreqOffset/testSampleRate
			}
			values = next
			out = append(out, left, right)
		}
	}
	return out
}

func maxDiff(a, b []float64) float64 {
	d := 0.0
	for i := range a {
		d = math.Max(d, math.Abs(a[i]-b[i]))
	}
	return d
}

func newNetworkInstance(t *testing.T, setup func(p *Program)) *Instance {
	t.Helper()
	inst, err := New(Config{SampleRate: testSampleRate, SampleFormat: SampleFormatS16, Seed: 1})
	if err != nil {
		t.Fatalf("failed to create instance: %v", err)
	}
	setup(inst.Program(0))
	inst.Refresh()
	return inst
}

func gainOf(inst *Instance, channel int) [2]float64 {
	left, right := inst.Channel(channel).Gain()
	return [2]float64{left, right}
}

func TestOperatorIsSineAtRatio(t *testing.T) {
	inst := newNetworkInstance(t, func(p *Program) {
		p.Operators[0] = constantOperator(2, 1, 1)
	})
	expectNoError(t, inst.PlayNote(0, 69, 127))
	got := renderMix(inst, 3)

	freqRate := 440.0 / testSampleRate
	gain := gainOf(inst, 0)
	for n := BlockSamples; n < 3*BlockSamples; n++ {
		want := math.Sin(2 * math.Pi * 2 * freqRate * float64(n))
		expectNear(t, "left", got[2*n], want*gain[0], 1e-9)
		expectNear(t, "right", got[2*n+1], want*gain[1], 1e-9)
	}
	if d := maxDiff(got, expectedMix(inst.Program(0), freqRate, 1, gain, 3)); d > 1e-9 {
		t.Errorf("mix differs from the network by %v", d)
	}
}

func TestOperatorNoiseReplacesSine(t *testing.T) {
	inst := newNetworkInstance(t, func(p *Program) {
		p.Operators[0] = constantOperator(1, 1, 1)
		p.Operators[0].Noise = 1
	})
	expectNoError(t, inst.PlayNote(0, 69, 127))
	got := renderMix(inst, 3)
	sine := expectedMix(inst.Program(0), 440.0/testSampleRate, 1, gainOf(inst, 0), 3)
	if d := maxDiff(got, sine); d < 0.1 {
		t.Errorf("noise output should not be a sine, max difference %v", d)
	}
	for _, v := range got {
		if math.Abs(v) > 1 {
			t.Fatalf("noise should stay within the operator volume, got %v", v)
		}
	}
}

func TestFreqOffsetShiftsPhaseIncrement(t *testing.T) {
	inst := newNetworkInstance(t, func(p *Program) {
		p.Operators[0] = constantOperator(1, 1, 1)
		p.Operators[0].FreqOffset = 50
		p.Operators[1] = constantOperator(0, 1, 0.5)
		p.Operators[1].FreqOffset = 100
	})
	expectNoError(t, inst.PlayNote(0, 69, 127))
	got := renderMix(inst, 1)

	freqRate := 440.0 / testSampleRate
	phase := BlockSamples * (freqRate + 50.0/testSampleRate)
	expectNear(t, "offset phase", inst.voices[0].phases[0], phase-math.Floor(phase), 1e-12)
	phase = BlockSamples * 100.0 / testSampleRate
	expectNear(t, "offset only phase", inst.voices[0].phases[1], phase-math.Floor(phase), 1e-12)

	got = append(got, renderMix(inst, 2)...)
	if d := maxDiff(got, expectedMix(inst.Program(0), freqRate, 1, gainOf(inst, 0), 3)); d > 1e-9 {
		t.Errorf("mix differs from the network by %v", d)
	}
}

func TestModulationMatrix(t *testing.T) {
	cases := []struct {
		name   string
		matrix func(m *[OperatorCount][OperatorCount]float64)
	}{
		{"modulator", func(m *[OperatorCount][OperatorCount]float64) { m[1][0] = 1.5 }},
		{"self", func(m *[OperatorCount][OperatorCount]float64) { m[0][0] = 0.8 }},
		{"chain", func(m *[OperatorCount][OperatorCount]float64) {
			m[2][1] = 2
			m[1][0] = 1
			m[2][2] = 0.3
		}},
	}
	for _, c := range cases {
		setup := func(p *Program) {
			p.Operators[0] = constantOperator(1, 1, 1)
			p.Operators[1] = constantOperator(2, 0, 1)
			p.Operators[2] = constantOperator(3.5, 0, 0.5)
		}
		plain := newNetworkInstance(t, setup)
		modulated := newNetworkInstance(t, func(p *Program) {
			setup(p)
			c.matrix(&p.Matrix)
		})
		expectNoError(t, plain.PlayNote(0, 60, 127))
		expectNoError(t, modulated.PlayNote(0, 60, 127))
		freqRate := plain.voices[0].baseFreqRate

		got := renderMix(modulated, 3)
		if d := maxDiff(got, renderMix(plain, 3)); d < 1e-3 {
			t.Errorf("%s: modulation should change the output, max difference %v", c.name, d)
		}
		want := expectedMix(modulated.Program(0), freqRate, 1, gainOf(modulated, 0), 3)
		if d := maxDiff(got, want); d > 1e-9 {
			t.Errorf("%s: mix differs from the network by %v", c.name, d)
		}
	}
}

func TestVelocityAndChannelGainScaleMix(t *testing.T) {
	setup := func(p *Program) {
		p.Operators[0] = constantOperator(1, 0.5, 1)
	}
	inst := newNetworkInstance(t, setup)
	expectNoError(t, inst.SendMessage(ControlChange(0, ControlPan, 0)))
	expectNoError(t, inst.SendMessage(ControlChange(0, ControlVolume, 100)))
	expectNoError(t, inst.PlayNote(0, 69, 64))
	got := renderMix(inst, 2)

	gain := gainOf(inst, 0)
	expectNear(t, "left gain", gain[0], 100.0/127, 1e-12)
	expectNear(t, "right gain", gain[1], 0, 1e-12)
	want := expectedMix(inst.Program(0), 440.0/testSampleRate, 64.0/127, gain, 2)
	if d := maxDiff(got, want); d > 1e-9 {
		t.Errorf("mix differs by %v", d)
	}

	full := newNetworkInstance(t, setup)
	expectNoError(t, full.PlayNote(0, 69, 127))
	ref := renderMix(full, 2)
	fullGain := gainOf(full, 0)
	for n := 0; n < 2*BlockSamples; n++ {
		expectNear(t, "scaled", got[2*n], ref[2*n]/fullGain[0]*64/127*100/127, 1e-9)
		expectNear(t, "right", got[2*n+1], 0, 1e-9)
	}
}

func TestPhasesStayWrapped(t *testing.T) {
	inst := newNetworkInstance(t, func(p *Program) {
		p.Operators[0] = constantOperator(-1.5, 1, 1)
		p.Operators[1] = constantOperator(3.7, 0.5, 1)
		p.Operators[1].FreqOffset = -30
		p.Operators[2] = constantOperator(-0.001, 0, 1)
		for k := 0; k < 3; k++ {
			for j := 0; j < 3; j++ {
				p.Matrix[k][j] = 4
			}
		}
	})
	expectNoError(t, inst.PlayNote(0, 100, 127))
	expectNoError(t, inst.PlayNote(0, 20, 127))
	for b := 0; b < 50; b++ {
		renderMix(inst, 1)
		for i := 0; i < 2; i++ {
			for j, phase := range inst.voices[i].phases {
				if phase < 0 || phase >= 1 {
					t.Fatalf("block %d voice %d operator %d: phase %v out of [0, 1)", b, i, j, phase)
				}
			}
		}
	}
}
