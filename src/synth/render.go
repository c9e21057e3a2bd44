package synth

import "math"

// ----- Operator Network ----- //

func (inst *Instance) renderVoiceBlock(v *voice, mix *[BlockSamples * 2]float64) {
	var values, volumeRates, pitchRates [OperatorCount]float64

	program := v.program
	operators := &program.Operators
	gain := inst.channels[v.channel].gain
	velocity := float64(v.velocity) / 127

	for j := range operators {
		volumeRates[j] = inst.envelopeRate(&operators[j].Volume, v, v.volumes[j])
		pitchRates[j] = inst.envelopeRate(&operators[j].Pitch, v, v.pitches[j])
	}

	for i := 0; i < BlockSamples; i++ {
		for j := range operators {
			phase := v.phases[j]
			for k := range operators {
				phase += program.Matrix[k][j] * v.values[k] / (2 * math.Pi)
			}
			noise := operators[j].Noise
			wave := math.Sin(phase*2*math.Pi)*(1-noise) + (inst.rand.Float64()*2-1)*noise
			values[j] = wave * v.volumes[j]
			v.volumes[j] += volumeRates[j]
		}
		for j := range operators {
			value := values[j] * operators[j].Output * velocity
			mix[i*2+0] += value * gain[0]
			mix[i*2+1] += value * gain[1]

			freq := v.baseFreqRate*operators[j].FreqRatio + operators[j].FreqOffset*inst.invSampleRate
			v.phases[j] += freq * math.Exp2(v.pitches[j])
			v.values[j] = values[j]
			v.pitches[j] += pitchRates[j]
		}
	}

	for j := range v.phases {
		v.phases[j] -= math.Floor(v.phases[j])
		if v.phases[j] >= 1 { // tiny negative phases round up to 1
			v.phases[j] = 0
		}
	}
	inst.renderedSamples += BlockSamples
}

// ----- Render Driver ----- //

// Render fills dst with whole blocks of interleaved stereo frames in the
// configured sample format and returns the number of frames written. The frame
// count must be a multiple of BlockSamples; otherwise nothing is rendered.
func (inst *Instance) Render(dst []byte) (int, error) {
	frameSize := inst.config.SampleFormat.FrameSize()
	if frameSize == 0 {
		return 0, ErrUnknownSampleFormat
	}
	if len(dst)%frameSize != 0 {
		return 0, ErrBlockAlignment
	}
	frames := len(dst) / frameSize
	if frames%BlockSamples != 0 {
		return 0, ErrBlockAlignment
	}
	for i := 0; i < frames; i += BlockSamples {
		inst.renderBlock()
		out := dst[i*frameSize : (i+BlockSamples)*frameSize]
		for j, value := range inst.mix {
			s := inst.normalize(value)
			out[2*j] = byte(s)
			out[2*j+1] = byte(s >> 8)
		}
		inst.sampleIndex += BlockSamples
	}
	return frames, nil
}

func (inst *Instance) renderBlock() {
	for i := range inst.mix {
		inst.mix[i] = 0
	}
	for i := range inst.voices {
		v := &inst.voices[i]
		if v.active(inst.sampleIndex) {
			inst.renderVoiceBlock(v, &inst.mix)
		}
	}
}

// normalize scales against the largest peak seen so far. The range only grows.
func (inst *Instance) normalize(value float64) int16 {
	if r := math.Abs(value) * 1.01; r > inst.dynamicRange {
		inst.dynamicRange = r
	}
	return quantizeS16(value / inst.dynamicRange)
}

// quantizeS16 maps [-1, 1] to the int16 range; +1 saturates at 32767.
func quantizeS16(value float64) int16 {
	s := value * 0x8000
	if s >= math.MaxInt16 {
		return math.MaxInt16
	}
	if s <= math.MinInt16 {
		return math.MinInt16
	}
	return int16(s)
}
