package synth

import "math"

// ----- Voice ----- //

const unset = math.MaxUint64

type voice struct {
	phases        [OperatorCount]float64
	values        [OperatorCount]float64
	volumes       [OperatorCount]float64
	pitches       [OperatorCount]float64
	pressIndex    uint64
	releaseIndex  uint64
	inactiveIndex uint64
	program       *Program
	baseFreqRate  float64 // cycles per sample
	channel       uint8
	key           uint8
	velocity      uint8
}

func (v *voice) active(now uint64) bool {
	return v.inactiveIndex > now
}

func (v *voice) released(now uint64) bool {
	return v.releaseIndex != unset && v.releaseIndex <= now
}

func (inst *Instance) computeBaseFreqRate(v *voice) {
	key := float64(v.key) + inst.channels[v.channel].PitchBend
	v.baseFreqRate = noteToFreq(key) * inst.invSampleRate
}

// ----- Voice Pool ----- //

// PlayNote starts a voice on the first free slot. Voices are never stolen:
// when the pool is full ErrOutOfVoices is returned and nothing changes.
func (inst *Instance) PlayNote(channel, key, velocity uint8) error {
	if int(channel) >= ChannelCount {
		return ErrUnknownChannel
	}
	program := int(inst.channels[channel].Program)
	percussion := inst.config.Percussion && channel == PercussionChannel
	if percussion {
		program = percussionProgramBase + int(key)
		key = percussionKey
	}
	if program >= ProgramCount {
		return ErrUnknownProgram
	}
	for i := range inst.voices {
		v := &inst.voices[i]
		if v.active(inst.sampleIndex) {
			continue
		}
		*v = voice{
			pressIndex:    inst.sampleIndex,
			releaseIndex:  unset,
			inactiveIndex: unset,
			program:       &inst.programs[program],
			channel:       channel,
			key:           key,
			velocity:      velocity,
		}
		if percussion {
			v.releaseIndex = v.pressIndex + v.program.sustainSamples
			v.inactiveIndex = v.releaseIndex + v.program.releaseSamples
		}
		inst.computeBaseFreqRate(v)
		return nil
	}
	return ErrOutOfVoices
}

// StopNote releases every active voice playing key on channel.
func (inst *Instance) StopNote(channel, key uint8) error {
	if int(channel) >= ChannelCount {
		return ErrUnknownChannel
	}
	for i := range inst.voices {
		v := &inst.voices[i]
		if v.active(inst.sampleIndex) && v.channel == channel && v.key == key {
			v.releaseIndex = inst.sampleIndex
			v.inactiveIndex = inst.sampleIndex + v.program.releaseSamples
		}
	}
	return nil
}

// StopAllNotes frees every voice immediately.
func (inst *Instance) StopAllNotes() {
	for i := range inst.voices {
		inst.voices[i] = voice{}
	}
}

// Reset frees every voice and puts the channels back to their initial state.
// Programs, the clock and the dynamic range are kept.
func (inst *Instance) Reset() {
	inst.StopAllNotes()
	for i := range inst.channels {
		inst.channels[i] = Channel{}
		inst.channels[i].init()
	}
}
