package synth

import (
	"errors"
	"math"
	"math/rand"
)

const (
	BlockSamples       = 64
	VoiceCount         = 64
	OperatorCount      = 8
	EnvelopePointCount = 6
	FilterCount        = 4
	ChannelCount       = 16
	ProgramCount       = 174 // 128 tonal programs + 46 percussive sounds
	PercussionChannel  = 9
)

const (
	percussionKey         = 60
	percussionProgramBase = 93
)

// ----- Errors ----- //

var (
	ErrUnknownMessageType  = errors.New("synth: unknown message type")
	ErrUnknownControl      = errors.New("synth: unknown control")
	ErrUnknownSampleFormat = errors.New("synth: unknown sample format")
	ErrOutOfVoices         = errors.New("synth: out of voices")
	ErrBlockAlignment      = errors.New("synth: render size is not a multiple of the block size")
	ErrUnknownChannel      = errors.New("synth: unknown channel")
	ErrUnknownProgram      = errors.New("synth: unknown program")
)

// ----- Config ----- //

// SampleFormat ...
type SampleFormat int

const (
	// SampleFormatS16 is interleaved stereo, signed 16 bit, little endian.
	SampleFormatS16 SampleFormat = iota
)

// FrameSize returns the number of bytes of one stereo frame, or 0 for an unknown format.
func (f SampleFormat) FrameSize() int {
	switch f {
	case SampleFormatS16:
		return 2 * 2
	}
	return 0
}

// Config is fixed at construction.
type Config struct {
	SampleRate   int
	SampleFormat SampleFormat
	// Percussion makes channel 9 trigger one-shot programs from the percussion range.
	Percussion bool
	// Seed feeds the noise source of the operators.
	Seed int64
}

// ----- Instance ----- //

// Instance holds the whole state of one synthesizer. It is not safe for concurrent use.
type Instance struct {
	config          Config
	invSampleRate   float64
	sampleIndex     uint64
	renderedSamples uint64
	dynamicRange    float64
	channels        [ChannelCount]Channel
	programs        [ProgramCount]Program
	voices          [VoiceCount]voice
	mix             [BlockSamples * 2]float64
	rand            *rand.Rand
}

// New ...
func New(config Config) (*Instance, error) {
	if config.SampleFormat.FrameSize() == 0 {
		return nil, ErrUnknownSampleFormat
	}
	if config.SampleRate <= 0 {
		return nil, errors.New("synth: sample rate must be positive")
	}
	inst := &Instance{
		config:        config,
		invSampleRate: 1.0 / float64(config.SampleRate),
		dynamicRange:  1.0,
		rand:          rand.New(rand.NewSource(config.Seed)),
	}
	for i := range inst.channels {
		inst.channels[i].init()
	}
	inst.Refresh()
	return inst, nil
}

// Config ...
func (inst *Instance) Config() Config {
	return inst.config
}

// Refresh recomputes the cached sustain and release durations of every program.
// It must be called after any edit made through Program.
func (inst *Instance) Refresh() {
	for i := range inst.programs {
		inst.programs[i].refresh(float64(inst.config.SampleRate))
	}
}

// Program returns the program for editing. Call Refresh when done.
func (inst *Instance) Program(index int) *Program {
	if index < 0 || index >= ProgramCount {
		return nil
	}
	return &inst.programs[index]
}

// Channel returns a copy of the channel state, or nil if index is out of range.
func (inst *Instance) Channel(index int) *Channel {
	if index < 0 || index >= ChannelCount {
		return nil
	}
	c := inst.channels[index]
	return &c
}

// SampleIndex is the number of frames rendered since New.
func (inst *Instance) SampleIndex() uint64 {
	return inst.sampleIndex
}

// RenderedSamples counts the frames rendered per voice, summed over all voices.
func (inst *Instance) RenderedSamples() uint64 {
	return inst.renderedSamples
}

// DynamicRange is the peak the output is normalized against. It never decreases.
func (inst *Instance) DynamicRange() float64 {
	return inst.dynamicRange
}

// ActiveVoices ...
func (inst *Instance) ActiveVoices() int {
	n := 0
	for i := range inst.voices {
		if inst.voices[i].active(inst.sampleIndex) {
			n++
		}
	}
	return n
}

func noteToFreq(key float64) float64 {
	return 440.0 * math.Pow(2, (key-69)/12)
}
