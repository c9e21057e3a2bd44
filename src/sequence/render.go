package sequence

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/jinjor/fm-synth/src/synth"
	"github.com/youpy/go-wav"
)

// MaxTail bounds the rendering after the last event while voices fade out.
const MaxTail = 10 * time.Second

const (
	wavChannels      = 2
	wavBitsPerSample = 16
	wavChunkSamples  = 4096
)

// Stats describes an offline rendering.
type Stats struct {
	Frames  uint64 // stereo frames written
	Voices  uint64 // frames rendered per voice, summed over voices
	Dropped int    // notes lost because every voice was busy
	Elapsed time.Duration
}

// SamplesPerMicrosecond is the voice throughput of the engine.
func (s Stats) SamplesPerMicrosecond() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Voices) / float64(s.Elapsed.Microseconds())
}

// Render sends the events to inst at their sample positions and returns the
// s16 frames. Messages take effect at the first block boundary at or after
// their time.
func Render(inst *synth.Instance, seq Sequence, progress Progress) ([]byte, Stats, error) {
	var stats Stats
	if inst.Config().SampleFormat != synth.SampleFormatS16 {
		return nil, stats, synth.ErrUnknownSampleFormat
	}
	inst.Reset()
	rate := uint64(inst.Config().SampleRate)
	frameSize := inst.Config().SampleFormat.FrameSize()
	block := make([]byte, synth.BlockSamples*frameSize)
	voicesBefore := inst.RenderedSamples()

	var out bytes.Buffer
	var frames uint64
	renderBlock := func() error {
		start := time.Now()
		if _, err := inst.Render(block); err != nil {
			return err
		}
		stats.Elapsed += time.Since(start)
		out.Write(block)
		frames += synth.BlockSamples
		return nil
	}

	tracker := newProgressTracker(seq.Duration(), progress)
	for _, e := range seq {
		target := uint64(e.At) * rate / uint64(time.Second)
		for frames < target {
			if err := renderBlock(); err != nil {
				return nil, stats, err
			}
			tracker.update(time.Duration(frames * uint64(time.Second) / rate))
		}
		err := inst.SendMessage(e.Message)
		if errors.Is(err, synth.ErrOutOfVoices) {
			stats.Dropped++
		} else if err != nil {
			log.Printf("ignored %v: %v\n", e.Message, err)
		}
	}
	tail := frames + uint64(MaxTail)*rate/uint64(time.Second)
	for inst.ActiveVoices() > 0 && frames < tail {
		if err := renderBlock(); err != nil {
			return nil, stats, err
		}
	}
	tracker.update(seq.Duration())

	stats.Frames = frames
	stats.Voices = inst.RenderedSamples() - voicesBefore
	return out.Bytes(), stats, nil
}

// WriteWAV writes s16 stereo frames as a PCM wave file.
func WriteWAV(w io.Writer, frames []byte, sampleRate int) error {
	n := len(frames) / (wavChannels * 2)
	writer := wav.NewWriter(w, uint32(n), wavChannels, uint32(sampleRate), wavBitsPerSample)
	samples := make([]wav.Sample, 0, wavChunkSamples)
	for i := 0; i < n; i++ {
		frame := frames[i*wavChannels*2:]
		samples = append(samples, wav.Sample{Values: [2]int{
			int(int16(binary.LittleEndian.Uint16(frame[0:]))),
			int(int16(binary.LittleEndian.Uint16(frame[2:]))),
		}})
		if len(samples) == cap(samples) || i == n-1 {
			if err := writer.WriteSamples(samples); err != nil {
				return fmt.Errorf("failed to write samples: %w", err)
			}
			samples = samples[:0]
		}
	}
	return nil
}

// RenderWAV renders the sequence and writes it as a wave file.
func RenderWAV(w io.Writer, inst *synth.Instance, seq Sequence, progress Progress) (Stats, error) {
	frames, stats, err := Render(inst, seq, progress)
	if err != nil {
		return stats, err
	}
	if err := WriteWAV(w, frames, inst.Config().SampleRate); err != nil {
		return stats, err
	}
	return stats, nil
}
