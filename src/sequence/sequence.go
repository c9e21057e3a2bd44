package sequence

import (
	"fmt"
	"sort"
	"time"

	"github.com/jinjor/fm-synth/src/synth"
	"gitlab.com/gomidi/midi"
	"gitlab.com/gomidi/midi/reader"
)

// Event is a message due at a point of time from the start of the sequence.
type Event struct {
	At      time.Duration
	Message synth.Message
}

// Sequence is a list of events ordered by time.
type Sequence []Event

// AllChannels selects every channel.
const AllChannels uint16 = 0xffff

// ChannelMask selects a single channel.
func ChannelMask(channel int) uint16 {
	return 1 << uint(channel)
}

// Load reads a standard MIDI file. Meta and system messages are left out.
func Load(path string) (Sequence, error) {
	var seq Sequence
	var rd *reader.Reader
	var timeErr error
	rd = reader.New(reader.NoLogger(), reader.Each(func(pos *reader.Position, msg midi.Message) {
		m, err := synth.DecodeMessage(msg.Raw())
		if err != nil {
			return
		}
		at := reader.TimeAt(rd, pos.AbsoluteTicks)
		if at == nil {
			timeErr = fmt.Errorf("no time resolution in %s", path)
			return
		}
		seq = append(seq, Event{At: *at, Message: m})
	}))
	if err := reader.ReadSMFFile(rd, path); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if timeErr != nil {
		return nil, timeErr
	}
	sort.SliceStable(seq, func(i, j int) bool {
		return seq[i].At < seq[j].At
	})
	return seq, nil
}

const demoStep = 256 * time.Millisecond

// Demo walks through the bank: every tonal program plays a major triad on
// channel 0, then every percussion key is struck three times on channel 9.
func Demo() Sequence {
	var seq Sequence
	var at time.Duration
	for program := 0; program < 128; program++ {
		seq = append(seq, Event{at, synth.ProgramChange(0, uint8(program))})
		for _, interval := range []uint8{0, 4, 7} {
			key := 60 + interval
			seq = append(seq, Event{at, synth.NoteOn(0, key, 127)})
			at += demoStep
			seq = append(seq, Event{at, synth.NoteOff(0, key)})
		}
		at += demoStep
	}
	for key := uint8(35); key < 82; key++ {
		for i := 0; i < 3; i++ {
			seq = append(seq, Event{at, synth.NoteOn(synth.PercussionChannel, key, 127)})
			at += demoStep
		}
		at += demoStep
	}
	return seq
}

// Filter keeps the events of the channels in mask.
func (seq Sequence) Filter(mask uint16) Sequence {
	filtered := make(Sequence, 0, len(seq))
	for _, e := range seq {
		if ChannelMask(int(e.Message.Channel))&mask != 0 {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

// Duration is the time of the last event.
func (seq Sequence) Duration() time.Duration {
	if len(seq) == 0 {
		return 0
	}
	return seq[len(seq)-1].At
}

// Progress reports completion in percent. It is called only when the value grows.
type Progress func(percent int)

type progressTracker struct {
	total time.Duration
	last  int
	f     Progress
}

func newProgressTracker(total time.Duration, f Progress) *progressTracker {
	p := &progressTracker{total: total, last: -1, f: f}
	p.update(0)
	return p
}

func (p *progressTracker) update(at time.Duration) {
	percent := 100
	if p.total > 0 && at < p.total {
		percent = int(at * 100 / p.total)
	}
	if p.f != nil && percent > p.last {
		p.last = percent
		p.f(percent)
	}
}
