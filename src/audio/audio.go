package audio

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"

	"github.com/hajimehoshi/oto"
	"github.com/jinjor/fm-synth/src/synth"
)

const (
	channelNum      = 2
	bitDepthInBytes = 2
	samplesPerCycle = 1024 // multiple of synth.BlockSamples
)
const bytesPerSample = bitDepthInBytes * channelNum
const bufferSizeInBytes = samplesPerCycle * bytesPerSample // should be >= 4096
const blockSizeInBytes = synth.BlockSamples * bytesPerSample

// ----- Synth ----- //

// Synth guards an instance with a lock so that the audio thread and the
// message producers can share it. The lock is only held while one message
// is applied or one buffer is rendered.
type Synth struct {
	sync.Mutex
	inst     *synth.Instance
	block    [blockSizeInBytes]byte
	blockPos int // bytes of block already handed out
	dropped  int
}

var _ io.Reader = (*Synth)(nil)

// NewSynth ...
func NewSynth(inst *synth.Instance) *Synth {
	s := &Synth{inst: inst}
	s.blockPos = len(s.block)
	return s
}

// SendMessage applies a message. Running out of voices drops the note.
func (s *Synth) SendMessage(m synth.Message) error {
	s.Lock()
	err := s.inst.SendMessage(m)
	dropped := errors.Is(err, synth.ErrOutOfVoices)
	if dropped {
		s.dropped++
	}
	s.Unlock()
	if dropped {
		log.Printf("maxPoly exceeded: dropped %v", m)
		return nil
	}
	return err
}

// SendRaw decodes wire bytes and applies them.
func (s *Synth) SendRaw(data []byte) error {
	m, err := synth.DecodeMessage(data)
	if err != nil {
		return err
	}
	return s.SendMessage(m)
}

// Do runs f with exclusive access to the instance.
func (s *Synth) Do(f func(inst *synth.Instance) error) error {
	s.Lock()
	defer s.Unlock()
	return f(s.inst)
}

// Dropped is the number of notes lost because every voice was busy.
func (s *Synth) Dropped() int {
	s.Lock()
	defer s.Unlock()
	return s.dropped
}

// Read renders interleaved s16 frames. Reads of any size are served from
// whole blocks; the unread tail of a block is kept for the next call.
func (s *Synth) Read(buf []byte) (int, error) {
	s.Lock()
	defer s.Unlock()
	n := 0
	for n < len(buf) {
		if s.blockPos < len(s.block) {
			copied := copy(buf[n:], s.block[s.blockPos:])
			s.blockPos += copied
			n += copied
			continue
		}
		if whole := (len(buf) - n) / blockSizeInBytes * blockSizeInBytes; whole > 0 {
			if _, err := s.inst.Render(buf[n : n+whole]); err != nil {
				return n, err
			}
			n += whole
			continue
		}
		if _, err := s.inst.Render(s.block[:]); err != nil {
			return n, err
		}
		s.blockPos = 0
	}
	return n, nil
}

// ----- Output ----- //

// Output plays a Synth on the default audio device.
type Output struct {
	otoContext *oto.Context
	synth      *Synth
}

// NewOutput ...
func NewOutput(s *Synth, sampleRate int) (*Output, error) {
	otoContext, err := oto.NewContext(sampleRate, channelNum, bitDepthInBytes, bufferSizeInBytes)
	if err != nil {
		return nil, err
	}
	return &Output{
		otoContext: otoContext,
		synth:      s,
	}, nil
}

// Start blocks until ctx is done.
func (o *Output) Start(ctx context.Context) error {
	p := o.otoContext.NewPlayer()
	defer func() {
		if err := p.Close(); err != nil {
			log.Printf("error: %v", err)
		}
	}()
	r := &contextReader{ctx: ctx, r: o.synth}
	if _, err := io.CopyBuffer(p, r, make([]byte, bufferSizeInBytes)); err != nil {
		return err
	}
	log.Println("Start() ended.")
	return nil
}

// Close ...
func (o *Output) Close() error {
	log.Println("Closing Output...")
	return o.otoContext.Close()
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(buf []byte) (int, error) {
	select {
	case <-c.ctx.Done():
		log.Println("Read() interrupted.")
		return 0, io.EOF
	default:
		return c.r.Read(buf)
	}
}
