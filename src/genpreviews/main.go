package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/jinjor/fm-synth/src/gm"
	"github.com/jinjor/fm-synth/src/sequence"
	"github.com/jinjor/fm-synth/src/synth"
	"golang.org/x/sync/errgroup"
)

const sampleRate = 48000
const step = 400 * time.Millisecond

type preview struct {
	name string
	seq  sequence.Sequence
}

func main() {
	flag.Parse()
	dir := flag.Arg(0)
	if dir == "" {
		panic("dir is not passed")
	}
	log.SetFlags(log.Lshortfile)

	previews := []preview{
		{"piano", arpeggio(0)},
		{"organ", arpeggio(16)},
		{"guitar", arpeggio(24)},
		{"bass", arpeggio(32)},
		{"brass", arpeggio(56)},
		{"drums", drums()},
	}
	ctx := context.Background()
	g, ctx := errgroup.WithContext(ctx)
	for _, p := range previews {
		p := p
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			// instances are not shared between goroutines
			inst, err := gm.New(sampleRate, 0)
			if err != nil {
				return err
			}
			f, err := os.Create(dir + "/" + p.name + ".wav")
			if err != nil {
				return err
			}
			defer f.Close()
			stats, err := sequence.RenderWAV(f, inst, p.seq, nil)
			if err != nil {
				return err
			}
			log.Printf("rendered %s: %d frames, %f samples per us\n", p.name, stats.Frames, stats.SamplesPerMicrosecond())
			return f.Close()
		})
	}
	err := g.Wait()
	if err != nil {
		log.Fatalf("error: %v\n", err)
	}
	log.Println("Successfully generated previews.")
}

func arpeggio(program uint8) sequence.Sequence {
	seq := sequence.Sequence{{At: 0, Message: synth.ProgramChange(0, program)}}
	var at time.Duration
	for _, key := range []uint8{48, 52, 55, 60} {
		seq = append(seq, sequence.Event{At: at, Message: synth.NoteOn(0, key, 110)})
		at += step
		seq = append(seq, sequence.Event{At: at, Message: synth.NoteOff(0, key)})
	}
	return seq
}

func drums() sequence.Sequence {
	var seq sequence.Sequence
	var at time.Duration
	for _, key := range []uint8{35, 38, 42, 42, 36, 40, 46, 49} {
		seq = append(seq, sequence.Event{At: at, Message: synth.NoteOn(synth.PercussionChannel, key, 127)})
		at += step / 2
	}
	return seq
}
