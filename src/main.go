package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/chzyer/readline"
	"github.com/jinjor/fm-synth/src/audio"
	"github.com/jinjor/fm-synth/src/gm"
	"github.com/jinjor/fm-synth/src/sequence"
	"github.com/jinjor/fm-synth/src/synth"
	"golang.org/x/sync/errgroup"
)

var (
	sampleRate   = flag.Int("rate", 48000, "sample rate in Hz")
	seed         = flag.Int64("seed", 0, "seed of the noise operators")
	outPath      = flag.String("out", "", "output file of render (default: <input>.wav)")
	noPercussion = flag.Bool("no-percussion", false, "play channel 9 like any other channel")
)

const help = `commands:
- play <file.mid> [channel]
- render <file.mid|demo> [channel]
- open [port]
- help
- exit`

func main() {
	flag.Parse()
	log.SetFlags(log.Lshortfile)
	log.Printf("NumCPU: %v\n", runtime.NumCPU())

	inst, err := synth.New(synth.Config{
		SampleRate:   *sampleRate,
		SampleFormat: synth.SampleFormatS16,
		Percussion:   !*noPercussion,
		Seed:         *seed,
	})
	if err != nil {
		log.Fatalf("error: %v\n", err)
	}
	gm.Load(inst)
	a := &app{synth: audio.NewSynth(inst)}
	defer a.close()

	if flag.NArg() > 0 {
		if err := a.run(flag.Args()); err != nil {
			log.Fatalf("error: %v\n", err)
		}
		return
	}
	if err := a.repl(); err != nil {
		log.Fatalf("error: %v\n", err)
	}
	log.Println("main() ended.")
}

// ----- App ----- //

type app struct {
	synth  *audio.Synth
	output *audio.Output
}

type command struct {
	name  string
	run   func(ctx context.Context, a *app, args []string) error
	arity int // minimum number of arguments
}

var commands = []command{
	{"play", playCommand, 1},
	{"render", renderCommand, 1},
	{"open", openCommand, 0},
}

var errExit = errors.New("exit")

func (a *app) run(args []string) error {
	name := args[0]
	switch name {
	case "help":
		fmt.Println(help)
		return nil
	case "exit":
		return errExit
	}
	for _, cmd := range commands {
		if cmd.name != name {
			continue
		}
		if len(args)-1 < cmd.arity {
			return fmt.Errorf("%s needs at least %d argument(s)\n%s", name, cmd.arity, help)
		}
		return withSignals(func(ctx context.Context) error {
			if err := cmd.run(ctx, a, args[1:]); err != nil {
				return fmt.Errorf("%s error: %w", name, err)
			}
			return nil
		})
	}
	return fmt.Errorf("unknown command: %s\n%s", name, help)
}

func (a *app) repl() error {
	rl, err := readline.New("> ")
	if err != nil {
		return err
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			fmt.Println(err)
			continue
		}
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		err = a.run(args)
		if err == errExit {
			return nil
		}
		if err != nil {
			fmt.Println(err)
		}
	}
}

// openOutput starts the audio device on first use and keeps it for the process.
func (a *app) openOutput() (*audio.Output, error) {
	if a.output != nil {
		return a.output, nil
	}
	var rate int
	a.synth.Do(func(inst *synth.Instance) error {
		rate = inst.Config().SampleRate
		return nil
	})
	output, err := audio.NewOutput(a.synth, rate)
	if err != nil {
		return nil, err
	}
	a.output = output
	return output, nil
}

func (a *app) close() {
	if a.output == nil {
		return
	}
	if err := a.output.Close(); err != nil {
		log.Printf("error: %v\n", err)
	}
}

func (a *app) reset() {
	a.synth.Do(func(inst *synth.Instance) error {
		inst.Reset()
		return nil
	})
}

// withSignals runs f with a context canceled on interrupt.
func withSignals(f func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(context.Background())
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	defer func() {
		signal.Stop(signalCh)
		cancel()
	}()
	go func() {
		select {
		case sig := <-signalCh:
			log.Printf("Caught signal %s: stopping...\n", sig)
			cancel()
		case <-ctx.Done():
		}
	}()
	err := f(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// ----- Commands ----- //

func loadSequence(args []string) (sequence.Sequence, error) {
	var seq sequence.Sequence
	if args[0] == "demo" {
		seq = sequence.Demo()
	} else {
		var err error
		seq, err = sequence.Load(args[0])
		if err != nil {
			return nil, err
		}
	}
	if len(args) > 1 {
		channel, err := strconv.Atoi(args[1])
		if err != nil || channel < 0 || channel >= synth.ChannelCount {
			return nil, fmt.Errorf("invalid channel: %s", args[1])
		}
		seq = seq.Filter(sequence.ChannelMask(channel))
	}
	return seq, nil
}

func playCommand(ctx context.Context, a *app, args []string) error {
	seq, err := loadSequence(args)
	if err != nil {
		return err
	}
	output, err := a.openOutput()
	if err != nil {
		return err
	}
	a.reset()
	defer a.reset()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return output.Start(ctx)
	})
	g.Go(func() error {
		defer cancel()
		if err := sequence.Play(ctx, a.synth, seq, newProgressBar()); err != nil {
			return err
		}
		return waitForSilence(ctx, a.synth, sequence.MaxTail)
	})
	err = g.Wait()
	if dropped := a.synth.Dropped(); dropped > 0 {
		log.Printf("%d note(s) dropped\n", dropped)
	}
	return err
}

// waitForSilence lets the released voices ring out.
func waitForSilence(ctx context.Context, s *audio.Synth, limit time.Duration) error {
	t := time.NewTicker(50 * time.Millisecond)
	defer t.Stop()
	deadline := time.After(limit)
	for {
		active := 0
		s.Do(func(inst *synth.Instance) error {
			active = inst.ActiveVoices()
			return nil
		})
		if active == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return nil
		case <-t.C:
		}
	}
}

func renderCommand(ctx context.Context, a *app, args []string) error {
	seq, err := loadSequence(args)
	if err != nil {
		return err
	}
	path := *outPath
	if path == "" {
		path = args[0] + ".wav"
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var stats sequence.Stats
	err = a.synth.Do(func(inst *synth.Instance) error {
		var err error
		stats, err = sequence.RenderWAV(f, inst, seq, newProgressBar())
		return err
	})
	if err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("Wrote %s (%v)\n", path, time.Duration(stats.Frames)*time.Second/time.Duration(*sampleRate))
	if stats.Dropped > 0 {
		fmt.Printf("Dropped notes: %d\n", stats.Dropped)
	}
	fmt.Printf("Samples per us: %f\n", stats.SamplesPerMicrosecond())
	return nil
}

func openCommand(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		ins, err := audio.MidiIns()
		if err != nil {
			return err
		}
		if len(ins) == 0 {
			fmt.Println("No MIDI device detected")
			return nil
		}
		fmt.Println("Devices:")
		for i, name := range ins {
			fmt.Printf("- %d: name = %s\n", i, name)
		}
		return nil
	}
	port, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid port: %s", args[0])
	}
	output, err := a.openOutput()
	if err != nil {
		return err
	}
	a.reset()
	defer a.reset()

	fmt.Println("Listening. Press Ctrl+C to stop.")
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return output.Start(ctx)
	})
	g.Go(func() error {
		defer cancel()
		audio.Forward(a.synth, audio.ListenToMidiIn(ctx, port))
		return nil
	})
	return g.Wait()
}

func newProgressBar() sequence.Progress {
	return func(percent int) {
		if percent >= 100 {
			fmt.Print("\rDone!\n")
			return
		}
		fmt.Printf("\r%02d%%\t", percent)
	}
}
