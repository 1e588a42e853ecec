// command play is a polyphonic synth: MIDI from every input port in, audio out
// of the default device.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pfcm/polysynth"
	"github.com/pfcm/polysynth/analysis"
	"github.com/pfcm/polysynth/env"
	"github.com/pfcm/polysynth/hid"
	"github.com/pfcm/polysynth/io"
	"github.com/pfcm/polysynth/midi"
	"github.com/pfcm/polysynth/midi/rtmidi"
	"github.com/pfcm/polysynth/osc"
)

var (
	profileFlag = flag.Bool("profile", false, "whether to write pprof profiles to the current working directory")
	writeFlag   = flag.Bool("write", false, "if true, writes the output to a wav file in the current directory")
	listFlag    = flag.Bool("list", false, "list the MIDI input ports and exit")
	verboseFlag = flag.Bool("verbose", false, "print every note as it arrives")

	rateFlag     = flag.Uint("rate", 0, "sample rate in Hz, 0 for whatever the device prefers")
	historyFlag  = flag.Int("history", 4096, "number of recent samples kept for the status line")
	channelsFlag = flag.Int("channels", 2, "number of output channels")
	formatFlag   = flag.String("format", "f32", "output sample format, f32 or s16")
	backendFlag  = flag.String("backend", "", "audio backend to try first (alsa, pulseaudio, jack, coreaudio, wasapi, null)")
	statusFlag   = flag.Duration("status", 100*time.Millisecond, "how often to print the status line, 0 to turn it off")
	rollFlag     = flag.Int("roll", 256, "how many finished notes to draw on exit, 0 to not draw them")
	partialsFlag = flag.String("partials", "1", "comma separated weights of the harmonics, fundamental first")

	attackFlag  = flag.Duration("attack", env.Default().Attack, "envelope attack time")
	decayFlag   = flag.Duration("decay", env.Default().Decay, "envelope decay time")
	sustainFlag = flag.Float64("sustain", env.Default().Sustain, "envelope sustain level, 0 to 1")
	releaseFlag = flag.Duration("release", env.Default().Release, "envelope release time")
)

func main() {
	flag.Parse()

	if *listFlag {
		for _, p := range rtmidi.Ports() {
			fmt.Println(p)
		}
		return
	}

	if *profileFlag {
		finish, err := startProfiles()
		if err != nil {
			log.Fatalf("Starting profiling: %v", err)
		}
		defer func() {
			if err := finish(); err != nil {
				log.Fatalf("Finishing profiles: %v", err)
			}
		}()
	}

	cfg := polysynth.DefaultConfig()
	if *rateFlag != 0 {
		cfg.SampleRate = float64(*rateFlag)
	}
	cfg.HistorySize = *historyFlag
	cfg.Envelope = env.ADSR{
		Attack:  *attackFlag,
		Decay:   *decayFlag,
		Sustain: *sustainFlag,
		Release: *releaseFlag,
	}
	e, err := polysynth.New(cfg)
	if err != nil {
		log.Fatal(err)
	}
	synth := polysynth.NewShared(e)
	partials, err := osc.ParsePartials(*partialsFlag)
	if err != nil {
		log.Fatal(err)
	}
	for i, w := range partials {
		if err := synth.SetPartial(i, w); err != nil {
			log.Fatal(err)
		}
	}

	opts, err := outputOptions()
	if err != nil {
		log.Fatal(err)
	}
	if *writeFlag {
		opts.Record = fmt.Sprintf("out-%d.wav", time.Now().Unix())
		fmt.Fprintf(os.Stderr, "Writing output to %q\n", opts.Record)
	}

	roll := hid.NewRoll(*rollFlag)
	keyboard := hid.NewKeyboard(synth, roll)
	keyboard.Verbose = *verboseFlag
	dispatcher := midi.NewDispatcher()
	notes := dispatcher.Subscribe(midi.NotesOnly())

	g, ctx := errgroup.WithContext(interruptContext())
	g.Go(func() error {
		return dispatcher.Run(ctx, rtmidi.ReceiveAll)
	})
	g.Go(func() error {
		return keyboard.Play(ctx, notes)
	})
	g.Go(func() error {
		return io.PlayWithDefaults(ctx, synth, opts)
	})
	if *statusFlag > 0 {
		g.Go(func() error {
			return status(ctx, synth, *statusFlag)
		})
	}

	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}
	fmt.Println()
	if *rollFlag > 0 {
		drawRoll(os.Stdout, roll)
	}
}

func outputOptions() (io.Options, error) {
	opts := io.Options{
		SampleRate: uint32(*rateFlag),
		Channels:   *channelsFlag,
	}
	f, err := io.ParseFormat(*formatFlag)
	if err != nil {
		return opts, err
	}
	opts.Format = f
	if *backendFlag != "" {
		b, err := io.ParseBackend(*backendFlag)
		if err != nil {
			return opts, err
		}
		opts.Backends = append(opts.Backends, b)
	}
	return opts, nil
}

// status prints a line about what the synth is doing every interval until ctx
// is done.
func status(ctx context.Context, synth *polysynth.Shared, interval time.Duration) error {
	a, err := analysis.New(2048)
	if err != nil {
		return err
	}
	snap := polysynth.Snapshot{
		Voices: make([]polysynth.VoiceState, 0, polysynth.MaxKey+1),
		Window: make([]float32, a.Size()),
	}
	var held []string

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
		synth.Snapshot(&snap)
		held = held[:0]
		for _, v := range snap.Voices {
			if !v.Released {
				held = append(held, v.Key.String())
			}
		}
		peak := "-"
		if f, mag := a.Peak(snap.Window, snap.SampleRate); mag > 1e-3 {
			peak = fmt.Sprintf("%.1fHz", f)
		}
		fmt.Printf("\r%8.3fs voices:%3d rms:%.3f peak:%-9s dropped:%d held:[%s]\033[K",
			snap.Time, len(snap.Voices), analysis.RMS(snap.Window), peak, snap.Dropped,
			strings.Join(held, " "))
	}
}

func interruptContext() context.Context {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return ctx
}

func startProfiles() (func() error, error) {
	cpu, err := os.Create("cpu.pprof")
	if err != nil {
		return nil, err
	}
	if err := pprof.StartCPUProfile(cpu); err != nil {
		return nil, fmt.Errorf("starting cpu profile: %w", err)
	}

	mem, err := os.Create("mem.pprof")
	if err != nil {
		return nil, err
	}
	return func() error {
		pprof.StopCPUProfile()
		if err := cpu.Close(); err != nil {
			return err
		}
		runtime.GC()
		if err := pprof.WriteHeapProfile(mem); err != nil {
			return err
		}
		return mem.Close()
	}, nil
}
