// command render plays a score on the synth without a sound card and writes
// the result to a wav file.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/pfcm/polysynth"
	"github.com/pfcm/polysynth/analysis"
	"github.com/pfcm/polysynth/env"
	"github.com/pfcm/polysynth/io"
)

var (
	outFlag      = flag.String("out", "render.wav", "wav file to write")
	scoreFlag    = flag.String("score", "60:0:1 64:0.25:0.75 67:0.5:0.5", "notes as key:start:length[:velocity], seconds")
	rateFlag     = flag.Float64("rate", 48000, "sample rate in Hz")
	tailFlag     = flag.Float64("tail", 1, "seconds to keep rendering after the last note ends")
	partialsFlag = flag.String("partials", "1", "comma separated weights of the harmonics, fundamental first")

	attackFlag  = flag.Duration("attack", env.Default().Attack, "envelope attack time")
	decayFlag   = flag.Duration("decay", env.Default().Decay, "envelope decay time")
	sustainFlag = flag.Float64("sustain", env.Default().Sustain, "envelope sustain level, 0 to 1")
	releaseFlag = flag.Duration("release", env.Default().Release, "envelope release time")
)

func main() {
	flag.Parse()

	notes, err := parseScore(*scoreFlag)
	if err != nil {
		log.Fatal(err)
	}
	cfg := polysynth.DefaultConfig()
	cfg.SampleRate = *rateFlag
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
	if err := setPartials(e, *partialsFlag); err != nil {
		log.Fatal(err)
	}

	samples, err := render(e, events(notes), *tailFlag)
	if err != nil {
		log.Fatal(err)
	}
	if err := io.WriteWAV(*outFlag, samples, int(cfg.SampleRate), 1); err != nil {
		log.Fatalf("Writing %q: %v", *outFlag, err)
	}

	peak := float32(0)
	for _, s := range samples {
		peak = max(peak, s, -s)
	}
	fmt.Fprintf(os.Stderr, "Wrote %d notes, %.2fs to %q: peak %.3f, rms %.3f\n",
		len(notes), float64(len(samples))/cfg.SampleRate, *outFlag, peak, analysis.RMS(samples))
}
