// command midi checks that midi is working.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"golang.org/x/sync/errgroup"

	"github.com/pfcm/polysynth/midi"
	"github.com/pfcm/polysynth/midi/rtmidi"
)

var (
	notesFlag   = flag.Bool("notes", false, "only print note on and note off")
	channelFlag = flag.Int("channel", -1, "only print messages on this channel (0-15), -1 for all")
)

func main() {
	flag.Parse()

	var opts []midi.SubscriptionFilter
	if *notesFlag {
		opts = append(opts, midi.NotesOnly())
	}
	if *channelFlag >= 0 {
		if *channelFlag > 15 {
			log.Fatalf("channel %d out of range", *channelFlag)
		}
		opts = append(opts, midi.WithChannelMask(midi.Channel(byte(*channelFlag))))
	}

	d := midi.NewDispatcher()
	c := d.Subscribe(opts...)

	g, ctx := errgroup.WithContext(interruptContext())
	g.Go(func() error {
		return d.Run(ctx, rtmidi.ReceiveAll)
	})
	g.Go(func() error {
		for ev := range c {
			fmt.Printf("%v\t%v\n", ev.Time, ev.Message)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}

	log.Println("all done")
}

func interruptContext() context.Context {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return ctx
}
