package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"go-midiroll/midi"
	"go-midiroll/render"
	"go-midiroll/roll"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	var err error
	switch os.Args[1] {
	case "list":
		err = listPorts()
	case "file":
		if len(os.Args) < 3 {
			usage()
			os.Exit(2)
		}
		err = describeFile(os.Args[2])
	case "monitor":
		port := ""
		if len(os.Args) > 2 {
			port = os.Args[2]
		}
		err = monitor(port)
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("MIDI diagnostics")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list           - List MIDI input ports")
	fmt.Println("  file <path>    - Describe a MIDI file and the notes it plays")
	fmt.Println("  monitor [port] - Print messages from an input port")
}

func listPorts() error {
	fmt.Println("=== MIDI Input Ports ===")
	fmt.Println("(waiting up to 3 seconds...)")

	names, err := midi.InPortNames()
	if err != nil {
		fmt.Println("\nTIMEOUT! CoreMIDI is hung.")
		fmt.Println("Fix: sudo killall coreaudiod midiserver")
		return err
	}
	if len(names) == 0 {
		fmt.Println("  (none)")
	}
	for i, n := range names {
		fmt.Printf("  %d: %s\n", i, n)
	}
	return nil
}

// describeFile prints the file header and builds its whole roll offline by
// feeding scheduled messages straight into a builder.
func describeFile(path string) error {
	src, err := midi.OpenPlayback(path)
	if err != nil {
		return err
	}

	fmt.Printf("File:       %s\n", path)
	fmt.Printf("Format:     %d\n", src.Format())
	fmt.Printf("Resolution: %d ticks/quarter\n", src.Resolution())
	fmt.Printf("Events:     %d playable\n", src.Events())
	fmt.Printf("Length:     %v\n", src.Length().Round(time.Millisecond))

	tl := roll.NewTimeline()
	b := roll.NewBuilder(tl, nil)
	src.Each(func(ev midi.RawEvent) {
		b.Apply(ev)
	})
	applied, dropped := b.Stats()
	fmt.Printf("Notes:      %d (%d still open at end)\n", tl.Len(), tl.OpenCount())
	fmt.Printf("Messages:   %d note, %d other\n", applied, dropped)

	const columns = 64
	fmt.Println("")
	fmt.Println(render.FormatLine(tl.Sample(0, src.Length(), columns)))
	return nil
}

func monitor(port string) error {
	src, err := midi.OpenLive(midi.LiveOptions{Port: port})
	if err != nil {
		return err
	}
	fmt.Printf("Monitoring %s. Ctrl+C to exit.\n", src.Name())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	dist := midi.NewDistributor()
	sub := dist.Subscribe()
	if err := src.Start(ctx, dist); err != nil {
		return err
	}
	defer src.Close()

	for {
		ev, err := sub.Recv(ctx)
		if err != nil {
			// closed (port gone) or interrupted
			return nil
		}
		fmt.Println(render.FormatEvent(ev))
	}
}
