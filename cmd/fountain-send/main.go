package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/observe-l/fountain/fountainudp"
	"github.com/observe-l/fountain/internal/dropper"
)

func main() {
	var (
		addr     = flag.String("addr", "127.0.0.1:4747", "receiver address")
		file     = flag.String("file", "", "file to send")
		block    = flag.Int("block", fountainudp.DefaultBlockBytes, "bytes per coded block")
		overhead = flag.Float64("overhead", 0.15, "repair symbols beyond K, as a fraction")
		gen      = flag.Int("gen", 1, "generation number")
		pace     = flag.Duration("pace", 0, "delay between datagrams")
		drop     = flag.Float64("drop", 0, "simulated symbol loss probability")
		seed     = flag.Int64("seed", 1, "loss simulation seed")
	)
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "usage: fountain-send -file <path> [-addr host:port]")
		os.Exit(2)
	}

	opts := fountainudp.SendOptions{
		BlockBytes: *block,
		Generation: uint16(*gen),
		Overhead:   *overhead,
		PaceEach:   *pace,
	}
	if *drop > 0 {
		opts.Drop = dropper.NewBernoulli(*drop, rand.New(rand.NewSource(*seed)))
	}

	start := time.Now()
	if err := fountainudp.SendFile(*addr, *file, opts); err != nil {
		fmt.Fprintf(os.Stderr, "send failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("sent %s to %s in %v\n", *file, *addr, time.Since(start).Round(time.Millisecond))
}
