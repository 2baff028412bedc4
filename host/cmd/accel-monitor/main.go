package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"accelmon/host/monitor"
	"accelmon/host/serial"
)

var (
	device  = flag.String("device", "/dev/ttyUSB0", "Serial device path")
	baud    = flag.Int("baud", serial.DefaultBaud, "Baud rate")
	quiet   = flag.Bool("quiet", false, "Hide diagnostic lines")
	verbose = flag.Bool("verbose", false, "Print line counters on exit")
)

func main() {
	flag.Parse()

	cfg := serial.DefaultConfig(*device)
	cfg.Baud = *baud

	fmt.Fprintf(os.Stderr, "Connecting to %s at %d baud...\n", cfg.Device, cfg.Baud)
	mon, err := monitor.Connect(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer mon.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err = mon.Run(ctx, func(l monitor.Line) {
		if *quiet && !l.IsSample {
			return
		}
		fmt.Println(l.String())
	})
	if err != nil && err != context.Canceled {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		st := mon.Stats()
		fmt.Fprintf(os.Stderr, "samples=%d diagnostics=%d overflows=%d\n",
			st.Samples, st.Diagnostics, st.Overflows)
	}
}
