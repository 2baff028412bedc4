package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"accelmon/core"
	"accelmon/host/monitor"
	"accelmon/host/sim"
)

var (
	steps     = flag.Int("steps", 20000, "Steps to simulate (0 = until interrupted)")
	tickEvery = flag.Int("tick", sim.DefaultTickEvery, "Steps between supervisor ticks")
	axisA     = flag.Int("a", 23, "Axis A reading")
	axisB     = flag.Int("b", -5, "Axis B reading")
	hangAt    = flag.Int("hang-at", 0, "Hang the device after this many steps (0 = never)")
	hangFor   = flag.Int("hang-for", 2000, "Steps the device stays hung")
	absent    = flag.Bool("absent", false, "Simulate a missing device")
	trace     = flag.Bool("trace", false, "Emit per-event diagnostic lines")
	raw       = flag.Bool("raw", false, "Write the raw serial stream instead of decoded lines")
	dump      = flag.Bool("dump", false, "Dump the event trace ring on exit")
)

func main() {
	flag.Parse()

	dev := sim.NewDevice(core.DefaultAddress)
	dev.SetAxes(int8(*axisA), int8(*axisB))
	dev.SetAbsent(*absent)

	pr, pw := io.Pipe()
	var out io.Writer = pw
	if *raw {
		out = os.Stdout
	}

	s := sim.New(dev, out, core.Config{Trace: *trace}, sim.Options{TickEvery: *tickEvery})
	fw := s.Firmware()
	fw.SetDebugWriter(func(msg string) { fmt.Fprintln(os.Stderr, msg) })

	if id, err := s.Boot(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: probe failed (%v), starting anyway\n", err)
		fw.Start()
	} else {
		fmt.Fprintf(os.Stderr, "Device identity %#02x\n", id)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	done := make(chan error, 1)
	go func() {
		done <- runSim(ctx, s, dev)
		pw.Close()
	}()

	if !*raw {
		mon := monitor.New(pr)
		mon.Run(ctx, func(l monitor.Line) { fmt.Println(l.String()) })
		// Unblock the simulator if the monitor stopped first
		pr.Close()
	}

	if err := <-done; err != nil && err != context.Canceled && err != io.ErrClosedPipe {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	st := fw.Stats()
	fmt.Fprintf(os.Stderr, "steps=%d cycles=%d configs=%d stalls=%d reconfigs=%d bus_errors=%d dropped=%d\n",
		s.Steps(), st.Cycles, st.Configurations, st.Stalls, st.Reconfigurations, st.BusErrors, st.DroppedBytes)
	if *dump {
		fw.DumpTrace()
	}
}

// runSim steps the simulator, injecting the requested hang window
func runSim(ctx context.Context, s *sim.Sim, dev *sim.Device) error {
	if *hangAt <= 0 {
		return s.Run(ctx, *steps)
	}

	if err := s.Run(ctx, *hangAt); err != nil {
		return err
	}
	dev.SetHang(true)
	fmt.Fprintf(os.Stderr, "Device hung at step %d\n", s.Steps())
	if err := s.Run(ctx, *hangFor); err != nil {
		return err
	}
	dev.SetHang(false)
	fmt.Fprintf(os.Stderr, "Device released at step %d\n", s.Steps())

	remaining := *steps - *hangAt - *hangFor
	if *steps > 0 && remaining <= 0 {
		return nil
	}
	return s.Run(ctx, remaining)
}
