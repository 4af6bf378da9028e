// Command sync-report runs a clock synchronization against the coprocessor
// and plots the per-sample offset and delay estimates, which makes jitter
// and asymmetric network paths visible at a glance.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/Team537/RobotCode2026/internal/vision"
)

var (
	host    = flag.String("host", "10.5.37.11", "Coprocessor address")
	port    = flag.Int("port", 5802, "Coprocessor time-sync UDP port")
	samples = flag.Int("samples", 50, "Number of sync round trips")
	output  = flag.String("output", "sync-report.png", "Output plot file")
	timeout = flag.Duration("timeout", 2*time.Minute, "Overall run timeout")
)

func main() {
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	estimate, err := vision.SynchronizeTime(ctx, *host, *port, *samples)
	if err != nil {
		log.Printf("synchronization incomplete: %v", err)
	}
	if estimate == nil || len(estimate.Samples) == 0 {
		log.Fatal("no samples collected; nothing to plot")
	}

	printSummary(estimate)

	if err := plotEstimate(estimate, *output); err != nil {
		log.Fatalf("failed to write plot: %v", err)
	}
	log.Printf("plot written to %s", *output)
}

func printSummary(e *vision.ClockEstimate) {
	fmt.Printf("Samples:    %d\n", len(e.Samples))
	fmt.Printf("Avg offset: %.0f ns (%.3f ms)\n", e.AvgOffsetNanos, e.AvgOffsetNanos/1e6)
	fmt.Printf("Avg delay:  %.0f ns (%.3f ms)\n", e.AvgDelayNanos, e.AvgDelayNanos/1e6)
}

// plotEstimate renders offset and delay per sample as two line series on a
// shared sample-index axis, in milliseconds.
func plotEstimate(e *vision.ClockEstimate, path string) error {
	p := plot.New()
	p.Title.Text = "Clock synchronization"
	p.X.Label.Text = "Sample"
	p.Y.Label.Text = "Milliseconds"

	offsetPts := make(plotter.XYs, 0, len(e.Samples))
	delayPts := make(plotter.XYs, 0, len(e.Samples))
	for i, s := range e.Samples {
		offsetPts = append(offsetPts, plotter.XY{X: float64(i), Y: float64(s.OffsetNanos) / 1e6})
		delayPts = append(delayPts, plotter.XY{X: float64(i), Y: float64(s.DelayNanos) / 1e6})
	}

	offsetLine, err := plotter.NewLine(offsetPts)
	if err != nil {
		return fmt.Errorf("offset series: %w", err)
	}
	offsetLine.Width = vg.Points(1)

	delayLine, err := plotter.NewLine(delayPts)
	if err != nil {
		return fmt.Errorf("delay series: %w", err)
	}
	delayLine.Width = vg.Points(1)
	delayLine.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}

	p.Add(offsetLine, delayLine)
	p.Legend.Add("offset", offsetLine)
	p.Legend.Add("delay", delayLine)

	if err := p.Save(10*vg.Inch, 5*vg.Inch, path); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}
