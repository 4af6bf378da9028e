// Command visionlink runs the robot-side half of the coprocessor link: it
// synchronizes clocks with the vision coprocessor, receives detection
// telemetry over UDP, and holds the TCP command channel open. An optional
// HTTP status server and sqlite frame recorder can be enabled via config.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Team537/RobotCode2026/internal/api"
	"github.com/Team537/RobotCode2026/internal/config"
	"github.com/Team537/RobotCode2026/internal/framelog"
	"github.com/Team537/RobotCode2026/internal/version"
	"github.com/Team537/RobotCode2026/internal/vision"
	"github.com/Team537/RobotCode2026/internal/wire"
)

var (
	configPath  = flag.String("config", "", "Path to link config JSON (defaults apply if empty)")
	host        = flag.String("host", "", "Coprocessor address (overrides config)")
	recordPath  = flag.String("record", "", "Record telemetry frames to this sqlite file (overrides config)")
	listen      = flag.String("listen", "", "HTTP status server address (overrides config)")
	skipSync    = flag.Bool("no-sync", false, "Skip the startup clock synchronization")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		log.Printf("visionlink %s (%s, built %s)", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	cfg := &config.LinkConfig{}
	if *configPath != "" {
		var err error
		cfg, err = config.LoadLinkConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	coprocessor := cfg.GetCoprocessorHost()
	if *host != "" {
		coprocessor = *host
	}
	record := cfg.GetRecordPath()
	if *recordPath != "" {
		record = *recordPath
	}
	statusListen := cfg.GetStatusListen()
	if *listen != "" {
		statusListen = *listen
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Clock synchronization runs before telemetry so frame timestamps can be
	// mapped onto the robot clock from the first frame.
	var estimate *vision.ClockEstimate
	if !*skipSync {
		var err error
		estimate, err = vision.SynchronizeTime(ctx, coprocessor, cfg.GetTimeSyncPort(), cfg.GetTimeSyncSamples())
		if err != nil {
			log.Printf("clock synchronization incomplete: %v", err)
		}
		if estimate != nil && len(estimate.Samples) > 0 {
			log.Printf("clock sync: offset=%.0fns delay=%.0fns over %d samples",
				estimate.AvgOffsetNanos, estimate.AvgDelayNanos, len(estimate.Samples))
		}
	}

	var frames *framelog.Log
	if record != "" {
		var err error
		frames, err = framelog.Open(record)
		if err != nil {
			log.Fatalf("failed to open frame log: %v", err)
		}
		defer frames.Close()
	}

	stats := vision.NewPacketStats()
	receiver := vision.NewReceiver(vision.ReceiverConfig{
		Port:   cfg.GetTelemetryPort(),
		Stats:  stats,
		Pacing: cfg.GetReceivePacing(),
		OnLoss: func(from, to int64) {
			log.Printf("telemetry frames lost: %d through %d", from, to)
			if frames != nil {
				if err := frames.RecordLoss(from, to); err != nil {
					log.Printf("failed to record loss event: %v", err)
				}
			}
		},
	})
	if err := receiver.Start(ctx); err != nil {
		log.Fatalf("failed to start telemetry receiver: %v", err)
	}
	defer receiver.Close()
	log.Printf("telemetry receiver listening on %v", receiver.LocalAddr())

	// Record received frames to sqlite.
	if frames != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, c := receiver.Subscribe()
			defer receiver.Unsubscribe(id)
			for {
				select {
				case obj := <-c:
					recordFrame(frames, obj)
				case <-ctx.Done():
					log.Print("recorder routine terminated")
					return
				}
			}
		}()
	}

	sender := vision.NewSender()
	if err := sender.Connect(coprocessor, cfg.GetCommandPort()); err != nil {
		log.Printf("command channel unavailable: %v", err)
	} else {
		log.Printf("command channel connected to %s:%d", coprocessor, cfg.GetCommandPort())
	}
	defer sender.Close()

	// HTTP status server goroutine
	if statusListen != "" {
		server := &http.Server{
			Addr:    statusListen,
			Handler: api.NewServer(receiver, stats, sender, estimate).ServeMux(),
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Printf("status server listening on %s", statusListen)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("status server error: %v", err)
			}
		}()

		wg.Add(1)
		go func() {
			defer wg.Done()
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Printf("status server shutdown error: %v", err)
			}
		}()
	}

	<-ctx.Done()
	log.Print("shutting down")
	wg.Wait()
}

// recordFrame persists one telemetry frame, re-encoding the decoded object.
func recordFrame(frames *framelog.Log, obj wire.Object) {
	seq, err := obj.Int("packet_number")
	if err != nil {
		seq = vision.NoSequence
	}
	payload, err := wire.Encode(obj)
	if err != nil {
		log.Printf("failed to encode frame for recording: %v", err)
		return
	}
	if err := frames.RecordFrame(seq, payload); err != nil {
		log.Printf("failed to record frame: %v", err)
	}
}
