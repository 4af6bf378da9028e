// Command coprocessor-sim stands in for the vision coprocessor during bench
// testing: it streams numbered telemetry frames over UDP, answers TIME_SYNC
// requests on the sync port, and accepts newline-delimited JSON commands on
// the TCP command port, printing each one.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"net"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/Team537/RobotCode2026/internal/wire"
)

var (
	target    = flag.String("target", "127.0.0.1:5800", "Robot telemetry address to stream frames to")
	syncPort  = flag.Int("sync-port", 5802, "UDP port to answer TIME_SYNC requests on")
	cmdPort   = flag.Int("cmd-port", 5801, "TCP port to accept command connections on")
	frameRate = flag.Float64("fps", 40, "Telemetry frame rate in Hz")
	dropRate  = flag.Float64("drop", 0, "Fraction of frames to silently drop (0..1)")
)

func main() {
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := streamTelemetry(ctx); err != nil {
			log.Printf("telemetry stream error: %v", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := answerTimeSync(ctx); err != nil {
			log.Printf("time sync responder error: %v", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := acceptCommands(ctx); err != nil {
			log.Printf("command listener error: %v", err)
		}
	}()

	<-ctx.Done()
	wg.Wait()
}

// streamTelemetry emits numbered detection frames at the configured rate.
func streamTelemetry(ctx context.Context) error {
	conn, err := net.Dial("udp", *target)
	if err != nil {
		return fmt.Errorf("dial telemetry target: %w", err)
	}
	defer conn.Close()
	log.Printf("streaming telemetry to %s at %.0f fps", *target, *frameRate)

	ticker := time.NewTicker(time.Duration(float64(time.Second) / *frameRate))
	defer ticker.Stop()

	var seq int64
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			seq++
			if *dropRate > 0 && rand.Float64() < *dropRate {
				continue
			}
			data, err := wire.Encode(syntheticFrame(seq))
			if err != nil {
				return fmt.Errorf("encode frame: %w", err)
			}
			if _, err := conn.Write(data); err != nil {
				log.Printf("telemetry write failed: %v", err)
			}
		}
	}
}

// syntheticFrame fabricates a plausible detection payload: a target that
// drifts across the camera frame.
func syntheticFrame(seq int64) wire.Object {
	phase := float64(seq) / 100
	return wire.Object{
		"packet_number":    seq,
		"timestamp_nanos":  time.Now().UnixNano(),
		"target_visible":   true,
		"target_yaw_deg":   10 * math.Sin(phase),
		"target_pitch_deg": 3 * math.Cos(phase),
		"target_dist_m":    2.5 + 0.5*math.Sin(phase/3),
	}
}

// answerTimeSync replies to each TIME_SYNC datagram with receive and send
// timestamps from this process's clock.
func answerTimeSync(ctx context.Context) error {
	addr := &net.UDPAddr{Port: *syncPort}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("bind sync port: %w", err)
	}
	defer conn.Close()
	log.Printf("answering time sync on %v", conn.LocalAddr())

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	buf := make([]byte, 256)
	for {
		n, remote, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read sync request: %w", err)
		}
		t2 := time.Now().UnixNano()

		if string(buf[:n]) != "TIME_SYNC" {
			log.Printf("ignoring unexpected sync payload from %v: %q", remote, buf[:n])
			continue
		}

		reply, err := wire.Encode(wire.Object{
			"t2": t2,
			"t3": time.Now().UnixNano(),
		})
		if err != nil {
			return fmt.Errorf("encode sync reply: %w", err)
		}
		if _, err := conn.WriteToUDP(reply, remote); err != nil {
			log.Printf("sync reply to %v failed: %v", remote, err)
		}
	}
}

// acceptCommands prints each newline-delimited JSON command it receives.
func acceptCommands(ctx context.Context) error {
	ln, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(*cmdPort)))
	if err != nil {
		return fmt.Errorf("bind command port: %w", err)
	}
	defer ln.Close()
	log.Printf("accepting commands on %v", ln.Addr())

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept command connection: %w", err)
		}
		log.Printf("command connection from %v", conn.RemoteAddr())

		go func() {
			defer conn.Close()
			scanner := bufio.NewScanner(conn)
			for scanner.Scan() {
				obj, err := wire.Decode(scanner.Bytes())
				if err != nil {
					log.Printf("bad command from %v: %v", conn.RemoteAddr(), err)
					continue
				}
				log.Printf("command: %v", obj)
			}
			log.Printf("command connection from %v closed", conn.RemoteAddr())
		}()
	}
}
