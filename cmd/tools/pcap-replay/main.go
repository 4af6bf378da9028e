// Command pcap-replay replays captured telemetry traffic against a running
// receiver. It reads a pcap file, extracts UDP payloads on the capture port,
// and resends them to the target address, optionally preserving the original
// inter-packet timing.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

var (
	pcapFile = flag.String("pcap", "", "Path to pcap file (required)")
	port     = flag.Int("port", 5800, "UDP port the telemetry was captured on")
	target   = flag.String("target", "127.0.0.1:5800", "Address to replay payloads to")
	realtime = flag.Bool("realtime", true, "Preserve original inter-packet timing")
	speed    = flag.Float64("speed", 1.0, "Replay speed multiplier when -realtime is set")
)

func main() {
	flag.Parse()

	if *pcapFile == "" {
		fmt.Fprintln(os.Stderr, "Error: pcap file is required")
		flag.Usage()
		os.Exit(1)
	}

	sent, skipped, err := replay()
	if err != nil {
		log.Fatalf("replay failed: %v", err)
	}
	log.Printf("replayed %d payloads to %s (%d packets skipped)", sent, *target, skipped)
}

func replay() (sent, skipped int, err error) {
	f, err := os.Open(*pcapFile)
	if err != nil {
		return 0, 0, fmt.Errorf("open pcap: %w", err)
	}
	defer f.Close()

	reader, err := pcapgo.NewReader(f)
	if err != nil {
		return 0, 0, fmt.Errorf("read pcap header: %w", err)
	}

	conn, err := net.Dial("udp", *target)
	if err != nil {
		return 0, 0, fmt.Errorf("dial target: %w", err)
	}
	defer conn.Close()

	var lastCapture time.Time
	for {
		data, ci, err := reader.ReadPacketData()
		if err == io.EOF {
			return sent, skipped, nil
		}
		if err != nil {
			return sent, skipped, fmt.Errorf("read packet: %w", err)
		}

		packet := gopacket.NewPacket(data, reader.LinkType(), gopacket.Default)
		udpLayer := packet.Layer(layers.LayerTypeUDP)
		if udpLayer == nil {
			skipped++
			continue
		}
		udp := udpLayer.(*layers.UDP)
		if int(udp.DstPort) != *port || len(udp.Payload) == 0 {
			skipped++
			continue
		}

		if *realtime && !lastCapture.IsZero() {
			gap := ci.Timestamp.Sub(lastCapture)
			if *speed > 0 {
				gap = time.Duration(float64(gap) / *speed)
			}
			if gap > 0 {
				time.Sleep(gap)
			}
		}
		lastCapture = ci.Timestamp

		if _, err := conn.Write(udp.Payload); err != nil {
			return sent, skipped, fmt.Errorf("write payload: %w", err)
		}
		sent++
	}
}
