package main

import (
	"flag"
	"log"
	"math/rand"
	"net"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// pcapgen writes a synthetic capture for shield-replay: a mix of
// ordinary client traffic and a few sources flooding the protected
// address with large packets.
func main() {
	outputFile := flag.String("o", "sample.pcap", "Output pcap file path")
	packetCount := flag.Int("c", 10000, "Number of packets to generate")
	attackRatio := flag.Float64("attack", 0.2, "Fraction of packets belonging to flood sources")
	flag.Parse()

	f, err := os.Create(*outputFile)
	if err != nil {
		log.Fatalf("Failed to create output file: %v", err)
	}
	defer f.Close()

	pcapWriter := pcapgo.NewWriter(f)
	if err := pcapWriter.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
		log.Fatalf("Failed to write pcap header: %v", err)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	dstIP := net.IPv4(203, 0, 113, 5)
	start := time.Now()

	log.Printf("Generating %d packets into %s...", *packetCount, *outputFile)

	for i := 0; i < *packetCount; i++ {
		attack := rng.Float64() < *attackRatio

		var srcIP net.IP
		var dstPort layers.TCPPort
		var payloadSize int
		if attack {
			// Flood sources concentrate on a few addresses and one port.
			srcIP = net.IPv4(198, 51, 100, byte(rng.Intn(4)+1))
			dstPort = 443
			payloadSize = rng.Intn(400) + 1000
		} else {
			srcIP = net.IPv4(198, 51, 100, byte(rng.Intn(250)+5))
			dstPort = layers.TCPPort([]int{80, 443, 8080, 3306}[rng.Intn(4)])
			payloadSize = rng.Intn(1400) + 50
		}

		ethLayer := &layers.Ethernet{
			SrcMAC:       net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
			DstMAC:       net.HardwareAddr{0x00, 0x66, 0x77, 0x88, 0x99, 0xAA},
			EthernetType: layers.EthernetTypeIPv4,
		}
		ipLayer := &layers.IPv4{
			SrcIP:    srcIP,
			DstIP:    dstIP,
			Version:  4,
			TTL:      64,
			Protocol: layers.IPProtocolTCP,
		}
		tcpLayer := &layers.TCP{
			SrcPort: layers.TCPPort(rng.Intn(65535-1024) + 1024),
			DstPort: dstPort,
			Seq:     rng.Uint32(),
			SYN:     attack,
			Window:  14600,
		}
		tcpLayer.SetNetworkLayerForChecksum(ipLayer)

		payload := make([]byte, payloadSize)
		rng.Read(payload)

		buf := gopacket.NewSerializeBuffer()
		opts := gopacket.SerializeOptions{
			ComputeChecksums: true,
			FixLengths:       true,
		}
		if err := gopacket.SerializeLayers(buf, opts, ethLayer, ipLayer, tcpLayer, gopacket.Payload(payload)); err != nil {
			log.Fatalf("Failed to serialize layers: %v", err)
		}

		// Attack packets arrive in tight bursts, benign ones spread out.
		offset := time.Duration(i) * time.Millisecond
		if attack {
			offset = time.Duration(i) * 50 * time.Microsecond
		}
		ci := gopacket.CaptureInfo{
			Timestamp:     start.Add(offset),
			CaptureLength: len(buf.Bytes()),
			Length:        len(buf.Bytes()),
		}
		if err := pcapWriter.WritePacket(ci, buf.Bytes()); err != nil {
			log.Fatalf("Failed to write packet: %v", err)
		}
	}

	log.Printf("Successfully generated %d packets into %s.", *packetCount, *outputFile)
}
