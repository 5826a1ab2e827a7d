package pcap

import (
	"ShieldAI/internal/model"
	"fmt"
	"sort"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
)

// flowKey identifies one unidirectional flow inside a capture.
type flowKey struct {
	srcIP    string
	dstIP    string
	dstPort  uint16
	protocol model.Protocol
}

// flowState accumulates per-flow counters while packets stream in.
type flowState struct {
	packets uint64
	bytes   uint64
	first   time.Time
	last    time.Time
}

// Summarizer folds decoded packets into per-flow records. It is not
// safe for concurrent use; feed it from a single reader goroutine.
type Summarizer struct {
	domain string
	flows  map[flowKey]*flowState
}

// NewSummarizer creates a summarizer attributing all flows to domain.
func NewSummarizer(domain string) *Summarizer {
	return &Summarizer{
		domain: domain,
		flows:  make(map[flowKey]*flowState),
	}
}

// Add decodes one packet and folds it into its flow. Non-IPv4 packets
// and transports other than TCP, UDP and ICMP are skipped with an error
// so callers can count them.
func (s *Summarizer) Add(packet gopacket.Packet) error {
	ipLayer := packet.Layer(layers.LayerTypeIPv4)
	if ipLayer == nil {
		return fmt.Errorf("not an IPv4 packet")
	}
	ip := ipLayer.(*layers.IPv4)

	key := flowKey{
		srcIP: ip.SrcIP.String(),
		dstIP: ip.DstIP.String(),
	}
	switch {
	case packet.Layer(layers.LayerTypeTCP) != nil:
		tcp := packet.Layer(layers.LayerTypeTCP).(*layers.TCP)
		key.dstPort = uint16(tcp.DstPort)
		key.protocol = model.ProtocolTCP
	case packet.Layer(layers.LayerTypeUDP) != nil:
		udp := packet.Layer(layers.LayerTypeUDP).(*layers.UDP)
		key.dstPort = uint16(udp.DstPort)
		key.protocol = model.ProtocolUDP
	case packet.Layer(layers.LayerTypeICMPv4) != nil:
		key.protocol = model.ProtocolICMP
	default:
		return fmt.Errorf("unsupported transport protocol %d", ip.Protocol)
	}

	ts := time.Now()
	if meta := packet.Metadata(); meta != nil && !meta.Timestamp.IsZero() {
		ts = meta.Timestamp
	}
	length := uint64(len(packet.Data()))

	st, ok := s.flows[key]
	if !ok {
		s.flows[key] = &flowState{packets: 1, bytes: length, first: ts, last: ts}
		return nil
	}
	st.packets++
	st.bytes += length
	if ts.Before(st.first) {
		st.first = ts
	}
	if ts.After(st.last) {
		st.last = ts
	}
	return nil
}

// Flows returns the accumulated flow records, largest byte count first.
// Single-packet flows get a zero duration, which the scorer treats as a
// saturated burst.
func (s *Summarizer) Flows() []*model.FlowRecord {
	out := make([]*model.FlowRecord, 0, len(s.flows))
	for key, st := range s.flows {
		out = append(out, &model.FlowRecord{
			Domain:    s.domain,
			SrcIP:     key.srcIP,
			DstIP:     key.dstIP,
			DstPort:   key.dstPort,
			Protocol:  key.protocol,
			Packets:   st.packets,
			Bytes:     st.bytes,
			Duration:  st.last.Sub(st.first).Seconds(),
			Timestamp: st.first.UTC(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Bytes > out[j].Bytes })
	return out
}

// SummarizeFile reads an entire capture file and returns its flows.
// Undecodable packets are counted, not fatal.
func SummarizeFile(path, domain string) ([]*model.FlowRecord, int, error) {
	handle, err := pcap.OpenOffline(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open capture %s: %w", path, err)
	}
	defer handle.Close()

	summarizer := NewSummarizer(domain)
	skipped := 0
	source := gopacket.NewPacketSource(handle, handle.LinkType())
	for packet := range source.Packets() {
		if err := summarizer.Add(packet); err != nil {
			skipped++
		}
	}
	return summarizer.Flows(), skipped, nil
}
