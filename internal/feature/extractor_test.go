package feature

import (
	"testing"
	"time"

	"ShieldAI/internal/model"
)

func TestExtractRates(t *testing.T) {
	flow := &model.FlowRecord{
		Domain:    "example.com",
		SrcIP:     "10.0.0.1",
		DstIP:     "203.0.113.5",
		DstPort:   443,
		Protocol:  model.ProtocolTCP,
		Packets:   100,
		Bytes:     50000,
		Duration:  2.0,
		Timestamp: time.Now(),
	}

	fv := Extract(flow)

	if fv[BytesPerSecond] != 25000 {
		t.Errorf("expected bps 25000, got %f", fv[BytesPerSecond])
	}
	if fv[PacketsPerSecond] != 50 {
		t.Errorf("expected pps 50, got %f", fv[PacketsPerSecond])
	}
	if fv[ProtocolTCP] != 1 || fv[ProtocolUDP] != 0 || fv[ProtocolICMP] != 0 {
		t.Errorf("unexpected protocol one-hots: %v", fv)
	}
}

func TestExtractZeroDurationSaturates(t *testing.T) {
	flow := &model.FlowRecord{
		Domain:   "example.com",
		SrcIP:    "10.0.0.1",
		Packets:  900,
		Bytes:    1200000,
		Duration: 0,
	}

	fv := Extract(flow)

	// Rate features must equal the raw counts, not infinity.
	if fv[BytesPerSecond] != float64(flow.Bytes) {
		t.Errorf("expected bps to saturate to %d, got %f", flow.Bytes, fv[BytesPerSecond])
	}
	if fv[PacketsPerSecond] != float64(flow.Packets) {
		t.Errorf("expected pps to saturate to %d, got %f", flow.Packets, fv[PacketsPerSecond])
	}
}

func TestExtractUnknownProtocol(t *testing.T) {
	flow := &model.FlowRecord{
		Domain:   "example.com",
		SrcIP:    "10.0.0.1",
		Protocol: model.ParseProtocol("GRE"),
		Duration: 1,
	}

	fv := Extract(flow)

	if fv[ProtocolTCP] != 0 || fv[ProtocolUDP] != 0 || fv[ProtocolICMP] != 0 {
		t.Errorf("unknown protocol should map to no one-hot, got %v", fv)
	}
}

func TestPortClass(t *testing.T) {
	cases := []struct {
		port uint16
		want float64
	}{
		{80, 0},
		{443, 0},
		{8080, 1},
		{50000, 2},
	}
	for _, c := range cases {
		if got := portClass(c.port); got != c.want {
			t.Errorf("portClass(%d) = %f, want %f", c.port, got, c.want)
		}
	}
}
