// Package feature maps raw flow records to the fixed-length numeric
// vectors consumed by the scoring ensemble.
package feature

import (
	"ShieldAI/internal/model"
)

// Feature indices. This ordering is a contract shared by every model in
// the ensemble; changing the feature set requires retraining and
// replacing all models together.
const (
	Bytes = iota
	Packets
	Duration
	BytesPerSecond
	PacketsPerSecond
	DstPortClass
	ProtocolTCP
	ProtocolUDP
	ProtocolICMP
)

// Names lists the feature names in vector order, for training tables and
// reports.
var Names = [model.NumFeatures]string{
	"bytes", "packets", "duration", "bps", "pps",
	"dst_port_class", "protocol_tcp", "protocol_udp", "protocol_icmp",
}

// Extract derives the feature vector for a flow. It is a pure function
// and is total for well-formed records.
//
// Rate features saturate to the raw count when the duration is zero:
// a burst too short to measure still yields a finite, comparable rate.
func Extract(flow *model.FlowRecord) model.FeatureVector {
	var fv model.FeatureVector
	fv[Bytes] = float64(flow.Bytes)
	fv[Packets] = float64(flow.Packets)
	fv[Duration] = flow.Duration

	if flow.Duration > 0 {
		fv[BytesPerSecond] = float64(flow.Bytes) / flow.Duration
		fv[PacketsPerSecond] = float64(flow.Packets) / flow.Duration
	} else {
		fv[BytesPerSecond] = float64(flow.Bytes)
		fv[PacketsPerSecond] = float64(flow.Packets)
	}

	fv[DstPortClass] = portClass(flow.DstPort)

	switch flow.Protocol {
	case model.ProtocolTCP:
		fv[ProtocolTCP] = 1
	case model.ProtocolUDP:
		fv[ProtocolUDP] = 1
	case model.ProtocolICMP:
		fv[ProtocolICMP] = 1
	}
	return fv
}

// portClass buckets destination ports into a small ordinal domain:
// 0 well-known, 1 registered, 2 ephemeral.
func portClass(port uint16) float64 {
	switch {
	case port < 1024:
		return 0
	case port < 49152:
		return 1
	default:
		return 2
	}
}
