package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Protocol is the transport protocol of a flow, normalized to a small
// enumerated domain. Unrecognized protocol strings map to ProtocolOther,
// never to an error.
type Protocol uint8

const (
	ProtocolOther Protocol = iota
	ProtocolTCP
	ProtocolUDP
	ProtocolICMP
)

// ParseProtocol normalizes a protocol string. Anything it does not
// recognize becomes ProtocolOther.
func ParseProtocol(s string) Protocol {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TCP":
		return ProtocolTCP
	case "UDP":
		return ProtocolUDP
	case "ICMP":
		return ProtocolICMP
	default:
		return ProtocolOther
	}
}

// String returns the canonical name of the protocol.
func (p Protocol) String() string {
	switch p {
	case ProtocolTCP:
		return "TCP"
	case ProtocolUDP:
		return "UDP"
	case ProtocolICMP:
		return "ICMP"
	default:
		return "OTHER"
	}
}

// MarshalJSON encodes the protocol by name.
func (p Protocol) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON accepts a protocol name; unknown names normalize to
// ProtocolOther.
func (p *Protocol) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*p = ParseProtocol(s)
	return nil
}

// FlowRecord is one observed, already-summarized network flow.
// It is immutable once created.
type FlowRecord struct {
	Domain    string    `json:"domain"`
	SrcIP     string    `json:"src_ip"`
	DstIP     string    `json:"dst_ip"`
	DstPort   uint16    `json:"dst_port"`
	Protocol  Protocol  `json:"protocol"`
	Packets   uint64    `json:"packets"`
	Bytes     uint64    `json:"bytes"`
	Duration  float64   `json:"duration"` // seconds
	Timestamp time.Time `json:"timestamp"`
}

// Validate rejects malformed records at the ingestion boundary.
func (f *FlowRecord) Validate() error {
	if f.Domain == "" {
		return fmt.Errorf("flow record: missing domain")
	}
	if f.SrcIP == "" {
		return fmt.Errorf("flow record: missing source address")
	}
	if f.Duration < 0 {
		return fmt.Errorf("flow record: negative duration %f", f.Duration)
	}
	return nil
}

// NumFeatures is the length of every FeatureVector. The ordering of the
// features is a single fixed contract shared by every model in the
// ensemble; see internal/feature for the index constants.
const NumFeatures = 9

// FeatureVector is the fixed-order numeric encoding of a flow used as
// model input. Derived, never mutated.
type FeatureVector [NumFeatures]float64

// ScoredFlow is a FlowRecord plus the ensemble verdict. Persisted
// read-only after creation.
type ScoredFlow struct {
	ID string `json:"id"`
	FlowRecord
	Score       float64 `json:"score"`
	IsMalicious bool    `json:"is_malicious"`
	// Degraded marks a score produced without any trained model loaded.
	// The value is the configured default, not a real model output.
	Degraded bool `json:"degraded,omitempty"`
}

// Alert is raised when a scored flow crosses the detection threshold.
// Handled is the only mutable field, flipped by an operator.
type Alert struct {
	ID        string    `json:"id"`
	FlowID    string    `json:"flow_id"`
	Domain    string    `json:"domain"`
	SrcIP     string    `json:"src_ip"`
	Score     float64   `json:"score"`
	CreatedAt time.Time `json:"created_at"`
	Handled   bool      `json:"handled"`
}

// Block reasons. Anything else is treated as free text.
const (
	ReasonManual        = "manual"
	ReasonAutoHighScore = "auto-high-score"
)

// BlockRule is a time-bounded mitigation action against a source address
// within a domain. At most one active rule exists per (domain, src)
// pair at any instant.
type BlockRule struct {
	ID        string    `json:"id"`
	Domain    string    `json:"domain"`
	SrcIP     string    `json:"src_ip"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Reason    string    `json:"reason"`
	Author    string    `json:"author"`
	Revoked   bool      `json:"revoked"`
	RevokedBy string    `json:"revoked_by,omitempty"`
	RevokedAt time.Time `json:"revoked_at,omitempty"`
}

// ActiveAt reports whether the rule is in force at the given instant.
func (r *BlockRule) ActiveAt(now time.Time) bool {
	return !r.Revoked && now.Before(r.ExpiresAt)
}

// EventType identifies the kind of a broadcast event.
type EventType string

const (
	EventFlow  EventType = "flow"
	EventAlert EventType = "alert"
	EventBlock EventType = "block"
)

// Event is one state change streamed to live subscribers.
type Event struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload"`
}
