// Package ingest carries flow records between collection agents and the
// engine over NATS, encoded as JSON.
package ingest

import (
	"log"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"

	"ShieldAI/internal/config"
	"ShieldAI/internal/model"
)

// Publisher publishes flow records to a NATS subject. Used by the
// synthetic agent and the pcap replay tool.
type Publisher struct {
	nc      *nats.Conn
	subject string
}

// NewPublisher connects to NATS.
func NewPublisher(cfg config.NATSConfig) (*Publisher, error) {
	nc, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to NATS server at %s", cfg.URL)
	return &Publisher{nc: nc, subject: cfg.Subject}, nil
}

// Publish serializes one flow record and publishes it.
func (p *Publisher) Publish(rec *model.FlowRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return p.nc.Publish(p.subject, data)
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		log.Println("NATS connection drained and closed.")
	}
}
