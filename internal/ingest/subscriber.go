package ingest

import (
	"log"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"

	"ShieldAI/internal/config"
	"ShieldAI/internal/model"
)

// FlowHandler processes a received flow record.
type FlowHandler func(rec *model.FlowRecord)

// Subscriber subscribes to the flow subject and hands decoded records to
// a handler, typically the pipeline's input channel.
type Subscriber struct {
	nc      *nats.Conn
	sub     *nats.Subscription
	subject string
}

// NewSubscriber connects to NATS.
func NewSubscriber(cfg config.NATSConfig) (*Subscriber, error) {
	nc, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to NATS server at %s", cfg.URL)
	return &Subscriber{nc: nc, subject: cfg.Subject}, nil
}

// Start subscribes and decodes messages with the provided handler.
// Undecodable messages are logged and skipped; one bad record never
// stops the feed.
func (s *Subscriber) Start(handler FlowHandler) error {
	sub, err := s.nc.Subscribe(s.subject, func(msg *nats.Msg) {
		var rec model.FlowRecord
		if err := json.Unmarshal(msg.Data, &rec); err != nil {
			log.Printf("Error unmarshalling flow record: %v", err)
			return
		}
		handler(&rec)
	})
	if err != nil {
		return err
	}
	s.sub = sub
	log.Printf("Subscribed to '%s'. Waiting for flow records...", s.subject)
	return nil
}

// Close unsubscribes and closes the NATS connection.
func (s *Subscriber) Close() {
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
	if s.nc != nil {
		s.nc.Close()
		log.Println("NATS connection closed.")
	}
}
