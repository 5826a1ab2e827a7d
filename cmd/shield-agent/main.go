package main

import (
	"ShieldAI/internal/config"
	"ShieldAI/internal/ingest"
	"ShieldAI/internal/model"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
)

// agentDstIP is the protected address all synthetic flows target.
const agentDstIP = "203.0.113.5"

func main() {
	natsURL := flag.String("nats", nats.DefaultURL, "NATS server URL.")
	subject := flag.String("subject", "shieldai.flows.raw", "NATS subject to publish flows on.")
	domain := flag.String("domain", "example.com", "Domain the synthetic flows belong to.")
	rate := flag.Int("rate", 10, "Flows published per second.")
	attackRatio := flag.Float64("attack", 0.1, "Fraction of flows generated as attack bursts.")
	flag.Parse()

	if *rate <= 0 {
		log.Fatalf("Invalid rate %d, must be positive.", *rate)
	}
	if *attackRatio < 0 || *attackRatio > 1 {
		log.Fatalf("Invalid attack ratio %.2f, must be in [0,1].", *attackRatio)
	}

	pub, err := ingest.NewPublisher(config.NATSConfig{URL: *natsURL, Subject: *subject})
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer pub.Close()

	log.Printf("Publishing synthetic flows for %s to %s at %d/s (%.0f%% attack)",
		*domain, *subject, *rate, *attackRatio*100)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	ticker := time.NewTicker(time.Second / time.Duration(*rate))
	defer ticker.Stop()

	published := 0
	for {
		select {
		case <-ticker.C:
			rec := syntheticFlow(rng, *domain, rng.Float64() < *attackRatio)
			if err := pub.Publish(rec); err != nil {
				log.Printf("Failed to publish flow: %v", err)
				continue
			}
			published++
			if published%1000 == 0 {
				log.Printf("%d flows published...", published)
			}
		case <-sigChan:
			log.Printf("Shutdown signal received, %d flows published.", published)
			return
		}
	}
}

// syntheticFlow builds one random flow record. Attack flows are short
// high-volume bursts from a rotating source pool so they cross the
// byte-rate features the scorer keys on.
func syntheticFlow(rng *rand.Rand, domain string, attack bool) *model.FlowRecord {
	protocols := []model.Protocol{model.ProtocolTCP, model.ProtocolUDP}
	ports := []uint16{80, 443, 8080, 53, 3306}
	rec := &model.FlowRecord{
		Domain:    domain,
		SrcIP:     fmt.Sprintf("198.51.100.%d", rng.Intn(254)+1),
		DstIP:     agentDstIP,
		DstPort:   ports[rng.Intn(len(ports))],
		Protocol:  protocols[rng.Intn(len(protocols))],
		Timestamp: time.Now().UTC(),
	}
	if attack {
		// A handful of sources hammering with large short bursts.
		rec.SrcIP = fmt.Sprintf("198.51.100.%d", rng.Intn(4)+1)
		rec.Packets = uint64(rng.Intn(1000) + 500)
		rec.Bytes = rec.Packets * uint64(rng.Intn(700)+800)
		rec.Duration = rng.Float64()*0.09 + 0.01
		return rec
	}
	rec.Packets = uint64(rng.Intn(1000) + 1)
	rec.Bytes = rec.Packets * uint64(rng.Intn(1461)+40)
	rec.Duration = rng.Float64() * 10
	return rec
}
