package main

import (
	"ShieldAI/internal/config"
	"ShieldAI/internal/ingest"
	"ShieldAI/pkg/pcap"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
)

// shield-replay summarizes an offline capture file into flow records
// and feeds them to the engine over NATS, or prints them for inspection.
func main() {
	pcapFile := flag.String("pcap", "", "Path to the pcap file to replay (required).")
	domain := flag.String("domain", "example.com", "Domain to attribute the flows to.")
	natsURL := flag.String("nats", nats.DefaultURL, "NATS server URL. Empty to print flows instead of publishing.")
	subject := flag.String("subject", "shieldai.flows.raw", "NATS subject to publish flows on.")
	flag.Parse()

	if *pcapFile == "" {
		fmt.Fprintln(os.Stderr, "Error: -pcap flag is required.")
		flag.Usage()
		os.Exit(1)
	}

	flows, skipped, err := pcap.SummarizeFile(*pcapFile, *domain)
	if err != nil {
		log.Fatalf("Failed to summarize capture: %v", err)
	}
	log.Printf("Summarized %s: %d flows (%d packets skipped)", *pcapFile, len(flows), skipped)

	if *natsURL == "" {
		for _, rec := range flows {
			data, err := json.Marshal(rec)
			if err != nil {
				log.Printf("Failed to encode flow: %v", err)
				continue
			}
			fmt.Println(string(data))
		}
		return
	}

	pub, err := ingest.NewPublisher(config.NATSConfig{URL: *natsURL, Subject: *subject})
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer pub.Close()

	for _, rec := range flows {
		if err := pub.Publish(rec); err != nil {
			log.Printf("Failed to publish flow from %s: %v", rec.SrcIP, err)
		}
	}
	log.Printf("Published %d flows to %s", len(flows), *subject)
}
