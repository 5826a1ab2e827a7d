package main

import (
	"ShieldAI/internal/api"
	"ShieldAI/internal/blocklist"
	"ShieldAI/internal/config"
	"ShieldAI/internal/event"
	"ShieldAI/internal/ingest"
	"ShieldAI/internal/mitigation"
	"ShieldAI/internal/ml"
	"ShieldAI/internal/model"
	"ShieldAI/internal/notification"
	"ShieldAI/internal/pipeline"
	"ShieldAI/internal/storage"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file.")
	flag.Parse()

	log.Println("Starting shield-engine...")

	// 1. Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Println("Configuration loaded successfully.")

	// 2. Stores and block list
	flows := storage.NewMemoryFlowStore(cfg.Engine.FlowHistory)
	alerts := storage.NewMemoryAlertStore()
	blocks := blocklist.NewStore()
	if interval := cfg.Blocklist.SweepIntervalParsed(); interval > 0 {
		blocks.StartSweep(interval)
	}

	// 3. Scoring ensemble, restored from disk when a persisted model exists
	ensemble := ml.NewEnsemble(cfg.Ensemble)
	if ensemble.LoadOrInitialize() {
		log.Println("Restored persisted model, scoring at full confidence.")
	} else {
		log.Println("No persisted model found, scoring in degraded mode until trained.")
	}

	// 4. Mitigation and event fan-out
	controller := mitigation.NewController(cfg.Engine, blocks, alerts)
	events := event.NewBroadcaster(cfg.Broadcaster.QueueSize)

	// 5. Optional durable mirror of scored flows
	var mirror model.Writer
	if cfg.ClickHouse.Enabled {
		ch, err := storage.NewClickHouseWriter(cfg.ClickHouse)
		if err != nil {
			log.Fatalf("Failed to connect to ClickHouse: %v", err)
		}
		mirror = ch
		log.Printf("ClickHouse mirror enabled (%s:%d/%s)", cfg.ClickHouse.Host, cfg.ClickHouse.Port, cfg.ClickHouse.Database)
	}

	// 6. Optional alert email digest
	var digest *notification.Digest
	if cfg.SMTP.Enabled {
		notifier := notification.NewEmailNotifier(cfg.SMTP)
		digest = notification.NewDigest(notifier, events, cfg.SMTP.DigestIntervalParsed())
		digest.Start()
	}

	// 7. Scoring pipeline
	pipe := pipeline.New(ensemble, controller, flows, events, pipeline.Options{
		DetectionThreshold: cfg.Engine.DetectionThreshold,
		NumWorkers:         cfg.Engine.NumWorkers,
		ChannelSize:        cfg.Engine.SizeOfFlowChannel,
		Mirror:             mirror,
		MirrorBatch:        cfg.ClickHouse.BatchSize,
		MirrorFlush:        cfg.ClickHouse.FlushIntervalParsed(),
	})
	pipe.Start()

	// 8. NATS flow ingestion feeding the pipeline
	var sub *ingest.Subscriber
	if cfg.NATS.URL != "" {
		sub, err = ingest.NewSubscriber(cfg.NATS)
		if err != nil {
			log.Fatalf("Failed to connect to NATS at %s: %v", cfg.NATS.URL, err)
		}
		input := pipe.Input()
		if err := sub.Start(func(rec *model.FlowRecord) {
			input <- rec
		}); err != nil {
			log.Fatalf("Failed to subscribe to %s: %v", cfg.NATS.Subject, err)
		}
		log.Printf("Subscribed to NATS subject %s", cfg.NATS.Subject)
	} else {
		log.Println("NATS URL not configured, ingesting via HTTP only.")
	}

	// 9. HTTP API
	server := api.NewServer(cfg.API, pipe, controller, blocks, flows, alerts, ensemble, events)
	server.Start()

	// 10. Wait for a shutdown signal for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutdown signal received, stopping...")
	server.Stop()
	if sub != nil {
		sub.Close()
	}
	pipe.Stop()
	if digest != nil {
		digest.Stop()
	}
	blocks.StopSweep()
	log.Println("Shutdown complete.")
}
