// Package pipeline orchestrates flow ingestion: validate, extract
// features, score, persist, consult the mitigation controller and emit
// events.
package pipeline

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"ShieldAI/internal/event"
	"ShieldAI/internal/feature"
	"ShieldAI/internal/model"
)

// Scorer produces a threat score in [0,1] for a feature vector. The
// second return marks the degraded no-model default.
type Scorer interface {
	Score(fv model.FeatureVector) (float64, bool)
}

// Evaluator applies the blocking policy to a scored flow.
type Evaluator interface {
	Evaluate(flow *model.ScoredFlow) (*model.Alert, *model.BlockRule)
}

// Pipeline ingests flow records, sequentially per flow and concurrently
// across flows via its worker pool. All collaborators are injected at
// construction.
type Pipeline struct {
	scorer    Scorer
	evaluator Evaluator
	flows     model.FlowStore
	events    *event.Broadcaster

	detectionThreshold float64

	flowChannel chan *model.FlowRecord
	numWorkers  int
	workerWg    sync.WaitGroup

	// Optional durable mirror, fed in batches off the hot path.
	mirror        model.Writer
	mirrorChannel chan *model.ScoredFlow
	mirrorBatch   int
	mirrorFlush   time.Duration
	mirrorWg      sync.WaitGroup
}

// Options bundles the pipeline tunables.
type Options struct {
	DetectionThreshold float64
	NumWorkers         int
	ChannelSize        int
	// Mirror is optional; nil disables durable mirroring.
	Mirror      model.Writer
	MirrorBatch int
	MirrorFlush time.Duration
}

// New creates a pipeline.
func New(scorer Scorer, evaluator Evaluator, flows model.FlowStore, events *event.Broadcaster, opts Options) *Pipeline {
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}
	if opts.ChannelSize <= 0 {
		opts.ChannelSize = 1024
	}
	if opts.MirrorBatch <= 0 {
		opts.MirrorBatch = 500
	}
	if opts.MirrorFlush <= 0 {
		opts.MirrorFlush = 5 * time.Second
	}
	p := &Pipeline{
		scorer:             scorer,
		evaluator:          evaluator,
		flows:              flows,
		events:             events,
		detectionThreshold: opts.DetectionThreshold,
		flowChannel:        make(chan *model.FlowRecord, opts.ChannelSize),
		numWorkers:         opts.NumWorkers,
		mirror:             opts.Mirror,
		mirrorBatch:        opts.MirrorBatch,
		mirrorFlush:        opts.MirrorFlush,
	}
	if p.mirror != nil {
		p.mirrorChannel = make(chan *model.ScoredFlow, opts.ChannelSize)
	}
	return p
}

// Ingest processes one flow record synchronously and returns the scored
// flow. Only malformed input is surfaced as an error; every downstream
// failure after the flow is persisted degrades gracefully.
func (p *Pipeline) Ingest(rec *model.FlowRecord) (*model.ScoredFlow, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	fv := feature.Extract(rec)
	score, degraded := p.scorer.Score(fv)

	flow := &model.ScoredFlow{
		ID:          uuid.NewString(),
		FlowRecord:  *rec,
		Score:       score,
		IsMalicious: score >= p.detectionThreshold,
		Degraded:    degraded,
	}

	// Persisting the observed flow is the primary guarantee; nothing
	// after this point rolls it back.
	if err := p.flows.SaveFlow(flow); err != nil {
		return nil, fmt.Errorf("failed to persist scored flow: %w", err)
	}
	p.enqueueMirror(flow)

	alert, rule := p.evaluator.Evaluate(flow)

	p.events.Publish(model.Event{Type: model.EventFlow, Payload: flow})
	if alert != nil {
		p.events.Publish(model.Event{Type: model.EventAlert, Payload: alert})
	}
	if rule != nil {
		p.events.Publish(model.Event{Type: model.EventBlock, Payload: rule})
	}
	return flow, nil
}

// Input returns the channel feeding the worker pool. Used by transports
// that deliver flows asynchronously (the NATS subscriber).
func (p *Pipeline) Input() chan<- *model.FlowRecord {
	return p.flowChannel
}

// Start launches the ingestion worker pool and, when a mirror is
// configured, the batching flusher.
func (p *Pipeline) Start() {
	p.workerWg.Add(p.numWorkers)
	for i := 0; i < p.numWorkers; i++ {
		go p.worker()
	}
	if p.mirror != nil {
		p.mirrorWg.Add(1)
		go p.runMirror()
	}
	log.Printf("Ingestion pipeline started with %d workers.", p.numWorkers)
}

// Stop drains buffered flows, flushes the mirror and shuts down.
func (p *Pipeline) Stop() {
	close(p.flowChannel)
	p.workerWg.Wait()
	if p.mirror != nil {
		close(p.mirrorChannel)
		p.mirrorWg.Wait()
		if err := p.mirror.Close(); err != nil {
			log.Printf("Error closing flow mirror: %v", err)
		}
	}
	log.Println("Ingestion pipeline stopped.")
}

func (p *Pipeline) worker() {
	defer p.workerWg.Done()
	for rec := range p.flowChannel {
		if _, err := p.Ingest(rec); err != nil {
			log.Printf("Rejected flow from %s: %v", rec.SrcIP, err)
		}
	}
}

func (p *Pipeline) enqueueMirror(flow *model.ScoredFlow) {
	if p.mirror == nil {
		return
	}
	select {
	case p.mirrorChannel <- flow:
	default:
		// Mirroring is best-effort; never stall the ingestion path.
		log.Printf("Flow mirror queue full, dropping flow %s", flow.ID)
	}
}

// runMirror batches scored flows and writes them out on size or time.
func (p *Pipeline) runMirror() {
	defer p.mirrorWg.Done()
	ticker := time.NewTicker(p.mirrorFlush)
	defer ticker.Stop()

	batch := make([]*model.ScoredFlow, 0, p.mirrorBatch)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := p.mirror.WriteFlows(batch); err != nil {
			log.Printf("Error mirroring %d flow(s): %v", len(batch), err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case flow, ok := <-p.mirrorChannel:
			if !ok {
				flush()
				return
			}
			batch = append(batch, flow)
			if len(batch) >= p.mirrorBatch {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
