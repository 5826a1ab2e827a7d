package notification

import (
	"ShieldAI/internal/event"
	"ShieldAI/internal/model"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
)

// Digest buffers alert events from the broadcaster and periodically
// sends them as one consolidated email instead of one mail per alert.
type Digest struct {
	notifier Notifier
	events   *event.Broadcaster
	interval time.Duration

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewDigest creates a digest flushing buffered alerts every interval.
func NewDigest(notifier Notifier, events *event.Broadcaster, interval time.Duration) *Digest {
	return &Digest{
		notifier: notifier,
		events:   events,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start subscribes to the event stream and runs the flush loop.
func (d *Digest) Start() {
	log.Println("Alert digest started")
	sub := d.events.Subscribe()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer sub.Close()

		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()

		var pending []*model.Alert
		for {
			select {
			case ev := <-sub.Events():
				if ev.Type != model.EventAlert {
					continue
				}
				if alert, ok := ev.Payload.(*model.Alert); ok {
					pending = append(pending, alert)
				}
			case <-ticker.C:
				d.flush(pending)
				pending = nil
			case <-d.stopChan:
				d.flush(pending)
				return
			case <-sub.Done():
				return
			}
		}
	}()
}

// Stop flushes any buffered alerts and stops the loop.
func (d *Digest) Stop() {
	log.Println("Stopping alert digest...")
	close(d.stopChan)
	d.wg.Wait()
}

func (d *Digest) flush(alerts []*model.Alert) {
	if len(alerts) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString("<h1>ShieldAI Alert Summary</h1>")
	sb.WriteString("<p>The following flows crossed the detection threshold:</p><hr>")
	for _, a := range alerts {
		fmt.Fprintf(&sb, "<p><b>%s</b> from %s scored %.2f at %s</p>",
			a.Domain, a.SrcIP, a.Score, a.CreatedAt.Format(time.RFC3339))
	}

	subject := fmt.Sprintf("ShieldAI Alert Summary (%d Triggered)", len(alerts))
	if err := d.notifier.Send(subject, sb.String()); err != nil {
		log.Printf("ERROR: Failed to send alert digest: %v", err)
		return
	}
	log.Printf("Alert digest sent, %d alert(s).", len(alerts))
}
