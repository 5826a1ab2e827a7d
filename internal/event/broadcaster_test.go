package event

import (
	"testing"
	"time"

	"ShieldAI/internal/model"
)

func TestPublishDelivers(t *testing.T) {
	b := NewBroadcaster(8)
	sub := b.Subscribe()
	defer sub.Close()

	b.Publish(model.Event{Type: model.EventFlow, Payload: "f1"})

	select {
	case ev := <-sub.Events():
		if ev.Type != model.EventFlow || ev.Payload != "f1" {
			t.Errorf("unexpected event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestUnreadSubscriberNeverBlocksPublish(t *testing.T) {
	b := NewBroadcaster(4)
	sub := b.Subscribe() // never read
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10000; i++ {
			b.Publish(model.Event{Type: model.EventFlow, Payload: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on an unread subscriber")
	}
	if sub.Dropped() == 0 {
		t.Error("expected drops on an unread subscriber")
	}
}

func TestDropOldestKeepsNewestEvents(t *testing.T) {
	b := NewBroadcaster(4)
	sub := b.Subscribe()
	defer sub.Close()

	for i := 0; i < 10; i++ {
		b.Publish(model.Event{Type: model.EventFlow, Payload: i})
	}

	var got []int
	for len(got) < 4 {
		select {
		case ev := <-sub.Events():
			got = append(got, ev.Payload.(int))
		case <-time.After(time.Second):
			t.Fatalf("timed out, received %v", got)
		}
	}
	// Oldest events were dropped; the queue holds the most recent four.
	want := []int{6, 7, 8, 9}
	for i, v := range want {
		if got[i] != v {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestPerSubscriberOrdering(t *testing.T) {
	b := NewBroadcaster(128)
	sub := b.Subscribe()
	defer sub.Close()

	for i := 0; i < 100; i++ {
		b.Publish(model.Event{Type: model.EventFlow, Payload: i})
	}

	prev := -1
	for i := 0; i < 100; i++ {
		select {
		case ev := <-sub.Events():
			v := ev.Payload.(int)
			if v <= prev {
				t.Fatalf("events reordered: %d after %d", v, prev)
			}
			prev = v
		case <-time.After(time.Second):
			t.Fatal("timed out reading events")
		}
	}
}

func TestClosedSubscriberIsReclaimed(t *testing.T) {
	b := NewBroadcaster(8)
	sub := b.Subscribe()
	other := b.Subscribe()
	defer other.Close()

	sub.Close()
	select {
	case <-sub.Done():
	default:
		t.Error("Done should be closed after Close")
	}

	b.Publish(model.Event{Type: model.EventAlert, Payload: "a"})
	if got := b.SubscriberCount(); got != 1 {
		t.Errorf("expected 1 live subscriber, got %d", got)
	}

	// Remaining subscriber is unaffected.
	select {
	case ev := <-other.Events():
		if ev.Type != model.EventAlert {
			t.Errorf("unexpected event type %s", ev.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("live subscriber should still receive events")
	}
}

func TestSubscribeUnsubscribeDuringPublish(t *testing.T) {
	b := NewBroadcaster(8)

	stop := make(chan struct{})
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
				b.Publish(model.Event{Type: model.EventFlow, Payload: "x"})
			}
		}
	}()

	for i := 0; i < 200; i++ {
		sub := b.Subscribe()
		if i%2 == 0 {
			sub.Close()
		} else {
			b.Unsubscribe(sub.ID)
		}
	}
	close(stop)

	if got := b.SubscriberCount(); got != 0 {
		t.Errorf("expected no subscribers left, got %d", got)
	}
}
