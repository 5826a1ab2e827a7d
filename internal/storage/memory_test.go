package storage

import (
	"ShieldAI/internal/model"
	"fmt"
	"testing"
)

func TestFlowStoreBoundedWindow(t *testing.T) {
	s := NewMemoryFlowStore(3)

	for i := 0; i < 5; i++ {
		err := s.SaveFlow(&model.ScoredFlow{
			ID:         fmt.Sprintf("f%d", i),
			FlowRecord: model.FlowRecord{Domain: "example.com"},
		})
		if err != nil {
			t.Fatalf("Failed to save flow: %v", err)
		}
	}

	flows := s.RecentFlows("example.com", 0)
	if len(flows) != 3 {
		t.Fatalf("Expected window of 3 flows, got %d", len(flows))
	}
	// Newest first, oldest two evicted.
	for i, want := range []string{"f4", "f3", "f2"} {
		if flows[i].ID != want {
			t.Errorf("flows[%d] = %s, want %s", i, flows[i].ID, want)
		}
	}
}

func TestFlowStoreLimitAndDomainIsolation(t *testing.T) {
	s := NewMemoryFlowStore(10)
	s.SaveFlow(&model.ScoredFlow{ID: "a", FlowRecord: model.FlowRecord{Domain: "a.com"}})
	s.SaveFlow(&model.ScoredFlow{ID: "b1", FlowRecord: model.FlowRecord{Domain: "b.com"}})
	s.SaveFlow(&model.ScoredFlow{ID: "b2", FlowRecord: model.FlowRecord{Domain: "b.com"}})

	if got := s.RecentFlows("b.com", 1); len(got) != 1 || got[0].ID != "b2" {
		t.Errorf("Unexpected limited result: %+v", got)
	}
	if got := s.RecentFlows("a.com", 0); len(got) != 1 || got[0].ID != "a" {
		t.Errorf("Domains should not share windows: %+v", got)
	}
	if got := s.RecentFlows("unknown.com", 0); len(got) != 0 {
		t.Errorf("Expected no flows for unknown domain, got %d", len(got))
	}
}

func TestAlertStoreFilterAndMarkHandled(t *testing.T) {
	s := NewMemoryAlertStore()
	s.SaveAlert(&model.Alert{ID: "a1", Domain: "example.com"})
	s.SaveAlert(&model.Alert{ID: "a2", Domain: "example.com"})
	s.SaveAlert(&model.Alert{ID: "a3", Domain: "other.com"})

	if !s.MarkHandled("a1") {
		t.Fatal("Expected MarkHandled to find a1")
	}
	if s.MarkHandled("missing") {
		t.Error("Expected MarkHandled to reject an unknown id")
	}

	handled := true
	got := s.ListAlerts("example.com", &handled)
	if len(got) != 1 || got[0].ID != "a1" {
		t.Errorf("Unexpected handled alerts: %+v", got)
	}

	unhandled := false
	got = s.ListAlerts("example.com", &unhandled)
	if len(got) != 1 || got[0].ID != "a2" {
		t.Errorf("Unexpected unhandled alerts: %+v", got)
	}

	// Listing returns copies, mutating one must not touch the store.
	got[0].Handled = true
	if again := s.ListAlerts("example.com", &unhandled); len(again) != 1 {
		t.Errorf("Store mutated through a listed copy: %+v", again)
	}
}
