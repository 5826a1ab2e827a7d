// Package storage provides the flow and alert stores backing the
// dashboard queries: an authoritative in-memory store plus an optional
// ClickHouse mirror for durable analytics.
package storage

import (
	"sync"

	"ShieldAI/internal/model"
)

// MemoryFlowStore keeps a bounded per-domain window of scored flows.
// It implements model.FlowStore.
type MemoryFlowStore struct {
	mu       sync.RWMutex
	byDomain map[string][]*model.ScoredFlow
	capacity int
}

// NewMemoryFlowStore creates a store keeping up to capacity flows per
// domain.
func NewMemoryFlowStore(capacity int) *MemoryFlowStore {
	if capacity <= 0 {
		capacity = 1000
	}
	return &MemoryFlowStore{
		byDomain: make(map[string][]*model.ScoredFlow),
		capacity: capacity,
	}
}

// SaveFlow appends the flow to its domain window, evicting the oldest
// entry when the window is full.
func (s *MemoryFlowStore) SaveFlow(flow *model.ScoredFlow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	flows := append(s.byDomain[flow.Domain], flow)
	if len(flows) > s.capacity {
		flows = flows[len(flows)-s.capacity:]
	}
	s.byDomain[flow.Domain] = flows
	return nil
}

// RecentFlows returns up to limit flows for the domain, newest first.
func (s *MemoryFlowStore) RecentFlows(domain string, limit int) []*model.ScoredFlow {
	s.mu.RLock()
	defer s.mu.RUnlock()

	flows := s.byDomain[domain]
	if limit <= 0 || limit > len(flows) {
		limit = len(flows)
	}
	out := make([]*model.ScoredFlow, 0, limit)
	for i := len(flows) - 1; i >= len(flows)-limit; i-- {
		out = append(out, flows[i])
	}
	return out
}

// MemoryAlertStore is an in-memory model.AlertStore.
type MemoryAlertStore struct {
	mu     sync.RWMutex
	alerts []*model.Alert
	byID   map[string]*model.Alert
}

// NewMemoryAlertStore creates an empty alert store.
func NewMemoryAlertStore() *MemoryAlertStore {
	return &MemoryAlertStore{byID: make(map[string]*model.Alert)}
}

// SaveAlert records a new alert.
func (s *MemoryAlertStore) SaveAlert(alert *model.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, alert)
	s.byID[alert.ID] = alert
	return nil
}

// ListAlerts returns alerts for the domain, newest first, optionally
// filtered by Handled state.
func (s *MemoryAlertStore) ListAlerts(domain string, handled *bool) []*model.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.Alert
	for i := len(s.alerts) - 1; i >= 0; i-- {
		a := s.alerts[i]
		if domain != "" && a.Domain != domain {
			continue
		}
		if handled != nil && a.Handled != *handled {
			continue
		}
		c := *a
		out = append(out, &c)
	}
	return out
}

// MarkHandled flips the Handled flag of an alert. Handled is the only
// mutable field of an alert.
func (s *MemoryAlertStore) MarkHandled(alertID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[alertID]
	if !ok {
		return false
	}
	a.Handled = true
	return true
}
