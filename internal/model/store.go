package model

// FlowStore persists scored flows and serves dashboard queries.
type FlowStore interface {
	SaveFlow(flow *ScoredFlow) error

	// RecentFlows returns up to limit flows for the domain, newest first.
	RecentFlows(domain string, limit int) []*ScoredFlow
}

// AlertStore persists alerts. Handled is the only field an implementation
// is allowed to mutate after creation.
type AlertStore interface {
	SaveAlert(alert *Alert) error

	// ListAlerts returns alerts for the domain, newest first. When handled
	// is non-nil only alerts with a matching Handled flag are returned.
	ListAlerts(domain string, handled *bool) []*Alert

	// MarkHandled flips the Handled flag; false if the alert is unknown.
	MarkHandled(alertID string) bool
}
