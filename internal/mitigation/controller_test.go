package mitigation

import (
	"testing"
	"time"

	"ShieldAI/internal/blocklist"
	"ShieldAI/internal/config"
	"ShieldAI/internal/model"
	"ShieldAI/internal/storage"
)

func newTestController() (*Controller, *blocklist.Store, *storage.MemoryAlertStore) {
	blocks := blocklist.NewStore()
	alerts := storage.NewMemoryAlertStore()
	cfg := config.EngineConfig{
		DetectionThreshold: 0.6,
		AutoBlockThreshold: 0.8,
		AutoBlockDuration:  "1h",
	}
	return NewController(cfg, blocks, alerts), blocks, alerts
}

func scoredFlow(score float64, detection float64) *model.ScoredFlow {
	return &model.ScoredFlow{
		ID: "flow-1",
		FlowRecord: model.FlowRecord{
			Domain: "example.com",
			SrcIP:  "9.9.9.9",
		},
		Score:       score,
		IsMalicious: score >= detection,
	}
}

func TestEvaluateHighScoreBlocksAndAlerts(t *testing.T) {
	c, blocks, alerts := newTestController()

	alert, rule := c.Evaluate(scoredFlow(0.93, 0.6))
	if alert == nil {
		t.Fatal("expected an alert for a malicious flow")
	}
	if rule == nil {
		t.Fatal("expected a block rule above the auto-block threshold")
	}
	if rule.Reason != model.ReasonAutoHighScore {
		t.Errorf("expected reason %q, got %q", model.ReasonAutoHighScore, rule.Reason)
	}
	if rule.Author != "system" {
		t.Errorf("expected author system, got %q", rule.Author)
	}
	if !blocks.IsBlocked("example.com", "9.9.9.9", time.Now()) {
		t.Error("pair should be blocked")
	}
	if got := len(alerts.ListAlerts("example.com", nil)); got != 1 {
		t.Errorf("expected exactly 1 alert, got %d", got)
	}
}

func TestEvaluateDetectionOnlyAlerts(t *testing.T) {
	c, blocks, alerts := newTestController()

	// Between the detection and auto-block thresholds: alert, no block.
	alert, rule := c.Evaluate(scoredFlow(0.7, 0.6))
	if alert == nil {
		t.Error("expected an alert between detection and auto-block thresholds")
	}
	if rule != nil {
		t.Error("expected no block rule below the auto-block threshold")
	}
	if blocks.IsBlocked("example.com", "9.9.9.9", time.Now()) {
		t.Error("pair should not be blocked")
	}
	if got := len(alerts.ListAlerts("example.com", nil)); got != 1 {
		t.Errorf("expected 1 alert, got %d", got)
	}
}

func TestEvaluateBenignFlow(t *testing.T) {
	c, blocks, alerts := newTestController()

	alert, rule := c.Evaluate(scoredFlow(0.2, 0.6))
	if alert != nil || rule != nil {
		t.Error("benign flow should produce neither an alert nor a block")
	}
	if blocks.IsBlocked("example.com", "9.9.9.9", time.Now()) {
		t.Error("pair should not be blocked")
	}
	if got := len(alerts.ListAlerts("example.com", nil)); got != 0 {
		t.Errorf("expected no alerts, got %d", got)
	}
}

func TestRepeatedAutoBlocksStayIdempotent(t *testing.T) {
	c, blocks, _ := newTestController()

	_, first := c.Evaluate(scoredFlow(0.95, 0.6))
	_, second := c.Evaluate(scoredFlow(0.9, 0.6))

	if first == nil || second == nil {
		t.Fatal("both evaluations should block")
	}
	if first.ID != second.ID {
		t.Errorf("repeated auto blocks must extend one rule, got %s and %s", first.ID, second.ID)
	}
	if got := len(blocks.ListActive("example.com", time.Now())); got != 1 {
		t.Errorf("expected 1 active rule, got %d", got)
	}
}

func TestManualPrecedenceOverAuto(t *testing.T) {
	c, blocks, _ := newTestController()

	manual := c.ManualBlock("example.com", "9.9.9.9", 24*time.Hour, "", "admin")
	if manual.Reason != model.ReasonManual {
		t.Errorf("expected default manual reason, got %q", manual.Reason)
	}

	// A concurrent auto trigger with a shorter duration must not shorten
	// the manual block.
	_, auto := c.Evaluate(scoredFlow(0.95, 0.6))
	if auto == nil {
		t.Fatal("auto evaluation should return the pair's rule")
	}
	if auto.ID != manual.ID {
		t.Errorf("auto trigger must extend the manual rule, got %s", auto.ID)
	}
	if !auto.ExpiresAt.Equal(manual.ExpiresAt) {
		t.Errorf("manual expiry was overwritten: %v -> %v", manual.ExpiresAt, auto.ExpiresAt)
	}

	if !c.ManualUnblock(manual.ID, "admin") {
		t.Fatal("manual unblock should succeed")
	}
	if blocks.IsBlocked("example.com", "9.9.9.9", time.Now()) {
		t.Error("pair should be unblocked after manual revocation")
	}
}

func TestManualUnblockUnknownRule(t *testing.T) {
	c, _, _ := newTestController()
	if c.ManualUnblock("no-such-rule", "admin") {
		t.Error("unblock of an unknown rule should return false")
	}
}
