// Package mitigation decides, from a score and policy, whether a block
// rule is created or extended, and keeps manual operator actions
// distinguishable from automatic ones.
package mitigation

import (
	"log"
	"time"

	"github.com/google/uuid"

	"ShieldAI/internal/blocklist"
	"ShieldAI/internal/config"
	"ShieldAI/internal/model"
)

// Controller evaluates scored flows against the blocking policy. The
// per-(domain, address) state machine is Unblocked -> Blocked ->
// Unblocked; expiry and revocation always return to Unblocked, and a
// "permanent" block is just a very large duration.
type Controller struct {
	blocks *blocklist.Store
	alerts model.AlertStore

	detectionThreshold float64
	autoBlockThreshold float64
	autoBlockDuration  time.Duration
}

// NewController creates a controller. Config validation has already
// enforced autoBlockThreshold >= detectionThreshold.
func NewController(cfg config.EngineConfig, blocks *blocklist.Store, alerts model.AlertStore) *Controller {
	return &Controller{
		blocks:             blocks,
		alerts:             alerts,
		detectionThreshold: cfg.DetectionThreshold,
		autoBlockThreshold: cfg.AutoBlockThreshold,
		autoBlockDuration:  cfg.AutoBlockDurationParsed(),
	}
}

// Evaluate applies the policy to one scored flow. It raises at most one
// alert (when the flow is malicious) and creates or extends at most one
// block rule (when the score also crosses the auto-block threshold).
func (c *Controller) Evaluate(flow *model.ScoredFlow) (*model.Alert, *model.BlockRule) {
	var alert *model.Alert
	if flow.IsMalicious {
		alert = &model.Alert{
			ID:        uuid.NewString(),
			FlowID:    flow.ID,
			Domain:    flow.Domain,
			SrcIP:     flow.SrcIP,
			Score:     flow.Score,
			CreatedAt: time.Now().UTC(),
		}
		if err := c.alerts.SaveAlert(alert); err != nil {
			log.Printf("ERROR: failed to save alert for flow %s: %v", flow.ID, err)
		}
	}

	if flow.Score < c.autoBlockThreshold {
		return alert, nil
	}

	rule := c.blocks.Block(flow.Domain, flow.SrcIP, c.autoBlockDuration,
		model.ReasonAutoHighScore, "system", time.Now())
	log.Printf("AUDIT auto-block: domain=%s src=%s score=%.3f rule=%s expires=%s",
		flow.Domain, flow.SrcIP, flow.Score, rule.ID, rule.ExpiresAt.Format(time.RFC3339))
	return alert, rule
}

// ManualBlock is the operator override path. Manual actions take
// precedence over concurrent auto triggers through the block store's
// single-active-rule invariant and monotonic expiry extension.
func (c *Controller) ManualBlock(domain, srcIP string, duration time.Duration, reason, author string) *model.BlockRule {
	if reason == "" {
		reason = model.ReasonManual
	}
	rule := c.blocks.Block(domain, srcIP, duration, reason, author, time.Now())
	log.Printf("AUDIT manual-block: domain=%s src=%s author=%s rule=%s expires=%s",
		domain, srcIP, author, rule.ID, rule.ExpiresAt.Format(time.RFC3339))
	return rule
}

// ManualUnblock revokes a rule on operator request. Returns false when
// the rule is unknown or already inactive.
func (c *Controller) ManualUnblock(ruleID, author string) bool {
	ok := c.blocks.Unblock(ruleID, author, time.Now())
	if ok {
		log.Printf("AUDIT manual-unblock: rule=%s author=%s", ruleID, author)
	}
	return ok
}
