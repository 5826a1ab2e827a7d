package blocklist

import (
	"sync"
	"testing"
	"time"

	"ShieldAI/internal/model"
)

func TestBlockAndIsBlocked(t *testing.T) {
	s := NewStore()
	now := time.Now()

	rule := s.Block("example.com", "9.9.9.9", time.Hour, model.ReasonAutoHighScore, "system", now)
	if rule.ID == "" {
		t.Fatal("expected a rule id")
	}
	if !s.IsBlocked("example.com", "9.9.9.9", now) {
		t.Error("pair should be blocked")
	}
	if s.IsBlocked("example.com", "8.8.8.8", now) {
		t.Error("different address should not be blocked")
	}
	if s.IsBlocked("other.org", "9.9.9.9", now) {
		t.Error("different domain should not be blocked")
	}
}

func TestBlockExtendsMonotonically(t *testing.T) {
	s := NewStore()
	now := time.Now()

	first := s.Block("example.com", "9.9.9.9", 2*time.Hour, model.ReasonManual, "admin", now)
	// A shorter concurrent auto trigger must not shorten the block.
	second := s.Block("example.com", "9.9.9.9", time.Hour, model.ReasonAutoHighScore, "system", now)

	if second.ID != first.ID {
		t.Errorf("expected one rule for the pair, got ids %s and %s", first.ID, second.ID)
	}
	if !second.ExpiresAt.Equal(first.ExpiresAt) {
		t.Errorf("expiry shortened: %v -> %v", first.ExpiresAt, second.ExpiresAt)
	}

	// A longer duration extends the same rule.
	third := s.Block("example.com", "9.9.9.9", 4*time.Hour, model.ReasonAutoHighScore, "system", now)
	if third.ID != first.ID {
		t.Errorf("extension created a duplicate rule: %s", third.ID)
	}
	if want := now.Add(4 * time.Hour); !third.ExpiresAt.Equal(want) {
		t.Errorf("expected expiry %v, got %v", want, third.ExpiresAt)
	}

	if got := len(s.ListActive("example.com", now)); got != 1 {
		t.Errorf("expected exactly 1 active rule, got %d", got)
	}
}

func TestExpiredRuleIsNotBlocked(t *testing.T) {
	s := NewStore()
	now := time.Now()

	s.Block("example.com", "9.9.9.9", time.Minute, model.ReasonAutoHighScore, "system", now)

	later := now.Add(2 * time.Minute)
	if s.IsBlocked("example.com", "9.9.9.9", later) {
		t.Error("expired rule must not count as blocked")
	}
	if got := len(s.ListActive("example.com", later)); got != 0 {
		t.Errorf("expected no active rules after expiry, got %d", got)
	}
	// Retained for audit.
	if got := len(s.History("example.com", 0)); got != 1 {
		t.Errorf("expected 1 historical rule, got %d", got)
	}
}

func TestUnblock(t *testing.T) {
	s := NewStore()
	now := time.Now()

	rule := s.Block("example.com", "9.9.9.9", time.Hour, model.ReasonManual, "admin", now)

	if !s.Unblock(rule.ID, "admin", now) {
		t.Fatal("unblock of an active rule should succeed")
	}
	if s.IsBlocked("example.com", "9.9.9.9", now) {
		t.Error("pair should be unblocked after revocation")
	}
	// Already inactive.
	if s.Unblock(rule.ID, "admin", now) {
		t.Error("second unblock should return false")
	}
}

func TestUnblockUnknownRule(t *testing.T) {
	s := NewStore()
	now := time.Now()
	s.Block("example.com", "9.9.9.9", time.Hour, model.ReasonManual, "admin", now)

	if s.Unblock("no-such-rule", "admin", now) {
		t.Error("unblock of an unknown id should return false")
	}
	if got := len(s.ListActive("", now)); got != 1 {
		t.Errorf("store should be unchanged, got %d active rules", got)
	}
}

func TestListActiveOrdering(t *testing.T) {
	s := NewStore()
	now := time.Now()

	s.Block("example.com", "1.1.1.1", time.Hour, model.ReasonManual, "admin", now)
	s.Block("example.com", "2.2.2.2", time.Hour, model.ReasonManual, "admin", now.Add(time.Second))
	s.Block("other.org", "3.3.3.3", time.Hour, model.ReasonManual, "admin", now.Add(2*time.Second))

	rules := s.ListActive("example.com", now.Add(3*time.Second))
	if len(rules) != 2 {
		t.Fatalf("expected 2 rules for example.com, got %d", len(rules))
	}
	if rules[0].SrcIP != "2.2.2.2" || rules[1].SrcIP != "1.1.1.1" {
		t.Errorf("expected creation-time descending order, got %s, %s", rules[0].SrcIP, rules[1].SrcIP)
	}

	all := s.ListActive("", now.Add(3*time.Second))
	if len(all) != 3 {
		t.Errorf("expected 3 rules without domain filter, got %d", len(all))
	}
}

func TestConcurrentBlockSamePair(t *testing.T) {
	s := NewStore()
	now := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Block("example.com", "9.9.9.9", time.Duration(i+1)*time.Minute, model.ReasonAutoHighScore, "system", now)
		}(i)
	}
	wg.Wait()

	rules := s.ListActive("example.com", now)
	if len(rules) != 1 {
		t.Fatalf("expected exactly one active rule after racing blocks, got %d", len(rules))
	}
	if want := now.Add(32 * time.Minute); !rules[0].ExpiresAt.Equal(want) {
		t.Errorf("expected max expiry %v, got %v", want, rules[0].ExpiresAt)
	}
}

func TestSweepCompactsExpired(t *testing.T) {
	s := NewStore()
	now := time.Now()

	s.Block("example.com", "9.9.9.9", time.Millisecond, model.ReasonAutoHighScore, "system", now)
	s.sweep(now.Add(time.Second))

	if got := len(s.ListActive("", now.Add(time.Second))); got != 0 {
		t.Errorf("expected no active rules after sweep, got %d", got)
	}
	if got := len(s.History("example.com", 0)); got != 1 {
		t.Errorf("sweep must not erase history, got %d", got)
	}
}
