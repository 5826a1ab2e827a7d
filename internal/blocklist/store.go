// Package blocklist is the authoritative set of active network-address
// blocks, with expiry, domain scoping and audit history.
package blocklist

import (
	"hash/fnv"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"ShieldAI/internal/model"
)

const defaultShardCount = 64

// shard guards one slice of the (domain, source address) key space.
// Operations on the same pair always serialize on the same shard, which
// upholds the single-active-rule invariant under concurrent auto and
// manual triggers; operations on different pairs rarely contend.
type shard struct {
	mu      sync.Mutex
	active  map[string]*model.BlockRule
	history []*model.BlockRule
}

// Store is an in-memory block store. Expiry is evaluated lazily at query
// time; the optional sweep only compacts the active maps.
type Store struct {
	shards     []*shard
	shardCount uint32

	// byID maps rule id to its pair key so revocation can find the shard.
	idMu sync.RWMutex
	byID map[string]string

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewStore creates an empty block store.
func NewStore() *Store {
	s := &Store{
		shards:     make([]*shard, defaultShardCount),
		shardCount: defaultShardCount,
		byID:       make(map[string]string),
		stopChan:   make(chan struct{}),
	}
	for i := range s.shards {
		s.shards[i] = &shard{active: make(map[string]*model.BlockRule)}
	}
	return s
}

func pairKey(domain, srcIP string) string {
	return domain + "|" + srcIP
}

func (s *Store) getShard(key string) *shard {
	hasher := fnv.New32a()
	hasher.Write([]byte(key))
	return s.shards[hasher.Sum32()%s.shardCount]
}

// IsBlocked reports whether an active (non-expired, non-revoked) rule
// exists for the pair. It never returns true for an expired rule, even
// one the sweep has not visited yet.
func (s *Store) IsBlocked(domain, srcIP string, now time.Time) bool {
	key := pairKey(domain, srcIP)
	sh := s.getShard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	rule, ok := sh.active[key]
	if !ok {
		return false
	}
	if !rule.ActiveAt(now) {
		delete(sh.active, key)
		return false
	}
	return true
}

// Block creates a rule for the pair, or extends the active one. The
// extension is monotonic: the expiry only ever moves later, so a manual
// long block is never shortened by a concurrent auto trigger, and
// repeated auto triggers are idempotent. The resulting rule is returned
// as a copy either way.
func (s *Store) Block(domain, srcIP string, duration time.Duration, reason, author string, now time.Time) *model.BlockRule {
	key := pairKey(domain, srcIP)
	expiry := now.Add(duration)

	sh := s.getShard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if rule, ok := sh.active[key]; ok && rule.ActiveAt(now) {
		if expiry.After(rule.ExpiresAt) {
			rule.ExpiresAt = expiry
		}
		c := *rule
		return &c
	}

	rule := &model.BlockRule{
		ID:        uuid.NewString(),
		Domain:    domain,
		SrcIP:     srcIP,
		CreatedAt: now,
		ExpiresAt: expiry,
		Reason:    reason,
		Author:    author,
	}
	sh.active[key] = rule
	sh.history = append(sh.history, rule)

	s.idMu.Lock()
	s.byID[rule.ID] = key
	s.idMu.Unlock()

	c := *rule
	return &c
}

// Unblock revokes a rule by id. It returns false when the rule does not
// exist or is already inactive, leaving the store unchanged.
func (s *Store) Unblock(ruleID, author string, now time.Time) bool {
	s.idMu.RLock()
	key, ok := s.byID[ruleID]
	s.idMu.RUnlock()
	if !ok {
		return false
	}

	sh := s.getShard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	rule, ok := sh.active[key]
	if !ok || rule.ID != ruleID || !rule.ActiveAt(now) {
		return false
	}
	rule.Revoked = true
	rule.RevokedBy = author
	rule.RevokedAt = now
	delete(sh.active, key)
	return true
}

// ListActive returns the active rules, optionally filtered by domain,
// ordered by creation time descending.
func (s *Store) ListActive(domain string, now time.Time) []*model.BlockRule {
	var rules []*model.BlockRule
	for _, sh := range s.shards {
		sh.mu.Lock()
		for key, rule := range sh.active {
			if !rule.ActiveAt(now) {
				delete(sh.active, key)
				continue
			}
			if domain != "" && rule.Domain != domain {
				continue
			}
			c := *rule
			rules = append(rules, &c)
		}
		sh.mu.Unlock()
	}
	sort.Slice(rules, func(i, j int) bool {
		return rules[i].CreatedAt.After(rules[j].CreatedAt)
	})
	return rules
}

// History returns every rule ever created for the domain, newest first,
// including expired and revoked ones. Inactive rules are retained for
// audit only; they never satisfy IsBlocked.
func (s *Store) History(domain string, limit int) []*model.BlockRule {
	var rules []*model.BlockRule
	for _, sh := range s.shards {
		sh.mu.Lock()
		for _, rule := range sh.history {
			if domain != "" && rule.Domain != domain {
				continue
			}
			c := *rule
			rules = append(rules, &c)
		}
		sh.mu.Unlock()
	}
	sort.Slice(rules, func(i, j int) bool {
		return rules[i].CreatedAt.After(rules[j].CreatedAt)
	})
	if limit > 0 && len(rules) > limit {
		rules = rules[:limit]
	}
	return rules
}

// StartSweep launches a periodic compaction of expired rules from the
// active maps. Purely an optimization: IsBlocked is already lazy.
func (s *Store) StartSweep(interval time.Duration) {
	if interval <= 0 {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.sweep(time.Now())
			case <-s.stopChan:
				return
			}
		}
	}()
	log.Printf("Block store sweep started with interval %s", interval)
}

// StopSweep stops the compaction goroutine.
func (s *Store) StopSweep() {
	close(s.stopChan)
	s.wg.Wait()
}

func (s *Store) sweep(now time.Time) {
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for key, rule := range sh.active {
			if !rule.ActiveAt(now) {
				delete(sh.active, key)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	if removed > 0 {
		log.Printf("Block store sweep removed %d expired rule(s)", removed)
	}
}
