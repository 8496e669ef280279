// Package usage implements rolling per-user token accounting and quota
// admission: an Aggregator keyed by user_id (or anonymous:{thread_id}),
// a pre-request quota check, and an hourly-capped inactivity sweep.
package usage

import (
	"fmt"
	"sync"
	"time"

	"github.com/migrationcopilot/architecture-agent/core"
)

// Record is one line of the append-only usage log.
type Record struct {
	UserID       string    `json:"user_id,omitempty"`
	ThreadID     string    `json:"thread_id"`
	Timestamp    time.Time `json:"timestamp"`
	Query        string    `json:"query"`
	Response     string    `json:"response"`
	InputTokens  int64     `json:"input_tokens"`
	OutputTokens int64     `json:"output_tokens"`
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	Persona      string    `json:"persona"`
}

// TotalTokens is the sum counted against the rolling quota window.
func (r Record) TotalTokens() int64 { return r.InputTokens + r.OutputTokens }

// Key returns the aggregation key for a record: the user_id when
// present, else "anonymous:{thread_id}".
func (r Record) Key() string {
	return Key(r.UserID, r.ThreadID)
}

// Key computes the aggregation key given a possibly-empty user_id.
func Key(userID, threadID string) string {
	if userID != "" {
		return userID
	}
	return "anonymous:" + threadID
}

// Limits holds an optional daily token limit, the rolling window width
// in hours, and the headroom reserved for an incoming turn at admission
// time.
type Limits struct {
	DailyTokenLimit *int64
	WindowHours     int
	TurnReserve     int64 // estimated tokens an admitted turn will spend; defaultTurnReserve when <= 0
	Enforce         bool
}

// FromConfig builds Limits from the loaded configuration document.
func FromConfig(cfg core.QuotaConfig) Limits {
	return Limits{
		DailyTokenLimit: cfg.DailyTokenLimit,
		WindowHours:     cfg.WindowHours,
		TurnReserve:     cfg.TurnReserve,
		Enforce:         cfg.Enforce,
	}
}

const defaultInactivityTTL = 24 * time.Hour
const defaultCleanupInterval = time.Hour
const defaultTurnReserve = 100

// userUsage is the per-key rolling state, guarded by its own mutex so
// concurrent turns for different users never contend.
type userUsage struct {
	mu         sync.Mutex
	items      []Record
	lastAccess time.Time
}

func (u *userUsage) tokensInWindow(now time.Time, window time.Duration) int64 {
	var total int64
	cutoff := now.Add(-window)
	kept := u.items[:0]
	for _, item := range u.items {
		if item.Timestamp.After(cutoff) {
			total += item.TotalTokens()
			kept = append(kept, item)
		}
	}
	u.items = kept
	return total
}

// Aggregator is the process-wide usage tracker, one userUsage per key.
type Aggregator struct {
	limits Limits

	mu    sync.RWMutex
	users map[string]*userUsage

	lastSweep time.Time
	sweepMu   sync.Mutex
}

// NewAggregator builds an empty aggregator with the given quota limits.
func NewAggregator(limits Limits) *Aggregator {
	return &Aggregator{limits: limits, users: make(map[string]*userUsage)}
}

func (a *Aggregator) getOrCreate(key string) *userUsage {
	a.mu.RLock()
	u, ok := a.users[key]
	a.mu.RUnlock()
	if ok {
		return u
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if u, ok := a.users[key]; ok {
		return u
	}
	u = &userUsage{lastAccess: now()}
	a.users[key] = u
	return u
}

// CheckQuota returns nil when the user has headroom for another turn,
// or a *core.QuotaExceeded describing the breach. Admission reserves
// TurnReserve tokens for the incoming turn, so a turn that would cross
// the limit is rejected before any LLM activity rather than after the
// tokens are already spent. A nil DailyTokenLimit, or Enforce=false,
// always passes.
func (a *Aggregator) CheckQuota(userID, threadID string) error {
	if !a.limits.Enforce || a.limits.DailyTokenLimit == nil {
		return nil
	}
	key := Key(userID, threadID)
	u := a.getOrCreate(key)

	reserve := a.limits.TurnReserve
	if reserve <= 0 {
		reserve = defaultTurnReserve
	}

	window := time.Duration(a.limits.WindowHours) * time.Hour
	u.mu.Lock()
	defer u.mu.Unlock()
	current := u.tokensInWindow(now(), window)
	u.lastAccess = now()

	if current+reserve > *a.limits.DailyTokenLimit {
		return &core.QuotaExceeded{
			CurrentUsage: current,
			Limit:        *a.limits.DailyTokenLimit,
			WindowHours:  a.limits.WindowHours,
		}
	}
	return nil
}

// AddUsageItem accumulates a record's tokens into the owning user's
// rolling window and refreshes last_access. Called unconditionally
// after a turn completes, even when enforce=false, so usage history
// stays accurate if quotas are enabled later. A record with a zero
// Timestamp is stamped with the current time so it counts immediately.
func (a *Aggregator) AddUsageItem(item Record) {
	if item.Timestamp.IsZero() {
		item.Timestamp = now().UTC()
	}
	key := item.Key()
	u := a.getOrCreate(key)

	u.mu.Lock()
	defer u.mu.Unlock()
	u.items = append(u.items, item)
	u.lastAccess = now()
}

// CurrentUsage reports the token total currently inside the rolling
// window for a key, used by tests and diagnostics.
func (a *Aggregator) CurrentUsage(userID, threadID string) int64 {
	key := Key(userID, threadID)
	u := a.getOrCreate(key)
	window := time.Duration(a.limits.WindowHours) * time.Hour

	u.mu.Lock()
	defer u.mu.Unlock()
	return u.tokensInWindow(now(), window)
}

// Sweep evicts users whose last access is older than ttl, but does
// nothing if called again within defaultCleanupInterval of the last
// sweep, so cleanup runs at most hourly no matter how often the ticker
// fires.
func (a *Aggregator) Sweep(ttl time.Duration) int {
	if ttl <= 0 {
		ttl = defaultInactivityTTL
	}

	a.sweepMu.Lock()
	if !a.lastSweep.IsZero() && now().Sub(a.lastSweep) < defaultCleanupInterval {
		a.sweepMu.Unlock()
		return 0
	}
	a.lastSweep = now()
	a.sweepMu.Unlock()

	cutoff := now().Add(-ttl)
	evicted := 0
	a.mu.Lock()
	defer a.mu.Unlock()
	for key, u := range a.users {
		u.mu.Lock()
		stale := u.lastAccess.Before(cutoff)
		u.mu.Unlock()
		if stale {
			delete(a.users, key)
			evicted++
		}
	}
	return evicted
}

// Replay restores aggregator state at startup by replaying records
// from the usage log sink that fall inside the rolling window,
// discarding the rest.
func (a *Aggregator) Replay(records []Record) error {
	window := time.Duration(a.limits.WindowHours) * time.Hour
	cutoff := now().Add(-window)
	for _, r := range records {
		if r.Timestamp.Before(cutoff) {
			continue
		}
		if r.InputTokens < 0 || r.OutputTokens < 0 {
			return fmt.Errorf("replay: negative token count in record for %s", r.Key())
		}
		a.AddUsageItem(r)
	}
	return nil
}

// now is overridable in tests; production always uses wall-clock time.
var now = time.Now
