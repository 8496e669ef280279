// Package threadstate is the exclusive owner of per-thread AgentDeps:
// conversation state, the scratch namespace handle, turn serialization,
// and hidden-visualization bookkeeping.
package threadstate

import (
	"context"
	"fmt"
	"sync"

	"github.com/migrationcopilot/architecture-agent/core"
	"github.com/migrationcopilot/architecture-agent/internal/analyticalstore"
)

// AgentDeps is the per-thread dependency bundle: state, a scratch
// namespace handle, a migration target string, and a provider tag. No
// global mutable state is shared across threads beyond the read-only
// catalog and configuration.
type AgentDeps struct {
	ThreadID        string
	State           *core.AgentState
	Store           analyticalstore.AnalyticalStore
	Namespace       string
	MigrationTarget string
	LLMProvider     string

	// turnMu guards inFlight, the busy marker that TryBeginTurn sets and
	// EndTurn clears; the mutex itself is held only while the marker is
	// read or written, not for the lifetime of a turn.
	turnMu   sync.Mutex
	inFlight bool

	hiddenMu    sync.Mutex
	hiddenCalls map[string]*core.HiddenToolCall
	outputSeq   int
}

// TryBeginTurn marks the thread busy, returning false if a turn is
// already in flight so the caller can reject with ConcurrentTurn
// instead of interleaving.
func (d *AgentDeps) TryBeginTurn() bool {
	d.turnMu.Lock()
	defer d.turnMu.Unlock()
	if d.inFlight {
		return false
	}
	d.inFlight = true
	return true
}

// EndTurn releases the busy marker set by TryBeginTurn.
func (d *AgentDeps) EndTurn() {
	d.turnMu.Lock()
	defer d.turnMu.Unlock()
	d.inFlight = false
}

// NextOutputRef returns the next deterministic, collision-free scratch
// table name for this thread: "output_1", "output_2", ...
func (d *AgentDeps) NextOutputRef() string {
	d.hiddenMu.Lock()
	defer d.hiddenMu.Unlock()
	d.outputSeq++
	return fmt.Sprintf("output_%d", d.outputSeq)
}

// RegisterHiddenToolCall stores a hidden visualization, keyed by its id.
// Ids are derived deterministically from the call's arguments, so a
// repeated identical call replaces the entry already stored under that id.
func (d *AgentDeps) RegisterHiddenToolCall(call *core.HiddenToolCall) {
	d.hiddenMu.Lock()
	defer d.hiddenMu.Unlock()
	if d.hiddenCalls == nil {
		d.hiddenCalls = make(map[string]*core.HiddenToolCall)
	}
	d.hiddenCalls[call.ID] = call
}

// GetHiddenToolCall looks up a previously registered hidden call by id.
func (d *AgentDeps) GetHiddenToolCall(id string) (*core.HiddenToolCall, bool) {
	d.hiddenMu.Lock()
	defer d.hiddenMu.Unlock()
	call, ok := d.hiddenCalls[id]
	return call, ok
}

// RevealHiddenToolCall flips a call's hidden flag to false. Idempotent:
// revealing an already-revealed call is a no-op that still returns
// true.
func (d *AgentDeps) RevealHiddenToolCall(id string) (*core.HiddenToolCall, bool) {
	d.hiddenMu.Lock()
	defer d.hiddenMu.Unlock()
	call, ok := d.hiddenCalls[id]
	if !ok {
		return nil, false
	}
	call.Hidden = false
	return call, true
}

// Registry is the exclusive owner of AgentDeps; every tool reads and
// mutates AgentDeps only through a Registry-issued handle.
type Registry struct {
	mu    sync.Mutex
	deps  map[string]*AgentDeps
	store analyticalstore.Factory

	// DefaultMigrationTarget and DefaultLLMProvider seed the matching
	// AgentDeps fields for every newly created thread. Set once at
	// startup, before any turn runs.
	DefaultMigrationTarget string
	DefaultLLMProvider     string
}

// NewRegistry creates an empty registry. store builds a fresh
// AnalyticalStore scratch namespace for each new thread.
func NewRegistry(store analyticalstore.Factory) *Registry {
	return &Registry{
		deps:  make(map[string]*AgentDeps),
		store: store,
	}
}

// GetOrCreate is idempotent: concurrent calls for the same thread ID
// return the same *AgentDeps instance.
func (r *Registry) GetOrCreate(threadID string, defaultPersona string, autoDelegate bool, userID string) *AgentDeps {
	r.mu.Lock()
	defer r.mu.Unlock()

	if deps, ok := r.deps[threadID]; ok {
		return deps
	}

	namespace := "thread:" + threadID
	deps := &AgentDeps{
		ThreadID:        threadID,
		State:           core.NewAgentState(defaultPersona, autoDelegate, userID),
		Store:           r.store.NewStore(),
		Namespace:       namespace,
		MigrationTarget: r.DefaultMigrationTarget,
		LLMProvider:     r.DefaultLLMProvider,
	}
	r.deps[threadID] = deps
	return deps
}

// Cleanup releases scratch namespace resources and removes the entry.
func (r *Registry) Cleanup(threadID string) {
	r.mu.Lock()
	deps, ok := r.deps[threadID]
	if ok {
		delete(r.deps, threadID)
	}
	r.mu.Unlock()

	if ok && deps.Store != nil {
		_ = deps.Store.DropNamespace(context.Background(), deps.Namespace)
	}
}

// IterThreadIDs returns a snapshot of thread IDs, used on shutdown to
// drive cleanup of every remaining thread.
func (r *Registry) IterThreadIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.deps))
	for id := range r.deps {
		ids = append(ids, id)
	}
	return ids
}

// Get returns the AgentDeps for threadID without creating one, for
// read-only callers such as /data handlers.
func (r *Registry) Get(threadID string) (*AgentDeps, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	deps, ok := r.deps[threadID]
	return deps, ok
}
