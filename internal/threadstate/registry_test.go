package threadstate

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/migrationcopilot/architecture-agent/core"
	"github.com/migrationcopilot/architecture-agent/internal/analyticalstore"
)

func newTestRegistry() *Registry {
	return NewRegistry(analyticalstore.NewInMemoryFactory())
}

func TestGetOrCreate_ConcurrentCallsReturnSameInstance(t *testing.T) {
	r := newTestRegistry()

	const n = 32
	results := make([]*AgentDeps, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			results[i] = r.GetOrCreate("t1", "core", false, "u1")
		}()
	}
	wg.Wait()

	first := results[0]
	require.NotNil(t, first)
	for _, got := range results {
		assert.Same(t, first, got)
	}
}

// TestCrossThreadIsolation drives a full turn's worth of mutation on
// one thread's AgentDeps and checks the other thread's namespace,
// state, and hidden-call table are untouched.
func TestCrossThreadIsolation(t *testing.T) {
	r := newTestRegistry()

	t1 := r.GetOrCreate("t1", "core", false, "u1")
	t2 := r.GetOrCreate("t2", "core", false, "u2")

	t2Namespace := t2.Namespace
	t2Persona := t2.State.Persona()
	t2Ref := t2.NextOutputRef()

	require.True(t, t1.TryBeginTurn())
	t1.State.SetPersona("system_architect")
	t1.RegisterHiddenToolCall(&core.HiddenToolCall{ID: "viz-1", Type: core.HiddenToolCallChart, Hidden: true})
	t1.NextOutputRef()
	t1.EndTurn()

	assert.Equal(t, t2Namespace, t2.Namespace)
	assert.Equal(t, t2Persona, t2.State.Persona())
	_, found := t2.GetHiddenToolCall("viz-1")
	assert.False(t, found)

	// t2's own output sequence is unaffected by t1's activity.
	secondT2Ref := t2.NextOutputRef()
	assert.NotEqual(t, t2Ref, secondT2Ref)

	again := r.GetOrCreate("t2", "core", false, "u2")
	assert.Same(t, t2, again)
}

func TestTryBeginTurn_RejectsConcurrentTurnOnSameThread(t *testing.T) {
	r := newTestRegistry()
	deps := r.GetOrCreate("t1", "core", false, "")

	require.True(t, deps.TryBeginTurn())
	assert.False(t, deps.TryBeginTurn())

	deps.EndTurn()
	assert.True(t, deps.TryBeginTurn())
}

func TestNextOutputRef_IsSequentialAndCollisionFree(t *testing.T) {
	r := newTestRegistry()
	deps := r.GetOrCreate("t1", "core", false, "")

	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		ref := deps.NextOutputRef()
		assert.False(t, seen[ref], "ref %s reused", ref)
		seen[ref] = true
	}
}

func TestCleanup_RemovesThreadAndDropsNamespace(t *testing.T) {
	r := newTestRegistry()
	r.GetOrCreate("t1", "core", false, "")

	_, ok := r.Get("t1")
	require.True(t, ok)

	r.Cleanup("t1")

	_, ok = r.Get("t1")
	assert.False(t, ok)
}

func TestIterThreadIDs_ReturnsSnapshotOfAllThreads(t *testing.T) {
	r := newTestRegistry()
	r.GetOrCreate("t1", "core", false, "")
	r.GetOrCreate("t2", "core", false, "")

	ids := r.IterThreadIDs()
	assert.ElementsMatch(t, []string{"t1", "t2"}, ids)
}
