// Package core provides the public surface of the architecture copilot
// runtime: configuration loading, process-wide logging, the typed stream
// event envelope, the error taxonomy, and the per-turn agent state.
package core
