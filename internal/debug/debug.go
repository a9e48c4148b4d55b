// Package debug exposes a single build-tag-gated flag consulted by
// internal/automaton to decide whether expensive invariant checks
// (InvariantViolation-class assertions) run. Build with -tags debug to
// enable them; production builds compile the checks out entirely.
package debug

// Debug is true only when the binary is built with -tags debug.
const Debug = debugMode
