// Package exec walks validated plans. The executor resolves arguments
// from a single-assignment binding environment, invokes primitives
// through the firewall gate, and appends one record per call to an
// execution trace. The walk is deterministic: steps run in dependency
// order and the first failure halts everything, leaving the partial
// trace intact. Optional parallelism overlaps independent read-only
// calls without changing the observable trace.
package exec
