// Package primitive defines the closed-world primitive catalog: typed
// signatures, the read_only/effecting permission flag, and a registry
// that freezes before any plan runs. Plans can only ever call what a
// registry declares.
package primitive
