// Package plan defines the plan document model and its two static
// checks. Parse decodes a YAML document into a Plan and enforces
// structure: known step kinds, required fields, unique and monotonically
// increasing ids across the whole document. Validate resolves the plan
// against a primitive registry: every call target must be declared,
// argument types must match the declared signature under the configured
// coercion policy, and every reference must target a binding that
// dominates the referencing step.
//
// Both checks are pure. No primitive is invoked until a plan has passed
// them and reaches the executor.
package plan
