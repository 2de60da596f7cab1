// Package rules gates every dependency edit and audits whole projects.
//
// An [Engine] is built from an explicit [Policy]; several engines with
// different policies (per tenant, per test) can coexist. [Engine.Validate]
// evaluates a proposed edge against a graph snapshot and returns a [Verdict]
// listing hard errors, which block the edit, and warnings, which permit it
// only after explicit confirmation. Validation is pure: the graph is never
// modified, so the caller commits the edge only after a successful verdict.
//
// # Evaluation Order
//
//  0. Unknown task IDs (TASK_NOT_FOUND) short-circuit.
//  1. Self reference (SELF_DEPENDENCY) short-circuits.
//  2. Existing edge (DEPENDENCY_EXISTS) short-circuits.
//  3. Cross-project edge when the policy forbids it.
//  4. Owner mismatch when the policy requires the same owner.
//  5. Dependent already at its fan-out limit.
//  6. Prerequisite already completed (warning).
//  7. Cycle, reported with the path the edge would close.
//  8. Depth limit, skipped when the edge already closes a cycle.
//
// Checks 3 to 8 accumulate so every problem is reported at once.
//
// # Integrity Scan
//
// [Engine.ScanIntegrity] audits raw task and edge records that may have been
// written outside the edit path. It reports orphaned edges, self loops,
// duplicates, residual cycles and limit violations as issues, and isolated
// tasks and long chains as suggestions. It never blocks anything.
package rules
