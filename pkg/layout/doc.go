// Package layout converts task levels into 2D render positions.
//
// [ComputePositions] places every level on its own row and centers each row
// on the widest one, then runs a short, bounded relaxation pass that pushes
// apart node centers closer than [Options.MinDistance]. The result is purely
// cosmetic: levels are never changed and positions carry no identity. They
// are recomputed on every structural edit and not expected to be stable
// across edits, only free of visible overlap for the current snapshot.
//
// Output is deterministic for a given input: rows are visited in level order,
// nodes within a row in the order supplied, and repulsion pairs in ascending
// ID order.
package layout
