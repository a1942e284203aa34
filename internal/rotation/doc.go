// Package rotation implements the snapshot rotation core: recognizing
// managed snapshots by their encoded names, deciding which retention
// buckets are due, selecting target guests, taking new snapshots and
// pruning redundant ones per policy, and aggregating per-guest outcomes
// into a run report.
//
// The hypervisor itself is reached through the Hypervisor interface;
// this package never talks HTTP directly.
package rotation
