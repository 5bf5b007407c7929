// Package cache simulates a two-level, set-associative, write-through CPU
// cache in front of a physmem.Store.
//
// # Address Layout
//
// A Level splits an address into three fields:
//
//	| tag | index (log2 sets) | offset (log2 block size) |
//
// The index selects a set, the set is searched linearly for a valid line
// with a matching tag, and the offset selects the byte inside the line.
//
// # Replacement
//
// On a miss an invalid line is always used first. Otherwise the victim is the
// line with the smallest insertion stamp (FIFO), last access stamp (LRU) or
// access count (LFU); ties go to the lowest way. Stamps come from a logical
// clock owned by the Level that ticks once per Read or Write.
//
// # Write Policy
//
// Writes go to the store before the cache is touched, so the store is always
// canonical and lines never need writing back. A Level used on its own
// allocates on a write miss. A Hierarchy does not: a write only updates the
// levels that already hold the address.
//
// # Accounting
//
// Hierarchy backfills (loading L1 after an L2 hit, or both levels after a
// memory read) are ordinary Level writes and are counted by that Level.
// HierarchyStats.Requests counts the Read and Write calls made on the
// Hierarchy itself.
package cache
