// Package vm simulates demand-paged virtual memory over a physmem.Store.
//
// A virtual address is split into a page number (high bits) and an offset
// (low log2(page size) bits). Resident pages map to physical frames; frame f
// occupies bytes [f*pageSize, (f+1)*pageSize) of the store.
//
// A miss is a page fault: the first free frame is used, or a victim is
// evicted by FIFO (load order), LRU (oldest access) or Clock (second chance).
// The faulting page is then filled from a synthetic disk where byte i of
// page p is (p*pageSize + i) % 256. Dirty pages are counted as written back
// on eviction but nothing is persisted.
//
// Page numbers past the configured page count fail before any counter or
// the logical clock changes, so Faults + Hits == Total always holds.
package vm
