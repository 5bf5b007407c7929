// Package physmem provides the simulated physical memory that every other
// memsim subsystem reads and writes.
//
// # Overview
//
// A Memory is a fixed-size, zero-initialised byte array with bounds-checked
// single-byte and range access. It also carries a "used size" counter that is
// owned by whichever allocator runs on top of it; Memory never changes that
// counter on its own except in Clear.
//
// # Back ends
//
//   - New(size): heap-backed slice. Works everywhere.
//   - NewMapped(size): anonymous private mapping on Linux and macOS
//     (golang.org/x/sys/unix), heap fallback on other platforms. Call Close
//     to release the mapping.
//
// # Store
//
// Consumers (alloc, cache, vm) depend on the Store interface rather than on
// *Memory so tests can substitute instrumented stores.
//
// # Thread Safety
//
// Memory is not thread-safe. The simulator is single-threaded by design.
package physmem
