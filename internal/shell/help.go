package shell

const helpText = `
=== Memory Simulator Commands ===

Memory Management:
  init memory <size>          Initialize physical memory (rebuilds cache and VM)
  set allocator <type>        first_fit, best_fit, worst_fit or buddy
  set cache on|off            Enable or disable the L1/L2 cache hierarchy
  set vm on|off               Enable or disable virtual memory

Memory Operations:
  malloc <size>               Allocate a block
  free <block_id>             Deallocate a block by ID
  free_addr <address>         Deallocate the block starting at address
  read <address>              Read one byte
  write <address> <byte>      Write one byte

Visualization & Statistics:
  dump memory|cache|vm        Display the layout of a component
  stats [alloc|cache|vm|session]
                              Show statistics (full report without argument)
  recent [count]              Show the latest accesses
  flush                       Invalidate cache lines and resident pages
  reset                       Reset session statistics

General:
  help                        Show this help message
  exit, quit                  Leave the shell

Numbers may be decimal or 0x-prefixed hexadecimal. Lines starting with # are ignored.

`
