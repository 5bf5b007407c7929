// Package testutil builds small simulator fixtures for tests of the
// packages layered on top of system.
package testutil

import (
	"testing"

	"github.com/joshuapare/memsim/cache"
	"github.com/joshuapare/memsim/config"
	"github.com/joshuapare/memsim/system"
	"github.com/joshuapare/memsim/vm"
)

// Option adjusts the configuration before the system is built.
type Option func(*config.Config)

// WithCache enables a small direct-mapped L1 (4 sets, 16-byte blocks) over
// a 2-way L2 (8 sets, 16-byte blocks), both LRU.
func WithCache(cfg *config.Config) {
	cfg.Cache.Enabled = true
	cfg.Cache.L1 = cache.Config{Sets: 4, Ways: 1, BlockSize: 16, Policy: cache.LRU}
	cfg.Cache.L2 = cache.Config{Sets: 8, Ways: 2, BlockSize: 16, Policy: cache.LRU}
}

// WithVM enables 10 virtual pages of 256 bytes over 3 frames, FIFO.
func WithVM(cfg *config.Config) {
	cfg.VM = config.VM{Enabled: true, Pages: 10, Frames: 3, PageSize: 256, Policy: vm.FIFO}
}

// NewSystem builds a validated System with size bytes of heap memory and
// closes it when the test ends.
//
// Example:
//
//	sys := testutil.NewSystem(t, 4096, testutil.WithCache)
func NewSystem(t *testing.T, size uint64, opts ...Option) *system.System {
	t.Helper()

	cfg := config.Default()
	cfg.Memory.Size = size
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("invalid test configuration: %v", err)
	}

	sys, err := system.New(cfg)
	if err != nil {
		t.Fatalf("system.New: %v", err)
	}
	t.Cleanup(func() { _ = sys.Close() })
	return sys
}
