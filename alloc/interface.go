package alloc

import (
	"fmt"
	"io"
	"strings"

	"github.com/joshuapare/memsim/physmem"
)

// BlockID identifies an allocation. Zero is never issued.
type BlockID = uint32

// Kind selects the allocation algorithm.
type Kind uint8

const (
	FirstFit Kind = iota + 1
	BestFit
	WorstFit
	Buddy
)

// DefaultMinBlockSize is the buddy allocator's smallest block.
const DefaultMinBlockSize = 32

var kindNames = map[Kind]string{
	FirstFit: "first_fit",
	BestFit:  "best_fit",
	WorstFit: "worst_fit",
	Buddy:    "buddy",
}

// String returns the config/CLI spelling (first_fit, best_fit, worst_fit, buddy).
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// DisplayName returns a human-readable strategy name.
func (k Kind) DisplayName() string {
	switch k {
	case FirstFit:
		return "First Fit"
	case BestFit:
		return "Best Fit"
	case WorstFit:
		return "Worst Fit"
	case Buddy:
		return "Buddy Allocation (Power-of-Two)"
	default:
		return "Unknown"
	}
}

// ParseKind accepts the String() spelling, case-insensitively. Dashes and
// spaces are treated as underscores ("best-fit", "Best Fit").
func ParseKind(s string) (Kind, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	for k, name := range kindNames {
		if name == norm {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q (valid: first_fit, best_fit, worst_fit, buddy)", ErrBadStrategy, s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if _, ok := kindNames[k]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrBadStrategy, uint8(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Allocator is implemented by *Standard and *BuddyAllocator only.
type Allocator interface {
	// Allocate reserves size bytes and returns the new block's ID.
	Allocate(size uint64) (BlockID, error)

	// Deallocate releases the block with the given ID.
	Deallocate(id BlockID) error

	// DeallocateByAddress releases the allocated block starting at addr.
	DeallocateByAddress(addr uint64) error

	// BlockAddress returns the start address of an allocated block.
	BlockAddress(id BlockID) (uint64, error)

	// Blocks returns every block, allocated and free, in address order.
	Blocks() []BlockInfo

	// Stats returns a snapshot of the allocator counters.
	Stats() Stats

	// Dump writes the memory layout to w.
	Dump(w io.Writer)

	// Utilization is used/total as a percentage.
	Utilization() float64

	// InternalFragmentation is wasted bytes inside allocated blocks as a percentage.
	InternalFragmentation() float64

	// ExternalFragmentation is free bytes outside the largest free block as a percentage.
	ExternalFragmentation() float64

	// Kind reports the strategy in use.
	Kind() Kind

	sealed()
}

// Option tunes allocator construction.
type Option func(*options)

type options struct {
	minBlock uint64
}

// WithMinBlockSize sets the buddy allocator's smallest block. Ignored by Standard.
func WithMinBlockSize(n uint64) Option {
	return func(o *options) { o.minBlock = n }
}

// New builds the allocator for kind over store.
func New(store physmem.Store, kind Kind, opts ...Option) (Allocator, error) {
	o := options{minBlock: DefaultMinBlockSize}
	for _, opt := range opts {
		opt(&o)
	}

	switch kind {
	case FirstFit, BestFit, WorstFit:
		s, err := NewStandard(store, kind)
		if err != nil {
			return nil, err
		}
		return s, nil
	case Buddy:
		b, err := NewBuddy(store, o.minBlock)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrBadStrategy, kind)
	}
}
