package vm

import (
	"fmt"
	"strings"
)

// Policy selects the page evicted when every frame is in use.
type Policy uint8

const (
	FIFO Policy = iota + 1
	LRU
	Clock
)

func (p Policy) String() string {
	switch p {
	case FIFO:
		return "FIFO"
	case LRU:
		return "LRU"
	case Clock:
		return "Clock"
	default:
		return fmt.Sprintf("Policy(%d)", uint8(p))
	}
}

func (p Policy) valid() bool { return p >= FIFO && p <= Clock }

// ParsePolicy accepts fifo, lru or clock in any case.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fifo":
		return FIFO, nil
	case "lru":
		return LRU, nil
	case "clock":
		return Clock, nil
	}
	return 0, fmt.Errorf("%w: %q (valid: fifo, lru, clock)", ErrBadPolicy, s)
}

// MarshalText implements encoding.TextMarshaler using the lower-case name.
func (p Policy) MarshalText() ([]byte, error) {
	if !p.valid() {
		return nil, fmt.Errorf("%w: %d", ErrBadPolicy, uint8(p))
	}
	return []byte(strings.ToLower(p.String())), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Policy) UnmarshalText(text []byte) error {
	parsed, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
