package shell

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Command is one parsed shell line.
type Command struct {
	Name string
	Args []string
}

// Empty reports whether the line held no command (blank or comment).
func (c Command) Empty() bool { return c.Name == "" }

// Parse splits line into a lower-cased command word and its arguments.
// Blank lines and lines starting with # yield an empty Command.
func Parse(line string) Command {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return Command{}
	}
	fields := strings.Fields(line)
	return Command{Name: strings.ToLower(fields[0]), Args: fields[1:]}
}

// ParseNumber accepts decimal or 0x-prefixed hexadecimal.
func ParseNumber(s string) (uint64, error) {
	base := 10
	digits := s
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		base, digits = 16, s[2:]
	}
	n, err := strconv.ParseUint(digits, base, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadNumber, s)
	}
	return n, nil
}

func parseByte(s string) (byte, error) {
	n, err := ParseNumber(s)
	if err != nil {
		return 0, err
	}
	if n > math.MaxUint8 {
		return 0, fmt.Errorf("%w: %q does not fit in a byte", ErrBadNumber, s)
	}
	return byte(n), nil
}

func parseID(s string) (uint32, error) {
	n, err := ParseNumber(s)
	if err != nil {
		return 0, err
	}
	if n > math.MaxUint32 {
		return 0, fmt.Errorf("%w: block id %q too large", ErrBadNumber, s)
	}
	return uint32(n), nil
}

func parseSwitch(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "enable", "enabled", "1":
		return true, nil
	case "off", "false", "disable", "disabled", "0":
		return false, nil
	}
	return false, fmt.Errorf("%w: expected on or off, got %q", ErrUsage, s)
}

func usage(form string) error {
	return fmt.Errorf("%w: %s", ErrUsage, form)
}
