// Package config loads and validates the simulator configuration.
//
// Files are YAML (.yaml, .yml) or JSON (.json). Values missing from a file
// keep their defaults, so a file only needs the settings it changes:
//
//	memory:
//	  size: 1024
//	allocator:
//	  strategy: buddy
//	  min_block: 32
//	cache:
//	  enabled: true
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/joshuapare/memsim/alloc"
	"github.com/joshuapare/memsim/cache"
	"github.com/joshuapare/memsim/internal/buf"
	"github.com/joshuapare/memsim/internal/logger"
	"github.com/joshuapare/memsim/vm"
)

// Backing store kinds.
const (
	BackingHeap = "heap"
	BackingMmap = "mmap"
)

// Format is a configuration encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ParseFormat accepts yaml, yml or json.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Config is the complete simulator configuration.
type Config struct {
	Memory    Memory    `yaml:"memory" json:"memory"`
	Allocator Allocator `yaml:"allocator" json:"allocator"`
	Cache     Cache     `yaml:"cache" json:"cache"`
	VM        VM        `yaml:"vm" json:"vm"`
	Log       Log       `yaml:"log" json:"log"`
}

// Memory configures the backing store.
type Memory struct {
	Size    uint64 `yaml:"size" json:"size"`
	Backing string `yaml:"backing" json:"backing"` // heap or mmap
}

// Allocator configures the allocator created at startup.
type Allocator struct {
	Strategy alloc.Kind `yaml:"strategy" json:"strategy"`
	MinBlock uint64     `yaml:"min_block" json:"min_block"` // buddy only
}

// Cache configures the L1/L2 hierarchy.
type Cache struct {
	Enabled bool         `yaml:"enabled" json:"enabled"`
	L1      cache.Config `yaml:"l1" json:"l1"`
	L2      cache.Config `yaml:"l2" json:"l2"`
}

// VM configures paged virtual memory.
type VM struct {
	Enabled  bool      `yaml:"enabled" json:"enabled"`
	Pages    int       `yaml:"pages" json:"pages"`
	Frames   int       `yaml:"frames" json:"frames"`
	PageSize int       `yaml:"page_size" json:"page_size"`
	Policy   vm.Policy `yaml:"policy" json:"policy"`
}

// Geometry returns the vm package view of the settings.
func (v VM) Geometry() vm.Config {
	return vm.Config{Pages: v.Pages, Frames: v.Frames, PageSize: v.PageSize, Policy: v.Policy}
}

// Log configures internal/logger.
type Log struct {
	Level string `yaml:"level" json:"level"` // empty disables logging
	File  string `yaml:"file" json:"file"`
	JSON  bool   `yaml:"json" json:"json"`
}

// Options converts the settings to logger options. An empty level disables logging.
func (l Log) Options() (logger.Options, error) {
	if l.Level == "" {
		return logger.Options{}, nil
	}
	level, err := logger.ParseLevel(l.Level)
	if err != nil {
		return logger.Options{}, err
	}
	return logger.Options{Enabled: true, File: l.File, Level: level, JSON: l.JSON}, nil
}

// Default returns the built-in configuration: 64 KiB of heap memory with a
// best-fit allocator, and cache and VM geometry ready but disabled.
func Default() Config {
	return Config{
		Memory: Memory{Size: 64 * 1024, Backing: BackingHeap},
		Allocator: Allocator{
			Strategy: alloc.BestFit,
			MinBlock: alloc.DefaultMinBlockSize,
		},
		Cache: Cache{
			L1: cache.Config{Sets: 8, Ways: 2, BlockSize: 64, Policy: cache.LRU},
			L2: cache.Config{Sets: 16, Ways: 4, BlockSize: 64, Policy: cache.LRU},
		},
		VM: VM{Pages: 64, Frames: 16, PageSize: 512, Policy: vm.LRU},
	}
}

// Load reads path on top of Default and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	format, err := ParseFormat(filepath.Ext(path))
	if err != nil {
		return cfg, fmt.Errorf("load %s: %w", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("load %s: %w", path, err)
	}
	if err := cfg.Decode(data, format); err != nil {
		return cfg, fmt.Errorf("load %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("load %s: %w", path, err)
	}

	logger.Debug("config: loaded", "path", path, "format", string(format))
	return cfg, nil
}

// Decode merges data into c. Unknown keys are rejected.
func (c *Config) Decode(data []byte, format Format) error {
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Encode writes c to w in the given format.
func (c Config) Encode(w io.Writer, format Format) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(c); err != nil {
			return err
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(c)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Validate reports every problem at once, each wrapped with ErrInvalid.
func (c Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if c.Memory.Size == 0 {
		add("memory.size must be > 0")
	}
	switch c.Memory.Backing {
	case "", BackingHeap, BackingMmap:
	default:
		add("memory.backing %q (valid: heap, mmap)", c.Memory.Backing)
	}

	if _, err := c.Allocator.Strategy.MarshalText(); err != nil {
		add("allocator.strategy: %v", err)
	}
	if c.Allocator.Strategy == alloc.Buddy {
		if !buf.IsPowerOfTwo(c.Memory.Size) {
			add("memory.size %d must be a power of two for the buddy allocator", c.Memory.Size)
		}
		if !buf.IsPowerOfTwo(c.Allocator.MinBlock) {
			add("allocator.min_block %d must be a power of two", c.Allocator.MinBlock)
		} else if c.Allocator.MinBlock > c.Memory.Size {
			add("allocator.min_block %d exceeds memory.size %d", c.Allocator.MinBlock, c.Memory.Size)
		}
	}

	if c.Cache.Enabled {
		if err := c.Cache.L1.Validate(); err != nil {
			add("cache.l1: %v", err)
		}
		if err := c.Cache.L2.Validate(); err != nil {
			add("cache.l2: %v", err)
		}
	}

	if c.VM.Enabled {
		g := c.VM.Geometry()
		if err := g.Validate(); err != nil {
			add("vm: %v", err)
		} else if g.PhysicalBytes() > c.Memory.Size {
			add("vm: %d frames x %d bytes exceed memory.size %d", g.Frames, g.PageSize, c.Memory.Size)
		}
	}

	if c.Log.Level != "" {
		if _, err := logger.ParseLevel(c.Log.Level); err != nil {
			add("log.level: %v", err)
		}
	}

	return errors.Join(errs...)
}
