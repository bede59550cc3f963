package util

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Options represents virtual memory configuration options
type Options struct {
	SwapPath    string `yaml:"swap_path"`
	SwapSectors int    `yaml:"swap_sectors"`
	PhysPages   int    `yaml:"phys_pages"`
	MaxLoop     int    `yaml:"max_loop"`
	LogLevel    string `yaml:"log_level"`
}

// DefaultOptions returns default options
func DefaultOptions() Options {
	return Options{
		SwapPath:    "SWAP",
		SwapSectors: 512, // 64KB of swap
		PhysPages:   32,
		MaxLoop:     2, // one sweep to clear use bits, one to find the victim
		LogLevel:    "INFO",
	}
}

func (o Options) Validate() error {
	if o.SwapPath == "" {
		return ErrInvalidSwapPath
	}
	if o.SwapSectors <= 0 {
		return ErrInvalidSectorCount
	}
	if int64(o.SwapSectors)*SectorSize > MAX_MAP_SIZE {
		return ErrMaxMapSizeExceeded
	}
	if o.PhysPages <= 0 {
		return ErrInvalidPoolSize
	}
	if o.MaxLoop < 2 {
		return fmt.Errorf("max_loop must be at least 2, got %d", o.MaxLoop)
	}
	return nil
}

// LoadOptions reads a YAML file on top of DefaultOptions.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()

	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&opts); err != nil {
		return opts, fmt.Errorf("decode config %s: %w", path, err)
	}

	if err := opts.Validate(); err != nil {
		return opts, fmt.Errorf("config %s: %w", path, err)
	}
	return opts, nil
}
