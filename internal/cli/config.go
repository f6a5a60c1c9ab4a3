package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/tailscale/hujson"

	"github.com/calvinalkan/stable-structures/pkg/memory"
)

var (
	// ErrConfigInvalid is returned when a config file cannot be parsed or
	// holds out-of-range values.
	ErrConfigInvalid = errors.New("invalid config")

	// ErrConfigFileRead is returned when an explicit config file cannot be read.
	ErrConfigFileRead = errors.New("cannot read config file")
)

// Config holds the options of a stablectl session.
type Config struct {
	// BucketSizePages is the memory manager bucket size used when the
	// memory file is created. Existing files keep their stored value.
	BucketSizePages uint16 `json:"bucket_size_pages"`

	// MaxPages caps the memory file in pages. 0 means unlimited.
	MaxPages uint64 `json:"max_pages"`

	// CacheItems is the number of map entries kept in the read cache.
	CacheItems uint32 `json:"cache_items"`

	// RingCapacity is the ring buffer capacity used when the ring is created.
	RingCapacity uint64 `json:"ring_capacity"`

	// HistoryFile is where the interactive prompt keeps its history.
	// Empty means ~/.stablectl_history.
	HistoryFile string `json:"history_file,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		BucketSizePages: memory.DefaultBucketSize,
		CacheItems:      256,
		RingCapacity:    16,
	}
}

// LoadConfig returns the defaults overlaid with the JSONC file at path.
// An empty path returns the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w %s: %w", ErrConfigFileRead, path, err)
	}

	overlay, err := parseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, err)
	}

	cfg = mergeConfig(cfg, overlay)

	if err := validateConfig(cfg); err != nil {
		return Config{}, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, err)
	}

	return cfg, nil
}

func parseConfig(data []byte) (Config, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config

	dec := json.NewDecoder(bytes.NewReader(standardized))
	dec.DisallowUnknownFields()

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("invalid JSON: %w", err)
	}

	return cfg, nil
}

func mergeConfig(base, overlay Config) Config {
	if overlay.BucketSizePages != 0 {
		base.BucketSizePages = overlay.BucketSizePages
	}

	if overlay.MaxPages != 0 {
		base.MaxPages = overlay.MaxPages
	}

	if overlay.CacheItems != 0 {
		base.CacheItems = overlay.CacheItems
	}

	if overlay.RingCapacity != 0 {
		base.RingCapacity = overlay.RingCapacity
	}

	if overlay.HistoryFile != "" {
		base.HistoryFile = overlay.HistoryFile
	}

	return base
}

func validateConfig(cfg Config) error {
	if cfg.BucketSizePages == 0 {
		return errors.New("bucket_size_pages must be > 0")
	}

	if cfg.CacheItems == 0 {
		return errors.New("cache_items must be > 0")
	}

	if cfg.RingCapacity == 0 {
		return errors.New("ring_capacity must be > 0")
	}

	return nil
}
