package framework

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/dustin/go-humanize"
)

// Sentinel errors for configuration.
var (
	ErrInvalidSizeFormat = errors.New("invalid size format")
	ErrInvalidWorkers    = errors.New("invalid worker count")
)

// maxInt64 bounds conversions from uint64 sizes.
const maxInt64 = int64(^uint64(0) >> 1)

const (
	// DefaultObjectCacheSize is the total object cache budget shared by all workers (850 MiB).
	DefaultObjectCacheSize = 850 * humanize.MiByte

	// DefaultBatchSize is the number of work items submitted per batch.
	DefaultBatchSize = 100
)

// Config configures a Distributor.
type Config struct {
	// Workers is the number of tree diff workers. Zero means one per CPU.
	Workers int

	// LineStats enables counting of added and removed lines.
	LineStats bool

	// ObjectCacheSize is the total object cache budget in bytes, split evenly
	// across workers. Zero disables the per-worker cache.
	ObjectCacheSize int64

	// BatchSize is the number of work items per submitted batch.
	BatchSize int
}

// DefaultConfig returns the default mining configuration.
func DefaultConfig() Config {
	return Config{
		Workers:         runtime.NumCPU(),
		ObjectCacheSize: DefaultObjectCacheSize,
		BatchSize:       DefaultBatchSize,
	}
}

// normalized fills zero values with defaults.
func (c Config) normalized() (Config, error) {
	if c.Workers < 0 {
		return c, fmt.Errorf("%w: %d", ErrInvalidWorkers, c.Workers)
	}

	if c.Workers == 0 {
		c.Workers = runtime.NumCPU()
	}

	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}

	if c.ObjectCacheSize < 0 {
		c.ObjectCacheSize = 0
	}

	return c, nil
}

// PerWorkerCacheSize returns each worker's share of the object cache budget.
func (c Config) PerWorkerCacheSize() int64 {
	if c.Workers <= 0 {
		return c.ObjectCacheSize
	}

	return c.ObjectCacheSize / int64(c.Workers)
}

// ParseSize parses a human-readable size such as "850MiB" or "1GB". Empty
// and "0" yield zero.
func ParseSize(sizeValue string) (int64, error) {
	trimmed := strings.TrimSpace(sizeValue)
	if trimmed == "" || trimmed == "0" {
		return 0, nil
	}

	parsed, err := humanize.ParseBytes(trimmed)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidSizeFormat, sizeValue)
	}

	return SafeInt64(parsed), nil
}

// SafeInt64 converts uint64 to int64, clamping to maxInt64 to prevent overflow.
func SafeInt64(v uint64) int64 {
	if v > uint64(maxInt64) {
		return maxInt64
	}

	return int64(v)
}
