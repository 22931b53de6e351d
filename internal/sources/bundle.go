package sources

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/j-veylop/data-watchdog/internal/models"
)

// BundleFile is the YAML layout of the bundle description.
type BundleFile struct {
	CycleStart time.Time `yaml:"cycle_start"`
	Expiry     time.Time `yaml:"expiry"`
	UsedMB     *float64  `yaml:"used_mb"`
	Provider   string    `yaml:"provider"`
	TotalMB    float64   `yaml:"total_mb"`
}

// LoadBundle reads and validates a bundle description.
func LoadBundle(path string) (*models.Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bundle: %w", err)
	}

	var file BundleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse bundle file %s: %w", path, err)
	}

	return file.toBundle()
}

func (f BundleFile) toBundle() (*models.Bundle, error) {
	if f.TotalMB <= 0 {
		return nil, errors.New("bundle total_mb must be positive")
	}
	if f.Expiry.IsZero() && f.CycleStart.IsZero() {
		return nil, errors.New("bundle needs expiry or cycle_start")
	}

	b := &models.Bundle{
		Provider:   f.Provider,
		TotalBytes: mbToBytes(f.TotalMB),
		UsedBytes:  -1,
		CycleStart: f.CycleStart,
		Expiry:     f.Expiry,
	}
	if b.Expiry.IsZero() {
		b.Expiry = b.CycleStart.AddDate(0, 0, models.DefaultCycleDays)
	}
	if !b.CycleStart.IsZero() && !b.Expiry.After(b.CycleStart) {
		return nil, errors.New("bundle expiry must be after cycle_start")
	}
	if f.UsedMB != nil {
		if *f.UsedMB < 0 {
			return nil, errors.New("bundle used_mb must not be negative")
		}
		b.UsedBytes = mbToBytes(*f.UsedMB)
	}
	return b, nil
}

func mbToBytes(mb float64) int64 {
	return int64(mb * models.MiB)
}
