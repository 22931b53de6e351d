// Package sources reads usage counters and bundle descriptions from disk and
// watches them for changes.
package sources

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/j-veylop/data-watchdog/internal/models"
)

// CountersFile is the JSON layout of the cumulative counters file.
type CountersFile struct {
	Apps []AppCounters `json:"apps"`
}

// AppCounters are cumulative per-interface byte counters for one application.
type AppCounters struct {
	AppID    string `json:"app_id"`
	AppName  string `json:"app_name,omitempty"`
	MobileRx uint64 `json:"mobile_rx"`
	MobileTx uint64 `json:"mobile_tx"`
	WifiRx   uint64 `json:"wifi_rx"`
	WifiTx   uint64 `json:"wifi_tx"`
}

// Mobile returns the cumulative metered bytes.
func (c AppCounters) Mobile() uint64 {
	return c.MobileRx + c.MobileTx
}

// Total returns the cumulative bytes on all interfaces.
func (c AppCounters) Total() uint64 {
	return c.Mobile() + c.WifiRx + c.WifiTx
}

// CounterSource turns successive reads of a cumulative counters file into
// per-interval snapshots.
type CounterSource struct {
	mu       sync.Mutex
	path     string
	baseline map[string]AppCounters
}

// NewCounterSource creates a source for the given file. Nothing is read yet.
func NewCounterSource(path string) *CounterSource {
	return &CounterSource{
		path:     path,
		baseline: make(map[string]AppCounters),
	}
}

// Path returns the counters file path.
func (s *CounterSource) Path() string {
	return s.path
}

// Read loads the counters file and returns the usage since the previous read.
// The first sighting of an application only sets its baseline. A counter that
// went backwards is treated as a reset. Applications with no new traffic are
// omitted.
func (s *CounterSource) Read() (models.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read counters: %w", err)
	}

	var file CountersFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse counters file %s: %w", s.path, err)
	}

	return s.Diff(file.Apps), nil
}

// Diff applies one set of cumulative counters against the stored baseline.
func (s *CounterSource) Diff(apps []AppCounters) models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	var snapshot models.Snapshot
	for _, cur := range apps {
		if cur.AppID == "" {
			continue
		}
		prev, seen := s.baseline[cur.AppID]
		s.baseline[cur.AppID] = cur
		if !seen {
			continue
		}
		if cur.Total() < prev.Total() || cur.Mobile() < prev.Mobile() {
			continue
		}

		delta := cur.Total() - prev.Total()
		if delta == 0 {
			continue
		}
		snapshot = append(snapshot, models.AppUsage{
			AppID:             cur.AppID,
			AppName:           cur.AppName,
			Bytes:             int64(delta),
			MobileBytes:       int64(cur.Mobile() - prev.Mobile()),
			HasInterfaceSplit: true,
		})
	}
	return snapshot
}

// Reset forgets all baselines.
func (s *CounterSource) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseline = make(map[string]AppCounters)
}
