// Package models defines data structures and domain types.
package models

import (
	"math"
	"time"
)

// MiB is one mebibyte in bytes.
const MiB = 1024 * 1024

// AppUsage is one monitoring interval's consumption for a single application.
// Byte counts arrive signed from collaborators and are clamped to zero by consumers.
type AppUsage struct {
	AppID   string
	AppName string
	Bytes   int64
	// MobileBytes is the share of Bytes that went over a metered interface.
	// Only meaningful when HasInterfaceSplit is set.
	MobileBytes       int64
	HasInterfaceSplit bool
}

// Total returns the clamped byte count for the interval.
func (u AppUsage) Total() uint64 {
	return ClampBytes(u.Bytes)
}

// Mobile returns the clamped metered byte count, never more than Total.
func (u AppUsage) Mobile() uint64 {
	m := ClampBytes(u.MobileBytes)
	if t := u.Total(); m > t {
		return t
	}
	return m
}

// DisplayName returns the application name, falling back to its identifier.
func (u AppUsage) DisplayName() string {
	if u.AppName != "" {
		return u.AppName
	}
	return u.AppID
}

// Snapshot is the ordered set of per-application samples for one tick.
// Applications with no traffic are absent rather than zero-filled.
type Snapshot []AppUsage

// Normalize drops entries without an identifier and merges duplicates by
// summing their counters. The first occurrence keeps its position.
func (s Snapshot) Normalize() Snapshot {
	if len(s) == 0 {
		return nil
	}
	out := make(Snapshot, 0, len(s))
	index := make(map[string]int, len(s))
	for _, u := range s {
		if u.AppID == "" {
			continue
		}
		u.Bytes = int64(ClampBytes(u.Bytes))
		u.MobileBytes = int64(ClampBytes(u.MobileBytes))
		if i, ok := index[u.AppID]; ok {
			prev := &out[i]
			prev.Bytes = addSaturating(prev.Bytes, u.Bytes)
			prev.MobileBytes = addSaturating(prev.MobileBytes, u.MobileBytes)
			prev.HasInterfaceSplit = prev.HasInterfaceSplit && u.HasInterfaceSplit
			if prev.AppName == "" {
				prev.AppName = u.AppName
			}
			continue
		}
		index[u.AppID] = len(out)
		out = append(out, u)
	}
	return out
}

// addSaturating adds two non-negative counts, capping at math.MaxInt64.
func addSaturating(a, b int64) int64 {
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}

// Total returns the sum of all clamped byte counts in the snapshot.
func (s Snapshot) Total() uint64 {
	var total uint64
	for _, u := range s {
		total += u.Total()
	}
	return total
}

// UsageRecord is a persisted per-interval sample (DB model).
type UsageRecord struct {
	Timestamp   time.Time
	Date        string
	AppID       string
	AppName     string
	ID          int64
	Bytes       int64
	MobileBytes int64
}

// DailyUsage is one day's aggregate byte total in a daily usage history.
type DailyUsage struct {
	Label string
	Bytes int64
}

// DailyValues returns the byte totals of a labelled history, oldest first.
func DailyValues(days []DailyUsage) []int64 {
	values := make([]int64, len(days))
	for i, d := range days {
		values[i] = d.Bytes
	}
	return values
}

// ClampBytes converts a signed byte count to unsigned, mapping negatives to zero.
func ClampBytes(v int64) uint64 {
	if v < 0 {
		return 0
	}
	return uint64(v)
}
