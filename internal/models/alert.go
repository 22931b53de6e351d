// Package models defines data structures and domain types.
package models

import (
	"strings"
	"time"
)

// Severity is the urgency of a drain alert.
type Severity int

const (
	// SeverityLow is informational.
	SeverityLow Severity = iota
	// SeverityMedium is worth keeping an eye on.
	SeverityMedium
	// SeverityHigh needs attention soon.
	SeverityHigh
	// SeverityCritical needs immediate action.
	SeverityCritical
)

// String returns the lowercase name of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// ParseSeverity maps a severity name to its value.
func ParseSeverity(s string) (Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return SeverityLow, true
	case "medium":
		return SeverityMedium, true
	case "high":
		return SeverityHigh, true
	case "critical":
		return SeverityCritical, true
	default:
		return SeverityLow, false
	}
}

// AlertKind identifies which check produced an alert.
type AlertKind int

const (
	// AlertUsage is a tiered high-usage alert.
	AlertUsage AlertKind = iota
	// AlertSpike is a sudden interval-over-interval increase.
	AlertSpike
	// AlertMobilePreference flags apps that favour the metered interface.
	AlertMobilePreference
	// AlertBundlePacing flags a bundle being consumed ahead of schedule.
	AlertBundlePacing
)

// String returns the name of the alert kind.
func (k AlertKind) String() string {
	switch k {
	case AlertUsage:
		return "usage"
	case AlertSpike:
		return "spike"
	case AlertMobilePreference:
		return "mobile_preference"
	case AlertBundlePacing:
		return "bundle_pacing"
	default:
		return "unknown"
	}
}

// ParseAlertKind maps a stored kind name back to its value.
func ParseAlertKind(s string) AlertKind {
	switch s {
	case "spike":
		return AlertSpike
	case "mobile_preference":
		return AlertMobilePreference
	case "bundle_pacing":
		return AlertBundlePacing
	default:
		return AlertUsage
	}
}

// BundleAlertAppID is the pseudo application that carries bundle-wide alerts.
const BundleAlertAppID = "system.bundle"

// DrainAlert is a single finding from the drain detector.
type DrainAlert struct {
	Timestamp      time.Time
	ID             string
	AppID          string
	AppName        string
	Message        string
	Recommendation string
	DataUsed       uint64
	Percentage     float64
	Kind           AlertKind
	Severity       Severity
}
