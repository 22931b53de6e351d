// Package notify delivers drain alerts and bundle warnings as desktop notifications.
package notify

import (
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gen2brain/beeep"

	"github.com/j-veylop/data-watchdog/internal/logger"
	"github.com/j-veylop/data-watchdog/internal/models"
)

// expiryWarning is how close to expiry a bundle triggers a notice.
const expiryWarning = 24 * time.Hour

var send = func(title, body string) error {
	return beeep.Notify(title, body, "")
}

// Options configures a Notifier.
type Options struct {
	Now         func() time.Time
	Cooldown    time.Duration
	MinSeverity models.Severity
	Enabled     bool
}

type alertKey struct {
	appID string
	kind  models.AlertKind
}

// Notifier filters and rate-limits notifications.
type Notifier struct {
	mu           sync.Mutex
	opts         Options
	lastSent     map[alertKey]time.Time
	exceeding    bool
	expiryWarned time.Time
}

// New creates a notifier.
func New(opts Options) *Notifier {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Notifier{
		opts:     opts,
		lastSent: make(map[alertKey]time.Time),
	}
}

// Alerts sends a notification for every alert at or above the minimum
// severity whose (app, kind) pair is not cooling down. It returns how many
// were sent.
func (n *Notifier) Alerts(alerts []models.DrainAlert) int {
	if !n.opts.Enabled {
		return 0
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	now := n.opts.Now()
	sent := 0
	for _, a := range alerts {
		if a.Severity < n.opts.MinSeverity {
			continue
		}
		key := alertKey{appID: a.AppID, kind: a.Kind}
		if last, ok := n.lastSent[key]; ok && now.Sub(last) < n.opts.Cooldown {
			continue
		}

		title := fmt.Sprintf("Data drain (%s): %s", a.Severity, displayName(a))
		body := a.Message
		if a.Recommendation != "" {
			body += "\n" + a.Recommendation
		}
		if n.deliver(title, body) {
			n.lastSent[key] = now
			sent++
		}
	}
	return sent
}

// Prediction notifies once when a forecast starts predicting that the bundle
// runs out early. The notice re-arms after a forecast within the limit.
func (n *Notifier) Prediction(p *models.UsagePrediction) bool {
	if p == nil {
		return false
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if !p.WillExceedLimit {
		n.exceeding = false
		return false
	}
	if n.exceeding || !n.opts.Enabled {
		n.exceeding = true
		return false
	}
	n.exceeding = true

	body := fmt.Sprintf("At the current pace the bundle runs out in %d days. Suggested budget: %s/day.",
		p.DaysToExhaustion, humanize.IBytes(uint64(max(p.RecommendedDailyBudget, 0))))
	if p.ProjectedOverage > 0 {
		body += fmt.Sprintf(" Projected shortfall: %s.", humanize.IBytes(p.ProjectedOverage))
	}
	return n.deliver("Bundle will run out early", body)
}

// Restore arms the one-shot notice from a forecast made before a restart, so
// an overrun that was already reported is not reported again.
func (n *Notifier) Restore(p *models.UsagePrediction) {
	if p == nil {
		return
	}
	n.mu.Lock()
	n.exceeding = p.WillExceedLimit
	n.mu.Unlock()
}

// BundleExpiry warns once per expiry date when less than a day remains.
func (n *Notifier) BundleExpiry(b *models.Bundle) bool {
	if b == nil || b.Expiry.IsZero() || !n.opts.Enabled {
		return false
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	now := n.opts.Now()
	left := b.Expiry.Sub(now)
	if left <= 0 || left > expiryWarning || n.expiryWarned.Equal(b.Expiry) {
		return false
	}

	body := fmt.Sprintf("Your %s bundle expires %s.", providerName(b), humanize.Time(b.Expiry))
	if n.deliver("Bundle expiring soon", body) {
		n.expiryWarned = b.Expiry
		return true
	}
	return false
}

func (n *Notifier) deliver(title, body string) bool {
	if err := send(title, body); err != nil {
		logger.Warn("failed to send notification", "title", title, "error", err)
		return false
	}
	return true
}

func displayName(a models.DrainAlert) string {
	if a.AppName != "" {
		return a.AppName
	}
	return a.AppID
}

func providerName(b *models.Bundle) string {
	if b.Provider != "" {
		return b.Provider
	}
	return "data"
}
