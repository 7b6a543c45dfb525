// Package risk implements the rule-based risk assessment engine.
//
// Assessment is a pure function of a container snapshot plus wall-clock time:
// independent rules each contribute points and a human-readable reason, the
// total score maps to a risk level bucket, and derived flags decide whether
// the orchestration raises an exception or notifies users. The engine itself
// is stateless - the only durable memory of "previous risk" is the level
// currently stored on the container.
package risk

import (
	"fmt"
	"strings"
	"time"

	"github.com/harborline/harborwatch/internal/domain"
)

// Scoring rule points
const (
	pointsETAOverdue    = 3
	pointsLFDOverdue    = 4
	pointsLFDToday      = 3
	pointsLFDImminent   = 2
	pointsCustoms       = 2
	pointsActiveHolds   = 2
	pointsStaleTracking = 1
	pointsDelayed       = 2
	pointsLongTransit   = 1
	pointsArrivedIdle   = 2
)

// Score thresholds. Risk-level buckets and the exception/notify bars are
// defined independently: exception-worthy (>=2) and notify-worthy (>=3) are
// score-based cuts, not level-based ones.
const (
	scoreCritical = 7
	scoreHigh     = 4
	scoreMedium   = 2

	exceptionScoreThreshold = 2
	notifyScoreThreshold    = 3
)

// Rule-specific windows
const (
	lfdImminentDays      = 2
	staleTrackingHours   = 48
	longTransitDays      = 30
	arrivedIdleMinDays   = 3
	millisecondsPerDay   = 24 * 60 * 60 * 1000
)

// Assessment is the result of scoring one container snapshot. It is a value
// object - never persisted, recomputed on every cycle.
type Assessment struct {
	RiskLevel             domain.RiskLevel            `json:"risk_level"`
	RiskScore             int                         `json:"risk_score"`
	RiskReasons           []string                    `json:"risk_reasons"`
	ShouldCreateException bool                        `json:"should_create_exception"`
	ShouldNotify          bool                        `json:"should_notify"`
	NotificationPriority  domain.NotificationPriority `json:"notification_priority"`
}

// Reason returns the reasons joined the way they are persisted on the container
func (a Assessment) Reason() string {
	return strings.Join(a.RiskReasons, "; ")
}

// Description returns the reasons joined the way exception descriptions and
// notification messages are rendered
func (a Assessment) Description() string {
	return strings.Join(a.RiskReasons, ". ")
}

// etaExemptStatuses are statuses where a passed ETA no longer matters: the
// container has already reached (or left) the destination.
var etaExemptStatuses = map[domain.ContainerStatus]bool{
	domain.StatusArrived:   true,
	domain.StatusUnloaded:  true,
	domain.StatusGateOut:   true,
	domain.StatusDelivered: true,
}

// staleTrackedStatuses are in-motion statuses where missing tracking updates
// indicate a data problem rather than a parked container.
var staleTrackedStatuses = map[domain.ContainerStatus]bool{
	domain.StatusInTransit: true,
	domain.StatusDeparted:  true,
	domain.StatusLoaded:    true,
}

// Assess scores one container snapshot against the current time.
//
// Rules are evaluated in a fixed order; the order affects only the order of
// reasons, not the total score. The three LFD rules are an if/else-if chain
// (overdue, then today, then imminent) so exactly one LFD reason can fire.
//
// Day arithmetic: whole-day differences truncate toward zero. LFD rules zero
// out the time-of-day on both sides first, so LFD urgency works on calendar
// days; ETA and tracking staleness use full timestamp precision, so an ETA a
// few hours away only counts as passed once the clock actually passes it.
func Assess(c domain.Container, now time.Time) Assessment {
	score := 0
	reasons := []string{}

	// ETA passed and container not yet at destination
	if c.ETA != nil && !etaExemptStatuses[c.Status] && now.After(*c.ETA) {
		days := wholeDays(now, *c.ETA)
		score += pointsETAOverdue
		reasons = append(reasons, fmt.Sprintf("ETA passed %d day(s) ago - container delayed", days))
	}

	// Last free day: overdue -> today -> imminent, calendar-day granularity.
	// Both midnights are taken in now's location; stored timestamps are UTC
	// and would otherwise shift the bucket by a day near midnight.
	if c.LastFreeDay != nil {
		daysUntil := wholeDays(midnight(c.LastFreeDay.In(now.Location())), midnight(now))
		if daysUntil < 0 {
			score += pointsLFDOverdue
			reasons = append(reasons, fmt.Sprintf("Demurrage accruing - %d day(s) past LFD", -daysUntil))
		} else if daysUntil == 0 {
			score += pointsLFDToday
			reasons = append(reasons, "LFD is TODAY - immediate action required")
		} else if daysUntil <= lfdImminentDays {
			score += pointsLFDImminent
			reasons = append(reasons, fmt.Sprintf("LFD in %d day(s)", daysUntil))
		}
	}

	if c.Status == domain.StatusCustomsClearance {
		score += pointsCustoms
		reasons = append(reasons, "In customs clearance")
	}

	if len(c.HoldTypes) > 0 {
		score += pointsActiveHolds
		reasons = append(reasons, "Active holds: "+strings.Join(c.HoldTypes, ", "))
	}

	// Stale tracking data while supposedly moving
	if staleTrackedStatuses[c.Status] && now.Sub(c.UpdatedAt).Hours() > staleTrackingHours {
		score += pointsStaleTracking
		reasons = append(reasons, "No tracking updates for 48+ hours")
	}

	if c.Status == domain.StatusDelayed {
		score += pointsDelayed
		reasons = append(reasons, "Container marked as delayed")
	}

	// Unusually long planned transit (booking date proxied by created_at)
	if c.ETA != nil && !c.CreatedAt.IsZero() {
		transitDays := wholeDays(*c.ETA, c.CreatedAt)
		if transitDays > longTransitDays {
			score += pointsLongTransit
			reasons = append(reasons, fmt.Sprintf("Long planned transit: %d days", transitDays))
		}
	}

	// Arrived but sitting at the terminal without a gate-out
	if c.Status == domain.StatusArrived {
		idleDays := wholeDays(now, c.UpdatedAt)
		if idleDays >= arrivedIdleMinDays {
			score += pointsArrivedIdle
			reasons = append(reasons, fmt.Sprintf("Arrived %d days ago, not gated out", idleDays))
		}
	}

	return Assessment{
		RiskLevel:             levelForScore(score),
		RiskScore:             score,
		RiskReasons:           reasons,
		ShouldCreateException: score >= exceptionScoreThreshold,
		ShouldNotify:          score >= notifyScoreThreshold,
		NotificationPriority:  priorityForScore(score),
	}
}

// levelForScore maps a total score to its display bucket
func levelForScore(score int) domain.RiskLevel {
	switch {
	case score >= scoreCritical:
		return domain.RiskCritical
	case score >= scoreHigh:
		return domain.RiskHigh
	case score >= scoreMedium:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}

// priorityForScore maps a total score to notification urgency
func priorityForScore(score int) domain.NotificationPriority {
	switch {
	case score >= scoreCritical:
		return domain.PriorityUrgent
	case score >= scoreHigh:
		return domain.PriorityHigh
	case score >= scoreMedium:
		return domain.PriorityNormal
	default:
		return domain.PriorityLow
	}
}

// wholeDays returns the whole-day difference a-b, truncated toward zero
func wholeDays(a, b time.Time) int {
	return int(a.Sub(b).Milliseconds() / millisecondsPerDay)
}

// midnight zeroes the time-of-day component in t's location
func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
