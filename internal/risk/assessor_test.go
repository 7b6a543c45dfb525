package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborline/harborwatch/internal/domain"
)

// Fixed reference clock: mid-day so calendar-day and full-precision
// comparisons diverge in observable ways.
var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func daysAgo(days int) time.Time {
	return testNow.AddDate(0, 0, -days)
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func baseContainer() domain.Container {
	return domain.Container{
		ID:              "c-1",
		ContainerNumber: "MSKU1234567",
		Status:          domain.StatusInTransit,
		CreatedAt:       daysAgo(10),
		UpdatedAt:       testNow.Add(-1 * time.Hour),
	}
}

func TestAssess_ScenarioA_ETAOverdue(t *testing.T) {
	c := baseContainer()
	c.ETA = timePtr(daysAgo(1))

	a := Assess(c, testNow)

	assert.Equal(t, 3, a.RiskScore)
	assert.Equal(t, domain.RiskMedium, a.RiskLevel)
	assert.True(t, a.ShouldCreateException)
	assert.True(t, a.ShouldNotify)
	assert.Equal(t, domain.PriorityNormal, a.NotificationPriority)
	assert.Equal(t, []string{"ETA passed 1 day(s) ago - container delayed"}, a.RiskReasons)
}

func TestAssess_ScenarioB_DemurrageAccruing(t *testing.T) {
	c := baseContainer()
	c.Status = domain.StatusAtTerminal
	c.LastFreeDay = timePtr(daysAgo(3))

	a := Assess(c, testNow)

	assert.Equal(t, 4, a.RiskScore)
	assert.Equal(t, domain.RiskHigh, a.RiskLevel)
	assert.Equal(t, domain.PriorityHigh, a.NotificationPriority)
	require.Len(t, a.RiskReasons, 1)
	assert.Equal(t, "Demurrage accruing - 3 day(s) past LFD", a.RiskReasons[0])
	assert.Equal(t, domain.ExceptionDemurrageRisk, ClassifyException(a.RiskReasons))
	assert.Equal(t, domain.NotificationDemurrageAlert, ClassifyNotification(a.RiskReasons))
}

func TestAssess_ScenarioC_CustomsWithHold(t *testing.T) {
	c := baseContainer()
	c.Status = domain.StatusCustomsClearance
	c.HoldTypes = []string{"Customs Hold"}

	a := Assess(c, testNow)

	assert.Equal(t, 4, a.RiskScore)
	assert.Equal(t, domain.RiskHigh, a.RiskLevel)
	assert.Contains(t, a.RiskReasons, "In customs clearance")
	assert.Contains(t, a.RiskReasons, "Active holds: Customs Hold")
	// Customs-reason check precedes the hold-reason check
	assert.Equal(t, domain.ExceptionCustomsIssue, ClassifyException(a.RiskReasons))
	assert.Equal(t, domain.NotificationCustomsHold, ClassifyNotification(a.RiskReasons))
}

func TestAssess_IsPure(t *testing.T) {
	c := baseContainer()
	c.ETA = timePtr(daysAgo(2))
	c.HoldTypes = []string{"Carrier Hold"}

	first := Assess(c, testNow)
	second := Assess(c, testNow)

	assert.Equal(t, first, second)
}

func TestAssess_ScoreMonotonicity(t *testing.T) {
	c := baseContainer()
	c.ETA = timePtr(daysAgo(1))

	without := Assess(c, testNow)

	c.HoldTypes = []string{"Customs Hold"}
	with := Assess(c, testNow)

	assert.GreaterOrEqual(t, with.RiskScore, without.RiskScore)
	assert.Greater(t, with.RiskScore, without.RiskScore)
}

func TestLevelForScore_BucketBoundaries(t *testing.T) {
	assert.Equal(t, domain.RiskLow, levelForScore(0))
	assert.Equal(t, domain.RiskLow, levelForScore(1))
	assert.Equal(t, domain.RiskMedium, levelForScore(2))
	assert.Equal(t, domain.RiskMedium, levelForScore(3))
	assert.Equal(t, domain.RiskHigh, levelForScore(4))
	assert.Equal(t, domain.RiskHigh, levelForScore(6))
	assert.Equal(t, domain.RiskCritical, levelForScore(7))
	assert.Equal(t, domain.RiskCritical, levelForScore(11))
}

func TestPriorityForScore_Thresholds(t *testing.T) {
	assert.Equal(t, domain.PriorityLow, priorityForScore(1))
	assert.Equal(t, domain.PriorityNormal, priorityForScore(2))
	assert.Equal(t, domain.PriorityHigh, priorityForScore(4))
	assert.Equal(t, domain.PriorityUrgent, priorityForScore(7))
}

func TestAssess_LFDRuleExclusivity(t *testing.T) {
	c := baseContainer()
	c.Status = domain.StatusAtTerminal
	c.LastFreeDay = timePtr(daysAgo(1))

	a := Assess(c, testNow)

	require.Len(t, a.RiskReasons, 1)
	assert.Equal(t, "Demurrage accruing - 1 day(s) past LFD", a.RiskReasons[0])
	assert.NotContains(t, a.Reason(), "TODAY")
	assert.NotContains(t, a.Reason(), "LFD in")
}

func TestAssess_LFDToday_CalendarDayGranularity(t *testing.T) {
	c := baseContainer()
	c.Status = domain.StatusAtTerminal
	// LFD is later today - calendar-day comparison makes it "TODAY" even
	// though the timestamp is still in the future.
	c.LastFreeDay = timePtr(testNow.Add(6 * time.Hour))

	a := Assess(c, testNow)

	require.Len(t, a.RiskReasons, 1)
	assert.Equal(t, "LFD is TODAY - immediate action required", a.RiskReasons[0])
	assert.Equal(t, 3, a.RiskScore)
}

func TestAssess_LFDImminent_CrossesMidnight(t *testing.T) {
	c := baseContainer()
	c.Status = domain.StatusAtTerminal
	// 00:30 tomorrow is 12.5 hours away but a full calendar day out
	c.LastFreeDay = timePtr(time.Date(2026, 3, 16, 0, 30, 0, 0, time.UTC))

	a := Assess(c, testNow)

	require.Len(t, a.RiskReasons, 1)
	assert.Equal(t, "LFD in 1 day(s)", a.RiskReasons[0])
	assert.Equal(t, 2, a.RiskScore)
}

func TestAssess_LFDBucketStableAcrossZones(t *testing.T) {
	// LFD stored as a UTC instant, clock running in UTC-11. Seen from the
	// local calendar the LFD date was yesterday, so the bucket must be
	// overdue, not "TODAY", regardless of the stored location.
	local := time.FixedZone("UTC-11", -11*60*60)
	now := time.Date(2026, 3, 10, 20, 0, 0, 0, local)

	c := baseContainer()
	c.Status = domain.StatusAtTerminal
	c.CreatedAt = now.AddDate(0, 0, -10)
	c.UpdatedAt = now.Add(-1 * time.Hour)
	c.LastFreeDay = timePtr(time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))

	a := Assess(c, now)

	require.Len(t, a.RiskReasons, 1)
	assert.Equal(t, "Demurrage accruing - 1 day(s) past LFD", a.RiskReasons[0])
	assert.Equal(t, 4, a.RiskScore)
}

func TestAssess_ETAUsesFullTimestampPrecision(t *testing.T) {
	c := baseContainer()
	// ETA is today but a few hours from now: not overdue yet
	c.ETA = timePtr(testNow.Add(3 * time.Hour))

	a := Assess(c, testNow)

	assert.Equal(t, 0, a.RiskScore)
	assert.Empty(t, a.RiskReasons)
}

func TestAssess_ETAIgnoredOnceArrived(t *testing.T) {
	for _, status := range []domain.ContainerStatus{
		domain.StatusArrived,
		domain.StatusUnloaded,
		domain.StatusGateOut,
		domain.StatusDelivered,
	} {
		c := baseContainer()
		c.Status = status
		c.ETA = timePtr(daysAgo(5))
		c.UpdatedAt = testNow.Add(-1 * time.Hour)

		a := Assess(c, testNow)

		assert.NotContains(t, a.Reason(), "ETA passed", "status %s", status)
	}
}

func TestAssess_StaleTracking(t *testing.T) {
	c := baseContainer()
	c.UpdatedAt = testNow.Add(-49 * time.Hour)

	a := Assess(c, testNow)
	assert.Contains(t, a.RiskReasons, "No tracking updates for 48+ hours")
	assert.Equal(t, 1, a.RiskScore)

	c.UpdatedAt = testNow.Add(-47 * time.Hour)
	a = Assess(c, testNow)
	assert.Empty(t, a.RiskReasons)
}

func TestAssess_StaleTrackingOnlyWhileMoving(t *testing.T) {
	c := baseContainer()
	c.Status = domain.StatusAtTerminal
	c.UpdatedAt = testNow.Add(-72 * time.Hour)

	a := Assess(c, testNow)

	assert.NotContains(t, a.Reason(), "No tracking updates")
}

func TestAssess_DelayedStatus(t *testing.T) {
	c := baseContainer()
	c.Status = domain.StatusDelayed

	a := Assess(c, testNow)

	assert.Contains(t, a.RiskReasons, "Container marked as delayed")
	assert.Equal(t, 2, a.RiskScore)
	assert.Equal(t, domain.RiskMedium, a.RiskLevel)
}

func TestAssess_LongPlannedTransit(t *testing.T) {
	c := baseContainer()
	c.CreatedAt = daysAgo(5)
	c.ETA = timePtr(testNow.AddDate(0, 0, 26)) // 31 days after creation

	a := Assess(c, testNow)

	assert.Contains(t, a.RiskReasons, "Long planned transit: 31 days")
	assert.Equal(t, 1, a.RiskScore)
}

func TestAssess_ArrivedNotGatedOut(t *testing.T) {
	c := baseContainer()
	c.Status = domain.StatusArrived
	c.UpdatedAt = daysAgo(3)

	a := Assess(c, testNow)

	assert.Contains(t, a.RiskReasons, "Arrived 3 days ago, not gated out")
	assert.Equal(t, 2, a.RiskScore)

	c.UpdatedAt = daysAgo(2)
	a = Assess(c, testNow)
	assert.Empty(t, a.RiskReasons)
}

func TestAssess_RulesCoFire(t *testing.T) {
	// Demurrage + customs + holds + delayed-by-eta simultaneously
	c := baseContainer()
	c.Status = domain.StatusCustomsClearance
	c.ETA = timePtr(daysAgo(2))
	c.LastFreeDay = timePtr(daysAgo(1))
	c.HoldTypes = []string{"Customs Hold", "Carrier Hold"}

	a := Assess(c, testNow)

	// 3 (eta) + 4 (lfd overdue) + 2 (customs) + 2 (holds) = 11
	assert.Equal(t, 11, a.RiskScore)
	assert.Equal(t, domain.RiskCritical, a.RiskLevel)
	assert.Equal(t, domain.PriorityUrgent, a.NotificationPriority)
	require.Len(t, a.RiskReasons, 4)
	// Fixed evaluation order: ETA, LFD, customs, holds
	assert.Equal(t, "ETA passed 2 day(s) ago - container delayed", a.RiskReasons[0])
	assert.Equal(t, "Demurrage accruing - 1 day(s) past LFD", a.RiskReasons[1])
	assert.Equal(t, "In customs clearance", a.RiskReasons[2])
	assert.Equal(t, "Active holds: Customs Hold, Carrier Hold", a.RiskReasons[3])
	// Demurrage outranks customs in classification
	assert.Equal(t, domain.ExceptionDemurrageRisk, ClassifyException(a.RiskReasons))
}

func TestAssess_CleanContainerIsLowRisk(t *testing.T) {
	c := baseContainer()

	a := Assess(c, testNow)

	assert.Equal(t, 0, a.RiskScore)
	assert.Equal(t, domain.RiskLow, a.RiskLevel)
	assert.False(t, a.ShouldCreateException)
	assert.False(t, a.ShouldNotify)
	assert.Equal(t, domain.PriorityLow, a.NotificationPriority)
	assert.Empty(t, a.RiskReasons)
	assert.Equal(t, "", a.Reason())
}
