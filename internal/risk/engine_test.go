package risk

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborline/harborwatch/internal/domain"
)

type riskUpdate struct {
	containerID string
	level       domain.RiskLevel
	reason      string
}

type fakeContainerStore struct {
	active       []domain.Container
	updates      []riskUpdate
	failUpdateID string
}

func (f *fakeContainerStore) GetAllActive() ([]domain.Container, error) {
	return f.active, nil
}

func (f *fakeContainerStore) UpdateRisk(containerID string, level domain.RiskLevel, reason string) error {
	if containerID == f.failUpdateID {
		return errors.New("disk full")
	}
	f.updates = append(f.updates, riskUpdate{containerID, level, reason})
	return nil
}

type fakeExceptionStore struct {
	deletes []string
	created []domain.Exception
	ops     []string // interleaved operation log to assert delete-before-insert
}

func (f *fakeExceptionStore) DeleteRiskAlerts(containerID string) error {
	f.deletes = append(f.deletes, containerID)
	f.ops = append(f.ops, "delete")
	return nil
}

func (f *fakeExceptionStore) Create(exc domain.Exception) (domain.Exception, error) {
	f.created = append(f.created, exc)
	f.ops = append(f.ops, "create")
	return exc, nil
}

type dismissal struct {
	containerID string
	newLevel    domain.RiskLevel
}

type fakeNotificationStore struct {
	created    []domain.Notification
	dismissals []dismissal
	createErr  error
}

func (f *fakeNotificationStore) Create(n domain.Notification) (domain.Notification, error) {
	if f.createErr != nil {
		return n, f.createErr
	}
	f.created = append(f.created, n)
	return n, nil
}

func (f *fakeNotificationStore) DismissRiskForContainer(containerID string, newLevel domain.RiskLevel) (int, error) {
	f.dismissals = append(f.dismissals, dismissal{containerID, newLevel})
	return 2, nil
}

type fakeUserDirectory struct {
	users []domain.User
}

func (f *fakeUserDirectory) GetAll() ([]domain.User, error) {
	return f.users, nil
}

type riskEvent struct {
	containerID string
	oldLevel    domain.RiskLevel
	newLevel    domain.RiskLevel
}

type fakePublisher struct {
	events []riskEvent
}

func (f *fakePublisher) RiskChanged(containerID, containerNumber string, oldLevel, newLevel domain.RiskLevel, score int) {
	f.events = append(f.events, riskEvent{containerID, oldLevel, newLevel})
}

type engineFixture struct {
	engine        *Engine
	containers    *fakeContainerStore
	exceptions    *fakeExceptionStore
	notifications *fakeNotificationStore
	users         *fakeUserDirectory
	publisher     *fakePublisher
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	f := &engineFixture{
		containers:    &fakeContainerStore{},
		exceptions:    &fakeExceptionStore{},
		notifications: &fakeNotificationStore{},
		users: &fakeUserDirectory{users: []domain.User{
			{ID: "u-1", Email: "ops@example.com"},
			{ID: "u-2", Email: "dispatch@example.com"},
		}},
		publisher: &fakePublisher{},
	}
	f.engine = NewEngine(f.containers, f.exceptions, f.notifications, f.users, zerolog.Nop())
	f.engine.SetClock(func() time.Time { return testNow })
	f.engine.SetEventPublisher(f.publisher)
	return f
}

func demurrageContainer(level domain.RiskLevel) domain.Container {
	c := baseContainer()
	c.Status = domain.StatusAtTerminal
	c.LastFreeDay = timePtr(daysAgo(3))
	c.RiskLevel = level
	return c
}

func TestUpdateContainerRisk_EscalationSideEffects(t *testing.T) {
	f := newEngineFixture(t)
	c := demurrageContainer(domain.RiskUnknown)

	a, err := f.engine.UpdateContainerRisk(c)
	require.NoError(t, err)
	assert.Equal(t, domain.RiskHigh, a.RiskLevel)

	// Risk fields written unconditionally
	require.Len(t, f.containers.updates, 1)
	assert.Equal(t, riskUpdate{"c-1", domain.RiskHigh, "Demurrage accruing - 3 day(s) past LFD"}, f.containers.updates[0])

	// Old alerts deleted before the new one is inserted
	assert.Equal(t, []string{"delete", "create"}, f.exceptions.ops)
	require.Len(t, f.exceptions.created, 1)
	exc := f.exceptions.created[0]
	assert.Equal(t, domain.CategoryRiskAlert, exc.Category)
	assert.Equal(t, domain.ExceptionDemurrageRisk, exc.Type)
	assert.Equal(t, "HIGH Risk Alert", exc.Title)
	assert.Equal(t, "Demurrage accruing - 3 day(s) past LFD", exc.Description)
	assert.NotEmpty(t, exc.ID)

	// One notification per user
	require.Len(t, f.notifications.created, 2)
	n := f.notifications.created[0]
	assert.Equal(t, "u-1", n.UserID)
	assert.Equal(t, domain.NotificationDemurrageAlert, n.Type)
	assert.Equal(t, domain.PriorityHigh, n.Priority)
	assert.Equal(t, "MSKU1234567 - HIGH Risk", n.Title)
	assert.Equal(t, domain.EntityTypeContainer, n.EntityType)
	assert.Equal(t, "c-1", n.EntityID)
	assert.Equal(t, "MSKU1234567", n.Metadata["container_number"])
	assert.Equal(t, "high", n.Metadata["risk_level"])
	assert.Equal(t, 4, n.Metadata["risk_score"])

	assert.Empty(t, f.notifications.dismissals)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, riskEvent{"c-1", domain.RiskUnknown, domain.RiskHigh}, f.publisher.events[0])
}

func TestUpdateContainerRisk_RepeatAssessmentDoesNotDuplicate(t *testing.T) {
	f := newEngineFixture(t)

	_, err := f.engine.UpdateContainerRisk(demurrageContainer(domain.RiskUnknown))
	require.NoError(t, err)

	// Second cycle: stored level now reflects the first assessment
	_, err = f.engine.UpdateContainerRisk(demurrageContainer(domain.RiskHigh))
	require.NoError(t, err)

	// Level unchanged: no second exception, no second fan-out
	assert.Len(t, f.exceptions.created, 1)
	assert.Len(t, f.exceptions.deletes, 1)
	assert.Len(t, f.notifications.created, 2)
	// But the risk fields are still rewritten every call
	assert.Len(t, f.containers.updates, 2)
}

func TestUpdateContainerRisk_FurtherEscalationRecreatesException(t *testing.T) {
	f := newEngineFixture(t)

	c := demurrageContainer(domain.RiskMedium)
	c.HoldTypes = []string{"Customs Hold"}
	c.ETA = timePtr(daysAgo(2)) // 4 (LFD) + 2 (holds) + 3 (ETA) = 9 -> critical

	a, err := f.engine.UpdateContainerRisk(c)
	require.NoError(t, err)
	assert.Equal(t, domain.RiskCritical, a.RiskLevel)

	// medium -> critical: delete-then-insert keeps exactly one live alert
	assert.Equal(t, []string{"delete", "create"}, f.exceptions.ops)
	assert.Equal(t, "CRITICAL Risk Alert", f.exceptions.created[0].Title)
	assert.Len(t, f.notifications.created, 2)
	assert.Equal(t, domain.PriorityUrgent, f.notifications.created[0].Priority)
}

func TestUpdateContainerRisk_DeEscalationOnlyDismisses(t *testing.T) {
	f := newEngineFixture(t)

	// Previously critical, now clean (fees paid, data updated)
	c := baseContainer()
	c.RiskLevel = domain.RiskCritical

	a, err := f.engine.UpdateContainerRisk(c)
	require.NoError(t, err)
	assert.Equal(t, domain.RiskLow, a.RiskLevel)

	// Risk fields still written
	require.Len(t, f.containers.updates, 1)
	assert.Equal(t, riskUpdate{"c-1", domain.RiskLow, ""}, f.containers.updates[0])

	// No exception, no notification - dismissal only
	assert.Empty(t, f.exceptions.created)
	assert.Empty(t, f.notifications.created)
	require.Len(t, f.notifications.dismissals, 1)
	assert.Equal(t, dismissal{"c-1", domain.RiskLow}, f.notifications.dismissals[0])
}

func TestUpdateContainerRisk_DecreaseWithNonzeroScoreStillFilesException(t *testing.T) {
	f := newEngineFixture(t)

	// critical -> high: level changed, so the exception is refreshed, but a
	// decrease must never re-notify.
	c := demurrageContainer(domain.RiskCritical) // scores 4 -> high

	a, err := f.engine.UpdateContainerRisk(c)
	require.NoError(t, err)
	assert.Equal(t, domain.RiskHigh, a.RiskLevel)
	assert.True(t, a.ShouldNotify)

	assert.Len(t, f.exceptions.created, 1)
	assert.Empty(t, f.notifications.created)
	require.Len(t, f.notifications.dismissals, 1)
	assert.Equal(t, domain.RiskHigh, f.notifications.dismissals[0].newLevel)
}

func TestAssessAll_SkipsWriteForUnchangedZeroScore(t *testing.T) {
	f := newEngineFixture(t)

	clean := baseContainer()
	clean.RiskLevel = domain.RiskLow

	f.containers.active = []domain.Container{clean}

	result, err := f.engine.AssessAll()
	require.NoError(t, err)

	assert.Equal(t, 1, result.Assessed)
	assert.Equal(t, 0, result.Changed)
	assert.Empty(t, f.containers.updates, "unchanged zero-score container must not be rewritten")
}

func TestAssessAll_WritesWhenScoreNonzeroEvenIfLevelUnchanged(t *testing.T) {
	f := newEngineFixture(t)

	c := baseContainer()
	c.Status = domain.StatusCustomsClearance // score 2 -> medium
	c.RiskLevel = domain.RiskMedium          // bucket unchanged

	f.containers.active = []domain.Container{c}

	result, err := f.engine.AssessAll()
	require.NoError(t, err)

	assert.Equal(t, 1, result.Assessed)
	assert.Equal(t, 0, result.Changed)
	// Reason text may have changed, so the write still happens
	require.Len(t, f.containers.updates, 1)
	assert.Equal(t, "In customs clearance", f.containers.updates[0].reason)
}

func TestAssessAll_PartialFailureIsolation(t *testing.T) {
	f := newEngineFixture(t)

	bad := demurrageContainer(domain.RiskUnknown)
	bad.ID = "c-bad"

	good := demurrageContainer(domain.RiskUnknown)
	good.ID = "c-good"

	f.containers.active = []domain.Container{bad, good}
	f.containers.failUpdateID = "c-bad"

	result, err := f.engine.AssessAll()
	require.NoError(t, err)

	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Assessed)
	assert.Equal(t, 1, result.Escalated)

	// The good container's side effects all landed
	require.Len(t, f.containers.updates, 1)
	assert.Equal(t, "c-good", f.containers.updates[0].containerID)
	require.Len(t, f.exceptions.created, 1)
	assert.Equal(t, "c-good", f.exceptions.created[0].ContainerID)
}

func TestAssessAll_NotificationFailureAbortsOnlyThatContainer(t *testing.T) {
	f := newEngineFixture(t)
	f.notifications.createErr = errors.New("store unavailable")

	first := demurrageContainer(domain.RiskUnknown)
	first.ID = "c-1"
	second := baseContainer()
	second.ID = "c-2"
	second.RiskLevel = domain.RiskLow

	f.containers.active = []domain.Container{first, second}

	result, err := f.engine.AssessAll()
	require.NoError(t, err)

	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Assessed)
	// The exception landed before the notification failure; nothing is
	// rolled back, the container is simply retried next cycle.
	assert.Len(t, f.exceptions.created, 1)
}
