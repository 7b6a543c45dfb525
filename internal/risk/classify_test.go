package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/harborline/harborwatch/internal/domain"
)

func TestClassifyException_PriorityOrder(t *testing.T) {
	tests := []struct {
		name     string
		reasons  []string
		expected domain.ExceptionType
	}{
		{
			name:     "demurrage wins over everything",
			reasons:  []string{"Demurrage accruing - 2 day(s) past LFD", "In customs clearance", "Active holds: Carrier Hold"},
			expected: domain.ExceptionDemurrageRisk,
		},
		{
			name:     "customs wins over delay and hold",
			reasons:  []string{"In customs clearance", "ETA passed 1 day(s) ago - container delayed", "Active holds: Carrier Hold"},
			expected: domain.ExceptionCustomsIssue,
		},
		{
			name:     "eta passed classifies as delay",
			reasons:  []string{"ETA passed 4 day(s) ago - container delayed"},
			expected: domain.ExceptionDelay,
		},
		{
			name:     "marked delayed classifies as delay",
			reasons:  []string{"Container marked as delayed"},
			expected: domain.ExceptionDelay,
		},
		{
			name:     "hold only",
			reasons:  []string{"Active holds: Carrier Hold"},
			expected: domain.ExceptionDocumentationHold,
		},
		{
			name:     "no recognized substring falls back to escalation",
			reasons:  []string{"LFD in 2 day(s)"},
			expected: domain.ExceptionRiskEscalation,
		},
		{
			name:     "empty reasons fall back to escalation",
			reasons:  nil,
			expected: domain.ExceptionRiskEscalation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyException(tt.reasons))
		})
	}
}

func TestClassifyNotification_MapsHoldToGenericException(t *testing.T) {
	assert.Equal(t, domain.NotificationDemurrageAlert,
		ClassifyNotification([]string{"Demurrage accruing - 1 day(s) past LFD"}))
	assert.Equal(t, domain.NotificationCustomsHold,
		ClassifyNotification([]string{"In customs clearance"}))
	assert.Equal(t, domain.NotificationDelay,
		ClassifyNotification([]string{"ETA passed 2 day(s) ago - container delayed"}))
	// Holds have no dedicated notification type
	assert.Equal(t, domain.NotificationException,
		ClassifyNotification([]string{"Active holds: Carrier Hold"}))
	assert.Equal(t, domain.NotificationException,
		ClassifyNotification([]string{"LFD is TODAY - immediate action required"}))
}
