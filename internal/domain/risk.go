package domain

// RiskLevel represents a container's assessed risk bucket.
// The zero value means "never assessed".
type RiskLevel string

const (
	RiskUnknown  RiskLevel = ""
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Rank returns the total order used for escalation comparisons:
// critical=4 > high=3 > medium=2 > low=1 > unknown=0.
// Unknown strings rank 0 so a corrupt stored value is treated as
// "never assessed" rather than comparing lexically.
func (l RiskLevel) Rank() int {
	switch l {
	case RiskCritical:
		return 4
	case RiskHigh:
		return 3
	case RiskMedium:
		return 2
	case RiskLow:
		return 1
	default:
		return 0
	}
}

// IsValid reports whether the level is a known bucket (unknown is valid)
func (l RiskLevel) IsValid() bool {
	switch l {
	case RiskUnknown, RiskLow, RiskMedium, RiskHigh, RiskCritical:
		return true
	default:
		return false
	}
}

// NotificationPriority represents the urgency attached to a notification
type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "low"
	PriorityNormal NotificationPriority = "normal"
	PriorityHigh   NotificationPriority = "high"
	PriorityUrgent NotificationPriority = "urgent"
)
