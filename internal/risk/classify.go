package risk

import (
	"strings"

	"github.com/harborline/harborwatch/internal/domain"
)

// reasonRule pairs a reason-text predicate with the exception and
// notification categories it selects. Rules are evaluated in fixed order and
// the first match wins; the order is observable behavior (a container that is
// both in demurrage and under a customs hold classifies as demurrage).
type reasonRule struct {
	match        func(string) bool
	exception    domain.ExceptionType
	notification domain.NotificationType
}

func containsAny(substrings ...string) func(string) bool {
	return func(text string) bool {
		for _, s := range substrings {
			if strings.Contains(text, s) {
				return true
			}
		}
		return false
	}
}

// classificationRules in priority order: Demurrage > Customs > Delay > Hold.
// On the notification side holds have no dedicated type and fall through to
// the generic EXCEPTION.
var classificationRules = []reasonRule{
	{containsAny("Demurrage"), domain.ExceptionDemurrageRisk, domain.NotificationDemurrageAlert},
	{containsAny("Customs"), domain.ExceptionCustomsIssue, domain.NotificationCustomsHold},
	{containsAny("delayed", "ETA passed"), domain.ExceptionDelay, domain.NotificationDelay},
	{containsAny("hold"), domain.ExceptionDocumentationHold, domain.NotificationException},
}

// ClassifyException picks the exception type for a set of assessment reasons
func ClassifyException(reasons []string) domain.ExceptionType {
	text := strings.Join(reasons, ". ")
	for _, rule := range classificationRules {
		if rule.match(text) {
			return rule.exception
		}
	}
	return domain.ExceptionRiskEscalation
}

// ClassifyNotification picks the notification type for a set of assessment reasons
func ClassifyNotification(reasons []string) domain.NotificationType {
	text := strings.Join(reasons, ". ")
	for _, rule := range classificationRules {
		if rule.match(text) {
			return rule.notification
		}
	}
	return domain.NotificationException
}
