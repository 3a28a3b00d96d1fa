package automation

import (
	"time"

	"campaign-automator-api/internal/domain"
)

const (
	ReasonMaxExecutions   = "max executions reached"
	ReasonCooldown        = "cooldown active"
	ReasonConditionNotMet = "condition not met"
	ReasonClaimLost       = "already executed by a concurrent run"
	ReasonInactive        = "rule deactivated"
	ReasonBatchDeadline   = "batch deadline exceeded"
)

// CanExecute reports whether the rule's bookkeeping allows another execution at now.
func CanExecute(rule domain.AutomationRule, now time.Time) bool {
	ok, _ := checkGuard(rule, now)
	return ok
}

// checkGuard is CanExecute plus the skip reason.
func checkGuard(rule domain.AutomationRule, now time.Time) (bool, string) {
	if rule.MaxExecutions != nil && rule.ExecutionCount >= *rule.MaxExecutions {
		return false, ReasonMaxExecutions
	}
	if rule.LastExecutedAt != nil {
		elapsed := now.Sub(*rule.LastExecutedAt).Minutes()
		if elapsed < float64(rule.CooldownMinutes) {
			return false, ReasonCooldown
		}
	}
	return true, ""
}
