package access

import "fmt"

// Suggested client actions attached to rejections.
const (
	ActionUpgrade = "upgrade"
	ActionWait    = "wait"
)

// Rejection reasons surfaced to clients.
const (
	ReasonConcurrentLimit = "concurrent session limit reached"
	ReasonDailyLimit      = "daily usage limit reached"
)

// TierNotFoundError is returned when a user references a tier that does not
// exist in the catalog. It is a client error, never retried.
type TierNotFoundError struct {
	Tier string
}

func (e *TierNotFoundError) Error() string {
	return fmt.Sprintf("invalid tier: %s", e.Tier)
}

// LimitExceededError is returned when a tier's concurrent-session or daily
// usage cap blocks a new session. Reason and Action let the client render a
// specific upgrade or retry prompt.
type LimitExceededError struct {
	Reason string
	Action string
}

func (e *LimitExceededError) Error() string {
	return e.Reason
}

// AccessResult is the outcome of a permission check.
type AccessResult struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
	Action  string `json:"action,omitempty"`
}
