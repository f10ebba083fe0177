package flamestate

const (
	WorkflowName   = "ritual_ensure_flame_state"
	ActivityEnsure = "ritual_ensure_flame_state_apply"

	// Error types the workflow never retries.
	ErrTypeUnauthorized = "ritual_unauthorized"
	ErrTypeValidation   = "ritual_validation"
)

type Input struct {
	UserID string `json:"user_id"`
}

// WorkflowID keeps at most one ensure run per user in flight.
func WorkflowID(userID string) string {
	return "ensure-flame-state-" + userID
}
