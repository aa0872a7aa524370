package enums

// WorkflowState is the order submission lifecycle.
type WorkflowState string

const (
	WorkflowStateIdle       WorkflowState = "idle"
	WorkflowStateSubmitting WorkflowState = "submitting"
	WorkflowStateSuccess    WorkflowState = "success"
	WorkflowStateFailed     WorkflowState = "failed"
)

// String implements fmt.Stringer.
func (w WorkflowState) String() string {
	return string(w)
}
