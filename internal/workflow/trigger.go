package workflow

// Trigger represents an event that can cause a state transition
type Trigger string

const (
	// TriggerProcess batches unaccounted expenses under a shared batch id.
	TriggerProcess Trigger = "PROCESS"
	// TriggerConfirm stamps the confirmation amounts onto an accounted batch.
	TriggerConfirm Trigger = "CONFIRM"
	// TriggerPay settles a confirmed batch.
	TriggerPay Trigger = "PAY"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
