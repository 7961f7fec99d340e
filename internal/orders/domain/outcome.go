package domain

// IgnoreReason explains why a transition was not applied.
type IgnoreReason string

const (
	ReasonNotFound    IgnoreReason = "not_found"
	ReasonWrongStatus IgnoreReason = "wrong_status"
)

// Outcome reports whether a lifecycle transition took effect. Ignored
// transitions leave state untouched and are not errors.
type Outcome struct {
	Applied bool         `json:"applied"`
	Reason  IgnoreReason `json:"reason,omitempty"`
}

func Applied() Outcome {
	return Outcome{Applied: true}
}

func Ignored(reason IgnoreReason) Outcome {
	return Outcome{Reason: reason}
}
