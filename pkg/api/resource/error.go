package resource

// ErrorResource is the payload of every failed API call: a stable reason
// code plus a human-readable message.
type ErrorResource struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

func NewError(reason, message string) *ErrorResource {
	return &ErrorResource{
		Reason:  reason,
		Message: message,
	}
}
