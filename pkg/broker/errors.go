package broker

import "fmt"

type ErrorReason string

const ErrReasonDeviceUnreachable ErrorReason = "ERR_DEVICE_UNREACHABLE"
const ErrReasonDeviceTimeout ErrorReason = "ERR_DEVICE_TIMEOUT"
const ErrReasonInsufficientCredit ErrorReason = "ERR_INSUFFICIENT_CREDIT"
const ErrReasonDeviceFull ErrorReason = "ERR_DEVICE_FULL"
const ErrReasonDeviceInactive ErrorReason = "ERR_DEVICE_INACTIVE"
const ErrReasonHandleClosed ErrorReason = "ERR_HANDLE_CLOSED"

func (e ErrorReason) String() string {
	return string(e)
}

// DenialError is returned by the capacity and credit guard when a
// provisioning request must not proceed. Denials mutate no state and are
// surfaced verbatim to the caller.
type DenialError struct {
	Reason  ErrorReason
	Message string
}

func NewDenialError(reason ErrorReason, message string) error {
	return &DenialError{
		Reason:  reason,
		Message: message,
	}
}

func (e *DenialError) Error() string {
	return fmt.Sprintf("provisioning denied: reason: %s", e.Reason)
}

func IsDenialError(e error) bool {
	_, ok := e.(*DenialError)
	return ok
}

// TransportError is returned when a device could not be reached, timed
// out or the pooled handle died underneath the caller. It carries the
// device id and the failed stage so callers can decide retry vs. abandon.
type TransportError struct {
	Reason   ErrorReason
	DeviceID int32
	Stage    string
	Err      error
}

func NewTransportError(reason ErrorReason, deviceID int32, stage string, err error) error {
	return &TransportError{
		Reason:   reason,
		DeviceID: deviceID,
		Stage:    stage,
		Err:      err,
	}
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("device %d: %s: reason: %s: %s", e.DeviceID, e.Stage, e.Reason, e.Err.Error())
	}
	return fmt.Sprintf("device %d: %s: reason: %s", e.DeviceID, e.Stage, e.Reason)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func IsTransportError(e error) bool {
	_, ok := e.(*TransportError)
	return ok
}

// ReasonOf extracts the machine-checkable reason code of a broker error,
// or an empty reason for errors outside the taxonomy.
func ReasonOf(e error) ErrorReason {
	switch err := e.(type) {
	case *DenialError:
		return err.Reason
	case *TransportError:
		return err.Reason
	}
	return ErrorReason("")
}

func hasReason(e error, reason ErrorReason) bool {
	return e != nil && ReasonOf(e) == reason
}

func IsDeviceUnreachable(e error) bool { return hasReason(e, ErrReasonDeviceUnreachable) }
func IsDeviceTimeout(e error) bool     { return hasReason(e, ErrReasonDeviceTimeout) }
func IsHandleClosed(e error) bool      { return hasReason(e, ErrReasonHandleClosed) }
