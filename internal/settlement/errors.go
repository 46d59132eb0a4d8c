package settlement

import "fmt"

// Code classifies settlement failures for callers. Replay signals
// ("already processing", "already processed") are not errors; they are
// reported on results.
type Code string

const (
	CodeInvalidInput Code = "invalid_input"
	CodeNotFound     Code = "not_found"
	// CodeAddressMismatch rejects a confirm whose caller address does not
	// match the record, so one wallet cannot claim another's payment.
	CodeAddressMismatch Code = "address_mismatch"
	// CodeVerificationFailed means the payment or transfer could not be
	// confirmed; the record is failed and no value moved.
	CodeVerificationFailed Code = "verification_failed"
	// CodeValueActionFailed means the mint or burn failed after verification
	// succeeded. One side of the exchange already happened, so the record is
	// flagged for manual reconciliation.
	CodeValueActionFailed Code = "value_action_failed"
	// CodeDownstreamUnavailable marks transient collaborator outages; the
	// record keeps its prior state and the call is safe to retry.
	CodeDownstreamUnavailable Code = "downstream_unavailable"
)

type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func E(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf extracts the settlement code, or empty for foreign errors.
func CodeOf(err error) Code {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ""
}
