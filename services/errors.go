package services

import "fmt"

// Error codes for the service layer. Controllers map these onto HTTP
// statuses and the JSON error envelope.
const (
	CodeTokenNotFound     = "TOKEN_NOT_FOUND"
	CodeAccessDenied      = "ACCESS_DENIED"
	CodeQuotaExhausted    = "QUOTA_EXHAUSTED"
	CodeInvalidPhone      = "INVALID_PHONE"
	CodeEmptyMessage      = "EMPTY_MESSAGE"
	CodeAudioTextTooLong  = "AUDIO_TEXT_TOO_LONG"
	CodeInvalidSchedule   = "INVALID_SCHEDULE"
	CodeDuplicateSale     = "DUPLICATE_SALE"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeLocked            = "LOCKED"
	CodeNotFound          = "NOT_FOUND"
	CodeInvalidUpload     = "INVALID_UPLOAD"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeUnauthorized      = "UNAUTHORIZED"
)

// Access-denial reasons reported by the form access gate
const (
	ReasonNotPaid         = "not_paid"
	ReasonAlreadyComplete = "already_complete"
	ReasonClosed          = "closed"
	ReasonQuotaExhausted  = "quota_exhausted"
)

// ServiceError is a typed business error with a stable code
type ServiceError struct {
	Code    string
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}

// NewServiceError creates a service error with a formatted message
func NewServiceError(code, format string, args ...interface{}) *ServiceError {
	return &ServiceError{Code: code, Message: fmt.Sprintf(format, args...)}
}

var (
	// ErrTokenNotFound means the form token maps to no order
	ErrTokenNotFound = &ServiceError{Code: CodeTokenNotFound, Message: "This link does not exist or has expired"}

	// ErrQuotaExhausted means every message the plan allows was already sent
	ErrQuotaExhausted = &ServiceError{Code: CodeQuotaExhausted, Message: "All messages for this order have already been sent"}

	// ErrInvalidPhone means the recipient phone did not normalize
	ErrInvalidPhone = &ServiceError{Code: CodeInvalidPhone, Message: "Invalid phone number"}

	// ErrEmptyMessage means the message text was empty after trimming
	ErrEmptyMessage = &ServiceError{Code: CodeEmptyMessage, Message: "Message cannot be empty"}

	// ErrInvalidSchedule means the schedule timestamp is too soon
	ErrInvalidSchedule = &ServiceError{Code: CodeInvalidSchedule, Message: "Scheduled delivery must be at least 5 minutes in the future"}

	// ErrLocked means a loyalty chat write was attempted while blurred
	ErrLocked = &ServiceError{Code: CodeLocked, Message: "Test is not active or has expired"}
)

// NewAccessDenied creates an access-denial error carrying the gate's reason
func NewAccessDenied(reason string) *ServiceError {
	return &ServiceError{
		Code:    CodeAccessDenied,
		Message: fmt.Sprintf("Access denied: %s", reason),
	}
}
