package domain

// Error is a user-facing failure reported by the backend. Code is stable
// and machine readable; Message is shown verbatim to the user.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches errors by code so wrapped copies with a custom message still match.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithMessage returns a copy of e carrying a more specific message
func (e *Error) WithMessage(msg string) *Error {
	return &Error{Code: e.Code, Message: msg}
}

var (
	ErrInvalidCredentials  = &Error{Code: "invalid_credentials", Message: "Invalid login credentials"}
	ErrEmailTaken          = &Error{Code: "user_already_exists", Message: "User already registered"}
	ErrEmailNotConfirmed   = &Error{Code: "email_not_confirmed", Message: "Email not confirmed"}
	ErrWeakPassword        = &Error{Code: "weak_password", Message: "Password is too weak"}
	ErrUnsupportedProvider = &Error{Code: "unsupported_provider", Message: "Unsupported provider"}
	ErrInvalidToken        = &Error{Code: "invalid_token", Message: "Invalid or expired token"}
	ErrNotFound            = &Error{Code: "not_found", Message: "Resource not found"}
	ErrUnknownService      = &Error{Code: "unknown_service", Message: "Unknown AI service"}
	ErrUnknownTable        = &Error{Code: "unknown_table", Message: "Unknown table"}
)
