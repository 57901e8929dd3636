package backend

import (
	"net/http"
	"strings"
)

// APIError is an error response from the backend, or a transport failure
// when Status is 0.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

var networkCodes = map[string]bool{
	"CONNECTION_ERROR":       true,
	"PGRST_CONNECTION_ERROR": true,
	"SERVICE_UNAVAILABLE":    true,
	"NETWORK_ERROR":          true,
}

// NetworkFailure reports whether the failure was caused by connectivity
// rather than by the backend rejecting the request.
func (e *APIError) NetworkFailure() bool {
	switch e.Status {
	case 0, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return networkCodes[strings.ToUpper(e.Code)]
}
