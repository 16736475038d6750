package errors

const (
	HttpInternalError     = "internal_error"
	HttpInvalidJsonError  = "invalid_json"
	HttpInvalidQueryError = "invalid_query"
	HttpInvalidSelector   = "invalid_selector"
	HttpNotFoundError     = "not_found"
	HttpUnavailableError  = "store_unavailable"
)

// ErrorResponse is the error response body shared by every HTTP surface.
type ErrorResponse struct {
	ErrorType string      `json:"error_type"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}
