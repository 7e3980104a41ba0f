package types

// API error codes.
const (
	ErrCodeBadRequest   = "CATALOG_400"
	ErrCodeNotFound     = "CATALOG_404"
	ErrCodeUnknownCode  = "CODE_404"
	ErrCodeDecodeFailed = "DECODE_400"
	ErrCodeUnauthorized = "AUTH_401"
	ErrCodeForbidden    = "AUTH_403"
)

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// NewErrorResponse builds a consistent API error payload.
// details can be string, map, struct, etc.
func NewErrorResponse(code, message string, details any) ErrorResponse {
	return ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}
