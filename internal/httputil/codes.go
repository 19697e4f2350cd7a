package httputil

// Machine-readable error codes returned alongside human messages so the
// frontend can branch without string matching.
const (
	CodeInvalidRequestBody = "invalid_request_body"
	CodeValidationFailed   = "validation_failed"
	CodeInvalidCredentials = "invalid_credentials"
	CodeEmailAlreadyExists = "email_already_exists"
	CodePhoneAlreadyExists = "phone_already_exists"
	CodeMissingAuth        = "missing_auth"
	CodeInvalidToken       = "invalid_token"
	CodeUserNotFound       = "user_not_found"
	CodeFileRequired       = "file_required"
	CodeTooManyRequests    = "too_many_requests"
	CodeInternalError      = "internal_error"
)
