package httputil

// Machine-readable error codes returned alongside human-readable messages.
// Clients should branch on these, not on the message text.
const (
	CodeInvalidRequestBody = "INVALID_REQUEST_BODY"
	CodeInternalError      = "INTERNAL_ERROR"
	CodeTooManyRequests    = "TOO_MANY_REQUESTS"

	CodeEmailRequired      = "EMAIL_REQUIRED"
	CodePasswordRequired   = "PASSWORD_REQUIRED"
	CodePasswordTooShort   = "PASSWORD_TOO_SHORT"
	CodeInvalidEmailFormat = "INVALID_EMAIL_FORMAT"
	CodeEmailAlreadyExists = "EMAIL_ALREADY_EXISTS"
	CodeUnknownEmail       = "UNKNOWN_EMAIL"

	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeAccountLocked      = "ACCOUNT_LOCKED"

	CodeInvalidToken = "INVALID_TOKEN"
	CodeStaleToken   = "STALE_TOKEN"
	CodeTokenExpired = "TOKEN_EXPIRED"

	CodeInvalidAuthHeader  = "INVALID_AUTH_HEADER"
	CodeMissingAuth        = "MISSING_AUTH"
	CodeInvalidTokenUserID = "INVALID_TOKEN_USER_ID"
)
