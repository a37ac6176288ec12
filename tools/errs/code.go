package errs

// Gateway error taxonomy. Connection-level errors (401x) are terminal:
// no connection record exists afterwards. Operation-level errors (403x)
// go back to the requester only and leave the connection open.
const (
	AuthenticationRequiredCode = 4010
	InvalidCredentialCode      = 4011
	ChannelAccessDeniedCode    = 4030
	PermissionDeniedCode       = 4031
	InternalDispatchErrorCode  = 5000
)

var (
	ErrAuthenticationRequired = NewCodeError(AuthenticationRequiredCode, "authentication required")
	ErrInvalidCredential      = NewCodeError(InvalidCredentialCode, "invalid credential")
	ErrChannelAccessDenied    = NewCodeError(ChannelAccessDeniedCode, "channel access denied")
	ErrPermissionDenied       = NewCodeError(PermissionDeniedCode, "permission denied")
	ErrInternalDispatch       = NewCodeError(InternalDispatchErrorCode, "internal dispatch error")
)
