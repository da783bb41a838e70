package apierror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// ErrorResponse is what services hand back to routes: an HTTP status plus
// a JSON-serializable body carrying a stable code and a human message.
type ErrorResponse interface {
	Code() int
}

type apiError struct {
	Status  int    `json:"-"`
	ErrCode string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Code() int {
	return e.Status
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s: %s", e.ErrCode, e.Message)
}

func New(status int, code, message string) ErrorResponse {
	return &apiError{Status: status, ErrCode: code, Message: message}
}

func NewSimple(status int, message string) ErrorResponse {
	return &apiError{Status: status, ErrCode: "BAD_REQUEST", Message: message}
}

func NewMissingParamError(name string) ErrorResponse {
	return &apiError{
		Status:  http.StatusBadRequest,
		ErrCode: "MISSING_PARAM",
		Message: fmt.Sprintf("Missing required parameter %q", name),
	}
}

func NewInvalidParamTypeError(name, expected string) ErrorResponse {
	return &apiError{
		Status:  http.StatusBadRequest,
		ErrCode: "INVALID_PARAM",
		Message: fmt.Sprintf("Parameter %q must be of type %s", name, expected),
	}
}

type fieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

type validationError struct {
	apiError
	Fields []fieldError `json:"fields"`
}

// FromValidationError flattens a validator.ValidationErrors into a 400
// response listing every failed field and rule.
func FromValidationError(err error) ErrorResponse {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return MalformedBodyError
	}

	fields := make([]fieldError, len(verrs))
	for i, fe := range verrs {
		fields[i] = fieldError{Field: fe.Field(), Rule: fe.Tag()}
	}

	return &validationError{
		apiError: apiError{
			Status:  http.StatusBadRequest,
			ErrCode: "VALIDATION_FAILED",
			Message: "One or more fields failed validation",
		},
		Fields: fields,
	}
}

// Generic failures.
var (
	InternalServerError   = New(http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong on our side")
	MalformedBodyError    = New(http.StatusBadRequest, "MALFORMED_BODY", "Request body could not be parsed")
	NotFoundError         = New(http.StatusNotFound, "NOT_FOUND", "The requested resource does not exist")
	InvalidAuthTokenError = New(http.StatusUnauthorized, "INVALID_AUTH_TOKEN", "Authorization token is missing or invalid")
)

// Swap-engine failures. Each names the precondition that failed so the
// client can render a specific message.
var (
	NotOwnerError         = New(http.StatusForbidden, "NOT_OWNER", "You do not own this slot")
	NotResponderError     = New(http.StatusForbidden, "NOT_RESPONDER", "Only the responder may resolve this swap request")
	NotSwappableError     = New(http.StatusConflict, "NOT_SWAPPABLE", "Slot is not in the required status for this operation")
	DuplicatePendingError = New(http.StatusConflict, "DUPLICATE_PENDING", "A pending swap request already references one of these slots")
	AlreadyResolvedError  = New(http.StatusConflict, "ALREADY_RESOLVED", "This swap request has already been resolved")
	SlotPendingError      = New(http.StatusConflict, "SLOT_PENDING", "Slot is locked by a pending swap request")
	InvalidTimeRangeError = New(http.StatusBadRequest, "INVALID_TIME_RANGE", "Start time must be before end time")
)

// Identity-provider failures.
var (
	UserAlreadyExistsError      = New(http.StatusConflict, "USER_EXISTS", "A user with this email already exists")
	UserAlreadyConfirmedError   = New(http.StatusConflict, "USER_CONFIRMED", "This account is already confirmed")
	IDPInvalidPasswordError     = New(http.StatusBadRequest, "IDP_INVALID_PASSWORD", "Password does not meet the identity provider's policy")
	IDPExistingEmailError       = New(http.StatusConflict, "IDP_EMAIL_EXISTS", "The identity provider already knows this email")
	IDPUserNotFoundError        = New(http.StatusNotFound, "IDP_USER_NOT_FOUND", "No account exists for this email")
	IDPUserNotConfirmedError    = New(http.StatusForbidden, "IDP_USER_NOT_CONFIRMED", "Account has not been confirmed yet")
	IDPCredentialsMismatchError = New(http.StatusUnauthorized, "IDP_BAD_CREDENTIALS", "Email or password is incorrect")
	IDPConfirmCodeMismatchError = New(http.StatusBadRequest, "IDP_CODE_MISMATCH", "Confirmation code does not match")
	IDPConfirmCodeExpiredError  = New(http.StatusBadRequest, "IDP_CODE_EXPIRED", "Confirmation code has expired")
)
