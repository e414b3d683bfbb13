package core

import (
	"errors"
	"fmt"
	"net/http"
)

type IdentityErrorType string

// ErrorClass groups error keys into the outcomes callers branch on.
type ErrorClass string

const (
	ErrorClassNotFound          ErrorClass = "not_found"
	ErrorClassConflict          ErrorClass = "conflict"
	ErrorClassValidation        ErrorClass = "validation"
	ErrorClassSecurityViolation ErrorClass = "security_violation"
	ErrorClassTransient         ErrorClass = "transient"
	ErrorClassInternal          ErrorClass = "internal"
)

const (
	// Account creation errors
	ErrKeyAccountCreationFailed IdentityErrorType = "ErrAccountCreationFailed"
	ErrKeyEmailAlreadyExists    IdentityErrorType = "ErrEmailAlreadyExists"
	ErrKeySlugAlreadyExists     IdentityErrorType = "ErrSlugAlreadyExists"
	ErrKeyInvalidSlug           IdentityErrorType = "ErrInvalidSlug"
	ErrKeyPasswordHashingFailed IdentityErrorType = "ErrPasswordHashingFailed"

	// Account lookup errors
	ErrKeyAccountNotFound       IdentityErrorType = "ErrAccountNotFound"
	ErrKeyLegacyAccountNotFound IdentityErrorType = "ErrLegacyAccountNotFound"

	// Account update errors
	ErrKeyAccountUpdateFailed IdentityErrorType = "ErrAccountUpdateFailed"
	ErrKeyEmailImmutable      IdentityErrorType = "ErrEmailImmutable"

	// Credential errors
	ErrKeyCredentialNotFound IdentityErrorType = "ErrCredentialNotFound"
	ErrKeyCredentialExists   IdentityErrorType = "ErrCredentialExists"
	ErrKeyInvalidPassword    IdentityErrorType = "ErrInvalidPassword"
	ErrKeyPasswordNotSet     IdentityErrorType = "ErrPasswordNotSet"

	// External login errors
	ErrKeyExternalLoginNotFound IdentityErrorType = "ErrExternalLoginNotFound"
	ErrKeyProviderIdentityTaken IdentityErrorType = "ErrProviderIdentityTaken"
	ErrKeyUnverifiedEmailLink   IdentityErrorType = "ErrUnverifiedEmailLink"

	// Authentication method errors
	ErrKeyLastAuthMethod IdentityErrorType = "ErrLastAuthMethod"

	// Profile and preference errors
	ErrKeyProfileNotFound     IdentityErrorType = "ErrProfileNotFound"
	ErrKeyPreferencesNotFound IdentityErrorType = "ErrPreferencesNotFound"

	// Export errors
	ErrKeyExportFailed IdentityErrorType = "ErrExportFailed"

	// Migration errors
	ErrKeyMigrationVerifyFailed IdentityErrorType = "ErrMigrationVerifyFailed"
	ErrKeyDualWriteFailed       IdentityErrorType = "ErrDualWriteFailed"

	// General errors
	ErrKeyDatabaseOperationFailed IdentityErrorType = "ErrDatabaseOperationFailed"
)

var defaultErrorMessages = map[IdentityErrorType]string{
	// Account creation errors
	ErrKeyAccountCreationFailed: "Account creation failed due to an internal error.",
	ErrKeyEmailAlreadyExists:    "The email address provided is already in use.",
	ErrKeySlugAlreadyExists:     "The slug provided is already in use.",
	ErrKeyInvalidSlug:           "The slug provided is not URL-safe.",
	ErrKeyPasswordHashingFailed: "Failed to secure the password, please try again later.",

	// Account lookup errors
	ErrKeyAccountNotFound:       "The requested account was not found.",
	ErrKeyLegacyAccountNotFound: "The legacy account record was not found.",

	// Account update errors
	ErrKeyAccountUpdateFailed: "Failed to update account information.",
	ErrKeyEmailImmutable:      "The account email address cannot be changed.",

	// Credential errors
	ErrKeyCredentialNotFound: "No password is set for this account.",
	ErrKeyCredentialExists:   "A password is already set for this account.",
	ErrKeyInvalidPassword:    "The password provided is incorrect.",
	ErrKeyPasswordNotSet:     "No password is set for this account.",

	// External login errors
	ErrKeyExternalLoginNotFound: "The requested external login was not found.",
	ErrKeyProviderIdentityTaken: "This provider identity is already linked to an account.",
	ErrKeyUnverifiedEmailLink:   "Cannot link a provider identity to an unverified account.",

	// Authentication method errors
	ErrKeyLastAuthMethod: "The last remaining authentication method cannot be removed.",

	// Profile and preference errors
	ErrKeyProfileNotFound:     "No profile exists for this account.",
	ErrKeyPreferencesNotFound: "No preferences exist for this account.",

	// Export errors
	ErrKeyExportFailed: "The account data export could not be completed.",

	// Migration errors
	ErrKeyMigrationVerifyFailed: "Migration verification found mismatched records.",
	ErrKeyDualWriteFailed:       "A dual write failed to update both representations.",

	// General errors
	ErrKeyDatabaseOperationFailed: "A database operation failed.",
}

var errorClasses = map[IdentityErrorType]ErrorClass{
	ErrKeyAccountCreationFailed: ErrorClassInternal,
	ErrKeyEmailAlreadyExists:    ErrorClassConflict,
	ErrKeySlugAlreadyExists:     ErrorClassConflict,
	ErrKeyInvalidSlug:           ErrorClassValidation,
	ErrKeyPasswordHashingFailed: ErrorClassInternal,

	ErrKeyAccountNotFound:       ErrorClassNotFound,
	ErrKeyLegacyAccountNotFound: ErrorClassNotFound,

	ErrKeyAccountUpdateFailed: ErrorClassInternal,
	ErrKeyEmailImmutable:      ErrorClassValidation,

	ErrKeyCredentialNotFound: ErrorClassNotFound,
	ErrKeyCredentialExists:   ErrorClassConflict,
	ErrKeyInvalidPassword:    ErrorClassValidation,
	ErrKeyPasswordNotSet:     ErrorClassValidation,

	ErrKeyExternalLoginNotFound: ErrorClassNotFound,
	ErrKeyProviderIdentityTaken: ErrorClassConflict,
	ErrKeyUnverifiedEmailLink:   ErrorClassSecurityViolation,

	ErrKeyLastAuthMethod: ErrorClassValidation,

	ErrKeyProfileNotFound:     ErrorClassNotFound,
	ErrKeyPreferencesNotFound: ErrorClassNotFound,

	ErrKeyExportFailed: ErrorClassInternal,

	ErrKeyMigrationVerifyFailed: ErrorClassInternal,
	ErrKeyDualWriteFailed:       ErrorClassTransient,

	ErrKeyDatabaseOperationFailed: ErrorClassTransient,
}

var errorCodeToHttpStatus = map[IdentityErrorType]int{
	ErrKeyAccountCreationFailed: http.StatusInternalServerError,
	ErrKeyEmailAlreadyExists:    http.StatusConflict,
	ErrKeySlugAlreadyExists:     http.StatusConflict,
	ErrKeyInvalidSlug:           http.StatusBadRequest,
	ErrKeyPasswordHashingFailed: http.StatusInternalServerError,

	ErrKeyAccountNotFound:       http.StatusNotFound,
	ErrKeyLegacyAccountNotFound: http.StatusNotFound,

	ErrKeyAccountUpdateFailed: http.StatusInternalServerError,
	ErrKeyEmailImmutable:      http.StatusBadRequest,

	ErrKeyCredentialNotFound: http.StatusNotFound,
	ErrKeyCredentialExists:   http.StatusConflict,
	ErrKeyInvalidPassword:    http.StatusUnauthorized,
	ErrKeyPasswordNotSet:     http.StatusBadRequest,

	ErrKeyExternalLoginNotFound: http.StatusNotFound,
	ErrKeyProviderIdentityTaken: http.StatusConflict,
	ErrKeyUnverifiedEmailLink:   http.StatusForbidden,

	ErrKeyLastAuthMethod: http.StatusBadRequest,

	ErrKeyProfileNotFound:     http.StatusNotFound,
	ErrKeyPreferencesNotFound: http.StatusNotFound,

	ErrKeyExportFailed: http.StatusInternalServerError,

	ErrKeyMigrationVerifyFailed: http.StatusInternalServerError,
	ErrKeyDualWriteFailed:       http.StatusServiceUnavailable,

	ErrKeyDatabaseOperationFailed: http.StatusInternalServerError,
}

type IdentityError struct {
	Key     IdentityErrorType // A unique identifier for the error type
	Message string            // Human-readable error message
	Err     error             // Underlying error, if any
}

func (e *IdentityError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *IdentityError) Unwrap() error {
	return e.Err
}

func (e *IdentityError) IsErrorType(key IdentityErrorType) bool {
	return e.Key == key
}

func (e *IdentityError) Class() ErrorClass {
	if class, exists := errorClasses[e.Key]; exists {
		return class
	}
	return ErrorClassInternal
}

func (e *IdentityError) HttpStatus() int {
	if status, exists := errorCodeToHttpStatus[e.Key]; exists {
		return status
	}
	return http.StatusInternalServerError
}

func NewIdentityError(key IdentityErrorType, err error, customMessage ...string) *IdentityError {
	message, exists := defaultErrorMessages[key]
	if !exists {
		message = "An unknown error occurred"
	}
	if len(customMessage) > 0 {
		message = customMessage[0]
	}
	return &IdentityError{
		Key:     key,
		Message: message,
		Err:     err,
	}
}

func IsIdentityError(err error) bool {
	var e *IdentityError
	return errors.As(err, &e)
}

func AsIdentityError(err error) *IdentityError {
	var e *IdentityError
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// IsErrorType reports whether err is an IdentityError with the given key.
func IsErrorType(err error, key IdentityErrorType) bool {
	if e := AsIdentityError(err); e != nil {
		return e.IsErrorType(key)
	}
	return false
}

// IsErrorClass reports whether err is an IdentityError of the given class.
func IsErrorClass(err error, class ErrorClass) bool {
	if e := AsIdentityError(err); e != nil {
		return e.Class() == class
	}
	return false
}
