package errors

import "net/http"

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes shared by every module.
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_003"
	ErrCodeConflict           ErrorCode = "COMMON_004"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_005"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_006"
	ErrCodeTimeout            ErrorCode = "COMMON_007"
	ErrCodeValidation         ErrorCode = "COMMON_008"
	ErrCodeSerialization      ErrorCode = "COMMON_009"
	ErrCodeDatabaseError      ErrorCode = "COMMON_010"
	ErrCodeCacheError         ErrorCode = "COMMON_011"
	ErrCodeExternalService    ErrorCode = "COMMON_012"
)

// Patient module error codes.
const (
	ErrCodePatientNotFound      ErrorCode = "PAT_001"
	ErrCodePatientAlreadyExists ErrorCode = "PAT_002"
	ErrCodePatientInvalid       ErrorCode = "PAT_003"
)

// Trial module error codes.
const (
	ErrCodeTrialNotFound      ErrorCode = "TRL_001"
	ErrCodeTrialAlreadyExists ErrorCode = "TRL_002"
	ErrCodeTrialInvalid       ErrorCode = "TRL_003"
)

// Matching module error codes.
const (
	ErrCodeMatchFailed        ErrorCode = "MCH_001"
	ErrCodeMatchPersistFailed ErrorCode = "MCH_002"
	ErrCodeNoCandidates       ErrorCode = "MCH_003"
	ErrCodeMinScoreInvalid    ErrorCode = "MCH_004"
)

// Trial registry (ClinicalTrials.gov) error codes.
const (
	ErrCodeRegistryUnavailable ErrorCode = "REG_001"
	ErrCodeRegistryRateLimited ErrorCode = "REG_002"
	ErrCodeRegistryParseError  ErrorCode = "REG_003"
)

// Oracle (LLM extraction / prediction) error codes.
const (
	ErrCodeOracleUnavailable   ErrorCode = "ORC_001"
	ErrCodeOracleInvalidOutput ErrorCode = "ORC_002"
)

// Aliases kept short for call sites.
const (
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeConflict     = ErrCodeConflict
	CodeRateLimit    = ErrCodeTooManyRequests
	CodeOK           = ErrorCode("OK")
	CodeUnknown      = ErrorCode("UNKNOWN")
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,

	ErrCodePatientNotFound:      http.StatusNotFound,
	ErrCodePatientAlreadyExists: http.StatusConflict,
	ErrCodePatientInvalid:       http.StatusBadRequest,

	ErrCodeTrialNotFound:      http.StatusNotFound,
	ErrCodeTrialAlreadyExists: http.StatusConflict,
	ErrCodeTrialInvalid:       http.StatusBadRequest,

	ErrCodeMatchFailed:        http.StatusInternalServerError,
	ErrCodeMatchPersistFailed: http.StatusInternalServerError,
	ErrCodeNoCandidates:       http.StatusNotFound,
	ErrCodeMinScoreInvalid:    http.StatusBadRequest,

	ErrCodeRegistryUnavailable: http.StatusBadGateway,
	ErrCodeRegistryRateLimited: http.StatusTooManyRequests,
	ErrCodeRegistryParseError:  http.StatusBadGateway,

	ErrCodeOracleUnavailable:   http.StatusBadGateway,
	ErrCodeOracleInvalidOutput: http.StatusBadGateway,
}

// HTTPStatus returns the HTTP status code for an ErrorCode, defaulting to 500
// for codes without an explicit mapping.
func (c ErrorCode) HTTPStatus() int {
	if status, ok := ErrorCodeHTTPStatus[c]; ok {
		return status
	}
	return http.StatusInternalServerError
}
