package errors

import (
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Severity classifies how the pipeline reacts to an error code.
//
//	SeverityWarning - log and continue (skip the offending row, or emit the
//	                  value despite a failed range check)
//	SeverityError   - log and omit the affected company from the run output
//	SeverityFatal   - abort the run before any company is processed
type Severity string

const (
	SeverityWarning Severity = "WARN"
	SeverityError   Severity = "ERROR"
	SeverityFatal   Severity = "FATAL"
)

// Common Error Codes
const (
	ErrCodeInternal        ErrorCode = "COMMON_001"
	ErrCodeInvalidParam    ErrorCode = "COMMON_002"
	ErrCodeNotFound        ErrorCode = "COMMON_003"
	ErrCodeConflict        ErrorCode = "COMMON_004"
	ErrCodeTimeout         ErrorCode = "COMMON_005"
	ErrCodeValidation      ErrorCode = "COMMON_006"
	ErrCodeSerialization   ErrorCode = "COMMON_007"
	ErrCodeDatabaseError   ErrorCode = "COMMON_008"
	ErrCodeCacheError      ErrorCode = "COMMON_009"
	ErrCodeMessageQueue    ErrorCode = "COMMON_010"
	ErrCodeObjectStorage   ErrorCode = "COMMON_011"
	ErrCodeExternalService ErrorCode = "COMMON_012"
	ErrCodeNotImplemented  ErrorCode = "COMMON_013"
	ErrCodeUnknown         ErrorCode = "COMMON_999"
)

// Configuration Error Codes
const (
	ErrCodeConfigFileUnreadable ErrorCode = "CFG_001"
	ErrCodeConfigFieldMissing   ErrorCode = "CFG_002"
	ErrCodeConfigValueInvalid   ErrorCode = "CFG_003"
	ErrCodeConfigYearRange      ErrorCode = "CFG_004"
	ErrCodeConfigWeightInvalid  ErrorCode = "CFG_005"
)

// Ingestion Error Codes
const (
	ErrCodeRowMalformed       ErrorCode = "ING_001"
	ErrCodeRowDateUnparseable ErrorCode = "ING_002"
	ErrCodeRowFieldMissing    ErrorCode = "ING_003"
	ErrCodeHeaderInvalid      ErrorCode = "ING_004"
	ErrCodeSourceUnreadable   ErrorCode = "ING_005"
	ErrCodeCompanyLoadFailed  ErrorCode = "ING_006"
	ErrCodeDatasetEmpty       ErrorCode = "ING_007"
)

// Citation Graph Error Codes
const (
	ErrCodeGraphBuildFailed   ErrorCode = "GRAPH_001"
	ErrCodeGraphEmptyNetwork  ErrorCode = "GRAPH_002"
	ErrCodeGraphPatentMissing ErrorCode = "GRAPH_003"
	ErrCodeGraphPersistFailed ErrorCode = "GRAPH_004"
)

// Match Classification Error Codes
const (
	ErrCodeMatchClassifyFailed ErrorCode = "MATCH_001"
	ErrCodeMatchCountConflict  ErrorCode = "MATCH_002"
)

// Pure F Error Codes
const (
	ErrCodePureFFactorOutOfRange ErrorCode = "PUREF_001"
	ErrCodePureFComputeFailed    ErrorCode = "PUREF_002"
)

// Disruption Index Error Codes
const (
	ErrCodeDIScoreOutOfRange     ErrorCode = "DI_001"
	ErrCodeDIComponentOutOfRange ErrorCode = "DI_002"
	ErrCodeDIComputeFailed       ErrorCode = "DI_003"
)

// Panel Assembly Error Codes
const (
	ErrCodePanelRecordInvalid ErrorCode = "PANEL_001"
	ErrCodePanelMergeConflict ErrorCode = "PANEL_002"
	ErrCodePanelExportFailed  ErrorCode = "PANEL_003"
	ErrCodePanelCompanyFailed ErrorCode = "PANEL_004"
	ErrCodePanelRunNotFound   ErrorCode = "PANEL_005"
	ErrCodePanelSummaryFailed ErrorCode = "PANEL_006"
)

// Artifact Store Error Codes
const (
	ErrCodeStoreWriteFailed   ErrorCode = "STORE_001"
	ErrCodeStoreReadFailed    ErrorCode = "STORE_002"
	ErrCodeStoreBucketMissing ErrorCode = "STORE_003"
	ErrCodeStoreListFailed    ErrorCode = "STORE_004"
)

// Aliases used by the factory functions in errors.go.
const (
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeInvalidParam
	CodeNotFound     = ErrCodeNotFound
	CodeConflict     = ErrCodeConflict
	CodeTimeout      = ErrCodeTimeout
	CodeUnknown      = ErrCodeUnknown
	CodeOK           = ErrorCode("OK")

	// Infrastructure aliases
	CodeDatabaseError     = ErrCodeDatabaseError
	CodeDBConnectionError = ErrCodeDatabaseError
	CodeDBQueryError      = ErrCodeDatabaseError
	CodeCacheError        = ErrCodeCacheError
	CodeMessageQueueError = ErrCodeMessageQueue
	CodeStorageError      = ErrCodeObjectStorage

	// Domain aliases
	CodeRowMalformed  = ErrCodeRowMalformed
	CodeCompanyFailed = ErrCodePanelCompanyFailed
	CodeConfigFatal   = ErrCodeConfigValueInvalid
)

// ErrorCodeSeverity maps ErrorCodes to pipeline severities.  Codes absent from
// the map default to SeverityError via SeverityForCode.
var ErrorCodeSeverity = map[ErrorCode]Severity{
	ErrCodeInternal:        SeverityError,
	ErrCodeInvalidParam:    SeverityError,
	ErrCodeNotFound:        SeverityError,
	ErrCodeConflict:        SeverityError,
	ErrCodeTimeout:         SeverityError,
	ErrCodeValidation:      SeverityWarning,
	ErrCodeSerialization:   SeverityError,
	ErrCodeDatabaseError:   SeverityError,
	ErrCodeCacheError:      SeverityWarning,
	ErrCodeMessageQueue:    SeverityError,
	ErrCodeObjectStorage:   SeverityError,
	ErrCodeExternalService: SeverityError,
	ErrCodeNotImplemented:  SeverityError,
	ErrCodeUnknown:         SeverityError,

	ErrCodeConfigFileUnreadable: SeverityFatal,
	ErrCodeConfigFieldMissing:   SeverityFatal,
	ErrCodeConfigValueInvalid:   SeverityFatal,
	ErrCodeConfigYearRange:      SeverityFatal,
	ErrCodeConfigWeightInvalid:  SeverityFatal,

	ErrCodeRowMalformed:       SeverityWarning,
	ErrCodeRowDateUnparseable: SeverityWarning,
	ErrCodeRowFieldMissing:    SeverityWarning,
	ErrCodeHeaderInvalid:      SeverityError,
	ErrCodeSourceUnreadable:   SeverityError,
	ErrCodeCompanyLoadFailed:  SeverityError,
	ErrCodeDatasetEmpty:       SeverityError,

	ErrCodeGraphBuildFailed:   SeverityError,
	ErrCodeGraphEmptyNetwork:  SeverityWarning,
	ErrCodeGraphPatentMissing: SeverityWarning,
	ErrCodeGraphPersistFailed: SeverityError,

	ErrCodeMatchClassifyFailed: SeverityError,
	ErrCodeMatchCountConflict:  SeverityWarning,

	ErrCodePureFFactorOutOfRange: SeverityWarning,
	ErrCodePureFComputeFailed:    SeverityError,

	ErrCodeDIScoreOutOfRange:     SeverityWarning,
	ErrCodeDIComponentOutOfRange: SeverityWarning,
	ErrCodeDIComputeFailed:       SeverityError,

	ErrCodePanelRecordInvalid: SeverityError,
	ErrCodePanelMergeConflict: SeverityError,
	ErrCodePanelExportFailed:  SeverityError,
	ErrCodePanelCompanyFailed: SeverityError,
	ErrCodePanelRunNotFound:   SeverityError,
	ErrCodePanelSummaryFailed: SeverityError,

	ErrCodeStoreWriteFailed:   SeverityError,
	ErrCodeStoreReadFailed:    SeverityError,
	ErrCodeStoreBucketMissing: SeverityError,
	ErrCodeStoreListFailed:    SeverityError,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:        "internal error",
	ErrCodeInvalidParam:    "invalid parameter",
	ErrCodeNotFound:        "resource not found",
	ErrCodeConflict:        "resource conflict",
	ErrCodeTimeout:         "operation timed out",
	ErrCodeValidation:      "validation failed",
	ErrCodeSerialization:   "serialization failed",
	ErrCodeDatabaseError:   "database error",
	ErrCodeCacheError:      "cache error",
	ErrCodeMessageQueue:    "message queue error",
	ErrCodeObjectStorage:   "object storage error",
	ErrCodeExternalService: "external service error",
	ErrCodeNotImplemented:  "not implemented",
	ErrCodeUnknown:         "unknown error",

	ErrCodeConfigFileUnreadable: "configuration file unreadable",
	ErrCodeConfigFieldMissing:   "required configuration field missing",
	ErrCodeConfigValueInvalid:   "configuration value invalid",
	ErrCodeConfigYearRange:      "configuration year range invalid",
	ErrCodeConfigWeightInvalid:  "quality weight configuration invalid",

	ErrCodeRowMalformed:       "citation row malformed",
	ErrCodeRowDateUnparseable: "citation row date unparseable",
	ErrCodeRowFieldMissing:    "citation row field missing",
	ErrCodeHeaderInvalid:      "citation file header invalid",
	ErrCodeSourceUnreadable:   "citation source unreadable",
	ErrCodeCompanyLoadFailed:  "company dataset load failed",
	ErrCodeDatasetEmpty:       "company dataset contains no usable rows",

	ErrCodeGraphBuildFailed:   "citation graph construction failed",
	ErrCodeGraphEmptyNetwork:  "citation network is empty",
	ErrCodeGraphPatentMissing: "patent absent from citation graph",
	ErrCodeGraphPersistFailed: "citation graph persistence failed",

	ErrCodeMatchClassifyFailed: "forward citation classification failed",
	ErrCodeMatchCountConflict:  "matched count exceeds recorded forward total",

	ErrCodePureFFactorOutOfRange: "pure F factor outside documented range",
	ErrCodePureFComputeFailed:    "pure F computation failed",

	ErrCodeDIScoreOutOfRange:     "disruption score outside documented range",
	ErrCodeDIComponentOutOfRange: "disruption component outside documented range",
	ErrCodeDIComputeFailed:       "disruption index computation failed",

	ErrCodePanelRecordInvalid: "panel record invalid",
	ErrCodePanelMergeConflict: "panel merge conflict",
	ErrCodePanelExportFailed:  "panel export failed",
	ErrCodePanelCompanyFailed: "company processing failed",
	ErrCodePanelRunNotFound:   "panel run not found",
	ErrCodePanelSummaryFailed: "panel summary generation failed",

	ErrCodeStoreWriteFailed:   "artifact write failed",
	ErrCodeStoreReadFailed:    "artifact read failed",
	ErrCodeStoreBucketMissing: "artifact bucket missing",
	ErrCodeStoreListFailed:    "artifact listing failed",
}

// SeverityForCode returns the pipeline severity for an ErrorCode.
func SeverityForCode(code ErrorCode) Severity {
	if sev, ok := ErrorCodeSeverity[code]; ok {
		return sev
	}
	return SeverityError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsWarning returns true if the ErrorCode is recoverable at row or value
// granularity (the pipeline logs it and continues).
func IsWarning(code ErrorCode) bool {
	return SeverityForCode(code) == SeverityWarning
}

// IsFatal returns true if the ErrorCode aborts a run before any company is
// processed.
func IsFatal(code ErrorCode) bool {
	return SeverityForCode(code) == SeverityFatal
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
