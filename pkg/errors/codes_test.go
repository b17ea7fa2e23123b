package errors

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCode_String(t *testing.T) {
	assert.Equal(t, "COMMON_001", ErrCodeInternal.String())
}

func TestSeverityForCode(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		expected Severity
	}{
		{ErrCodeInternal, SeverityError},
		{ErrCodeRowMalformed, SeverityWarning},
		{ErrCodeRowDateUnparseable, SeverityWarning},
		{ErrCodeConfigValueInvalid, SeverityFatal},
		{ErrCodeDIScoreOutOfRange, SeverityWarning},
		{ErrCodePanelCompanyFailed, SeverityError},
		{ErrorCode("UNKNOWN"), SeverityError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, SeverityForCode(tt.code))
	}
}

func TestDefaultMessageForCode(t *testing.T) {
	assert.Equal(t, "internal error", DefaultMessageForCode(ErrCodeInternal))
	assert.Equal(t, "unknown error", DefaultMessageForCode(ErrorCode("UNKNOWN")))
}

func TestIsWarning(t *testing.T) {
	assert.True(t, IsWarning(ErrCodeRowMalformed))
	assert.True(t, IsWarning(ErrCodeDIScoreOutOfRange))
	assert.False(t, IsWarning(ErrCodeInternal))
	assert.False(t, IsWarning(ErrCodeConfigValueInvalid))
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(ErrCodeConfigFileUnreadable))
	assert.True(t, IsFatal(ErrCodeConfigYearRange))
	assert.False(t, IsFatal(ErrCodeRowMalformed))
	assert.False(t, IsFatal(ErrCodeInternal))
}

func TestModuleForCode(t *testing.T) {
	assert.Equal(t, "COMMON", ModuleForCode(ErrCodeInternal))
	assert.Equal(t, "CFG", ModuleForCode(ErrCodeConfigValueInvalid))
	assert.Equal(t, "ING", ModuleForCode(ErrCodeRowMalformed))
	assert.Equal(t, "GRAPH", ModuleForCode(ErrCodeGraphBuildFailed))
	assert.Equal(t, "MATCH", ModuleForCode(ErrCodeMatchClassifyFailed))
	assert.Equal(t, "PUREF", ModuleForCode(ErrCodePureFFactorOutOfRange))
	assert.Equal(t, "DI", ModuleForCode(ErrCodeDIScoreOutOfRange))
	assert.Equal(t, "PANEL", ModuleForCode(ErrCodePanelCompanyFailed))
	assert.Equal(t, "STORE", ModuleForCode(ErrCodeStoreWriteFailed))
	assert.Equal(t, "UNKNOWN", ModuleForCode(ErrorCode("")))
}

func TestErrorCodeFormat_Convention(t *testing.T) {
	re := regexp.MustCompile(`^[A-Z]+_\d{3}$`)
	allCodes := []ErrorCode{
		ErrCodeInternal, ErrCodeInvalidParam, ErrCodeConfigValueInvalid,
		ErrCodeRowMalformed, ErrCodeGraphBuildFailed, ErrCodeMatchClassifyFailed,
		ErrCodePureFFactorOutOfRange, ErrCodeDIScoreOutOfRange,
		ErrCodePanelCompanyFailed, ErrCodeStoreWriteFailed,
	}
	for _, code := range allCodes {
		assert.Regexp(t, re, string(code))
	}
}

func TestErrorCodeMappings_Completeness(t *testing.T) {
	// A sample of codes to check if they are in both maps
	allCodes := []ErrorCode{
		ErrCodeInternal, ErrCodeConfigValueInvalid, ErrCodeRowMalformed,
		ErrCodeGraphBuildFailed, ErrCodeMatchClassifyFailed,
		ErrCodePureFFactorOutOfRange, ErrCodeDIScoreOutOfRange,
		ErrCodePanelCompanyFailed, ErrCodeStoreWriteFailed,
	}
	for _, code := range allCodes {
		_, hasSeverity := ErrorCodeSeverity[code]
		_, hasMessage := ErrorCodeMessage[code]
		assert.True(t, hasSeverity, "missing severity for %s", code)
		assert.True(t, hasMessage, "missing message for %s", code)
	}
}
