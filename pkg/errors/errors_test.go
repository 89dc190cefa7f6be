// Package errors_test provides unit tests for the AppError type, factory
// functions, and error-chain helpers defined in pkg/errors.
package errors_test

import (
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trialsync/trialsync/pkg/errors"
)

func TestNew_FieldsAreSetCorrectly(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		code    errors.ErrorCode
		message string
	}{
		{"internal error", errors.CodeInternal, "unexpected failure"},
		{"trial not found", errors.ErrCodeTrialNotFound, "trial NCT01234567 not found"},
		{"invalid param", errors.CodeInvalidParam, "min_score must be non-negative"},
		{"registry unavailable", errors.ErrCodeRegistryUnavailable, "registry unreachable"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ae := errors.New(tc.code, tc.message)

			require.NotNil(t, ae)
			assert.Equal(t, tc.code, ae.Code)
			assert.Equal(t, tc.message, ae.Message)
			assert.Empty(t, ae.Detail, "Detail should be empty for bare New()")
			assert.Nil(t, ae.Cause, "Cause should be nil for bare New()")
		})
	}
}

func TestWrap_NilErrReturnsNil(t *testing.T) {
	t.Parallel()

	result := errors.Wrap(nil, errors.CodeInternal, "should not matter")
	assert.Nil(t, result)
}

func TestWrap_CauseChainIsPreserved(t *testing.T) {
	t.Parallel()

	root := stderrors.New("connection refused")
	wrapped := errors.Wrap(root, errors.ErrCodeDatabaseError, "failed to load patients")

	require.NotNil(t, wrapped)
	assert.Equal(t, errors.ErrCodeDatabaseError, wrapped.Code)
	assert.True(t, stderrors.Is(wrapped, root), "errors.Is must traverse the cause chain")
}

func TestWrap_UnknownCodePreservesOriginal(t *testing.T) {
	t.Parallel()

	inner := errors.New(errors.ErrCodePatientNotFound, "patient missing")
	wrapped := errors.Wrap(inner, errors.CodeUnknown, "loading match subject")

	require.NotNil(t, wrapped)
	assert.Equal(t, errors.ErrCodePatientNotFound, wrapped.Code)
}

func TestError_FormatIncludesDetail(t *testing.T) {
	t.Parallel()

	ae := errors.New(errors.ErrCodeTrialNotFound, "trial not found").WithDetail("nct_id=NCT09999999")
	assert.Contains(t, ae.Error(), "TRL_001")
	assert.Contains(t, ae.Error(), "trial not found")
	assert.Contains(t, ae.Error(), "nct_id=NCT09999999")
}

func TestWithDetail_NilReceiverIsSafe(t *testing.T) {
	t.Parallel()

	var ae *errors.AppError
	assert.Nil(t, ae.WithDetail("anything"))
}

func TestIsCode_TraversesChain(t *testing.T) {
	t.Parallel()

	inner := errors.New(errors.ErrCodeRegistryUnavailable, "registry down")
	outer := errors.Wrap(inner, errors.ErrCodeMatchFailed, "sync aborted")

	assert.True(t, errors.IsCode(outer, errors.ErrCodeRegistryUnavailable))
	assert.True(t, errors.IsCode(outer, errors.ErrCodeMatchFailed))
	assert.False(t, errors.IsCode(outer, errors.ErrCodeTrialNotFound))
}

func TestIsNotFound(t *testing.T) {
	t.Parallel()

	assert.True(t, errors.IsNotFound(errors.New(errors.ErrCodePatientNotFound, "x")))
	assert.True(t, errors.IsNotFound(errors.New(errors.ErrCodeTrialNotFound, "x")))
	assert.True(t, errors.IsNotFound(errors.NotFound("x")))
	assert.False(t, errors.IsNotFound(errors.Internal("x")))
	assert.False(t, errors.IsNotFound(stderrors.New("plain")))
	assert.False(t, errors.IsNotFound(nil))
}

func TestGetCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, errors.CodeOK, errors.GetCode(nil))
	assert.Equal(t, errors.CodeUnknown, errors.GetCode(stderrors.New("plain")))
	assert.Equal(t, errors.ErrCodeCacheError, errors.GetCode(errors.New(errors.ErrCodeCacheError, "x")))
}

func TestHTTPStatus_MappingAndDefault(t *testing.T) {
	t.Parallel()

	assert.Equal(t, http.StatusNotFound, errors.ErrCodeTrialNotFound.HTTPStatus())
	assert.Equal(t, http.StatusBadGateway, errors.ErrCodeRegistryUnavailable.HTTPStatus())
	assert.Equal(t, http.StatusTooManyRequests, errors.ErrCodeRegistryRateLimited.HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, errors.ErrorCode("NO_SUCH_CODE").HTTPStatus())
}
