package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"gollh/domain/core"
)

func TestWrap_KeepsCode(t *testing.T) {
	base := ConfigInvalid("ncpu must be positive")
	wrapped := Wrap(base, "failed to load analysis configuration")

	assert.Equal(t, CodeConfigInvalid, GetCode(wrapped))
	assert.True(t, IsAppError(wrapped))
	assert.True(t, stderrors.Is(wrapped, base))
	assert.Equal(t, "failed to load analysis configuration: ncpu must be positive", wrapped.Error())
}

func TestWrap_PlainError(t *testing.T) {
	cause := fmt.Errorf("disk full")
	wrapped := Wrapf(cause, "writing %s", "trials.xlsx")

	assert.Equal(t, CodeInternalError, GetCode(wrapped))
	assert.ErrorIs(t, wrapped, cause)
	assert.Nil(t, Wrap(nil, "ignored"))
	assert.Equal(t, "UNKNOWN", GetCode(cause))
}

func TestWithCode(t *testing.T) {
	err := WithCode(CodeInvalidInput, fmt.Errorf("bad seed"))
	assert.Equal(t, CodeInvalidInput, GetCode(err))
	assert.Equal(t, "bad seed", err.Error())
}

func TestGetCode_DomainSentinels(t *testing.T) {
	cases := []struct {
		err  error
		code string
		exit int
	}{
		{core.NewValidationError("gamma", "out of grid"), CodeValidationError, 2},
		{core.NewNotFoundError("parameter", "gamma"), CodeNotFound, 1},
		{fmt.Errorf("fit: %w", core.ErrShapeMismatch), CodeConsistency, 1},
		{core.NewDegenerateError("ns fit", "zero weights"), CodeNumerical, 4},
		{core.ErrInsufficientValidFraction, CodeNumerical, 4},
		{core.ErrNotImplemented, CodeNotImplemented, 1},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.code, GetCode(tc.err), tc.err.Error())
		assert.Equal(t, tc.exit, ExitCode(tc.err), tc.err.Error())
	}
}

func TestWrap_ClassifiesDomainError(t *testing.T) {
	err := Wrap(core.ErrDuplicateKey, "failed to register source")
	assert.Equal(t, CodeConsistency, GetCode(err))
	assert.ErrorIs(t, err, core.ErrConsistency)

	db := DatabaseError("insert trial_results", stderrors.New("conn reset"))
	assert.Equal(t, 3, ExitCode(Wrap(db, "save run")))
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(stderrors.New("boom")))
}
