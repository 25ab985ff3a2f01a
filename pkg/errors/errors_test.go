package errors

import (
	"database/sql"
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneMatchesSentinel(t *testing.T) {
	err := Clonef(ErrGroupFull, "group %s is full (%d/%d)", "MAT-101", 30, 30)

	assert.Equal(t, "group MAT-101 is full (30/30)", err.Message)
	assert.Equal(t, "group has no seats available", ErrGroupFull.Message, "sentinel must not be mutated")
	assert.True(t, stdErrors.Is(err, ErrGroupFull))
	assert.False(t, stdErrors.Is(err, ErrGroupUnavailable))
	assert.True(t, stdErrors.Is(fmt.Errorf("reserve seat: %w", err), ErrGroupFull))
}

func TestCloneKeepsMessageWhenEmpty(t *testing.T) {
	assert.Equal(t, ErrNotFound.Message, Clone(ErrNotFound, "").Message)
	assert.Nil(t, Clone(nil, "x"))
}

func TestWrapDerivesKind(t *testing.T) {
	cause := sql.ErrConnDone
	err := Wrap(cause, ErrValidation.Code, http.StatusBadRequest, "invalid payload")

	assert.Equal(t, KindValidation, err.Kind)
	assert.Equal(t, "invalid payload: "+cause.Error(), err.Error())
	assert.True(t, stdErrors.Is(err, sql.ErrConnDone))
	assert.Equal(t, KindInternal, Wrap(cause, "SOMETHING_ELSE", 500, "x").Kind)
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	domain := Clone(ErrPaymentPending, "payment of enrollment e1 is PENDIENTE_PAGO")
	assert.Same(t, domain, FromError(fmt.Errorf("wrapped: %w", domain)))

	foreign := FromError(stdErrors.New("boom"))
	require.NotNil(t, foreign)
	assert.Equal(t, ErrInternal.Code, foreign.Code)
	assert.Equal(t, http.StatusInternalServerError, foreign.Status)
	assert.Equal(t, KindInternal, foreign.Kind)
}

func TestKindOf(t *testing.T) {
	cases := map[*Error]Kind{
		ErrInvalidGrade:       KindValidation,
		ErrImmutableState:     KindState,
		ErrGroupUnavailable:   KindCapacity,
		ErrLevelNotAllowed:    KindEligibility,
		ErrMissingReason:      KindPayment,
		ErrForbidden:          KindAccess,
		ErrNotFound:           KindNotFound,
		ErrStudentNotEligible: KindEligibility,
	}
	for sentinel, kind := range cases {
		assert.Equal(t, kind, KindOf(Clone(sentinel, "x")), sentinel.Code)
	}
	assert.Equal(t, KindInternal, KindOf(stdErrors.New("plain")))
}

func TestNilErrorString(t *testing.T) {
	var err *Error
	assert.Equal(t, "<nil>", err.Error())
	assert.Nil(t, err.Unwrap())
}
