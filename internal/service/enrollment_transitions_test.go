package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sia-enrollment-engine/internal/models"
	appErrors "github.com/noah-isme/sia-enrollment-engine/pkg/errors"
)

var allStatuses = []models.EnrollmentStatus{
	models.EnrollmentStatusInscrito,
	models.EnrollmentStatusEnCurso,
	models.EnrollmentStatusBaja,
	models.EnrollmentStatusAprobado,
	models.EnrollmentStatusReprobado,
	models.EnrollmentStatusCancelado,
}

func TestTransitionTable(t *testing.T) {
	legal := map[[2]models.EnrollmentStatus]seatEffect{
		{models.EnrollmentStatusInscrito, models.EnrollmentStatusEnCurso}:   seatKeep,
		{models.EnrollmentStatusInscrito, models.EnrollmentStatusBaja}:      seatRelease,
		{models.EnrollmentStatusInscrito, models.EnrollmentStatusCancelado}: seatRelease,
		{models.EnrollmentStatusEnCurso, models.EnrollmentStatusBaja}:       seatRelease,
		{models.EnrollmentStatusEnCurso, models.EnrollmentStatusAprobado}:   seatKeep,
		{models.EnrollmentStatusEnCurso, models.EnrollmentStatusReprobado}:  seatKeep,
		{models.EnrollmentStatusBaja, models.EnrollmentStatusEnCurso}:       seatReserve,
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			want, ok := legal[[2]models.EnrollmentStatus{from, to}]
			effect, err := checkTransition(from, to)
			assert.Equal(t, ok, CanTransition(from, to), "%s -> %s", from, to)
			if ok {
				require.NoError(t, err, "%s -> %s", from, to)
				assert.Equal(t, want, effect, "%s -> %s", from, to)
				continue
			}
			require.Error(t, err, "%s -> %s", from, to)
			assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)
			assert.Equal(t, appErrors.KindState, appErrors.KindOf(err))
		}
	}
}

func TestCheckTransitionMessageNamesRule(t *testing.T) {
	_, err := checkTransition(models.EnrollmentStatusInscrito, models.EnrollmentStatusAprobado)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INSCRITO -> APROBADO")
	assert.Contains(t, err.Error(), "BAJA, CANCELADO, EN_CURSO")

	_, err = checkTransition(models.EnrollmentStatusAprobado, models.EnrollmentStatusEnCurso)
	assert.Contains(t, err.Error(), "allowed: none")
}

func TestMutableEnrollment(t *testing.T) {
	for _, status := range allStatuses {
		err := mutableEnrollment(&models.Enrollment{ID: "e1", Estatus: status})
		if status.Terminal() {
			assert.ErrorIs(t, err, appErrors.ErrImmutableState, string(status))
		} else {
			assert.NoError(t, err, string(status))
		}
	}
}
