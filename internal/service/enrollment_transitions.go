package service

import (
	"sort"
	"strings"

	"github.com/noah-isme/sia-enrollment-engine/internal/models"
	appErrors "github.com/noah-isme/sia-enrollment-engine/pkg/errors"
)

// seatEffect is what a status transition does to the group's capacity.
type seatEffect int

const (
	seatKeep seatEffect = iota
	seatRelease
	seatReserve
)

// enrollmentTransitions is the complete set of legal status changes. Pairs not listed are rejected.
var enrollmentTransitions = map[models.EnrollmentStatus]map[models.EnrollmentStatus]seatEffect{
	models.EnrollmentStatusInscrito: {
		models.EnrollmentStatusEnCurso:   seatKeep,
		models.EnrollmentStatusBaja:      seatRelease,
		models.EnrollmentStatusCancelado: seatRelease,
	},
	models.EnrollmentStatusEnCurso: {
		models.EnrollmentStatusBaja:      seatRelease,
		models.EnrollmentStatusAprobado:  seatKeep,
		models.EnrollmentStatusReprobado: seatKeep,
	},
	models.EnrollmentStatusBaja: {
		models.EnrollmentStatusEnCurso: seatReserve,
	},
	models.EnrollmentStatusAprobado:  {},
	models.EnrollmentStatusReprobado: {},
	models.EnrollmentStatusCancelado: {},
}

// CanTransition reports whether from -> to is in the transition table.
func CanTransition(from, to models.EnrollmentStatus) bool {
	_, ok := enrollmentTransitions[from][to]
	return ok
}

// AllowedTransitions lists the targets reachable from a status, sorted for stable messages.
func AllowedTransitions(from models.EnrollmentStatus) []models.EnrollmentStatus {
	targets := make([]models.EnrollmentStatus, 0, len(enrollmentTransitions[from]))
	for to := range enrollmentTransitions[from] {
		targets = append(targets, to)
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })
	return targets
}

func checkTransition(from, to models.EnrollmentStatus) (seatEffect, error) {
	effect, ok := enrollmentTransitions[from][to]
	if !ok {
		allowed := AllowedTransitions(from)
		names := make([]string, len(allowed))
		for i, s := range allowed {
			names[i] = string(s)
		}
		if len(names) == 0 {
			names = append(names, "none")
		}
		return seatKeep, appErrors.Clonef(appErrors.ErrInvalidTransition, "transition %s -> %s not allowed (allowed: %s)", from, to, strings.Join(names, ", "))
	}
	return effect, nil
}

// mutableEnrollment rejects writes to anything but observations once the enrollment is terminal.
func mutableEnrollment(enrollment *models.Enrollment) error {
	if enrollment.Estatus.Terminal() {
		return appErrors.Clonef(appErrors.ErrImmutableState, "enrollment %s is %s; only observaciones may change", enrollment.ID, enrollment.Estatus)
	}
	return nil
}
