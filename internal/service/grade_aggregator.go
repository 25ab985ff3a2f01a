package service

import (
	"math"
	"time"

	"github.com/noah-isme/sia-enrollment-engine/internal/models"
	appErrors "github.com/noah-isme/sia-enrollment-engine/pkg/errors"
)

// GradeAggregator derives final grades, approval and attendance percentages from raw enrollment fields.
type GradeAggregator struct {
	passing float64
	now     func() time.Time
}

// NewGradeAggregator constructs a GradeAggregator. A nil clock uses time.Now.
func NewGradeAggregator(now func() time.Time) *GradeAggregator {
	if now == nil {
		now = time.Now
	}
	return &GradeAggregator{passing: models.PassingGrade, now: now}
}

// ValidateGrade checks a grade lies in [0,100] with at most two decimal digits.
func ValidateGrade(value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 || value > 100 {
		return appErrors.Clonef(appErrors.ErrInvalidGrade, "grade %v outside [0,100]", value)
	}
	scaled := value * 100
	if math.Abs(scaled-math.Round(scaled)) > 1e-6 {
		return appErrors.Clonef(appErrors.ErrInvalidGrade, "grade %v has more than 2 decimal digits", value)
	}
	return nil
}

// RecomputeFinal averages the recorded partials. A partial counts only when present and > 0;
// with none recorded the final is undefined and nil is returned.
func (a *GradeAggregator) RecomputeFinal(partials []*float64) *float64 {
	var sum float64
	var count int
	for _, p := range partials {
		if p == nil || *p <= 0 {
			continue
		}
		sum += *p
		count++
	}
	if count == 0 {
		return nil
	}
	final := round2(sum / float64(count))
	return &final
}

// ApplyFinal stores final on the enrollment and updates aprobado/fechaAprobacion accordingly.
func (a *GradeAggregator) ApplyFinal(enrollment *models.Enrollment, final *float64) {
	enrollment.CalificacionFinal = final
	if final != nil && *final >= a.passing {
		enrollment.Aprobado = true
		if enrollment.FechaAprobacion == nil {
			today := truncateToDate(a.now())
			enrollment.FechaAprobacion = &today
		}
		return
	}
	enrollment.Aprobado = false
	enrollment.FechaAprobacion = nil
}

// Passed reports whether grade meets the passing threshold.
func (a *GradeAggregator) Passed(grade float64) bool {
	return grade >= a.passing
}

// RecomputeAttendance returns asistencias/(asistencias+faltas)*100, or nil when no sessions were counted.
func RecomputeAttendance(asistencias, faltas int) (*float64, error) {
	if asistencias < 0 || faltas < 0 {
		return nil, appErrors.Clonef(appErrors.ErrInvalidAttendance, "asistencias=%d faltas=%d must be >= 0", asistencias, faltas)
	}
	total := asistencias + faltas
	if total == 0 {
		return nil, nil
	}
	pct := round2(float64(asistencias) / float64(total) * 100)
	return &pct, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func truncateToDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
