package service

import (
	"fmt"
	"math"
	"sort"

	"github.com/noah-isme/sia-enrollment-engine/internal/models"
	appErrors "github.com/noah-isme/sia-enrollment-engine/pkg/errors"
)

const perfectScore = 100.0

// diagnosticPlan is the pure result of interpreting a diagnostic exam; nothing is persisted yet.
type diagnosticPlan struct {
	kind      models.DiagnosticOutcomeKind
	nivel     int
	grades    map[int]float64
	certified bool
	message   string
}

// planDiagnostic interprets a diagnostic result. nivelFinal nil and 0 both mean "no level assigned".
func planDiagnostic(examType models.ExamType, resultado float64, nivelFinal *int, porNivel map[int]float64) (*diagnosticPlan, error) {
	if math.IsNaN(resultado) || resultado < 0 || resultado > 100 {
		return nil, appErrors.Clonef(appErrors.ErrInvalidResult, "resultado %v outside [0,100]", resultado)
	}

	if examType == models.ExamTypeDiagnostico && resultado == perfectScore {
		grades := make(map[int]float64, models.MaxEnglishLevel)
		for level := models.MinEnglishLevel; level <= models.MaxEnglishLevel; level++ {
			grades[level] = perfectScore
		}
		return &diagnosticPlan{
			kind:      models.OutcomeAllLevelsSkipped,
			nivel:     models.MaxEnglishLevel,
			grades:    grades,
			certified: true,
			message:   "Puntuación perfecta: se acreditan los niveles 1 a 6 y se cumple el requisito de inglés",
		}, nil
	}

	nivel := 0
	if nivelFinal != nil {
		nivel = *nivelFinal
	}
	if nivel < 0 || nivel > models.MaxEnglishLevel {
		return nil, appErrors.Clonef(appErrors.ErrInvalidLevel, "nivelFinal %d outside [0,%d]", nivel, models.MaxEnglishLevel)
	}

	if nivel == 0 {
		if resultado < models.PassingGrade {
			return nil, appErrors.Clonef(appErrors.ErrInvalidLevel, "nivelFinal is required when resultado %v is below %v", resultado, models.PassingGrade)
		}
		return &diagnosticPlan{
			kind:    models.OutcomeNoSkip,
			nivel:   models.MaxEnglishLevel,
			grades:  map[int]float64{},
			message: "Sin niveles acreditados: el alumno puede inscribirse directamente al nivel 6",
		}, nil
	}

	grades := make(map[int]float64, nivel-1)
	for level := models.MinEnglishLevel; level < nivel; level++ {
		grade, ok := porNivel[level]
		if !ok {
			return nil, appErrors.Clonef(appErrors.ErrMissingLevelGrade, "missing grade for skipped level %d", level)
		}
		if err := ValidateGrade(grade); err != nil {
			return nil, appErrors.Clonef(appErrors.ErrInvalidGrade, "level %d: %s", level, err.Error())
		}
		grades[level] = grade
	}

	if nivel == models.MinEnglishLevel {
		return &diagnosticPlan{
			kind:    models.OutcomeNoSkip,
			nivel:   nivel,
			grades:  grades,
			message: "Sin niveles acreditados: el alumno inicia en el nivel 1",
		}, nil
	}
	return &diagnosticPlan{
		kind:    models.OutcomeLevelsSkippedTo,
		nivel:   nivel,
		grades:  grades,
		message: fmt.Sprintf("Niveles 1 a %d acreditados; el alumno queda ubicado en el nivel %d", nivel-1, nivel),
	}, nil
}

func (p *diagnosticPlan) levels() []int {
	levels := make([]int, 0, len(p.grades))
	for level := range p.grades {
		levels = append(levels, level)
	}
	sort.Ints(levels)
	return levels
}

func newEnglishProgress(studentID string) *models.EnglishProgress {
	return &models.EnglishProgress{
		StudentID:   studentID,
		NivelActual: models.MinEnglishLevel,
		Niveles:     make(map[int]models.EnglishLevelRecord),
	}
}

// mergeLevelRecord applies rec to the progress honouring source precedence: a course record is never
// replaced by a diagnostic one, and between course attempts the best grade stays. It reports whether
// the record was applied.
func mergeLevelRecord(progress *models.EnglishProgress, rec models.EnglishLevelRecord) bool {
	if progress.Niveles == nil {
		progress.Niveles = make(map[int]models.EnglishLevelRecord)
	}
	if existing, ok := progress.Niveles[rec.Nivel]; ok {
		if existing.Fuente == models.EnglishSourceCourse {
			if rec.Fuente != models.EnglishSourceCourse || rec.Calificacion < existing.Calificacion {
				return false
			}
		}
		rec.ID = existing.ID
	}
	progress.Niveles[rec.Nivel] = rec
	return true
}

// recomputeProgress refreshes the average and requirement flag from the recorded levels.
func recomputeProgress(progress *models.EnglishProgress) {
	var sum float64
	for _, rec := range progress.Niveles {
		sum += rec.Calificacion
	}
	if len(progress.Niveles) == 0 {
		progress.Promedio = nil
	} else {
		avg := round2(sum / float64(len(progress.Niveles)))
		progress.Promedio = &avg
	}
	complete := true
	for level := models.MinEnglishLevel; level <= models.MaxEnglishLevel; level++ {
		if _, ok := progress.Niveles[level]; !ok {
			complete = false
			break
		}
	}
	progress.RequisitoCumplido = progress.CertificadoDiagnostico ||
		(complete && progress.Promedio != nil && *progress.Promedio >= models.PassingGrade)
}

// positionAt moves the student's current level forward, never backward.
func positionAt(progress *models.EnglishProgress, nivel int) {
	if nivel > models.MaxEnglishLevel {
		nivel = models.MaxEnglishLevel
	}
	if nivel > progress.NivelActual {
		progress.NivelActual = nivel
	}
}
