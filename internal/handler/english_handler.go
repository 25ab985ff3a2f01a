package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sia-enrollment-engine/internal/middleware"
	"github.com/noah-isme/sia-enrollment-engine/internal/models"
	"github.com/noah-isme/sia-enrollment-engine/internal/service"
	"github.com/noah-isme/sia-enrollment-engine/pkg/response"
)

type englishService interface {
	GetProgress(ctx context.Context, studentID string, actor *models.JWTClaims) (*models.EnglishProgress, error)
	GetExam(ctx context.Context, id string, actor *models.JWTClaims) (*models.DiagnosticExam, error)
	RequestDiagnosticExam(ctx context.Context, req service.RequestDiagnosticExamRequest, actor *models.JWTClaims) (*models.DiagnosticExam, error)
	ProcessDiagnosticResult(ctx context.Context, examID string, req service.ProcessDiagnosticRequest, actor *models.JWTClaims) (*models.DiagnosticOutcome, error)
	EnrollInCourse(ctx context.Context, req service.EnrollInCourseRequest, actor *models.JWTClaims) (*models.Enrollment, error)
	CompleteCourse(ctx context.Context, enrollmentID string, req service.CompleteCourseRequest, actor *models.JWTClaims) (*models.CourseOutcome, error)
}

// EnglishHandler exposes english progression endpoints.
type EnglishHandler struct {
	english englishService
}

// NewEnglishHandler constructs EnglishHandler.
func NewEnglishHandler(english englishService) *EnglishHandler {
	return &EnglishHandler{english: english}
}

// Progress godoc
// @Summary Get a student's english progress
// @Tags English
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /english/progress/{studentId} [get]
func (h *EnglishHandler) Progress(c *gin.Context) {
	progress, err := h.english.GetProgress(c.Request.Context(), c.Param("studentId"), middleware.CurrentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, progress)
}

// GetExam godoc
// @Summary Get a diagnostic exam
// @Tags English
// @Produce json
// @Param id path string true "Exam ID"
// @Success 200 {object} response.Envelope
// @Router /english/exams/{id} [get]
func (h *EnglishHandler) GetExam(c *gin.Context) {
	exam, err := h.english.GetExam(c.Request.Context(), c.Param("id"), middleware.CurrentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, exam)
}

// RequestExam godoc
// @Summary Request a diagnostic exam
// @Tags English
// @Accept json
// @Produce json
// @Param payload body service.RequestDiagnosticExamRequest true "Exam request"
// @Success 201 {object} response.Envelope
// @Router /english/exams [post]
func (h *EnglishHandler) RequestExam(c *gin.Context) {
	var req service.RequestDiagnosticExamRequest
	if !bindJSON(c, &req) {
		return
	}
	exam, err := h.english.RequestDiagnosticExam(c.Request.Context(), req, middleware.CurrentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, exam)
}

// ProcessResult godoc
// @Summary Record a diagnostic exam result
// @Tags English
// @Accept json
// @Produce json
// @Param id path string true "Exam ID"
// @Param payload body service.ProcessDiagnosticRequest true "Result"
// @Success 200 {object} response.Envelope
// @Router /english/exams/{id}/result [post]
func (h *EnglishHandler) ProcessResult(c *gin.Context) {
	var req service.ProcessDiagnosticRequest
	if !bindJSON(c, &req) {
		return
	}
	outcome, err := h.english.ProcessDiagnosticResult(c.Request.Context(), c.Param("id"), req, middleware.CurrentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, outcome)
}

// EnrollCourse godoc
// @Summary Enroll in an english course
// @Tags English
// @Accept json
// @Produce json
// @Param payload body service.EnrollInCourseRequest true "Course enrollment"
// @Success 201 {object} response.Envelope
// @Router /english/courses [post]
func (h *EnglishHandler) EnrollCourse(c *gin.Context) {
	var req service.EnrollInCourseRequest
	if !bindJSON(c, &req) {
		return
	}
	enrollment, err := h.english.EnrollInCourse(c.Request.Context(), req, middleware.CurrentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// CompleteCourse godoc
// @Summary Complete an english course
// @Tags English
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param payload body service.CompleteCourseRequest true "Final grade"
// @Success 200 {object} response.Envelope
// @Router /english/courses/{id}/complete [post]
func (h *EnglishHandler) CompleteCourse(c *gin.Context) {
	var req service.CompleteCourseRequest
	if !bindJSON(c, &req) {
		return
	}
	outcome, err := h.english.CompleteCourse(c.Request.Context(), c.Param("id"), req, middleware.CurrentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, outcome)
}
