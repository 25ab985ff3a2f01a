package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sia-enrollment-engine/internal/middleware"
	"github.com/noah-isme/sia-enrollment-engine/internal/models"
	"github.com/noah-isme/sia-enrollment-engine/internal/service"
	appErrors "github.com/noah-isme/sia-enrollment-engine/pkg/errors"
	"github.com/noah-isme/sia-enrollment-engine/pkg/response"
)

type enrollmentService interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	Create(ctx context.Context, req service.CreateEnrollmentRequest, actor *models.JWTClaims) (*models.Enrollment, error)
	ChangeStatus(ctx context.Context, id string, req service.ChangeStatusRequest, actor *models.JWTClaims) (*models.Enrollment, error)
	ChangeGroup(ctx context.Context, id string, req service.ChangeGroupRequest, actor *models.JWTClaims) (*models.Enrollment, error)
	UpdateGrades(ctx context.Context, id string, req service.UpdateGradesRequest, actor *models.JWTClaims) (*models.Enrollment, error)
	UpdateAttendance(ctx context.Context, id string, req service.UpdateAttendanceRequest, actor *models.JWTClaims) (*models.Enrollment, error)
	UpdateObservations(ctx context.Context, id string, req service.UpdateObservationsRequest, actor *models.JWTClaims) (*models.Enrollment, error)
}

// EnrollmentHandler exposes enrollment endpoints.
type EnrollmentHandler struct {
	enrollments enrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// List godoc
// @Summary List enrollments
// @Tags Enrollments
// @Produce json
// @Param studentId query string false "Filter by student"
// @Param groupId query string false "Filter by group"
// @Param estatus query string false "Filter by status"
// @Param tipo query string false "Filter by enrollment type"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	var filter models.EnrollmentFilter
	filter.StudentID = c.Query("studentId")
	filter.GroupID = c.Query("groupId")
	filter.Estatus = models.EnrollmentStatus(strings.ToUpper(c.Query("estatus")))
	filter.TipoInscripcion = models.EnrollmentType(strings.ToUpper(c.Query("tipo")))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	enrollments, pagination, err := h.enrollments.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, pagination)
}

// Get godoc
// @Summary Get enrollment
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id} [get]
func (h *EnrollmentHandler) Get(c *gin.Context) {
	enrollment, err := h.enrollments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, enrollment)
}

// Create godoc
// @Summary Enroll student in a group
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body service.CreateEnrollmentRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) Create(c *gin.Context) {
	var req service.CreateEnrollmentRequest
	if !bindJSON(c, &req) {
		return
	}
	enrollment, err := h.enrollments.Create(c.Request.Context(), req, middleware.CurrentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// ChangeStatus godoc
// @Summary Change enrollment status
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param payload body service.ChangeStatusRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/status [patch]
func (h *EnrollmentHandler) ChangeStatus(c *gin.Context) {
	var req service.ChangeStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	req.Estatus = models.EnrollmentStatus(strings.ToUpper(string(req.Estatus)))
	h.respond(c)(h.enrollments.ChangeStatus(c.Request.Context(), c.Param("id"), req, middleware.CurrentUser(c)))
}

// ChangeGroup godoc
// @Summary Move enrollment to another group
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param payload body service.ChangeGroupRequest true "Target group"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/group [patch]
func (h *EnrollmentHandler) ChangeGroup(c *gin.Context) {
	var req service.ChangeGroupRequest
	if !bindJSON(c, &req) {
		return
	}
	h.respond(c)(h.enrollments.ChangeGroup(c.Request.Context(), c.Param("id"), req, middleware.CurrentUser(c)))
}

// UpdateGrades godoc
// @Summary Update enrollment grades
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param payload body service.UpdateGradesRequest true "Grades"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/grades [patch]
func (h *EnrollmentHandler) UpdateGrades(c *gin.Context) {
	var req service.UpdateGradesRequest
	if !bindJSON(c, &req) {
		return
	}
	h.respond(c)(h.enrollments.UpdateGrades(c.Request.Context(), c.Param("id"), req, middleware.CurrentUser(c)))
}

// UpdateAttendance godoc
// @Summary Update attendance counters
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param payload body service.UpdateAttendanceRequest true "Attendance"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/attendance [patch]
func (h *EnrollmentHandler) UpdateAttendance(c *gin.Context) {
	var req service.UpdateAttendanceRequest
	if !bindJSON(c, &req) {
		return
	}
	h.respond(c)(h.enrollments.UpdateAttendance(c.Request.Context(), c.Param("id"), req, middleware.CurrentUser(c)))
}

// UpdateObservations godoc
// @Summary Update observations
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param payload body service.UpdateObservationsRequest true "Observations"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/observations [patch]
func (h *EnrollmentHandler) UpdateObservations(c *gin.Context) {
	var req service.UpdateObservationsRequest
	if !bindJSON(c, &req) {
		return
	}
	h.respond(c)(h.enrollments.UpdateObservations(c.Request.Context(), c.Param("id"), req, middleware.CurrentUser(c)))
}

func (h *EnrollmentHandler) respond(c *gin.Context) func(*models.Enrollment, error) {
	return func(enrollment *models.Enrollment, err error) {
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, enrollment)
	}
}

func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return false
	}
	return true
}
