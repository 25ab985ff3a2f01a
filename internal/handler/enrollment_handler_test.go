package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sia-enrollment-engine/internal/middleware"
	"github.com/noah-isme/sia-enrollment-engine/internal/models"
	"github.com/noah-isme/sia-enrollment-engine/internal/service"
	appErrors "github.com/noah-isme/sia-enrollment-engine/pkg/errors"
)

type enrollmentServiceMock struct {
	enrollment *models.Enrollment
	err        error

	lastFilter models.EnrollmentFilter
	lastCreate service.CreateEnrollmentRequest
	lastStatus service.ChangeStatusRequest
	lastActor  *models.JWTClaims
	lastID     string
}

func (m *enrollmentServiceMock) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	m.lastFilter = filter
	if m.err != nil {
		return nil, nil, m.err
	}
	return []models.EnrollmentDetail{{GroupClave: "MAT-101"}}, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: 1}, nil
}

func (m *enrollmentServiceMock) Get(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	m.lastID = id
	if m.err != nil {
		return nil, m.err
	}
	return &models.EnrollmentDetail{Enrollment: *m.enrollment}, nil
}

func (m *enrollmentServiceMock) Create(ctx context.Context, req service.CreateEnrollmentRequest, actor *models.JWTClaims) (*models.Enrollment, error) {
	m.lastCreate = req
	m.lastActor = actor
	return m.enrollment, m.err
}

func (m *enrollmentServiceMock) ChangeStatus(ctx context.Context, id string, req service.ChangeStatusRequest, actor *models.JWTClaims) (*models.Enrollment, error) {
	m.lastID = id
	m.lastStatus = req
	return m.enrollment, m.err
}

func (m *enrollmentServiceMock) ChangeGroup(ctx context.Context, id string, req service.ChangeGroupRequest, actor *models.JWTClaims) (*models.Enrollment, error) {
	m.lastID = id
	return m.enrollment, m.err
}

func (m *enrollmentServiceMock) UpdateGrades(ctx context.Context, id string, req service.UpdateGradesRequest, actor *models.JWTClaims) (*models.Enrollment, error) {
	m.lastID = id
	return m.enrollment, m.err
}

func (m *enrollmentServiceMock) UpdateAttendance(ctx context.Context, id string, req service.UpdateAttendanceRequest, actor *models.JWTClaims) (*models.Enrollment, error) {
	m.lastID = id
	return m.enrollment, m.err
}

func (m *enrollmentServiceMock) UpdateObservations(ctx context.Context, id string, req service.UpdateObservationsRequest, actor *models.JWTClaims) (*models.Enrollment, error) {
	m.lastID = id
	return m.enrollment, m.err
}

func newTestRouter(claims *models.JWTClaims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if claims != nil {
			c.Set(middleware.ContextUserKey, claims)
		}
		c.Next()
	})
	return r
}

func enrollmentRouter(svc *enrollmentServiceMock) *gin.Engine {
	r := newTestRouter(&models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
	h := NewEnrollmentHandler(svc)
	r.GET("/enrollments", h.List)
	r.POST("/enrollments", h.Create)
	r.GET("/enrollments/:id", h.Get)
	r.PATCH("/enrollments/:id/status", h.ChangeStatus)
	r.PATCH("/enrollments/:id/group", h.ChangeGroup)
	r.PATCH("/enrollments/:id/grades", h.UpdateGrades)
	return r
}

func perform(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Data       json.RawMessage        `json:"data"`
	Error      *appErrors.Error       `json:"error"`
	Pagination *models.Pagination     `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestEnrollmentHandlerList(t *testing.T) {
	svc := &enrollmentServiceMock{}
	w := perform(enrollmentRouter(svc), http.MethodGet, "/enrollments?groupId=g1&estatus=en_curso&page=2&limit=5&sort=student_name", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "g1", svc.lastFilter.GroupID)
	assert.Equal(t, models.EnrollmentStatusEnCurso, svc.lastFilter.Estatus)
	assert.Equal(t, 2, svc.lastFilter.Page)
	assert.Equal(t, 5, svc.lastFilter.PageSize)
	assert.Equal(t, "student_name", svc.lastFilter.SortBy)

	env := decode(t, w)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 1, env.Pagination.TotalCount)
}

func TestEnrollmentHandlerCreate(t *testing.T) {
	svc := &enrollmentServiceMock{enrollment: &models.Enrollment{ID: "enr-1", Estatus: models.EnrollmentStatusInscrito}}
	w := perform(enrollmentRouter(svc), http.MethodPost, "/enrollments", `{"student_id":"s1","group_id":"g1","tipo_inscripcion":"NORMAL"}`)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "s1", svc.lastCreate.StudentID)
	assert.Equal(t, models.EnrollmentTypeNormal, svc.lastCreate.TipoInscripcion)
	require.NotNil(t, svc.lastActor)
	assert.Equal(t, "admin-1", svc.lastActor.UserID)

	var data models.Enrollment
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &data))
	assert.Equal(t, "enr-1", data.ID)
}

func TestEnrollmentHandlerCreateInvalidBody(t *testing.T) {
	svc := &enrollmentServiceMock{}
	w := perform(enrollmentRouter(svc), http.MethodPost, "/enrollments", `{"student_id":`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	env := decode(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, appErrors.ErrValidation.Code, env.Error.Code)
	assert.Equal(t, appErrors.KindValidation, env.Error.Kind)
	assert.Contains(t, env.Meta, "details")
	assert.Empty(t, svc.lastCreate.StudentID)
}

func TestEnrollmentHandlerMapsDomainErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		kind   appErrors.Kind
	}{
		{"group full", appErrors.Clonef(appErrors.ErrGroupFull, "group %s is full (30/30)", "MAT-101"), http.StatusConflict, appErrors.KindCapacity},
		{"not eligible", appErrors.ErrStudentNotEligible, http.StatusUnprocessableEntity, appErrors.KindEligibility},
		{"duplicate", appErrors.ErrConflict, http.StatusConflict, appErrors.KindState},
		{"foreign error", assert.AnError, http.StatusInternalServerError, appErrors.KindInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &enrollmentServiceMock{err: tc.err}
			w := perform(enrollmentRouter(svc), http.MethodPost, "/enrollments", `{"student_id":"s1","group_id":"g1","tipo_inscripcion":"NORMAL"}`)

			require.Equal(t, tc.status, w.Code)
			env := decode(t, w)
			require.NotNil(t, env.Error)
			assert.Equal(t, tc.kind, env.Error.Kind)
		})
	}
}

func TestEnrollmentHandlerChangeStatusNormalisesCase(t *testing.T) {
	svc := &enrollmentServiceMock{enrollment: &models.Enrollment{ID: "enr-1", Estatus: models.EnrollmentStatusBaja}}
	w := perform(enrollmentRouter(svc), http.MethodPatch, "/enrollments/enr-1/status", `{"estatus":"baja"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "enr-1", svc.lastID)
	assert.Equal(t, models.EnrollmentStatusBaja, svc.lastStatus.Estatus)
}

func TestEnrollmentHandlerInvalidTransition(t *testing.T) {
	svc := &enrollmentServiceMock{err: appErrors.Clone(appErrors.ErrInvalidTransition, "transition APROBADO -> BAJA not allowed (allowed: none)")}
	w := perform(enrollmentRouter(svc), http.MethodPatch, "/enrollments/enr-1/status", `{"estatus":"BAJA"}`)

	require.Equal(t, http.StatusConflict, w.Code)
	env := decode(t, w)
	assert.Equal(t, "INVALID_TRANSITION", env.Error.Code)
	assert.Contains(t, env.Error.Message, "allowed: none")
}

func TestEnrollmentHandlerGetNotFound(t *testing.T) {
	svc := &enrollmentServiceMock{err: appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")}
	w := perform(enrollmentRouter(svc), http.MethodGet, "/enrollments/missing", "")

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "missing", svc.lastID)
}

func TestEnrollmentHandlerUpdateGradesRejectsMalformedNumber(t *testing.T) {
	svc := &enrollmentServiceMock{}
	w := perform(enrollmentRouter(svc), http.MethodPatch, "/enrollments/enr-1/grades", `{"calificacion_parcial1":"ochenta"}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, svc.lastID)
}
