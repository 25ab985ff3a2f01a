package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/noah-isme/sia-enrollment-engine/internal/models"
	appErrors "github.com/noah-isme/sia-enrollment-engine/pkg/errors"
)

var fixedNow = time.Date(2025, 3, 10, 15, 4, 5, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

type fakeTxKey struct{}

type fakeState struct {
	groups      map[string]models.Group
	students    map[string]models.Student
	enrollments map[string]models.Enrollment
	exams       map[string]models.DiagnosticExam
	progress    map[string]models.EnglishProgress
	payments    map[string]models.Payment
}

func (st fakeState) clone() fakeState {
	progress := make(map[string]models.EnglishProgress, len(st.progress))
	for id, p := range st.progress {
		p.Niveles = maps.Clone(p.Niveles)
		progress[id] = p
	}
	return fakeState{
		groups:      maps.Clone(st.groups),
		students:    maps.Clone(st.students),
		enrollments: maps.Clone(st.enrollments),
		exams:       maps.Clone(st.exams),
		progress:    progress,
		payments:    maps.Clone(st.payments),
	}
}

// fakeStore is an in-memory database. WithinTx serialises transactions and restores a snapshot
// when fn fails, which is the same observable behaviour as a rolled back row-locked transaction.
type fakeStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	state     fakeState
	seq       int
	rollbacks int

	cupoErrors map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		state: fakeState{
			groups:      map[string]models.Group{},
			students:    map[string]models.Student{},
			enrollments: map[string]models.Enrollment{},
			exams:       map[string]models.DiagnosticExam{},
			progress:    map[string]models.EnglishProgress{},
			payments:    map[string]models.Payment{},
		},
		cupoErrors: map[string]error{},
	}
}

func (s *fakeStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(fakeTxKey{}) != nil {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.state.clone()
	s.mu.Unlock()

	if err := fn(context.WithValue(ctx, fakeTxKey{}, true)); err != nil {
		s.mu.Lock()
		s.state = snapshot
		s.rollbacks++
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *fakeStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *fakeStore) addGroup(g models.Group) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g.Estatus == "" {
		g.Estatus = models.GroupStatusAbierto
	}
	if g.Clave == "" {
		g.Clave = g.ID
	}
	s.state.groups[g.ID] = g
}

func (s *fakeStore) addStudent(st models.Student) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st.Estatus == "" {
		st.Estatus = models.StudentStatusActivo
	}
	if st.Matricula == "" {
		st.Matricula = "M-" + st.ID
	}
	s.state.students[st.ID] = st
}

func (s *fakeStore) addEnrollment(e models.Enrollment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.enrollments[e.ID] = e
}

func (s *fakeStore) addExam(e models.DiagnosticExam) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.exams[e.ID] = e
}

func (s *fakeStore) addPayment(p models.Payment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.payments[p.ID] = p
}

func (s *fakeStore) group(id string) models.Group {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.groups[id]
}

func (s *fakeStore) enrollment(id string) models.Enrollment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.enrollments[id]
}

func (s *fakeStore) exam(id string) models.DiagnosticExam {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.exams[id]
}

func (s *fakeStore) payment(id string) models.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.payments[id]
}

func (s *fakeStore) paymentsFor(itemID string) []models.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Payment
	for _, p := range s.state.payments {
		if p.ItemID == itemID {
			out = append(out, p)
		}
	}
	return out
}

func (s *fakeStore) englishProgress(studentID string) (models.EnglishProgress, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.state.progress[studentID]
	return p, ok
}

type fakeGroups struct{ *fakeStore }

func (r fakeGroups) FindByID(ctx context.Context, id string) (*models.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.state.groups[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &g, nil
}

func (r fakeGroups) LockByID(ctx context.Context, id string) (*models.Group, error) {
	if ctx.Value(fakeTxKey{}) == nil {
		return nil, errors.New("LockByID outside transaction")
	}
	return r.FindByID(ctx, id)
}

func (r fakeGroups) UpdateCupoActual(ctx context.Context, id string, cupoActual int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.cupoErrors[id]; err != nil {
		return err
	}
	g, ok := r.state.groups[id]
	if !ok {
		return sql.ErrNoRows
	}
	if cupoActual < 0 || cupoActual > g.CupoMaximo {
		return fmt.Errorf("check constraint violated: cupo_actual=%d cupo_maximo=%d", cupoActual, g.CupoMaximo)
	}
	g.CupoActual = cupoActual
	r.state.groups[id] = g
	return nil
}

type fakeStudents struct{ *fakeStore }

func (r fakeStudents) FindByID(ctx context.Context, id string) (*models.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.state.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &st, nil
}

type fakeEnrollments struct{ *fakeStore }

func (r fakeEnrollments) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.EnrollmentDetail
	for _, e := range r.state.enrollments {
		if filter.StudentID != "" && e.StudentID != filter.StudentID {
			continue
		}
		if filter.GroupID != "" && e.GroupID != filter.GroupID {
			continue
		}
		if filter.Estatus != "" && e.Estatus != filter.Estatus {
			continue
		}
		out = append(out, models.EnrollmentDetail{Enrollment: e})
	}
	return out, len(out), nil
}

func (r fakeEnrollments) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.state.enrollments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &e, nil
}

func (r fakeEnrollments) LockByID(ctx context.Context, id string) (*models.Enrollment, error) {
	return r.FindByID(ctx, id)
}

func (r fakeEnrollments) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	e, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return &models.EnrollmentDetail{
		Enrollment:  *e,
		Matricula:   r.state.students[e.StudentID].Matricula,
		GroupClave:  r.state.groups[e.GroupID].Clave,
		StudentName: r.state.students[e.StudentID].FullName,
	}, nil
}

func (r fakeEnrollments) ExistsActive(ctx context.Context, studentID, groupID, excludeID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.state.enrollments {
		if e.ID == excludeID || e.StudentID != studentID || e.GroupID != groupID {
			continue
		}
		if e.Estatus == models.EnrollmentStatusInscrito || e.Estatus == models.EnrollmentStatusEnCurso {
			return true, nil
		}
	}
	return false, nil
}

func (r fakeEnrollments) Create(ctx context.Context, enrollment *models.Enrollment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if enrollment.ID == "" {
		enrollment.ID = r.nextID("enr")
	}
	r.state.enrollments[enrollment.ID] = *enrollment
	return nil
}

func (r fakeEnrollments) Update(ctx context.Context, enrollment *models.Enrollment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.state.enrollments[enrollment.ID]; !ok {
		return sql.ErrNoRows
	}
	r.state.enrollments[enrollment.ID] = *enrollment
	return nil
}

func (r fakeEnrollments) UpdateObservations(ctx context.Context, id, observaciones string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.state.enrollments[id]
	if !ok {
		return sql.ErrNoRows
	}
	e.Observaciones = observaciones
	r.state.enrollments[id] = e
	return nil
}

func (r fakeEnrollments) SetPaymentState(ctx context.Context, id string, state models.PaymentState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.state.enrollments[id]
	if !ok {
		return sql.ErrNoRows
	}
	e.EstadoPago = &state
	r.state.enrollments[id] = e
	return nil
}

type fakeExams struct{ *fakeStore }

func (r fakeExams) Create(ctx context.Context, exam *models.DiagnosticExam) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if exam.ID == "" {
		exam.ID = r.nextID("exam")
	}
	r.state.exams[exam.ID] = *exam
	return nil
}

func (r fakeExams) FindByID(ctx context.Context, id string) (*models.DiagnosticExam, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.state.exams[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &e, nil
}

func (r fakeExams) LockByID(ctx context.Context, id string) (*models.DiagnosticExam, error) {
	return r.FindByID(ctx, id)
}

func (r fakeExams) Update(ctx context.Context, exam *models.DiagnosticExam) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.exams[exam.ID] = *exam
	return nil
}

func (r fakeExams) SetPaymentState(ctx context.Context, id string, state models.PaymentState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.state.exams[id]
	if !ok {
		return sql.ErrNoRows
	}
	e.EstadoPago = &state
	r.state.exams[id] = e
	return nil
}

type fakeProgress struct{ *fakeStore }

func (r fakeProgress) Find(ctx context.Context, studentID string) (*models.EnglishProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.state.progress[studentID]
	if !ok {
		return newEnglishProgress(studentID), nil
	}
	p.Niveles = maps.Clone(p.Niveles)
	return &p, nil
}

func (r fakeProgress) Lock(ctx context.Context, studentID string) (*models.EnglishProgress, error) {
	return r.Find(ctx, studentID)
}

func (r fakeProgress) Save(ctx context.Context, progress *models.EnglishProgress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := *progress
	p.Niveles = maps.Clone(progress.Niveles)
	for level, rec := range p.Niveles {
		if rec.ID == "" {
			rec.ID = r.nextID("lvl")
			p.Niveles[level] = rec
		}
	}
	r.state.progress[p.StudentID] = p
	return nil
}

type fakePayments struct{ *fakeStore }

func (r fakePayments) Create(ctx context.Context, payment *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if payment.ID == "" {
		payment.ID = r.nextID("pay")
	}
	r.state.payments[payment.ID] = *payment
	return nil
}

func (r fakePayments) FindByID(ctx context.Context, id string) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.state.payments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &p, nil
}

func (r fakePayments) LockByID(ctx context.Context, id string) (*models.Payment, error) {
	return r.FindByID(ctx, id)
}

func (r fakePayments) Update(ctx context.Context, payment *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.payments[payment.ID] = *payment
	return nil
}

type auditSpy struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func (a *auditSpy) Record(ctx context.Context, entry AuditEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
}

func (a *auditSpy) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.entries))
	for i, e := range a.entries {
		out[i] = e.Action
	}
	return out
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	gets    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]byte{}}
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = raw
	return nil
}

func (m *memoryCache) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.entries, k)
	}
	return nil
}

func (m *memoryCache) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[key]
	return ok
}

// testEngine wires every service against one fakeStore.
type testEngine struct {
	store       *fakeStore
	audit       *auditSpy
	cache       *memoryCache
	metrics     *MetricsService
	ledger      *CapacityLedger
	enrollments *EnrollmentService
	english     *EnglishService
	payments    *PaymentService
}

func newTestEngine() *testEngine {
	store := newFakeStore()
	audit := &auditSpy{}
	cache := newMemoryCache()
	metrics := NewMetricsService()
	grades := NewGradeAggregator(fixedClock)

	ledger := NewCapacityLedger(fakeGroups{store}, store, metrics, nil)
	enrollments := NewEnrollmentService(fakeEnrollments{store}, fakeStudents{store}, fakeGroups{store}, ledger, fakePayments{store}, store, grades, audit, metrics, nil, nil)
	enrollments.now = fixedClock
	english := NewEnglishService(fakeExams{store}, fakeProgress{store}, fakeEnrollments{store}, enrollments, fakeStudents{store}, fakeGroups{store}, fakePayments{store}, store, grades,
		NewProgressCache(cache, metrics, time.Minute, nil, true), audit, metrics, nil, nil)
	english.now = fixedClock
	payments := NewPaymentService(fakePayments{store}, map[models.PaymentItemType]PaymentItem{
		models.PaymentItemEnrollment:     EnrollmentPaymentItem(fakeEnrollments{store}),
		models.PaymentItemDiagnosticExam: ExamPaymentItem(fakeExams{store}),
	}, store, audit, metrics, nil, nil)
	payments.now = fixedClock

	return &testEngine{
		store:       store,
		audit:       audit,
		cache:       cache,
		metrics:     metrics,
		ledger:      ledger,
		enrollments: enrollments,
		english:     english,
		payments:    payments,
	}
}

func adminActor() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
}

func teacherActor(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: models.RoleTeacher}
}

func studentActor(studentID string) *models.JWTClaims {
	return &models.JWTClaims{UserID: "user-" + studentID, Role: models.RoleStudent, StudentID: studentID}
}

func ptr[T any](v T) *T { return &v }
