package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sia-enrollment-engine/internal/models"
	"github.com/noah-isme/sia-enrollment-engine/pkg/jobs"
	"github.com/noah-isme/sia-enrollment-engine/pkg/middleware/requestid"
)

type auditRepoStub struct {
	mu   sync.Mutex
	logs []*models.AuditLog
	err  error
}

func (r *auditRepoStub) Create(ctx context.Context, log *models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.logs = append(r.logs, log)
	return nil
}

func (r *auditRepoStub) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.logs)
}

func TestAuditServiceRecordInline(t *testing.T) {
	repo := &auditRepoStub{}
	svc := NewAuditService(repo, nil, nil)

	svc.Record(context.Background(), AuditEntry{
		Actor:      ptr("admin-1"),
		Action:     models.AuditActionStatusChange,
		Resource:   "enrollment",
		ResourceID: "enr-1",
		Before:     map[string]string{"estatus": "INSCRITO"},
		After:      map[string]string{"estatus": "EN_CURSO"},
	})

	require.Equal(t, 1, repo.count())
	log := repo.logs[0]
	assert.NotEmpty(t, log.ID)
	assert.Equal(t, "admin-1", *log.UserID)
	assert.Equal(t, "enr-1", *log.ResourceID)
	assert.Nil(t, log.RequestID)
	var after map[string]string
	require.NoError(t, json.Unmarshal(log.NewValues, &after))
	assert.Equal(t, "EN_CURSO", after["estatus"])
}

func TestAuditServiceRecordThroughQueue(t *testing.T) {
	repo := &auditRepoStub{}
	queue := NewAuditQueue(repo, jobs.QueueConfig{Workers: 2, BufferSize: 8})
	queue.Start(context.Background())
	svc := NewAuditService(repo, queue, nil)

	for i := 0; i < 5; i++ {
		svc.Record(context.Background(), AuditEntry{Action: models.AuditActionGradesUpdate, Resource: "enrollment"})
	}
	queue.Stop()

	assert.Equal(t, 5, repo.count())
}

func TestAuditServiceFallsBackWhenQueueStopped(t *testing.T) {
	repo := &auditRepoStub{}
	queue := NewAuditQueue(repo, jobs.QueueConfig{})
	svc := NewAuditService(repo, queue, nil)

	svc.Record(context.Background(), AuditEntry{Action: models.AuditActionPaymentReject, Resource: "payment"})

	assert.Equal(t, 1, repo.count())
}

func TestAuditServiceSwallowsWriteErrors(t *testing.T) {
	repo := &auditRepoStub{err: errors.New("db down")}
	svc := NewAuditService(repo, nil, nil)

	assert.NotPanics(t, func() {
		svc.Record(context.Background(), AuditEntry{Action: models.AuditActionEnrollmentCreate})
	})

	var nilSvc *AuditService
	assert.NotPanics(t, func() {
		nilSvc.Record(context.Background(), AuditEntry{})
	})
}

func TestAuditQueueRetriesFailedWrites(t *testing.T) {
	repo := &flakyAuditRepo{failures: 2}
	queue := NewAuditQueue(repo, jobs.QueueConfig{MaxRetries: 3, RetryDelay: time.Millisecond})
	queue.Start(context.Background())
	require.NoError(t, queue.Enqueue(jobs.Job{ID: "a1", Type: auditJobType, Payload: &models.AuditLog{ID: "a1"}}))
	queue.Stop()

	assert.Equal(t, 3, repo.calls)
}

type flakyAuditRepo struct {
	mu       sync.Mutex
	failures int
	calls    int
}

func (r *flakyAuditRepo) Create(ctx context.Context, log *models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.calls <= r.failures {
		return errors.New("transient")
	}
	return nil
}

func TestAuditServiceStampsRequestID(t *testing.T) {
	repo := &auditRepoStub{}
	svc := NewAuditService(repo, nil, nil)
	ctx := requestid.WithValue(context.Background(), "req-7")

	svc.Record(ctx, AuditEntry{Action: models.AuditActionPaymentApprove, Resource: "payment", ResourceID: "pay-1"})

	require.Equal(t, 1, repo.count())
	require.NotNil(t, repo.logs[0].RequestID)
	assert.Equal(t, "req-7", *repo.logs[0].RequestID)
	assert.Nil(t, repo.logs[0].UserID)
}
