package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sia-enrollment-engine/internal/models"
	"github.com/noah-isme/sia-enrollment-engine/pkg/jobs"
	"github.com/noah-isme/sia-enrollment-engine/pkg/middleware/requestid"
)

const auditJobType = "audit_log"

type auditWriter interface {
	Create(ctx context.Context, log *models.AuditLog) error
}

// AuditEntry is a single engine event to be recorded.
type AuditEntry struct {
	Actor      *string
	Action     string
	Resource   string
	ResourceID string
	Before     interface{}
	After      interface{}
}

// AuditService writes the audit trail off the request path through a job queue.
// Without a queue entries are written synchronously.
type AuditService struct {
	repo   auditWriter
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewAuditService constructs an AuditService. Pass the queue returned by NewAuditQueue, or nil.
func NewAuditService(repo auditWriter, queue *jobs.Queue, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{repo: repo, queue: queue, logger: logger}
}

// NewAuditQueue builds the queue that drains audit jobs into repo.
func NewAuditQueue(repo auditWriter, cfg jobs.QueueConfig) *jobs.Queue {
	return jobs.NewQueue("audit", func(ctx context.Context, job jobs.Job) error {
		log, ok := job.Payload.(*models.AuditLog)
		if !ok {
			return fmt.Errorf("unexpected audit payload %T", job.Payload)
		}
		return repo.Create(ctx, log)
	}, cfg)
}

// Record stores entry. Failures are logged, never returned: the business operation already committed.
func (s *AuditService) Record(ctx context.Context, entry AuditEntry) {
	if s == nil || s.repo == nil {
		return
	}
	log := &models.AuditLog{
		ID:       uuid.NewString(),
		UserID:   entry.Actor,
		Action:   entry.Action,
		Resource: entry.Resource,
	}
	if entry.ResourceID != "" {
		id := entry.ResourceID
		log.ResourceID = &id
	}
	if reqID := requestid.FromContext(ctx); reqID != "" {
		log.RequestID = &reqID
	}
	if entry.Before != nil {
		log.OldValues, _ = json.Marshal(entry.Before)
	}
	if entry.After != nil {
		log.NewValues, _ = json.Marshal(entry.After)
	}

	if s.queue != nil {
		err := s.queue.Enqueue(jobs.Job{ID: log.ID, Type: auditJobType, Payload: log})
		if err == nil {
			return
		}
		s.logger.Warn("audit enqueue failed, writing inline", zap.String("action", entry.Action), zap.Error(err))
	}
	if err := s.repo.Create(context.WithoutCancel(ctx), log); err != nil {
		s.logger.Error("audit write failed", zap.String("action", entry.Action), zap.String("resource_id", entry.ResourceID), zap.Error(err))
	}
}
