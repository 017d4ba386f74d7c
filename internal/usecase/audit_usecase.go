package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/nguyentranbao-ct/agent-console/internal/kafka"
	"github.com/nguyentranbao-ct/agent-console/internal/models"
	"github.com/nguyentranbao-ct/agent-console/internal/store"
	log "github.com/nguyentranbao-ct/agent-console/pkg/logger/logctx"
)

// AuditUsecase appends audit entries. Entries are written straight to the
// store rather than through a session mirror: recording is a system action
// and must not depend on the actor's own read rights on the audit log.
type AuditUsecase struct {
	logs      store.Adapter[models.AuditLogEntry]
	publisher kafka.Publisher
	now       func() time.Time
}

func NewAuditUsecase(stores Stores, publisher kafka.Publisher) *AuditUsecase {
	return &AuditUsecase{
		logs:      stores.AuditLogs,
		publisher: publisher,
		now:       time.Now,
	}
}

// Record stores the entry, then publishes it. A publish failure is logged
// and does not fail the caller; the stored entry is the source of truth.
func (uc *AuditUsecase) Record(ctx context.Context, actor models.Actor, action, details string) error {
	entry := models.AuditLogEntry{
		Action:    action,
		UserEmail: actor.Email,
		Details:   details,
		Timestamp: uc.now().UTC(),
	}
	id, err := uc.logs.Create(ctx, entry)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	entry = entry.Stamp(id, 1)

	if err := uc.publisher.PublishAudit(ctx, entry); err != nil {
		log.Warnw(ctx, "failed to publish audit entry", "action", action, "error", err)
	}
	return nil
}
