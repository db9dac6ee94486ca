package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"backoffice/internal/domain"
)

// AuditEmitter appends staff actions to the audit trail. Emission is
// best-effort from the caller's point of view only in the sense that the
// action itself has already happened; a failed append still surfaces as an
// error so the gap is visible.
type AuditEmitter struct {
	Repo domain.AuditEventRepository
	Now  func() time.Time
}

func NewAuditEmitter(repo domain.AuditEventRepository) *AuditEmitter {
	return &AuditEmitter{Repo: repo, Now: time.Now}
}

func (e *AuditEmitter) Emit(ctx context.Context, event domain.AuditEvent) error {
	if e == nil || e.Repo == nil {
		return errors.New("audit repository required")
	}
	if event.Action == "" || event.TargetType == "" || event.TargetID == "" {
		return errors.New("audit event missing required fields")
	}
	if event.Result == "" {
		event.Result = domain.AuditOK
	}
	if event.Detail == nil {
		event.Detail = map[string]any{}
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = e.Now().UTC()
	}
	_, err := e.Repo.Append(ctx, event)
	return err
}

// Record builds the event from an acting principal and appends it.
func (e *AuditEmitter) Record(ctx context.Context, brokerID string, actor domain.Principal, action, targetType, targetID string, detail map[string]any) error {
	return e.Emit(ctx, domain.AuditEvent{
		BrokerID:    brokerID,
		ActorIDHash: HashActorID(actor.UserID),
		ActorRole:   actor.Role,
		Action:      action,
		TargetType:  targetType,
		TargetID:    targetID,
		Detail:      detail,
	})
}

func HashActorID(id string) string {
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])
}
