package domain

import (
	"context"
	"time"
)

type AuditResult string

const (
	AuditOK     AuditResult = "ok"
	AuditFailed AuditResult = "failed"
)

const (
	AuditUserStatusChanged  = "user.status_changed"
	AuditUserPasswordForced = "user.password_forced"
	AuditKYCReviewed        = "kyc.reviewed"
	AuditTransactionReview  = "transaction.reviewed"
	AuditBrokerCreated      = "broker.created"
	AuditBrokerStatusSet    = "broker.status_changed"
	AuditAdminCreated       = "admin.created"
)

// AuditEvent records one staff action against one target. The actor id is
// stored hashed; the trail proves who did what without becoming a second
// copy of the identity table.
type AuditEvent struct {
	ID          string
	BrokerID    string
	ActorIDHash string
	ActorRole   Role
	Action      string
	TargetType  string
	TargetID    string
	Result      AuditResult
	Detail      map[string]any
	CreatedAt   time.Time
}

type AuditEventRepository interface {
	Append(ctx context.Context, event AuditEvent) (AuditEvent, error)
	ListByBroker(ctx context.Context, brokerID string, limit int) ([]AuditEvent, error)
}
