package db

import (
	"context"
	"encoding/json"

	"backoffice/internal/domain"

	"gorm.io/gorm"
)

type AuditEventRepository struct {
	db *gorm.DB
}

func NewAuditEventRepository(db *gorm.DB) *AuditEventRepository {
	return &AuditEventRepository{db: db}
}

// Append is insert-only. Audit rows are never updated or deleted through
// the application.
func (r *AuditEventRepository) Append(ctx context.Context, event domain.AuditEvent) (domain.AuditEvent, error) {
	if r.db == nil {
		return domain.AuditEvent{}, errDBUnavailable
	}
	if event.ID == "" {
		event.ID = newUUID()
	}
	detail, err := json.Marshal(event.Detail)
	if err != nil {
		return domain.AuditEvent{}, err
	}
	model := AuditEventModel{
		ID:          event.ID,
		BrokerID:    event.BrokerID,
		ActorIDHash: event.ActorIDHash,
		ActorRole:   string(event.ActorRole),
		Action:      event.Action,
		TargetType:  event.TargetType,
		TargetID:    event.TargetID,
		Result:      string(event.Result),
		DetailJSON:  detail,
		CreatedAt:   event.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.AuditEvent{}, err
	}
	return event, nil
}

func (r *AuditEventRepository) ListByBroker(ctx context.Context, brokerID string, limit int) ([]domain.AuditEvent, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var models []AuditEventModel
	err := r.db.WithContext(ctx).
		Where("broker_id = ?", brokerID).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	events := make([]domain.AuditEvent, len(models))
	for i, model := range models {
		event, err := modelToAuditEvent(model)
		if err != nil {
			return nil, err
		}
		events[i] = event
	}
	return events, nil
}

func modelToAuditEvent(model AuditEventModel) (domain.AuditEvent, error) {
	var detail map[string]any
	if len(model.DetailJSON) > 0 {
		if err := json.Unmarshal(model.DetailJSON, &detail); err != nil {
			return domain.AuditEvent{}, err
		}
	}
	return domain.AuditEvent{
		ID:          model.ID,
		BrokerID:    model.BrokerID,
		ActorIDHash: model.ActorIDHash,
		ActorRole:   domain.Role(model.ActorRole),
		Action:      model.Action,
		TargetType:  model.TargetType,
		TargetID:    model.TargetID,
		Result:      domain.AuditResult(model.Result),
		Detail:      detail,
		CreatedAt:   model.CreatedAt,
	}, nil
}
