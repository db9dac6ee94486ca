package db

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"backoffice/internal/domain"

	"gorm.io/gorm"
)

type BrokerRepository struct {
	db *gorm.DB
}

func NewBrokerRepository(db *gorm.DB) *BrokerRepository {
	return &BrokerRepository{db: db}
}

func (r *BrokerRepository) Create(ctx context.Context, broker *domain.Broker) error {
	if r.db == nil {
		return errDBUnavailable
	}
	if broker.Slug == "" {
		return errors.New("slug is required")
	}
	if broker.ID == "" {
		broker.ID = newUUID()
	}
	if broker.Status == "" {
		broker.Status = domain.BrokerActive
	}
	now := time.Now().UTC()
	broker.CreatedAt = now
	broker.UpdatedAt = now
	model, err := brokerToModel(broker)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

// FindActiveByHostCandidate matches the tenant-resolver contract: an active
// broker whose slug equals the candidate, or whose domain contains it as a
// case-sensitive substring.
func (r *BrokerRepository) FindActiveByHostCandidate(ctx context.Context, candidate string) (*domain.Broker, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	if candidate == "" {
		return nil, domain.ErrNotFound
	}
	var model BrokerModel
	err := r.db.WithContext(ctx).
		Where("status = ?", string(domain.BrokerActive)).
		Where("slug = ? OR domain LIKE ?", candidate, "%"+candidate+"%").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return modelToBroker(model)
}

func (r *BrokerRepository) GetByID(ctx context.Context, id string) (*domain.Broker, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model BrokerModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return modelToBroker(model)
}

func (r *BrokerRepository) GetBySlug(ctx context.Context, slug string) (*domain.Broker, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model BrokerModel
	err := r.db.WithContext(ctx).First(&model, "slug = ?", slug).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return modelToBroker(model)
}

func (r *BrokerRepository) List(ctx context.Context) ([]domain.Broker, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []BrokerModel
	if err := r.db.WithContext(ctx).Order("created_at").Find(&models).Error; err != nil {
		return nil, err
	}
	brokers := make([]domain.Broker, 0, len(models))
	for _, model := range models {
		broker, err := modelToBroker(model)
		if err != nil {
			return nil, err
		}
		brokers = append(brokers, *broker)
	}
	return brokers, nil
}

func (r *BrokerRepository) UpdateStatus(ctx context.Context, id string, status domain.BrokerStatus) error {
	if r.db == nil {
		return errDBUnavailable
	}
	result := r.db.WithContext(ctx).Model(&BrokerModel{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": string(status), "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func brokerToModel(broker *domain.Broker) (BrokerModel, error) {
	var settings []byte
	if len(broker.Settings) > 0 {
		var err error
		if settings, err = json.Marshal(broker.Settings); err != nil {
			return BrokerModel{}, err
		}
	}
	return BrokerModel{
		ID:           broker.ID,
		Slug:         broker.Slug,
		Domain:       broker.Domain,
		Status:       string(broker.Status),
		SettingsJSON: settings,
		CreatedAt:    broker.CreatedAt,
		UpdatedAt:    broker.UpdatedAt,
	}, nil
}

func modelToBroker(model BrokerModel) (*domain.Broker, error) {
	var settings map[string]string
	if len(model.SettingsJSON) > 0 {
		if err := json.Unmarshal(model.SettingsJSON, &settings); err != nil {
			return nil, err
		}
	}
	return &domain.Broker{
		ID:        model.ID,
		Slug:      model.Slug,
		Domain:    model.Domain,
		Status:    domain.BrokerStatus(model.Status),
		Settings:  settings,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}, nil
}
