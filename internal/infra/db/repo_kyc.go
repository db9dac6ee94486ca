package db

import (
	"context"
	"errors"
	"time"

	"backoffice/internal/domain"

	"gorm.io/gorm"
)

type KYCDocumentRepository struct {
	db *gorm.DB
}

func NewKYCDocumentRepository(db *gorm.DB) *KYCDocumentRepository {
	return &KYCDocumentRepository{db: db}
}

func (r *KYCDocumentRepository) Create(ctx context.Context, doc *domain.KYCDocument) error {
	if r.db == nil {
		return errDBUnavailable
	}
	if doc.BrokerID == "" || doc.UserID == "" {
		return errors.New("broker_id and user_id are required")
	}
	if doc.FileURI == "" {
		return errors.New("file_uri is required")
	}
	if doc.ID == "" {
		doc.ID = newUUID()
	}
	if doc.Status == "" {
		doc.Status = domain.DocPending
	}
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	model := kycToModel(doc)
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *KYCDocumentRepository) GetByID(ctx context.Context, id string) (*domain.KYCDocument, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model KYCDocumentModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	doc := modelToKYC(model)
	return &doc, nil
}

func (r *KYCDocumentRepository) ListByUser(ctx context.Context, userID string) ([]domain.KYCDocument, error) {
	return r.list(ctx, "user_id = ?", userID)
}

func (r *KYCDocumentRepository) ListPendingByBroker(ctx context.Context, brokerID string) ([]domain.KYCDocument, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []KYCDocumentModel
	err := r.db.WithContext(ctx).
		Where("broker_id = ? AND status = ?", brokerID, string(domain.DocPending)).
		Order("created_at").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return kycSlice(models), nil
}

func (r *KYCDocumentRepository) list(ctx context.Context, query string, arg any) ([]domain.KYCDocument, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []KYCDocumentModel
	if err := r.db.WithContext(ctx).Where(query, arg).Order("created_at").Find(&models).Error; err != nil {
		return nil, err
	}
	return kycSlice(models), nil
}

// Review settles a pending document; reviewing a settled one reports
// ErrNotFound through the status guard.
func (r *KYCDocumentRepository) Review(ctx context.Context, id string, status domain.DocumentStatus, note string) error {
	if r.db == nil {
		return errDBUnavailable
	}
	if status != domain.DocApproved && status != domain.DocRejected {
		return errors.New("review status must be approved or rejected")
	}
	result := r.db.WithContext(ctx).Model(&KYCDocumentModel{}).
		Where("id = ? AND status = ?", id, string(domain.DocPending)).
		Updates(map[string]any{
			"status":      string(status),
			"review_note": note,
			"updated_at":  time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// HasPendingOrApproved reports whether any submitted document for the user
// is still reviewable or already accepted.
func (r *KYCDocumentRepository) HasPendingOrApproved(ctx context.Context, userID string) (bool, error) {
	if r.db == nil {
		return false, errDBUnavailable
	}
	var count int64
	err := r.db.WithContext(ctx).Model(&KYCDocumentModel{}).
		Where("user_id = ? AND status IN ?", userID, []string{string(domain.DocPending), string(domain.DocApproved)}).
		Count(&count).Error
	return count > 0, err
}

func kycSlice(models []KYCDocumentModel) []domain.KYCDocument {
	docs := make([]domain.KYCDocument, len(models))
	for i, model := range models {
		docs[i] = modelToKYC(model)
	}
	return docs
}

func kycToModel(doc *domain.KYCDocument) KYCDocumentModel {
	return KYCDocumentModel{
		ID:         doc.ID,
		BrokerID:   doc.BrokerID,
		UserID:     doc.UserID,
		Kind:       doc.Kind,
		FileURI:    doc.FileURI,
		Status:     string(doc.Status),
		ReviewNote: doc.ReviewNote,
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
	}
}

func modelToKYC(model KYCDocumentModel) domain.KYCDocument {
	return domain.KYCDocument{
		ID:         model.ID,
		BrokerID:   model.BrokerID,
		UserID:     model.UserID,
		Kind:       model.Kind,
		FileURI:    model.FileURI,
		Status:     domain.DocumentStatus(model.Status),
		ReviewNote: model.ReviewNote,
		CreatedAt:  model.CreatedAt,
		UpdatedAt:  model.UpdatedAt,
	}
}
