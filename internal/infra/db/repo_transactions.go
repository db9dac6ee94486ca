package db

import (
	"context"
	"errors"
	"time"

	"backoffice/internal/domain"

	"gorm.io/gorm"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	if r.db == nil {
		return errDBUnavailable
	}
	if tx.BrokerID == "" || tx.UserID == "" || tx.AccountID == "" {
		return errors.New("broker_id, user_id and account_id are required")
	}
	if tx.Amount <= 0 {
		return errors.New("amount must be positive")
	}
	if tx.ID == "" {
		tx.ID = newUUID()
	}
	if tx.Status == "" {
		tx.Status = domain.TxPending
	}
	now := time.Now().UTC()
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = now
	}
	tx.UpdatedAt = now
	model := txToModel(tx)
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model TransactionModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	tx := modelToTx(model)
	return &tx, nil
}

func (r *TransactionRepository) ListByUser(ctx context.Context, userID string) ([]domain.Transaction, error) {
	return r.list(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("user_id = ?", userID)
	})
}

// ListByBroker filters on status when one is given; an empty status lists
// everything for the broker.
func (r *TransactionRepository) ListByBroker(ctx context.Context, brokerID string, status domain.TransactionStatus) ([]domain.Transaction, error) {
	return r.list(ctx, func(q *gorm.DB) *gorm.DB {
		q = q.Where("broker_id = ?", brokerID)
		if status != "" {
			q = q.Where("status = ?", string(status))
		}
		return q
	})
}

func (r *TransactionRepository) list(ctx context.Context, scope func(*gorm.DB) *gorm.DB) ([]domain.Transaction, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []TransactionModel
	query := scope(r.db.WithContext(ctx).Model(&TransactionModel{}))
	if err := query.Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	txs := make([]domain.Transaction, len(models))
	for i, model := range models {
		txs[i] = modelToTx(model)
	}
	return txs, nil
}

// Review settles a pending request. The status guard in the WHERE clause
// makes a second review of the same transaction report ErrNotFound instead
// of double-applying.
func (r *TransactionRepository) Review(ctx context.Context, id string, status domain.TransactionStatus, note string) error {
	if r.db == nil {
		return errDBUnavailable
	}
	if status != domain.TxApproved && status != domain.TxRejected {
		return errors.New("review status must be approved or rejected")
	}
	result := r.db.WithContext(ctx).Model(&TransactionModel{}).
		Where("id = ? AND status = ?", id, string(domain.TxPending)).
		Updates(map[string]any{
			"status":     string(status),
			"note":       note,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func txToModel(tx *domain.Transaction) TransactionModel {
	return TransactionModel{
		ID:        tx.ID,
		BrokerID:  tx.BrokerID,
		UserID:    tx.UserID,
		AccountID: tx.AccountID,
		Kind:      string(tx.Kind),
		Amount:    tx.Amount,
		Currency:  tx.Currency,
		Status:    string(tx.Status),
		Note:      tx.Note,
		CreatedAt: tx.CreatedAt,
		UpdatedAt: tx.UpdatedAt,
	}
}

func modelToTx(model TransactionModel) domain.Transaction {
	return domain.Transaction{
		ID:        model.ID,
		BrokerID:  model.BrokerID,
		UserID:    model.UserID,
		AccountID: model.AccountID,
		Kind:      domain.TransactionKind(model.Kind),
		Amount:    model.Amount,
		Currency:  model.Currency,
		Status:    domain.TransactionStatus(model.Status),
		Note:      model.Note,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}
