package db

import (
	"context"
	"errors"
	"time"

	"backoffice/internal/domain"

	"gorm.io/gorm"
)

type TradingAccountRepository struct {
	db *gorm.DB
}

func NewTradingAccountRepository(db *gorm.DB) *TradingAccountRepository {
	return &TradingAccountRepository{db: db}
}

// Create assigns the next platform login for the broker when none is set.
// Login assignment and insert run in one transaction so concurrent opens
// cannot collide on the unique login column.
func (r *TradingAccountRepository) Create(ctx context.Context, account *domain.TradingAccount) error {
	if r.db == nil {
		return errDBUnavailable
	}
	if account.BrokerID == "" || account.UserID == "" {
		return errors.New("broker_id and user_id are required")
	}
	if account.ID == "" {
		account.ID = newUUID()
	}
	if account.Status == "" {
		account.Status = domain.AccountActive
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if account.Login == 0 {
			var max int64
			row := tx.Model(&TradingAccountModel{}).Select("COALESCE(MAX(login), 100000)").Row()
			if err := row.Scan(&max); err != nil {
				return err
			}
			account.Login = max + 1
		}
		model := accountToModel(account)
		return tx.Create(&model).Error
	})
}

func (r *TradingAccountRepository) GetByID(ctx context.Context, id string) (*domain.TradingAccount, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model TradingAccountModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	account := modelToAccount(model)
	return &account, nil
}

func (r *TradingAccountRepository) ListByUser(ctx context.Context, userID string) ([]domain.TradingAccount, error) {
	return r.list(ctx, "user_id = ?", userID)
}

func (r *TradingAccountRepository) ListByBroker(ctx context.Context, brokerID string) ([]domain.TradingAccount, error) {
	return r.list(ctx, "broker_id = ?", brokerID)
}

func (r *TradingAccountRepository) list(ctx context.Context, query string, arg any) ([]domain.TradingAccount, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []TradingAccountModel
	if err := r.db.WithContext(ctx).Where(query, arg).Order("created_at").Find(&models).Error; err != nil {
		return nil, err
	}
	accounts := make([]domain.TradingAccount, len(models))
	for i, model := range models {
		accounts[i] = modelToAccount(model)
	}
	return accounts, nil
}

func (r *TradingAccountRepository) UpdateStatus(ctx context.Context, id string, status domain.AccountStatus) error {
	if r.db == nil {
		return errDBUnavailable
	}
	result := r.db.WithContext(ctx).Model(&TradingAccountModel{}).
		Where("id = ?", id).
		Update("status", string(status))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AdjustBalance applies a signed delta atomically against the stored value.
func (r *TradingAccountRepository) AdjustBalance(ctx context.Context, id string, delta float64) error {
	if r.db == nil {
		return errDBUnavailable
	}
	result := r.db.WithContext(ctx).Model(&TradingAccountModel{}).
		Where("id = ?", id).
		Update("balance", gorm.Expr("balance + ?", delta))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func accountToModel(account *domain.TradingAccount) TradingAccountModel {
	createdAt := account.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return TradingAccountModel{
		ID:        account.ID,
		BrokerID:  account.BrokerID,
		UserID:    account.UserID,
		Login:     account.Login,
		Platform:  account.Platform,
		Leverage:  account.Leverage,
		Balance:   account.Balance,
		Currency:  account.Currency,
		Status:    string(account.Status),
		CreatedAt: createdAt,
	}
}

func modelToAccount(model TradingAccountModel) domain.TradingAccount {
	return domain.TradingAccount{
		ID:        model.ID,
		BrokerID:  model.BrokerID,
		UserID:    model.UserID,
		Login:     model.Login,
		Platform:  model.Platform,
		Leverage:  model.Leverage,
		Balance:   model.Balance,
		Currency:  model.Currency,
		Status:    domain.AccountStatus(model.Status),
		CreatedAt: model.CreatedAt,
	}
}
