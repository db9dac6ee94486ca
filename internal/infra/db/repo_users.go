package db

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"backoffice/internal/domain"

	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	if r.db == nil {
		return errDBUnavailable
	}
	if user.Email == "" {
		return errors.New("email is required")
	}
	if !user.Role.Valid() {
		return errors.New("invalid role")
	}
	if user.Role != domain.RoleSuperAdmin && user.BrokerID == "" {
		return errors.New("broker_id is required for tenant-scoped roles")
	}
	if user.ID == "" {
		user.ID = newUUID()
	}
	model, err := userToModel(user)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *UserRepository) FindByEmail(ctx context.Context, brokerID, email string) (*domain.User, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model UserModel
	query := r.db.WithContext(ctx).Where("email = ?", email)
	if brokerID == "" {
		query = query.Where("broker_id IS NULL")
	} else {
		query = query.Where("broker_id = ?", brokerID)
	}
	if err := query.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return modelToUser(model)
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model UserModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return modelToUser(model)
}

func (r *UserRepository) ListByBroker(ctx context.Context, brokerID string, roles ...domain.Role) ([]domain.User, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	query := r.db.WithContext(ctx).Where("broker_id = ?", brokerID)
	if len(roles) > 0 {
		names := make([]string, len(roles))
		for i, role := range roles {
			names[i] = string(role)
		}
		query = query.Where("role IN ?", names)
	}
	var models []UserModel
	if err := query.Order("created_at").Find(&models).Error; err != nil {
		return nil, err
	}
	users := make([]domain.User, 0, len(models))
	for _, model := range models {
		user, err := modelToUser(model)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.update(ctx, id, map[string]any{"password_hash": passwordHash})
}

func (r *UserRepository) UpdateStatus(ctx context.Context, id string, status domain.UserStatus) error {
	return r.update(ctx, id, map[string]any{"status": string(status)})
}

func (r *UserRepository) UpdateKYCStatus(ctx context.Context, id string, status domain.KYCStatus) error {
	return r.update(ctx, id, map[string]any{"kyc_status": string(status)})
}

func (r *UserRepository) UpdateTwoFactor(ctx context.Context, id, secret string, enabled bool, backupCodeHashes []string) error {
	var codes []byte
	if len(backupCodeHashes) > 0 {
		var err error
		if codes, err = json.Marshal(backupCodeHashes); err != nil {
			return err
		}
	}
	return r.update(ctx, id, map[string]any{
		"two_factor_secret":  secret,
		"two_factor_enabled": enabled,
		"backup_codes_json":  codes,
	})
}

// Delete removes the user row and its dependent sessions in one transaction.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	if r.db == nil {
		return errDBUnavailable
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&SessionModel{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&UserModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

func (r *UserRepository) update(ctx context.Context, id string, fields map[string]any) error {
	if r.db == nil {
		return errDBUnavailable
	}
	fields["updated_at"] = time.Now().UTC()
	result := r.db.WithContext(ctx).Model(&UserModel{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func userToModel(user *domain.User) (UserModel, error) {
	var codes []byte
	if len(user.BackupCodeHashes) > 0 {
		var err error
		if codes, err = json.Marshal(user.BackupCodeHashes); err != nil {
			return UserModel{}, err
		}
	}
	var brokerID *string
	if user.BrokerID != "" {
		brokerID = &user.BrokerID
	}
	return UserModel{
		ID:               user.ID,
		BrokerID:         brokerID,
		Email:            user.Email,
		PasswordHash:     user.PasswordHash,
		Role:             string(user.Role),
		Status:           string(user.Status),
		KYCStatus:        string(user.KYCStatus),
		TwoFactorSecret:  user.TwoFactorSecret,
		TwoFactorEnabled: user.TwoFactorEnabled,
		BackupCodesJSON:  codes,
		CreatedAt:        user.CreatedAt,
		UpdatedAt:        user.UpdatedAt,
	}, nil
}

func modelToUser(model UserModel) (*domain.User, error) {
	var codes []string
	if len(model.BackupCodesJSON) > 0 {
		if err := json.Unmarshal(model.BackupCodesJSON, &codes); err != nil {
			return nil, err
		}
	}
	brokerID := ""
	if model.BrokerID != nil {
		brokerID = *model.BrokerID
	}
	return &domain.User{
		ID:               model.ID,
		BrokerID:         brokerID,
		Email:            model.Email,
		PasswordHash:     model.PasswordHash,
		Role:             domain.Role(model.Role),
		Status:           domain.UserStatus(model.Status),
		KYCStatus:        domain.KYCStatus(model.KYCStatus),
		TwoFactorSecret:  model.TwoFactorSecret,
		TwoFactorEnabled: model.TwoFactorEnabled,
		BackupCodeHashes: codes,
		CreatedAt:        model.CreatedAt,
		UpdatedAt:        model.UpdatedAt,
	}, nil
}
