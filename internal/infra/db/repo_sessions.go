package db

import (
	"context"
	"errors"
	"time"

	"backoffice/internal/domain"

	"gorm.io/gorm"
)

type SessionRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db, now: time.Now}
}

func (r *SessionRepository) Create(ctx context.Context, s domain.Session) error {
	if r.db == nil {
		return errDBUnavailable
	}
	if s.Token == "" {
		return errors.New("token is required")
	}
	if s.UserID == "" {
		return errors.New("user_id is required")
	}
	model := SessionModel{
		Token:     s.Token,
		UserID:    s.UserID,
		ExpiresAt: s.ExpiresAt,
		CreatedAt: s.CreatedAt,
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

// FindLive returns the session row matching token with an expiry in the
// future. A miss is ErrSessionRevoked, not ErrNotFound: the caller cannot
// distinguish an expired row from a deleted one and must not try. No read
// refreshes the expiry.
func (r *SessionRepository) FindLive(ctx context.Context, token string) (*domain.Session, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model SessionModel
	err := r.db.WithContext(ctx).
		Where("token = ? AND expires_at > ?", token, r.now().UTC()).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrSessionRevoked
		}
		return nil, err
	}
	return &domain.Session{
		Token:     model.Token,
		UserID:    model.UserID,
		ExpiresAt: model.ExpiresAt,
		CreatedAt: model.CreatedAt,
	}, nil
}

// DeleteByToken revokes exactly one session. Deleting an already-absent
// token is not an error; the externally observable outcome is the same.
func (r *SessionRepository) DeleteByToken(ctx context.Context, token string) error {
	if r.db == nil {
		return errDBUnavailable
	}
	return r.db.WithContext(ctx).Delete(&SessionModel{}, "token = ?", token).Error
}

// DeleteAllForUser is the bulk revoke behind password changes and forced
// resets.
func (r *SessionRepository) DeleteAllForUser(ctx context.Context, userID string) error {
	if r.db == nil {
		return errDBUnavailable
	}
	return r.db.WithContext(ctx).Delete(&SessionModel{}, "user_id = ?", userID).Error
}

// PurgeExpired removes rows whose expiry has passed. Run from a periodic
// sweep; correctness never depends on it because FindLive filters on expiry.
func (r *SessionRepository) PurgeExpired(ctx context.Context) (int64, error) {
	if r.db == nil {
		return 0, errDBUnavailable
	}
	result := r.db.WithContext(ctx).Delete(&SessionModel{}, "expires_at <= ?", r.now().UTC())
	return result.RowsAffected, result.Error
}

var _ domain.SessionStore = (*SessionRepository)(nil)
