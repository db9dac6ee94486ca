package db

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var errDBUnavailable = errors.New("database unavailable")

func Open(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, errors.New("database dsn is required")
	}
	return gorm.Open(postgres.Open(dsn), &gorm.Config{})
}

// AutoMigrate creates or updates every back-office table.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&BrokerModel{},
		&UserModel{},
		&SessionModel{},
		&TradingAccountModel{},
		&TransactionModel{},
		&KYCDocumentModel{},
		&TicketModel{},
		&TicketReplyModel{},
		&AuditEventModel{},
	)
}

func newUUID() string {
	return uuid.New().String()
}
