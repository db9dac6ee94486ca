package db

import "time"

type BrokerModel struct {
	ID           string    `gorm:"type:uuid;primaryKey"`
	Slug         string    `gorm:"uniqueIndex;not null"`
	Domain       string    `gorm:"index;not null"`
	Status       string    `gorm:"not null"`
	SettingsJSON []byte    `gorm:"type:jsonb"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

func (BrokerModel) TableName() string {
	return "brokers"
}

type UserModel struct {
	ID               string  `gorm:"type:uuid;primaryKey"`
	BrokerID         *string `gorm:"type:uuid;uniqueIndex:idx_users_broker_email;index"`
	Email            string  `gorm:"uniqueIndex:idx_users_broker_email;not null"`
	PasswordHash     string  `gorm:"not null"`
	Role             string  `gorm:"index;not null"`
	Status           string  `gorm:"not null"`
	KYCStatus        string  `gorm:"column:kyc_status;not null"`
	TwoFactorSecret  string
	TwoFactorEnabled bool      `gorm:"not null"`
	BackupCodesJSON  []byte    `gorm:"type:jsonb"`
	CreatedAt        time.Time `gorm:"not null"`
	UpdatedAt        time.Time `gorm:"not null"`
}

func (UserModel) TableName() string {
	return "users"
}

type SessionModel struct {
	Token     string    `gorm:"primaryKey"`
	UserID    string    `gorm:"type:uuid;index;not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (SessionModel) TableName() string {
	return "sessions"
}

type TradingAccountModel struct {
	ID        string    `gorm:"type:uuid;primaryKey"`
	BrokerID  string    `gorm:"type:uuid;index;not null"`
	UserID    string    `gorm:"type:uuid;index;not null"`
	Login     int64     `gorm:"uniqueIndex;not null"`
	Platform  string    `gorm:"not null"`
	Leverage  int       `gorm:"not null"`
	Balance   float64   `gorm:"not null"`
	Currency  string    `gorm:"not null"`
	Status    string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (TradingAccountModel) TableName() string {
	return "trading_accounts"
}

type TransactionModel struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	BrokerID  string `gorm:"type:uuid;index;not null"`
	UserID    string `gorm:"type:uuid;index;not null"`
	AccountID string `gorm:"type:uuid;index;not null"`
	Kind      string `gorm:"not null"`
	Amount    float64 `gorm:"not null"`
	Currency  string  `gorm:"not null"`
	Status    string  `gorm:"index;not null"`
	Note      string
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (TransactionModel) TableName() string {
	return "transactions"
}

type KYCDocumentModel struct {
	ID         string `gorm:"type:uuid;primaryKey"`
	BrokerID   string `gorm:"type:uuid;index;not null"`
	UserID     string `gorm:"type:uuid;index;not null"`
	Kind       string `gorm:"not null"`
	FileURI    string `gorm:"not null"`
	Status     string `gorm:"index;not null"`
	ReviewNote string
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

func (KYCDocumentModel) TableName() string {
	return "kyc_documents"
}

type TicketModel struct {
	ID        string    `gorm:"type:uuid;primaryKey"`
	BrokerID  string    `gorm:"type:uuid;index;not null"`
	UserID    string    `gorm:"type:uuid;index;not null"`
	Subject   string    `gorm:"not null"`
	Body      string    `gorm:"not null"`
	Status    string    `gorm:"index;not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (TicketModel) TableName() string {
	return "tickets"
}

type TicketReplyModel struct {
	ID        string    `gorm:"type:uuid;primaryKey"`
	TicketID  string    `gorm:"type:uuid;index;not null"`
	AuthorID  string    `gorm:"type:uuid;not null"`
	Body      string    `gorm:"not null"`
	FromStaff bool      `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (TicketReplyModel) TableName() string {
	return "ticket_replies"
}

type AuditEventModel struct {
	ID          string    `gorm:"type:uuid;primaryKey"`
	BrokerID    string    `gorm:"type:uuid;index;not null"`
	ActorIDHash string    `gorm:"not null"`
	ActorRole   string    `gorm:"not null"`
	Action      string    `gorm:"index;not null"`
	TargetType  string    `gorm:"not null"`
	TargetID    string    `gorm:"index;not null"`
	Result      string    `gorm:"not null"`
	DetailJSON  []byte    `gorm:"type:jsonb"`
	CreatedAt   time.Time `gorm:"index;not null"`
}

func (AuditEventModel) TableName() string {
	return "audit_events"
}
