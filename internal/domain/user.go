package domain

import "time"

type UserStatus string

const (
	UserActive    UserStatus = "active"
	UserSuspended UserStatus = "suspended"
	UserDeleted   UserStatus = "deleted"
)

type KYCStatus string

const (
	KYCPending  KYCStatus = "pending"
	KYCApproved KYCStatus = "approved"
	KYCRejected KYCStatus = "rejected"
)

// User is one identity. BrokerID is empty only for superadmins, which are
// global and may read across tenants.
type User struct {
	ID               string
	BrokerID         string
	Email            string
	PasswordHash     string
	Role             Role
	Status           UserStatus
	KYCStatus        KYCStatus
	TwoFactorSecret  string
	TwoFactorEnabled bool
	BackupCodeHashes []string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
