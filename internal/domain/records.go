package domain

import "time"

type AccountStatus string

const (
	AccountActive   AccountStatus = "active"
	AccountDisabled AccountStatus = "disabled"
)

// TradingAccount is a provisioned platform account owned by one client.
type TradingAccount struct {
	ID        string
	BrokerID  string
	UserID    string
	Login     int64
	Platform  string
	Leverage  int
	Balance   float64
	Currency  string
	Status    AccountStatus
	CreatedAt time.Time
}

type TransactionKind string

const (
	TxDeposit    TransactionKind = "deposit"
	TxWithdrawal TransactionKind = "withdrawal"
)

type TransactionStatus string

const (
	TxPending  TransactionStatus = "pending"
	TxApproved TransactionStatus = "approved"
	TxRejected TransactionStatus = "rejected"
)

// Transaction is a deposit or withdrawal request reviewed by broker staff.
type Transaction struct {
	ID        string
	BrokerID  string
	UserID    string
	AccountID string
	Kind      TransactionKind
	Amount    float64
	Currency  string
	Status    TransactionStatus
	Note      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type DocumentStatus string

const (
	DocPending  DocumentStatus = "pending"
	DocApproved DocumentStatus = "approved"
	DocRejected DocumentStatus = "rejected"
)

// KYCDocument is a submitted identity document awaiting admin review. The
// file itself lives in external storage; only the URI is recorded here.
type KYCDocument struct {
	ID         string
	BrokerID   string
	UserID     string
	Kind       string
	FileURI    string
	Status     DocumentStatus
	ReviewNote string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type TicketStatus string

const (
	TicketOpen     TicketStatus = "open"
	TicketAnswered TicketStatus = "answered"
	TicketClosed   TicketStatus = "closed"
)

type Ticket struct {
	ID        string
	BrokerID  string
	UserID    string
	Subject   string
	Body      string
	Status    TicketStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

type TicketReply struct {
	ID        string
	TicketID  string
	AuthorID  string
	Body      string
	FromStaff bool
	CreatedAt time.Time
}
