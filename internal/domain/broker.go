package domain

import "time"

type BrokerStatus string

const (
	BrokerActive   BrokerStatus = "active"
	BrokerInactive BrokerStatus = "inactive"
)

// Broker is a tenant. Every business record except superadmin views is scoped
// to exactly one broker.
type Broker struct {
	ID        string
	Slug      string
	Domain    string
	Status    BrokerStatus
	Settings  map[string]string
	CreatedAt time.Time
	UpdatedAt time.Time
}
