package types

import "time"

// NotificationType enumerates the notification kinds the core can raise.
type NotificationType string

// NotificationTypeNotCongruentStatus is the only notification type the core
// emits today (spec.md SS4.7.8): external systems disagree with each other.
const NotificationTypeNotCongruentStatus NotificationType = "not_congruent_status"

// Notification is an append-only, batch-scoped record surfacing a
// congruence issue discovered while processing a contract.
type Notification struct {
	Type       NotificationType `json:"type"`
	Message    string           `json:"message"`
	Timestamp  time.Time        `json:"timestamp"`
	ContractID string           `json:"contract_id,omitempty"`
}
