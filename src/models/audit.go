package models

import "time"

// AuditEntry is one recorded ledger operation.
type AuditEntry struct {
	ID            int64     `json:"id"`
	ActorID       int64     `json:"actor_id"`
	OperationType string    `json:"operation_type"`
	Description   string    `json:"description"`
	CreatedAt     time.Time `json:"created_at"`
}
