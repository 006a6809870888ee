package model

import "time"

type SettlementStatus string

const (
	SettlementStatusPending   SettlementStatus = "pending"
	SettlementStatusCompleted SettlementStatus = "completed"
)

// Settlement is the creator payout record for a completed order.
// SettlementAmount + PlatformFee always equals TotalAmount.
type Settlement struct {
	ID               string           `json:"id"`
	CreatorID        string           `json:"creator_id"`
	OrderID          string           `json:"order_id"`
	TotalAmount      int64            `json:"total_amount"`
	PlatformFee      int64            `json:"platform_fee"`
	SettlementAmount int64            `json:"settlement_amount"`
	Status           SettlementStatus `json:"status"`
	RequestedAt      *time.Time       `json:"requested_at"`
	CompletedAt      *time.Time       `json:"completed_at"`
	CreatedAt        time.Time        `json:"created_at"`
}

type SettlementSummary struct {
	TotalCount       int   `json:"total_count"`
	PendingAmount    int64 `json:"pending_amount"`
	CompletedAmount  int64 `json:"completed_amount"`
	TotalPlatformFee int64 `json:"total_platform_fee"`
}
